package models

const DefaultModelID = "gemini-2.5-flash"

const DefaultSystemPrompt = `You are a helpful AI assistant used together with a screen reader by blind and visually impaired users.

When describing visual content:
- Be thorough and descriptive, as users cannot see the content
- Describe layout, colors, text, and important visual elements
- For UI elements, explain their purpose and current state

When providing information:
- Be concise but complete
- Avoid visual references like "as you can see"
- Structure information logically for audio consumption

For code and technical content:
- Explain structure and logic clearly
- Mention indentation and nesting levels when relevant`

const (
	DefaultScreenshotPrompt = "Describe this screenshot in detail. What application or content is shown? What are the main elements visible on screen?"
	DefaultObjectPrompt     = "Describe this UI element or object in detail. What is it? What does it show or do?"
	VideoAnalysisPrompt     = "Describe this video in detail, but concise. Get as much information as you can and if there is any important text in the video read it."
)

// DefaultPrompt returns the built-in prompt for a capture kind.
func DefaultPrompt(kind CaptureKind) string {
	switch kind {
	case KindScreenshot:
		return DefaultScreenshotPrompt
	case KindObject:
		return DefaultObjectPrompt
	case KindVideo:
		return VideoAnalysisPrompt
	default:
		return ""
	}
}

var AvailableModels = []AIModel{
	{ID: "gemini-3-pro-preview", Name: "Gemini 3 Pro (Preview)", ContextWindow: 1000000, MaxOutputTokens: 65536, Vision: true, Preview: true},
	{ID: "gemini-3-flash-preview", Name: "Gemini 3 Flash (Preview)", ContextWindow: 1000000, MaxOutputTokens: 32768, Vision: true, Preview: true},
	{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro", ContextWindow: 1000000, MaxOutputTokens: 65536, Vision: true},
	{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash", ContextWindow: 1000000, MaxOutputTokens: 8192, Vision: true},
	{ID: "gemini-2.5-flash-lite", Name: "Gemini 2.5 Flash-Lite", ContextWindow: 1000000, MaxOutputTokens: 8192, Vision: true},
}

func FindModelByID(id string) (AIModel, int, bool) {
	for i, mdl := range AvailableModels {
		if mdl.ID == id {
			return mdl, i, true
		}
	}
	return AIModel{}, 0, false
}
