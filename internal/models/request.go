package models

import "fmt"

// PartKind tells which field of a Part carries the payload.
type PartKind int

const (
	PartText PartKind = iota
	PartInline
	PartFile
)

// Part is one piece of a turn: text, inline bytes, or a remote file.
type Part struct {
	Kind    PartKind
	Text    string
	Data    []byte
	MIME    string
	FileURI string
}

func TextPart(text string) Part {
	return Part{Kind: PartText, Text: text}
}

func InlinePart(data []byte, mime string) Part {
	return Part{Kind: PartInline, Data: data, MIME: mime}
}

func FilePart(uri, mime string) Part {
	return Part{Kind: PartFile, FileURI: uri, MIME: mime}
}

type Turn struct {
	Role  Role
	Parts []Part
}

type GenerationParams struct {
	Temperature     float64
	TopP            float64
	TopK            int
	MaxOutputTokens int
}

func DefaultParams() GenerationParams {
	return GenerationParams{
		Temperature:     1.0,
		TopP:            0.95,
		TopK:            40,
		MaxOutputTokens: 8192,
	}
}

func (p GenerationParams) Validate() error {
	if p.Temperature < 0 || p.Temperature > 2 {
		return fmt.Errorf("temperature %.2f out of range [0,2]", p.Temperature)
	}
	if p.TopP < 0 || p.TopP > 1 {
		return fmt.Errorf("topP %.2f out of range [0,1]", p.TopP)
	}
	if p.TopK < 1 || p.TopK > 100 {
		return fmt.Errorf("topK %d out of range [1,100]", p.TopK)
	}
	if p.MaxOutputTokens < 1 || p.MaxOutputTokens > 65536 {
		return fmt.Errorf("maxOutputTokens %d out of range [1,65536]", p.MaxOutputTokens)
	}
	return nil
}

// CompletionRequest is consumed by exactly one worker. Build it with
// NewCompletionRequest so it shares no backing arrays with the caller.
type CompletionRequest struct {
	Model  string
	System string
	Turns  []Turn
	Params GenerationParams
	Stream bool
}

func NewCompletionRequest(model, system string, turns []Turn, params GenerationParams, stream bool) CompletionRequest {
	copied := make([]Turn, len(turns))
	for i, t := range turns {
		copied[i] = Turn{Role: t.Role, Parts: append([]Part(nil), t.Parts...)}
	}
	return CompletionRequest{
		Model:  model,
		System: system,
		Turns:  copied,
		Params: params,
		Stream: stream,
	}
}

// CompletionEvent is one of Chunk, Done or Error.
type CompletionEvent interface {
	completionEvent()
}

type Chunk struct{ Text string }

type Done struct{ Text string }

type Error struct{ Message string }

func (Chunk) completionEvent() {}
func (Done) completionEvent()  {}
func (Error) completionEvent() {}

// IsTerminal reports whether ev ends a worker's event sequence.
func IsTerminal(ev CompletionEvent) bool {
	switch ev.(type) {
	case Done, Error:
		return true
	default:
		return false
	}
}
