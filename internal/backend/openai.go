package backend

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/ssestream"

	"sightline/internal/models"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// OpenAI implements Backend against any OpenAI-compatible endpoint.
type OpenAI struct {
	Client openai.Client
}

func NewOpenAI(apiKey, baseURL string) *OpenAI {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHeader("X-Title", "sightline"),
	)
	return &OpenAI{Client: client}
}

func dataURL(p models.Part) string {
	return "data:" + p.MIME + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
}

func userParts(parts []models.Part) []openai.ChatCompletionContentPartUnionParam {
	out := make([]openai.ChatCompletionContentPartUnionParam, 0, len(parts))
	for _, p := range parts {
		switch p.Kind {
		case models.PartText:
			out = append(out, openai.TextContentPart(p.Text))
		case models.PartInline:
			if strings.HasPrefix(p.MIME, "image/") {
				out = append(out, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL(p),
				}))
				continue
			}
			out = append(out, openai.FileContentPart(openai.ChatCompletionContentPartFileFileParam{
				FileData: openai.String(dataURL(p)),
			}))
		case models.PartFile:
			out = append(out, openai.FileContentPart(openai.ChatCompletionContentPartFileFileParam{
				FileID: openai.String(p.FileURI),
			}))
		}
	}
	return out
}

func assistantText(parts []models.Part) string {
	var sb strings.Builder
	for _, p := range parts {
		if p.Kind == models.PartText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// BuildMessages converts turns into chat messages, system prompt first.
func BuildMessages(req models.CompletionRequest) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Turns)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, turn := range req.Turns {
		switch turn.Role {
		case models.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(assistantText(turn.Parts)))
		default:
			messages = append(messages, openai.UserMessage(userParts(turn.Parts)))
		}
	}
	return messages
}

func (o *OpenAI) params(req models.CompletionRequest) (openai.ChatCompletionNewParams, []option.RequestOption) {
	p := openai.ChatCompletionNewParams{
		Model:               req.Model,
		Messages:            BuildMessages(req),
		Temperature:         openai.Float(req.Params.Temperature),
		TopP:                openai.Float(req.Params.TopP),
		MaxCompletionTokens: openai.Int(int64(req.Params.MaxOutputTokens)),
	}
	// top_k is not part of the OpenAI schema; Gemini and OpenRouter accept it.
	opts := []option.RequestOption{option.WithJSONSet("top_k", req.Params.TopK)}
	return p, opts
}

func (o *OpenAI) Generate(ctx context.Context, req models.CompletionRequest) (string, error) {
	params, opts := o.params(req)
	resp, err := o.Client.Chat.Completions.New(ctx, params, opts...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from model")
	}
	return resp.Choices[0].Message.Content, nil
}

type chunkStream struct {
	s *ssestream.Stream[openai.ChatCompletionChunk]
}

func (c *chunkStream) Next() bool { return c.s.Next() }

func (c *chunkStream) Text() string {
	chunk := c.s.Current()
	if len(chunk.Choices) == 0 {
		return ""
	}
	return chunk.Choices[0].Delta.Content
}

func (c *chunkStream) Err() error   { return c.s.Err() }
func (c *chunkStream) Close() error { return c.s.Close() }

func (o *OpenAI) Stream(ctx context.Context, req models.CompletionRequest) (Stream, error) {
	params, opts := o.params(req)
	s := o.Client.Chat.Completions.NewStreaming(ctx, params, opts...)
	if err := s.Err(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return &chunkStream{s: s}, nil
}

func fileState(status openai.FileObjectStatus) FileState {
	switch string(status) {
	case "processed":
		return FileActive
	case "error":
		return FileFailed
	default:
		return FileProcessing
	}
}

func (o *OpenAI) Upload(ctx context.Context, path, mime string) (RemoteFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return RemoteFile{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	obj, err := o.Client.Files.New(ctx, openai.FileNewParams{
		File:    f,
		Purpose: openai.FilePurposeUserData,
	})
	if err != nil {
		return RemoteFile{}, fmt.Errorf("upload %s: %w", path, err)
	}
	return RemoteFile{Name: obj.ID, URI: obj.ID, MIME: mime, State: fileState(obj.Status)}, nil
}

func (o *OpenAI) GetFile(ctx context.Context, name string) (RemoteFile, error) {
	obj, err := o.Client.Files.Get(ctx, name)
	if err != nil {
		return RemoteFile{}, fmt.Errorf("get file %s: %w", name, err)
	}
	return RemoteFile{Name: obj.ID, URI: obj.ID, State: fileState(obj.Status)}, nil
}

func (o *OpenAI) DeleteFile(ctx context.Context, name string) error {
	_, err := o.Client.Files.Delete(ctx, name)
	return err
}
