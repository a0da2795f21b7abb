// Package export writes saved chats as YAML, JSON or Markdown.
package export

import (
	"fmt"
	"io"
	"time"

	"sightline/internal/models"
)

type Message struct {
	Role   string            `json:"role" yaml:"role"`
	Text   string            `json:"text" yaml:"text"`
	Images []string          `json:"images,omitempty" yaml:"images,omitempty"`
	Videos []models.VideoRef `json:"videos,omitempty" yaml:"videos,omitempty"`
}

// Transcript is the exported form of one chat.
type Transcript struct {
	ID        int64     `json:"id" yaml:"id"`
	Model     string    `json:"model" yaml:"model"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
	Messages  []Message `json:"messages" yaml:"messages"`
}

func NewTranscript(chat models.ChatListItem, blocks []models.MessageBlock) *Transcript {
	t := &Transcript{
		ID:        chat.ID,
		Model:     chat.ModelID,
		UpdatedAt: time.Unix(chat.UpdatedAtUnix, 0).UTC(),
		Messages:  make([]Message, 0, len(blocks)),
	}
	for _, b := range blocks {
		t.Messages = append(t.Messages, Message{
			Role:   b.Role.String(),
			Text:   b.Text,
			Images: b.Images,
			Videos: b.Videos,
		})
	}
	return t
}

type Exporter interface {
	Export(t *Transcript, w io.Writer) error
	Extension() string
}

func NewExporter(format string) (Exporter, error) {
	switch format {
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: yaml, json, markdown)", format)
	}
}
