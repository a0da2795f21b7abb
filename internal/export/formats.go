package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"sightline/internal/models"
	"sightline/internal/session"
)

type YAMLExporter struct{}

func (e *YAMLExporter) Export(t *Transcript, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()
	return enc.Encode(t)
}

func (e *YAMLExporter) Extension() string { return "yaml" }

type JSONExporter struct{}

func (e *JSONExporter) Export(t *Transcript, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

func (e *JSONExporter) Extension() string { return "json" }

// MarkdownExporter writes a readable transcript. Message text is already
// Markdown and is copied as is.
type MarkdownExporter struct{}

func (e *MarkdownExporter) Export(t *Transcript, w io.Writer) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Chat %d\n\n", t.ID)
	fmt.Fprintf(&sb, "**Model:** %s  \n", t.Model)
	fmt.Fprintf(&sb, "**Updated:** %s  \n", t.UpdatedAt.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&sb, "**Messages:** %d\n\n", len(t.Messages))

	for i, m := range t.Messages {
		role, err := models.ParseRole(m.Role)
		if err != nil {
			return err
		}
		fmt.Fprintf(&sb, "## %s\n\n", session.Label(role))
		for _, img := range m.Images {
			fmt.Fprintf(&sb, "- image: `%s`\n", img)
		}
		for _, v := range m.Videos {
			fmt.Fprintf(&sb, "- video: `%s`\n", v.Path)
		}
		if len(m.Images)+len(m.Videos) > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(strings.TrimSpace(m.Text))
		sb.WriteString("\n\n")
		if i < len(t.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func (e *MarkdownExporter) Extension() string { return "md" }
