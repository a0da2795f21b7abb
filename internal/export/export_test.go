package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"sightline/internal/models"
)

func testTranscript() *Transcript {
	return NewTranscript(
		models.ChatListItem{ID: 7, ModelID: "gemini-2.5-flash", UpdatedAtUnix: 1_700_000_000},
		[]models.MessageBlock{
			{Role: models.RoleUser, Text: "what is on screen?", Images: []string{"/d/screenshot_1.png"}},
			{Role: models.RoleAssistant, Text: "A **terminal** window."},
			{Role: models.RoleUser, Text: "and the clip", Videos: []models.VideoRef{{Path: "/d/capture_1.mp4", Handle: "files/x"}}},
		},
	)
}

func TestNewExporter(t *testing.T) {
	for format, ext := range map[string]string{"yaml": "yaml", "yml": "yaml", "json": "json", "md": "md", "markdown": "md"} {
		e, err := NewExporter(format)
		if err != nil || e.Extension() != ext {
			t.Errorf("NewExporter(%q) = %v, %v", format, e, err)
		}
	}
	if _, err := NewExporter("pdf"); err == nil {
		t.Error("pdf accepted")
	}
}

func TestStructuredFormats(t *testing.T) {
	tests := []struct {
		name   string
		exp    Exporter
		decode func([]byte, any) error
	}{
		{"yaml", &YAMLExporter{}, yaml.Unmarshal},
		{"json", &JSONExporter{}, json.Unmarshal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.exp.Export(testTranscript(), &buf); err != nil {
				t.Fatal(err)
			}
			var got Transcript
			if err := tt.decode(buf.Bytes(), &got); err != nil {
				t.Fatalf("decode: %v\n%s", err, buf.String())
			}
			if got.ID != 7 || len(got.Messages) != 3 || got.Messages[1].Role != "assistant" {
				t.Errorf("decoded %+v", got)
			}
			if v := got.Messages[2].Videos; len(v) != 1 || v[0].Handle != "files/x" {
				t.Errorf("videos = %+v", v)
			}
		})
	}
}

func TestMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownExporter{}).Export(testTranscript(), &buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"# Chat 7",
		"**Model:** gemini-2.5-flash",
		"## You",
		"## Gemini",
		"- image: `/d/screenshot_1.png`",
		"- video: `/d/capture_1.mp4`",
		"A **terminal** window.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown lacks %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "---") != 2 {
		t.Errorf("separators = %d", strings.Count(out, "---"))
	}
}
