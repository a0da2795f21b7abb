package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/mattn/go-runewidth"

	"sightline/internal/models"
	"sightline/internal/session"
	"sightline/internal/styles"
)

// SystemClipboard writes to the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}

type command struct {
	Name string
	Args []string
}

// parseCommand recognises "/name arg ..." input. Double quotes group an
// argument that contains spaces.
func parseCommand(input string) (command, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") || len(input) < 2 {
		return command{}, false
	}
	fields := splitArgs(input[1:])
	if len(fields) == 0 || strings.ContainsRune(fields[0], '/') {
		return command{}, false
	}
	return command{Name: strings.ToLower(fields[0]), Args: fields[1:]}, true
}

func splitArgs(s string) []string {
	var (
		out     []string
		cur     strings.Builder
		quoted  bool
		pending bool
	)
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			pending = true
		case !quoted && (r == ' ' || r == '\t'):
			if pending {
				out = append(out, cur.String())
				cur.Reset()
				pending = false
			}
		default:
			cur.WriteRune(r)
			pending = true
		}
	}
	if pending {
		out = append(out, cur.String())
	}
	return out
}

// altIndex maps alt+1 .. alt+9, alt+0 to message positions 0 .. 9 counted
// from the newest.
func altIndex(key string) (int, bool) {
	d, ok := strings.CutPrefix(key, "alt+")
	if !ok || len(d) != 1 || d[0] < '0' || d[0] > '9' {
		return 0, false
	}
	if d[0] == '0' {
		return 9, true
	}
	return int(d[0]-'1'), true
}

func captureNotice(kind models.CaptureKind, n int) string {
	switch kind {
	case models.KindScreenshot:
		return "Screenshot attached"
	case models.KindObject:
		return "Region attached"
	case models.KindVideo:
		return "Recording attached"
	default:
		return english.Plural(n, "file", "files") + " attached"
	}
}

func WrappedLineCount(value string, width int) int {
	if width <= 0 {
		return 1
	}
	lines := strings.Split(value, "\n")
	if len(lines) == 0 {
		return 1
	}
	count := 0
	for _, line := range lines {
		w := runewidth.StringWidth(line)
		if w == 0 {
			count++
			continue
		}
		count += (w-1)/width + 1
	}
	return count
}

// PromptPreview flattens whitespace so a prompt fits on one line.
func PromptPreview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	const maxRunes = 500
	r := []rune(s)
	if len(r) > maxRunes {
		return string(r[:maxRunes])
	}
	return s
}

// TruncateCells cuts s to at most width terminal cells, ending with an
// ellipsis when something was removed.
func TruncateCells(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

func RelativeTime(t time.Time) string {
	if time.Since(t) < time.Minute {
		return "just now"
	}
	return humanize.Time(t)
}

func modelGroup(mdl models.AIModel) string {
	if mdl.Preview {
		return "Preview"
	}
	return "Stable"
}

func (m *Model) SyncModelViewportScroll() {
	const itemHeight = 1
	const headerHeight = 1

	var currentY int
	lastGroup := ""
	for i, mdl := range models.AvailableModels {
		// A group's first item scrolls its header into view too.
		itemStartY := currentY
		if g := modelGroup(mdl); g != lastGroup {
			if lastGroup != "" {
				currentY++
			}
			itemStartY = currentY
			currentY += headerHeight
			lastGroup = g
		}

		if i == m.SelectedModelIndex {
			if currentY+itemHeight > m.ModelViewport.YOffset+m.ModelViewport.Height {
				m.ModelViewport.SetYOffset(currentY + itemHeight - m.ModelViewport.Height)
			}
			if itemStartY < m.ModelViewport.YOffset {
				m.ModelViewport.SetYOffset(itemStartY)
			}
			return
		}
		currentY += itemHeight
	}
}

func attachmentLines(b models.MessageBlock) []string {
	var lines []string
	for _, p := range b.Images {
		lines = append(lines, "🖼  "+filepath.Base(p))
	}
	for _, v := range b.Videos {
		lines = append(lines, "🎞  "+filepath.Base(v.Path))
	}
	return lines
}

func FormatUserMessage(b models.MessageBlock, width int, isFirst bool) string {
	label := styles.UserLabelStyle.Render(strings.ToUpper(session.UserLabel))
	body := b.Text
	if att := attachmentLines(b); len(att) > 0 {
		body = strings.TrimSpace(body + "\n" + strings.Join(att, "\n"))
	}
	msg := styles.UserMsgStyle.Width(width - 4).Render(body)
	if isFirst {
		return fmt.Sprintf("\n%s\n%s", label, msg)
	}
	return fmt.Sprintf("%s\n%s", label, msg)
}

func FormatAIMessage(content string) string {
	label := styles.AiLabelStyle.Render(strings.ToUpper(session.AssistantLabel))
	msg := styles.AiMsgStyle.Render(content)
	return fmt.Sprintf("%s\n%s", label, msg)
}

// fileChip names a pending attachment, with its size when it can be read.
func fileChip(icon, path string) string {
	name := filepath.Base(path)
	if info, err := os.Stat(path); err == nil {
		name += " " + humanize.Bytes(uint64(info.Size()))
	}
	return styles.ChipStyle.Render(icon + " " + name)
}

func formatElapsed(d time.Duration) string {
	d = d.Truncate(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
