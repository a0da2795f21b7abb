package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"sightline/internal/models"
	"sightline/internal/styles"
)

func (m *Model) UpdateModelSelectorContent() {
	var items []string
	lastGroup := ""
	for i, mdl := range models.AvailableModels {
		if g := modelGroup(mdl); g != lastGroup {
			if lastGroup != "" {
				items = append(items, "")
			}
			header := styles.ModalHeaderStyle.
				Foreground(styles.GroupColors[mdl.Preview]).
				Render(g)
			items = append(items, header)
			lastGroup = g
		}

		isCurrent := m.CurrentModel.ID == mdl.ID
		displayName := "  " + mdl.Name
		if isCurrent {
			displayName = "● " + mdl.Name
		}

		var styledItem string
		if i == m.SelectedModelIndex {
			styledItem = styles.ModalSelectedStyle.Width(styles.ContentWidth).Render(displayName)
		} else {
			style := styles.ModalItemStyle.Width(styles.ContentWidth)
			if isCurrent {
				style = style.Foreground(styles.FgSecondary)
			} else {
				style = style.Inherit(styles.BodyStyle)
			}
			styledItem = style.Render(displayName)
		}
		items = append(items, styledItem)
	}

	m.ModelViewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, items...))
}

func (m *Model) RenderModelSelector() string {
	title := styles.ModalTitleStyle.Render("Select Model")
	content := lipgloss.JoinVertical(lipgloss.Left, title, m.ModelViewport.View())

	hint := lipgloss.NewStyle().
		Foreground(styles.HintColor).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render("↑/↓: navigate • Enter: select • Esc: close")

	return lipgloss.JoinVertical(lipgloss.Left, content, hint)
}

func (m *Model) RenderHistorySelector() string {
	totalPages := (m.HistoryChatCount + HistoryPageSize - 1) / HistoryPageSize
	if totalPages < 1 {
		totalPages = 1
	}
	title := styles.ModalTitleStyle.Render(fmt.Sprintf("Recent Chats (%d) - Page %d/%d", m.HistoryChatCount, m.HistoryPage+1, totalPages))

	var body string
	if m.HistoryErr != nil {
		body = lipgloss.NewStyle().Width(styles.ContentWidth).Render(styles.ErrorStyle.Render(fmt.Sprintf("Error: %v", m.HistoryErr)))
	} else if len(m.HistoryChats) == 0 {
		body = styles.ModalItemStyle.Render(lipgloss.NewStyle().Foreground(styles.HintColor).Render("No chats yet"))
	} else {
		items := make([]string, 0, len(m.HistoryChats))
		for i, chat := range m.HistoryChats {
			isSelected := i == m.HistorySelectedIdx
			cursor := "  "
			if isSelected {
				cursor = "> "
			}
			timeStr := RelativeTime(time.Unix(chat.UpdatedAtUnix, 0))
			prompt := PromptPreview(chat.LastUserPrompt)
			if prompt == "" {
				prompt = "(attachments only)"
			}
			available := styles.ContentWidth - 2 - len(cursor) - 1 - lipgloss.Width(timeStr)
			prompt = TruncateCells(prompt, available)

			line := fmt.Sprintf("%s%s %s", cursor, prompt, lipgloss.NewStyle().Foreground(styles.HintColor).Render(timeStr))
			if isSelected {
				items = append(items, styles.ModalSelectedStyle.Render(line))
			} else {
				items = append(items, styles.ModalItemStyle.Render(line))
			}
		}
		body = lipgloss.JoinVertical(lipgloss.Left, items...)
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, body)
	hint := lipgloss.NewStyle().
		Foreground(styles.HintColor).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render("↑/↓: navigate • ←/→: page • Enter: open • d: delete • Esc: close")

	return lipgloss.JoinVertical(lipgloss.Left, content, hint)
}

var shortcuts = []struct {
	key  string
	desc string
}{
	{"Enter", "Send message"},
	{"Alt+1..0", "Read message (twice: copy)"},
	{"Ctrl+E", "Screenshot"},
	{"Ctrl+R", "Start/stop recording"},
	{"Ctrl+X", "Cancel request"},
	{"Ctrl+Y", "Copy last response"},
	{"Ctrl+L", "Clear conversation"},
	{"Ctrl+N", "New chat"},
	{"Ctrl+B", "Select model"},
	{"Ctrl+H", "Chat history"},
	{"Ctrl+S", "Shortcuts (this menu)"},
	{"Ctrl+C", "Quit"},
	{"/region", "x y w h: capture a region"},
	{"/image", "path: attach an image"},
	{"/video", "path: attach a video"},
}

func (m *Model) RenderShortcutsModal() string {
	title := styles.ModalTitleStyle.Render("Keyboard Shortcuts")

	items := make([]string, 0, len(shortcuts))
	for _, s := range shortcuts {
		line := fmt.Sprintf("%s %s", styles.KeyStyle.Render(s.key), styles.BodyStyle.Render(s.desc))
		items = append(items, styles.ModalItemStyle.Render(line))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, items...))
	hint := lipgloss.NewStyle().
		Foreground(styles.HintColor).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render("Esc/Enter: close")

	return lipgloss.JoinVertical(lipgloss.Left, content, hint)
}

func (m *Model) RenderBottomBar() string {
	var badge string
	switch {
	case m.Recorder.Recording():
		badge = styles.RecordingStyle.Render("● REC " + formatElapsed(m.Recorder.Elapsed()))
	case m.Stopping:
		badge = styles.RecordingStyle.Render("SAVING")
	default:
		badge = styles.UserLabelStyle.MarginRight(0).Render("CHAT")
	}

	model := lipgloss.NewStyle().
		Foreground(styles.FgPrimary).
		Render(TruncateCells(m.CurrentModel.Name, 25))

	conv := "single turn"
	if m.session().Options().ConversationMode {
		conv = fmt.Sprintf("%d messages", m.session().Len())
	}
	right := lipgloss.JoinHorizontal(lipgloss.Center,
		lipgloss.NewStyle().Foreground(styles.FgMuted).Render(conv),
		"  ",
		lipgloss.NewStyle().Foreground(styles.FgMuted).Render("Help: ^S"),
	)

	left := lipgloss.JoinHorizontal(lipgloss.Center, badge, "  ", model)
	statusWidth := m.WindowWidth - lipgloss.Width(left) - lipgloss.Width(right) - 6
	if m.Status != "" && statusWidth > 0 {
		left = lipgloss.JoinHorizontal(lipgloss.Center, left, "  ", styles.StatusStyle.Render(TruncateCells(m.Status, statusWidth)))
	}

	available := m.WindowWidth - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if available < 0 {
		available = 0
	}
	bar := lipgloss.JoinHorizontal(lipgloss.Center, left, strings.Repeat(" ", available), right)

	return lipgloss.NewStyle().
		Width(m.WindowWidth).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.BorderColor).
		Padding(0, 1).
		Render(bar)
}

func (m *Model) RenderPendingAttachments() string {
	p := m.session().Pending()
	if p.Empty() {
		return ""
	}

	var chips []string
	for _, f := range p.Images {
		chips = append(chips, fileChip("🖼", f))
	}
	for _, f := range p.Videos {
		chips = append(chips, fileChip("🎞", f))
	}
	for _, v := range p.Uploaded {
		chips = append(chips, fileChip("☁", v.Path))
	}
	label := lipgloss.NewStyle().Foreground(styles.FgMuted).Render("Attached: ")
	return label + strings.Join(chips, " ")
}

func GetWelcomeScreen(width, height int) string {
	title := styles.WelcomeTitleStyle.Render("S I G H T L I N E")
	subtitle := styles.WelcomeSubtitleStyle.Render("Ask about your screen. Ctrl+E screenshot, Ctrl+R record, Ctrl+S help.")
	content := lipgloss.JoinVertical(lipgloss.Center, title, "", subtitle)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

func (m *Model) render(md string) string {
	if m.Renderer == nil {
		return md
	}
	out, err := m.Renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}

func (m *Model) UpdateViewport() {
	c := m.session()
	blocks := c.Blocks()
	busy := c.Busy()
	if len(blocks) == 0 && !busy {
		m.Viewport.SetContent(GetWelcomeScreen(m.Viewport.Width, m.Viewport.Height))
		return
	}

	parts := make([]string, 0, len(blocks)+1)
	for i, b := range blocks {
		if b.Role == models.RoleUser {
			parts = append(parts, FormatUserMessage(b, m.Viewport.Width, i == 0))
		} else {
			parts = append(parts, FormatAIMessage(m.render(b.Text)))
		}
	}

	if busy {
		status := " Waiting for a reply..."
		switch {
		case c.Uploading():
			status = " Uploading video..."
		case len(blocks) > 0 && blocks[len(blocks)-1].Role == models.RoleAssistant:
			status = " Receiving..."
		}
		parts = append(parts, m.Spinner.View()+status)
	}

	m.Viewport.SetContent(strings.Join(parts, "\n\n"))
	m.Viewport.GotoBottom()
}

func (m *Model) View() string {
	inputBox := styles.InputBoxStyle.Width(m.WindowWidth - 4).Render(m.TextInput.View())

	inputParts := []string{}
	if pending := m.RenderPendingAttachments(); pending != "" {
		inputParts = append(inputParts, pending)
	}
	inputParts = append(inputParts, inputBox)

	chatContent := lipgloss.JoinVertical(lipgloss.Center,
		styles.TitleStyle.Render("SIGHTLINE"),
		"",
		m.Viewport.View(),
		"",
		lipgloss.JoinVertical(lipgloss.Left, inputParts...),
	)
	chatArea := lipgloss.PlaceHorizontal(m.WindowWidth, lipgloss.Center, chatContent)
	content := lipgloss.JoinVertical(lipgloss.Left, chatArea, m.RenderBottomBar())

	var modal string
	switch {
	case m.HistoryOpen:
		modal = m.RenderHistorySelector()
	case m.ModelSelectorOpen:
		modal = m.RenderModelSelector()
	case m.ShortcutsOpen:
		modal = m.RenderShortcutsModal()
	default:
		return content
	}
	modal = styles.ModalStyle.Width(ModalWidth).Render(modal)
	return lipgloss.Place(m.WindowWidth, m.WindowHeight, lipgloss.Center, lipgloss.Center, modal)
}
