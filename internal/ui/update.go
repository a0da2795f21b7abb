package ui

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"sightline/internal/capture"
	"sightline/internal/db"
	"sightline/internal/models"
	"sightline/internal/session"
	"sightline/internal/styles"
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case spinner.TickMsg:
		m.Spinner, spCmd = m.Spinner.Update(msg)
		if m.session().Busy() {
			m.UpdateViewport()
		}
		return m, spCmd

	case mailboxMsg:
		m.dispatch(msg.msg)
		return m, m.waitForActivity()

	case captureMsg:
		m.applyCapture(msg)
		return m, nil

	case recordTickMsg:
		if m.Recorder.Recording() {
			return m, recordTick()
		}
		return m, nil

	case ErrMsg:
		m.notify(fmt.Sprintf("Error: %v", msg))
		return m, nil

	case tea.KeyMsg:
		if m.HistoryOpen {
			return m.updateHistory(msg)
		}
		if m.ModelSelectorOpen {
			return m.updateModelSelector(msg)
		}
		if m.ShortcutsOpen {
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "esc", "enter", "?", "ctrl+s":
				m.ShortcutsOpen = false
			}
			return m, nil
		}

		if isNewlineShortcut(msg) {
			m.TextInput.InsertString("\n")
			m.updateInputLayout()
			return m, nil
		}

		if i, ok := altIndex(msg.String()); ok {
			m.session().Recall(i, m.KeyRepeat.Press(i))
			return m, nil
		}

		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit

		case tea.KeyEsc, tea.KeyCtrlX:
			c := m.session()
			if !c.Cancel() {
				m.notify("Nothing to cancel")
			}
			if p := c.TakeUnsent(); p != "" && strings.TrimSpace(m.TextInput.Value()) == "" {
				m.TextInput.SetValue(p)
				m.TextInput.CursorEnd()
				m.updateInputLayout()
			}
			m.UpdateViewport()
			return m, nil

		case tea.KeyCtrlN:
			m.ResetSession()
			return m, nil

		case tea.KeyCtrlL:
			m.session().Clear()
			m.UpdateViewport()
			m.notify("Conversation cleared")
			return m, nil

		case tea.KeyCtrlY:
			if err := m.session().CopyLastResponse(); err != nil {
				m.notify(err.Error())
			}
			return m, nil

		case tea.KeyCtrlE:
			return m, m.screenshotCmd()

		case tea.KeyCtrlR:
			return m, m.toggleRecording()

		case tea.KeyCtrlB:
			m.openModal(modalModels)
			m.UpdateModelSelectorContent()
			m.SyncModelViewportScroll()
			return m, nil

		case tea.KeyCtrlS:
			m.openModal(modalShortcuts)
			return m, nil

		case tea.KeyCtrlH:
			m.openModal(modalHistory)
			m.HistoryPage = 0
			m.RefreshHistoryFromDB()
			return m, nil

		case tea.KeyEnter:
			input := strings.TrimSpace(m.TextInput.Value())
			if cmd, ok := parseCommand(input); ok {
				m.TextInput.Reset()
				m.updateInputLayout()
				return m, m.runCommand(cmd)
			}
			return m, m.submit(input)
		}

	case tea.WindowSizeMsg:
		m.WindowWidth = msg.Width
		m.WindowHeight = msg.Height

		ModalWidth = msg.Width - 10
		if ModalWidth > 60 {
			ModalWidth = 60
		}
		if ModalWidth < 30 {
			ModalWidth = 30
		}
		styles.ContentWidth = ModalWidth - 6

		m.ModelViewport.Width = styles.ContentWidth
		m.ModelViewport.Height = msg.Height - 15
		if m.ModelViewport.Height > 20 {
			m.ModelViewport.Height = 20
		}
		if m.ModelViewport.Height < 5 {
			m.ModelViewport.Height = 5
		}

		chatWidth := msg.Width - 2
		if chatWidth > MaxChatWidth {
			chatWidth = MaxChatWidth
		}
		m.Viewport.Width = chatWidth - 2

		m.updateInputLayout()
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStylePath(styles.GlamourStyle()),
			glamour.WithWordWrap(chatWidth-6),
		)
		if err != nil {
			m.Logger.Warn("markdown renderer", "err", err)
		} else {
			m.Renderer = renderer
		}
		m.UpdateViewport()
		return m, nil
	}

	m.TextInput, tiCmd = m.TextInput.Update(msg)
	m.updateInputLayout()

	// Terminal background and cursor position replies can leak into the input.
	val := m.TextInput.Value()
	if strings.Contains(val, "]11;rgb:") || strings.Contains(val, "1;rgb:") || strings.Contains(val, "[1;1R") {
		m.TextInput.Reset()
	}

	m.Viewport, vpCmd = m.Viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd)
}

func (m *Model) updateHistory(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc", "ctrl+h":
		m.HistoryOpen = false
		m.HistoryErr = nil
	case "up", "k":
		m.HistorySelectedIdx = cycle(m.HistorySelectedIdx-1, len(m.HistoryChats))
	case "down", "j":
		m.HistorySelectedIdx = cycle(m.HistorySelectedIdx+1, len(m.HistoryChats))
	case "enter":
		if len(m.HistoryChats) == 0 {
			return m, nil
		}
		chat := m.HistoryChats[m.HistorySelectedIdx]
		if err := m.LoadChatFromDB(chat.ID, chat.ModelID); err != nil {
			m.HistoryErr = err
			return m, nil
		}
		m.HistoryOpen = false
		m.HistoryErr = nil
	case "d", "delete":
		if len(m.HistoryChats) == 0 {
			return m, nil
		}
		chat := m.HistoryChats[m.HistorySelectedIdx]
		if chat.ID == m.journalChatID() {
			m.HistoryErr = fmt.Errorf("chat %d is open", chat.ID)
			return m, nil
		}
		if err := db.DeleteChat(m.DB, chat.ID); err != nil {
			m.HistoryErr = err
			return m, nil
		}
		m.RefreshHistoryFromDB()
	case "left", "h":
		if m.HistoryPage > 0 {
			m.HistoryPage--
			m.RefreshHistoryFromDB()
		}
	case "right", "l":
		totalPages := (m.HistoryChatCount + HistoryPageSize - 1) / HistoryPageSize
		if m.HistoryPage < totalPages-1 {
			m.HistoryPage++
			m.RefreshHistoryFromDB()
		}
	}
	return m, nil
}

func (m *Model) updateModelSelector(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc", "ctrl+b":
		m.ModelSelectorOpen = false
	case "up", "k", "down", "j":
		step := 1
		if k := msg.String(); k == "up" || k == "k" {
			step = -1
		}
		m.SelectedModelIndex = cycle(m.SelectedModelIndex+step, len(models.AvailableModels))
		m.SyncModelViewportScroll()
		m.UpdateModelSelectorContent()
	case "enter":
		m.setModel(models.AvailableModels[m.SelectedModelIndex])
		m.ModelSelectorOpen = false
	}
	return m, nil
}

func (m *Model) setModel(mdl models.AIModel) {
	m.CurrentModel = mdl
	m.session().SetModel(mdl.ID)
	m.notify("Model: " + mdl.Name)
}

type modal int

const (
	modalNone modal = iota
	modalModels
	modalShortcuts
	modalHistory
)

// openModal shows one modal and hides the others.
func (m *Model) openModal(which modal) {
	m.ModelSelectorOpen = which == modalModels
	m.ShortcutsOpen = which == modalShortcuts
	m.HistoryOpen = which == modalHistory
}

// cycle wraps i into [0, n). It returns 0 for an empty list.
func cycle(i, n int) int {
	if n == 0 {
		return 0
	}
	return (i%n + n) % n
}

func isNewlineShortcut(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "shift+enter", "shift+return", "ctrl+j", "ctrl+enter", "alt+enter":
		return true
	default:
		return false
	}
}

// waitForActivity blocks on the mailbox and hands the next message to
// Update. Update re-arms it after every delivery.
func (m *Model) waitForActivity() tea.Cmd {
	mb := m.Mailbox
	return func() tea.Msg {
		msg, ok := mb.Receive(context.Background())
		if !ok {
			return nil
		}
		return mailboxMsg{msg: msg}
	}
}

func (m *Model) dispatch(msg any) {
	switch v := msg.(type) {
	case statusMsg:
		m.Status = string(v)
		return
	case captureMsg:
		m.applyCapture(v)
		return
	}
	if !m.session().Handle(msg) {
		m.Logger.Debug("unhandled mailbox message", "type", fmt.Sprintf("%T", msg))
	}
	m.UpdateViewport()
}

// notify reports through the feedback hooks so the notice is also spoken.
func (m *Model) notify(s string) {
	m.Status = s
	m.Feedback.Notify(s)
}

func (m *Model) submit(input string) tea.Cmd {
	err := m.session().Submit(input)
	switch {
	case errors.Is(err, session.ErrBusy):
		m.notify("Still working, press Ctrl+X to cancel")
		return nil
	case err != nil:
		m.notify(fmt.Sprintf("Error: %v", err))
		return nil
	}
	m.TextInput.Reset()
	m.updateInputLayout()
	m.UpdateViewport()
	return m.Spinner.Tick
}

func (m *Model) runCommand(c command) tea.Cmd {
	switch c.Name {
	case "clear", "reset":
		m.session().Clear()
		m.UpdateViewport()
		m.notify("Conversation cleared")
	case "new":
		m.ResetSession()
	case "screenshot":
		return m.screenshotCmd()
	case "record":
		return m.toggleRecording()
	case "region":
		rect, err := parseRegion(c.Args)
		if err != nil {
			m.notify(err.Error())
			return nil
		}
		return m.regionCmd(rect)
	case "image", "video":
		if len(c.Args) == 0 {
			m.notify("Usage: /" + c.Name + " <path>")
			return nil
		}
		for _, p := range c.Args {
			if _, err := os.Stat(p); err != nil {
				m.notify(fmt.Sprintf("Cannot attach %s: %v", p, err))
				return nil
			}
		}
		kind := models.KindNone
		if c.Name == "video" {
			kind = models.KindVideo
		}
		m.applyCapture(captureMsg{Kind: kind, Paths: c.Args})
	case "model":
		if len(c.Args) != 1 {
			m.notify("Usage: /model <id>")
			return nil
		}
		m.setModel(modelFor(c.Args[0]))
	default:
		m.notify("Unknown command /" + c.Name)
	}
	return nil
}

func parseRegion(args []string) (image.Rectangle, error) {
	if len(args) != 4 {
		return image.Rectangle{}, errors.New("region: want x y width height")
	}
	var v [4]int
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("region: %q is not a number", a)
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return image.Rectangle{}, errors.New("region: width and height must be positive")
	}
	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]), nil
}

func (m *Model) screenshotCmd() tea.Cmd {
	dir, display, scale := m.Config.DataDir, m.Config.Display, m.Config.ImageScale
	m.notify("Taking screenshot")
	return func() tea.Msg {
		path, err := capture.Screenshot(dir, display, scale)
		return captureMsg{Kind: models.KindScreenshot, Paths: []string{path}, Err: err}
	}
}

func (m *Model) regionCmd(rect image.Rectangle) tea.Cmd {
	dir, scale := m.Config.DataDir, m.Config.ImageScale
	return func() tea.Msg {
		path, err := capture.Region(dir, rect, scale)
		return captureMsg{Kind: models.KindObject, Paths: []string{path}, Err: err}
	}
}

func (m *Model) toggleRecording() tea.Cmd {
	if m.Stopping {
		m.notify("Still saving the last recording")
		return nil
	}
	if !m.Recorder.Recording() {
		if err := m.Recorder.Start(); err != nil {
			m.notify(fmt.Sprintf("Cannot record: %v", err))
			return nil
		}
		m.notify("Recording started")
		return recordTick()
	}

	m.Stopping = true
	m.notify("Recording stopped, saving")
	rec := m.Recorder
	return func() tea.Msg {
		path, err := rec.Stop()
		if errors.Is(err, capture.ErrNotRecording) {
			// Auto-stop won the race and delivers through the mailbox.
			return nil
		}
		return captureMsg{Kind: models.KindVideo, Paths: []string{path}, Err: err}
	}
}

func recordTick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return recordTickMsg{} })
}

func (m *Model) applyCapture(c captureMsg) {
	if c.Kind == models.KindVideo {
		m.Stopping = false
	}
	if c.Err != nil {
		m.notify(fmt.Sprintf("Capture failed: %v", c.Err))
		return
	}
	prefill := m.session().AddCapture(c.Kind, c.Paths, m.TextInput.Value())
	if prefill != "" {
		m.TextInput.SetValue(prefill)
		m.TextInput.CursorEnd()
		m.updateInputLayout()
	}
	m.notify(captureNotice(c.Kind, len(c.Paths)))
}

func (m *Model) updateInputLayout() {
	if m.WindowWidth == 0 || m.WindowHeight == 0 {
		return
	}

	inputWidth := m.WindowWidth - 6
	if inputWidth < 20 {
		inputWidth = 20
	}
	contentWidth := inputWidth - 2
	if contentWidth < 1 {
		contentWidth = 1
	}

	maxInputHeight := 6
	lineCount := WrappedLineCount(m.TextInput.Value(), contentWidth)
	if lineCount < 1 {
		lineCount = 1
	}
	if lineCount > maxInputHeight {
		lineCount = maxInputHeight
	}

	m.TextInput.MaxHeight = maxInputHeight
	m.TextInput.SetWidth(inputWidth)
	m.TextInput.SetHeight(lineCount)

	inputBoxHeight := m.TextInput.Height() + 2
	reserved := inputBoxHeight + 6
	viewportHeight := m.WindowHeight - reserved
	if viewportHeight < 5 {
		viewportHeight = 5
	}
	m.Viewport.Height = viewportHeight
}

// ResetSession closes the current session and starts a fresh chat.
func (m *Model) ResetSession() {
	m.Sessions.Clear()
	if m.Journal != nil {
		m.Journal.Reset()
	}
	m.openModal(modalNone)
	m.HistoryErr = nil
	m.Status = ""
	m.TextInput.Reset()
	m.updateInputLayout()
	m.UpdateViewport()
	m.Viewport.GotoTop()
}

func (m *Model) journalChatID() int64 {
	if m.Journal == nil {
		return 0
	}
	return m.Journal.ChatID()
}

func (m *Model) RefreshHistoryFromDB() {
	m.HistoryErr = nil
	m.HistoryChats = nil
	m.HistorySelectedIdx = 0

	if m.DBErr != nil {
		m.HistoryErr = m.DBErr
		return
	}
	if m.DB == nil {
		m.HistoryErr = fmt.Errorf("history database not initialized")
		return
	}

	offset := m.HistoryPage * HistoryPageSize
	count, chats, err := db.GetRecentChats(m.DB, HistoryPageSize, offset)
	if err != nil {
		m.HistoryErr = err
		return
	}
	m.HistoryChatCount = count
	m.HistoryChats = chats
}

// LoadChatFromDB replaces the conversation with a saved chat and keeps
// appending to it.
func (m *Model) LoadChatFromDB(chatID int64, modelID string) error {
	if m.DB == nil {
		return fmt.Errorf("history database not initialized")
	}
	c := m.session()
	if c.Busy() {
		return fmt.Errorf("a request is in flight, cancel it first")
	}
	blocks, err := db.GetChatBlocks(m.DB, chatID)
	if err != nil {
		return err
	}

	c.Clear()
	c.Load(blocks)
	m.Journal.Resume(chatID)
	if modelID != "" {
		m.CurrentModel = modelFor(modelID)
		c.SetModel(modelID)
		_, m.SelectedModelIndex, _ = models.FindModelByID(modelID)
	}
	m.UpdateViewport()
	m.Viewport.GotoBottom()
	m.notify(fmt.Sprintf("Loaded chat with %d messages", len(blocks)))
	return nil
}
