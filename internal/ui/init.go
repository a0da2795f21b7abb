package ui

import (
	"database/sql"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"sightline/internal/backend"
	"sightline/internal/capture"
	"sightline/internal/config"
	"sightline/internal/db"
	"sightline/internal/feedback"
	"sightline/internal/mdfilter"
	"sightline/internal/models"
	"sightline/internal/session"
	"sightline/internal/styles"
)

// Deps is what the UI needs from main. DB may be nil when DBErr is set;
// chats are then kept in memory only.
type Deps struct {
	Config   *config.Config
	Backend  backend.Backend
	DB       *sql.DB
	DBErr    error
	Feedback *feedback.Hooks
	Logger   *log.Logger
}

func InitialModel(deps Deps) *Model {
	styles.InitTheme()

	ti := textarea.New()
	ti.Placeholder = "Ask about the screen, or type / for commands..."
	ti.Prompt = "❯ "
	ti.ShowLineNumbers = false
	ti.CharLimit = 0
	ti.MaxHeight = 6
	ti.SetHeight(2)
	ti.SetWidth(80)
	ti.FocusedStyle.Prompt = lipgloss.NewStyle().Foreground(styles.FgPrimary).Bold(true)
	ti.BlurredStyle.Prompt = lipgloss.NewStyle().Foreground(styles.FgPrimary).Bold(true)
	ti.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(styles.FgMuted)
	ti.BlurredStyle.Placeholder = lipgloss.NewStyle().Foreground(styles.FgMuted)
	ti.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ti.BlurredStyle.CursorLine = lipgloss.NewStyle()
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.FgPrimary)

	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	mb := session.NewMailbox()

	m := &Model{
		TextInput:     ti,
		Viewport:      viewport.New(60, 15),
		ModelViewport: viewport.New(ModalWidth-4, 15),
		Spinner:       sp,
		Config:        deps.Config,
		Backend:       deps.Backend,
		Logger:        logger.With("component", "ui"),
		DB:            deps.DB,
		DBErr:         deps.DBErr,
		Feedback:      deps.Feedback,
		Mailbox:       mb,
		Sessions:      &session.Registry{},
		KeyRepeat:     session.NewKeyRepeat(),
		CurrentModel:  modelFor(deps.Config.Model),
	}
	if m.Feedback == nil {
		m.Feedback = &feedback.Hooks{}
	}
	// Status may be called from any goroutine; route it through the mailbox.
	m.Feedback.Status = func(s string) { mb.Post(statusMsg(s)) }

	if m.DB != nil {
		m.Journal = db.NewChatJournal(m.DB, func() string { return m.CurrentModel.ID })
	}
	_, m.SelectedModelIndex, _ = models.FindModelByID(m.CurrentModel.ID)

	m.Recorder = capture.NewRecorder(deps.Config.RecorderConfig(),
		capture.WithLogger(logger),
		capture.OnFinish(func(path string, err error) {
			mb.Post(captureMsg{Kind: models.KindVideo, Paths: []string{path}, Err: err})
		}),
	)
	return m
}

// modelFor returns the catalog entry for id, or a bare entry for models
// the catalog does not know.
func modelFor(id string) models.AIModel {
	if mdl, _, ok := models.FindModelByID(id); ok {
		return mdl
	}
	return models.AIModel{ID: id, Name: id, Vision: true}
}

// newSession builds a controller wired to the mailbox, the feedback hooks
// and the chat journal.
func (m *Model) newSession() *session.Controller {
	opts := m.Config.SessionOptions()
	opts.Model = m.CurrentModel.ID

	deps := session.Deps{
		Backend:   m.Backend,
		Poster:    m.Mailbox,
		Feedback:  m.Feedback,
		Clipboard: SystemClipboard{},
		Filter:    mdfilter.Strip,
		Logger:    m.Logger,
	}
	if m.DB != nil {
		deps.Prompts = db.Prompts{DB: m.DB}
		deps.Journal = m.Journal
	}
	return session.New(deps, opts)
}

// session returns the open controller, starting one if needed.
func (m *Model) session() *session.Controller {
	c, created := m.Sessions.Open(m.newSession)
	if created {
		m.Logger.Debug("session opened", "model", m.CurrentModel.ID)
	}
	return c
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.TextInput.Cursor.BlinkCmd(),
		m.Spinner.Tick,
		m.waitForActivity(),
	)
}

// Shutdown stops background work. Call it after the program exits.
func (m *Model) Shutdown() {
	if m.Recorder.Recording() {
		if path, err := m.Recorder.Stop(); err != nil {
			m.Logger.Warn("stop recording on exit", "err", err)
		} else {
			m.Logger.Info("recording kept", "path", path)
		}
	}
	m.Sessions.Clear()
	m.Mailbox.Close()
	m.Feedback.Close()
}

func NewProgram(deps Deps) (*tea.Program, *Model) {
	m := InitialModel(deps)
	return tea.NewProgram(m, tea.WithAltScreen()), m
}
