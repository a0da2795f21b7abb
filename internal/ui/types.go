package ui

import (
	"database/sql"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"

	"sightline/internal/backend"
	"sightline/internal/capture"
	"sightline/internal/config"
	"sightline/internal/db"
	"sightline/internal/feedback"
	"sightline/internal/models"
	"sightline/internal/session"
)

const (
	MaxChatWidth    = 100
	HistoryPageSize = 10
)

var ModalWidth = 60

type ErrMsg error

// mailboxMsg carries one message drained from the session mailbox.
type mailboxMsg struct{ msg any }

// statusMsg replaces the status line.
type statusMsg string

// captureMsg reports a finished screenshot or recording.
type captureMsg struct {
	Kind  models.CaptureKind
	Paths []string
	Err   error
}

// recordTickMsg refreshes the elapsed time while recording.
type recordTickMsg struct{}

type Model struct {
	Viewport      viewport.Model
	ModelViewport viewport.Model
	TextInput     textarea.Model
	Spinner       spinner.Model
	Renderer      *glamour.TermRenderer

	Config   *config.Config
	Backend  backend.Backend
	Logger   *log.Logger
	DB       *sql.DB
	DBErr    error
	Journal  *db.ChatJournal
	Feedback *feedback.Hooks

	Mailbox   *session.Mailbox
	Sessions  *session.Registry
	KeyRepeat *session.KeyRepeat
	Recorder  *capture.Recorder
	Stopping  bool

	Status string

	WindowWidth        int
	WindowHeight       int
	HistoryOpen        bool
	HistorySelectedIdx int
	HistoryChatCount   int
	HistoryChats       []models.ChatListItem
	HistoryErr         error
	HistoryPage        int
	ModelSelectorOpen  bool
	ShortcutsOpen      bool
	CurrentModel       models.AIModel
	SelectedModelIndex int
}
