package db

import (
	"database/sql"
	"time"

	"sightline/internal/models"
)

// ChatJournal writes a conversation to the chats tables as it happens. The
// chat row is created lazily with the first block.
type ChatJournal struct {
	DB    *sql.DB
	Model func() string
	Now   func() time.Time

	chatID int64
}

func NewChatJournal(db *sql.DB, model func() string) *ChatJournal {
	return &ChatJournal{DB: db, Model: model, Now: time.Now}
}

func (j *ChatJournal) ChatID() int64 { return j.chatID }

// Resume continues an existing chat.
func (j *ChatJournal) Resume(chatID int64) { j.chatID = chatID }

func (j *ChatJournal) Reset() { j.chatID = 0 }

func (j *ChatJournal) AppendBlock(b models.MessageBlock) error {
	now := j.Now().Unix()
	if j.chatID == 0 {
		id, err := CreateChat(j.DB, now, j.Model())
		if err != nil {
			return err
		}
		j.chatID = id
	}
	if err := InsertBlock(j.DB, j.chatID, b, now); err != nil {
		return err
	}
	if b.Role == models.RoleUser {
		return UpdateChatOnUser(j.DB, j.chatID, now, j.Model(), b.Text)
	}
	return TouchChat(j.DB, j.chatID, now)
}

// Prompts stores per-capture-kind prompts.
type Prompts struct {
	DB *sql.DB
}

func (p Prompts) SavePrompt(kind models.CaptureKind, prompt string) error {
	return SavePrompt(p.DB, kind, prompt, time.Now().Unix())
}

func (p Prompts) LoadPrompt(kind models.CaptureKind) (string, error) {
	return LoadPrompt(p.DB, kind)
}
