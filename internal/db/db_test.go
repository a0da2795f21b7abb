package db

import (
	"database/sql"
	"errors"
	"reflect"
	"testing"
	"time"

	"sightline/internal/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestJournalRoundTrip(t *testing.T) {
	db := openTestDB(t)
	now := time.Unix(1_700_000_000, 0)
	j := NewChatJournal(db, func() string { return "gemini-test" })
	j.Now = func() time.Time { now = now.Add(time.Second); return now }

	blocks := []models.MessageBlock{
		{Role: models.RoleUser, Text: "what is this?", Images: []string{"/tmp/screenshot_1.png"}},
		{Role: models.RoleAssistant, Text: "A terminal."},
		{Role: models.RoleUser, Text: "and this", Videos: []models.VideoRef{{Path: "/tmp/capture_1.mp4", Handle: "files/abc"}}},
	}
	for _, b := range blocks {
		if err := j.AppendBlock(b); err != nil {
			t.Fatal(err)
		}
	}
	if j.ChatID() == 0 {
		t.Fatal("no chat created")
	}

	got, err := GetChatBlocks(db, j.ChatID())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, blocks) {
		t.Errorf("blocks = %+v\nwant %+v", got, blocks)
	}

	chat, err := GetChat(db, j.ChatID())
	if err != nil {
		t.Fatal(err)
	}
	if chat.LastUserPrompt != "and this" || chat.ModelID != "gemini-test" || chat.UpdatedAtUnix != now.Unix() {
		t.Errorf("chat = %+v", chat)
	}
}

func TestRecentChatsPaging(t *testing.T) {
	db := openTestDB(t)
	for i := 0; i < 5; i++ {
		j := NewChatJournal(db, func() string { return "m" })
		ts := time.Unix(int64(1000+i), 0)
		j.Now = func() time.Time { return ts }
		if err := j.AppendBlock(models.MessageBlock{Role: models.RoleUser, Text: string(rune('a' + i))}); err != nil {
			t.Fatal(err)
		}
	}

	count, page, err := GetRecentChats(db, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if count != 5 || len(page) != 2 {
		t.Fatalf("count=%d page=%d", count, len(page))
	}
	if page[0].LastUserPrompt != "d" || page[1].LastUserPrompt != "c" {
		t.Errorf("page = %+v", page)
	}
}

func TestJournalReset(t *testing.T) {
	db := openTestDB(t)
	j := NewChatJournal(db, func() string { return "m" })
	if err := j.AppendBlock(models.MessageBlock{Role: models.RoleUser, Text: "one"}); err != nil {
		t.Fatal(err)
	}
	first := j.ChatID()
	j.Reset()
	if err := j.AppendBlock(models.MessageBlock{Role: models.RoleUser, Text: "two"}); err != nil {
		t.Fatal(err)
	}
	if j.ChatID() == first {
		t.Error("Reset did not start a new chat")
	}

	j.Resume(first)
	if err := j.AppendBlock(models.MessageBlock{Role: models.RoleAssistant, Text: "reply"}); err != nil {
		t.Fatal(err)
	}
	blocks, _ := GetChatBlocks(db, first)
	if len(blocks) != 2 {
		t.Errorf("resumed chat has %d blocks", len(blocks))
	}
}

func TestDeleteChatCascades(t *testing.T) {
	db := openTestDB(t)
	j := NewChatJournal(db, func() string { return "m" })
	if err := j.AppendBlock(models.MessageBlock{Role: models.RoleUser, Text: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := DeleteChat(db, j.ChatID()); err != nil {
		t.Fatal(err)
	}
	blocks, err := GetChatBlocks(db, j.ChatID())
	if err != nil || len(blocks) != 0 {
		t.Errorf("messages survived: %v, %v", blocks, err)
	}
	if err := DeleteChat(db, j.ChatID()); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("second delete = %v", err)
	}
}

func TestPrompts(t *testing.T) {
	p := Prompts{DB: openTestDB(t)}
	if got, err := p.LoadPrompt(models.KindObject); err != nil || got != "" {
		t.Errorf("empty store = %q, %v", got, err)
	}
	for _, prompt := range []string{"first", "second"} {
		if err := p.SavePrompt(models.KindObject, prompt); err != nil {
			t.Fatal(err)
		}
	}
	if got, _ := p.LoadPrompt(models.KindObject); got != "second" {
		t.Errorf("object prompt = %q", got)
	}
	if got, _ := p.LoadPrompt(models.KindVideo); got != "" {
		t.Errorf("video prompt = %q", got)
	}
}

func TestAttachmentPaths(t *testing.T) {
	db := openTestDB(t)
	now := time.Now().Unix()
	id, err := CreateChat(db, now, "m")
	if err != nil {
		t.Fatal(err)
	}
	blocks := []models.MessageBlock{
		{Role: models.RoleUser, Text: "q", Images: []string{"/data/screenshot_1.png", "/data//object_2.png"}},
		{Role: models.RoleAssistant, Text: "a"},
		{Role: models.RoleUser, Videos: []models.VideoRef{{Path: "/data/capture_3.mp4", Handle: "files/x"}}},
	}
	for _, b := range blocks {
		if err := InsertBlock(db, id, b, now); err != nil {
			t.Fatal(err)
		}
	}

	got, err := AttachmentPaths(db)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{
		"/data/screenshot_1.png": true,
		"/data/object_2.png":     true,
		"/data/capture_3.mp4":    true,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AttachmentPaths = %v", got)
	}
}
