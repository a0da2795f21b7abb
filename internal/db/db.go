package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"sightline/internal/models"
	_ "modernc.org/sqlite"
)

const FileName = "sightline.db"

func OpenDB(dataDir string) (*sql.DB, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dataDir, FileName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// PRAGMAs are per connection.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS chats (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			model_id TEXT NOT NULL,
			last_user_prompt TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			images TEXT NOT NULL DEFAULT '[]',
			videos TEXT NOT NULL DEFAULT '[]',
			created_at INTEGER NOT NULL,
			FOREIGN KEY(chat_id) REFERENCES chats(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS prompts (
			kind TEXT PRIMARY KEY,
			prompt TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chats_updated_at ON chats(updated_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chat_id ON messages(chat_id, id);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return db, nil
}

func CreateChat(db *sql.DB, nowUnix int64, modelID string) (int64, error) {
	res, err := db.Exec(
		"INSERT INTO chats(created_at, updated_at, model_id, last_user_prompt) VALUES(?, ?, ?, '')",
		nowUnix,
		nowUnix,
		modelID,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func InsertBlock(db *sql.DB, chatID int64, b models.MessageBlock, nowUnix int64) error {
	images, err := json.Marshal(nonNil(b.Images))
	if err != nil {
		return err
	}
	videos, err := json.Marshal(nonNil(b.Videos))
	if err != nil {
		return err
	}
	_, err = db.Exec(
		"INSERT INTO messages(chat_id, role, content, images, videos, created_at) VALUES(?, ?, ?, ?, ?, ?)",
		chatID,
		b.Role.String(),
		b.Text,
		string(images),
		string(videos),
		nowUnix,
	)
	return err
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func UpdateChatOnUser(db *sql.DB, chatID int64, nowUnix int64, modelID, lastUserPrompt string) error {
	_, err := db.Exec(
		"UPDATE chats SET updated_at = ?, model_id = ?, last_user_prompt = ? WHERE id = ?",
		nowUnix,
		modelID,
		lastUserPrompt,
		chatID,
	)
	return err
}

func TouchChat(db *sql.DB, chatID int64, nowUnix int64) error {
	_, err := db.Exec(
		"UPDATE chats SET updated_at = ? WHERE id = ?",
		nowUnix,
		chatID,
	)
	return err
}

func DeleteChat(db *sql.DB, chatID int64) error {
	res, err := db.Exec("DELETE FROM chats WHERE id = ?", chatID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("chat %d: %w", chatID, sql.ErrNoRows)
	}
	return nil
}

// GetRecentChats returns the total chat count and one page of chats,
// most recently updated first.
func GetRecentChats(db *sql.DB, limit, offset int) (int, []models.ChatListItem, error) {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM chats").Scan(&count); err != nil {
		return 0, nil, err
	}

	rows, err := db.Query(
		"SELECT id, updated_at, last_user_prompt, model_id FROM chats ORDER BY updated_at DESC, id DESC LIMIT ? OFFSET ?",
		limit,
		offset,
	)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	items := make([]models.ChatListItem, 0, limit)
	for rows.Next() {
		var it models.ChatListItem
		if err := rows.Scan(&it.ID, &it.UpdatedAtUnix, &it.LastUserPrompt, &it.ModelID); err != nil {
			return 0, nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, err
	}

	return count, items, nil
}

func GetChat(db *sql.DB, chatID int64) (models.ChatListItem, error) {
	var it models.ChatListItem
	err := db.QueryRow(
		"SELECT id, updated_at, last_user_prompt, model_id FROM chats WHERE id = ?",
		chatID,
	).Scan(&it.ID, &it.UpdatedAtUnix, &it.LastUserPrompt, &it.ModelID)
	return it, err
}

func GetChatBlocks(db *sql.DB, chatID int64) ([]models.MessageBlock, error) {
	rows, err := db.Query(
		"SELECT role, content, images, videos FROM messages WHERE chat_id = ? ORDER BY id ASC",
		chatID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blocks := []models.MessageBlock{}
	for rows.Next() {
		var role, content, images, videos string
		if err := rows.Scan(&role, &content, &images, &videos); err != nil {
			return nil, err
		}
		b := models.MessageBlock{Text: content}
		if b.Role, err = models.ParseRole(role); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(images), &b.Images); err != nil {
			return nil, fmt.Errorf("images of chat %d: %w", chatID, err)
		}
		if err := json.Unmarshal([]byte(videos), &b.Videos); err != nil {
			return nil, fmt.Errorf("videos of chat %d: %w", chatID, err)
		}
		if len(b.Images) == 0 {
			b.Images = nil
		}
		if len(b.Videos) == 0 {
			b.Videos = nil
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return blocks, nil
}

// AttachmentPaths returns the cleaned local paths of every image and video
// that a saved chat refers to.
func AttachmentPaths(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query("SELECT images, videos FROM messages WHERE images != '[]' OR videos != '[]'")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	paths := map[string]bool{}
	for rows.Next() {
		var images, videos string
		if err := rows.Scan(&images, &videos); err != nil {
			return nil, err
		}
		var imgs []string
		var vids []models.VideoRef
		if err := json.Unmarshal([]byte(images), &imgs); err != nil {
			return nil, fmt.Errorf("images: %w", err)
		}
		if err := json.Unmarshal([]byte(videos), &vids); err != nil {
			return nil, fmt.Errorf("videos: %w", err)
		}
		for _, p := range imgs {
			paths[filepath.Clean(p)] = true
		}
		for _, v := range vids {
			paths[filepath.Clean(v.Path)] = true
		}
	}
	return paths, rows.Err()
}

func SavePrompt(db *sql.DB, kind models.CaptureKind, prompt string, nowUnix int64) error {
	_, err := db.Exec(
		`INSERT INTO prompts(kind, prompt, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(kind) DO UPDATE SET prompt = excluded.prompt, updated_at = excluded.updated_at`,
		kind.String(),
		prompt,
		nowUnix,
	)
	return err
}

// LoadPrompt returns the saved prompt for kind, or "" if there is none.
func LoadPrompt(db *sql.DB, kind models.CaptureKind) (string, error) {
	var prompt string
	err := db.QueryRow("SELECT prompt FROM prompts WHERE kind = ?", kind.String()).Scan(&prompt)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return prompt, err
}
