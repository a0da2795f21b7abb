// Package backend talks to the AI service: completions, streaming and the
// remote file lifecycle used for video attachments.
package backend

import (
	"context"
	"errors"

	"sightline/internal/models"
)

var ErrFileFailed = errors.New("remote file processing failed")

// FileState is the processing state of an uploaded file.
type FileState int

const (
	FileProcessing FileState = iota
	FileActive
	FileFailed
)

func (s FileState) String() string {
	switch s {
	case FileProcessing:
		return "processing"
	case FileActive:
		return "active"
	case FileFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RemoteFile is a backend handle for an uploaded file. URI is what later
// requests reference.
type RemoteFile struct {
	Name  string
	URI   string
	MIME  string
	State FileState
}

// Stream yields response fragments in order.
type Stream interface {
	Next() bool
	Text() string
	Err() error
	Close() error
}

type Backend interface {
	Generate(ctx context.Context, req models.CompletionRequest) (string, error)
	Stream(ctx context.Context, req models.CompletionRequest) (Stream, error)
	Upload(ctx context.Context, path, mime string) (RemoteFile, error)
	GetFile(ctx context.Context, name string) (RemoteFile, error)
	DeleteFile(ctx context.Context, name string) error
}
