// Package worker runs one completion request off the UI goroutine and
// reports everything it produces as events.
package worker

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"sightline/internal/backend"
	"sightline/internal/models"
)

// Poster delivers a message to the UI goroutine. Post must not block and
// must tolerate being called after the receiver is gone.
type Poster interface {
	Post(msg any)
}

// Event is what a worker posts. WorkerID lets the receiver discard events
// from workers it no longer owns.
type Event struct {
	WorkerID string
	Event    models.CompletionEvent
}

type Worker struct {
	id      string
	req     models.CompletionRequest
	backend backend.Backend
	post    Poster
	logger  *log.Logger
	stopped atomic.Bool
}

func New(b backend.Backend, req models.CompletionRequest, post Poster, logger *log.Logger) *Worker {
	if logger == nil {
		logger = log.Default()
	}
	return &Worker{
		id:      uuid.NewString(),
		req:     req,
		backend: b,
		post:    post,
		logger:  logger.With("worker", "completion"),
	}
}

func (w *Worker) ID() string { return w.id }

// Stop asks the worker to stop. Streaming checks the flag between
// fragments; a blocking Generate call runs to completion but its result
// is not posted.
func (w *Worker) Stop() { w.stopped.Store(true) }

func (w *Worker) Stopped() bool { return w.stopped.Load() }

// Run executes the request. Call it on its own goroutine.
func (w *Worker) Run(ctx context.Context) {
	if w.req.Stream {
		w.runStreaming(ctx)
		return
	}
	w.runSync(ctx)
}

func (w *Worker) emit(ev models.CompletionEvent) {
	if w.stopped.Load() {
		return
	}
	w.post.Post(Event{WorkerID: w.id, Event: ev})
}

func (w *Worker) fail(err error) {
	w.logger.Error("completion failed", "id", w.id, "model", w.req.Model, "err", err)
	w.emit(models.Error{Message: err.Error()})
}

func (w *Worker) runStreaming(ctx context.Context) {
	stream, err := w.backend.Stream(ctx, w.req)
	if err != nil {
		w.fail(err)
		return
	}
	defer stream.Close()

	var sb strings.Builder
	for stream.Next() {
		if w.stopped.Load() {
			w.logger.Debug("stream stopped", "id", w.id, "received", sb.Len())
			return
		}
		frag := stream.Text()
		if frag == "" {
			continue
		}
		sb.WriteString(frag)
		w.emit(models.Chunk{Text: frag})
	}
	if err := stream.Err(); err != nil {
		w.fail(err)
		return
	}
	w.emit(models.Done{Text: sb.String()})
}

func (w *Worker) runSync(ctx context.Context) {
	text, err := w.backend.Generate(ctx, w.req)
	if err != nil {
		w.fail(err)
		return
	}
	w.emit(models.Done{Text: text})
}
