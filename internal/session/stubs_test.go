package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"sightline/internal/backend"
	"sightline/internal/models"
)

type fakeStream struct {
	frags  []string
	err    error
	holdAt int
	hold   chan struct{}
	i      int
}

func (s *fakeStream) Next() bool {
	if s.hold != nil && s.i == s.holdAt {
		<-s.hold
	}
	if s.i >= len(s.frags) {
		return false
	}
	s.i++
	return true
}
func (s *fakeStream) Text() string { return s.frags[s.i-1] }
func (s *fakeStream) Err() error   { return s.err }
func (s *fakeStream) Close() error { return nil }

type fakeBackend struct {
	mu       sync.Mutex
	requests []models.CompletionRequest

	stream  *fakeStream
	text    string
	genErr  error
	genGate chan struct{}

	uploads   map[string]backend.RemoteFile
	uploadErr map[string]error
	polls     map[string][]backend.FileState
	uploaded  chan string
	deleted   chan string
}

func (b *fakeBackend) record(req models.CompletionRequest) {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.mu.Unlock()
}

func (b *fakeBackend) Requests() []models.CompletionRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.CompletionRequest(nil), b.requests...)
}

func (b *fakeBackend) Generate(_ context.Context, req models.CompletionRequest) (string, error) {
	b.record(req)
	if b.genGate != nil {
		<-b.genGate
	}
	return b.text, b.genErr
}

func (b *fakeBackend) Stream(_ context.Context, req models.CompletionRequest) (backend.Stream, error) {
	b.record(req)
	if b.stream == nil {
		return &fakeStream{frags: []string{"ok"}}, nil
	}
	s := *b.stream
	return &s, nil
}

func (b *fakeBackend) Upload(_ context.Context, path, mime string) (backend.RemoteFile, error) {
	if b.uploaded != nil {
		b.uploaded <- path
	}
	if err := b.uploadErr[path]; err != nil {
		return backend.RemoteFile{}, err
	}
	rf, ok := b.uploads[path]
	if !ok {
		return backend.RemoteFile{}, errors.New("unexpected upload")
	}
	rf.MIME = mime
	return rf, nil
}

func (b *fakeBackend) GetFile(_ context.Context, name string) (backend.RemoteFile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, rf := range b.uploads {
		if rf.Name != name {
			continue
		}
		states := b.polls[name]
		if len(states) == 0 {
			rf.State = backend.FileActive
			return rf, nil
		}
		rf.State = states[0]
		if len(states) > 1 {
			b.polls[name] = states[1:]
		}
		return rf, nil
	}
	return backend.RemoteFile{}, errors.New("no such file")
}

func (b *fakeBackend) DeleteFile(_ context.Context, name string) error {
	if b.deleted != nil {
		b.deleted <- name
	}
	return nil
}

type call struct {
	op   string
	text string
}

type recordingFeedback struct {
	mu    sync.Mutex
	calls []call
}

func (f *recordingFeedback) add(op, text string) {
	f.mu.Lock()
	f.calls = append(f.calls, call{op, text})
	f.mu.Unlock()
}

func (f *recordingFeedback) PlaySound(s Sound, loop bool) {
	if loop {
		f.add("loop", s.String())
		return
	}
	f.add("play", s.String())
}
func (f *recordingFeedback) StopSound()       { f.add("stop", "") }
func (f *recordingFeedback) Speak(t string)   { f.add("speak", t) }
func (f *recordingFeedback) Braille(t string) { f.add("braille", t) }
func (f *recordingFeedback) Notify(t string)  { f.add("notify", t) }

func (f *recordingFeedback) texts(op string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if c.op == op {
			out = append(out, c.text)
		}
	}
	return out
}

type memPrompts struct {
	saved map[models.CaptureKind]string
}

func (m *memPrompts) SavePrompt(kind models.CaptureKind, prompt string) error {
	if m.saved == nil {
		m.saved = map[models.CaptureKind]string{}
	}
	m.saved[kind] = prompt
	return nil
}

func (m *memPrompts) LoadPrompt(kind models.CaptureKind) (string, error) {
	return m.saved[kind], nil
}

type memJournal struct {
	blocks []models.MessageBlock
	resets int
}

func (j *memJournal) AppendBlock(b models.MessageBlock) error {
	j.blocks = append(j.blocks, b)
	return nil
}
func (j *memJournal) Reset() { j.resets++ }

type memClipboard struct{ text string }

func (c *memClipboard) WriteAll(text string) error {
	c.text = text
	return nil
}

type harness struct {
	c        *Controller
	mb       *Mailbox
	backend  *fakeBackend
	feedback *recordingFeedback
	prompts  *memPrompts
	journal  *memJournal
	clip     *memClipboard
}

func newHarness(t *testing.T, b *fakeBackend, mutate func(*Options)) *harness {
	t.Helper()
	h := &harness{
		mb:       NewMailbox(),
		backend:  b,
		feedback: &recordingFeedback{},
		prompts:  &memPrompts{},
		journal:  &memJournal{},
		clip:     &memClipboard{},
	}
	opts := DefaultOptions()
	opts.PollInterval = time.Millisecond
	if mutate != nil {
		mutate(&opts)
	}
	h.c = New(Deps{
		Backend:   b,
		Poster:    h.mb,
		Feedback:  h.feedback,
		Clipboard: h.clip,
		Prompts:   h.prompts,
		Journal:   h.journal,
		Logger:    log.New(io.Discard),
	}, opts)
	t.Cleanup(func() {
		h.c.Close()
		h.mb.Close()
	})
	return h
}

// settle feeds mailbox messages to the controller until it is idle.
func (h *harness) settle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for h.c.Busy() {
		msg, ok := h.mb.Receive(ctx)
		if !ok {
			t.Fatal("timed out waiting for the session to go idle")
		}
		h.c.Handle(msg)
	}
}
