// Package session turns user intent into completion requests and applies
// their results to the conversation history.
//
// A Controller is owned by one goroutine (the UI loop). Background work
// reports back through the Poster given in Deps, and the owner feeds those
// messages to Handle.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"sightline/internal/attach"
	"sightline/internal/backend"
	"sightline/internal/history"
	"sightline/internal/models"
	"sightline/internal/worker"
)

var (
	ErrBusy   = errors.New("a request is already in progress")
	ErrClosed = errors.New("session is closed")
)

const (
	speechLimit  = 500
	brailleLimit = 100

	UserLabel      = "You"
	AssistantLabel = "Gemini"
)

type Sound int

const (
	SoundRequestSent Sound = iota
	SoundResponsePending
	SoundResponseReceived
)

func (s Sound) String() string {
	switch s {
	case SoundRequestSent:
		return "request_sent"
	case SoundResponsePending:
		return "response_pending"
	case SoundResponseReceived:
		return "response_received"
	default:
		return "unknown"
	}
}

// Feedback is the non-visual output side. Every call is fire-and-forget.
type Feedback interface {
	PlaySound(s Sound, loop bool)
	StopSound()
	Speak(text string)
	Braille(text string)
	Notify(msg string)
}

type Clipboard interface {
	WriteAll(text string) error
}

// PromptStore remembers the last prompt used for each capture kind.
type PromptStore interface {
	SavePrompt(kind models.CaptureKind, prompt string) error
	LoadPrompt(kind models.CaptureKind) (string, error)
}

// Journal persists finished blocks. Reset starts a new conversation.
type Journal interface {
	AppendBlock(b models.MessageBlock) error
	Reset()
}

type Deps struct {
	Backend   backend.Backend
	Poster    worker.Poster
	Feedback  Feedback
	Clipboard Clipboard
	Prompts   PromptStore
	Journal   Journal
	// Filter strips markup before text is spoken, brailled or copied.
	Filter func(string) string
	Logger *log.Logger
}

type Options struct {
	Model            string
	System           string
	Params           models.GenerationParams
	Stream           bool
	ConversationMode bool
	FilterMarkdown   bool
	Sounds           bool
	Speech           bool
	Braille          bool
	PollInterval     time.Duration
}

func DefaultOptions() Options {
	return Options{
		Model:            models.DefaultModelID,
		System:           models.DefaultSystemPrompt,
		Params:           models.DefaultParams(),
		Stream:           true,
		ConversationMode: true,
		FilterMarkdown:   true,
		Sounds:           true,
		Speech:           true,
		Braille:          true,
		PollInterval:     2 * time.Second,
	}
}

type Controller struct {
	deps   Deps
	opts   Options
	logger *log.Logger

	history *history.History
	pending models.PendingAttachments

	active   *worker.Worker
	open     bool // active worker has an assistant block in history
	streamed bool

	phaseID     string
	phaseCancel context.CancelFunc
	phasePrompt string
	unsent      string // prompt of a cancelled upload phase

	captureKind models.CaptureKind

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
}

func New(deps Deps, opts Options) *Controller {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.Feedback == nil {
		deps.Feedback = nopFeedback{}
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		deps:    deps,
		opts:    opts,
		logger:  deps.Logger.With("component", "session"),
		history: history.New(),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Busy reports whether a worker or an upload phase is in flight.
func (c *Controller) Busy() bool {
	return c.active != nil || c.phaseID != ""
}

func (c *Controller) Uploading() bool { return c.phaseID != "" }

func (c *Controller) Closed() bool { return c.closed.Load() }

func (c *Controller) Blocks() []models.MessageBlock { return c.history.Blocks() }

func (c *Controller) Len() int { return c.history.Len() }

func (c *Controller) Pending() models.PendingAttachments {
	return models.PendingAttachments{
		Images:   append([]string(nil), c.pending.Images...),
		Videos:   append([]string(nil), c.pending.Videos...),
		Uploaded: append([]models.VideoRef(nil), c.pending.Uploaded...),
	}
}

func (c *Controller) Model() string { return c.opts.Model }

func (c *Controller) SetModel(id string) { c.opts.Model = id }

func (c *Controller) Options() Options { return c.opts }

// Submit sends prompt together with the pending attachments. An empty
// prompt with nothing attached does nothing.
func (c *Controller) Submit(prompt string) error {
	if c.Closed() {
		return ErrClosed
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" && c.pending.Empty() {
		return nil
	}
	if c.Busy() {
		return ErrBusy
	}
	if prompt != "" && c.captureKind != models.KindNone {
		if c.deps.Prompts != nil {
			if err := c.deps.Prompts.SavePrompt(c.captureKind, prompt); err != nil {
				c.logger.Warn("save capture prompt", "kind", c.captureKind, "err", err)
			}
		}
		c.captureKind = models.KindNone
	}

	if len(c.pending.Videos) > 0 {
		c.startUpload(prompt)
		return nil
	}
	c.dispatch(prompt)
	return nil
}

func (c *Controller) dispatch(prompt string) {
	if prompt == "" && len(c.pending.Images) == 0 && len(c.pending.Uploaded) == 0 {
		return
	}
	block := models.MessageBlock{
		Role:   models.RoleUser,
		Text:   prompt,
		Images: c.pending.Images,
		Videos: c.pending.Uploaded,
	}

	var turns []models.Turn
	if c.opts.ConversationMode {
		for _, b := range c.history.Blocks() {
			if t, ok := c.blockTurn(b, false); ok {
				turns = append(turns, t)
			}
		}
	}
	if t, ok := c.blockTurn(block, true); ok {
		turns = append(turns, t)
	}
	req := models.NewCompletionRequest(c.opts.Model, c.opts.System, turns, c.opts.Params, c.opts.Stream)

	c.history.Append(block)
	c.journal(block)
	c.pending.Images = nil
	c.pending.Uploaded = nil

	w := worker.New(c.deps.Backend, req, c.deps.Poster, c.deps.Logger)
	c.active = w
	c.open = false
	c.streamed = false

	c.logger.Info("request dispatched", "worker", w.ID(), "model", req.Model, "turns", len(req.Turns), "stream", req.Stream)
	if c.opts.Sounds {
		c.deps.Feedback.PlaySound(SoundRequestSent, false)
		c.deps.Feedback.PlaySound(SoundResponsePending, true)
	}
	// Workers are stopped cooperatively, never through the context.
	go w.Run(context.Background())
}

// blockTurn converts a block into a backend turn. Attachments that fail
// to encode are skipped; notify controls whether the user hears about it.
func (c *Controller) blockTurn(b models.MessageBlock, notify bool) (models.Turn, bool) {
	t := models.Turn{Role: b.Role}
	for _, path := range b.Images {
		p, err := attach.Encode(path)
		if err != nil {
			c.logger.Warn("skipping image", "err", err)
			if notify {
				c.deps.Feedback.Notify(fmt.Sprintf("Could not attach %s", path))
			}
			continue
		}
		t.Parts = append(t.Parts, p)
	}
	for _, ref := range b.Videos {
		p, err := attach.EncodeVideoRef(ref)
		if err != nil {
			c.logger.Warn("skipping video", "err", err)
			continue
		}
		t.Parts = append(t.Parts, p)
	}
	if b.Text != "" {
		t.Parts = append(t.Parts, models.TextPart(b.Text))
	}
	return t, len(t.Parts) > 0
}

// Handle applies a message posted by background work. It reports whether
// msg belonged to the session, including stale events it discarded.
func (c *Controller) Handle(msg any) bool {
	if c.Closed() {
		if res, ok := msg.(uploadResult); ok {
			c.discardUpload(res)
		}
		return false
	}
	switch msg := msg.(type) {
	case worker.Event:
		if c.active == nil || msg.WorkerID != c.active.ID() {
			c.logger.Debug("discarding stale event", "worker", msg.WorkerID)
			return true
		}
		c.applyEvent(msg.Event)
		return true
	case uploadResult:
		c.applyUpload(msg)
		return true
	}
	return false
}

func (c *Controller) applyEvent(ev models.CompletionEvent) {
	switch ev := ev.(type) {
	case models.Chunk:
		if !c.open {
			c.history.Append(models.MessageBlock{Role: models.RoleAssistant, Text: ev.Text})
			c.open = true
			c.deps.Feedback.StopSound()
		} else {
			c.history.GrowLast(ev.Text)
		}
		c.streamed = true
		if c.opts.Speech {
			c.deps.Feedback.Speak(c.filter(ev.Text))
		}

	case models.Done:
		if !c.streamed {
			c.history.Append(models.MessageBlock{Role: models.RoleAssistant, Text: ev.Text})
		}
		final, _ := c.history.Last()
		c.journal(final)

		c.deps.Feedback.StopSound()
		if c.opts.Sounds {
			c.deps.Feedback.PlaySound(SoundResponseReceived, false)
		}
		text := c.filter(final.Text)
		if c.opts.Speech && !c.streamed {
			c.deps.Feedback.Speak(firstRunes(text, speechLimit))
		}
		if c.opts.Braille {
			c.deps.Feedback.Braille(firstRunes(text, brailleLimit))
		}
		c.finish()

	case models.Error:
		c.deps.Feedback.StopSound()
		if c.open {
			c.history.DropLast()
		}
		c.deps.Feedback.Notify("Error: " + ev.Message)
		c.finish()
	}
}

func (c *Controller) finish() {
	c.active = nil
	c.open = false
	c.streamed = false
}

// Cancel stops the active request or upload. Text streamed so far stays
// in history. It reports whether anything was running.
func (c *Controller) Cancel() bool {
	cancelled := false
	if c.active != nil {
		c.active.Stop()
		c.deps.Feedback.StopSound()
		if c.open {
			if last, ok := c.history.Last(); ok {
				c.journal(last)
			}
		}
		c.logger.Info("request cancelled", "worker", c.active.ID(), "streamed", c.streamed)
		c.finish()
		cancelled = true
	}
	if c.phaseID != "" {
		c.phaseCancel()
		c.phaseID = ""
		c.phaseCancel = nil
		c.unsent = c.phasePrompt
		c.phasePrompt = ""
		cancelled = true
	}
	return cancelled
}

// TakeUnsent returns the prompt of an upload phase that was cancelled
// before its request went out, and forgets it.
func (c *Controller) TakeUnsent() string {
	p := c.unsent
	c.unsent = ""
	return p
}

// Clear drops the conversation and everything pending, and starts a new
// journal entry.
func (c *Controller) Clear() {
	c.Cancel()
	c.unsent = ""
	c.history.Clear()
	c.pending = models.PendingAttachments{}
	c.captureKind = models.KindNone
	if c.deps.Journal != nil {
		c.deps.Journal.Reset()
	}
}

// Load replaces the conversation with saved blocks, as when resuming a
// chat. Nothing is journaled.
func (c *Controller) Load(blocks []models.MessageBlock) {
	c.Cancel()
	c.unsent = ""
	c.history.Clear()
	c.pending = models.PendingAttachments{}
	for _, b := range blocks {
		c.history.Append(b)
	}
}

func (c *Controller) Close() {
	if c.closed.Load() {
		return
	}
	c.Cancel()
	c.closed.Store(true)
	c.cancel()
}

// AddCapture queues capture output as attachments and returns the prompt
// to prefill when draft is blank. A non-blank draft is never replaced, and
// the returned string is then empty.
func (c *Controller) AddCapture(kind models.CaptureKind, paths []string, draft string) string {
	for _, p := range paths {
		if kind == models.KindVideo || attach.IsVideo(p) {
			c.pending.Videos = append(c.pending.Videos, p)
		} else {
			c.pending.Images = append(c.pending.Images, p)
		}
	}
	c.captureKind = kind
	c.logger.Info("capture attached", "kind", kind, "files", len(paths))

	if strings.TrimSpace(draft) != "" {
		return ""
	}
	if c.deps.Prompts != nil {
		saved, err := c.deps.Prompts.LoadPrompt(kind)
		if err != nil {
			c.logger.Warn("load capture prompt", "kind", kind, "err", err)
		}
		if saved != "" {
			return saved
		}
	}
	return models.DefaultPrompt(kind)
}

// Recall performs a key-repeat gesture on the block i positions from the
// newest.
func (c *Controller) Recall(i int, g Gesture) {
	if g == GestureCopy {
		if err := c.CopyMessage(i); err != nil {
			c.deps.Feedback.Notify(err.Error())
		}
		return
	}
	c.ReadMessage(i)
}

// ReadMessage speaks block i (0 is newest) with its author label.
func (c *Controller) ReadMessage(i int) bool {
	b, ok := c.history.FromNewest(i)
	if !ok {
		c.deps.Feedback.Notify(fmt.Sprintf("No message %d", i+1))
		return false
	}
	text := Label(b.Role) + ": " + c.filter(b.Text)
	c.deps.Feedback.Speak(text)
	if c.opts.Braille {
		c.deps.Feedback.Braille(firstRunes(text, brailleLimit))
	}
	return true
}

// CopyMessage puts the text of block i (0 is newest) on the clipboard.
func (c *Controller) CopyMessage(i int) error {
	b, ok := c.history.FromNewest(i)
	if !ok {
		return fmt.Errorf("no message %d", i+1)
	}
	return c.copy(b)
}

// CopyLastResponse copies the newest assistant block.
func (c *Controller) CopyLastResponse() error {
	for i := 0; i < c.history.Len(); i++ {
		b, _ := c.history.FromNewest(i)
		if b.Role == models.RoleAssistant {
			return c.copy(b)
		}
	}
	return errors.New("no response to copy")
}

func (c *Controller) copy(b models.MessageBlock) error {
	if c.deps.Clipboard == nil {
		return errors.New("clipboard unavailable")
	}
	if err := c.deps.Clipboard.WriteAll(c.filter(b.Text)); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	c.deps.Feedback.Notify("Copied")
	return nil
}

func (c *Controller) journal(b models.MessageBlock) {
	if c.deps.Journal == nil {
		return
	}
	if err := c.deps.Journal.AppendBlock(b); err != nil {
		c.logger.Warn("journal append", "role", b.Role, "err", err)
	}
}

func (c *Controller) filter(s string) string {
	if !c.opts.FilterMarkdown || c.deps.Filter == nil {
		return s
	}
	return c.deps.Filter(s)
}

func Label(r models.Role) string {
	if r == models.RoleAssistant {
		return AssistantLabel
	}
	return UserLabel
}

func firstRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

type nopFeedback struct{}

func (nopFeedback) PlaySound(Sound, bool) {}
func (nopFeedback) StopSound()            {}
func (nopFeedback) Speak(string)          {}
func (nopFeedback) Braille(string)        {}
func (nopFeedback) Notify(string)         {}
