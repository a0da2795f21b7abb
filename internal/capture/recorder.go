// Package capture grabs the screen: single screenshots, regions and timed
// video recordings encoded through a chain of fallback encoders.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/kbinani/screenshot"
)

var (
	ErrUnavailable      = errors.New("screen recording is unavailable")
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
	ErrNoFrames         = errors.New("no frames captured")
	ErrStopTimeout      = errors.New("capture loop did not stop in time")
)

const (
	joinTimeout   = 5 * time.Second
	encodeTimeout = 5 * time.Minute
)

// Grabber returns one frame of the screen.
type Grabber interface {
	Grab() (*image.RGBA, error)
}

// ScreenGrabber captures a whole display.
type ScreenGrabber struct {
	Display int
}

func (g ScreenGrabber) Grab() (*image.RGBA, error) {
	return screenshot.CaptureDisplay(g.Display)
}

type RecorderConfig struct {
	Dir         string
	FPS         int
	MaxDuration time.Duration
	Scale       float64
	FFmpegPath  string
	Display     int
}

func (c *RecorderConfig) setDefaults() {
	if c.Dir == "" {
		c.Dir = os.TempDir()
	}
	if c.FPS <= 0 {
		c.FPS = 10
	}
	if c.MaxDuration <= 0 {
		c.MaxDuration = 60 * time.Second
	}
	if c.Scale <= 0 || c.Scale > 1 {
		c.Scale = 0.5
	}
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
}

type Option func(*Recorder)

func WithGrabber(g Grabber) Option {
	return func(r *Recorder) { r.grabber = g }
}

func WithEncoders(encs ...Encoder) Option {
	return func(r *Recorder) { r.encoders = encs }
}

// WithProbe replaces the check Start runs before recording.
func WithProbe(probe func() error) Option {
	return func(r *Recorder) { r.probe = probe }
}

func WithLogger(l *log.Logger) Option {
	return func(r *Recorder) { r.logger = l }
}

// OnFinish is called from the capture goroutine when a recording stops
// on its own at the maximum duration.
func OnFinish(fn func(path string, err error)) Option {
	return func(r *Recorder) { r.onFinish = fn }
}

// take is one recording. frames belongs to the loop goroutine until done
// is closed.
type take struct {
	stop    chan struct{}
	done    chan struct{}
	frames  []*image.RGBA
	started time.Time
	output  string
}

type Recorder struct {
	cfg      RecorderConfig
	grabber  Grabber
	encoders []Encoder
	probe    func() error
	onFinish func(string, error)
	logger   *log.Logger

	mu  sync.Mutex
	cur *take
}

func NewRecorder(cfg RecorderConfig, opts ...Option) *Recorder {
	cfg.setDefaults()
	r := &Recorder{
		cfg:      cfg,
		grabber:  ScreenGrabber{Display: cfg.Display},
		encoders: DefaultEncoders(cfg.FFmpegPath),
	}
	r.probe = r.defaultProbe
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.Default()
	}
	r.logger = r.logger.With("component", "recorder")
	return r
}

func (r *Recorder) defaultProbe() error {
	if n := screenshot.NumActiveDisplays(); n <= r.cfg.Display {
		return fmt.Errorf("display %d not found (%d active)", r.cfg.Display, n)
	}
	if _, err := exec.LookPath(r.cfg.FFmpegPath); err != nil {
		return err
	}
	return nil
}

func (r *Recorder) Config() RecorderConfig { return r.cfg }

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cur != nil
}

// Elapsed is the time since the current recording started, or zero.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cur == nil {
		return 0
	}
	return time.Since(r.cur.started)
}

// Start begins recording in the background and returns immediately.
func (r *Recorder) Start() error {
	if err := r.probe(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cur != nil {
		return ErrAlreadyRecording
	}
	now := time.Now()
	t := &take{
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		started: now,
		output:  filepath.Join(r.cfg.Dir, "capture_"+now.Format("20060102_150405")+".mp4"),
	}
	r.cur = t
	r.logger.Info("recording started", "output", t.output, "fps", r.cfg.FPS, "max", r.cfg.MaxDuration)
	go r.loop(t)
	return nil
}

// Stop ends the recording and encodes what was captured.
func (r *Recorder) Stop() (string, error) {
	r.mu.Lock()
	t := r.cur
	r.cur = nil
	r.mu.Unlock()
	if t == nil {
		return "", ErrNotRecording
	}

	close(t.stop)
	select {
	case <-t.done:
	case <-time.After(joinTimeout):
		r.logger.Error("capture loop did not exit", "output", t.output)
		return "", ErrStopTimeout
	}
	return r.finish(t)
}

func (r *Recorder) loop(t *take) {
	defer close(t.done)

	interval := time.Second / time.Duration(r.cfg.FPS)
	for {
		select {
		case <-t.stop:
			return
		default:
		}
		if time.Since(t.started) >= r.cfg.MaxDuration {
			r.autoStop(t)
			return
		}

		begin := time.Now()
		img, err := r.grabber.Grab()
		if err != nil {
			r.logger.Warn("frame grab failed", "err", err)
		} else {
			t.frames = append(t.frames, downscale(img, r.cfg.Scale, true))
		}

		if wait := interval - time.Since(begin); wait > 0 {
			select {
			case <-t.stop:
				return
			case <-time.After(wait):
			}
		}
	}
}

// autoStop runs on the loop goroutine. If Stop already claimed the take it
// does nothing and leaves encoding to Stop.
func (r *Recorder) autoStop(t *take) {
	r.mu.Lock()
	if r.cur != t {
		r.mu.Unlock()
		return
	}
	r.cur = nil
	r.mu.Unlock()

	r.logger.Info("maximum duration reached", "max", r.cfg.MaxDuration, "frames", len(t.frames))
	path, err := r.finish(t)
	if r.onFinish != nil {
		r.onFinish(path, err)
	}
}

func (r *Recorder) finish(t *take) (string, error) {
	if len(t.frames) == 0 {
		return "", ErrNoFrames
	}
	ctx, cancel := context.WithTimeout(context.Background(), encodeTimeout)
	defer cancel()

	begin := time.Now()
	if err := EncodeChain(ctx, r.encoders, t.frames, r.cfg.FPS, t.output); err != nil {
		r.logger.Error("encoding failed", "output", t.output, "err", err)
		return "", err
	}
	r.logger.Info("recording saved", "output", t.output, "frames", len(t.frames), "took", time.Since(begin))
	t.frames = nil
	return t.output, nil
}
