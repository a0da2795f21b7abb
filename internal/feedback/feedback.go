// Package feedback produces the non-visual output: sound cues, speech and
// the status line a braille display follows.
package feedback

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"sightline/internal/session"
)

// Runner runs one external command to completion.
type Runner func(ctx context.Context, name string, args ...string) error

func ExecRunner(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

var (
	soundCommands  = []string{"paplay", "aplay", "afplay"}
	speechCommands = []string{"spd-say", "say", "espeak-ng", "espeak"}
)

// Detect returns the first command from candidates found on PATH, or "".
func Detect(candidates []string) string {
	for _, c := range candidates {
		if _, err := exec.LookPath(c); err == nil {
			return c
		}
	}
	return ""
}

func DetectSoundCommand() string  { return Detect(soundCommands) }
func DetectSpeechCommand() string { return Detect(speechCommands) }

// Player plays <Dir>/<sound>.wav with Command. A new sound replaces the
// one playing.
type Player struct {
	Command string
	Dir     string
	Run     Runner
	Logger  *log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

func (p *Player) Play(s session.Sound, loop bool) {
	if p.Command == "" {
		return
	}
	path := filepath.Join(p.Dir, s.String()+".wav")
	if _, err := os.Stat(path); err != nil {
		p.logger().Debug("sound missing", "sound", s, "err", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.cancel = cancel
	p.mu.Unlock()

	run := p.Run
	if run == nil {
		run = ExecRunner
	}
	go func() {
		for {
			err := run(ctx, p.Command, path)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				p.logger().Warn("play sound", "sound", s, "err", err)
				return
			}
			if !loop {
				return
			}
		}
	}()
}

func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *Player) logger() *log.Logger {
	if p.Logger == nil {
		return log.Default()
	}
	return p.Logger
}

const speechQueue = 64

// Speaker reads text aloud one utterance at a time. Utterances that
// arrive while the queue is full are dropped.
type Speaker struct {
	Command string
	Run     Runner
	Logger  *log.Logger

	once   sync.Once
	queue  chan string
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *Speaker) start() {
	s.queue = make(chan string, speechQueue)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	run := s.Run
	if run == nil {
		run = ExecRunner
	}
	go func() {
		for {
			select {
			case <-s.ctx.Done():
				return
			case text := <-s.queue:
				if err := run(s.ctx, s.Command, text); err != nil && s.ctx.Err() == nil && s.Logger != nil {
					s.Logger.Warn("speak", "err", err)
				}
			}
		}
	}()
}

func (s *Speaker) Say(text string) {
	text = strings.TrimSpace(text)
	if s.Command == "" || text == "" {
		return
	}
	s.once.Do(s.start)
	select {
	case s.queue <- text:
	default:
	}
}

// Close stops the current utterance and drops the queue.
func (s *Speaker) Close() {
	s.once.Do(s.start)
	s.cancel()
}

// Hooks adapts the players to session.Feedback. Status receives notices
// and braille text; the UI shows it on the status line.
type Hooks struct {
	Sounds *Player
	Voice  *Speaker
	Status func(string)
}

var _ session.Feedback = (*Hooks)(nil)

func (h *Hooks) PlaySound(s session.Sound, loop bool) {
	if h.Sounds != nil {
		h.Sounds.Play(s, loop)
	}
}

func (h *Hooks) StopSound() {
	if h.Sounds != nil {
		h.Sounds.Stop()
	}
}

func (h *Hooks) Speak(text string) {
	if h.Voice != nil {
		h.Voice.Say(text)
	}
}

func (h *Hooks) Braille(text string) {
	if h.Status != nil {
		h.Status(text)
	}
}

func (h *Hooks) Notify(msg string) {
	if h.Status != nil {
		h.Status(msg)
	}
	h.Speak(msg)
}

func (h *Hooks) Close() {
	if h.Sounds != nil {
		h.Sounds.Stop()
	}
	if h.Voice != nil {
		h.Voice.Close()
	}
}
