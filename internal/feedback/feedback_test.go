package feedback

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"sightline/internal/session"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	runs  atomic.Int64
}

func (f *fakeRunner) run(_ context.Context, name string, args ...string) error {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()
	f.runs.Add(1)
	time.Sleep(time.Millisecond)
	return nil
}

func (f *fakeRunner) snapshot() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.calls...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func soundDir(t *testing.T) string {
	dir := t.TempDir()
	for _, s := range []session.Sound{session.SoundRequestSent, session.SoundResponsePending} {
		if err := os.WriteFile(filepath.Join(dir, s.String()+".wav"), []byte("RIFF"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestPlayerOneShot(t *testing.T) {
	r := &fakeRunner{}
	p := &Player{Command: "paplay", Dir: soundDir(t), Run: r.run, Logger: log.New(io.Discard)}

	p.Play(session.SoundRequestSent, false)
	waitFor(t, func() bool { return r.runs.Load() == 1 })
	time.Sleep(20 * time.Millisecond)
	if n := r.runs.Load(); n != 1 {
		t.Errorf("one-shot sound played %d times", n)
	}
	got := r.snapshot()[0]
	if got[0] != "paplay" || filepath.Base(got[1]) != "request_sent.wav" {
		t.Errorf("command = %q", got)
	}
}

func TestPlayerLoopUntilStopped(t *testing.T) {
	r := &fakeRunner{}
	p := &Player{Command: "paplay", Dir: soundDir(t), Run: r.run, Logger: log.New(io.Discard)}

	p.Play(session.SoundResponsePending, true)
	waitFor(t, func() bool { return r.runs.Load() >= 3 })
	p.Stop()
	time.Sleep(10 * time.Millisecond)
	n := r.runs.Load()
	time.Sleep(30 * time.Millisecond)
	if r.runs.Load() > n+1 {
		t.Errorf("loop kept playing after Stop: %d -> %d", n, r.runs.Load())
	}
}

func TestPlayerMissingSoundOrCommand(t *testing.T) {
	r := &fakeRunner{}
	p := &Player{Command: "paplay", Dir: t.TempDir(), Run: r.run, Logger: log.New(io.Discard)}
	p.Play(session.SoundResponseReceived, false)
	(&Player{Dir: soundDir(t), Run: r.run}).Play(session.SoundRequestSent, false)
	time.Sleep(20 * time.Millisecond)
	if n := r.runs.Load(); n != 0 {
		t.Errorf("played %d sounds", n)
	}
}

func TestSpeakerKeepsOrder(t *testing.T) {
	r := &fakeRunner{}
	s := &Speaker{Command: "spd-say", Run: r.run}
	t.Cleanup(s.Close)

	for _, text := range []string{"one", " ", "two", "three"} {
		s.Say(text)
	}
	waitFor(t, func() bool { return r.runs.Load() == 3 })
	var said []string
	for _, c := range r.snapshot() {
		said = append(said, c[1])
	}
	if len(said) != 3 || said[0] != "one" || said[1] != "two" || said[2] != "three" {
		t.Errorf("said %q", said)
	}
}

func TestHooksRouteToStatus(t *testing.T) {
	var status []string
	r := &fakeRunner{}
	voice := &Speaker{Command: "say", Run: r.run}
	h := &Hooks{Voice: voice, Status: func(s string) { status = append(status, s) }}
	t.Cleanup(h.Close)

	h.Braille("Hello")
	h.Notify("Copied")
	h.PlaySound(session.SoundRequestSent, false)
	h.StopSound()

	if len(status) != 2 || status[0] != "Hello" || status[1] != "Copied" {
		t.Errorf("status = %q", status)
	}
	waitFor(t, func() bool { return r.runs.Load() == 1 })
}
