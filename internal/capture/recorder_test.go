package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

type fakeGrabber struct {
	grabs atomic.Int64
	fail  bool
}

func (g *fakeGrabber) Grab() (*image.RGBA, error) {
	g.grabs.Add(1)
	if g.fail {
		return nil, errors.New("no display")
	}
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	return img, nil
}

type fakeEncoder struct {
	name  string
	fail  bool
	mu    sync.Mutex
	calls int
	seen  int
}

func (e *fakeEncoder) Name() string { return e.name }

func (e *fakeEncoder) Encode(_ context.Context, frames []*image.RGBA, _ int, path string) error {
	e.mu.Lock()
	e.calls++
	e.seen = len(frames)
	e.mu.Unlock()
	if e.fail {
		return errors.New(e.name + " exploded")
	}
	return os.WriteFile(path, []byte("video"), 0o644)
}

func newTestRecorder(t *testing.T, cfg RecorderConfig, opts ...Option) *Recorder {
	t.Helper()
	if cfg.Dir == "" {
		cfg.Dir = t.TempDir()
	}
	if cfg.FPS == 0 {
		cfg.FPS = 50
	}
	base := []Option{
		WithGrabber(&fakeGrabber{}),
		WithEncoders(&fakeEncoder{name: "ok"}),
		WithProbe(func() error { return nil }),
		WithLogger(log.New(io.Discard)),
	}
	r := NewRecorder(cfg, append(base, opts...)...)
	t.Cleanup(func() { r.Stop() })
	return r
}

func TestStopWhenIdle(t *testing.T) {
	r := newTestRecorder(t, RecorderConfig{})
	path, err := r.Stop()
	if !errors.Is(err, ErrNotRecording) || path != "" {
		t.Errorf("Stop() = %q, %v", path, err)
	}
	if r.Recording() {
		t.Error("idle Stop started a recording")
	}
}

func TestDoubleStartKeepsOneRecording(t *testing.T) {
	g := &fakeGrabber{}
	r := newTestRecorder(t, RecorderConfig{}, WithGrabber(g))

	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	if err := r.Start(); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("second Start = %v", err)
	}
	time.Sleep(60 * time.Millisecond)

	path, err := r.Stop()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(filepath.Base(path), "capture_") || filepath.Ext(path) != ".mp4" {
		t.Errorf("output path = %q", path)
	}
	if g.grabs.Load() == 0 {
		t.Error("no frames grabbed")
	}
	if _, err := r.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Stop after Stop = %v", err)
	}
}

func TestStartUnavailable(t *testing.T) {
	r := newTestRecorder(t, RecorderConfig{}, WithProbe(func() error { return exec.ErrNotFound }))
	err := r.Start()
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Start = %v, want ErrUnavailable", err)
	}
	if r.Recording() {
		t.Error("recording despite failed probe")
	}
}

func TestNoFrames(t *testing.T) {
	r := newTestRecorder(t, RecorderConfig{}, WithGrabber(&fakeGrabber{fail: true}))
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, err := r.Stop(); !errors.Is(err, ErrNoFrames) {
		t.Errorf("Stop = %v, want ErrNoFrames", err)
	}
}

func TestEncoderFallback(t *testing.T) {
	primary := &fakeEncoder{name: "primary", fail: true}
	secondary := &fakeEncoder{name: "secondary"}
	r := newTestRecorder(t, RecorderConfig{}, WithEncoders(primary, secondary))

	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	path, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop = %v", err)
	}
	fi, err := os.Stat(path)
	if err != nil || fi.Size() == 0 {
		t.Errorf("output %q missing or empty: %v", path, err)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Errorf("calls primary=%d secondary=%d", primary.calls, secondary.calls)
	}
}

func TestAllEncodersFail(t *testing.T) {
	r := newTestRecorder(t, RecorderConfig{}, WithEncoders(
		&fakeEncoder{name: "a", fail: true},
		&fakeEncoder{name: "b", fail: true},
	))
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(30 * time.Millisecond)
	_, err := r.Stop()
	if err == nil {
		t.Fatal("Stop succeeded with no working encoder")
	}
	var ee *EncodeError
	if !errors.As(err, &ee) {
		t.Errorf("error %v carries no EncodeError", err)
	}
	if !strings.Contains(err.Error(), "a exploded") || !strings.Contains(err.Error(), "b exploded") {
		t.Errorf("joined error = %v", err)
	}
}

func TestEncoderMustLeaveAFile(t *testing.T) {
	dir := t.TempDir()
	lazy := encoderFunc(func(string) error { return nil })
	frames := []*image.RGBA{image.NewRGBA(image.Rect(0, 0, 2, 2))}
	err := EncodeChain(context.Background(), []Encoder{lazy}, frames, 10, filepath.Join(dir, "x.mp4"))
	if err == nil {
		t.Error("encoder that wrote nothing counted as success")
	}
}

type encoderFunc func(path string) error

func (encoderFunc) Name() string { return "func" }
func (f encoderFunc) Encode(_ context.Context, _ []*image.RGBA, _ int, path string) error {
	return f(path)
}

func TestAutoStopAtMaxDuration(t *testing.T) {
	type result struct {
		path string
		err  error
	}
	finished := make(chan result, 1)
	enc := &fakeEncoder{name: "ok"}
	r := newTestRecorder(t,
		RecorderConfig{MaxDuration: 100 * time.Millisecond},
		WithEncoders(enc),
		OnFinish(func(path string, err error) { finished <- result{path, err} }),
	)

	start := time.Now()
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	var res result
	select {
	case res = <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("recording never stopped on its own")
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("stopped after %v", elapsed)
	}
	if res.err != nil {
		t.Fatalf("auto-stop encode: %v", res.err)
	}
	fi, err := os.Stat(res.path)
	if err != nil || fi.Size() == 0 {
		t.Errorf("auto-stop output %q missing or empty", res.path)
	}
	if r.Recording() {
		t.Error("still recording after auto-stop")
	}
	if _, err := r.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Stop after auto-stop = %v", err)
	}
}

func TestDownscale(t *testing.T) {
	tests := []struct {
		w, h  int
		scale float64
		even  bool
		want  image.Point
	}{
		{101, 75, 0.5, true, image.Pt(50, 36)},
		{101, 75, 0.5, false, image.Pt(50, 37)},
		{64, 48, 1, true, image.Pt(64, 48)},
		{65, 49, 1, true, image.Pt(64, 48)},
	}
	for _, tt := range tests {
		src := image.NewRGBA(image.Rect(0, 0, tt.w, tt.h))
		if got := downscale(src, tt.scale, tt.even).Bounds().Size(); got != tt.want {
			t.Errorf("downscale(%dx%d, %v, %v) = %v, want %v", tt.w, tt.h, tt.scale, tt.even, got, tt.want)
		}
	}
}

func TestRegionScaling(t *testing.T) {
	small := image.NewRGBA(image.Rect(0, 0, 80, 300))
	if got := scaleRegion(small, 0.5).Bounds().Size(); got != image.Pt(80, 300) {
		t.Errorf("narrow region scaled to %v", got)
	}
	big := image.NewRGBA(image.Rect(0, 0, 200, 300))
	if got := scaleRegion(big, 0.5).Bounds().Size(); got != image.Pt(100, 150) {
		t.Errorf("large region scaled to %v", got)
	}
}

func TestSaveShotAndPurge(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})

	path, err := saveShot(dir, "screenshot", img)
	if err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := png.Decode(f)
	f.Close()
	if err != nil || decoded.Bounds().Size() != image.Pt(10, 10) {
		t.Fatalf("decoded %v, %v", decoded, err)
	}

	if _, err := saveShot(dir, "object", img); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"capture_20250101_000000.mp4", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	keep := map[string]bool{filepath.Clean(path): true}
	n, err := PurgeStale(dir, keep)
	if err != nil || n != 2 {
		t.Errorf("PurgeStale = %d, %v; want 2", n, err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("kept screenshot removed")
	}

	n, err = PurgeStale(dir, nil)
	if err != nil || n != 1 {
		t.Errorf("PurgeStale without keep = %d, %v; want 1", n, err)
	}
	left, _ := os.ReadDir(dir)
	if len(left) != 1 || left[0].Name() != "notes.txt" {
		t.Errorf("left behind %v", left)
	}
}

func TestScreenshotUsesDisplay(t *testing.T) {
	prev := captureDisplay
	t.Cleanup(func() { captureDisplay = prev })
	var asked []int
	captureDisplay = func(n int) (*image.RGBA, error) {
		asked = append(asked, n)
		return image.NewRGBA(image.Rect(0, 0, 40, 20)), nil
	}

	path, err := Screenshot(t.TempDir(), 2, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if len(asked) != 1 || asked[0] != 2 {
		t.Errorf("captured displays %v, want [2]", asked)
	}
	if !strings.HasPrefix(filepath.Base(path), "screenshot_") {
		t.Errorf("path = %q", path)
	}
}

func TestFFmpegEncoder(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	frames := make([]*image.RGBA, 5)
	for i := range frames {
		frames[i] = image.NewRGBA(image.Rect(0, 0, 32, 16))
	}
	path := filepath.Join(t.TempDir(), "capture_test.mp4")
	if err := EncodeChain(context.Background(), DefaultEncoders(""), frames, 10, path); err != nil {
		t.Fatal(err)
	}
}
