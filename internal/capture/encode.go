package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Encoder writes frames to a video file at path.
type Encoder interface {
	Name() string
	Encode(ctx context.Context, frames []*image.RGBA, fps int, path string) error
}

// EncodeError records which encoder failed.
type EncodeError struct {
	Encoder string
	Err     error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encoder %s: %v", e.Encoder, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// EncodeChain tries encoders in order and stops at the first one that
// leaves a non-empty file at path. When all fail the errors are joined.
func EncodeChain(ctx context.Context, encoders []Encoder, frames []*image.RGBA, fps int, path string) error {
	if len(encoders) == 0 {
		return errors.New("no encoders configured")
	}
	var errs []error
	for _, enc := range encoders {
		err := enc.Encode(ctx, frames, fps, path)
		if err == nil {
			err = nonEmpty(path)
		}
		if err == nil {
			return nil
		}
		_ = os.Remove(path)
		errs = append(errs, &EncodeError{Encoder: enc.Name(), Err: err})
		if ctx.Err() != nil {
			break
		}
	}
	return errors.Join(errs...)
}

func nonEmpty(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if fi.Size() == 0 {
		return fmt.Errorf("%s is empty", path)
	}
	return nil
}

// FFmpegEncoder pipes raw RGBA frames into an ffmpeg process.
type FFmpegEncoder struct {
	Path  string // ffmpeg binary, "ffmpeg" when empty
	Codec string
}

func (f FFmpegEncoder) Name() string {
	return "ffmpeg/" + f.Codec
}

func (f FFmpegEncoder) Encode(ctx context.Context, frames []*image.RGBA, fps int, path string) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}
	bin := f.Path
	if bin == "" {
		bin = "ffmpeg"
	}
	size := frames[0].Bounds().Size()

	cmd := exec.CommandContext(ctx, bin,
		"-y", "-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", size.X, size.Y),
		"-r", strconv.Itoa(fps),
		"-i", "-",
		"-c:v", f.Codec,
		"-pix_fmt", "yuv420p",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", bin, err)
	}

	writeErr := writeFrames(stdin, frames, size)
	closeErr := stdin.Close()
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if writeErr != nil {
		return writeErr
	}
	return closeErr
}

func writeFrames(w io.Writer, frames []*image.RGBA, size image.Point) error {
	rowLen := size.X * 4
	for i, fr := range frames {
		if fr.Bounds().Size() != size {
			return fmt.Errorf("frame %d is %v, want %v", i, fr.Bounds().Size(), size)
		}
		if fr.Stride == rowLen {
			if _, err := w.Write(fr.Pix[:rowLen*size.Y]); err != nil {
				return err
			}
			continue
		}
		for y := 0; y < size.Y; y++ {
			off := y * fr.Stride
			if _, err := w.Write(fr.Pix[off : off+rowLen]); err != nil {
				return err
			}
		}
	}
	return nil
}

// DefaultEncoders prefers H.264 and falls back to MPEG-4 part 2.
func DefaultEncoders(ffmpeg string) []Encoder {
	return []Encoder{
		FFmpegEncoder{Path: ffmpeg, Codec: "libx264"},
		FFmpegEncoder{Path: ffmpeg, Codec: "mpeg4"},
	}
}
