package capture

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/kbinani/screenshot"
	"golang.org/x/image/draw"
)

// Files matching these patterns are temporary and may be purged.
var TempPatterns = []string{"screenshot_*.png", "object_*.png", "capture_*.mp4"}

const regionMinSide = 100

var captureDisplay = screenshot.CaptureDisplay

// Screenshot captures display (0 is the primary) and saves it as a PNG in
// dir.
func Screenshot(dir string, display int, scale float64) (string, error) {
	img, err := captureDisplay(display)
	if err != nil {
		return "", fmt.Errorf("capture display %d: %w", display, err)
	}
	return saveShot(dir, "screenshot", downscale(img, scale, false))
}

// Region captures rect in screen coordinates. Regions with a side of 100
// pixels or less are kept at full size.
func Region(dir string, rect image.Rectangle, scale float64) (string, error) {
	if rect.Empty() {
		return "", fmt.Errorf("empty region %v", rect)
	}
	img, err := screenshot.CaptureRect(rect)
	if err != nil {
		return "", fmt.Errorf("capture region %v: %w", rect, err)
	}
	return saveShot(dir, "object", scaleRegion(img, scale))
}

func scaleRegion(img *image.RGBA, scale float64) *image.RGBA {
	size := img.Bounds().Size()
	if size.X > regionMinSide && size.Y > regionMinSide {
		return downscale(img, scale, false)
	}
	return img
}

func saveShot(dir, prefix string, img image.Image) (string, error) {
	f, err := os.CreateTemp(dir, prefix+"_"+time.Now().Format("20060102_150405")+"_*.png")
	if err != nil {
		return "", err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("encode %s: %w", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return f.Name(), nil
}

// PurgeStale removes temporary capture files left in dir and returns how
// many were deleted. Files in keep, by cleaned path, are left alone.
func PurgeStale(dir string, keep map[string]bool) (int, error) {
	removed := 0
	var firstErr error
	for _, pattern := range TempPatterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return removed, err
		}
		for _, m := range matches {
			if keep[filepath.Clean(m)] {
				continue
			}
			if err := os.Remove(m); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			removed++
		}
	}
	return removed, firstErr
}

// downscale shrinks img by scale with bilinear filtering. With even set
// both dimensions are rounded down to even numbers, as yuv420p requires.
func downscale(img *image.RGBA, scale float64, even bool) *image.RGBA {
	size := img.Bounds().Size()
	w, h := size.X, size.Y
	if scale > 0 && scale < 1 {
		w = int(float64(w) * scale)
		h = int(float64(h) * scale)
	}
	if even {
		w &^= 1
		h &^= 1
	}
	w = max(w, 2)
	h = max(h, 2)
	if w == size.X && h == size.Y {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
