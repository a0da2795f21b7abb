// Package attach turns image and video files into request parts.
package attach

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sightline/internal/models"
)

const (
	DefaultImageMIME = "image/jpeg"
	DefaultVideoMIME = "video/mp4"
)

var ImageMIMETypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

var VideoMIMETypes = map[string]string{
	".mp4":  "video/mp4",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".mov":  "video/mov",
	".avi":  "video/avi",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".wmv":  "video/wmv",
	".3gp":  "video/3gpp",
	".3gpp": "video/3gpp",
}

// EncodeError reports an attachment that could not be turned into a part.
type EncodeError struct {
	Path string
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("attach %s: %v", e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// ImageMIME resolves an image MIME type, falling back to image/jpeg.
func ImageMIME(path string) string {
	if mime, ok := ImageMIMETypes[ext(path)]; ok {
		return mime
	}
	return DefaultImageMIME
}

// VideoMIME resolves a video MIME type, falling back to video/mp4.
func VideoMIME(path string) string {
	if mime, ok := VideoMIMETypes[ext(path)]; ok {
		return mime
	}
	return DefaultVideoMIME
}

func IsVideo(path string) bool {
	_, ok := VideoMIMETypes[ext(path)]
	return ok
}

// Encode reads an image and returns it as an inline part.
func Encode(path string) (models.Part, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Part{}, &EncodeError{Path: path, Err: err}
	}
	if len(data) == 0 {
		return models.Part{}, &EncodeError{Path: path, Err: fmt.Errorf("empty file")}
	}
	return models.InlinePart(data, ImageMIME(path)), nil
}

// EncodeVideoRef returns a remote file part for an uploaded video.
func EncodeVideoRef(ref models.VideoRef) (models.Part, error) {
	if ref.Handle == "" {
		return models.Part{}, &EncodeError{Path: ref.Path, Err: fmt.Errorf("video was never uploaded")}
	}
	return models.FilePart(ref.Handle, VideoMIME(ref.Path)), nil
}
