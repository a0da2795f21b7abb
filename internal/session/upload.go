package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sightline/internal/attach"
	"sightline/internal/backend"
	"sightline/internal/models"
)

const cleanupTimeout = 10 * time.Second

// uploadResult is posted when an upload phase ends. Err is set only when
// the phase was aborted; per-file problems land in Failures.
type uploadResult struct {
	ID       string
	Consumed []string
	Uploaded []models.VideoRef
	Names    []string // remote names of Uploaded, for cleanup
	Failures []error
	Err      error
}

func (c *Controller) startUpload(prompt string) {
	ctx, cancel := context.WithCancel(c.ctx)
	c.phaseID = uuid.NewString()
	c.phaseCancel = cancel
	c.phasePrompt = prompt

	paths := append([]string(nil), c.pending.Videos...)
	c.deps.Feedback.Notify(fmt.Sprintf("Uploading %d video(s)", len(paths)))
	c.logger.Info("upload phase started", "phase", c.phaseID, "videos", len(paths))
	go c.uploadAll(ctx, c.phaseID, paths)
}

func (c *Controller) uploadAll(ctx context.Context, id string, paths []string) {
	res := uploadResult{ID: id, Consumed: paths}
	var names []string

	for _, path := range paths {
		rf, err := c.uploadOne(ctx, path)
		if ctx.Err() != nil {
			if rf.Name != "" {
				names = append(names, rf.Name)
			}
			c.rollback(names)
			c.deps.Poster.Post(uploadResult{ID: id, Err: ctx.Err()})
			return
		}
		if err != nil {
			c.logger.Warn("video upload failed", "path", path, "err", err)
			res.Failures = append(res.Failures, fmt.Errorf("%s: %w", path, err))
			continue
		}
		names = append(names, rf.Name)
		res.Uploaded = append(res.Uploaded, models.VideoRef{Path: path, Handle: rf.URI})
	}
	res.Names = names
	c.deps.Poster.Post(res)
}

// uploadOne uploads path and waits until the remote copy leaves the
// processing state.
func (c *Controller) uploadOne(ctx context.Context, path string) (backend.RemoteFile, error) {
	rf, err := c.deps.Backend.Upload(ctx, path, attach.VideoMIME(path))
	if err != nil {
		return backend.RemoteFile{}, err
	}
	for rf.State == backend.FileProcessing {
		select {
		case <-ctx.Done():
			return rf, ctx.Err()
		case <-time.After(c.opts.PollInterval):
		}
		next, err := c.deps.Backend.GetFile(ctx, rf.Name)
		if err != nil {
			return rf, fmt.Errorf("poll %s: %w", rf.Name, err)
		}
		rf = next
	}
	if rf.State == backend.FileFailed {
		return rf, backend.ErrFileFailed
	}
	return rf, nil
}

func (c *Controller) rollback(names []string) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	for _, name := range names {
		if err := c.deps.Backend.DeleteFile(ctx, name); err != nil {
			c.logger.Debug("delete remote file", "name", name, "err", err)
		}
	}
}

// discardUpload drops the result of a phase that is no longer wanted. A
// phase cancelled after its last upload finished never saw the
// cancellation, so its remote files are still there.
func (c *Controller) discardUpload(res uploadResult) {
	c.logger.Debug("discarding stale upload result", "phase", res.ID)
	if res.Err == nil && len(res.Names) > 0 {
		go c.rollback(res.Names)
	}
}

func (c *Controller) applyUpload(res uploadResult) {
	if res.ID == "" || res.ID != c.phaseID {
		c.discardUpload(res)
		return
	}
	c.phaseID = ""
	c.phaseCancel()
	c.phaseCancel = nil
	prompt := c.phasePrompt
	c.phasePrompt = ""

	if res.Err != nil {
		c.deps.Feedback.Notify("Upload cancelled")
		return
	}

	// Captures added while uploading stay queued behind the consumed prefix.
	if len(res.Consumed) <= len(c.pending.Videos) {
		c.pending.Videos = c.pending.Videos[len(res.Consumed):]
	}
	if len(c.pending.Videos) == 0 {
		c.pending.Videos = nil
	}
	c.pending.Uploaded = append(c.pending.Uploaded, res.Uploaded...)
	for _, err := range res.Failures {
		c.deps.Feedback.Notify("Upload failed: " + err.Error())
	}
	c.logger.Info("upload phase finished", "uploaded", len(res.Uploaded), "failed", len(res.Failures))
	c.dispatch(prompt)
}
