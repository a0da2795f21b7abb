package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"sightline/internal/attach"
	"sightline/internal/backend"
	"sightline/internal/capture"
	"sightline/internal/config"
	"sightline/internal/models"
)

var (
	recordSeconds int
	recordPrompt  string
	keepVideo     bool
	screenPrompt  string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record the screen, then print the model's analysis",
	Long: `Record the screen for a fixed time, upload the clip, wait for it to be
processed and print the analysis. The remote file and, unless --keep is
set, the local clip are deleted afterwards.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()
		be, err := a.backend()
		if err != nil {
			return err
		}

		d := time.Duration(recordSeconds) * time.Second
		if d <= 0 || d > a.cfg.CaptureMax {
			return fmt.Errorf("--seconds must be between 1 and %d", int(a.cfg.CaptureMax.Seconds()))
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(cmd.ErrOrStderr(), "Recording for %d seconds...\n", recordSeconds)
		path, err := recordFor(cmd.Context(), a.cfg, a.logger, d)
		if err != nil {
			return err
		}
		if !keepVideo {
			defer os.Remove(path)
		}
		if info, err := os.Stat(path); err == nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Uploading %s...\n", humanize.Bytes(uint64(info.Size())))
		}

		text, err := analyzeVideo(cmd.Context(), be, a.cfg, a.logger, path, recordPrompt)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, text)
		return nil
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe-screen",
	Short: "Take a screenshot and print a description of it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.Close()
		be, err := a.backend()
		if err != nil {
			return err
		}

		path, err := capture.Screenshot(a.cfg.DataDir, a.cfg.Display, a.cfg.ImageScale)
		if err != nil {
			return fmt.Errorf("screenshot: %w", err)
		}
		defer os.Remove(path)

		text, err := describeImage(cmd.Context(), be, a.cfg, path, screenPrompt)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

func init() {
	recordCmd.Flags().IntVarP(&recordSeconds, "seconds", "s", 10, "Recording length in seconds")
	recordCmd.Flags().StringVarP(&recordPrompt, "prompt", "p", models.VideoAnalysisPrompt, "Prompt sent with the clip")
	recordCmd.Flags().BoolVar(&keepVideo, "keep", false, "Keep the local clip")
	describeCmd.Flags().StringVarP(&screenPrompt, "prompt", "p", models.DefaultScreenshotPrompt, "Prompt sent with the screenshot")
	rootCmd.AddCommand(recordCmd, describeCmd)
}

type recording struct {
	path string
	err  error
}

// recordFor records for d and returns the encoded clip. Interrupting ctx
// discards the recording.
func recordFor(ctx context.Context, cfg *config.Config, logger *log.Logger, d time.Duration) (string, error) {
	finished := make(chan recording, 1)
	rec := capture.NewRecorder(cfg.RecorderConfig(),
		capture.WithLogger(logger),
		capture.OnFinish(func(path string, err error) { finished <- recording{path, err} }),
	)
	if err := rec.Start(); err != nil {
		return "", err
	}

	select {
	case <-ctx.Done():
		if path, err := rec.Stop(); err == nil {
			os.Remove(path)
		}
		return "", ctx.Err()
	case r := <-finished:
		return r.path, r.err
	case <-time.After(d):
	}
	path, err := rec.Stop()
	if errors.Is(err, capture.ErrNotRecording) {
		r := <-finished
		return r.path, r.err
	}
	return path, err
}

func request(cfg *config.Config, parts ...models.Part) models.CompletionRequest {
	turns := []models.Turn{{Role: models.RoleUser, Parts: parts}}
	return models.NewCompletionRequest(cfg.Model, cfg.SystemPrompt, turns, cfg.Params(), false)
}

func describeImage(ctx context.Context, be backend.Backend, cfg *config.Config, path, prompt string) (string, error) {
	img, err := attach.Encode(path)
	if err != nil {
		return "", err
	}
	return be.Generate(ctx, request(cfg, img, models.TextPart(prompt)))
}

// analyzeVideo uploads path, waits until the backend has processed it and
// asks prompt about it. The remote file is always deleted.
func analyzeVideo(ctx context.Context, be backend.Backend, cfg *config.Config, logger *log.Logger, path, prompt string) (string, error) {
	mime := attach.VideoMIME(path)
	f, err := be.Upload(ctx, path, mime)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", path, err)
	}
	name := f.Name
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := be.DeleteFile(dctx, name); err != nil {
			logger.Warn("delete remote file", "name", name, "err", err)
		}
	}()

	for f.State == backend.FileProcessing {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(cfg.UploadPoll):
		}
		if f, err = be.GetFile(ctx, name); err != nil {
			return "", fmt.Errorf("poll %s: %w", path, err)
		}
	}
	if f.State == backend.FileFailed {
		return "", backend.ErrFileFailed
	}
	logger.Info("video processed", "name", f.Name, "uri", f.URI)

	video, err := attach.EncodeVideoRef(models.VideoRef{Path: path, Handle: f.URI})
	if err != nil {
		return "", err
	}
	return be.Generate(ctx, request(cfg, video, models.TextPart(prompt)))
}
