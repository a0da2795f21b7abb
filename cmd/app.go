package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"sightline/internal/backend"
	"sightline/internal/config"
	"sightline/internal/feedback"
	"sightline/internal/keystore"
	"sightline/internal/logging"
)

// app holds what every command needs: configuration and the file logger.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	closer io.Closer
}

var keys = keystore.New

func setup() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	logger, closer, err := logging.OpenFile(cfg.LogPath(), cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, closer: closer}, nil
}

func (a *app) Close() {
	if a.closer != nil {
		_ = a.closer.Close()
	}
}

func (a *app) backend() (*backend.OpenAI, error) {
	key, source, err := keys().Get()
	if err != nil {
		return nil, fmt.Errorf("%w: run 'sightline key set' or export GEMINI_API_KEY", err)
	}
	a.logger.Info("api key loaded", "source", source)
	return backend.NewOpenAI(key, a.cfg.BaseURL), nil
}

// newFeedback picks the sound and speech commands, detecting them on PATH
// unless configured.
func newFeedback(cfg *config.Config, logger *log.Logger) *feedback.Hooks {
	h := &feedback.Hooks{}
	if cfg.Sounds {
		command := cfg.SoundCommand
		if command == "" {
			command = feedback.DetectSoundCommand()
		}
		dir := cfg.SoundDir
		if dir == "" {
			dir = filepath.Join(cfg.DataDir, "sounds")
		}
		h.Sounds = &feedback.Player{Command: command, Dir: dir, Logger: logger}
	}
	if cfg.Speech {
		command := cfg.SpeechCmd
		if command == "" {
			command = feedback.DetectSpeechCommand()
		}
		h.Voice = &feedback.Speaker{Command: command, Logger: logger}
	}
	logger.Debug("feedback configured", "sounds", h.Sounds != nil, "speech", h.Voice != nil)
	return h
}
