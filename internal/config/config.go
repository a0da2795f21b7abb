package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"

	"sightline/internal/capture"
	"sightline/internal/models"
	"sightline/internal/session"
)

type Config struct {
	// Storage
	DataDir string `env:"SIGHTLINE_DATA_DIR"`

	// Backend
	BaseURL         string  `env:"SIGHTLINE_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta/openai/"`
	Model           string  `env:"SIGHTLINE_MODEL" envDefault:"gemini-2.5-flash"`
	Temperature     float64 `env:"SIGHTLINE_TEMPERATURE" envDefault:"1.0"`
	TopP            float64 `env:"SIGHTLINE_TOP_P" envDefault:"0.95"`
	TopK            int     `env:"SIGHTLINE_TOP_K" envDefault:"40"`
	MaxOutputTokens int     `env:"SIGHTLINE_MAX_TOKENS" envDefault:"8192"`
	SystemPrompt    string  `env:"SIGHTLINE_SYSTEM_PROMPT"`

	// Conversation
	Stream           bool          `env:"SIGHTLINE_STREAM" envDefault:"true"`
	ConversationMode bool          `env:"SIGHTLINE_CONVERSATION_MODE" envDefault:"true"`
	FilterMarkdown   bool          `env:"SIGHTLINE_FILTER_MARKDOWN" envDefault:"true"`
	UploadPoll       time.Duration `env:"SIGHTLINE_UPLOAD_POLL" envDefault:"2s"`

	// Feedback
	Sounds       bool   `env:"SIGHTLINE_SOUNDS" envDefault:"true"`
	Speech       bool   `env:"SIGHTLINE_SPEECH" envDefault:"true"`
	Braille      bool   `env:"SIGHTLINE_BRAILLE" envDefault:"true"`
	SoundCommand string `env:"SIGHTLINE_SOUND_COMMAND"`
	SpeechCmd    string `env:"SIGHTLINE_SPEECH_COMMAND"`
	SoundDir     string `env:"SIGHTLINE_SOUND_DIR"`

	// Capture
	CaptureFPS int           `env:"SIGHTLINE_CAPTURE_FPS" envDefault:"10"`
	CaptureMax time.Duration `env:"SIGHTLINE_CAPTURE_MAX" envDefault:"60s"`
	ImageScale float64       `env:"SIGHTLINE_IMAGE_SCALE" envDefault:"0.5"`
	FFmpegPath string        `env:"SIGHTLINE_FFMPEG" envDefault:"ffmpeg"`
	Display    int           `env:"SIGHTLINE_DISPLAY" envDefault:"0"`

	// Logging
	LogLevel string `env:"SIGHTLINE_LOG_LEVEL" envDefault:"info"`
}

func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads the configuration from environ instead of the process
// environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.DataDir == "" {
		dir, err := defaultDataDir()
		if err != nil {
			return nil, err
		}
		cfg.DataDir = dir
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = models.DefaultSystemPrompt
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultDataDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, herr := os.UserHomeDir()
		if herr != nil {
			return "", err
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "sightline"), nil
}

func (c *Config) Params() models.GenerationParams {
	return models.GenerationParams{
		Temperature:     c.Temperature,
		TopP:            c.TopP,
		TopK:            c.TopK,
		MaxOutputTokens: c.MaxOutputTokens,
	}
}

func (c *Config) Validate() error {
	var errs []error
	if err := c.Params().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.CaptureFPS < 1 || c.CaptureFPS > 60 {
		errs = append(errs, fmt.Errorf("capture fps %d out of range [1,60]", c.CaptureFPS))
	}
	if c.CaptureMax <= 0 {
		errs = append(errs, fmt.Errorf("capture max duration must be positive"))
	}
	if c.ImageScale <= 0 || c.ImageScale > 1 {
		errs = append(errs, fmt.Errorf("image scale %.2f out of range (0,1]", c.ImageScale))
	}
	if c.UploadPoll <= 0 {
		errs = append(errs, fmt.Errorf("upload poll interval must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) SessionOptions() session.Options {
	return session.Options{
		Model:            c.Model,
		System:           c.SystemPrompt,
		Params:           c.Params(),
		Stream:           c.Stream,
		ConversationMode: c.ConversationMode,
		FilterMarkdown:   c.FilterMarkdown,
		Sounds:           c.Sounds,
		Speech:           c.Speech,
		Braille:          c.Braille,
		PollInterval:     c.UploadPoll,
	}
}

func (c *Config) RecorderConfig() capture.RecorderConfig {
	return capture.RecorderConfig{
		Dir:         c.DataDir,
		FPS:         c.CaptureFPS,
		MaxDuration: c.CaptureMax,
		Scale:       c.ImageScale,
		FFmpegPath:  c.FFmpegPath,
		Display:     c.Display,
	}
}

func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "sightline.log")
}
