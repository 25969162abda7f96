// Package tts provides text-to-speech output for VoiceDesk. Two engines are
// available: a local one driving the platform speech command, and a cloud one
// synthesizing through OpenAI and playing the result locally.
package tts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Common errors
var (
	ErrProviderUnavailable = errors.New("TTS engine unavailable")
	ErrEmptyText           = errors.New("nothing to speak")
)

// Engine renders text as audible speech. Speak blocks until playback
// completes or the context is cancelled.
type Engine interface {
	Name() string
	Speak(ctx context.Context, text string) error
	Health(ctx context.Context) error
}

// Config holds TTS configuration.
type Config struct {
	Engine   string        `json:"engine"` // local or cloud
	VoiceID  string        `json:"voice_id"`
	Speed    float64       `json:"speed"`      // cloud engine, 0.25 to 4.0
	Rate     int           `json:"rate"`       // local engine, words per minute
	CloudKey string        `json:"cloud_key"`  // cloud engine API key
	Timeout  time.Duration `json:"timeout"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Engine:  "local",
		Speed:   1.0,
		Rate:    175,
		Timeout: 30 * time.Second,
	}
}

// NewEngine constructs the configured speech engine.
func NewEngine(cfg *Config, logger zerolog.Logger) (Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	switch cfg.Engine {
	case "", "local":
		lc := DefaultLocalConfig()
		if cfg.VoiceID != "" {
			lc.Voice = cfg.VoiceID
		}
		if cfg.Rate > 0 {
			lc.Rate = cfg.Rate
		}
		return NewLocalEngine(lc, logger), nil
	case "cloud":
		cc := DefaultCloudConfig()
		cc.APIKey = cfg.CloudKey
		if cfg.VoiceID != "" {
			cc.Voice = cfg.VoiceID
		}
		if cfg.Speed > 0 {
			cc.Speed = cfg.Speed
		}
		if cfg.Timeout > 0 {
			cc.Timeout = cfg.Timeout
		}
		return NewCloudEngine(cc, logger), nil
	default:
		return nil, fmt.Errorf("unknown TTS engine %q", cfg.Engine)
	}
}
