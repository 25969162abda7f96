// Package stt provides speech-to-text transcription for VoiceDesk.
package stt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Common errors
var (
	ErrProviderUnavailable = errors.New("STT provider unavailable")
	ErrAudioTooShort       = errors.New("audio too short for transcription")
	ErrNoSpeech            = errors.New("no speech recognized")
	ErrTimeout             = errors.New("transcription timeout")
)

// Provider is the interface all STT providers implement.
type Provider interface {
	// Name returns the provider identifier (e.g., "whisper", "deepgram")
	Name() string

	// Transcribe converts one utterance of audio to text
	Transcribe(ctx context.Context, req *TranscribeRequest) (*TranscribeResponse, error)

	// Health checks if the provider is usable
	Health(ctx context.Context) error
}

// TranscribeRequest carries one captured utterance.
type TranscribeRequest struct {
	Audio      []byte `json:"-"`                  // Raw 16-bit mono PCM, little-endian
	SampleRate int    `json:"sample_rate"`        // Sample rate in Hz
	Language   string `json:"language,omitempty"` // Language code (e.g., "en")
}

// TranscribeResponse is a transcription result.
type TranscribeResponse struct {
	Text           string        `json:"text"`
	Confidence     float64       `json:"confidence"`
	Language       string        `json:"language"`
	Duration       time.Duration `json:"duration"`
	ProcessingTime time.Duration `json:"processing_time"`
}

// Config holds STT configuration.
type Config struct {
	Provider       string `json:"provider"` // whisper or deepgram
	Language       string `json:"language"`
	WhisperAPIKey  string `json:"whisper_api_key"`
	DeepgramAPIKey string `json:"deepgram_api_key"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider: "whisper",
		Language: "en",
	}
}

// NewProvider constructs the configured transcription provider.
func NewProvider(cfg *Config, logger zerolog.Logger) (Provider, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	switch cfg.Provider {
	case "", "whisper":
		wc := DefaultWhisperConfig()
		wc.APIKey = cfg.WhisperAPIKey
		wc.Language = cfg.Language
		return NewWhisperProvider(wc, logger), nil
	case "deepgram":
		dc := DefaultDeepgramConfig()
		dc.APIKey = cfg.DeepgramAPIKey
		if cfg.Language != "" {
			dc.Language = cfg.Language
		}
		return NewDeepgramProvider(dc, logger), nil
	default:
		return nil, fmt.Errorf("unknown STT provider %q", cfg.Provider)
	}
}
