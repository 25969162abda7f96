package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/rs/zerolog"
)

const cloudEndpoint = "https://api.openai.com/v1/audio/speech"

// OpenAI TTS voices
const (
	VoiceAlloy   = "alloy"   // Neutral, balanced
	VoiceEcho    = "echo"    // Male, warm
	VoiceFable   = "fable"   // British, expressive
	VoiceOnyx    = "onyx"    // Male, deep
	VoiceNova    = "nova"    // Female, warm and natural
	VoiceShimmer = "shimmer" // Female, clear and bright
)

// The speaker device is process-wide and initialized once, at the sample
// rate of the first synthesized clip. Later clips at other rates are
// resampled.
var (
	speakerOnce sync.Once
	speakerRate beep.SampleRate
	speakerErr  error
)

// CloudEngine synthesizes speech through OpenAI's TTS API and plays the MP3
// result on the local audio device.
type CloudEngine struct {
	apiKey string
	client *http.Client
	logger zerolog.Logger
	config *CloudConfig
}

// CloudConfig holds cloud engine configuration.
type CloudConfig struct {
	APIKey   string        `json:"api_key"`
	Endpoint string        `json:"endpoint"`
	Model    string        `json:"model"` // tts-1 or tts-1-hd
	Voice    string        `json:"voice"`
	Speed    float64       `json:"speed"` // 0.25 to 4.0
	Timeout  time.Duration `json:"timeout"`
}

// DefaultCloudConfig returns sensible defaults.
func DefaultCloudConfig() *CloudConfig {
	return &CloudConfig{
		Endpoint: cloudEndpoint,
		Model:    "tts-1",
		Voice:    VoiceNova,
		Speed:    1.0,
		Timeout:  30 * time.Second,
	}
}

// NewCloudEngine creates a cloud speech engine. The API key falls back to
// OPENAI_API_KEY when not configured.
func NewCloudEngine(config *CloudConfig, logger zerolog.Logger) *CloudEngine {
	if config == nil {
		config = DefaultCloudConfig()
	}

	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	return &CloudEngine{
		apiKey: apiKey,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger.With().Str("provider", "cloud-tts").Logger(),
		config: config,
	}
}

// Name returns the engine identifier.
func (e *CloudEngine) Name() string {
	return "cloud"
}

type synthesizeRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format,omitempty"`
	Speed          float64 `json:"speed,omitempty"`
}

// Speak synthesizes the text and blocks until playback finishes or the
// context is cancelled.
func (e *CloudEngine) Speak(ctx context.Context, text string) error {
	if text == "" {
		return ErrEmptyText
	}

	audioData, err := e.synthesize(ctx, text)
	if err != nil {
		return err
	}
	return e.play(ctx, audioData)
}

// synthesize fetches MP3 audio for the text.
func (e *CloudEngine) synthesize(ctx context.Context, text string) ([]byte, error) {
	if e.apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key not configured", ErrProviderUnavailable)
	}

	startTime := time.Now()

	body, err := json.Marshal(synthesizeRequest{
		Model:          e.config.Model,
		Input:          text,
		Voice:          e.config.Voice,
		ResponseFormat: "mp3",
		Speed:          e.config.Speed,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := e.config.Endpoint
	if endpoint == "" {
		endpoint = cloudEndpoint
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		e.logger.Error().Int("status", resp.StatusCode).Str("body", string(bodyBytes)).Msg("TTS request failed")
		return nil, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	e.logger.Info().
		Str("voice", e.config.Voice).
		Int("audio_bytes", len(audioData)).
		Dur("processing_time", time.Since(startTime)).
		Msg("Synthesis complete")
	return audioData, nil
}

// play decodes the MP3 clip and plays it on the default output device.
func (e *CloudEngine) play(ctx context.Context, audioData []byte) error {
	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(audioData)))
	if err != nil {
		return fmt.Errorf("decode mp3: %w", err)
	}
	defer streamer.Close()

	speakerOnce.Do(func() {
		speakerRate = format.SampleRate
		speakerErr = speaker.Init(speakerRate, speakerRate.N(time.Second/10))
	})
	if speakerErr != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, speakerErr)
	}

	var clip beep.Streamer = streamer
	if format.SampleRate != speakerRate {
		clip = beep.Resample(4, format.SampleRate, speakerRate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(clip, beep.Callback(func() { close(done) })))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

// Health reports whether the engine is configured.
func (e *CloudEngine) Health(ctx context.Context) error {
	if e.apiKey == "" {
		return fmt.Errorf("%w: OpenAI API key not configured", ErrProviderUnavailable)
	}
	return nil
}
