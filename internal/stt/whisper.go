package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/voicedesk/internal/audio"
)

const whisperEndpoint = "https://api.openai.com/v1/audio/transcriptions"

// WhisperProvider transcribes batched utterances via OpenAI's Whisper API.
type WhisperProvider struct {
	apiKey string
	client *http.Client
	logger zerolog.Logger
	config *WhisperConfig
}

// WhisperConfig holds Whisper API configuration.
type WhisperConfig struct {
	APIKey   string        `json:"api_key"`
	Endpoint string        `json:"endpoint"`
	Model    string        `json:"model"`
	Language string        `json:"language"` // Optional language hint
	Timeout  time.Duration `json:"timeout"`
}

// DefaultWhisperConfig returns sensible defaults.
func DefaultWhisperConfig() *WhisperConfig {
	return &WhisperConfig{
		Endpoint: whisperEndpoint,
		Model:    "whisper-1",
		Timeout:  30 * time.Second,
	}
}

// NewWhisperProvider creates a Whisper API provider. The API key falls back
// to OPENAI_API_KEY when not configured.
func NewWhisperProvider(config *WhisperConfig, logger zerolog.Logger) *WhisperProvider {
	if config == nil {
		config = DefaultWhisperConfig()
	}

	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	return &WhisperProvider{
		apiKey: apiKey,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger.With().Str("provider", "whisper").Logger(),
		config: config,
	}
}

// Name returns the provider identifier.
func (p *WhisperProvider) Name() string {
	return "whisper"
}

// Transcribe uploads the utterance as a WAV file and returns its transcript.
func (p *WhisperProvider) Transcribe(ctx context.Context, req *TranscribeRequest) (*TranscribeResponse, error) {
	startTime := time.Now()

	if p.apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key not configured", ErrProviderUnavailable)
	}
	if len(req.Audio) == 0 {
		return nil, ErrAudioTooShort
	}

	sampleRate := req.SampleRate
	if sampleRate == 0 {
		sampleRate = 16000
	}
	wavData, err := audio.EncodeWAV(pcmToSamples(req.Audio), sampleRate)
	if err != nil {
		return nil, fmt.Errorf("encode audio: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(wavData); err != nil {
		return nil, fmt.Errorf("write audio data: %w", err)
	}
	if err := writer.WriteField("model", p.config.Model); err != nil {
		return nil, fmt.Errorf("write model field: %w", err)
	}
	language := req.Language
	if language == "" {
		language = p.config.Language
	}
	if language != "" {
		if err := writer.WriteField("language", language); err != nil {
			return nil, fmt.Errorf("write language field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	endpoint := p.config.Endpoint
	if endpoint == "" {
		endpoint = whisperEndpoint
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		p.logger.Error().Int("status", resp.StatusCode).Str("body", string(body)).Msg("Whisper API error")
		return nil, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	processingTime := time.Since(startTime)
	p.logger.Info().Str("text", result.Text).Dur("time", processingTime).Msg("Transcription complete")

	return &TranscribeResponse{
		Text:           result.Text,
		Confidence:     0.95, // Whisper doesn't report confidence
		Language:       language,
		Duration:       time.Duration(len(req.Audio)/2) * time.Second / time.Duration(sampleRate),
		ProcessingTime: processingTime,
	}, nil
}

// Health reports whether the provider is configured.
func (p *WhisperProvider) Health(ctx context.Context) error {
	if p.apiKey == "" {
		return fmt.Errorf("%w: OpenAI API key not configured", ErrProviderUnavailable)
	}
	return nil
}

// pcmToSamples converts little-endian 16-bit PCM bytes to samples.
func pcmToSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[2*i]) | int16(data[2*i+1])<<8
	}
	return samples
}
