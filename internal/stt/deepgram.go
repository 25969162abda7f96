package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	deepgramWSEndpoint = "wss://api.deepgram.com/v1/listen"
	deepgramModel      = "nova-2"
)

// DeepgramProvider transcribes utterances over Deepgram's streaming
// WebSocket API. Each Transcribe call opens a fresh connection, streams the
// utterance, and collects the final transcript.
type DeepgramProvider struct {
	apiKey string
	logger zerolog.Logger
	config *DeepgramConfig
}

// DeepgramConfig holds Deepgram configuration.
type DeepgramConfig struct {
	APIKey     string        `json:"api_key"`
	Endpoint   string        `json:"endpoint"`
	Model      string        `json:"model"`
	Language   string        `json:"language"`
	SampleRate int           `json:"sample_rate"`
	Timeout    time.Duration `json:"timeout"`
}

// DefaultDeepgramConfig returns sensible defaults.
func DefaultDeepgramConfig() *DeepgramConfig {
	return &DeepgramConfig{
		Endpoint:   deepgramWSEndpoint,
		Model:      deepgramModel,
		Language:   "en-US",
		SampleRate: 16000,
		Timeout:    10 * time.Second,
	}
}

// NewDeepgramProvider creates a Deepgram provider. The API key falls back to
// DEEPGRAM_API_KEY when not configured.
func NewDeepgramProvider(config *DeepgramConfig, logger zerolog.Logger) *DeepgramProvider {
	if config == nil {
		config = DefaultDeepgramConfig()
	}

	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("DEEPGRAM_API_KEY")
	}

	return &DeepgramProvider{
		apiKey: apiKey,
		logger: logger.With().Str("provider", "deepgram").Logger(),
		config: config,
	}
}

// Name returns the provider identifier.
func (p *DeepgramProvider) Name() string {
	return "deepgram"
}

type deepgramMessage struct {
	Type        string          `json:"type"`
	Duration    float64         `json:"duration,omitempty"`
	IsFinal     bool            `json:"is_final,omitempty"`
	SpeechFinal bool            `json:"speech_final,omitempty"`
	Channel     deepgramChannel `json:"channel,omitempty"`
}

type deepgramChannel struct {
	Alternatives []deepgramAlternative `json:"alternatives,omitempty"`
}

type deepgramAlternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// Transcribe streams the utterance and waits for the final transcript.
func (p *DeepgramProvider) Transcribe(ctx context.Context, req *TranscribeRequest) (*TranscribeResponse, error) {
	startTime := time.Now()

	if p.apiKey == "" {
		return nil, fmt.Errorf("%w: Deepgram API key not configured", ErrProviderUnavailable)
	}
	if len(req.Audio) == 0 {
		return nil, ErrAudioTooShort
	}

	sampleRate := req.SampleRate
	if sampleRate == 0 {
		sampleRate = p.config.SampleRate
	}

	endpoint := p.config.Endpoint
	if endpoint == "" {
		endpoint = deepgramWSEndpoint
	}
	url := fmt.Sprintf("%s?model=%s&language=%s&encoding=linear16&sample_rate=%d&channels=1&punctuate=true",
		endpoint, p.config.Model, p.config.Language, sampleRate)

	header := http.Header{}
	header.Set("Authorization", "Token "+p.apiKey)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			p.logger.Error().Int("status", resp.StatusCode).Err(err).Msg("Deepgram WebSocket connection failed")
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer conn.Close()

	// Stream audio in ~100ms chunks, then signal end of stream.
	chunkSize := sampleRate * 2 / 10
	for i := 0; i < len(req.Audio); i += chunkSize {
		end := i + chunkSize
		if end > len(req.Audio) {
			end = len(req.Audio)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, req.Audio[i:end]); err != nil {
			return nil, fmt.Errorf("send audio: %w", err)
		}
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type": "CloseStream"}`)); err != nil {
		return nil, fmt.Errorf("close stream: %w", err)
	}

	deadline := time.Now().Add(p.config.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetReadDeadline(deadline)

	var best *TranscribeResponse
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				break
			}
			if best != nil {
				break
			}
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}

		var msg deepgramMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			p.logger.Warn().Err(err).Msg("Failed to parse Deepgram message")
			continue
		}
		if msg.Type != "Results" || len(msg.Channel.Alternatives) == 0 {
			continue
		}

		alt := msg.Channel.Alternatives[0]
		if alt.Transcript == "" {
			continue
		}

		best = &TranscribeResponse{
			Text:           alt.Transcript,
			Confidence:     alt.Confidence,
			Language:       p.config.Language,
			Duration:       time.Duration(msg.Duration * float64(time.Second)),
			ProcessingTime: time.Since(startTime),
		}
		if msg.IsFinal || msg.SpeechFinal {
			break
		}
	}

	if best == nil {
		return nil, ErrNoSpeech
	}

	p.logger.Info().Str("text", best.Text).Float64("confidence", best.Confidence).Msg("Transcription complete")
	best.ProcessingTime = time.Since(startTime)
	return best, nil
}

// Health reports whether the provider is configured.
func (p *DeepgramProvider) Health(ctx context.Context) error {
	if p.apiKey == "" {
		return fmt.Errorf("%w: Deepgram API key not configured", ErrProviderUnavailable)
	}
	return nil
}
