package stt

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/normanking/voicedesk/internal/audio"
)

// Recognizer binds microphone capture, a transcription provider, and the
// filler filter into a single acquire-one-utterance operation.
type Recognizer struct {
	capture  *audio.Capture
	provider Provider
	filter   *Filter
	language string
	logger   zerolog.Logger
}

// NewRecognizer creates a recognizer. A nil filter disables filtering.
func NewRecognizer(capture *audio.Capture, provider Provider, filter *Filter, language string, logger zerolog.Logger) *Recognizer {
	return &Recognizer{
		capture:  capture,
		provider: provider,
		filter:   filter,
		language: language,
		logger:   logger.With().Str("component", "recognizer").Logger(),
	}
}

// Recognize records one utterance, transcribes it, and strips filler words.
// A transcript that is pure filler counts as no speech.
func (r *Recognizer) Recognize(ctx context.Context) (string, error) {
	samples, err := r.capture.Record(ctx)
	if err != nil {
		return "", err
	}

	resp, err := r.provider.Transcribe(ctx, &TranscribeRequest{
		Audio:      samplesToPCM(samples),
		SampleRate: r.capture.SampleRate(),
		Language:   r.language,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}

	text := resp.Text
	if r.filter != nil {
		cleaned, meaningful := r.filter.Clean(text)
		if !meaningful {
			r.logger.Debug().Str("raw", text).Msg("Transcript was pure filler")
			return "", ErrNoSpeech
		}
		text = cleaned
	}

	r.logger.Debug().
		Str("provider", r.provider.Name()).
		Float64("confidence", resp.Confidence).
		Msg("Utterance recognized")
	return text, nil
}

// samplesToPCM converts samples to little-endian 16-bit PCM bytes.
func samplesToPCM(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		data[2*i] = byte(s)
		data[2*i+1] = byte(s >> 8)
	}
	return data
}
