// Package audio provides microphone capture with energy-based voice
// activity detection, and WAV encoding of captured speech.
package audio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"
)

// Capture errors.
var (
	ErrNoSpeech     = errors.New("no speech detected before timeout")
	ErrDeviceFailed = errors.New("audio input device unavailable")
)

// CaptureConfig holds microphone capture settings.
type CaptureConfig struct {
	SampleRate    int           `json:"sample_rate"`    // Hz, default 16000
	FrameSize     int           `json:"frame_size"`     // samples per read, default 512
	ListenTimeout time.Duration `json:"listen_timeout"` // max wait for speech to start
	PhraseLimit   time.Duration `json:"phrase_limit"`   // max utterance length
	VAD           *VADConfig    `json:"vad"`
}

// DefaultCaptureConfig returns sensible defaults for near-field speech.
func DefaultCaptureConfig() *CaptureConfig {
	return &CaptureConfig{
		SampleRate:    16000,
		FrameSize:     512,
		ListenTimeout: 5 * time.Second,
		PhraseLimit:   10 * time.Second,
		VAD:           DefaultVADConfig(),
	}
}

// Capture records single utterances from the default input device. One
// Record call owns the device for its whole duration; callers serialize.
type Capture struct {
	config *CaptureConfig
	vad    *VAD
	logger zerolog.Logger
}

// NewCapture creates a capture bound to the default input device.
func NewCapture(config *CaptureConfig, logger zerolog.Logger) *Capture {
	if config == nil {
		config = DefaultCaptureConfig()
	}

	return &Capture{
		config: config,
		vad:    NewVAD(config.VAD),
		logger: logger.With().Str("component", "audio").Logger(),
	}
}

// Record captures one utterance: it waits up to ListenTimeout for speech to
// begin, then accumulates frames until the VAD reports end of speech or the
// phrase limit is reached. Returns the raw 16-bit mono PCM samples.
func (c *Capture) Record(ctx context.Context) ([]int16, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceFailed, err)
	}
	defer portaudio.Terminate()

	frame := make([]int16, c.config.FrameSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(c.config.SampleRate), len(frame), frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceFailed, err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceFailed, err)
	}
	defer stream.Stop()

	c.vad.Reset()
	c.logger.Debug().
		Int("sample_rate", c.config.SampleRate).
		Dur("listen_timeout", c.config.ListenTimeout).
		Msg("Microphone capture started")

	var (
		samples      []int16
		speechSeen   bool
		speechStart  time.Time
		captureStart = time.Now()
	)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := stream.Read(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDeviceFailed, err)
		}

		result := c.vad.Process(frame)

		if !speechSeen {
			if result.IsSpeech {
				speechSeen = true
				speechStart = time.Now()
				c.logger.Debug().Float64("rms", result.RMS).Msg("Speech started")
			} else if time.Since(captureStart) > c.config.ListenTimeout {
				c.logger.Debug().Msg("Listen timeout, no speech")
				return nil, ErrNoSpeech
			} else {
				continue
			}
		}

		chunk := make([]int16, len(frame))
		copy(chunk, frame)
		samples = append(samples, chunk...)

		if !result.IsSpeech {
			c.logger.Debug().
				Dur("duration", time.Since(speechStart)).
				Int("samples", len(samples)).
				Msg("Speech ended")
			return samples, nil
		}
		if time.Since(speechStart) > c.config.PhraseLimit {
			c.logger.Debug().Int("samples", len(samples)).Msg("Phrase limit reached")
			return samples, nil
		}
	}
}

// SampleRate returns the configured capture rate in Hz.
func (c *Capture) SampleRate() int {
	return c.config.SampleRate
}

// Duration returns the play time of a sample buffer at the configured rate.
func (c *Capture) Duration(samples []int16) time.Duration {
	return time.Duration(len(samples)) * time.Second / time.Duration(c.config.SampleRate)
}
