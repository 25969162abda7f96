package tts

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"

	"github.com/rs/zerolog"
)

// LocalEngine speaks through the platform speech command: 'say' on macOS,
// 'espeak' elsewhere. No network, no API key.
type LocalEngine struct {
	logger zerolog.Logger
	config *LocalConfig
}

// LocalConfig holds local engine configuration.
type LocalConfig struct {
	Voice string `json:"voice"` // Samantha, Daniel, ... on macOS; espeak voice names elsewhere
	Rate  int    `json:"rate"`  // Words per minute
}

// DefaultLocalConfig returns sensible defaults.
func DefaultLocalConfig() *LocalConfig {
	return &LocalConfig{
		Rate: 175,
	}
}

// NewLocalEngine creates a local speech engine.
func NewLocalEngine(config *LocalConfig, logger zerolog.Logger) *LocalEngine {
	if config == nil {
		config = DefaultLocalConfig()
	}

	return &LocalEngine{
		logger: logger.With().Str("provider", "local-tts").Logger(),
		config: config,
	}
}

// Name returns the engine identifier.
func (e *LocalEngine) Name() string {
	return "local"
}

// command builds the speech command invocation for the current platform.
func (e *LocalEngine) command(text string) (string, []string) {
	if runtime.GOOS == "darwin" {
		args := []string{}
		if e.config.Voice != "" {
			args = append(args, "-v", e.config.Voice)
		}
		if e.config.Rate > 0 {
			args = append(args, "-r", strconv.Itoa(e.config.Rate))
		}
		return "say", append(args, text)
	}

	args := []string{}
	if e.config.Voice != "" {
		args = append(args, "-v", e.config.Voice)
	}
	if e.config.Rate > 0 {
		args = append(args, "-s", strconv.Itoa(e.config.Rate))
	}
	return "espeak", append(args, text)
}

// Speak runs the speech command, blocking until playback completes.
func (e *LocalEngine) Speak(ctx context.Context, text string) error {
	if text == "" {
		return ErrEmptyText
	}

	name, args := e.command(text)
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%w: %s not found", ErrProviderUnavailable, name)
	}

	e.logger.Debug().Str("command", name).Int("text_len", len(text)).Msg("Speaking")

	cmd := exec.CommandContext(ctx, name, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		e.logger.Error().Err(err).Str("output", string(output)).Msg("Speech command failed")
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}

// Health reports whether the platform speech command is present.
func (e *LocalEngine) Health(ctx context.Context) error {
	name, _ := e.command("check")
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%w: %s not found", ErrProviderUnavailable, name)
	}
	return nil
}
