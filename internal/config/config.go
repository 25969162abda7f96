// Package config provides configuration management for VoiceDesk.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Service ServiceConfig `mapstructure:"service"`
	User    UserConfig    `mapstructure:"user"`
	STT     STTConfig     `mapstructure:"stt"`
	TTS     TTSConfig     `mapstructure:"tts"`
	Audio   AudioConfig   `mapstructure:"audio"`
	UI      UIConfig      `mapstructure:"ui"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServiceConfig configures the answer service client.
type ServiceConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// UserConfig holds the default identity for outgoing queries.
type UserConfig struct {
	DefaultName string `mapstructure:"default_name"`
	DefaultType string `mapstructure:"default_type"` // staff or student
}

// STTConfig configures speech recognition.
type STTConfig struct {
	Provider       string        `mapstructure:"provider"` // whisper, deepgram
	Language       string        `mapstructure:"language"`
	ListenTimeout  time.Duration `mapstructure:"listen_timeout"`  // silence before speech starts
	PhraseLimit    time.Duration `mapstructure:"phrase_limit"`    // max phrase duration
	WhisperAPIKey  string        `mapstructure:"whisper_api_key"`
	DeepgramAPIKey string        `mapstructure:"deepgram_api_key"`
}

// TTSConfig configures speech output.
type TTSConfig struct {
	Engine    string  `mapstructure:"engine"` // local, cloud
	Language  string  `mapstructure:"language"`
	VoiceID   string  `mapstructure:"voice_id"`
	Speed     float64 `mapstructure:"speed"`
	CloudKey  string  `mapstructure:"cloud_key"`
	LocalRate int     `mapstructure:"local_rate"` // words per minute for the local engine
}

// AudioConfig configures microphone capture.
type AudioConfig struct {
	SampleRate    int           `mapstructure:"sample_rate"`
	FrameSize     int           `mapstructure:"frame_size"`
	VADThreshold  float64       `mapstructure:"vad_threshold"`
	VADSilenceDur time.Duration `mapstructure:"vad_silence_duration"`
}

// UIConfig configures the presentation layer.
type UIConfig struct {
	Theme  string `mapstructure:"theme"`
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
	Hotkey string `mapstructure:"hotkey"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Endpoint: "http://localhost:8000/api/v1/chat/message",
			Timeout:  30 * time.Second,
		},
		User: UserConfig{
			DefaultName: "User",
			DefaultType: "student",
		},
		STT: STTConfig{
			Provider:      "whisper",
			Language:      "en",
			ListenTimeout: 5 * time.Second,
			PhraseLimit:   10 * time.Second,
		},
		TTS: TTSConfig{
			Engine:    "local",
			Language:  "en",
			Speed:     1.0,
			LocalRate: 175,
		},
		Audio: AudioConfig{
			SampleRate:    16000,
			FrameSize:     1024,
			VADThreshold:  0.01,
			VADSilenceDur: 800 * time.Millisecond,
		},
		UI: UIConfig{
			Theme:  "dark",
			Width:  800,
			Height: 600,
			Hotkey: "space",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configDir, err := Dir()
	if err != nil {
		return cfg, err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return cfg, err
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("VOICEDESK")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
		// No config file yet: persist the defaults so the user has
		// something to edit.
		if err := Save(cfg); err != nil {
			return cfg, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// Validate checks values that would otherwise fail deep inside a turn.
func (c *Config) Validate() error {
	if c.User.DefaultType != "staff" && c.User.DefaultType != "student" {
		return fmt.Errorf("user.default_type must be staff or student, got %q", c.User.DefaultType)
	}
	if c.Service.Endpoint == "" {
		return fmt.Errorf("service.endpoint must not be empty")
	}
	return nil
}

// Save writes the configuration to the config directory.
func Save(cfg *Config) error {
	configDir, err := Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	viper.Set("service", cfg.Service)
	viper.Set("user", cfg.User)
	viper.Set("stt", cfg.STT)
	viper.Set("tts", cfg.TTS)
	viper.Set("audio", cfg.Audio)
	viper.Set("ui", cfg.UI)
	viper.Set("log", cfg.Log)

	return viper.WriteConfigAs(filepath.Join(configDir, "config.yaml"))
}

// Watch re-reads the config file on change and invokes onReload with the
// freshly unmarshalled configuration. Invalid edits are reported and the
// previous configuration stays active.
func Watch(onReload func(*Config), onError func(error)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		cfg := DefaultConfig()
		if err := viper.Unmarshal(cfg); err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		if err := cfg.Validate(); err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onReload(cfg)
	})
	viper.WatchConfig()
}

// Dir returns the configuration directory path.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".voicedesk"), nil
}
