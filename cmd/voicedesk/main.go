// VoiceDesk - voice assistant front desk for the campus answer service.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/normanking/voicedesk/internal/assistant"
	"github.com/normanking/voicedesk/internal/audio"
	"github.com/normanking/voicedesk/internal/bus"
	"github.com/normanking/voicedesk/internal/config"
	"github.com/normanking/voicedesk/internal/logging"
	"github.com/normanking/voicedesk/internal/rag"
	"github.com/normanking/voicedesk/internal/stt"
	"github.com/normanking/voicedesk/internal/tts"
)

func main() {
	var (
		logLevel = pflag.String("log-level", "", "override log level (debug, info, warn, error)")
		endpoint = pflag.String("endpoint", "", "override answer service endpoint")
		noVoice  = pflag.Bool("no-voice", false, "disable microphone and speech output")
	)
	pflag.Parse()

	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if *endpoint != "" {
		cfg.Service.Endpoint = *endpoint
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Log.Level
	if *logLevel != "" {
		logCfg.Level = *logLevel
	}
	if cfg.Log.File != "" {
		logCfg.LogFile = cfg.Log.File
	}
	syslog, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer syslog.Close()
	log := syslog.Component("main")

	events := bus.NewEventBus()

	client := rag.NewClient(&rag.ClientConfig{
		Endpoint: cfg.Service.Endpoint,
		APIKey:   cfg.Service.APIKey,
		Timeout:  cfg.Service.Timeout,
	}, syslog.Zerolog())
	client.SetStatusHandler(func(connected bool) {
		eventType := bus.EventTypeServiceConnected
		if !connected {
			eventType = bus.EventTypeServiceDisconnected
		}
		events.Publish(bus.Event{Type: eventType, Data: map[string]any{"endpoint": client.Endpoint()}})
	})

	userType, err := assistant.ParseUserType(cfg.User.DefaultType)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid default user type")
	}
	session := assistant.NewSession(cfg.User.DefaultName, userType)
	dispatcher := assistant.NewDispatcher(client, session, syslog.Zerolog())

	var recognizer assistant.Recognizer
	var speaker assistant.Speaker
	if *noVoice {
		recognizer = unavailableRecognizer{}
		speaker = silentSpeaker{}
	} else {
		recognizer, speaker = buildVoiceStack(cfg, syslog)
	}

	manager := assistant.NewManager(session, dispatcher, recognizer, speaker, events, syslog.Zerolog())

	config.Watch(func(newCfg *config.Config) {
		client.UpdateEndpoint(newCfg.Service.Endpoint)
		events.Publish(bus.Event{Type: bus.EventTypeConfigReloaded})
		log.Info().Msg("Configuration reloaded")
	}, func(err error) {
		log.Warn().Err(err).Msg("Ignoring invalid configuration change")
	})

	if err := client.Health(context.Background()); err != nil {
		log.Warn().Err(err).Str("endpoint", cfg.Service.Endpoint).Msg("Answer service not reachable yet")
	}

	runConsole(manager, syslog, *noVoice)
}

// buildVoiceStack wires microphone capture, transcription, and speech output.
func buildVoiceStack(cfg *config.Config, syslog *logging.Logger) (assistant.Recognizer, assistant.Speaker) {
	log := syslog.Component("main")

	captureCfg := audio.DefaultCaptureConfig()
	if cfg.Audio.SampleRate > 0 {
		captureCfg.SampleRate = cfg.Audio.SampleRate
	}
	if cfg.Audio.FrameSize > 0 {
		captureCfg.FrameSize = cfg.Audio.FrameSize
	}
	if cfg.STT.ListenTimeout > 0 {
		captureCfg.ListenTimeout = cfg.STT.ListenTimeout
	}
	if cfg.STT.PhraseLimit > 0 {
		captureCfg.PhraseLimit = cfg.STT.PhraseLimit
	}
	if cfg.Audio.VADThreshold > 0 {
		captureCfg.VAD.Threshold = cfg.Audio.VADThreshold
	}
	if cfg.Audio.VADSilenceDur > 0 {
		captureCfg.VAD.MaxSilenceMs = int(cfg.Audio.VADSilenceDur.Milliseconds())
	}
	capture := audio.NewCapture(captureCfg, syslog.Zerolog())

	provider, err := stt.NewProvider(&stt.Config{
		Provider:       cfg.STT.Provider,
		Language:       cfg.STT.Language,
		WhisperAPIKey:  cfg.STT.WhisperAPIKey,
		DeepgramAPIKey: cfg.STT.DeepgramAPIKey,
	}, syslog.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid STT configuration")
	}
	recognizer := stt.NewRecognizer(capture, provider, stt.NewFilter(nil), cfg.STT.Language, syslog.Zerolog())

	engine, err := tts.NewEngine(&tts.Config{
		Engine:   cfg.TTS.Engine,
		VoiceID:  cfg.TTS.VoiceID,
		Speed:    cfg.TTS.Speed,
		Rate:     cfg.TTS.LocalRate,
		CloudKey: cfg.TTS.CloudKey,
	}, syslog.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid TTS configuration")
	}

	if err := engine.Health(context.Background()); err != nil {
		log.Warn().Err(err).Str("engine", engine.Name()).Msg("Speech output not available")
	}
	return recognizer, engine
}

// runConsole drives the interactive loop: typed lines become text turns,
// /listen starts a voice turn on a worker goroutine.
func runConsole(manager *assistant.Manager, syslog *logging.Logger, noVoice bool) {
	log := syslog.Component("console")

	manager.SetCallbacks(assistant.Callbacks{
		OnListeningStart: func() { fmt.Println("... listening") },
		OnListeningEnd:   func() { fmt.Println("... done listening") },
		OnResponse: func(rec assistant.ResponseRecord) {
			fmt.Printf("\nVoiceDesk: %s\n", rec.Text)
			if !rec.Succeeded && rec.ErrorInfo != "" {
				log.Debug().Str("error", rec.ErrorInfo).Msg("Turn failed")
			}
		},
		OnIdentityChange: func(name string, userType assistant.UserType) {
			fmt.Printf("(identity: %s, %s)\n", name, userType)
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down")
		cancel()
		os.Exit(0)
	}()

	id := manager.GetIdentity()
	fmt.Printf("VoiceDesk ready (user: %s, %s). Type a question, /listen to talk", id.Name, id.Type)
	if noVoice {
		fmt.Print(" [voice disabled]")
	}
	fmt.Println(", /help for commands.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return
		case "/help":
			fmt.Println("/listen  talk to VoiceDesk\n/history show the conversation\n/clear   clear the conversation\n/repeat  say the last response again\n/quit    exit")
			continue
		case "/listen":
			go func() {
				if err := manager.Listen(ctx); err != nil {
					fmt.Printf("listen: %v\n", err)
				}
			}()
			continue
		case "/history":
			for i, turn := range manager.History() {
				fmt.Printf("%2d. [%s] %s\n    -> %s\n", i+1, turn.Timestamp.Format("15:04:05"), turn.Utterance, turn.Record.Text)
			}
			continue
		case "/clear":
			manager.ClearHistory()
			fmt.Println("history cleared")
			continue
		case "/repeat":
			manager.Repeat(ctx)
			continue
		}

		rec, err := manager.SubmitText(ctx, line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		if rec.ShouldExit {
			return
		}
	}
}

// loadEnvFiles loads API keys from .env files into the process environment.
func loadEnvFiles() {
	paths := []string{".env"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".voicedesk", ".env"))
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			godotenv.Load(path)
		}
	}
}

// unavailableRecognizer rejects voice turns when voice is disabled.
type unavailableRecognizer struct{}

func (unavailableRecognizer) Recognize(ctx context.Context) (string, error) {
	return "", fmt.Errorf("voice input disabled")
}

// silentSpeaker swallows speech output when voice is disabled.
type silentSpeaker struct{}

func (silentSpeaker) Name() string { return "silent" }

func (silentSpeaker) Speak(ctx context.Context, text string) error { return nil }
