package assistant

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/voicedesk/internal/bus"
)

// Fixed response texts for local commands.
const (
	farewellText    = "Goodbye! Have a great day."
	nothingSaidText = "I haven't said anything yet."
	selfIntroText   = "I'm your AI voice assistant. You can call me VoiceDesk."
	badNameText     = "I didn't catch the name. Please try again."

	helpText = `Here are some things you can ask me:

- Ask any question and I'll try to find the answer
- "Set my name to [name]" to change your name
- "I am a [staff/student]" to change your user type
- "What's your name?" to learn about me
- "Repeat" to repeat my last response
- "Exit" or "Quit" to exit

How can I help you today?`
)

// Recognizer acquires one utterance from the microphone. It blocks until
// speech is captured and transcribed, or the listen timeout elapses.
type Recognizer interface {
	Recognize(ctx context.Context) (string, error)
}

// Speaker renders text as audible speech, blocking until playback completes.
type Speaker interface {
	Name() string
	Speak(ctx context.Context, text string) error
}

// Callbacks is the event surface exposed to a presentation layer. Any field
// may be nil.
type Callbacks struct {
	OnListeningStart func()
	OnListeningEnd   func()
	OnSpeakingStart  func()
	OnSpeakingEnd    func()
	OnResponse       func(ResponseRecord)
	OnIdentityChange func(name string, userType UserType)
}

// Manager orchestrates conversation turns. Each turn runs the pipeline
// classify -> handle/dispatch -> notify -> speak on the calling goroutine;
// presentation layers run turns on worker goroutines to stay responsive.
//
// At most one voice turn may be acquiring input at a time; text turns and
// speech playback carry no such exclusion and may overlap.
type Manager struct {
	session    *Session
	matcher    *Matcher
	dispatcher *Dispatcher
	recognizer Recognizer
	speaker    Speaker
	events     *bus.EventBus
	logger     zerolog.Logger

	mu        sync.Mutex
	listening bool
	speaking  bool

	cbMu      sync.RWMutex
	callbacks Callbacks
}

// NewManager creates the conversation orchestrator.
func NewManager(session *Session, dispatcher *Dispatcher, recognizer Recognizer, speaker Speaker, events *bus.EventBus, logger zerolog.Logger) *Manager {
	return &Manager{
		session:    session,
		matcher:    NewMatcher(),
		dispatcher: dispatcher,
		recognizer: recognizer,
		speaker:    speaker,
		events:     events,
		logger:     logger.With().Str("component", "assistant").Logger(),
	}
}

// SetCallbacks installs the presentation-layer event callbacks.
func (m *Manager) SetCallbacks(cb Callbacks) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.callbacks = cb
}

// Listen runs one voice turn: acquire an utterance from the recognizer, then
// process it through the full pipeline. A second Listen while acquisition is
// in flight returns ErrBusy without touching any state. Acquisition failures
// (no speech, timeout, recognizer fault) end the turn silently: the
// listening flag is released and no history entry or response event is
// produced.
func (m *Manager) Listen(ctx context.Context) error {
	m.mu.Lock()
	if m.listening {
		m.mu.Unlock()
		m.logger.Warn().Msg("Already listening, voice turn rejected")
		return ErrBusy
	}
	m.listening = true
	m.mu.Unlock()

	m.fireListeningStart()

	utterance, err := m.recognizer.Recognize(ctx)

	m.mu.Lock()
	m.listening = false
	m.mu.Unlock()
	m.fireListeningEnd()

	if err != nil {
		m.logger.Warn().Err(err).Msg("No usable speech captured")
		return nil
	}
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		m.logger.Warn().Msg("Recognizer returned empty utterance")
		return nil
	}

	m.logger.Info().Str("utterance", utterance).Msg("Speech recognized")
	m.runTurn(ctx, utterance)
	return nil
}

// SubmitText runs one text turn through the full pipeline. Text that is
// empty after trimming is rejected with ErrEmptyInput before the pipeline.
func (m *Manager) SubmitText(ctx context.Context, text string) (ResponseRecord, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ResponseRecord{}, ErrEmptyInput
	}
	return m.runTurn(ctx, text), nil
}

// runTurn executes classify -> handle/dispatch -> notify -> speak.
func (m *Manager) runTurn(ctx context.Context, utterance string) ResponseRecord {
	intent := m.matcher.Match(utterance)

	var rec ResponseRecord
	if intent.Kind == IntentNone {
		rec = m.dispatcher.Dispatch(ctx, utterance)
	} else {
		m.logger.Debug().Str("intent", intent.Kind.String()).Msg("Command intent detected")
		rec = m.handleCommand(intent, utterance)
	}

	if rec.ShouldRepeat {
		// Repeat reuses the existing history entry rather than
		// appending a new one.
		text := nothingSaidText
		if last, ok := m.session.Last(); ok {
			text = last.Text
		}
		rec.Text = text
		m.fireResponse(rec)
		m.speak(ctx, text)
		return rec
	}

	if rec.IdentityChanged {
		m.fireIdentityChange(m.session.Identity())
	}

	m.session.Append(Turn{
		Utterance: utterance,
		Record:    rec,
		Identity:  m.session.Identity(),
		Timestamp: time.Now(),
	})
	m.fireResponse(rec)
	m.speak(ctx, rec.Text)
	return rec
}

// handleCommand produces the response record for a matched command intent.
func (m *Manager) handleCommand(intent Intent, utterance string) ResponseRecord {
	rec := ResponseRecord{
		Query:     utterance,
		IsCommand: true,
		Succeeded: true,
	}

	switch intent.Kind {
	case IntentHelp:
		rec.Text = helpText

	case IntentExit:
		rec.Text = farewellText
		rec.ShouldExit = true

	case IntentRepeat:
		rec.ShouldRepeat = true

	case IntentSetUserType:
		userType, err := ParseUserType(intent.Param)
		if err != nil {
			rec.Succeeded = false
			rec.Text = apologyText
			rec.ErrorInfo = err.Error()
			break
		}
		changed, err := m.session.SetType(userType)
		if err != nil {
			rec.Succeeded = false
			rec.Text = apologyText
			rec.ErrorInfo = err.Error()
			break
		}
		rec.IdentityChanged = changed
		rec.Text = fmt.Sprintf("I've updated your user type to %s.", userType)

	case IntentSetUserName:
		changed, err := m.session.SetName(intent.Param)
		if err != nil {
			rec.Succeeded = false
			rec.Text = badNameText
			rec.ErrorInfo = err.Error()
			break
		}
		rec.IdentityChanged = changed
		rec.Text = fmt.Sprintf("I'll call you %s from now on.", strings.TrimSpace(intent.Param))

	case IntentAssistantName:
		rec.Text = selfIntroText

	default:
		rec.Succeeded = false
		rec.Text = apologyText
		rec.ErrorInfo = "unhandled command intent"
	}

	return rec
}

// Repeat re-speaks the most recent response, or the fixed "nothing said yet"
// message when there is no history. No history entry is produced.
func (m *Manager) Repeat(ctx context.Context) {
	text := nothingSaidText
	if last, ok := m.session.Last(); ok {
		text = last.Text
	}
	m.speak(ctx, text)
}

// SetIdentity updates the user identity directly. Empty arguments leave the
// corresponding field unchanged. Validation happens before any mutation, so
// an invalid value leaves the whole identity untouched.
func (m *Manager) SetIdentity(name, userType string) error {
	var parsedType UserType
	if userType != "" {
		var err error
		parsedType, err = ParseUserType(userType)
		if err != nil {
			return err
		}
	}
	if name != "" && strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}

	changed := false
	if userType != "" {
		c, err := m.session.SetType(parsedType)
		if err != nil {
			return err
		}
		changed = changed || c
	}
	if name != "" {
		c, err := m.session.SetName(name)
		if err != nil {
			return err
		}
		changed = changed || c
	}

	if changed {
		m.fireIdentityChange(m.session.Identity())
	}
	return nil
}

// GetIdentity returns a snapshot of the current identity.
func (m *Manager) GetIdentity() Identity {
	return m.session.Identity()
}

// History returns a copy of the conversation history.
func (m *Manager) History() []Turn {
	return m.session.History()
}

// ClearHistory removes all recorded turns and the last-response cache.
func (m *Manager) ClearHistory() {
	m.session.Clear()
}

// IsListening reports whether a voice turn is acquiring input.
func (m *Manager) IsListening() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listening
}

// IsSpeaking reports whether speech playback is in progress.
func (m *Manager) IsSpeaking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speaking
}

// StopSpeaking clears the speaking flag. This is advisory only: the speech
// engine may continue until it naturally finishes.
func (m *Manager) StopSpeaking() {
	m.mu.Lock()
	m.speaking = false
	m.mu.Unlock()
	m.logger.Debug().Msg("Speaking flag cleared")
}

// speak hands text to the speech engine, tracking the speaking flag and
// firing start/end events. Engine failures are logged and swallowed: they
// never roll back history or control flags. A speak request while playback
// is already in progress is ignored.
func (m *Manager) speak(ctx context.Context, text string) {
	if text == "" {
		return
	}

	m.mu.Lock()
	if m.speaking {
		m.mu.Unlock()
		m.logger.Warn().Msg("Already speaking, ignoring new request")
		return
	}
	m.speaking = true
	m.mu.Unlock()

	m.fireSpeakingStart()

	if err := m.speaker.Speak(ctx, text); err != nil {
		m.logger.Error().Err(err).Str("engine", m.speaker.Name()).Msg("Speech output failed")
	}

	m.mu.Lock()
	m.speaking = false
	m.mu.Unlock()

	m.fireSpeakingEnd()
}

func (m *Manager) fireListeningStart() {
	m.cbMu.RLock()
	cb := m.callbacks.OnListeningStart
	m.cbMu.RUnlock()
	if cb != nil {
		cb()
	}
	if m.events != nil {
		m.events.PublishSync(bus.Event{Type: bus.EventTypeListeningStarted})
	}
}

func (m *Manager) fireListeningEnd() {
	m.cbMu.RLock()
	cb := m.callbacks.OnListeningEnd
	m.cbMu.RUnlock()
	if cb != nil {
		cb()
	}
	if m.events != nil {
		m.events.PublishSync(bus.Event{Type: bus.EventTypeListeningStopped})
	}
}

func (m *Manager) fireSpeakingStart() {
	m.cbMu.RLock()
	cb := m.callbacks.OnSpeakingStart
	m.cbMu.RUnlock()
	if cb != nil {
		cb()
	}
	if m.events != nil {
		m.events.PublishSync(bus.Event{Type: bus.EventTypeSpeakingStarted})
	}
}

func (m *Manager) fireSpeakingEnd() {
	m.cbMu.RLock()
	cb := m.callbacks.OnSpeakingEnd
	m.cbMu.RUnlock()
	if cb != nil {
		cb()
	}
	if m.events != nil {
		m.events.PublishSync(bus.Event{Type: bus.EventTypeSpeakingStopped})
	}
}

func (m *Manager) fireResponse(rec ResponseRecord) {
	m.cbMu.RLock()
	cb := m.callbacks.OnResponse
	m.cbMu.RUnlock()
	if cb != nil {
		cb(rec)
	}
	if m.events != nil {
		m.events.PublishSync(bus.Event{
			Type: bus.EventTypeResponse,
			Data: map[string]any{
				"query":     rec.Query,
				"text":      rec.Text,
				"succeeded": rec.Succeeded,
				"isCommand": rec.IsCommand,
			},
		})
	}
}

func (m *Manager) fireIdentityChange(identity Identity) {
	m.cbMu.RLock()
	cb := m.callbacks.OnIdentityChange
	m.cbMu.RUnlock()
	if cb != nil {
		cb(identity.Name, identity.Type)
	}
	if m.events != nil {
		m.events.PublishSync(bus.Event{
			Type: bus.EventTypeIdentityChanged,
			Data: map[string]any{
				"name": identity.Name,
				"type": string(identity.Type),
			},
		})
	}
}
