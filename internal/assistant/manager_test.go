package assistant

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/voicedesk/internal/bus"
	"github.com/normanking/voicedesk/internal/rag"
)

type fakeRecognizer struct {
	mu        sync.Mutex
	utterance string
	err       error
	delay     time.Duration
	started   chan struct{}
}

func (f *fakeRecognizer) Recognize(ctx context.Context) (string, error) {
	if f.started != nil {
		close(f.started)
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.utterance, f.err
}

type fakeSpeaker struct {
	mu     sync.Mutex
	spoken []string
	err    error
}

func (f *fakeSpeaker) Name() string { return "fake" }

func (f *fakeSpeaker) Speak(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
	return f.err
}

func (f *fakeSpeaker) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.spoken))
	copy(out, f.spoken)
	return out
}

func newTestManager(client AnswerClient, rec Recognizer, spk Speaker) (*Manager, *Session) {
	session := NewSession("Guest", UserTypeStaff)
	dispatcher := NewDispatcher(client, session, zerolog.Nop())
	m := NewManager(session, dispatcher, rec, spk, bus.NewEventBus(), zerolog.Nop())
	return m, session
}

func TestSubmitTextQueryTurn(t *testing.T) {
	client := &fakeAnswerClient{resp: &rag.QueryResponse{Response: "It opens at 8am.", Confidence: 0.8}}
	speaker := &fakeSpeaker{}
	m, session := newTestManager(client, &fakeRecognizer{}, speaker)

	var responses []ResponseRecord
	m.SetCallbacks(Callbacks{OnResponse: func(r ResponseRecord) { responses = append(responses, r) }})

	rec, err := m.SubmitText(context.Background(), "when does the gym open")
	require.NoError(t, err)

	assert.True(t, rec.Succeeded)
	assert.Equal(t, "It opens at 8am.", rec.Text)
	assert.Equal(t, 1, session.Len())
	assert.Equal(t, []string{"It opens at 8am."}, speaker.all())
	require.Len(t, responses, 1)
	assert.Equal(t, rec, responses[0])
}

func TestSubmitTextEmptyRejected(t *testing.T) {
	m, session := newTestManager(&fakeAnswerClient{}, &fakeRecognizer{}, &fakeSpeaker{})

	_, err := m.SubmitText(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Equal(t, 0, session.Len())
}

func TestCommandTurnsDoNotHitService(t *testing.T) {
	client := &fakeAnswerClient{err: errors.New("service must not be called")}
	speaker := &fakeSpeaker{}
	m, session := newTestManager(client, &fakeRecognizer{}, speaker)

	rec, err := m.SubmitText(context.Background(), "help")
	require.NoError(t, err)

	assert.True(t, rec.IsCommand)
	assert.True(t, rec.Succeeded)
	assert.Equal(t, helpText, rec.Text)
	assert.Nil(t, client.lastReq)
	assert.Equal(t, 1, session.Len())
}

func TestExitCommandSetsShouldExit(t *testing.T) {
	m, _ := newTestManager(&fakeAnswerClient{}, &fakeRecognizer{}, &fakeSpeaker{})

	rec, err := m.SubmitText(context.Background(), "goodbye")
	require.NoError(t, err)

	assert.True(t, rec.ShouldExit)
	assert.Equal(t, farewellText, rec.Text)
}

func TestRepeatWithEmptyHistory(t *testing.T) {
	speaker := &fakeSpeaker{}
	m, session := newTestManager(&fakeAnswerClient{}, &fakeRecognizer{}, speaker)

	rec, err := m.SubmitText(context.Background(), "repeat")
	require.NoError(t, err)

	assert.Equal(t, nothingSaidText, rec.Text)
	assert.Equal(t, []string{nothingSaidText}, speaker.all())
	// Repeat never appends a history entry.
	assert.Equal(t, 0, session.Len())
}

func TestRepeatReSpeaksLastResponse(t *testing.T) {
	client := &fakeAnswerClient{resp: &rag.QueryResponse{Response: "The answer is 42."}}
	speaker := &fakeSpeaker{}
	m, session := newTestManager(client, &fakeRecognizer{}, speaker)

	_, err := m.SubmitText(context.Background(), "what is the answer")
	require.NoError(t, err)

	rec, err := m.SubmitText(context.Background(), "say that again")
	require.NoError(t, err)

	assert.Equal(t, "The answer is 42.", rec.Text)
	assert.True(t, rec.ShouldRepeat)
	assert.Equal(t, []string{"The answer is 42.", "The answer is 42."}, speaker.all())
	assert.Equal(t, 1, session.Len())
}

func TestIdentityCommandsUpdateSessionAndNotify(t *testing.T) {
	m, session := newTestManager(&fakeAnswerClient{}, &fakeRecognizer{}, &fakeSpeaker{})

	var gotName string
	var gotType UserType
	var fired int
	m.SetCallbacks(Callbacks{OnIdentityChange: func(name string, userType UserType) {
		gotName, gotType = name, userType
		fired++
	}})

	rec, err := m.SubmitText(context.Background(), "set my name to Alice")
	require.NoError(t, err)
	assert.True(t, rec.IdentityChanged)
	assert.Equal(t, "I'll call you Alice from now on.", rec.Text)
	assert.Equal(t, "Alice", gotName)

	rec, err = m.SubmitText(context.Background(), "I am a student")
	require.NoError(t, err)
	assert.True(t, rec.IdentityChanged)
	assert.Equal(t, "I've updated your user type to student.", rec.Text)
	assert.Equal(t, UserTypeStudent, gotType)
	assert.Equal(t, 2, fired)

	id := session.Identity()
	assert.Equal(t, "Alice", id.Name)
	assert.Equal(t, UserTypeStudent, id.Type)
}

func TestIdentityChangeNotFiredWhenValueUnchanged(t *testing.T) {
	m, _ := newTestManager(&fakeAnswerClient{}, &fakeRecognizer{}, &fakeSpeaker{})

	var fired int
	m.SetCallbacks(Callbacks{OnIdentityChange: func(string, UserType) { fired++ }})

	// Default type is already staff.
	rec, err := m.SubmitText(context.Background(), "I am a staff")
	require.NoError(t, err)
	assert.False(t, rec.IdentityChanged)
	assert.Equal(t, 0, fired)
}

func TestSetIdentityValidation(t *testing.T) {
	m, _ := newTestManager(&fakeAnswerClient{}, &fakeRecognizer{}, &fakeSpeaker{})

	err := m.SetIdentity("Bob", "admin")
	assert.ErrorIs(t, err, ErrInvalidUserType)

	// Invalid type leaves everything untouched, including the name.
	id := m.GetIdentity()
	assert.Equal(t, "Guest", id.Name)
	assert.Equal(t, UserTypeStaff, id.Type)

	require.NoError(t, m.SetIdentity("Bob", "student"))
	id = m.GetIdentity()
	assert.Equal(t, "Bob", id.Name)
	assert.Equal(t, UserTypeStudent, id.Type)
}

func TestServiceFailureStillRecordedAndSpoken(t *testing.T) {
	client := &fakeAnswerClient{err: errors.New("boom")}
	speaker := &fakeSpeaker{}
	m, session := newTestManager(client, &fakeRecognizer{}, speaker)

	rec, err := m.SubmitText(context.Background(), "any question")
	require.NoError(t, err)

	assert.False(t, rec.Succeeded)
	assert.Equal(t, apologyText, rec.Text)
	assert.Equal(t, 1, session.Len())
	assert.Equal(t, []string{apologyText}, speaker.all())
}

func TestSpeakerFailureDoesNotRollBackTurn(t *testing.T) {
	client := &fakeAnswerClient{resp: &rag.QueryResponse{Response: "fine"}}
	speaker := &fakeSpeaker{err: errors.New("audio device gone")}
	m, session := newTestManager(client, &fakeRecognizer{}, speaker)

	rec, err := m.SubmitText(context.Background(), "a question")
	require.NoError(t, err)

	assert.True(t, rec.Succeeded)
	assert.Equal(t, 1, session.Len())
	assert.False(t, m.IsSpeaking())
}

func TestListenRunsFullTurn(t *testing.T) {
	client := &fakeAnswerClient{resp: &rag.QueryResponse{Response: "hello Alice"}}
	speaker := &fakeSpeaker{}
	recognizer := &fakeRecognizer{utterance: "say hello"}
	m, session := newTestManager(client, recognizer, speaker)

	var events []string
	var mu sync.Mutex
	record := func(name string) func() {
		return func() {
			mu.Lock()
			events = append(events, name)
			mu.Unlock()
		}
	}
	m.SetCallbacks(Callbacks{
		OnListeningStart: record("listen-start"),
		OnListeningEnd:   record("listen-end"),
		OnSpeakingStart:  record("speak-start"),
		OnSpeakingEnd:    record("speak-end"),
	})

	require.NoError(t, m.Listen(context.Background()))

	assert.Equal(t, 1, session.Len())
	assert.Equal(t, []string{"hello Alice"}, speaker.all())
	assert.Equal(t, []string{"listen-start", "listen-end", "speak-start", "speak-end"}, events)
	assert.False(t, m.IsListening())
}

func TestListenRecognizerFailureAbortsSilently(t *testing.T) {
	recognizer := &fakeRecognizer{err: errors.New("no speech detected")}
	speaker := &fakeSpeaker{}
	m, session := newTestManager(&fakeAnswerClient{}, recognizer, speaker)

	var responses int
	m.SetCallbacks(Callbacks{OnResponse: func(ResponseRecord) { responses++ }})

	require.NoError(t, m.Listen(context.Background()))

	assert.Equal(t, 0, session.Len())
	assert.Empty(t, speaker.all())
	assert.Equal(t, 0, responses)
	assert.False(t, m.IsListening())
}

func TestConcurrentListenRejected(t *testing.T) {
	started := make(chan struct{})
	recognizer := &fakeRecognizer{utterance: "slow speech", delay: 200 * time.Millisecond, started: started}
	client := &fakeAnswerClient{resp: &rag.QueryResponse{Response: "ok"}}
	m, _ := newTestManager(client, recognizer, &fakeSpeaker{})

	done := make(chan error, 1)
	go func() { done <- m.Listen(context.Background()) }()

	<-started
	assert.True(t, m.IsListening())
	assert.ErrorIs(t, m.Listen(context.Background()), ErrBusy)

	require.NoError(t, <-done)
	assert.False(t, m.IsListening())
}

func TestRepeatDirectOperation(t *testing.T) {
	client := &fakeAnswerClient{resp: &rag.QueryResponse{Response: "once"}}
	speaker := &fakeSpeaker{}
	m, session := newTestManager(client, &fakeRecognizer{}, speaker)

	m.Repeat(context.Background())
	assert.Equal(t, []string{nothingSaidText}, speaker.all())

	_, err := m.SubmitText(context.Background(), "say once")
	require.NoError(t, err)

	m.Repeat(context.Background())
	assert.Equal(t, []string{nothingSaidText, "once", "once"}, speaker.all())
	assert.Equal(t, 1, session.Len())
}

func TestClearHistory(t *testing.T) {
	client := &fakeAnswerClient{resp: &rag.QueryResponse{Response: "ok"}}
	m, session := newTestManager(client, &fakeRecognizer{}, &fakeSpeaker{})

	_, err := m.SubmitText(context.Background(), "one")
	require.NoError(t, err)
	require.Equal(t, 1, session.Len())

	m.ClearHistory()
	assert.Empty(t, m.History())

	// After clearing, repeat has nothing to re-speak.
	rec, err := m.SubmitText(context.Background(), "repeat")
	require.NoError(t, err)
	assert.Equal(t, nothingSaidText, rec.Text)
}

func TestBusEventsPublished(t *testing.T) {
	client := &fakeAnswerClient{resp: &rag.QueryResponse{Response: "ok"}}
	session := NewSession("Guest", UserTypeStaff)
	dispatcher := NewDispatcher(client, session, zerolog.Nop())
	events := bus.NewEventBus()
	m := NewManager(session, dispatcher, &fakeRecognizer{}, &fakeSpeaker{}, events, zerolog.Nop())

	var mu sync.Mutex
	var seen []bus.EventType
	for _, et := range []bus.EventType{
		bus.EventTypeSpeakingStarted,
		bus.EventTypeSpeakingStopped,
		bus.EventTypeResponse,
	} {
		et := et
		events.Subscribe(et, func(e bus.Event) {
			mu.Lock()
			seen = append(seen, e.Type)
			mu.Unlock()
		})
	}

	_, err := m.SubmitText(context.Background(), "a question")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, seen, bus.EventTypeResponse)
	assert.Contains(t, seen, bus.EventTypeSpeakingStarted)
	assert.Contains(t, seen, bus.EventTypeSpeakingStopped)
}
