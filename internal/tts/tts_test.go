package tts

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngineFactory(t *testing.T) {
	e, err := NewEngine(&Config{Engine: "local"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "local", e.Name())

	e, err = NewEngine(&Config{Engine: "cloud", CloudKey: "k"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "cloud", e.Name())

	e, err = NewEngine(nil, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "local", e.Name())

	_, err = NewEngine(&Config{Engine: "festival"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestLocalEngineCommand(t *testing.T) {
	e := NewLocalEngine(&LocalConfig{Voice: "Samantha", Rate: 200}, zerolog.Nop())

	name, args := e.command("hello there")
	assert.Contains(t, []string{"say", "espeak"}, name)
	assert.Contains(t, args, "Samantha")
	assert.Contains(t, args, "200")
	assert.Equal(t, "hello there", args[len(args)-1])
}

func TestLocalEngineCommandDefaults(t *testing.T) {
	e := NewLocalEngine(nil, zerolog.Nop())

	_, args := e.command("hi")
	assert.Equal(t, "hi", args[len(args)-1])
	assert.NotContains(t, args, "-v")
}

func TestLocalEngineRejectsEmptyText(t *testing.T) {
	e := NewLocalEngine(nil, zerolog.Nop())
	assert.ErrorIs(t, e.Speak(context.Background(), ""), ErrEmptyText)
}

func TestCloudEngineSynthesize(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte("fake-mp3-bytes"))
	}))
	defer server.Close()

	e := NewCloudEngine(&CloudConfig{
		APIKey:   "test-key",
		Endpoint: server.URL,
		Model:    "tts-1",
		Voice:    VoiceNova,
		Speed:    1.0,
		Timeout:  5 * time.Second,
	}, zerolog.Nop())

	audio, err := e.synthesize(context.Background(), "hello world")
	require.NoError(t, err)

	assert.Equal(t, []byte("fake-mp3-bytes"), audio)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.Contains(t, string(gotBody), `"input":"hello world"`)
	assert.Contains(t, string(gotBody), `"voice":"nova"`)
	assert.Contains(t, string(gotBody), `"response_format":"mp3"`)
}

func TestCloudEngineSynthesizeAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "bad voice"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	e := NewCloudEngine(&CloudConfig{
		APIKey:   "test-key",
		Endpoint: server.URL,
		Timeout:  5 * time.Second,
	}, zerolog.Nop())

	_, err := e.synthesize(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestCloudEngineWithoutKey(t *testing.T) {
	e := NewCloudEngine(&CloudConfig{}, zerolog.Nop())
	if e.apiKey != "" {
		t.Skip("OPENAI_API_KEY set in environment")
	}

	assert.ErrorIs(t, e.Health(context.Background()), ErrProviderUnavailable)
	assert.ErrorIs(t, e.Speak(context.Background(), "hi"), ErrProviderUnavailable)
}

func TestCloudEngineRejectsEmptyText(t *testing.T) {
	e := NewCloudEngine(&CloudConfig{APIKey: "k"}, zerolog.Nop())
	assert.ErrorIs(t, e.Speak(context.Background(), ""), ErrEmptyText)
}
