package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatcherCommands(t *testing.T) {
	m := NewMatcher()

	tests := []struct {
		name      string
		utterance string
		wantKind  IntentKind
		wantParam string
	}{
		{"help exact", "help", IntentHelp, ""},
		{"help mixed case", "HELP", IntentHelp, ""},
		{"help what can you do", "what can you do", IntentHelp, ""},
		{"help what commands prefix", "what commands do you know", IntentHelp, ""},
		{"exit", "exit", IntentExit, ""},
		{"quit", "quit", IntentExit, ""},
		{"goodbye", "Goodbye", IntentExit, ""},
		{"repeat", "repeat", IntentRepeat, ""},
		{"say that again", "say that again", IntentRepeat, ""},
		{"what did you say", "what did you say", IntentRepeat, ""},
		{"set type staff", "I am a staff", IntentSetUserType, "staff"},
		{"set type student", "i am a student", IntentSetUserType, "student"},
		{"set name", "set my name to Alice", IntentSetUserName, "Alice"},
		{"call name", "call my name to Bob", IntentSetUserName, "Bob"},
		{"change name multiword", "change my name to Mary Jane", IntentSetUserName, "Mary Jane"},
		{"assistant name", "what is your name", IntentAssistantName, ""},
		{"who are you", "who are you", IntentAssistantName, ""},
		{"whitespace trimmed", "  exit  ", IntentExit, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Match(tt.utterance)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantParam, got.Param)
		})
	}
}

func TestMatcherFreeFormFallsThrough(t *testing.T) {
	m := NewMatcher()

	queries := []string{
		"what time does the library close",
		"exit the building safely",       // anchored pattern must not match mid-sentence
		"I am a staff member of the lab", // trailing words break the anchor
		"help me with my homework",
	}

	for _, q := range queries {
		got := m.Match(q)
		assert.Equal(t, IntentNone, got.Kind, "utterance %q should be free-form", q)
	}
}

func TestMatcherDeterministic(t *testing.T) {
	m := NewMatcher()

	first := m.Match("repeat")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, m.Match("repeat"))
	}
}

func TestMatcherInvalidUserTypeNotMatched(t *testing.T) {
	m := NewMatcher()

	// Only staff and student are recognized types; anything else is a query.
	got := m.Match("I am a teacher")
	assert.Equal(t, IntentNone, got.Kind)
}
