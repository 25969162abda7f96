// Package assistant implements the conversation core of VoiceDesk: command
// intent matching, query dispatch to the answer service, and the
// orchestration of listen/classify/respond/speak turns.
package assistant

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Common errors surfaced to callers before a turn enters the pipeline.
var (
	ErrBusy            = errors.New("a voice turn is already in progress")
	ErrEmptyInput      = errors.New("empty input")
	ErrEmptyName       = errors.New("name must not be empty")
	ErrInvalidUserType = errors.New("user type must be staff or student")
)

// UserType classifies the current user for the answer service.
type UserType string

const (
	UserTypeStaff   UserType = "staff"
	UserTypeStudent UserType = "student"
)

// ParseUserType validates a user type literal.
func ParseUserType(s string) (UserType, error) {
	switch UserType(strings.ToLower(strings.TrimSpace(s))) {
	case UserTypeStaff:
		return UserTypeStaff, nil
	case UserTypeStudent:
		return UserTypeStudent, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidUserType, s)
	}
}

// Identity is the current user's name and type, embedded in every outgoing
// query.
type Identity struct {
	Name string   `json:"name"`
	Type UserType `json:"type"`
}

// ResponseRecord is the single outcome of one processed utterance, produced
// by either the command handler or the dispatcher. Immutable after creation.
type ResponseRecord struct {
	Query      string   `json:"query"`
	Text       string   `json:"text"`
	IsCommand  bool     `json:"isCommand"`
	Succeeded  bool     `json:"succeeded"`
	Confidence float64  `json:"confidence,omitempty"`
	Sources    []string `json:"sources,omitempty"`
	ErrorInfo  string   `json:"errorInfo,omitempty"`

	// Control flags for the orchestrator and its caller.
	ShouldExit      bool `json:"shouldExit,omitempty"`
	ShouldRepeat    bool `json:"shouldRepeat,omitempty"`
	IdentityChanged bool `json:"identityChanged,omitempty"`
}

// Turn pairs an utterance with its response record and the identity that was
// active when the turn completed.
type Turn struct {
	Utterance string         `json:"utterance"`
	Record    ResponseRecord `json:"record"`
	Identity  Identity       `json:"identity"`
	Timestamp time.Time      `json:"timestamp"`
}
