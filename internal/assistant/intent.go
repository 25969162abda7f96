package assistant

import (
	"regexp"
	"strings"
)

// IntentKind identifies a recognized local command, or IntentNone for
// free-form queries.
type IntentKind int

const (
	IntentNone IntentKind = iota
	IntentHelp
	IntentExit
	IntentRepeat
	IntentSetUserType
	IntentSetUserName
	IntentAssistantName
)

// String returns the intent name for logging.
func (k IntentKind) String() string {
	switch k {
	case IntentHelp:
		return "help"
	case IntentExit:
		return "exit"
	case IntentRepeat:
		return "repeat"
	case IntentSetUserType:
		return "set_user_type"
	case IntentSetUserName:
		return "set_user_name"
	case IntentAssistantName:
		return "assistant_name"
	default:
		return "none"
	}
}

// Intent is the classified meaning of an utterance, with the extracted
// parameter for the parametric intents.
type Intent struct {
	Kind  IntentKind
	Param string // new user type for IntentSetUserType, new name for IntentSetUserName
}

// commandPattern binds a compiled pattern to its intent. paramGroup is the
// capture group index holding the parameter, or 0 for parameterless intents.
type commandPattern struct {
	kind       IntentKind
	re         *regexp.Regexp
	paramGroup int
}

// Matcher classifies utterances against a fixed, ordered pattern table.
// Table order is significant: the first matching entry wins.
type Matcher struct {
	patterns []commandPattern
}

// NewMatcher builds the matcher with the recognized command phrasings.
func NewMatcher() *Matcher {
	return &Matcher{
		patterns: []commandPattern{
			{IntentHelp, regexp.MustCompile(`(?i)^help$|^what can you do$|^what commands`), 0},
			{IntentExit, regexp.MustCompile(`(?i)^exit$|^quit$|^goodbye$`), 0},
			{IntentRepeat, regexp.MustCompile(`(?i)^repeat$|^say that again$|^what did you say`), 0},
			{IntentSetUserType, regexp.MustCompile(`(?i)^i am a (staff|student)$`), 1},
			{IntentSetUserName, regexp.MustCompile(`(?i)^(?:set|call|change) my name to (.+)$`), 1},
			{IntentAssistantName, regexp.MustCompile(`(?i)^what is your name$|^who are you$`), 0},
		},
	}
}

// Match classifies an utterance. It is pure and deterministic; callers
// guarantee the utterance is non-empty.
func (m *Matcher) Match(utterance string) Intent {
	utterance = strings.TrimSpace(utterance)

	for _, p := range m.patterns {
		groups := p.re.FindStringSubmatch(utterance)
		if groups == nil {
			continue
		}
		intent := Intent{Kind: p.kind}
		if p.paramGroup > 0 && p.paramGroup < len(groups) {
			intent.Param = strings.TrimSpace(groups[p.paramGroup])
		}
		return intent
	}

	return Intent{Kind: IntentNone}
}
