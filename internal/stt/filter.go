package stt

import (
	"regexp"
	"strings"
	"sync"
)

// DefaultFillerWords are disfluencies stripped from voice transcripts before
// classification. The list is deliberately short: words like "so" or "okay"
// carry meaning in commands and must survive.
var DefaultFillerWords = []string{
	"um", "uh", "uhh", "umm",
	"er", "ah", "hmm", "mm",
}

var (
	spacePattern = regexp.MustCompile(`\s+`)
	punctPattern = regexp.MustCompile(`^[.,!?;:\s]+$`)
)

// Filter removes filler words and noise from voice transcripts. Typed text
// never goes through the filter.
type Filter struct {
	mu          sync.RWMutex
	fillerWords map[string]struct{}
	pattern     *regexp.Regexp
}

// NewFilter creates a filter with the given filler words, or
// DefaultFillerWords when nil.
func NewFilter(fillerWords []string) *Filter {
	if fillerWords == nil {
		fillerWords = DefaultFillerWords
	}

	f := &Filter{
		fillerWords: make(map[string]struct{}, len(fillerWords)),
	}
	for _, word := range fillerWords {
		f.fillerWords[strings.ToLower(word)] = struct{}{}
	}
	f.buildPattern()
	return f
}

func (f *Filter) buildPattern() {
	if len(f.fillerWords) == 0 {
		f.pattern = nil
		return
	}

	patterns := make([]string, 0, len(f.fillerWords))
	for word := range f.fillerWords {
		patterns = append(patterns, `\b`+regexp.QuoteMeta(word)+`\b`)
	}
	f.pattern = regexp.MustCompile(`(?i)(` + strings.Join(patterns, `|`) + `)`)
}

// AddFillerWord adds a word to the filler list.
func (f *Filter) AddFillerWord(word string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fillerWords[strings.ToLower(word)] = struct{}{}
	f.buildPattern()
}

// RemoveFillerWord removes a word from the filler list.
func (f *Filter) RemoveFillerWord(word string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.fillerWords, strings.ToLower(word))
	f.buildPattern()
}

// FillerWords returns a copy of the current filler word list.
func (f *Filter) FillerWords() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	words := make([]string, 0, len(f.fillerWords))
	for word := range f.fillerWords {
		words = append(words, word)
	}
	return words
}

// Clean removes filler words and normalizes whitespace. The second return
// reports whether anything meaningful survived: a transcript of pure filler
// cleans to empty.
func (f *Filter) Clean(text string) (string, bool) {
	if text == "" {
		return "", false
	}

	f.mu.RLock()
	pattern := f.pattern
	f.mu.RUnlock()

	cleaned := text
	if pattern != nil {
		cleaned = pattern.ReplaceAllString(cleaned, "")
	}
	cleaned = spacePattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	// Filler removal can leave orphaned punctuation behind
	if punctPattern.MatchString(cleaned) {
		cleaned = ""
	}

	return cleaned, cleaned != ""
}

// IsFillerOnly reports whether the text contains nothing but filler.
func (f *Filter) IsFillerOnly(text string) bool {
	_, meaningful := f.Clean(text)
	return !meaningful
}
