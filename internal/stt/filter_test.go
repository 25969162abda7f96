package stt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterCleanRemovesFillers(t *testing.T) {
	f := NewFilter(nil)

	tests := []struct {
		name           string
		input          string
		want           string
		wantMeaningful bool
	}{
		{"no fillers", "what time is it", "what time is it", true},
		{"leading filler", "um what time is it", "what time is it", true},
		{"multiple fillers", "uh what um time uh is it", "what time is it", true},
		{"filler only", "um uh umm", "", false},
		{"filler with punctuation", "um, uh.", "", false},
		{"empty", "", "", false},
		{"case insensitive", "UM what time is it", "what time is it", true},
		{"filler inside word survives", "umbrella weather", "umbrella weather", true},
		{"extra whitespace collapsed", "what   time    is it", "what time is it", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, meaningful := f.Clean(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantMeaningful, meaningful)
		})
	}
}

func TestFilterKeepsMeaningfulShortWords(t *testing.T) {
	f := NewFilter(nil)

	// Words like "so" and "okay" carry meaning and are not in the default list.
	got, meaningful := f.Clean("okay so repeat")
	assert.True(t, meaningful)
	assert.Equal(t, "okay so repeat", got)
}

func TestFilterIsFillerOnly(t *testing.T) {
	f := NewFilter(nil)

	assert.True(t, f.IsFillerOnly("um uh"))
	assert.True(t, f.IsFillerOnly(""))
	assert.False(t, f.IsFillerOnly("hello um"))
}

func TestFilterAddRemoveWords(t *testing.T) {
	f := NewFilter([]string{"um"})

	got, _ := f.Clean("like um totally")
	assert.Equal(t, "like totally", got)

	f.AddFillerWord("like")
	got, _ = f.Clean("like um totally")
	assert.Equal(t, "totally", got)

	f.RemoveFillerWord("like")
	got, _ = f.Clean("like um totally")
	assert.Equal(t, "like totally", got)

	assert.ElementsMatch(t, []string{"um"}, f.FillerWords())
}

func TestFilterEmptyWordList(t *testing.T) {
	f := NewFilter([]string{})

	got, meaningful := f.Clean("um whatever")
	assert.True(t, meaningful)
	assert.Equal(t, "um whatever", got)
}
