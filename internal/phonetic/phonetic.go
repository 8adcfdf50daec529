// Package phonetic derives match keys for idioms: the toneless pinyin of
// the first and last character.
package phonetic

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mozillazg/go-pinyin"
)

// ErrTranscriptionFailed is returned for text that cannot be transcribed,
// for example input containing non-Han characters.
var ErrTranscriptionFailed = errors.New("transcription failed")

// Transcriber maps a word to its leading and trailing keys.
type Transcriber interface {
	Transcribe(word string) (leading, trailing string, err error)
}

// Pinyin transcribes Han text with go-pinyin's normal (toneless) style.
type Pinyin struct {
	args pinyin.Args
}

// NewPinyin returns a Pinyin transcriber. Heteronyms resolve to the
// dictionary's first reading.
func NewPinyin() *Pinyin {
	a := pinyin.NewArgs()
	a.Style = pinyin.Normal
	return &Pinyin{args: a}
}

// Transcribe implements Transcriber. Every character of word must produce a
// syllable; characters go-pinyin cannot read make the whole word fail.
func (p *Pinyin) Transcribe(word string) (string, string, error) {
	if word == "" {
		return "", "", fmt.Errorf("%w: empty input", ErrTranscriptionFailed)
	}
	syllables := pinyin.Pinyin(word, p.args)
	if len(syllables) == 0 || len(syllables) != utf8.RuneCountInString(word) {
		return "", "", fmt.Errorf("%w: %q", ErrTranscriptionFailed, word)
	}
	first, last := syllables[0], syllables[len(syllables)-1]
	if len(first) == 0 || len(last) == 0 || first[0] == "" || last[0] == "" {
		return "", "", fmt.Errorf("%w: %q", ErrTranscriptionFailed, word)
	}
	return first[0], last[0], nil
}

// Table is a fixed word -> keys mapping. Placed ahead of Pinyin in a Chain
// it pins transcriptions that go-pinyin gets wrong (heteronyms mostly).
type Table map[string][2]string

// ParseTable builds a Table from "leading/trailing" values keyed by word,
// the form PINYIN_OVERRIDES is configured in.
func ParseTable(pairs map[string]string) (Table, error) {
	t := make(Table, len(pairs))
	for word, keys := range pairs {
		lead, trail, ok := strings.Cut(keys, "/")
		lead, trail = strings.TrimSpace(lead), strings.TrimSpace(trail)
		word = strings.TrimSpace(word)
		if !ok || word == "" || lead == "" || trail == "" {
			return nil, fmt.Errorf("override %q: want leading/trailing, got %q", word, keys)
		}
		t[word] = [2]string{lead, trail}
	}
	return t, nil
}

// Transcribe implements Transcriber.
func (t Table) Transcribe(word string) (string, string, error) {
	keys, ok := t[word]
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrTranscriptionFailed, word)
	}
	return keys[0], keys[1], nil
}

// Chain tries each transcriber in order and returns the first success.
type Chain []Transcriber

// Transcribe implements Transcriber.
func (c Chain) Transcribe(word string) (string, string, error) {
	err := fmt.Errorf("%w: no transcriber", ErrTranscriptionFailed)
	for _, t := range c {
		lead, trail, terr := t.Transcribe(word)
		if terr == nil {
			return lead, trail, nil
		}
		err = terr
	}
	return "", "", err
}
