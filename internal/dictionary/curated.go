// internal/dictionary/curated.go
//
// Loading of the curated corpus.
//
// Behaviour (LoadCurated):
//  1. If a path is configured (CURATED_CORPUS_FILE), read that JSON file.
//  2. Otherwise fall back to the corpus embedded in the assets package.
//
// Absent or unparsable files yield an empty corpus and a warning rather than
// a startup failure; the game then degrades to "no continuation" and the
// bot-first path reports an empty dictionary.
package dictionary

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/idiomchain/assets"
)

// ParseCorpus decodes a corpus in lib.json form. Idiom text is normalised
// and entries with an empty idiom or key are skipped.
func ParseCorpus(data []byte) (Corpus, error) {
	var raw map[string]map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse corpus: %w", err)
	}
	out := make(Corpus, len(raw))
	for lead, idioms := range raw {
		if lead == "" {
			continue
		}
		for idiom, trail := range idioms {
			idiom = Normalize(idiom)
			if idiom == "" || trail == "" {
				continue
			}
			out.put(Entry{Idiom: idiom, Leading: lead, Trailing: trail})
		}
	}
	return out, nil
}

// ReadCorpusFile reads a corpus file. Missing or malformed files return an
// empty corpus together with the error so callers can log it.
func ReadCorpusFile(path string) (Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Corpus{}, err
	}
	c, err := ParseCorpus(data)
	if err != nil {
		return Corpus{}, err
	}
	return c, nil
}

// LoadCurated returns the curated corpus from path, or the embedded default
// corpus when path is empty.
func LoadCurated(path string) Corpus {
	if path == "" {
		c, err := ParseCorpus(assets.CuratedCorpus())
		if err != nil {
			log.Warn().Err(err).Msg("embedded curated corpus unreadable")
			return Corpus{}
		}
		return c
	}
	c, err := ReadCorpusFile(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("curated corpus unavailable; starting empty")
	}
	return c
}
