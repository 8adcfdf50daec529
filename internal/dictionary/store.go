// internal/dictionary/store.go
//
// Dictionary Store: owns the curated corpus (shipped, trusted) and the
// contributed corpus (moderator-approved player submissions) and serves a
// merged lookup view over both.
//
// Responsibilities:
//   - Load the contributed corpus from a CorpusStore at startup, falling back
//     to an empty corpus when persistence is unavailable.
//   - Answer Lookup / RandomEntry against the merged view.
//   - Admit new contributed entries (AddContributed), re-checking duplicates
//     against the current view under the store lock.
//
// Concurrency:
//   - Writers are serialised by mu.
//   - Readers load the current *View through an atomic pointer; a view is
//     never modified after publication (copy-on-write).
package dictionary

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// ContributedCorpus is the persistence name of the player-contributed corpus.
const ContributedCorpus = "contributed"

var (
	ErrNotFound       = errors.New("idiom not found")
	ErrEmpty          = errors.New("dictionary is empty")
	ErrDuplicateIdiom = errors.New("idiom already in dictionary")
	ErrInvalidEntry   = errors.New("invalid dictionary entry")
	ErrPersistence    = errors.New("dictionary persistence failed")
)

// CorpusStore persists named corpora.
type CorpusStore interface {
	LoadCorpus(ctx context.Context, name string) (Corpus, error)
	SaveCorpus(ctx context.Context, name string, c Corpus) error
}

// Stats summarises the dictionary contents.
type Stats struct {
	Curated     int `json:"curated"`
	Contributed int `json:"contributed"`
	Total       int `json:"total"`
	Keys        int `json:"keys"`
}

// Store is the merged curated+contributed dictionary.
type Store struct {
	mu          sync.Mutex
	curated     Corpus
	curatedLen  int // distinct curated idioms
	contributed Corpus
	view        atomic.Pointer[View]

	persist CorpusStore
	rng     Rand
}

// New builds a Store from already-loaded corpora. persist may be nil, in
// which case contributions live only in memory.
func New(curated, contributed Corpus, persist CorpusStore, rng Rand) *Store {
	if curated == nil {
		curated = Corpus{}
	}
	if contributed == nil {
		contributed = Corpus{}
	}
	if rng == nil {
		rng = NewRand(0)
	}
	s := &Store{
		curated:     curated.Clone(),
		contributed: contributed.Clone(),
		persist:     persist,
		rng:         rng,
	}
	s.curatedLen = NewView(s.curated).Len()
	s.view.Store(NewView(Merge(s.curated, s.contributed)))
	return s
}

// Open loads the contributed corpus from persist and builds a Store. A load
// failure is logged and the store starts with no contributions.
func Open(ctx context.Context, curated Corpus, persist CorpusStore, rng Rand) *Store {
	var contributed Corpus
	if persist != nil {
		c, err := persist.LoadCorpus(ctx, ContributedCorpus)
		if err != nil {
			log.Warn().Err(err).Msg("load contributed corpus; continuing without contributions")
		} else {
			contributed = c
		}
	}
	s := New(curated, contributed, persist, rng)
	st := s.Stats()
	log.Info().
		Int("curated", st.Curated).
		Int("contributed", st.Contributed).
		Int("keys", st.Keys).
		Msg("dictionary loaded")
	return s
}

// View returns the current merged snapshot.
func (s *Store) View() *View { return s.view.Load() }

// Lookup returns the match keys recorded for idiom. Callers cannot tell
// whether the entry is curated or contributed.
func (s *Store) Lookup(idiom string) (Entry, error) {
	e, ok := s.View().Lookup(Normalize(idiom))
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// RandomEntry draws an entry with two-stage sampling (see View.Random).
func (s *Store) RandomEntry() (Entry, error) {
	e, ok := s.View().Random(s.rng)
	if !ok {
		return Entry{}, ErrEmpty
	}
	return e, nil
}

// AddContributed admits e into the contributed corpus.
//
// The duplicate check runs against the view current at call time, under the
// writer lock, so two concurrent approvals of the same idiom cannot both
// succeed. If saving the corpus fails the in-memory view keeps the entry and
// an error wrapping ErrPersistence is returned.
func (s *Store) AddContributed(ctx context.Context, e Entry) error {
	e.Idiom = Normalize(e.Idiom)
	if e.Idiom == "" || e.Leading == "" || e.Trailing == "" {
		return ErrInvalidEntry
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.View().Lookup(e.Idiom); ok {
		return ErrDuplicateIdiom
	}

	next := s.contributed.Clone()
	next.put(e)
	s.contributed = next
	s.view.Store(NewView(Merge(s.curated, next)))

	if s.persist == nil {
		return nil
	}
	if err := s.persist.SaveCorpus(ctx, ContributedCorpus, next); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// Stats reports corpus sizes. Both counts cover only entries that survive
// into the view; an idiom listed under two leading keys counts once.
func (s *Store) Stats() Stats {
	v := s.View()
	return Stats{
		Curated:     s.curatedLen,
		Contributed: v.Len() - s.curatedLen,
		Total:       v.Len(),
		Keys:        len(v.Keys()),
	}
}
