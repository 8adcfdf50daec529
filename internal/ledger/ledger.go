// Package ledger keeps the best chain length reached in each conversation.
//
// Scores are cached in memory and written through to a ScoreStore. The best
// value for a key never decreases: Record only writes when a session beats
// the stored best.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

var ErrPersistence = errors.New("score persistence failed")

// ScoreStore persists best scores.
type ScoreStore interface {
	LoadScores(ctx context.Context) (map[string]int, error)
	SaveBest(ctx context.Context, key string, best int) error
}

// Ledger is the best-score-per-conversation record.
type Ledger struct {
	mu      sync.Mutex
	best    map[string]int
	persist ScoreStore
}

// New returns a ledger seeded with scores. persist may be nil.
func New(scores map[string]int, persist ScoreStore) *Ledger {
	l := &Ledger{best: make(map[string]int, len(scores)), persist: persist}
	for k, v := range scores {
		if v > 0 {
			l.best[k] = v
		}
	}
	return l
}

// Open loads scores from persist; a load failure starts an empty ledger.
func Open(ctx context.Context, persist ScoreStore) *Ledger {
	var scores map[string]int
	if persist != nil {
		s, err := persist.LoadScores(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("load scores; starting with an empty ledger")
		} else {
			scores = s
		}
	}
	return New(scores, persist)
}

// Best returns the stored best for key (0 if none).
func (l *Ledger) Best(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.best[key]
}

// Record registers a finished session of rounds and returns the best for
// key, max(previous best, rounds). The returned best is valid even when err
// is non-nil; err then wraps ErrPersistence and only reports that the new
// best could not be saved.
func (l *Ledger) Record(ctx context.Context, key string, rounds int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.best[key]
	if rounds <= prev {
		return prev, nil
	}
	l.best[key] = rounds
	if l.persist == nil {
		return rounds, nil
	}
	if err := l.persist.SaveBest(ctx, key, rounds); err != nil {
		return rounds, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return rounds, nil
}

// Snapshot returns a copy of all best scores.
func (l *Ledger) Snapshot() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int, len(l.best))
	for k, v := range l.best {
		out[k] = v
	}
	return out
}
