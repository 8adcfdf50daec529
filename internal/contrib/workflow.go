// internal/contrib/workflow.go
//
// Contribution workflow: players propose idioms the dictionary does not
// know, a moderator approves or rejects them.
//
// Responsibilities:
//   - Submit: reject idioms that already resolve or are already pending in
//     the same chat, compute match keys, record a PendingContribution.
//   - Decide: remove the pending record, then (on approval) add the entry to
//     the contributed corpus. Returns the submitter/origin so the transport
//     can tell the player what happened.
//   - Keep pending records across restarts through a PendingStore.
//
// Concurrency:
//   - One workflow lock guards the pending set. Submit re-checks the
//     dictionary and the pending set under that lock before inserting, and
//     Decide deletes under it, so a racing duplicate sees ErrAlreadyPending
//     or ErrNotPending and changes nothing.

package contrib

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/idiomchain/internal/dictionary"
	"github.com/robalobadob/idiomchain/internal/metrics"
	"github.com/robalobadob/idiomchain/internal/phonetic"
)

var (
	ErrDuplicateIdiom = errors.New("idiom already known")
	// ErrAlreadyPending is a DuplicateIdiom variant: the idiom is unknown but
	// already waiting for review in this chat.
	ErrAlreadyPending      = fmt.Errorf("%w: pending review", ErrDuplicateIdiom)
	ErrNotPending          = errors.New("no such pending contribution")
	ErrEmptyIdiom          = errors.New("empty idiom")
	ErrTranscriptionFailed = phonetic.ErrTranscriptionFailed
	ErrPersistence         = errors.New("pending persistence failed")
)

// Submitter identifies the player who proposed an idiom.
type Submitter struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Origin points back at the message that carried the proposal.
type Origin struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId,omitempty"`
}

// Submission is a player's proposal.
type Submission struct {
	Idiom     string
	ChatID    string
	Submitter Submitter
	Origin    Origin
}

// Pending is a contribution awaiting a moderator decision.
type Pending struct {
	ID        string    `json:"id"`
	Idiom     string    `json:"idiom"`
	Leading   string    `json:"leading"`
	Trailing  string    `json:"trailing"`
	ChatID    string    `json:"chatId"`
	Submitter Submitter `json:"submitter"`
	Origin    Origin    `json:"origin"`
	CreatedAt time.Time `json:"createdAt"`
}

// Entry returns the dictionary entry the contribution would add.
func (p Pending) Entry() dictionary.Entry {
	return dictionary.Entry{Idiom: p.Idiom, Leading: p.Leading, Trailing: p.Trailing}
}

// Outcome reports a moderator decision.
type Outcome struct {
	Pending  Pending `json:"pending"`
	Approved bool    `json:"approved"`
	// AlreadyKnown is set when an approved idiom had meanwhile entered the
	// dictionary by another path; nothing was added.
	AlreadyKnown bool `json:"alreadyKnown,omitempty"`
	// Persisted is false when the dictionary kept the entry in memory only.
	Persisted bool `json:"persisted"`
}

// Dictionary is the part of the dictionary store the workflow needs.
type Dictionary interface {
	Lookup(idiom string) (dictionary.Entry, error)
	AddContributed(ctx context.Context, e dictionary.Entry) error
}

// PendingStore persists pending contributions.
type PendingStore interface {
	LoadPending(ctx context.Context) ([]Pending, error)
	PutPending(ctx context.Context, p Pending) error
	DeletePending(ctx context.Context, id string) error
}

type pendingKey struct {
	idiom  string
	chatID string
}

// Workflow is the contribution review queue.
type Workflow struct {
	mu      sync.Mutex
	byID    map[string]Pending
	byKey   map[pendingKey]string
	dict    Dictionary
	tr      phonetic.Transcriber
	persist PendingStore

	now   func() time.Time
	newID func() string
}

// New returns a workflow seeded with pending records. persist may be nil.
func New(dict Dictionary, tr phonetic.Transcriber, persist PendingStore, pending []Pending) *Workflow {
	w := &Workflow{
		byID:    make(map[string]Pending, len(pending)),
		byKey:   make(map[pendingKey]string, len(pending)),
		dict:    dict,
		tr:      tr,
		persist: persist,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
	for _, p := range pending {
		w.byID[p.ID] = p
		w.byKey[pendingKey{p.Idiom, p.ChatID}] = p.ID
	}
	return w
}

// Open restores pending records from persist; a load failure starts with an
// empty queue.
func Open(ctx context.Context, dict Dictionary, tr phonetic.Transcriber, persist PendingStore) *Workflow {
	var pending []Pending
	if persist != nil {
		p, err := persist.LoadPending(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("load pending contributions; starting with an empty queue")
		} else {
			pending = p
		}
	}
	log.Info().Int("pending", len(pending)).Msg("contribution queue loaded")
	return New(dict, tr, persist, pending)
}

// Submit records a contribution for moderator review.
//
// A returned error wrapping ErrPersistence still comes with a valid Pending:
// the record is queued in memory but will not survive a restart.
func (w *Workflow) Submit(ctx context.Context, s Submission) (Pending, error) {
	idiom := dictionary.Normalize(s.Idiom)
	if idiom == "" {
		return Pending{}, ErrEmptyIdiom
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.dict.Lookup(idiom); err == nil {
		metrics.RecordContribution("duplicate")
		return Pending{}, ErrDuplicateIdiom
	}
	key := pendingKey{idiom, s.ChatID}
	if _, ok := w.byKey[key]; ok {
		metrics.RecordContribution("duplicate")
		return Pending{}, ErrAlreadyPending
	}

	leading, trailing, err := w.tr.Transcribe(idiom)
	if err != nil {
		metrics.RecordContribution("untranscribable")
		if errors.Is(err, ErrTranscriptionFailed) {
			return Pending{}, err
		}
		return Pending{}, fmt.Errorf("%w: %w", ErrTranscriptionFailed, err)
	}

	p := Pending{
		ID:        w.newID(),
		Idiom:     idiom,
		Leading:   leading,
		Trailing:  trailing,
		ChatID:    s.ChatID,
		Submitter: s.Submitter,
		Origin:    s.Origin,
		CreatedAt: w.now(),
	}
	w.byID[p.ID] = p
	w.byKey[key] = p.ID
	metrics.RecordContribution("pending")
	log.Info().Str("pending", p.ID).Str("idiom", idiom).Str("chat", s.ChatID).Msg("contribution queued")

	if w.persist != nil {
		if err := w.persist.PutPending(ctx, p); err != nil {
			return p, fmt.Errorf("%w: %w", ErrPersistence, err)
		}
	}
	return p, nil
}

// Decide resolves the pending contribution id.
//
// The record is removed before the dictionary is touched, so a second call
// for the same id returns ErrNotPending without side effects.
func (w *Workflow) Decide(ctx context.Context, id string, approve bool) (Outcome, error) {
	w.mu.Lock()
	p, ok := w.byID[id]
	if ok {
		delete(w.byID, id)
		delete(w.byKey, pendingKey{p.Idiom, p.ChatID})
	}
	w.mu.Unlock()
	if !ok {
		return Outcome{}, ErrNotPending
	}

	if w.persist != nil {
		if err := w.persist.DeletePending(ctx, id); err != nil {
			log.Warn().Err(err).Str("pending", id).Msg("delete pending contribution")
		}
	}

	out := Outcome{Pending: p, Approved: approve, Persisted: true}
	if !approve {
		metrics.RecordContribution("rejected")
		log.Info().Str("pending", id).Str("idiom", p.Idiom).Msg("contribution rejected")
		return out, nil
	}

	err := w.dict.AddContributed(ctx, p.Entry())
	switch {
	case errors.Is(err, dictionary.ErrDuplicateIdiom):
		out.AlreadyKnown = true
		metrics.RecordContribution("already_known")
	case errors.Is(err, dictionary.ErrPersistence):
		out.Persisted = false
		metrics.RecordContribution("approved")
		log.Warn().Err(err).Str("idiom", p.Idiom).Msg("contributed corpus not saved")
	case err != nil:
		return out, err
	default:
		metrics.RecordContribution("approved")
	}
	log.Info().Str("pending", id).Str("idiom", p.Idiom).Bool("already_known", out.AlreadyKnown).Msg("contribution approved")
	return out, nil
}

// Get returns the pending record id.
func (w *Workflow) Get(id string) (Pending, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.byID[id]
	return p, ok
}

// List returns pending records, oldest first.
func (w *Workflow) List() []Pending {
	w.mu.Lock()
	out := make([]Pending, 0, len(w.byID))
	for _, p := range w.byID {
		out = append(out, p)
	}
	w.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
