// Package notify carries outbound events from the game core to whatever
// renders them (chat transport, HTTP response, log, Redis subscribers).
//
// Events are platform neutral: they name what happened and carry the data a
// transport needs to render a message, never formatted text.
package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

type Kind string

const (
	GameStarted          Kind = "game_started"
	YourTurn             Kind = "your_turn"
	IdiomAccepted        Kind = "idiom_accepted"
	IdiomProposed        Kind = "idiom_proposed"
	ChainRejected        Kind = "chain_rejected"
	SessionEnded         Kind = "session_ended"
	ContributionOffered  Kind = "contribution_offered"
	ContributionQueued   Kind = "contribution_queued"
	ContributionPending  Kind = "contribution_pending"
	ContributionResolved Kind = "contribution_resolved"
	Acknowledged         Kind = "acknowledged"
)

// Rejection reasons carried by ChainRejected.
const (
	ReasonUnknownIdiom        = "unknown_idiom"
	ReasonChainMismatch       = "chain_mismatch"
	ReasonNotActive           = "not_active"
	ReasonWrongState          = "wrong_state"
	ReasonEmptyDictionary     = "empty_dictionary"
	ReasonDuplicateIdiom      = "duplicate_idiom"
	ReasonAlreadyPending      = "already_pending"
	ReasonTranscriptionFailed = "transcription_failed"
	ReasonNotPending          = "not_pending"
	ReasonForbidden           = "forbidden"
	ReasonInvalidCommand      = "invalid_command"
)

// Event is a flat, JSON-serialisable notification. Fields irrelevant to a
// kind stay empty.
type Event struct {
	Kind   Kind   `json:"kind"`
	ChatID string `json:"chatId"`
	// Recipient is set when the event targets one identity rather than the
	// whole chat (the moderator for ContributionPending, the submitter for
	// ContributionResolved).
	Recipient string `json:"recipient,omitempty"`

	Idiom    string `json:"idiom,omitempty"`
	Leading  string `json:"leading,omitempty"`
	Trailing string `json:"trailing,omitempty"`
	Reason   string `json:"reason,omitempty"`

	Rounds int    `json:"rounds,omitempty"`
	Best   int    `json:"best,omitempty"`
	Winner string `json:"winner,omitempty"`

	PendingID     string `json:"pendingId,omitempty"`
	Approved      bool   `json:"approved,omitempty"`
	AlreadyKnown  bool   `json:"alreadyKnown,omitempty"`
	Submitter     string `json:"submitter,omitempty"`
	SubmitterName string `json:"submitterName,omitempty"`
	OriginChat    string `json:"originChat,omitempty"`
	OriginMessage string `json:"originMessage,omitempty"`
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// Log writes every event to the global zerolog logger.
type Log struct{}

func (Log) Publish(ctx context.Context, events ...Event) error {
	for _, e := range events {
		log.Debug().
			Str("kind", string(e.Kind)).
			Str("chat", e.ChatID).
			Str("idiom", e.Idiom).
			Str("reason", e.Reason).
			Msg("event")
	}
	return nil
}

// Fanout publishes to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, events ...Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, events...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(ctx context.Context, events ...Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
