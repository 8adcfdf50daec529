// internal/game/manager.go
//
// Session manager: applies player moves to per-conversation sessions.
//
// State machine:
//
//	Idle --Start--> AwaitingFirstMove --ChooseUserFirst/ChooseBotFirst--> InProgress
//	InProgress --Submit/Cue (system cannot continue)--> Idle   (human wins)
//	InProgress|AwaitingFirstMove --End--> Idle                 (no winner)
//	any --Start--> AwaitingFirstMove
//
// Every operation runs with the conversation's session locked (see
// Sessions.Acquire), validates first and mutates only on success, so the
// recoverable errors (unknown idiom, chain mismatch, empty dictionary)
// leave the session exactly as it was.

package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/idiomchain/internal/dictionary"
	"github.com/robalobadob/idiomchain/internal/metrics"
)

// Dictionary is the read side of the dictionary store.
type Dictionary interface {
	Lookup(idiom string) (dictionary.Entry, error)
	RandomEntry() (dictionary.Entry, error)
	View() *dictionary.View
}

// Ledger records finished sessions and returns the best score for key.
type Ledger interface {
	Record(ctx context.Context, key string, rounds int) (best int, err error)
}

// Sessions hands out exclusive access to a conversation's session.
type Sessions interface {
	Acquire(chatID string) (*Session, func())
}

// Manager owns the game sessions of all conversations.
type Manager struct {
	dict     Dictionary
	ledger   Ledger
	sessions Sessions
	rng      dictionary.Rand
}

// NewManager wires a Manager. rng must be safe for concurrent use.
func NewManager(dict Dictionary, ledger Ledger, sessions Sessions, rng dictionary.Rand) *Manager {
	if rng == nil {
		rng = dictionary.NewRand(0)
	}
	return &Manager{dict: dict, ledger: ledger, sessions: sessions, rng: rng}
}

// Snapshot returns a copy of the chat's session.
func (m *Manager) Snapshot(chatID string) Session {
	sess, release := m.sessions.Acquire(chatID)
	defer release()
	return *sess
}

// Start begins a new session, discarding any session in progress.
func (m *Manager) Start(ctx context.Context, chatID string) Session {
	sess, release := m.sessions.Acquire(chatID)
	defer release()

	sess.State = StateAwaitingFirstMove
	sess.RoundCount = 0
	sess.LastIdiom, sess.LastTrailing = "", ""
	log.Debug().Str("chat", chatID).Msg("game started")
	return *sess
}

// ChooseUserFirst lets the human open the chain.
func (m *Manager) ChooseUserFirst(ctx context.Context, chatID string) (Session, error) {
	sess, release := m.sessions.Acquire(chatID)
	defer release()

	if sess.State != StateAwaitingFirstMove {
		return *sess, ErrWrongState
	}
	sess.State = StateInProgress
	sess.LastIdiom, sess.LastTrailing = "", ""
	return *sess, nil
}

// ChooseBotFirst opens the chain with a random idiom. With an empty
// dictionary it returns ErrEmptyDictionary and the session keeps waiting
// for a first move.
func (m *Manager) ChooseBotFirst(ctx context.Context, chatID string) (Result, error) {
	sess, release := m.sessions.Acquire(chatID)
	defer release()

	if sess.State != StateAwaitingFirstMove {
		return Result{Session: *sess}, ErrWrongState
	}
	e, err := m.dict.RandomEntry()
	if err != nil {
		return Result{Session: *sess}, ErrEmptyDictionary
	}
	sess.State = StateInProgress
	placeOpening(sess, e)
	return Result{Session: *sess, Reply: &e}, nil
}

// Submit plays the human's idiom and lets the system answer.
//
// A submission while waiting for the first move counts as the human
// choosing to go first.
func (m *Manager) Submit(ctx context.Context, chatID, text string) (Result, error) {
	sess, release := m.sessions.Acquire(chatID)
	defer release()

	if sess.State == StateIdle {
		return Result{Session: *sess}, ErrNotActive
	}

	text = dictionary.Normalize(text)
	entry, err := m.dict.Lookup(text)
	if errors.Is(err, dictionary.ErrNotFound) {
		metrics.RecordRejection("unknown_idiom")
		return Result{Session: *sess}, fmt.Errorf("%w: %s", ErrUnknownIdiom, text)
	}
	if err != nil {
		return Result{Session: *sess}, err
	}
	if sess.State == StateInProgress && !Chains(sess.LastIdiom, sess.LastTrailing, entry) {
		metrics.RecordRejection("chain_mismatch")
		return Result{Session: *sess}, fmt.Errorf("%w: %s after %s", ErrChainMismatch, entry.Idiom, sess.LastIdiom)
	}

	sess.State = StateInProgress
	sess.RoundCount++
	sess.LastIdiom, sess.LastTrailing = entry.Idiom, entry.Trailing
	metrics.RecordRound("human")

	res := m.reply(ctx, sess)
	res.Accepted = &entry
	return res, nil
}

// Cue asks the system to move without a human submission. With no idiom on
// the table the system opens with a random one.
func (m *Manager) Cue(ctx context.Context, chatID string) (Result, error) {
	sess, release := m.sessions.Acquire(chatID)
	defer release()

	if sess.State != StateInProgress {
		return Result{Session: *sess}, ErrNotActive
	}
	return m.reply(ctx, sess), nil
}

// End finishes the session with the rounds played so far and no winner.
func (m *Manager) End(ctx context.Context, chatID string) (Result, error) {
	sess, release := m.sessions.Acquire(chatID)
	defer release()

	if sess.State == StateIdle {
		return Result{Session: *sess}, ErrNotActive
	}
	final := m.finalize(ctx, sess, WinnerNone)
	return Result{Session: *sess, Final: final}, nil
}

// reply makes the system's move on a locked, in-progress session.
func (m *Manager) reply(ctx context.Context, sess *Session) Result {
	if sess.LastIdiom == "" {
		e, err := m.dict.RandomEntry()
		if err != nil {
			final := m.finalize(ctx, sess, WinnerHuman)
			return Result{Session: *sess, Final: final}
		}
		placeOpening(sess, e)
		return Result{Session: *sess, Reply: &e}
	}

	next, err := Next(sess.LastIdiom, sess.LastTrailing, m.dict.View(), m.rng)
	if err != nil {
		final := m.finalize(ctx, sess, WinnerHuman)
		return Result{Session: *sess, Final: final}
	}

	sess.RoundCount++
	sess.LastIdiom, sess.LastTrailing = next.Idiom, next.Trailing
	metrics.RecordRound("bot")
	return Result{Session: *sess, Reply: &next}
}

// placeOpening puts the system's opening idiom on the table. Openings are not
// rounds, whichever command produced them.
func placeOpening(sess *Session, e dictionary.Entry) {
	sess.LastIdiom, sess.LastTrailing = e.Idiom, e.Trailing
	metrics.RecordOpening()
}

// finalize moves the session to Idle and updates the score ledger. A ledger
// persistence failure is logged; the in-memory best is still reported.
func (m *Manager) finalize(ctx context.Context, sess *Session, winner Winner) *Final {
	sess.State = StateIdle
	best, err := m.ledger.Record(ctx, sess.ChatID, sess.RoundCount)
	if err != nil {
		log.Warn().Err(err).Str("chat", sess.ChatID).Int("rounds", sess.RoundCount).Msg("record score")
	}
	metrics.RecordSessionEnd(string(winner), sess.RoundCount)
	log.Info().
		Str("chat", sess.ChatID).
		Int("rounds", sess.RoundCount).
		Int("best", best).
		Str("winner", string(winner)).
		Msg("game finished")
	return &Final{Rounds: sess.RoundCount, Best: best, Winner: winner}
}
