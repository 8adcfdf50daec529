// internal/game/types.go
//
// Core type definitions for the idiom-chain game.
// Defines:
//   - State: lifecycle of a conversation's session.
//   - Session: per-conversation game record.
//   - Winner / Final / Result: outcomes reported back to the transport.
//   - Sentinel errors shared by the engine and the session manager.

package game

import (
	"errors"

	"github.com/robalobadob/idiomchain/internal/dictionary"
)

// State is the lifecycle position of a Session.
type State string

const (
	StateIdle              State = "idle"
	StateAwaitingFirstMove State = "awaiting_first_move"
	StateInProgress        State = "in_progress"
)

// Session holds the game state of a single conversation.
type Session struct {
	ChatID       string `json:"chatId"`
	State        State  `json:"state"`
	RoundCount   int    `json:"roundCount"`   // idioms placed since the last start
	LastIdiom    string `json:"lastIdiom"`    // "" until an idiom is placed
	LastTrailing string `json:"lastTrailing"` // trailing key of LastIdiom
}

// Winner names who won a finished session.
type Winner string

const (
	WinnerHuman Winner = "human" // the system could not continue
	WinnerNone  Winner = "none"  // ended explicitly or abandoned for a contribution
)

// Final is the summary produced when a session ends.
type Final struct {
	Rounds int    `json:"rounds"`
	Best   int    `json:"best"`
	Winner Winner `json:"winner"`
}

// Result reports what a move did.
type Result struct {
	Session  Session           `json:"session"`
	Accepted *dictionary.Entry `json:"accepted,omitempty"` // the human's idiom, on Submit
	Reply    *dictionary.Entry `json:"reply,omitempty"`    // the system's idiom, if it moved
	Final    *Final            `json:"final,omitempty"`    // set when the session ended
}

var (
	ErrUnknownIdiom    = errors.New("unknown idiom")
	ErrChainMismatch   = errors.New("idiom does not chain")
	ErrNoContinuation  = errors.New("no continuation")
	ErrEmptyDictionary = errors.New("dictionary is empty")
	ErrNotActive       = errors.New("no active game")
	ErrWrongState      = errors.New("move not allowed in current state")
)
