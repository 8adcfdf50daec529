// internal/bot/command.go
//
// Commands are the tagged inputs a chat transport hands to the dispatcher.
// Each Kind uses a subset of the Command fields:
//
//	StartGame, ChooseUserFirst, ChooseBotFirst, Cue, EndGame, Retry: none
//	SubmitIdiom:        Text
//	SubmitContribution: Text, FromGame
//	ModeratorDecision:  PendingID, Approve

package bot

import "errors"

type Kind string

const (
	StartGame          Kind = "start"
	ChooseUserFirst    Kind = "user_first"
	ChooseBotFirst     Kind = "bot_first"
	SubmitIdiom        Kind = "idiom"
	Cue                Kind = "cue"
	EndGame            Kind = "end"
	SubmitContribution Kind = "contribute"
	Retry              Kind = "retry"
	ModeratorDecision  Kind = "decide"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrForbidden      = errors.New("sender is not the moderator")
	ErrMissingChat    = errors.New("command has no chat")
)

// Sender is the identity behind a command.
type Sender struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Command is one user action in a conversation.
type Command struct {
	Kind      Kind   `json:"kind"`
	ChatID    string `json:"chatId"`
	Sender    Sender `json:"sender"`
	MessageID string `json:"messageId,omitempty"`

	Text string `json:"text,omitempty"`
	// FromGame marks a contribution made from the unknown-idiom prompt of
	// a running game; the game ends as a draw before the review opens.
	FromGame bool `json:"fromGame,omitempty"`

	PendingID string `json:"pendingId,omitempty"`
	Approve   bool   `json:"approve,omitempty"`
}
