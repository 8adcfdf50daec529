// internal/bot/dispatcher.go
//
// Dispatcher: routes Commands to the game manager and the contribution
// workflow and turns the results into notify.Events.
//
// Recoverable domain errors (unknown idiom, chain mismatch, duplicate
// contribution, ...) are reported as ChainRejected events, not as Go
// errors. Dispatch only fails for malformed commands and for moderator
// actions from anyone but the moderator.

package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/idiomchain/internal/contrib"
	"github.com/robalobadob/idiomchain/internal/game"
	"github.com/robalobadob/idiomchain/internal/notify"
)

type Dispatcher struct {
	games       *game.Manager
	contrib     *contrib.Workflow
	moderatorID string
	pub         notify.Publisher
}

// New wires a Dispatcher. An empty moderatorID disables moderator
// decisions. pub may be nil.
func New(games *game.Manager, wf *contrib.Workflow, moderatorID string, pub notify.Publisher) *Dispatcher {
	return &Dispatcher{games: games, contrib: wf, moderatorID: moderatorID, pub: pub}
}

// IsModerator reports whether id is the configured moderator.
func (d *Dispatcher) IsModerator(id string) bool {
	return d.moderatorID != "" && id == d.moderatorID
}

// Dispatch applies cmd and returns the resulting events, which are also
// handed to the publisher.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) ([]notify.Event, error) {
	var (
		events []notify.Event
		err    error
	)
	if cmd.ChatID == "" {
		return nil, ErrMissingChat
	}
	switch cmd.Kind {
	case StartGame:
		s := d.games.Start(ctx, cmd.ChatID)
		events = []notify.Event{{Kind: notify.GameStarted, ChatID: s.ChatID}}
	case ChooseUserFirst:
		events = d.chooseUserFirst(ctx, cmd)
	case ChooseBotFirst:
		events = d.chooseBotFirst(ctx, cmd)
	case SubmitIdiom:
		events = d.submitIdiom(ctx, cmd)
	case Cue:
		res, cerr := d.games.Cue(ctx, cmd.ChatID)
		if cerr != nil {
			events = []notify.Event{rejected(cmd.ChatID, "", cerr)}
			break
		}
		events = turnEvents(res)
	case EndGame:
		res, eerr := d.games.End(ctx, cmd.ChatID)
		if eerr != nil {
			events = []notify.Event{rejected(cmd.ChatID, "", eerr)}
			break
		}
		events = turnEvents(res)
	case SubmitContribution:
		events = d.submitContribution(ctx, cmd)
	case Retry:
		events = d.retry(cmd)
	case ModeratorDecision:
		events, err = d.decide(ctx, cmd)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Kind)
	}
	if err != nil {
		return nil, err
	}

	if d.pub != nil && len(events) > 0 {
		if perr := d.pub.Publish(ctx, events...); perr != nil {
			log.Warn().Err(perr).Str("chat", cmd.ChatID).Msg("publish events")
		}
	}
	return events, nil
}

func (d *Dispatcher) chooseUserFirst(ctx context.Context, cmd Command) []notify.Event {
	s, err := d.games.ChooseUserFirst(ctx, cmd.ChatID)
	if err != nil {
		return []notify.Event{rejected(cmd.ChatID, "", err)}
	}
	return []notify.Event{{Kind: notify.YourTurn, ChatID: s.ChatID}}
}

func (d *Dispatcher) chooseBotFirst(ctx context.Context, cmd Command) []notify.Event {
	res, err := d.games.ChooseBotFirst(ctx, cmd.ChatID)
	if err != nil {
		return []notify.Event{rejected(cmd.ChatID, "", err)}
	}
	return turnEvents(res)
}

func (d *Dispatcher) submitIdiom(ctx context.Context, cmd Command) []notify.Event {
	res, err := d.games.Submit(ctx, cmd.ChatID, cmd.Text)
	switch {
	case errors.Is(err, game.ErrUnknownIdiom):
		return []notify.Event{
			rejected(cmd.ChatID, cmd.Text, err),
			{Kind: notify.ContributionOffered, ChatID: cmd.ChatID, Idiom: cmd.Text},
		}
	case err != nil:
		return []notify.Event{rejected(cmd.ChatID, cmd.Text, err)}
	}
	return turnEvents(res)
}

func (d *Dispatcher) submitContribution(ctx context.Context, cmd Command) []notify.Event {
	p, err := d.contrib.Submit(ctx, contrib.Submission{
		Idiom:     cmd.Text,
		ChatID:    cmd.ChatID,
		Submitter: contrib.Submitter{ID: cmd.Sender.ID, Name: cmd.Sender.Name},
		Origin:    contrib.Origin{ChatID: cmd.ChatID, MessageID: cmd.MessageID},
	})
	if errors.Is(err, contrib.ErrPersistence) {
		log.Warn().Err(err).Str("pending", p.ID).Msg("pending contribution kept in memory only")
		err = nil
	}
	if err != nil {
		// A refused contribution leaves the running game alone.
		return []notify.Event{rejected(cmd.ChatID, cmd.Text, err)}
	}

	var events []notify.Event
	if cmd.FromGame {
		res, err := d.games.End(ctx, cmd.ChatID)
		if err == nil {
			events = append(events, turnEvents(res)...)
		}
	}

	return append(events,
		notify.Event{
			Kind:      notify.ContributionQueued,
			ChatID:    cmd.ChatID,
			Recipient: p.Submitter.ID,
			Idiom:     p.Idiom,
			PendingID: p.ID,
		},
		notify.Event{
			Kind:          notify.ContributionPending,
			ChatID:        d.moderatorID,
			Recipient:     d.moderatorID,
			Idiom:         p.Idiom,
			Leading:       p.Leading,
			Trailing:      p.Trailing,
			PendingID:     p.ID,
			Submitter:     p.Submitter.ID,
			SubmitterName: p.Submitter.Name,
			OriginChat:    p.Origin.ChatID,
			OriginMessage: p.Origin.MessageID,
		},
	)
}

// retry answers "try another idiom" on the contribution prompt; the game is
// left as it is.
func (d *Dispatcher) retry(cmd Command) []notify.Event {
	s := d.games.Snapshot(cmd.ChatID)
	if s.State == game.StateInProgress {
		return []notify.Event{{Kind: notify.YourTurn, ChatID: cmd.ChatID, Idiom: s.LastIdiom, Rounds: s.RoundCount}}
	}
	return []notify.Event{{Kind: notify.Acknowledged, ChatID: cmd.ChatID}}
}

func (d *Dispatcher) decide(ctx context.Context, cmd Command) ([]notify.Event, error) {
	if !d.IsModerator(cmd.Sender.ID) {
		log.Warn().Str("sender", cmd.Sender.ID).Str("pending", cmd.PendingID).Msg("decision from non-moderator")
		return nil, ErrForbidden
	}
	out, err := d.contrib.Decide(ctx, cmd.PendingID, cmd.Approve)
	if err != nil {
		return []notify.Event{{
			Kind:      notify.ChainRejected,
			ChatID:    cmd.ChatID,
			Reason:    reason(err),
			PendingID: cmd.PendingID,
		}}, nil
	}
	p := out.Pending
	return []notify.Event{{
		Kind:          notify.ContributionResolved,
		ChatID:        p.Origin.ChatID,
		Recipient:     p.Submitter.ID,
		Idiom:         p.Idiom,
		Leading:       p.Leading,
		Trailing:      p.Trailing,
		PendingID:     p.ID,
		Approved:      out.Approved,
		AlreadyKnown:  out.AlreadyKnown,
		Submitter:     p.Submitter.ID,
		SubmitterName: p.Submitter.Name,
		OriginChat:    p.Origin.ChatID,
		OriginMessage: p.Origin.MessageID,
	}}, nil
}

// turnEvents renders the outcome of a move.
func turnEvents(res game.Result) []notify.Event {
	chat := res.Session.ChatID
	var events []notify.Event
	if res.Accepted != nil {
		events = append(events, notify.Event{
			Kind:     notify.IdiomAccepted,
			ChatID:   chat,
			Idiom:    res.Accepted.Idiom,
			Leading:  res.Accepted.Leading,
			Trailing: res.Accepted.Trailing,
			Rounds:   res.Session.RoundCount,
		})
	}
	if res.Reply != nil {
		events = append(events,
			notify.Event{
				Kind:     notify.IdiomProposed,
				ChatID:   chat,
				Idiom:    res.Reply.Idiom,
				Leading:  res.Reply.Leading,
				Trailing: res.Reply.Trailing,
				Rounds:   res.Session.RoundCount,
			},
			notify.Event{Kind: notify.YourTurn, ChatID: chat, Idiom: res.Reply.Idiom, Rounds: res.Session.RoundCount},
		)
	}
	if res.Final != nil {
		events = append(events, notify.Event{
			Kind:   notify.SessionEnded,
			ChatID: chat,
			Rounds: res.Final.Rounds,
			Best:   res.Final.Best,
			Winner: string(res.Final.Winner),
		})
	}
	return events
}

func rejected(chatID, idiom string, err error) notify.Event {
	return notify.Event{Kind: notify.ChainRejected, ChatID: chatID, Idiom: idiom, Reason: reason(err)}
}

func reason(err error) string {
	switch {
	case errors.Is(err, game.ErrUnknownIdiom):
		return notify.ReasonUnknownIdiom
	case errors.Is(err, game.ErrChainMismatch):
		return notify.ReasonChainMismatch
	case errors.Is(err, game.ErrNotActive):
		return notify.ReasonNotActive
	case errors.Is(err, game.ErrWrongState):
		return notify.ReasonWrongState
	case errors.Is(err, game.ErrEmptyDictionary):
		return notify.ReasonEmptyDictionary
	case errors.Is(err, contrib.ErrAlreadyPending):
		return notify.ReasonAlreadyPending
	case errors.Is(err, contrib.ErrDuplicateIdiom):
		return notify.ReasonDuplicateIdiom
	case errors.Is(err, contrib.ErrTranscriptionFailed):
		return notify.ReasonTranscriptionFailed
	case errors.Is(err, contrib.ErrNotPending):
		return notify.ReasonNotPending
	case errors.Is(err, contrib.ErrEmptyIdiom):
		return notify.ReasonInvalidCommand
	default:
		log.Error().Err(err).Msg("unexpected command error")
		return err.Error()
	}
}
