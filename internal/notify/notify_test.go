package notify

import (
	"context"
	"errors"
	"testing"
)

type failing struct{ err error }

func (f failing) Publish(ctx context.Context, events ...Event) error { return f.err }

func TestFanoutDeliversToAll(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	boom := errors.New("down")
	f := Fanout{a, failing{boom}, Log{}, b}

	err := f.Publish(context.Background(),
		Event{Kind: GameStarted, ChatID: "c"},
		Event{Kind: YourTurn, ChatID: "c"},
	)
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	for _, r := range []*Recorder{a, b} {
		got := r.Events()
		if len(got) != 2 || got[0].Kind != GameStarted || got[1].Kind != YourTurn {
			t.Fatalf("unexpected events %+v", got)
		}
	}
}

func TestFanoutEmpty(t *testing.T) {
	if err := (Fanout{}).Publish(context.Background(), Event{Kind: GameStarted}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestNewRedisRejectsBadURL(t *testing.T) {
	if _, err := NewRedis(context.Background(), "http://not-redis", "idiomchain"); err == nil {
		t.Fatalf("expected error for non-redis url")
	}
}
