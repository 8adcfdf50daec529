package ledger

import (
	"context"
	"errors"
	"testing"
)

type memScores struct {
	saved   map[string]int
	saves   int
	loadErr error
	saveErr error
}

func (m *memScores) LoadScores(ctx context.Context) (map[string]int, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.saved, nil
}

func (m *memScores) SaveBest(ctx context.Context, key string, best int) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.saved == nil {
		m.saved = map[string]int{}
	}
	m.saved[key] = best
	m.saves++
	return nil
}

func TestRecordNeverDecreases(t *testing.T) {
	ctx := context.Background()
	persist := &memScores{}
	l := New(nil, persist)

	steps := []struct {
		rounds int
		best   int
	}{
		{3, 3},
		{1, 3},
		{7, 7},
		{7, 7},
		{0, 7},
	}
	for i, s := range steps {
		best, err := l.Record(ctx, "chat", s.rounds)
		if err != nil {
			t.Fatalf("step %d: record: %v", i, err)
		}
		if best != s.best {
			t.Fatalf("step %d: expected best %d, got %d", i, s.best, best)
		}
	}
	if persist.saves != 2 {
		t.Fatalf("expected 2 saves (3 then 7), got %d", persist.saves)
	}
	if persist.saved["chat"] != 7 {
		t.Fatalf("expected persisted best 7, got %d", persist.saved["chat"])
	}
}

func TestRecordKeysAreIndependent(t *testing.T) {
	l := New(map[string]int{"a": 5}, nil)
	if best, _ := l.Record(context.Background(), "b", 2); best != 2 {
		t.Fatalf("expected 2 for b, got %d", best)
	}
	if l.Best("a") != 5 {
		t.Fatalf("a changed: %d", l.Best("a"))
	}
}

func TestRecordPersistenceFailureKeepsMemory(t *testing.T) {
	boom := errors.New("locked")
	l := New(nil, &memScores{saveErr: boom})

	best, err := l.Record(context.Background(), "chat", 4)
	if !errors.Is(err, ErrPersistence) || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped persistence error, got %v", err)
	}
	if best != 4 || l.Best("chat") != 4 {
		t.Fatalf("in-memory best lost: best=%d stored=%d", best, l.Best("chat"))
	}
}

func TestOpenToleratesLoadFailure(t *testing.T) {
	l := Open(context.Background(), &memScores{loadErr: errors.New("no table")})
	if len(l.Snapshot()) != 0 {
		t.Fatalf("expected empty ledger, got %v", l.Snapshot())
	}
}

func TestOpenLoadsScores(t *testing.T) {
	l := Open(context.Background(), &memScores{saved: map[string]int{"chat": 9}})
	if l.Best("chat") != 9 {
		t.Fatalf("expected 9, got %d", l.Best("chat"))
	}
}
