package store

import (
	"sync"
	"testing"
	"time"

	"github.com/robalobadob/idiomchain/internal/game"
)

func TestAcquireCreatesIdleSession(t *testing.T) {
	m := NewMemory()
	if _, ok := m.Get("c1"); ok {
		t.Fatal("Get must not create sessions")
	}

	sess, release := m.Acquire("c1")
	if sess.State != game.StateIdle || sess.ChatID != "c1" {
		t.Fatalf("unexpected new session %+v", *sess)
	}
	sess.RoundCount = 3
	release()

	got, ok := m.Get("c1")
	if !ok || got.RoundCount != 3 {
		t.Fatalf("mutation not kept: %+v ok=%v", got, ok)
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", m.Len())
	}
}

func TestAcquireSerializesSameChat(t *testing.T) {
	m := NewMemory()
	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, release := m.Acquire("c1")
			defer release()
			v := sess.RoundCount
			time.Sleep(time.Microsecond)
			sess.RoundCount = v + 1
		}()
	}
	wg.Wait()

	got, _ := m.Get("c1")
	if got.RoundCount != n {
		t.Fatalf("lost updates: expected %d, got %d", n, got.RoundCount)
	}
}

func TestAcquireDoesNotBlockOtherChats(t *testing.T) {
	m := NewMemory()
	_, release := m.Acquire("c1")
	defer release()

	done := make(chan struct{})
	go func() {
		_, r := m.Acquire("c2")
		r()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("c2 blocked behind c1")
	}
}
