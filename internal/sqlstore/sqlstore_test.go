package sqlstore

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/robalobadob/idiomchain/assets"
	"github.com/robalobadob/idiomchain/internal/contrib"
	"github.com/robalobadob/idiomchain/internal/dictionary"
	"github.com/robalobadob/idiomchain/internal/ledger"
)

var (
	_ dictionary.CorpusStore = (*Store)(nil)
	_ ledger.ScoreStore      = (*Store)(nil)
	_ contrib.PendingStore   = (*Store)(nil)
)

func setupDB(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := Migrate(context.Background(), db, assets.Migrations()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(db)
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := setupDB(t)
	if err := Migrate(context.Background(), s.db, assets.Migrations()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM _migrations`).Scan(&n); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 recorded migrations, got %d", n)
	}
}

func TestCorpusSaveReplaces(t *testing.T) {
	ctx := context.Background()
	s := setupDB(t)

	first := dictionary.Corpus{"yi": {"一心一意": "yi", "意气风发": "fa"}}
	if err := s.SaveCorpus(ctx, "contributed", first); err != nil {
		t.Fatalf("save: %v", err)
	}
	second := dictionary.Corpus{"ma": {"马到成功": "gong"}}
	if err := s.SaveCorpus(ctx, "contributed", second); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveCorpus(ctx, "other", first); err != nil {
		t.Fatalf("save other: %v", err)
	}

	got, err := s.LoadCorpus(ctx, "contributed")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Len() != 1 || got["ma"]["马到成功"] != "gong" {
		t.Fatalf("expected only the second corpus, got %v", got)
	}
	other, _ := s.LoadCorpus(ctx, "other")
	if other.Len() != 2 {
		t.Fatalf("corpora are not independent: %v", other)
	}
}

func TestLoadCorpusUnknownName(t *testing.T) {
	got, err := setupDB(t).LoadCorpus(context.Background(), "missing")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Len() != 0 {
		t.Fatalf("expected empty corpus, got %v", got)
	}
}

func TestSaveBestKeepsMaximum(t *testing.T) {
	ctx := context.Background()
	s := setupDB(t)

	for _, v := range []int{3, 8, 5} {
		if err := s.SaveBest(ctx, "chat", v); err != nil {
			t.Fatalf("save %d: %v", v, err)
		}
	}
	if err := s.SaveBest(ctx, "other", 1); err != nil {
		t.Fatalf("save other: %v", err)
	}

	scores, err := s.LoadScores(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if scores["chat"] != 8 || scores["other"] != 1 || len(scores) != 2 {
		t.Fatalf("unexpected scores %v", scores)
	}
}

func TestPendingLifecycle(t *testing.T) {
	ctx := context.Background()
	s := setupDB(t)

	created := time.Date(2024, 5, 1, 8, 30, 0, 123, time.UTC)
	p := contrib.Pending{
		ID:        "p1",
		Idiom:     "画蛇添足",
		Leading:   "hua",
		Trailing:  "zu",
		ChatID:    "chat",
		Submitter: contrib.Submitter{ID: "u1", Name: "Lin"},
		Origin:    contrib.Origin{ChatID: "chat", MessageID: "42"},
		CreatedAt: created,
	}
	if err := s.PutPending(ctx, p); err != nil {
		t.Fatalf("put: %v", err)
	}

	dup := p
	dup.ID = "p2"
	if err := s.PutPending(ctx, dup); err == nil {
		t.Fatalf("expected unique violation for same idiom and chat")
	}
	dup.ChatID = "elsewhere"
	if err := s.PutPending(ctx, dup); err != nil {
		t.Fatalf("put other chat: %v", err)
	}

	got, err := s.LoadPending(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(got))
	}
	if !got[0].CreatedAt.Equal(created) {
		t.Fatalf("created_at mismatch: %v", got[0].CreatedAt)
	}
	got[0].CreatedAt = created
	if got[0] != p {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got[0], p)
	}

	if err := s.DeletePending(ctx, "p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeletePending(ctx, "p1"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	got, _ = s.LoadPending(ctx)
	if len(got) != 1 || got[0].ID != "p2" {
		t.Fatalf("unexpected pending after delete: %+v", got)
	}
}

func TestOpenCreatesParentDir(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "idiomchain.db")
	db, err := Open(dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if err := Migrate(context.Background(), db, assets.Migrations()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := New(db).SaveBest(context.Background(), "chat", 2); err != nil {
		t.Fatalf("save: %v", err)
	}
}
