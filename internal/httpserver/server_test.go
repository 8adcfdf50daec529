package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/robalobadob/idiomchain/internal/bot"
	"github.com/robalobadob/idiomchain/internal/contrib"
	"github.com/robalobadob/idiomchain/internal/dictionary"
	"github.com/robalobadob/idiomchain/internal/game"
	"github.com/robalobadob/idiomchain/internal/ledger"
	"github.com/robalobadob/idiomchain/internal/notify"
	"github.com/robalobadob/idiomchain/internal/phonetic"
	"github.com/robalobadob/idiomchain/internal/store"
)

type zeroRand struct{}

func (zeroRand) IntN(int) int { return 0 }

func setupServer(t *testing.T) *Server {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	dict := dictionary.New(dictionary.Corpus{
		"yi": {"一心一意": "yi"},
		"ma": {"马到成功": "gong"},
	}, nil, nil, zeroRand{})
	l := ledger.New(nil, nil)
	games := game.NewManager(dict, l, store.NewMemory(), zeroRand{})
	wf := contrib.New(dict, phonetic.Table{"画蛇添足": {"hua", "zu"}}, nil, nil)

	return New(Deps{
		Bot:     bot.New(games, wf, "mod", notify.Log{}),
		Games:   games,
		Dict:    dict,
		Ledger:  l,
		Contrib: wf,
	}, Auth{
		ModeratorID:           "mod",
		ModeratorPasswordHash: string(hash),
		JWTSecret:             "test-secret",
	}, "")
}

func do(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeEvents(t *testing.T, rec *httptest.ResponseRecorder) []notify.Event {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res commandRes
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return res.Events
}

func TestHealthAndMetrics(t *testing.T) {
	s := setupServer(t)
	if rec := do(t, s, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/metrics", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("metrics: %d", rec.Code)
	}
	rec := do(t, s, http.MethodGet, "/debug/idioms", "", nil)
	var st dictionary.Stats
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil || st.Total != 2 {
		t.Fatalf("unexpected stats %+v (%v)", st, err)
	}
	if rec := do(t, s, http.MethodGet, "/nope", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCommandFlow(t *testing.T) {
	s := setupServer(t)

	events := decodeEvents(t, do(t, s, http.MethodPost, "/chats/42/commands", "", bot.Command{Kind: bot.StartGame}))
	if len(events) != 1 || events[0].Kind != notify.GameStarted || events[0].ChatID != "42" {
		t.Fatalf("unexpected start events %+v", events)
	}

	decodeEvents(t, do(t, s, http.MethodPost, "/chats/42/commands", "", bot.Command{Kind: bot.ChooseUserFirst}))
	events = decodeEvents(t, do(t, s, http.MethodPost, "/chats/42/commands", "", bot.Command{Kind: bot.SubmitIdiom, Text: "马到成功"}))
	last := events[len(events)-1]
	if last.Kind != notify.SessionEnded || last.Rounds != 1 {
		t.Fatalf("expected session end after 1 round, got %+v", events)
	}

	rec := do(t, s, http.MethodGet, "/scores/42", "", nil)
	var score struct {
		ChatID string `json:"chatId"`
		Best   int    `json:"best"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&score); err != nil || score.Best != 1 {
		t.Fatalf("unexpected score %+v (%v)", score, err)
	}

	rec = do(t, s, http.MethodGet, "/chats/42/session", "", nil)
	var sess game.Session
	if err := json.NewDecoder(rec.Body).Decode(&sess); err != nil || sess.State != game.StateIdle {
		t.Fatalf("unexpected session %+v (%v)", sess, err)
	}
}

func TestCommandErrors(t *testing.T) {
	s := setupServer(t)
	if rec := do(t, s, http.MethodPost, "/chats/42/commands", "", bot.Command{Kind: "dance"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	req := httptest.NewRequest(http.MethodPost, "/chats/42/commands", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad json, got %d", rec.Code)
	}
	cmd := bot.Command{Kind: bot.ModeratorDecision, Sender: bot.Sender{ID: "mod"}, PendingID: "x", Approve: true}
	if rec := do(t, s, http.MethodPost, "/chats/42/commands", "", cmd); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for decision over chat route, got %d", rec.Code)
	}
}

func login(t *testing.T, s *Server, password string) (string, int) {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/auth/login", "", loginReq{ID: "mod", Password: password})
	if rec.Code != http.StatusOK {
		return "", rec.Code
	}
	var res struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return res.Token, rec.Code
}

func TestModerationFlow(t *testing.T) {
	s := setupServer(t)

	if _, code := login(t, s, "wrong"); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", code)
	}
	if rec := do(t, s, http.MethodGet, "/moderation/pending", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/moderation/pending", "garbage", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", rec.Code)
	}

	events := decodeEvents(t, do(t, s, http.MethodPost, "/chats/42/commands", "", bot.Command{
		Kind:   bot.SubmitContribution,
		Sender: bot.Sender{ID: "u1"},
		Text:   "画蛇添足",
	}))
	if len(events) != 2 || events[1].Kind != notify.ContributionPending {
		t.Fatalf("unexpected contribution events %+v", events)
	}
	id := events[1].PendingID

	token, code := login(t, s, "hunter22")
	if code != http.StatusOK || token == "" {
		t.Fatalf("login failed: %d", code)
	}

	rec := do(t, s, http.MethodGet, "/moderation/pending", token, nil)
	var pending []contrib.Pending
	if err := json.NewDecoder(rec.Body).Decode(&pending); err != nil || len(pending) != 1 || pending[0].ID != id {
		t.Fatalf("unexpected pending list %+v (%v)", pending, err)
	}

	events = decodeEvents(t, do(t, s, http.MethodPost, "/moderation/pending/"+id+"/approve", token, nil))
	if len(events) != 1 || events[0].Kind != notify.ContributionResolved || !events[0].Approved || events[0].ChatID != "42" {
		t.Fatalf("unexpected decision events %+v", events)
	}

	events = decodeEvents(t, do(t, s, http.MethodPost, "/moderation/pending/"+id+"/reject", token, nil))
	if len(events) != 1 || events[0].Reason != notify.ReasonNotPending {
		t.Fatalf("expected not pending, got %+v", events)
	}

	if _, err := s.deps.Dict.Lookup("画蛇添足"); err != nil {
		t.Fatalf("approved idiom missing: %v", err)
	}
}
