package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareRecordsErrorStatus(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/boom/{id}", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"gone"}`, http.StatusGone)
	})
	r.Get("/ok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	gone := httpRequestsTotal.WithLabelValues(http.MethodGet, "/boom/{id}", "410")
	ok := httpRequestsTotal.WithLabelValues(http.MethodGet, "/ok", "200")
	goneBefore, okBefore := testutil.ToFloat64(gone), testutil.ToFloat64(ok)

	for _, path := range []string{"/boom/1", "/boom/2", "/ok"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(gone) - goneBefore; got != 2 {
		t.Fatalf("expected 2 requests counted as 410, got %v", got)
	}
	if got := testutil.ToFloat64(ok) - okBefore; got != 1 {
		t.Fatalf("expected 1 request counted as 200, got %v", got)
	}
}

func TestOpeningIsNotARound(t *testing.T) {
	bot := roundsTotal.WithLabelValues("bot")
	roundsBefore, openingsBefore := testutil.ToFloat64(bot), testutil.ToFloat64(openingsTotal)

	RecordOpening()
	RecordRound("bot")

	if got := testutil.ToFloat64(bot) - roundsBefore; got != 1 {
		t.Fatalf("expected 1 bot round, got %v", got)
	}
	if got := testutil.ToFloat64(openingsTotal) - openingsBefore; got != 1 {
		t.Fatalf("expected 1 opening, got %v", got)
	}
}
