// internal/httpserver/routes_moderation.go
//
// Moderator login and the contribution review queue.
//   - POST /auth/login                       → bcrypt check, issue JWT (+ cookie)
//   - POST /auth/logout                      → clear cookie
//   - GET  /moderation/pending               → list pending contributions
//   - POST /moderation/pending/{id}/approve  → approve, respond with events
//   - POST /moderation/pending/{id}/reject   → reject, respond with events
//
// There is a single moderator identity, configured by MODERATOR_ID and
// MODERATOR_PASSWORD_HASH. Without them every moderation route answers 401.

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/robalobadob/idiomchain/internal/bot"
	"github.com/robalobadob/idiomchain/internal/contrib"
)

const cookieName = "idiomchain_token"

type loginReq struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

// ctxModeratorKey is the context key type for the authenticated moderator ID.
type ctxModeratorKey struct{}

func (s *Server) mountModeration() {
	s.r.Post("/auth/login", s.handleLogin)
	s.r.Post("/auth/logout", s.handleLogout)

	s.r.Route("/moderation", func(r chi.Router) {
		r.Use(s.requireModerator())
		r.Get("/pending", s.handleListPending)
		r.Post("/pending/{id}/approve", s.handleDecision(true))
		r.Post("/pending/{id}/reject", s.handleDecision(false))
	})
}

// handleLogin authenticates the moderator and sets the auth cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}
	if !s.moderationEnabled() ||
		strings.TrimSpace(body.ID) != s.auth.ModeratorID ||
		!checkPassword(s.auth.ModeratorPasswordHash, body.Password) {
		http.Error(w, `{"error":"Invalid id or password"}`, http.StatusUnauthorized)
		return
	}
	tok, exp, err := s.signJWT(s.auth.ModeratorID)
	if err != nil {
		http.Error(w, `{"error":"sign_failed"}`, http.StatusInternalServerError)
		return
	}
	setAuthCookie(w, tok, exp)
	log.Info().Str("moderator", s.auth.ModeratorID).Msg("moderator logged in")
	_ = json.NewEncoder(w).Encode(map[string]any{"id": s.auth.ModeratorID, "token": tok, "expiresAt": exp})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: cookieName, Value: "", Path: "/", HttpOnly: true, MaxAge: -1})
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	pending := s.deps.Contrib.List()
	if pending == nil {
		pending = []contrib.Pending{}
	}
	_ = json.NewEncoder(w).Encode(pending)
}

func (s *Server) handleDecision(approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		modID, _ := r.Context().Value(ctxModeratorKey{}).(string)
		events, err := s.deps.Bot.Dispatch(r.Context(), bot.Command{
			Kind:      bot.ModeratorDecision,
			ChatID:    modID,
			Sender:    bot.Sender{ID: modID},
			PendingID: chi.URLParam(r, "id"),
			Approve:   approve,
		})
		if err != nil {
			writeCommandError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(commandRes{Events: events})
	}
}

// ---------------------------- auth middleware ------------------------------

// requireModerator enforces a valid moderator JWT and injects the moderator
// ID into the request context.
func (s *Server) requireModerator() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerOrCookie(r)
			if tokenStr == "" || !s.moderationEnabled() {
				http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
				return
			}
			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				return []byte(s.auth.JWTSecret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
				return
			}
			id, _ := claims["id"].(string)
			if id == "" || id != s.auth.ModeratorID {
				http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ctxModeratorKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Server) moderationEnabled() bool {
	return s.auth.ModeratorID != "" && s.auth.ModeratorPasswordHash != "" && s.auth.JWTSecret != ""
}

// ------------------------------ JWT & cookies ------------------------------

// signJWT creates an HS256 JWT for the moderator.
func (s *Server) signJWT(id string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.auth.JWTExpires)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":   id,
		"role": "moderator",
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	})
	ss, err := t.SignedString([]byte(s.auth.JWTSecret))
	return ss, exp, err
}

func setAuthCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	})
}

// bearerOrCookie extracts a bearer token from Authorization header or auth cookie.
func bearerOrCookie(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

// checkPassword is a bcrypt verifier.
func checkPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
