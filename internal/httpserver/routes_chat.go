// internal/httpserver/routes_chat.go
//
// Chat routes used by the bot gateway:
//   - POST /chats/{chatID}/commands → apply one Command, respond with events
//   - GET  /chats/{chatID}/session  → current game session
//   - GET  /scores/{chatID}         → best chain length for the chat

package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/idiomchain/internal/bot"
	"github.com/robalobadob/idiomchain/internal/notify"
)

type commandRes struct {
	Events []notify.Event `json:"events"`
}

func (s *Server) mountChat() {
	s.r.Route("/chats/{chatID}", func(r chi.Router) {
		r.Post("/commands", s.handleCommand)
		r.Get("/session", s.handleSession)
	})
	s.r.Get("/scores/{chatID}", s.handleScore)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd bot.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	cmd.ChatID = chi.URLParam(r, "chatID")

	// Moderator decisions go through /moderation where the sender is
	// authenticated; a chat payload cannot claim the moderator identity.
	if cmd.Kind == bot.ModeratorDecision {
		http.Error(w, `{"error":"Forbidden"}`, http.StatusForbidden)
		return
	}

	events, err := s.deps.Bot.Dispatch(r.Context(), cmd)
	if err != nil {
		log.Debug().Err(err).Str("chat", cmd.ChatID).Str("kind", string(cmd.Kind)).Msg("command rejected")
		writeCommandError(w, err)
		return
	}
	if events == nil {
		events = []notify.Event{}
	}
	_ = json.NewEncoder(w).Encode(commandRes{Events: events})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(s.deps.Games.Snapshot(chi.URLParam(r, "chatID")))
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"chatId": chatID,
		"best":   s.deps.Ledger.Best(chatID),
	})
}
