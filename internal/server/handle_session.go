package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/stillpoint/dbtcircle/internal/game"
)

type CreateGameResponse struct {
	Game    game.Game `json:"game"`
	HostKey string    `json:"hostKey"`
}

func handleCreateGame(logger *slog.Logger, store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, hostKey, err := store.CreateGame(r.Context())
		if err != nil {
			// Session creation is the one command whose failure must be
			// loud: the host retries from the UI.
			logger.Error("creating game", "error", err)
			writeError(w, http.StatusInternalServerError, "could not create session")
			return
		}

		writeJSON(w, http.StatusCreated, CreateGameResponse{Game: g, HostKey: hostKey})
	}
}

type GameLookupResponse struct {
	ID    string     `json:"id"`
	Code  string     `json:"code"`
	Phase game.Phase `json:"phase"`
	Mode  game.Mode  `json:"mode"`
}

func handleGameLookup(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := store.GameByCode(r.Context(), chi.URLParam(r, "code"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, GameLookupResponse{ID: g.ID, Code: g.Code, Phase: g.Phase, Mode: g.Mode})
	}
}

type JoinRequest struct {
	Name string `json:"name"`
}

type JoinResponse struct {
	Player game.Player `json:"player"`
}

func handleJoin(logger *slog.Logger, store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req JoinRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		gameID := chi.URLParam(r, "gameID")
		p, err := store.JoinGame(r.Context(), gameID, req.Name)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		if err != nil {
			logger.Error("joining game", "game_id", gameID, "error", err)
			writeError(w, http.StatusInternalServerError, "could not join")
			return
		}

		broker.Publish(r.Context(), gameID, Event{
			Type:       EventPlayerJoined,
			PlayerID:   p.ID,
			PlayerName: p.Name,
		})

		writeJSON(w, http.StatusOK, JoinResponse{Player: p})
	}
}
