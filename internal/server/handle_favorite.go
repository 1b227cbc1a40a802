package server

import (
	"net/http"
)

type ToggleFavoriteRequest struct {
	Kind       FavoriteKind `json:"kind"`
	PlayerID   string       `json:"playerId"`
	ResponseID string       `json:"responseId"`
	Favorited  bool         `json:"favorited"`
}

func handleToggleFavorite(store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := loadGame(r, store)
		if err != nil {
			writeCommandError(w, err)
			return
		}

		var req ToggleFavoriteRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Kind == "" {
			req.Kind = FavoriteReflection
		}
		if !ValidFavoriteKind(req.Kind) {
			writeError(w, http.StatusBadRequest, "unknown favorite kind")
			return
		}
		if req.PlayerID == "" || req.ResponseID == "" {
			writeError(w, http.StatusBadRequest, "playerId and responseId are required")
			return
		}

		// Desired-state write: toggling twice always returns to the
		// starting point regardless of delivery retries.
		if err := store.SetFavorite(r.Context(), req.Kind, g.ID, req.PlayerID, req.ResponseID, req.Favorited); err != nil {
			writeError(w, http.StatusInternalServerError, "could not update favorite")
			return
		}

		broker.Publish(r.Context(), g.ID, Event{
			Type:       EventFavoriteChanged,
			PlayerID:   req.PlayerID,
			ResponseID: req.ResponseID,
		})
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

type FavoritesResponse struct {
	// Counts maps response id to the number of favorite edges referencing it.
	Counts map[string]int `json:"counts"`
	// Mine lists the ids the requesting player has favorited, when playerId
	// was passed.
	Mine []string `json:"mine,omitempty"`
}

func handleGetFavorites(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := loadGame(r, store)
		if err != nil {
			writeCommandError(w, err)
			return
		}

		kind := FavoriteKind(r.URL.Query().Get("kind"))
		if kind == "" {
			kind = FavoriteReflection
		}
		if !ValidFavoriteKind(kind) {
			writeError(w, http.StatusBadRequest, "unknown favorite kind")
			return
		}

		counts, err := store.FavoriteCounts(r.Context(), kind, g.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		resp := FavoritesResponse{Counts: counts}
		if playerID := r.URL.Query().Get("playerId"); playerID != "" {
			mine, err := store.PlayerFavorites(r.Context(), kind, g.ID, playerID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			resp.Mine = mine
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
