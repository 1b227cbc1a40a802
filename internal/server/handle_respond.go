package server

import (
	"net/http"
	"strings"

	"github.com/stillpoint/dbtcircle/internal/game"
)

type SubmitResponseRequest struct {
	PlayerID   string `json:"playerId"`
	MindState  string `json:"mindState"`
	Reflection string `json:"reflection"`
}

type SubmitResponseResponse struct {
	Response game.Response `json:"response"`
}

func handleSubmitResponse(store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := loadGame(r, store)
		if err != nil {
			writeCommandError(w, err)
			return
		}

		var req SubmitResponseRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Reflection = strings.TrimSpace(req.Reflection)
		if req.PlayerID == "" || req.Reflection == "" {
			writeError(w, http.StatusBadRequest, "playerId and reflection are required")
			return
		}
		if !game.ValidMindState(req.MindState) {
			writeError(w, http.StatusBadRequest, "unknown mind state")
			return
		}

		if g.Phase != game.PhasePrompt {
			writeError(w, http.StatusConflict, "responses are only accepted during the prompt phase")
			return
		}

		// The store stamps the response with the game's round at insert
		// time. If the host advances meanwhile, the row lands in the old
		// round and simply never surfaces; players are never blocked on it.
		resp, err := store.InsertResponse(r.Context(), g.ID, req.PlayerID, req.MindState, req.Reflection)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not record response")
			return
		}

		broker.Publish(r.Context(), g.ID, Event{
			Type:       EventResponseAdded,
			PlayerID:   resp.PlayerID,
			Round:      resp.Round,
			ResponseID: resp.ID,
		})
		writeJSON(w, http.StatusOK, SubmitResponseResponse{Response: resp})
	}
}
