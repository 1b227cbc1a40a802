package server

import (
	"net/http"

	"github.com/stillpoint/dbtcircle/internal/game"
)

// GameStateResponse is the point-in-time snapshot viewers reconcile against.
// Responses and race responses are pre-filtered to the current round; stale
// rounds stay in storage but never travel to clients.
type GameStateResponse struct {
	Game          game.Game           `json:"game"`
	Players       []game.Player       `json:"players"`
	Responses     []game.Response     `json:"responses"`
	RaceResponses []game.RaceResponse `json:"raceResponses"`
}

func handleGameState(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := loadGame(r, store)
		if err != nil {
			writeCommandError(w, err)
			return
		}

		scores, err := store.Scores(r.Context(), g.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		g.Scores = scores

		players, err := store.ListPlayers(r.Context(), g.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		responses, err := store.ListResponses(r.Context(), g.ID, g.CurrentRound)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		raceResponses, err := store.ListRaceResponses(r.Context(), g.ID, g.CurrentRound)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		resp := GameStateResponse{
			Game:          g,
			Players:       players,
			Responses:     responses,
			RaceResponses: raceResponses,
		}
		if resp.Players == nil {
			resp.Players = []game.Player{}
		}
		if resp.Responses == nil {
			resp.Responses = []game.Response{}
		}
		if resp.RaceResponses == nil {
			resp.RaceResponses = []game.RaceResponse{}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
