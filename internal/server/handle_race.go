package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/stillpoint/dbtcircle/internal/game"
)

func handleStartRace(store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := hostGame(r, store)
		if err != nil {
			writeCommandError(w, err)
			return
		}

		prompt := game.RandomRacePrompt()
		promptJSON, err := json.Marshal(prompt)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		promptStr := string(promptJSON)

		// A race is a prompt issuance too: bump the round so its responses
		// correlate to this race and this race only.
		updated, err := transition(r, store, g, game.CmdStartRace, GameUpdate{
			BumpRound:      true,
			RacePromptJSON: &promptStr,
			ClearRace:      true,
		})
		if err != nil {
			writeCommandError(w, err)
			return
		}

		broker.Publish(r.Context(), g.ID, Event{
			Type:  EventGameUpdated,
			Phase: string(updated.Phase),
			Round: updated.CurrentRound,
		})
		writeJSON(w, http.StatusOK, GameResponse{Game: updated})
	}
}

type EndRaceResponse struct {
	Game   game.Game `json:"game"`
	Winner *string   `json:"winner"`
}

func handleEndRace(logger *slog.Logger, store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := hostGame(r, store)
		if err != nil {
			writeCommandError(w, err)
			return
		}

		// Judge the round's collected actions centrally. The snapshot keeps
		// every response, correct or not, for the reveal screen.
		responses, err := store.ListRaceResponses(r.Context(), g.ID, g.CurrentRound)
		if err != nil {
			logger.Error("listing race responses", "game_id", g.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		var correct []string
		if g.RacePrompt != nil {
			correct = g.RacePrompt.CorrectActions
		}

		var winner *string
		if id, ok := game.JudgeRace(responses, correct); ok {
			winner = &id
		}

		snapshot, err := json.Marshal(responses)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		snapshotStr := string(snapshot)

		// Score before the phase flip: if the upsert fails the race is still
		// open and end_race can simply be retried. The reverse order would
		// strand a declared winner with no points and no legal retry.
		if winner != nil {
			if err := store.AddScore(r.Context(), g.ID, *winner, game.RaceWinPoints); err != nil {
				logger.Error("adding race score", "game_id", g.ID, "player_id", *winner, "error", err)
				writeError(w, http.StatusInternalServerError, "could not record score")
				return
			}
		}

		updated, err := transition(r, store, g, game.CmdEndRace, GameUpdate{
			SetRaceWinner:   true,
			RaceWinner:      winner,
			RaceResultsJSON: &snapshotStr,
		})
		if err != nil {
			writeCommandError(w, err)
			return
		}

		broker.Publish(r.Context(), g.ID, Event{
			Type:  EventGameUpdated,
			Phase: string(updated.Phase),
			Round: updated.CurrentRound,
		})
		writeJSON(w, http.StatusOK, EndRaceResponse{Game: updated, Winner: winner})
	}
}

type RaceActionRequest struct {
	PlayerID string `json:"playerId"`
	Action   string `json:"action"`
}

func handleSubmitRaceAction(store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := loadGame(r, store)
		if err != nil {
			writeCommandError(w, err)
			return
		}

		var req RaceActionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.PlayerID == "" || req.Action == "" {
			writeError(w, http.StatusBadRequest, "playerId and action are required")
			return
		}

		if g.Phase != game.PhaseRace {
			writeError(w, http.StatusConflict, "no race is running")
			return
		}

		resp, err := store.InsertRaceResponse(r.Context(), g.ID, req.PlayerID, req.Action)
		if err != nil {
			// Losing a submission silently is the worst failure mode;
			// surface it so the player can retry.
			writeError(w, http.StatusInternalServerError, "could not record action")
			return
		}

		broker.Publish(r.Context(), g.ID, Event{
			Type:       EventRaceResponseAdded,
			PlayerID:   resp.PlayerID,
			Round:      resp.Round,
			ResponseID: resp.ID,
		})
		writeJSON(w, http.StatusOK, map[string]game.RaceResponse{"raceResponse": resp})
	}
}
