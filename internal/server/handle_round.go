package server

import (
	"net/http"
	"strings"

	"github.com/stillpoint/dbtcircle/internal/game"
)

type StartRoundRequest struct {
	// Prompt may be blank; the server then falls back to the built-in
	// rotation for the new round.
	Prompt string `json:"prompt"`
}

type GameResponse struct {
	Game game.Game `json:"game"`
}

func handleStartRound(store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := hostGame(r, store)
		if err != nil {
			writeCommandError(w, err)
			return
		}

		var req StartRoundRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		prompt := strings.TrimSpace(req.Prompt)
		if prompt == "" {
			prompt = game.ReflectionPromptFor(g.CurrentRound + 1)
		}

		// Round bump, prompt, and phase land in one update so every
		// subscriber sees a consistent round/prompt pairing.
		updated, err := transition(r, store, g, game.CmdStartRound, GameUpdate{
			BumpRound: true,
			Prompt:    &prompt,
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

func handleReveal(store Store, broker *Broker) http.HandlerFunc {
	return phaseCommand(store, broker, game.CmdReveal)
}

func handleDiscussion(store Store, broker *Broker) http.HandlerFunc {
	return phaseCommand(store, broker, game.CmdDiscuss)
}

func handleEndSession(store Store, broker *Broker) http.HandlerFunc {
	return phaseCommand(store, broker, game.CmdEndSession)
}

func handleReturnToLobby(store Store, broker *Broker) http.HandlerFunc {
	return phaseCommand(store, broker, game.CmdReturnToLobby)
}

// phaseCommand covers the transitions that change nothing but the phase.
func phaseCommand(store Store, broker *Broker, cmd game.Command) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := hostGame(r, store)
		if err != nil {
			writeCommandError(w, err)
			return
		}

		updated, err := transition(r, store, g, cmd, GameUpdate{})
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

type SetModeRequest struct {
	Mode game.Mode `json:"mode"`
}

func handleSetMode(store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := hostGame(r, store)
		if err != nil {
			writeCommandError(w, err)
			return
		}

		var req SetModeRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !game.ValidMode(req.Mode) {
			writeError(w, http.StatusBadRequest, "unknown mode")
			return
		}

		updated, err := transition(r, store, g, game.CmdSetMode, GameUpdate{Mode: &req.Mode})
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
