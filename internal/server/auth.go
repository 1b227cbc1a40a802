package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stillpoint/dbtcircle/internal/game"
)

var errNotHost = errors.New("missing or wrong host key")

// loadGame resolves {gameID} without requiring host authority.
func loadGame(r *http.Request, store Store) (game.Game, error) {
	return store.GameByID(r.Context(), chi.URLParam(r, "gameID"))
}

// hostGame resolves {gameID} and verifies the caller holds the game's host
// key. The host key is the capability that makes its holder the single
// writer of phase, prompt, race prompt, and mode.
func hostGame(r *http.Request, store Store) (game.Game, error) {
	gameID := chi.URLParam(r, "gameID")

	key := r.Header.Get("X-Host-Key")
	if key == "" {
		return game.Game{}, errNotHost
	}

	stored, err := store.HostKey(r.Context(), gameID)
	if err != nil {
		return game.Game{}, err
	}
	if key != stored {
		return game.Game{}, errNotHost
	}

	return store.GameByID(r.Context(), gameID)
}

// transition validates cmd against the loaded game and applies the guarded
// update. A concurrent phase change surfaces as ErrStalePhase.
func transition(r *http.Request, store Store, g game.Game, cmd game.Command, up GameUpdate) (game.Game, error) {
	next, err := game.Next(g.Phase, g.Mode, cmd)
	if err != nil {
		return game.Game{}, err
	}
	up.Phase = next
	return store.ApplyTransition(r.Context(), g.ID, g.Phase, up)
}

// writeCommandError maps command failures onto the HTTP surface: illegal and
// stale transitions are conflicts, unknown games are 404s, a bad host key is
// 401.
func writeCommandError(w http.ResponseWriter, err error) {
	var ite *game.IllegalTransitionError
	switch {
	case errors.As(err, &ite):
		writeError(w, http.StatusConflict, ite.Error())
	case errors.Is(err, ErrStalePhase):
		writeError(w, http.StatusConflict, "game phase changed, reload and retry")
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "game not found")
	case errors.Is(err, errNotHost):
		writeError(w, http.StatusUnauthorized, "host key required")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
