package server

import (
	"net/http"
	"strings"

	"github.com/stillpoint/dbtcircle/internal/game"
)

type LeaderboardStatsResponse struct {
	// Stats maps player name to all-time hearts received across every game.
	Stats map[string]int `json:"stats"`
}

func handleLeaderboardStats(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var names []string
		for _, raw := range strings.Split(r.URL.Query().Get("playerNames"), ",") {
			if name := strings.TrimSpace(raw); name != "" {
				names = append(names, name)
			}
		}
		if len(names) == 0 {
			writeJSON(w, http.StatusOK, LeaderboardStatsResponse{Stats: map[string]int{}})
			return
		}

		players, err := store.PlayersNamed(r.Context(), names)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		playerIDs := make([]string, 0, len(players))
		for _, p := range players {
			playerIDs = append(playerIDs, p.ID)
		}

		responseOwners, err := store.ResponseOwners(r.Context(), playerIDs)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		favoriteIDs, err := store.FavoriteResponseIDs(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		raceFavoriteIDs, err := store.RaceFavoriteIDs(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		raceOwners, err := store.RaceResponseOwners(r.Context(), raceFavoriteIDs)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		stats := game.AllTimeHearts(names, players, responseOwners, favoriteIDs, raceOwners, raceFavoriteIDs)
		writeJSON(w, http.StatusOK, LeaderboardStatsResponse{Stats: stats})
	}
}
