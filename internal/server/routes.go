package server

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, store Store, broker *Broker, db *sql.DB, rdb *redis.Client) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("DBT Circle API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, db, rdb))

	r.Route("/api", func(r chi.Router) {
		r.Post("/games", handleCreateGame(logger, store))
		r.Get("/games/code/{code}", handleGameLookup(store))

		r.Route("/games/{gameID}", func(r chi.Router) {
			r.Post("/join", handleJoin(logger, store, broker))
			r.Get("/state", handleGameState(store))
			r.Get("/events", handleEvents(store, broker))

			// Host-only phase transitions, authenticated by X-Host-Key.
			r.Post("/mode", handleSetMode(store, broker))
			r.Post("/round", handleStartRound(store, broker))
			r.Post("/reveal", handleReveal(store, broker))
			r.Post("/discussion", handleDiscussion(store, broker))
			r.Post("/race", handleStartRace(store, broker))
			r.Post("/race/end", handleEndRace(logger, store, broker))
			r.Post("/lobby", handleReturnToLobby(store, broker))
			r.Post("/end", handleEndSession(store, broker))

			// Player submissions.
			r.Post("/responses", handleSubmitResponse(store, broker))
			r.Post("/race/responses", handleSubmitRaceAction(store, broker))
			r.Post("/favorites", handleToggleFavorite(store, broker))
			r.Get("/favorites", handleGetFavorites(store))
		})

		r.Get("/leaderboard/stats", handleLeaderboardStats(store))
	})
}
