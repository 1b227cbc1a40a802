package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi31"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi31.Spec {
	r := openapi31.NewReflector()
	r.Spec.Info.Title = "DBT Circle API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the DBT skills group game.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(map[string]struct {
		Status string `json:"status"`
	}{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getHealthz)

	// POST /api/games
	createGame, _ := r.NewOperationContext(http.MethodPost, "/api/games")
	createGame.SetSummary("Create session")
	createGame.SetDescription("Creates a game in the lobby phase. Returns the game plus the host key; the key authorizes every host command.")
	createGame.AddRespStructure(CreateGameResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	createGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusInternalServerError))
	_ = r.AddOperation(createGame)

	// GET /api/games/code/{code}
	lookup, _ := r.NewOperationContext(http.MethodGet, "/api/games/code/{code}")
	lookup.SetSummary("Look up game by join code")
	lookup.SetDescription("Resolves a short join code (QR link) to a game before joining.")
	lookup.AddRespStructure(GameLookupResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	lookup.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(lookup)

	// POST /api/games/{gameID}/join
	join, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/join")
	join.SetSummary("Join session")
	join.SetDescription("Creates a player in the game. Names need not be unique.")
	join.AddReqStructure(JoinRequest{})
	join.AddRespStructure(JoinResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	join.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	join.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(join)

	// GET /api/games/{gameID}/state
	state, _ := r.NewOperationContext(http.MethodGet, "/api/games/{gameID}/state")
	state.SetSummary("Game snapshot")
	state.SetDescription("Point-in-time snapshot of the game row, players, and current-round responses. Viewers re-fetch this after any reconnect.")
	state.AddRespStructure(GameStateResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	state.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(state)

	// GET /api/games/{gameID}/events
	events, _ := r.NewOperationContext(http.MethodGet, "/api/games/{gameID}/events")
	events.SetSummary("Change event stream")
	events.SetDescription("Server-Sent Events stream of change signals for the game. Best-effort delivery, no replay; reconcile via the snapshot.")
	events.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(events)

	// POST /api/games/{gameID}/mode
	setMode, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/mode")
	setMode.SetSummary("Set game mode")
	setMode.SetDescription("Switches between reflection and opposite-action-race mode. Host only, lobby only.")
	setMode.AddReqStructure(SetModeRequest{})
	setMode.AddRespStructure(GameResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	setMode.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	setMode.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(setMode)

	// POST /api/games/{gameID}/round
	round, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/round")
	round.SetSummary("Start round")
	round.SetDescription("Increments the round, sets the prompt, and enters the prompt phase in one atomic update. Host only.")
	round.AddReqStructure(StartRoundRequest{})
	round.AddRespStructure(GameResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	round.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	round.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(round)

	// POST /api/games/{gameID}/reveal
	reveal, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/reveal")
	reveal.SetSummary("Reveal responses")
	reveal.AddRespStructure(GameResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	reveal.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(reveal)

	// POST /api/games/{gameID}/discussion
	discuss, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/discussion")
	discuss.SetSummary("Start discussion")
	discuss.AddRespStructure(GameResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	discuss.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(discuss)

	// POST /api/games/{gameID}/race
	race, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/race")
	race.SetSummary("Start opposite-action race")
	race.SetDescription("Picks a random race prompt, clears prior race state, and enters the race phase. Host only, race mode only.")
	race.AddRespStructure(GameResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	race.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(race)

	// POST /api/games/{gameID}/race/end
	endRace, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/race/end")
	endRace.SetSummary("End race")
	endRace.SetDescription("Judges the collected actions, awards the winner, snapshots the batch, and enters race reveal. Host only.")
	endRace.AddRespStructure(EndRaceResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	endRace.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(endRace)

	// POST /api/games/{gameID}/lobby
	lobby, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/lobby")
	lobby.SetSummary("Return to lobby")
	lobby.AddRespStructure(GameResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	lobby.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(lobby)

	// POST /api/games/{gameID}/end
	end, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/end")
	end.SetSummary("End session")
	end.AddRespStructure(GameResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	end.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(end)

	// POST /api/games/{gameID}/responses
	respond, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/responses")
	respond.SetSummary("Submit reflection response")
	respond.SetDescription("Records a reflection for the current round. The round stamp is taken from the game row at insert time.")
	respond.AddReqStructure(SubmitResponseRequest{})
	respond.AddRespStructure(SubmitResponseResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	respond.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	respond.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(respond)

	// POST /api/games/{gameID}/race/responses
	raceAction, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/race/responses")
	raceAction.SetSummary("Submit race action")
	raceAction.AddReqStructure(RaceActionRequest{})
	raceAction.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	raceAction.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(raceAction)

	// POST /api/games/{gameID}/favorites
	toggleFav, _ := r.NewOperationContext(http.MethodPost, "/api/games/{gameID}/favorites")
	toggleFav.SetSummary("Toggle favorite")
	toggleFav.SetDescription("Sets the desired liked state of a response for a player. Idempotent in both directions.")
	toggleFav.AddReqStructure(ToggleFavoriteRequest{})
	toggleFav.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(toggleFav)

	// GET /api/games/{gameID}/favorites
	getFav, _ := r.NewOperationContext(http.MethodGet, "/api/games/{gameID}/favorites")
	getFav.SetSummary("Favorite counts")
	getFav.SetDescription("Aggregate favorite counts per response, plus the requesting player's own liked set when playerId is given.")
	getFav.AddRespStructure(FavoritesResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getFav)

	// GET /api/leaderboard/stats
	stats, _ := r.NewOperationContext(http.MethodGet, "/api/leaderboard/stats")
	stats.SetSummary("All-time hearts")
	stats.SetDescription("Cross-session favorite totals keyed by player name. Unknown names map to 0.")
	stats.AddRespStructure(LeaderboardStatsResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(stats)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
