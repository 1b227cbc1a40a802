package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/stillpoint/dbtcircle/internal/database"
	"github.com/stillpoint/dbtcircle/internal/game"
	"github.com/stillpoint/dbtcircle/internal/migrations"
)

func testRouter(t *testing.T) *chi.Mux {
	t.Helper()
	return testRouterWith(t, func(s Store) Store { return s })
}

// testRouterWith lets a test wrap the store, e.g. to inject failures.
func testRouterWith(t *testing.T, wrap func(Store) Store) *chi.Mux {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	store, err := NewSQLiteStore(ctx, db)
	if err != nil {
		t.Fatalf("init store: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	broker := NewBroker(logger, nil)

	r := chi.NewRouter()
	addRoutes(r, logger, wrap(store), broker, db, nil)
	return r
}

func doJSON(t *testing.T, r *chi.Mux, method, path, hostKey string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if hostKey != "" {
		req.Header.Set("X-Host-Key", hostKey)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createGame(t *testing.T, r *chi.Mux) CreateGameResponse {
	t.Helper()

	w := doJSON(t, r, http.MethodPost, "/api/games", "", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create game: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp CreateGameResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Game.ID == "" || resp.HostKey == "" {
		t.Fatalf("create game: missing id or host key: %+v", resp)
	}
	return resp
}

func joinGame(t *testing.T, r *chi.Mux, gameID, name string) game.Player {
	t.Helper()

	w := doJSON(t, r, http.MethodPost, "/api/games/"+gameID+"/join", "", JoinRequest{Name: name})
	if w.Code != http.StatusOK {
		t.Fatalf("join: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp JoinResponse
	json.NewDecoder(w.Body).Decode(&resp)
	return resp.Player
}

func gameState(t *testing.T, r *chi.Mux, gameID string) GameStateResponse {
	t.Helper()

	w := doJSON(t, r, http.MethodGet, "/api/games/"+gameID+"/state", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("state: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp GameStateResponse
	json.NewDecoder(w.Body).Decode(&resp)
	return resp
}

func TestCreateAndLookup(t *testing.T) {
	r := testRouter(t)
	created := createGame(t, r)

	if created.Game.Phase != game.PhaseLobby {
		t.Errorf("expected lobby phase, got %q", created.Game.Phase)
	}
	if created.Game.Mode != game.ModeReflection {
		t.Errorf("expected reflection mode, got %q", created.Game.Mode)
	}
	if len(created.Game.Code) != 6 {
		t.Errorf("expected 6-char join code, got %q", created.Game.Code)
	}

	w := doJSON(t, r, http.MethodGet, "/api/games/code/"+created.Game.Code, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("lookup: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var lookup GameLookupResponse
	json.NewDecoder(w.Body).Decode(&lookup)
	if lookup.ID != created.Game.ID {
		t.Errorf("lookup: expected id %q, got %q", created.Game.ID, lookup.ID)
	}

	w = doJSON(t, r, http.MethodGet, "/api/games/code/NOPE99", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown code: expected 404, got %d", w.Code)
	}
}

func TestJoinValidation(t *testing.T) {
	r := testRouter(t)
	created := createGame(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/games/"+created.Game.ID+"/join", "", JoinRequest{Name: "   "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank name: expected 400, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/games/no-such-game/join", "", JoinRequest{Name: "Alice"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown game: expected 404, got %d", w.Code)
	}
}

func TestHostKeyRequired(t *testing.T) {
	r := testRouter(t)
	created := createGame(t, r)
	path := "/api/games/" + created.Game.ID + "/round"

	w := doJSON(t, r, http.MethodPost, path, "", StartRoundRequest{})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no key: expected 401, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, path, "wrong-key", StartRoundRequest{})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: expected 401, got %d", w.Code)
	}
}

func TestReflectionRound(t *testing.T) {
	r := testRouter(t)
	created := createGame(t, r)
	gameID, key := created.Game.ID, created.HostKey

	alice := joinGame(t, r, gameID, "Alice")

	// Start the round with the built-in prompt rotation.
	w := doJSON(t, r, http.MethodPost, "/api/games/"+gameID+"/round", key, StartRoundRequest{})
	if w.Code != http.StatusOK {
		t.Fatalf("start round: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var started GameResponse
	json.NewDecoder(w.Body).Decode(&started)
	if started.Game.Phase != game.PhasePrompt {
		t.Errorf("expected prompt phase, got %q", started.Game.Phase)
	}
	if started.Game.CurrentRound != 1 {
		t.Errorf("expected round 1, got %d", started.Game.CurrentRound)
	}
	if started.Game.Prompt == nil || *started.Game.Prompt == "" {
		t.Error("expected a non-empty prompt")
	}

	// Alice submits her reflection.
	w = doJSON(t, r, http.MethodPost, "/api/games/"+gameID+"/responses", "", SubmitResponseRequest{
		PlayerID:   alice.ID,
		MindState:  game.MindStateWise,
		Reflection: "I paused before reacting",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var submitted SubmitResponseResponse
	json.NewDecoder(w.Body).Decode(&submitted)
	if submitted.Response.Round != 1 {
		t.Errorf("expected response stamped with round 1, got %d", submitted.Response.Round)
	}
	if submitted.Response.ID == "" {
		t.Error("expected a response id")
	}

	// Reveal and check the snapshot.
	w = doJSON(t, r, http.MethodPost, "/api/games/"+gameID+"/reveal", key, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reveal: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	state := gameState(t, r, gameID)
	if state.Game.Phase != game.PhaseReveal {
		t.Errorf("expected reveal phase, got %q", state.Game.Phase)
	}
	if len(state.Responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(state.Responses))
	}
	if state.Responses[0].PlayerID != alice.ID {
		t.Errorf("expected Alice's response, got player %q", state.Responses[0].PlayerID)
	}
	if state.Responses[0].MindState != game.MindStateWise {
		t.Errorf("expected Wise Mind, got %q", state.Responses[0].MindState)
	}

	// No favorites yet.
	w = doJSON(t, r, http.MethodGet, "/api/games/"+gameID+"/favorites", "", nil)
	var favs FavoritesResponse
	json.NewDecoder(w.Body).Decode(&favs)
	if len(favs.Counts) != 0 {
		t.Errorf("expected zero favorite counts, got %v", favs.Counts)
	}
}

func TestResponseOutsidePromptPhase(t *testing.T) {
	r := testRouter(t)
	created := createGame(t, r)
	alice := joinGame(t, r, created.Game.ID, "Alice")

	w := doJSON(t, r, http.MethodPost, "/api/games/"+created.Game.ID+"/responses", "", SubmitResponseRequest{
		PlayerID:   alice.ID,
		MindState:  game.MindStateWise,
		Reflection: "too early",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("lobby submit: expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestIllegalTransition(t *testing.T) {
	r := testRouter(t)
	created := createGame(t, r)

	// Reveal straight from the lobby is not a legal command.
	w := doJSON(t, r, http.MethodPost, "/api/games/"+created.Game.ID+"/reveal", created.HostKey, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d: %s", w.Code, w.Body.String())
	}

	// The phase must be unchanged afterwards.
	state := gameState(t, r, created.Game.ID)
	if state.Game.Phase != game.PhaseLobby {
		t.Errorf("expected lobby after rejected command, got %q", state.Game.Phase)
	}
}

func TestRoundIsolation(t *testing.T) {
	r := testRouter(t)
	created := createGame(t, r)
	gameID, key := created.Game.ID, created.HostKey
	alice := joinGame(t, r, gameID, "Alice")

	doJSON(t, r, http.MethodPost, "/api/games/"+gameID+"/round", key, StartRoundRequest{})
	doJSON(t, r, http.MethodPost, "/api/games/"+gameID+"/responses", "", SubmitResponseRequest{
		PlayerID:   alice.ID,
		MindState:  game.MindStateEmotion,
		Reflection: "round one",
	})
	doJSON(t, r, http.MethodPost, "/api/games/"+gameID+"/reveal", key, nil)
	doJSON(t, r, http.MethodPost, "/api/games/"+gameID+"/discussion", key, nil)

	w := doJSON(t, r, http.MethodPost, "/api/games/"+gameID+"/round", key, StartRoundRequest{Prompt: "A fresh prompt"})
	if w.Code != http.StatusOK {
		t.Fatalf("second round: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	state := gameState(t, r, gameID)
	if state.Game.CurrentRound != 2 {
		t.Fatalf("expected round 2, got %d", state.Game.CurrentRound)
	}
	if state.Game.Prompt == nil || *state.Game.Prompt != "A fresh prompt" {
		t.Errorf("expected custom prompt, got %v", state.Game.Prompt)
	}
	if len(state.Responses) != 0 {
		t.Errorf("expected no responses in the new round, got %d", len(state.Responses))
	}
}

func TestFavoriteToggleIdempotent(t *testing.T) {
	r := testRouter(t)
	created := createGame(t, r)
	gameID, key := created.Game.ID, created.HostKey
	alice := joinGame(t, r, gameID, "Alice")
	bob := joinGame(t, r, gameID, "Bob")

	doJSON(t, r, http.MethodPost, "/api/games/"+gameID+"/round", key, StartRoundRequest{})
	w := doJSON(t, r, http.MethodPost, "/api/games/"+gameID+"/responses", "", SubmitResponseRequest{
		PlayerID:   alice.ID,
		MindState:  game.MindStateWise,
		Reflection: "breathing helped",
	})
	var submitted SubmitResponseResponse
	json.NewDecoder(w.Body).Decode(&submitted)
	responseID := submitted.Response.ID

	favorite := func(favorited bool) {
		w := doJSON(t, r, http.MethodPost, "/api/games/"+gameID+"/favorites", "", ToggleFavoriteRequest{
			PlayerID:   bob.ID,
			ResponseID: responseID,
			Favorited:  favorited,
		})
		if w.Code != http.StatusOK {
			t.Fatalf("toggle: expected 200, got %d: %s", w.Code, w.Body.String())
		}
	}

	counts := func() map[string]int {
		w := doJSON(t, r, http.MethodGet, "/api/games/"+gameID+"/favorites?playerId="+bob.ID, "", nil)
		var resp FavoritesResponse
		json.NewDecoder(w.Body).Decode(&resp)
		return resp.Counts
	}

	// Favoriting twice counts once.
	favorite(true)
	favorite(true)
	if got := counts()[responseID]; got != 1 {
		t.Errorf("after double favorite: expected count 1, got %d", got)
	}

	// Unfavoriting twice lands on zero.
	favorite(false)
	favorite(false)
	if got := counts()[responseID]; got != 0 {
		t.Errorf("after double unfavorite: expected count 0, got %d", got)
	}
}

func TestLeaderboardStats(t *testing.T) {
	r := testRouter(t)

	// No names means an empty map, not an error.
	w := doJSON(t, r, http.MethodGet, "/api/leaderboard/stats", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("empty query: expected 200, got %d", w.Code)
	}
	var empty LeaderboardStatsResponse
	json.NewDecoder(w.Body).Decode(&empty)
	if len(empty.Stats) != 0 {
		t.Errorf("expected empty stats, got %v", empty.Stats)
	}

	// One favorited response gives its author one all-time heart.
	created := createGame(t, r)
	gameID, key := created.Game.ID, created.HostKey
	alice := joinGame(t, r, gameID, "Alice")
	bob := joinGame(t, r, gameID, "Bob")

	doJSON(t, r, http.MethodPost, "/api/games/"+gameID+"/round", key, StartRoundRequest{})
	resp := doJSON(t, r, http.MethodPost, "/api/games/"+gameID+"/responses", "", SubmitResponseRequest{
		PlayerID:   alice.ID,
		MindState:  game.MindStateReasonable,
		Reflection: "made a list of facts",
	})
	var submitted SubmitResponseResponse
	json.NewDecoder(resp.Body).Decode(&submitted)

	doJSON(t, r, http.MethodPost, "/api/games/"+gameID+"/favorites", "", ToggleFavoriteRequest{
		PlayerID:   bob.ID,
		ResponseID: submitted.Response.ID,
		Favorited:  true,
	})

	w = doJSON(t, r, http.MethodGet, "/api/leaderboard/stats?playerNames=Alice,Bob,Carol", "", nil)
	var stats LeaderboardStatsResponse
	json.NewDecoder(w.Body).Decode(&stats)

	if stats.Stats["Alice"] != 1 {
		t.Errorf("expected Alice to have 1 heart, got %d", stats.Stats["Alice"])
	}
	if stats.Stats["Bob"] != 0 {
		t.Errorf("expected Bob to have 0 hearts, got %d", stats.Stats["Bob"])
	}
	if got, ok := stats.Stats["Carol"]; !ok || got != 0 {
		t.Errorf("expected Carol present with 0 hearts, got %d (present=%v)", got, ok)
	}
}
