package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stillpoint/dbtcircle/internal/game"
)

type SQLiteStore struct {
	db *sql.DB

	// Schema capability flags, resolved once at startup instead of sniffing
	// error messages per request. When a round column is missing (mid-
	// migration deployment) inserts omit it and reads skip round filtering.
	hasResponseRound bool
	hasRaceRound     bool
}

func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}

	var err error
	if s.hasResponseRound, err = columnExists(ctx, db, "responses", "round"); err != nil {
		return nil, fmt.Errorf("probing responses schema: %w", err)
	}
	if s.hasRaceRound, err = columnExists(ctx, db, "race_responses", "round"); err != nil {
		return nil, fmt.Errorf("probing race_responses schema: %w", err)
	}
	return s, nil
}

func columnExists(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column,
	).Scan(&count)
	return count > 0, err
}

const gameColumns = `id, code, phase, mode, current_round, prompt, race_prompt, race_winner, race_results, created_at`

func scanGame(row interface{ Scan(...any) error }) (game.Game, error) {
	var (
		g           game.Game
		prompt      sql.NullString
		racePrompt  sql.NullString
		raceWinner  sql.NullString
		raceResults sql.NullString
	)
	err := row.Scan(&g.ID, &g.Code, &g.Phase, &g.Mode, &g.CurrentRound,
		&prompt, &racePrompt, &raceWinner, &raceResults, &g.CreatedAt)
	if err != nil {
		return g, err
	}

	if prompt.Valid {
		g.Prompt = &prompt.String
	}
	if raceWinner.Valid {
		g.RaceWinner = &raceWinner.String
	}
	if racePrompt.Valid {
		var rp game.RacePrompt
		if err := json.Unmarshal([]byte(racePrompt.String), &rp); err != nil {
			return g, fmt.Errorf("decoding race prompt: %w", err)
		}
		g.RacePrompt = &rp
	}
	if raceResults.Valid {
		if err := json.Unmarshal([]byte(raceResults.String), &g.RaceResults); err != nil {
			return g, fmt.Errorf("decoding race results: %w", err)
		}
	}
	return g, nil
}

func (s *SQLiteStore) CreateGame(ctx context.Context) (game.Game, string, error) {
	hostKey := uuid.NewString()
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO games (id, code, host_key)
		VALUES (?, ?, ?)
		RETURNING `+gameColumns+`
	`, uuid.NewString(), joinCode(6), hostKey)

	g, err := scanGame(row)
	if err != nil {
		return game.Game{}, "", err
	}
	return g, hostKey, nil
}

// joinCode generates a short code for QR/manual entry. The alphabet skips
// easily confused characters.
func joinCode(n int) string {
	const letters = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}

func (s *SQLiteStore) GameByID(ctx context.Context, id string) (game.Game, error) {
	g, err := scanGame(s.db.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return g, ErrNotFound
	}
	return g, err
}

func (s *SQLiteStore) GameByCode(ctx context.Context, code string) (game.Game, error) {
	g, err := scanGame(s.db.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE code = ?`, strings.ToUpper(code)))
	if errors.Is(err, sql.ErrNoRows) {
		return g, ErrNotFound
	}
	return g, err
}

func (s *SQLiteStore) HostKey(ctx context.Context, gameID string) (string, error) {
	var key string
	err := s.db.QueryRowContext(ctx, `SELECT host_key FROM games WHERE id = ?`, gameID).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return key, err
}

func (s *SQLiteStore) ApplyTransition(ctx context.Context, gameID string, from game.Phase, up GameUpdate) (game.Game, error) {
	set := []string{"phase = ?"}
	args := []any{string(up.Phase)}

	if up.BumpRound {
		set = append(set, "current_round = current_round + 1")
	}
	if up.Prompt != nil {
		set = append(set, "prompt = ?")
		args = append(args, *up.Prompt)
	}
	if up.Mode != nil {
		set = append(set, "mode = ?")
		args = append(args, string(*up.Mode))
	}
	if up.RacePromptJSON != nil {
		set = append(set, "race_prompt = ?")
		args = append(args, *up.RacePromptJSON)
	}
	if up.ClearRace {
		set = append(set, "race_winner = NULL", "race_results = NULL")
	}
	if up.SetRaceWinner {
		set = append(set, "race_winner = ?")
		args = append(args, up.RaceWinner)
	}
	if up.RaceResultsJSON != nil {
		set = append(set, "race_results = ?")
		args = append(args, *up.RaceResultsJSON)
	}

	args = append(args, gameID, string(from))
	row := s.db.QueryRowContext(ctx, `
		UPDATE games SET `+strings.Join(set, ", ")+`
		WHERE id = ? AND phase = ?
		RETURNING `+gameColumns+`
	`, args...)

	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		// Either the game does not exist or the phase moved under us.
		if _, idErr := s.GameByID(ctx, gameID); idErr != nil {
			return g, idErr
		}
		return g, ErrStalePhase
	}
	return g, err
}

func (s *SQLiteStore) JoinGame(ctx context.Context, gameID, name string) (game.Player, error) {
	var p game.Player
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO players (id, game_id, name)
		SELECT ?, id, ? FROM games WHERE id = ?
		RETURNING id, game_id, name, joined_at
	`, uuid.NewString(), name, gameID).Scan(&p.ID, &p.GameID, &p.Name, &p.JoinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

func (s *SQLiteStore) ListPlayers(ctx context.Context, gameID string) ([]game.Player, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, game_id, name, joined_at FROM players
		WHERE game_id = ? ORDER BY joined_at
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []game.Player
	for rows.Next() {
		var p game.Player
		if err := rows.Scan(&p.ID, &p.GameID, &p.Name, &p.JoinedAt); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (s *SQLiteStore) InsertResponse(ctx context.Context, gameID, playerID, mindState, textResponse string) (game.Response, error) {
	var r game.Response
	var prompt sql.NullString

	// The round stamp and prompt copy come from the game row inside the
	// INSERT itself, so a concurrent round advance cannot produce a stale
	// pairing.
	if s.hasResponseRound {
		err := s.db.QueryRowContext(ctx, `
			INSERT INTO responses (id, game_id, player_id, round, prompt, mind_state, text_response)
			SELECT ?, id, ?, current_round, prompt, ?, ? FROM games WHERE id = ?
			RETURNING id, game_id, player_id, round, prompt, mind_state, text_response, created_at
		`, uuid.NewString(), playerID, mindState, textResponse, gameID).
			Scan(&r.ID, &r.GameID, &r.PlayerID, &r.Round, &prompt, &r.MindState, &r.TextResponse, &r.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return r, ErrNotFound
		}
		if err != nil {
			return r, err
		}
	} else {
		err := s.db.QueryRowContext(ctx, `
			INSERT INTO responses (id, game_id, player_id, prompt, mind_state, text_response)
			SELECT ?, id, ?, prompt, ?, ? FROM games WHERE id = ?
			RETURNING id, game_id, player_id, prompt, mind_state, text_response, created_at
		`, uuid.NewString(), playerID, mindState, textResponse, gameID).
			Scan(&r.ID, &r.GameID, &r.PlayerID, &prompt, &r.MindState, &r.TextResponse, &r.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return r, ErrNotFound
		}
		if err != nil {
			return r, err
		}
	}

	r.Prompt = prompt.String
	return r, nil
}

func (s *SQLiteStore) ListResponses(ctx context.Context, gameID string, round int) ([]game.Response, error) {
	query := `
		SELECT id, game_id, player_id, round, prompt, mind_state, text_response, created_at
		FROM responses WHERE game_id = ? AND round = ? ORDER BY created_at
	`
	args := []any{gameID, round}
	if !s.hasResponseRound {
		// Round filtering unavailable mid-migration; show everything.
		query = `
			SELECT id, game_id, player_id, 0, prompt, mind_state, text_response, created_at
			FROM responses WHERE game_id = ? ORDER BY created_at
		`
		args = []any{gameID}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []game.Response
	for rows.Next() {
		var r game.Response
		var prompt sql.NullString
		if err := rows.Scan(&r.ID, &r.GameID, &r.PlayerID, &r.Round, &prompt, &r.MindState, &r.TextResponse, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Prompt = prompt.String
		responses = append(responses, r)
	}
	return responses, rows.Err()
}

func (s *SQLiteStore) InsertRaceResponse(ctx context.Context, gameID, playerID, action string) (game.RaceResponse, error) {
	var r game.RaceResponse
	ts := time.Now().UnixMilli()

	if s.hasRaceRound {
		err := s.db.QueryRowContext(ctx, `
			INSERT INTO race_responses (id, game_id, player_id, round, action, ts)
			SELECT ?, id, ?, current_round, ?, ? FROM games WHERE id = ?
			RETURNING id, game_id, player_id, round, action, ts
		`, uuid.NewString(), playerID, action, ts, gameID).
			Scan(&r.ID, &r.GameID, &r.PlayerID, &r.Round, &r.Action, &r.Timestamp)
		if errors.Is(err, sql.ErrNoRows) {
			return r, ErrNotFound
		}
		return r, err
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO race_responses (id, game_id, player_id, action, ts)
		SELECT ?, id, ?, ?, ? FROM games WHERE id = ?
		RETURNING id, game_id, player_id, action, ts
	`, uuid.NewString(), playerID, action, ts, gameID).
		Scan(&r.ID, &r.GameID, &r.PlayerID, &r.Action, &r.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	return r, err
}

func (s *SQLiteStore) ListRaceResponses(ctx context.Context, gameID string, round int) ([]game.RaceResponse, error) {
	query := `
		SELECT id, game_id, player_id, round, action, ts
		FROM race_responses WHERE game_id = ? AND round = ? ORDER BY ts
	`
	args := []any{gameID, round}
	if !s.hasRaceRound {
		query = `
			SELECT id, game_id, player_id, 0, action, ts
			FROM race_responses WHERE game_id = ? ORDER BY ts
		`
		args = []any{gameID}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []game.RaceResponse
	for rows.Next() {
		var r game.RaceResponse
		if err := rows.Scan(&r.ID, &r.GameID, &r.PlayerID, &r.Round, &r.Action, &r.Timestamp); err != nil {
			return nil, err
		}
		responses = append(responses, r)
	}
	return responses, rows.Err()
}

func (k FavoriteKind) table() (name, column string) {
	if k == FavoriteRace {
		return "race_favorites", "race_response_id"
	}
	return "favorites", "response_id"
}

func (s *SQLiteStore) SetFavorite(ctx context.Context, kind FavoriteKind, gameID, playerID, responseID string, favorited bool) error {
	table, column := kind.table()
	var err error
	if favorited {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO `+table+` (game_id, player_id, `+column+`)
			VALUES (?, ?, ?)
			ON CONFLICT DO NOTHING
		`, gameID, playerID, responseID)
	} else {
		_, err = s.db.ExecContext(ctx, `
			DELETE FROM `+table+`
			WHERE game_id = ? AND player_id = ? AND `+column+` = ?
		`, gameID, playerID, responseID)
	}
	return err
}

func (s *SQLiteStore) FavoriteCounts(ctx context.Context, kind FavoriteKind, gameID string) (map[string]int, error) {
	table, column := kind.table()
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+column+`, COUNT(*) FROM `+table+`
		WHERE game_id = ? GROUP BY `+column+`
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) PlayerFavorites(ctx context.Context, kind FavoriteKind, gameID, playerID string) ([]string, error) {
	table, column := kind.table()
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+column+` FROM `+table+`
		WHERE game_id = ? AND player_id = ?
	`, gameID, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddScore is the store's atomic increment: a single upsert, safe against
// concurrent writers, never decrementing.
func (s *SQLiteStore) AddScore(ctx context.Context, gameID, playerID string, points int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scores (game_id, player_id, points)
		VALUES (?, ?, ?)
		ON CONFLICT (game_id, player_id) DO UPDATE SET points = points + excluded.points
	`, gameID, playerID, points)
	return err
}

func (s *SQLiteStore) Scores(ctx context.Context, gameID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT player_id, points FROM scores WHERE game_id = ?
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := make(map[string]int)
	for rows.Next() {
		var id string
		var points int
		if err := rows.Scan(&id, &points); err != nil {
			return nil, err
		}
		scores[id] = points
	}
	return scores, rows.Err()
}

func (s *SQLiteStore) PlayersNamed(ctx context.Context, names []string) ([]game.Player, error) {
	if len(names) == 0 {
		return nil, nil
	}
	query := `
		SELECT id, game_id, name, joined_at FROM players
		WHERE name IN (` + placeholders(len(names)) + `)
	`
	rows, err := s.db.QueryContext(ctx, query, toAnys(names)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []game.Player
	for rows.Next() {
		var p game.Player
		if err := rows.Scan(&p.ID, &p.GameID, &p.Name, &p.JoinedAt); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (s *SQLiteStore) ResponseOwners(ctx context.Context, playerIDs []string) (map[string]string, error) {
	if len(playerIDs) == 0 {
		return map[string]string{}, nil
	}
	query := `
		SELECT id, player_id FROM responses
		WHERE player_id IN (` + placeholders(len(playerIDs)) + `)
	`
	return s.idPairs(ctx, query, toAnys(playerIDs)...)
}

func (s *SQLiteStore) FavoriteResponseIDs(ctx context.Context) ([]string, error) {
	return s.idList(ctx, `SELECT response_id FROM favorites`)
}

func (s *SQLiteStore) RaceFavoriteIDs(ctx context.Context) ([]string, error) {
	return s.idList(ctx, `SELECT race_response_id FROM race_favorites`)
}

func (s *SQLiteStore) RaceResponseOwners(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}
	query := `
		SELECT id, player_id FROM race_responses
		WHERE id IN (` + placeholders(len(ids)) + `)
	`
	return s.idPairs(ctx, query, toAnys(ids)...)
}

func (s *SQLiteStore) idList(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) idPairs(ctx context.Context, query string, args ...any) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pairs := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		pairs[k] = v
	}
	return pairs, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toAnys(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
