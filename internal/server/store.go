package server

import (
	"context"
	"errors"

	"github.com/stillpoint/dbtcircle/internal/game"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrStalePhase means a guarded phase update lost the race: the game
	// moved on between the caller's read and the write.
	ErrStalePhase = errors.New("game phase changed")
)

// FavoriteKind selects which favorite-edge table an operation targets.
type FavoriteKind string

const (
	FavoriteReflection FavoriteKind = "reflection"
	FavoriteRace       FavoriteKind = "race"
)

func ValidFavoriteKind(k FavoriteKind) bool {
	return k == FavoriteReflection || k == FavoriteRace
}

// GameUpdate is the set of game-row fields a single transition writes. All
// requested changes land in one UPDATE so subscribers never observe a round
// without its prompt or a winner without its snapshot.
type GameUpdate struct {
	Phase     game.Phase
	BumpRound bool

	Prompt *string
	Mode   *game.Mode

	RacePromptJSON *string
	ClearRace      bool // reset race_winner and race_results

	SetRaceWinner   bool
	RaceWinner      *string // nil with SetRaceWinner means "no winner"
	RaceResultsJSON *string
}

type Store interface {
	CreateGame(ctx context.Context) (g game.Game, hostKey string, err error)
	GameByID(ctx context.Context, id string) (game.Game, error)
	GameByCode(ctx context.Context, code string) (game.Game, error)
	HostKey(ctx context.Context, gameID string) (string, error)

	// ApplyTransition performs a guarded single-row update: it only applies
	// when the stored phase still equals from, returning ErrStalePhase
	// otherwise. The updated row is returned.
	ApplyTransition(ctx context.Context, gameID string, from game.Phase, up GameUpdate) (game.Game, error)

	JoinGame(ctx context.Context, gameID, name string) (game.Player, error)
	ListPlayers(ctx context.Context, gameID string) ([]game.Player, error)

	InsertResponse(ctx context.Context, gameID, playerID, mindState, textResponse string) (game.Response, error)
	ListResponses(ctx context.Context, gameID string, round int) ([]game.Response, error)

	InsertRaceResponse(ctx context.Context, gameID, playerID, action string) (game.RaceResponse, error)
	ListRaceResponses(ctx context.Context, gameID string, round int) ([]game.RaceResponse, error)

	SetFavorite(ctx context.Context, kind FavoriteKind, gameID, playerID, responseID string, favorited bool) error
	FavoriteCounts(ctx context.Context, kind FavoriteKind, gameID string) (map[string]int, error)
	PlayerFavorites(ctx context.Context, kind FavoriteKind, gameID, playerID string) ([]string, error)

	AddScore(ctx context.Context, gameID, playerID string, points int) error
	Scores(ctx context.Context, gameID string) (map[string]int, error)

	// Cross-game queries backing the all-time hearts leaderboard.
	PlayersNamed(ctx context.Context, names []string) ([]game.Player, error)
	ResponseOwners(ctx context.Context, playerIDs []string) (map[string]string, error)
	FavoriteResponseIDs(ctx context.Context) ([]string, error)
	RaceFavoriteIDs(ctx context.Context) ([]string, error)
	RaceResponseOwners(ctx context.Context, ids []string) (map[string]string, error)
}
