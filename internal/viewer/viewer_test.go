package viewer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stillpoint/dbtcircle/internal/game"
)

func snapshotRound(round int) Snapshot {
	return Snapshot{
		Game: game.Game{ID: "g1", Phase: game.PhasePrompt, CurrentRound: round},
	}
}

func TestMergePlayerIdempotent(t *testing.T) {
	s := NewState()
	p := game.Player{ID: "p1", GameID: "g1", Name: "Alice"}

	assert.True(t, s.MergePlayer(p))
	assert.False(t, s.MergePlayer(p))
	assert.Len(t, s.Snapshot().Players, 1)

	// A changed field replaces the row instead of duplicating it.
	p.Name = "Alicia"
	assert.True(t, s.MergePlayer(p))

	players := s.Snapshot().Players
	require.Len(t, players, 1)
	assert.Equal(t, "Alicia", players[0].Name)
}

func TestMergeResponseRoundFiltering(t *testing.T) {
	s := NewState()
	s.ApplySnapshot(snapshotRound(2))

	stale := game.Response{ID: "r1", Round: 1, TextResponse: "old"}
	assert.False(t, s.MergeResponse(stale), "stale round must be discarded")
	assert.Empty(t, s.Snapshot().Responses)

	current := game.Response{ID: "r2", Round: 2, TextResponse: "new"}
	assert.True(t, s.MergeResponse(current))
	assert.False(t, s.MergeResponse(current), "re-delivery is a no-op")
	assert.Len(t, s.Snapshot().Responses, 1)
}

func TestSetGameRoundAdvanceClearsResponses(t *testing.T) {
	s := NewState()
	s.ApplySnapshot(snapshotRound(1))

	require.True(t, s.MergeResponse(game.Response{ID: "r1", Round: 1}))
	require.True(t, s.MergeRaceResponse(game.RaceResponse{ID: "rr1", Round: 1}))

	s.SetGame(game.Game{ID: "g1", Phase: game.PhasePrompt, CurrentRound: 2})

	snap := s.Snapshot()
	assert.Empty(t, snap.Responses)
	assert.Empty(t, snap.RaceResponses)
	assert.Equal(t, 2, snap.Game.CurrentRound)
}

func TestSetGameSameRoundKeepsResponses(t *testing.T) {
	s := NewState()
	s.ApplySnapshot(snapshotRound(1))
	require.True(t, s.MergeResponse(game.Response{ID: "r1", Round: 1}))

	s.SetGame(game.Game{ID: "g1", Phase: game.PhaseReveal, CurrentRound: 1})

	snap := s.Snapshot()
	assert.Len(t, snap.Responses, 1)
	assert.Equal(t, game.PhaseReveal, snap.Game.Phase)
}

func TestApplySnapshotReplacesDerivedState(t *testing.T) {
	s := NewState()
	s.ApplySnapshot(snapshotRound(1))
	require.True(t, s.MergePlayer(game.Player{ID: "local-only", Name: "Ghost"}))
	require.True(t, s.MergeResponse(game.Response{ID: "r-local", Round: 1}))

	server := snapshotRound(1)
	server.Players = []game.Player{{ID: "p1", Name: "Alice"}}
	server.Responses = []game.Response{{ID: "r1", Round: 1}}
	s.ApplySnapshot(server)

	snap := s.Snapshot()
	require.Len(t, snap.Players, 1)
	assert.Equal(t, "p1", snap.Players[0].ID)
	require.Len(t, snap.Responses, 1)
	assert.Equal(t, "r1", snap.Responses[0].ID)
}

func TestReadEvents(t *testing.T) {
	stream := strings.Join([]string{
		": ping",
		"",
		"event: change",
		`data: {"type":"player_joined","gameId":"g1","playerId":"p1","playerName":"Alice"}`,
		"",
		"event: change",
		`data: {"type":"game_updated","gameId":"g1","phase":"prompt","round":3}`,
		"",
	}, "\n")

	var got []Event
	err := readEvents(strings.NewReader(stream), func(ev Event) {
		got = append(got, ev)
	})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "player_joined", got[0].Type)
	assert.Equal(t, "Alice", got[0].PlayerName)
	assert.Equal(t, "game_updated", got[1].Type)
	assert.Equal(t, 3, got[1].Round)
}

func TestReadEventsFlushesFinalFrameAtEOF(t *testing.T) {
	// A stream cut off before the frame's terminating blank line still
	// delivers the buffered event.
	stream := `data: {"type":"response_added","responseId":"r1"}`

	var got []Event
	err := readEvents(strings.NewReader(stream), func(ev Event) {
		got = append(got, ev)
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "response_added", got[0].Type)
	assert.Equal(t, "r1", got[0].ResponseID)
}

func TestReadEventsIgnoresMalformedData(t *testing.T) {
	stream := "data: not json\n\ndata: {\"type\":\"favorite_changed\"}\n\n"

	var got []Event
	err := readEvents(strings.NewReader(stream), func(ev Event) {
		got = append(got, ev)
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "favorite_changed", got[0].Type)
}
