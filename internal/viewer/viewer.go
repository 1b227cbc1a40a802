// Package viewer implements the client side of the replication contract: a
// local model fed by snapshots and change events. Snapshots are authoritative;
// events only hint that something changed. All merges are idempotent so
// re-applying a snapshot or re-delivering an event never corrupts the model.
package viewer

import (
	"sync"

	"github.com/stillpoint/dbtcircle/internal/game"
)

// Snapshot mirrors the server's state payload.
type Snapshot struct {
	Game          game.Game           `json:"game"`
	Players       []game.Player       `json:"players"`
	Responses     []game.Response     `json:"responses"`
	RaceResponses []game.RaceResponse `json:"raceResponses"`
}

// State is the viewer's replicated copy of one game. The display sets only
// ever hold the current round; rows from older rounds are discarded on merge.
type State struct {
	mu sync.RWMutex

	game          game.Game
	players       []game.Player
	responses     []game.Response
	raceResponses []game.RaceResponse
}

func NewState() *State {
	return &State{}
}

// ApplySnapshot replaces every derived collection with the server's view.
// Local state never wins over a snapshot.
func (s *State) ApplySnapshot(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.game = snap.Game
	s.players = append([]game.Player(nil), snap.Players...)
	s.responses = append([]game.Response(nil), snap.Responses...)
	s.raceResponses = append([]game.RaceResponse(nil), snap.RaceResponses...)
}

// SetGame updates the game row. When the round advances, responses from the
// previous round are dropped so the display never mixes rounds.
func (s *State) SetGame(g game.Game) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.CurrentRound != s.game.CurrentRound {
		s.responses = nil
		s.raceResponses = nil
	}
	s.game = g
}

// MergePlayer inserts a player if not already present. Reports whether the
// model changed.
func (s *State) MergePlayer(p game.Player) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.players {
		if existing.ID == p.ID {
			if existing == p {
				return false
			}
			s.players[i] = p
			return true
		}
	}
	s.players = append(s.players, p)
	return true
}

// MergeResponse inserts or replaces a response by id. Rows stamped with a
// round other than the current one are discarded.
func (s *State) MergeResponse(r game.Response) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Round != s.game.CurrentRound {
		return false
	}

	for i, existing := range s.responses {
		if existing.ID == r.ID {
			if existing == r {
				return false
			}
			s.responses[i] = r
			return true
		}
	}
	s.responses = append(s.responses, r)
	return true
}

// MergeRaceResponse inserts a race response by id, discarding stale rounds.
// Race responses are immutable, so a duplicate id is always a no-op.
func (s *State) MergeRaceResponse(r game.RaceResponse) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Round != s.game.CurrentRound {
		return false
	}

	for _, existing := range s.raceResponses {
		if existing.ID == r.ID {
			return false
		}
	}
	s.raceResponses = append(s.raceResponses, r)
	return true
}

// Snapshot returns a copy of the current model.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Game:          s.game,
		Players:       append([]game.Player(nil), s.players...),
		Responses:     append([]game.Response(nil), s.responses...),
		RaceResponses: append([]game.RaceResponse(nil), s.raceResponses...),
	}
}
