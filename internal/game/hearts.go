package game

import "regexp"

// Earlier deployments stored race favorites against a derived key of the form
// "race-{playerId}-{timestamp}" instead of a real race_response id. Rows like
// that still exist, so aggregation recovers the authoring player by parsing
// the key when no stored row matches.
var legacyRaceKeyRE = regexp.MustCompile(`^race-(.+)-(\d+)$`)

func legacyRaceKeyPlayerID(raceResponseID string) string {
	m := legacyRaceKeyRE.FindStringSubmatch(raceResponseID)
	if m == nil {
		return ""
	}
	return m[1]
}

// AllTimeHearts sums favorites received per player name across every game.
// Names are the durable cross-session identity: player ids are scoped to one
// game, so every player row whose name matches contributes.
//
// responseOwners maps reflection response id -> authoring player id;
// raceOwners does the same for race response ids. favoriteResponseIDs and
// raceFavoriteIDs are the referenced ids of every favorite edge, one entry
// per edge. Names with no matching players yield 0, not an error.
func AllTimeHearts(
	requestedNames []string,
	players []Player,
	responseOwners map[string]string,
	favoriteResponseIDs []string,
	raceOwners map[string]string,
	raceFavoriteIDs []string,
) map[string]int {
	hearts := make(map[string]int, len(requestedNames))
	requested := make(map[string]bool, len(requestedNames))
	for _, name := range requestedNames {
		hearts[name] = 0
		requested[name] = true
	}

	nameByPlayerID := make(map[string]string)
	for _, p := range players {
		if requested[p.Name] {
			nameByPlayerID[p.ID] = p.Name
		}
	}
	if len(nameByPlayerID) == 0 {
		return hearts
	}

	for _, respID := range favoriteResponseIDs {
		ownerID, ok := responseOwners[respID]
		if !ok {
			continue
		}
		if name, ok := nameByPlayerID[ownerID]; ok {
			hearts[name]++
		}
	}

	for _, raceID := range raceFavoriteIDs {
		ownerID, ok := raceOwners[raceID]
		if !ok {
			ownerID = legacyRaceKeyPlayerID(raceID)
		}
		if name, ok := nameByPlayerID[ownerID]; ok {
			hearts[name]++
		}
	}

	return hearts
}
