package game

import (
	"sort"
	"strings"
)

// JudgeRace picks the winner of a time-boxed race. Responses are considered
// in submission order (timestamp, ties broken by stable input order). The
// earliest response whose action matches any correct phrase wins; if nothing
// matches, the earliest response of any content wins. An empty batch has no
// winner.
//
// Matching is a bidirectional case-insensitive substring test, loose on
// purpose so paraphrased actions still count.
func JudgeRace(responses []RaceResponse, correctActions []string) (winnerID string, ok bool) {
	if len(responses) == 0 {
		return "", false
	}

	ordered := make([]RaceResponse, len(responses))
	copy(ordered, responses)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp < ordered[j].Timestamp
	})

	for _, r := range ordered {
		if actionMatches(r.Action, correctActions) {
			return r.PlayerID, true
		}
	}

	// First-responder fallback: nobody matched, fastest answer wins anyway.
	return ordered[0].PlayerID, true
}

func actionMatches(action string, correctActions []string) bool {
	a := strings.ToLower(strings.TrimSpace(action))
	if a == "" {
		return false
	}
	for _, c := range correctActions {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if strings.Contains(a, c) || strings.Contains(c, a) {
			return true
		}
	}
	return false
}

// RaceWinPoints is awarded to the declared winner of each race.
const RaceWinPoints = 10
