package game

// Game is the authoritative session row. The host is the single writer of
// Phase, Mode, Prompt and RacePrompt; Scores are only ever incremented by
// race judging.
type Game struct {
	ID           string         `json:"id"`
	Code         string         `json:"code"`
	Phase        Phase          `json:"phase"`
	Mode         Mode           `json:"mode"`
	CurrentRound int            `json:"currentRound"`
	Prompt       *string        `json:"prompt"`
	RacePrompt   *RacePrompt    `json:"racePrompt"`
	RaceWinner   *string        `json:"raceWinner"`
	RaceResults  []RaceResponse `json:"raceResults"`
	Scores       map[string]int `json:"scores"`
	CreatedAt    string         `json:"createdAt"`
}

type Player struct {
	ID       string `json:"id"`
	GameID   string `json:"gameId"`
	Name     string `json:"name"`
	JoinedAt string `json:"joinedAt"`
}

// MindState labels a reflection response with one of the three DBT states
// of mind.
const (
	MindStateWise       = "Wise Mind"
	MindStateEmotion    = "Emotion Mind"
	MindStateReasonable = "Reasonable Mind"
)

func ValidMindState(s string) bool {
	switch s {
	case MindStateWise, MindStateEmotion, MindStateReasonable:
		return true
	}
	return false
}

type Response struct {
	ID           string `json:"id"`
	GameID       string `json:"gameId"`
	PlayerID     string `json:"playerId"`
	Round        int    `json:"round"`
	Prompt       string `json:"prompt,omitempty"`
	MindState    string `json:"mindState"`
	TextResponse string `json:"textResponse"`
	CreatedAt    string `json:"createdAt"`
}

// RaceResponse is immutable once created. ID is a real identifier assigned at
// insert; Timestamp (unix millis) is the submission-order key used by judging.
type RaceResponse struct {
	ID        string `json:"id"`
	GameID    string `json:"gameId"`
	PlayerID  string `json:"playerId"`
	Round     int    `json:"round"`
	Action    string `json:"action"`
	Timestamp int64  `json:"timestamp"`
}

// RacePrompt is one opposite-action challenge: the emotion, the situation,
// the urge the emotion pulls toward, and the actions that count as acting
// opposite to it.
type RacePrompt struct {
	Emotion        string   `json:"emotion"`
	Scenario       string   `json:"scenario"`
	Urge           string   `json:"urge"`
	CorrectActions []string `json:"correctActions"`
	Explanation    string   `json:"explanation"`
}
