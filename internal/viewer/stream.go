package viewer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stillpoint/dbtcircle/internal/game"
)

// Event mirrors the server's change signal. It carries ids and hints, never
// full entities; anything it cannot express is picked up by the next snapshot.
type Event struct {
	Type       string `json:"type"`
	GameID     string `json:"gameId"`
	Phase      string `json:"phase,omitempty"`
	Round      int    `json:"round,omitempty"`
	PlayerID   string `json:"playerId,omitempty"`
	PlayerName string `json:"playerName,omitempty"`
	ResponseID string `json:"responseId,omitempty"`
}

// Client follows one game: snapshot on connect, SSE for change signals, and a
// periodic reconcile poll covering dropped events and missed reconnects.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Logger  *slog.Logger

	// ReconcileEvery bounds how stale the model can go when events are
	// dropped. Zero means the 15 s default.
	ReconcileEvery time.Duration
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// FetchSnapshot fetches the authoritative state of the game.
func (c *Client) FetchSnapshot(ctx context.Context, gameID string) (Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.BaseURL+"/api/games/"+gameID+"/state", nil)
	if err != nil {
		return Snapshot{}, err
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetching snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Snapshot{}, fmt.Errorf("fetching snapshot: status %d", resp.StatusCode)
	}

	var snap Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	return snap, nil
}

// Watch keeps state converged with the server until ctx is done. onChange
// fires after every model change with a copy of the model. Stream drops
// trigger a reconnect with a fresh snapshot, since events missed while
// disconnected are gone for good.
func (c *Client) Watch(ctx context.Context, gameID string, state *State, onChange func(Snapshot)) error {
	reconcile := c.ReconcileEvery
	if reconcile == 0 {
		reconcile = 15 * time.Second
	}

	refetch := func() {
		snap, err := c.FetchSnapshot(ctx, gameID)
		if err != nil {
			c.logger().Error("reconcile fetch failed", "game_id", gameID, "error", err)
			return
		}
		state.ApplySnapshot(snap)
		onChange(state.Snapshot())
	}

	for {
		refetch()

		err := c.consumeStream(ctx, gameID, state, onChange, refetch, reconcile)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			c.logger().Error("event stream dropped", "game_id", gameID, "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Second):
		}
	}
}

func (c *Client) consumeStream(ctx context.Context, gameID string, state *State,
	onChange func(Snapshot), refetch func(), reconcile time.Duration) error {

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.BaseURL+"/api/games/"+gameID+"/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("event stream: status %d", resp.StatusCode)
	}

	events := make(chan Event)
	readErr := make(chan error, 1)
	go func() {
		readErr <- readEvents(resp.Body, func(ev Event) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		})
	}()

	ticker := time.NewTicker(reconcile)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case <-ticker.C:
			refetch()
		case ev := <-events:
			c.apply(ev, state, onChange, refetch)
		}
	}
}

// apply merges what the event can express locally and falls back to a
// snapshot refetch for everything else.
func (c *Client) apply(ev Event, state *State, onChange func(Snapshot), refetch func()) {
	switch ev.Type {
	case "player_joined":
		if state.MergePlayer(game.Player{ID: ev.PlayerID, GameID: ev.GameID, Name: ev.PlayerName}) {
			onChange(state.Snapshot())
		}
	default:
		// game_updated, response_added, race_response_added and
		// favorite_changed all need entity data the signal does not carry.
		refetch()
	}
}

// readEvents parses an SSE stream, invoking fn for each data payload. Comment
// lines (pings) and event name lines are skipped; a blank line ends a frame,
// and so does EOF, so a frame cut off mid-stream is still delivered.
func readEvents(r io.Reader, fn func(Event)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var data strings.Builder
	dispatch := func() {
		if data.Len() == 0 {
			return
		}
		var ev Event
		if err := json.Unmarshal([]byte(data.String()), &ev); err == nil {
			fn(ev)
		}
		data.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			dispatch()
		case strings.HasPrefix(line, ":"):
			// Comment/ping, keepalive only.
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	dispatch()
	return scanner.Err()
}
