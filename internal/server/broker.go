package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Event is the payload published to game subscribers. It is a change signal,
// not a source of truth: consumers re-derive state from a snapshot whenever
// in doubt. Delivery is best-effort with no replay after disconnect.
type Event struct {
	Type       string `json:"type"`
	GameID     string `json:"gameId"`
	Phase      string `json:"phase,omitempty"`
	Round      int    `json:"round,omitempty"`
	PlayerID   string `json:"playerId,omitempty"`
	PlayerName string `json:"playerName,omitempty"`
	ResponseID string `json:"responseId,omitempty"`
}

const (
	EventGameUpdated       = "game_updated"
	EventPlayerJoined      = "player_joined"
	EventResponseAdded     = "response_added"
	EventRaceResponseAdded = "race_response_added"
	EventFavoriteChanged   = "favorite_changed"
)

const redisChannelPrefix = "game:"

// Broker is a pub/sub for game change events, keyed by game ID. Without
// Redis it fans out in-process only; with Redis every publish goes through a
// game:{id} channel so all server instances deliver it to their local SSE
// subscribers.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[chan []byte]struct{}
	rdb    *redis.Client
	logger *slog.Logger
}

func NewBroker(logger *slog.Logger, rdb *redis.Client) *Broker {
	return &Broker{
		subs:   make(map[string]map[chan []byte]struct{}),
		rdb:    rdb,
		logger: logger,
	}
}

// Subscribe returns a channel that receives JSON-encoded events for the game.
func (b *Broker) Subscribe(gameID string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[gameID] == nil {
		b.subs[gameID] = make(map[chan []byte]struct{})
	}
	b.subs[gameID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the game's subscribers.
func (b *Broker) Unsubscribe(gameID string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[gameID], ch)
	if len(b.subs[gameID]) == 0 {
		delete(b.subs, gameID)
	}
	b.mu.Unlock()
}

// Publish sends an event to all subscribers of the game. With Redis
// configured, delivery happens via the channel subscription in Run so that
// remote instances see the event too; the publish is fire-and-forget either
// way.
func (b *Broker) Publish(ctx context.Context, gameID string, event Event) {
	event.GameID = gameID
	data, _ := json.Marshal(event)

	if b.rdb != nil {
		if err := b.rdb.Publish(ctx, redisChannelPrefix+gameID, data).Err(); err != nil {
			b.logger.Error("publishing event to redis", "game_id", gameID, "error", err)
			b.deliver(gameID, data)
		}
		return
	}
	b.deliver(gameID, data)
}

func (b *Broker) deliver(gameID string, data []byte) {
	b.mu.RLock()
	for ch := range b.subs[gameID] {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}

// Run consumes the Redis side of the bridge until ctx is done. Without Redis
// it just waits for shutdown.
func (b *Broker) Run(ctx context.Context) error {
	if b.rdb == nil {
		<-ctx.Done()
		return nil
	}

	sub := b.rdb.PSubscribe(ctx, redisChannelPrefix+"*")
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-sub.Channel():
			if !ok {
				return nil
			}
			gameID := strings.TrimPrefix(msg.Channel, redisChannelPrefix)
			b.deliver(gameID, []byte(msg.Payload))
		}
	}
}
