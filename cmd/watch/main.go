// Command watch tails a game from the terminal: a read-only observer over the
// snapshot endpoint and the change stream, useful for hosts running the group
// from a second screen and for debugging replication.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stillpoint/dbtcircle/internal/game"
	"github.com/stillpoint/dbtcircle/internal/viewer"
)

func main() {
	var (
		baseURL   = flag.String("server", "http://localhost:8080", "server base URL")
		gameID    = flag.String("game", "", "game id to watch")
		reconcile = flag.Duration("reconcile", 15*time.Second, "reconcile poll interval")
	)
	flag.Parse()

	if *gameID == "" {
		fmt.Fprintln(os.Stderr, "usage: watch -game <game-id> [-server <url>]")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	client := &viewer.Client{
		BaseURL:        *baseURL,
		Logger:         logger,
		ReconcileEvery: *reconcile,
	}

	state := viewer.NewState()
	if err := client.Watch(ctx, *gameID, state, render); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func render(snap viewer.Snapshot) {
	g := snap.Game

	fmt.Printf("\n[%s] phase=%s mode=%s round=%d players=%d\n",
		time.Now().Format("15:04:05"), g.Phase, g.Mode, g.CurrentRound, len(snap.Players))

	if g.Prompt != nil && g.Phase != game.PhaseLobby {
		fmt.Printf("  prompt: %s\n", *g.Prompt)
	}
	if g.RacePrompt != nil && (g.Phase == game.PhaseRace || g.Phase == game.PhaseRaceReveal) {
		fmt.Printf("  race: %s / %s\n", g.RacePrompt.Emotion, g.RacePrompt.Scenario)
	}

	names := make(map[string]string, len(snap.Players))
	for _, p := range snap.Players {
		names[p.ID] = p.Name
	}

	switch g.Phase {
	case game.PhasePrompt:
		fmt.Printf("  responses in: %d\n", len(snap.Responses))
	case game.PhaseReveal, game.PhaseDiscussion:
		for _, r := range snap.Responses {
			fmt.Printf("  %s (%s): %s\n", names[r.PlayerID], r.MindState, r.TextResponse)
		}
	case game.PhaseRace:
		fmt.Printf("  actions in: %d\n", len(snap.RaceResponses))
	case game.PhaseRaceReveal:
		for _, r := range g.RaceResults {
			marker := " "
			if g.RaceWinner != nil && *g.RaceWinner == r.PlayerID {
				marker = "*"
			}
			fmt.Printf("  %s %s: %s\n", marker, names[r.PlayerID], r.Action)
		}
		if g.RaceWinner == nil {
			fmt.Println("  no winner this race")
		}
	case game.PhaseEnd:
		fmt.Println("  session over")
	}

	if len(g.Scores) > 0 {
		fmt.Print("  scores:")
		for id, pts := range g.Scores {
			fmt.Printf(" %s=%d", names[id], pts)
		}
		fmt.Println()
	}
}
