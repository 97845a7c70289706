package store

import (
	"context"
	"errors"
	"time"
)

var ErrClosed = errors.New("store closed")

type PlayerStats struct {
	TurnsPlayed int `json:"turns_played"`
	Hits        int `json:"total_hits"`
	Misses      int `json:"total_misses"`
	Clicks      int `json:"total_clicks"`
}

// GameResult is the summary of one completed game.
type GameResult struct {
	SessionID   string         `json:"game_id"`
	Players     [2]string      `json:"players"`
	Stats       [2]PlayerStats `json:"player_stats"`
	Levels      int            `json:"levels"`
	Turns       int            `json:"turns"`
	CompletedAt time.Time      `json:"completed_at"`
}

type Store interface {
	SaveResult(ctx context.Context, r GameResult) error
	// RecentResults returns up to limit results, newest first.
	RecentResults(ctx context.Context, limit int) ([]GameResult, error)
	Close() error
}
