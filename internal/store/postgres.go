package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type gameRecord struct {
	ID          uint   `gorm:"primaryKey"`
	SessionID   string `gorm:"size:64;index"`
	Player1     string `gorm:"size:128"`
	Player2     string `gorm:"size:128"`
	Turns1      int
	Turns2      int
	Hits1       int
	Hits2       int
	Misses1     int
	Misses2     int
	Clicks1     int
	Clicks2     int
	Levels      int
	Turns       int
	CompletedAt time.Time `gorm:"index"`
}

func (gameRecord) TableName() string { return "game_results" }

func recordOf(r GameResult) gameRecord {
	return gameRecord{
		SessionID:   r.SessionID,
		Player1:     r.Players[0],
		Player2:     r.Players[1],
		Turns1:      r.Stats[0].TurnsPlayed,
		Turns2:      r.Stats[1].TurnsPlayed,
		Hits1:       r.Stats[0].Hits,
		Hits2:       r.Stats[1].Hits,
		Misses1:     r.Stats[0].Misses,
		Misses2:     r.Stats[1].Misses,
		Clicks1:     r.Stats[0].Clicks,
		Clicks2:     r.Stats[1].Clicks,
		Levels:      r.Levels,
		Turns:       r.Turns,
		CompletedAt: r.CompletedAt.UTC(),
	}
}

func (g gameRecord) result() GameResult {
	return GameResult{
		SessionID: g.SessionID,
		Players:   [2]string{g.Player1, g.Player2},
		Stats: [2]PlayerStats{
			{TurnsPlayed: g.Turns1, Hits: g.Hits1, Misses: g.Misses1, Clicks: g.Clicks1},
			{TurnsPlayed: g.Turns2, Hits: g.Hits2, Misses: g.Misses2, Clicks: g.Clicks2},
		},
		Levels:      g.Levels,
		Turns:       g.Turns,
		CompletedAt: g.CompletedAt,
	}
}

// Postgres stores results through gorm on a pgx connection.
type Postgres struct {
	db  *gorm.DB
	sql *sql.DB
}

func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	sqlDB := stdlib.OpenDB(*cfg)
	sqlDB.SetMaxOpenConns(8)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("open gorm: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&gameRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Postgres{db: db, sql: sqlDB}, nil
}

func (p *Postgres) SaveResult(ctx context.Context, r GameResult) error {
	rec := recordOf(r)
	if err := p.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("save result %s: %w", r.SessionID, err)
	}
	return nil
}

func (p *Postgres) RecentResults(ctx context.Context, limit int) ([]GameResult, error) {
	var recs []gameRecord
	q := p.db.WithContext(ctx).Order("completed_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("recent results: %w", err)
	}

	out := make([]GameResult, len(recs))
	for i, rec := range recs {
		out[i] = rec.result()
	}
	return out, nil
}

func (p *Postgres) Close() error { return p.sql.Close() }
