package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"party-quiz-service/internal/domain"
)

type gameResult struct {
	bun.BaseModel `bun:"table:game_results,alias:gr"`

	ID            int64               `bun:"id,pk,autoincrement"`
	RoomCode      string              `bun:"room_code,notnull"`
	Title         string              `bun:"title,notnull"`
	QuestionCount int                 `bun:"question_count,notnull"`
	Scoreboard    []domain.PlayerView `bun:"scoreboard,type:jsonb,notnull"`
	FinishedAt    time.Time           `bun:"finished_at,notnull"`
}

// ResultStore archives finished games in the game_results table.
type ResultStore struct {
	db *bun.DB
}

func NewResultStore(db *bun.DB) *ResultStore {
	return &ResultStore{db: db}
}

func (s *ResultStore) Record(ctx context.Context, result domain.GameResult) error {
	row := &gameResult{
		RoomCode:      result.RoomCode,
		Title:         result.Title,
		QuestionCount: result.QuestionCount,
		Scoreboard:    result.Scoreboard,
		FinishedAt:    result.FinishedAt,
	}
	if row.Scoreboard == nil {
		row.Scoreboard = []domain.PlayerView{}
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert game result: %w", err)
	}
	return nil
}

// Recent returns the latest archived games for a room code, newest first.
func (s *ResultStore) Recent(ctx context.Context, roomCode string, limit int) ([]domain.GameResult, error) {
	var rows []gameResult
	err := s.db.NewSelect().
		Model(&rows).
		Where("room_code = ?", roomCode).
		Order("finished_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select game results: %w", err)
	}
	out := make([]domain.GameResult, len(rows))
	for i, row := range rows {
		out[i] = domain.GameResult{
			RoomCode:      row.RoomCode,
			Title:         row.Title,
			QuestionCount: row.QuestionCount,
			Scoreboard:    row.Scoreboard,
			FinishedAt:    row.FinishedAt,
		}
	}
	return out, nil
}
