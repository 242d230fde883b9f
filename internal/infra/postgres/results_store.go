package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"immersive-exam-service/internal/domain"
)

// ResultsStore persists final leaderboards as JSONB.
type ResultsStore struct {
	pool *pgxpool.Pool
}

func NewResultsStore(pool *pgxpool.Pool) *ResultsStore {
	return &ResultsStore{pool: pool}
}

func (s *ResultsStore) SaveLeaderboard(ctx context.Context, lb domain.Leaderboard) error {
	data, err := json.Marshal(lb)
	if err != nil {
		return fmt.Errorf("marshal leaderboard: %w", err)
	}
	// First write wins; completed leaderboards are immutable.
	_, err = s.pool.Exec(ctx,
		`INSERT INTO exam_results (exam_id, data) VALUES ($1, $2::jsonb) ON CONFLICT (exam_id) DO NOTHING`,
		lb.ExamID, data)
	if err != nil {
		return fmt.Errorf("save leaderboard: %w", err)
	}
	return nil
}

func (s *ResultsStore) LoadLeaderboard(ctx context.Context, examID string) (domain.Leaderboard, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM exam_results WHERE exam_id=$1`, examID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Leaderboard{}, domain.ErrExamNotFound
	}
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("load leaderboard: %w", err)
	}
	var lb domain.Leaderboard
	if err := json.Unmarshal(raw, &lb); err != nil {
		return domain.Leaderboard{}, fmt.Errorf("unmarshal leaderboard: %w", err)
	}
	return lb, nil
}
