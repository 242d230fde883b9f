package memory

import (
	"context"
	"sync"

	"immersive-exam-service/internal/domain"
)

// ResultsArchive keeps final leaderboards in memory. It is the default when
// no Postgres is configured; restarts lose history, which matches the
// coordinator's in-memory contract.
type ResultsArchive struct {
	mu      sync.RWMutex
	results map[string]domain.Leaderboard
}

func NewResultsArchive() *ResultsArchive {
	return &ResultsArchive{results: make(map[string]domain.Leaderboard)}
}

func (a *ResultsArchive) SaveLeaderboard(_ context.Context, lb domain.Leaderboard) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	// First write wins; a completed leaderboard never changes.
	if _, ok := a.results[lb.ExamID]; !ok {
		a.results[lb.ExamID] = lb
	}
	return nil
}

func (a *ResultsArchive) LoadLeaderboard(_ context.Context, examID string) (domain.Leaderboard, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if lb, ok := a.results[examID]; ok {
		return lb, nil
	}
	return domain.Leaderboard{}, domain.ErrExamNotFound
}
