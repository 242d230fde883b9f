package memory

import (
	"sync"

	"immersive-exam-service/internal/app"
)

// ExamRegistry is an in-memory implementation of app.ExamRegistry.
type ExamRegistry struct {
	mu    sync.RWMutex
	exams map[string]*app.ExamSession
}

func NewExamRegistry() *ExamRegistry {
	return &ExamRegistry{
		exams: make(map[string]*app.ExamSession),
	}
}

func (r *ExamRegistry) Add(session *app.ExamSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exams[session.ID()] = session
}

func (r *ExamRegistry) Get(examID string) (*app.ExamSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.exams[examID]
	return session, ok
}

func (r *ExamRegistry) Remove(examID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.exams, examID)
}

func (r *ExamRegistry) ActiveIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.exams))
	for id := range r.exams {
		ids = append(ids, id)
	}
	return ids
}
