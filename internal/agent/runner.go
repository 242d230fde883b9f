package agent

import (
	"context"
	"errors"
	"log"

	"immersive-exam-service/internal/app"
	"immersive-exam-service/internal/domain"
)

// Runner plays the automated participants of one exam: it subscribes to the
// exam's events and submits a solver answer whenever a round opens.
type Runner struct {
	service *app.ExamService
	solver  Solver
}

func NewRunner(service *app.ExamService, solver Solver) *Runner {
	return &Runner{service: service, solver: solver}
}

// Run blocks until the exam reaches a terminal state or ctx is done.
func (r *Runner) Run(ctx context.Context, examID string) error {
	events, cancel, err := r.service.Subscribe(examID)
	if err != nil {
		return err
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev.Type {
			case domain.EventRoundOpened:
				r.answerRound(ctx, examID, ev.QuestionIndex)
			case domain.EventExamCompleted, domain.EventExamCancelled:
				return nil
			}
		}
	}
}

func (r *Runner) answerRound(ctx context.Context, examID string, questionIndex int) {
	question, current, err := r.service.CurrentQuestion(examID)
	if err != nil || current != questionIndex {
		// The round already moved on; the next event will catch us up.
		return
	}
	participants, err := r.service.Participants(examID)
	if err != nil {
		return
	}

	for _, p := range participants {
		if p.Kind != domain.KindAutomated {
			continue
		}
		value, err := r.solver.Solve(ctx, question)
		if err != nil {
			log.Printf("solver failed for %s on question %d: %v", p.ID, questionIndex, err)
			continue
		}
		if _, err := r.service.SubmitAnswer(examID, p.ID, questionIndex, value); err != nil {
			// Stale rounds and duplicates just mean something beat us to it.
			if errors.Is(err, domain.ErrStaleRound) || errors.Is(err, domain.ErrDuplicateAnswer) {
				return
			}
			log.Printf("submit for %s failed: %v", p.ID, err)
		}
	}
}
