package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"immersive-exam-service/internal/app"
	"immersive-exam-service/internal/domain"
	"immersive-exam-service/internal/infra/memory"
)

// stubGenerator returns fixed questions so scores are predictable.
type stubGenerator struct{}

func (stubGenerator) Generate(_ context.Context, difficulty domain.Difficulty) (domain.Question, error) {
	switch difficulty {
	case domain.DifficultyMedium:
		return domain.Question{Equation: "2 * 3", Text: "What is 2 * 3?", Answer: 6, Difficulty: difficulty}, nil
	case domain.DifficultyHard:
		return domain.Question{Equation: "(1 + 2) * 3", Text: "What is (1 + 2) * 3?", Answer: 9, Difficulty: difficulty}, nil
	default:
		return domain.Question{Equation: "1 + 1", Text: "What is 1 + 1?", Answer: 2, Difficulty: difficulty}, nil
	}
}

func newTestService() (*app.ExamService, *memory.ResultsArchive) {
	archive := memory.NewResultsArchive()
	return app.NewExamService(memory.NewExamRegistry(), stubGenerator{}, archive), archive
}

func createExam(t *testing.T, service *app.ExamService, strategy domain.RevealStrategy, questions int, perQuestion time.Duration) string {
	t.Helper()
	examID, err := service.CreateExam(context.Background(), domain.ExamConfig{
		Distribution:    domain.DifficultyDistribution{domain.DifficultyEasy: questions},
		RevealStrategy:  strategy,
		TimePerQuestion: perQuestion,
	})
	if err != nil {
		t.Fatalf("create exam: %v", err)
	}
	return examID
}

func register(t *testing.T, service *app.ExamService, examID, participantID string, kind domain.ParticipantKind) domain.Participant {
	t.Helper()
	p, err := service.RegisterParticipant(examID, participantID, kind)
	if err != nil {
		t.Fatalf("register %s: %v", participantID, err)
	}
	return p
}

func TestFullExamFlowLeaderboard(t *testing.T) {
	service, _ := newTestService()
	examID := createExam(t, service, domain.RevealNone, 2, 0)

	alice := register(t, service, examID, "alice", domain.KindHuman)
	bob := register(t, service, examID, "bob", domain.KindHuman)
	if alice.JoinOrder != 0 || bob.JoinOrder != 1 {
		t.Fatalf("expected join orders 0 and 1, got %d and %d", alice.JoinOrder, bob.JoinOrder)
	}

	if err := service.StartExam(examID); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Round 0: both correct.
	if _, err := service.SubmitAnswer(examID, "alice", 0, 2); err != nil {
		t.Fatalf("alice q0: %v", err)
	}
	if _, err := service.SubmitAnswer(examID, "bob", 0, 2); err != nil {
		t.Fatalf("bob q0: %v", err)
	}

	view, err := service.GetStatus(examID, "alice")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if view.CurrentQuestionIndex != 1 {
		t.Fatalf("expected round 1 open after both answered, got index %d", view.CurrentQuestionIndex)
	}

	// Round 1: alice wrong, bob correct.
	if _, err := service.SubmitAnswer(examID, "alice", 1, 999); err != nil {
		t.Fatalf("alice q1: %v", err)
	}
	if _, err := service.SubmitAnswer(examID, "bob", 1, 2); err != nil {
		t.Fatalf("bob q1: %v", err)
	}

	lb, err := service.GetResults(context.Background(), examID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(lb.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(lb.Entries))
	}
	if lb.Entries[0].ParticipantID != "bob" || lb.Entries[0].Score != 2 {
		t.Fatalf("expected bob to lead with 2, got %+v", lb.Entries[0])
	}
	if lb.Entries[1].ParticipantID != "alice" || lb.Entries[1].Score != 1 {
		t.Fatalf("expected alice second with 1, got %+v", lb.Entries[1])
	}
	if lb.Entries[1].Percentage != 50 {
		t.Fatalf("expected alice at 50%%, got %v", lb.Entries[1].Percentage)
	}
}

func TestDuplicateAnswerKeepsFirstValue(t *testing.T) {
	service, _ := newTestService()
	examID := createExam(t, service, domain.RevealNone, 1, 0)
	register(t, service, examID, "alice", domain.KindHuman)
	register(t, service, examID, "bob", domain.KindHuman)
	if err := service.StartExam(examID); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := service.SubmitAnswer(examID, "alice", 0, 2); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := service.SubmitAnswer(examID, "alice", 0, 5); !errors.Is(err, domain.ErrDuplicateAnswer) {
		t.Fatalf("expected duplicate answer error, got %v", err)
	}

	view, err := service.GetStatus(examID, "alice")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if view.OwnAnswer == nil || view.OwnAnswer.Value != 2 {
		t.Fatalf("expected stored answer to remain 2, got %+v", view.OwnAnswer)
	}
}

func TestRegisterAfterStartRejected(t *testing.T) {
	service, _ := newTestService()
	examID := createExam(t, service, domain.RevealNone, 1, 0)
	register(t, service, examID, "alice", domain.KindHuman)
	if err := service.StartExam(examID); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := service.RegisterParticipant(examID, "late", domain.KindHuman); !errors.Is(err, domain.ErrRegistrationClosed) {
		t.Fatalf("expected registration closed, got %v", err)
	}
}

func TestRegistrationValidation(t *testing.T) {
	service, _ := newTestService()
	examID := createExam(t, service, domain.RevealNone, 1, 0)
	register(t, service, examID, "alice", domain.KindHuman)

	if _, err := service.RegisterParticipant(examID, "alice", domain.KindHuman); !errors.Is(err, domain.ErrDuplicateParticipant) {
		t.Fatalf("expected duplicate participant, got %v", err)
	}
	if _, err := service.RegisterParticipant(examID, "ghost", domain.ParticipantKind("alien")); !errors.Is(err, domain.ErrInvalidParticipantKind) {
		t.Fatalf("expected invalid kind, got %v", err)
	}
	if _, err := service.RegisterParticipant("missing", "alice", domain.KindHuman); !errors.Is(err, domain.ErrExamNotFound) {
		t.Fatalf("expected exam not found, got %v", err)
	}
}

func TestStaleRoundRejected(t *testing.T) {
	service, _ := newTestService()
	examID := createExam(t, service, domain.RevealNone, 2, 0)
	register(t, service, examID, "alice", domain.KindHuman)
	register(t, service, examID, "bob", domain.KindHuman)
	if err := service.StartExam(examID); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Future round.
	if _, err := service.SubmitAnswer(examID, "alice", 1, 2); !errors.Is(err, domain.ErrStaleRound) {
		t.Fatalf("expected stale round for future index, got %v", err)
	}

	if _, err := service.SubmitAnswer(examID, "alice", 0, 2); err != nil {
		t.Fatalf("alice q0: %v", err)
	}
	if _, err := service.SubmitAnswer(examID, "bob", 0, 2); err != nil {
		t.Fatalf("bob q0: %v", err)
	}

	// Round 0 closed; answering it again is stale, not duplicate.
	if _, err := service.SubmitAnswer(examID, "bob", 0, 2); !errors.Is(err, domain.ErrStaleRound) {
		t.Fatalf("expected stale round for closed index, got %v", err)
	}
}

func TestSubmitValidation(t *testing.T) {
	service, _ := newTestService()
	examID := createExam(t, service, domain.RevealNone, 1, 0)
	register(t, service, examID, "alice", domain.KindHuman)

	if _, err := service.SubmitAnswer(examID, "alice", 0, 2); !errors.Is(err, domain.ErrExamNotInProgress) {
		t.Fatalf("expected not in progress before start, got %v", err)
	}
	if err := service.StartExam(examID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := service.SubmitAnswer(examID, "ghost", 0, 2); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected participant not found, got %v", err)
	}
}

func TestStartValidation(t *testing.T) {
	service, _ := newTestService()
	examID := createExam(t, service, domain.RevealNone, 1, 0)

	if err := service.StartExam(examID); !errors.Is(err, domain.ErrNoParticipants) {
		t.Fatalf("expected no participants, got %v", err)
	}
	if err := service.StartExam("missing"); !errors.Is(err, domain.ErrExamNotFound) {
		t.Fatalf("expected exam not found, got %v", err)
	}

	register(t, service, examID, "alice", domain.KindHuman)
	if err := service.StartExam(examID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := service.StartExam(examID); !errors.Is(err, domain.ErrExamNotInProgress) {
		t.Fatalf("expected second start rejected, got %v", err)
	}
}

func TestCreateExamValidation(t *testing.T) {
	service, _ := newTestService()

	_, err := service.CreateExam(context.Background(), domain.ExamConfig{
		Distribution:   domain.DifficultyDistribution{domain.DifficultyEasy: 1},
		RevealStrategy: domain.RevealStrategy("everyone"),
	})
	if !errors.Is(err, domain.ErrInvalidRevealStrategy) {
		t.Fatalf("expected invalid strategy, got %v", err)
	}

	_, err = service.CreateExam(context.Background(), domain.ExamConfig{
		RevealStrategy: domain.RevealNone,
	})
	if !errors.Is(err, domain.ErrEmptyQuestionSet) {
		t.Fatalf("expected empty question set, got %v", err)
	}
}

func TestRevealToLaterParticipantsStatus(t *testing.T) {
	service, _ := newTestService()
	examID := createExam(t, service, domain.RevealToLaterParticipants, 1, 0)
	register(t, service, examID, "alice", domain.KindHuman)
	register(t, service, examID, "bob", domain.KindHuman)
	if err := service.StartExam(examID); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := service.SubmitAnswer(examID, "alice", 0, 2); err != nil {
		t.Fatalf("alice q0: %v", err)
	}

	bobView, err := service.GetStatus(examID, "bob")
	if err != nil {
		t.Fatalf("bob status: %v", err)
	}
	if len(bobView.VisibleAnswers) != 1 || bobView.VisibleAnswers[0].ParticipantID != "alice" {
		t.Fatalf("expected bob to see alice's answer, got %+v", bobView.VisibleAnswers)
	}

	aliceView, err := service.GetStatus(examID, "alice")
	if err != nil {
		t.Fatalf("alice status: %v", err)
	}
	if len(aliceView.VisibleAnswers) != 0 {
		t.Fatalf("expected alice to see nothing, got %+v", aliceView.VisibleAnswers)
	}
}

func TestRevealAllAfterRoundStatus(t *testing.T) {
	service, _ := newTestService()
	examID := createExam(t, service, domain.RevealAllAfterRound, 2, 0)
	register(t, service, examID, "alice", domain.KindHuman)
	register(t, service, examID, "bob", domain.KindHuman)
	if err := service.StartExam(examID); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := service.SubmitAnswer(examID, "alice", 0, 2); err != nil {
		t.Fatalf("alice q0: %v", err)
	}
	bobView, err := service.GetStatus(examID, "bob")
	if err != nil {
		t.Fatalf("bob status: %v", err)
	}
	if len(bobView.VisibleAnswers) != 0 {
		t.Fatalf("expected nothing visible while round open, got %+v", bobView.VisibleAnswers)
	}

	if _, err := service.SubmitAnswer(examID, "bob", 0, 5); err != nil {
		t.Fatalf("bob q0: %v", err)
	}

	// Round 0 closed, round 1 open: the closed round is fully visible.
	bobView, err = service.GetStatus(examID, "bob")
	if err != nil {
		t.Fatalf("bob status: %v", err)
	}
	if len(bobView.VisibleAnswers) != 1 || bobView.VisibleAnswers[0].ParticipantID != "alice" || !bobView.VisibleAnswers[0].Correct {
		t.Fatalf("expected bob to see alice's closed-round answer, got %+v", bobView.VisibleAnswers)
	}
	aliceView, err := service.GetStatus(examID, "alice")
	if err != nil {
		t.Fatalf("alice status: %v", err)
	}
	if len(aliceView.VisibleAnswers) != 1 || aliceView.VisibleAnswers[0].ParticipantID != "bob" || aliceView.VisibleAnswers[0].Correct {
		t.Fatalf("expected alice to see bob's wrong answer, got %+v", aliceView.VisibleAnswers)
	}
}

func TestResultsServedFromArchiveAfterTeardown(t *testing.T) {
	service, _ := newTestService()
	examID := createExam(t, service, domain.RevealNone, 1, 0)
	register(t, service, examID, "alice", domain.KindHuman)
	if err := service.StartExam(examID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := service.SubmitAnswer(examID, "alice", 0, 2); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := service.GetResults(context.Background(), "missing"); !errors.Is(err, domain.ErrExamNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	first, err := service.GetResults(context.Background(), examID)
	if err != nil {
		t.Fatalf("first results: %v", err)
	}
	if len(service.ListActiveExams()) != 0 {
		t.Fatalf("expected session torn down after results read")
	}

	second, err := service.GetResults(context.Background(), examID)
	if err != nil {
		t.Fatalf("archive results: %v", err)
	}
	if second.ExamID != first.ExamID || len(second.Entries) != len(first.Entries) {
		t.Fatalf("archive leaderboard differs: %+v vs %+v", second, first)
	}
}

func TestResultsBeforeCompletionRejected(t *testing.T) {
	service, _ := newTestService()
	examID := createExam(t, service, domain.RevealNone, 1, 0)
	register(t, service, examID, "alice", domain.KindHuman)

	if _, err := service.GetResults(context.Background(), examID); !errors.Is(err, domain.ErrExamNotCompleted) {
		t.Fatalf("expected not completed, got %v", err)
	}
}

func TestCancelHaltsExam(t *testing.T) {
	service, _ := newTestService()
	examID := createExam(t, service, domain.RevealNone, 1, 0)
	register(t, service, examID, "alice", domain.KindHuman)
	if err := service.StartExam(examID); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := service.Cancel(examID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := service.SubmitAnswer(examID, "alice", 0, 2); !errors.Is(err, domain.ErrExamNotInProgress) {
		t.Fatalf("expected submit rejected after cancel, got %v", err)
	}
	if _, err := service.RegisterParticipant(examID, "late", domain.KindHuman); !errors.Is(err, domain.ErrRegistrationClosed) {
		t.Fatalf("expected register rejected after cancel, got %v", err)
	}
	if err := service.Cancel(examID); !errors.Is(err, domain.ErrExamTerminal) {
		t.Fatalf("expected second cancel rejected, got %v", err)
	}
	if _, err := service.GetResults(context.Background(), examID); !errors.Is(err, domain.ErrExamTerminal) {
		t.Fatalf("expected results rejected for cancelled exam, got %v", err)
	}
}
