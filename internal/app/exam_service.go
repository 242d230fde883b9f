package app

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"immersive-exam-service/internal/domain"
)

// ExamRegistry abstracts how live exam sessions are tracked (in-memory,
// Redis-marked, etc).
type ExamRegistry interface {
	Add(session *ExamSession)
	Get(examID string) (*ExamSession, bool)
	Remove(examID string)
	ActiveIDs() []string
}

// QuestionGenerator authors a single question for a difficulty bucket.
type QuestionGenerator interface {
	Generate(ctx context.Context, difficulty domain.Difficulty) (domain.Question, error)
}

// ResultsArchive persists final leaderboards once exams complete.
type ResultsArchive interface {
	SaveLeaderboard(ctx context.Context, lb domain.Leaderboard) error
	LoadLeaderboard(ctx context.Context, examID string) (domain.Leaderboard, error)
}

// ExamService contains the immersive exam use cases.
type ExamService struct {
	exams     ExamRegistry
	generator QuestionGenerator
	results   ResultsArchive // optional
}

func NewExamService(exams ExamRegistry, generator QuestionGenerator, results ResultsArchive) *ExamService {
	return &ExamService{exams: exams, generator: generator, results: results}
}

// sequencedDifficulties is the fixed generation order; every participant sees
// the identical question sequence.
var sequencedDifficulties = []domain.Difficulty{
	domain.DifficultyEasy,
	domain.DifficultyMedium,
	domain.DifficultyHard,
}

// CreateExam generates the full question set up front and registers a new
// exam session open for registration. Question generation is the only
// external call and happens before any answer can be accepted.
func (s *ExamService) CreateExam(ctx context.Context, cfg domain.ExamConfig) (string, error) {
	if cfg.RevealStrategy == "" {
		cfg.RevealStrategy = domain.RevealNone
	}
	if !cfg.RevealStrategy.Valid() {
		return "", domain.ErrInvalidRevealStrategy
	}
	if cfg.Distribution.Total() <= 0 {
		return "", domain.ErrEmptyQuestionSet
	}

	questions := make([]domain.Question, 0, cfg.Distribution.Total())
	for _, difficulty := range sequencedDifficulties {
		for i := 0; i < cfg.Distribution[difficulty]; i++ {
			question, err := s.generator.Generate(ctx, difficulty)
			if err != nil {
				return "", fmt.Errorf("generate %s question: %w", difficulty, err)
			}
			questions = append(questions, question)
		}
	}

	examID := uuid.NewString()
	session := newExamSession(examID, cfg, questions)
	if s.results != nil {
		session.onCompleted = func(lb domain.Leaderboard) {
			if err := s.results.SaveLeaderboard(context.Background(), lb); err != nil {
				log.Printf("archive results for exam %s: %v", lb.ExamID, err)
			}
		}
	}
	s.exams.Add(session)
	return examID, nil
}

// RegisterParticipant adds a participant while registration is open and
// assigns the next join order.
func (s *ExamService) RegisterParticipant(examID, participantID string, kind domain.ParticipantKind) (domain.Participant, error) {
	session, ok := s.exams.Get(examID)
	if !ok {
		return domain.Participant{}, domain.ErrExamNotFound
	}
	return session.register(participantID, kind)
}

// StartExam freezes the roster and opens round 0.
func (s *ExamService) StartExam(examID string) error {
	session, ok := s.exams.Get(examID)
	if !ok {
		return domain.ErrExamNotFound
	}
	return session.start()
}

// SubmitAnswer records an answer for the current round. The session decides
// atomically whether the round closes as a result.
func (s *ExamService) SubmitAnswer(examID, participantID string, questionIndex int, value float64) (domain.Answer, error) {
	session, ok := s.exams.Get(examID)
	if !ok {
		return domain.Answer{}, domain.ErrExamNotFound
	}
	return session.submit(participantID, questionIndex, value)
}

// GetStatus returns the participant-scoped snapshot, with visible answers
// computed by the reveal policy.
func (s *ExamService) GetStatus(examID, participantID string) (domain.ExamStatusView, error) {
	session, ok := s.exams.Get(examID)
	if !ok {
		return domain.ExamStatusView{}, domain.ErrExamNotFound
	}
	return session.statusView(participantID)
}

// GetResults returns the final leaderboard. Live completed sessions are torn
// down once their results have been read; later reads fall through to the
// archive.
func (s *ExamService) GetResults(ctx context.Context, examID string) (domain.Leaderboard, error) {
	if session, ok := s.exams.Get(examID); ok {
		lb, err := session.finalLeaderboard()
		if err != nil {
			return domain.Leaderboard{}, err
		}
		if s.results != nil {
			// The archive ignores duplicates, so this is safe alongside the
			// asynchronous save at completion time.
			if err := s.results.SaveLeaderboard(ctx, lb); err != nil {
				log.Printf("archive results for exam %s: %v", examID, err)
			}
		}
		s.exams.Remove(examID)
		return lb, nil
	}
	if s.results != nil {
		return s.results.LoadLeaderboard(ctx, examID)
	}
	return domain.Leaderboard{}, domain.ErrExamNotFound
}

// Cancel halts the exam from any non-terminal state and releases its timer.
func (s *ExamService) Cancel(examID string) error {
	session, ok := s.exams.Get(examID)
	if !ok {
		return domain.ErrExamNotFound
	}
	// The session stays in the registry so late submissions get a state
	// rejection instead of a lookup failure; teardown is a TTL concern.
	return session.cancel()
}

// Subscribe returns a channel of exam events (round transitions,
// completion). The caller must invoke the returned cancel function to avoid
// leaks.
func (s *ExamService) Subscribe(examID string) (<-chan domain.ExamEvent, func(), error) {
	session, ok := s.exams.Get(examID)
	if !ok {
		return nil, nil, domain.ErrExamNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// CurrentQuestion exposes the full open question, correct answer included.
// It exists for server-side collaborators (automated solvers); transports
// must use GetStatus instead.
func (s *ExamService) CurrentQuestion(examID string) (domain.Question, int, error) {
	session, ok := s.exams.Get(examID)
	if !ok {
		return domain.Question{}, 0, domain.ErrExamNotFound
	}
	return session.currentQuestion()
}

// Participants lists registered participants in join order.
func (s *ExamService) Participants(examID string) ([]domain.Participant, error) {
	session, ok := s.exams.Get(examID)
	if !ok {
		return nil, domain.ErrExamNotFound
	}
	return session.participantList(), nil
}

// ListActiveExams lists the IDs of exams still held in the registry.
func (s *ExamService) ListActiveExams() []string {
	return s.exams.ActiveIDs()
}
