package app

import (
	"log"
	"sort"
	"sync"
	"time"

	"immersive-exam-service/internal/domain"
)

// ExamSession owns the full state of one exam. Every mutation for the exam
// (registration, answer acceptance, round closure, timer firing,
// cancellation) runs under its single mutex, so closure happens exactly once
// per round no matter which trigger arrives first.
type ExamSession struct {
	id        string
	cfg       domain.ExamConfig
	questions []domain.Question
	now       func() time.Time

	mu            sync.RWMutex
	status        domain.ExamStatus
	participants  []domain.Participant
	answers       []map[string]domain.Answer // one map per question, keyed by participant ID
	current       int                        // -1 before start, len(questions) once completed
	roundOpenedAt time.Time
	roundToken    int // bumped on every closure; a timer only fires for its own round
	timer         *time.Timer
	startedAt     time.Time
	completedAt   time.Time
	leaderboard   *domain.Leaderboard
	subscribers   map[chan domain.ExamEvent]struct{}
	onCompleted   func(domain.Leaderboard)
}

// NewExamSession is exported for infrastructure layers and tests that need
// to seed sessions directly.
func NewExamSession(id string, cfg domain.ExamConfig, questions []domain.Question) *ExamSession {
	return newExamSession(id, cfg, questions)
}

// NewExamSessionWithClock is test-only for deterministic timestamps.
func NewExamSessionWithClock(id string, cfg domain.ExamConfig, questions []domain.Question, now func() time.Time) *ExamSession {
	s := newExamSession(id, cfg, questions)
	s.now = now
	return s
}

func newExamSession(id string, cfg domain.ExamConfig, questions []domain.Question) *ExamSession {
	answers := make([]map[string]domain.Answer, len(questions))
	for i := range answers {
		answers[i] = make(map[string]domain.Answer)
	}
	return &ExamSession{
		id:          id,
		cfg:         cfg,
		questions:   questions,
		now:         time.Now,
		status:      domain.StatusRegistrationOpen,
		answers:     answers,
		current:     -1,
		subscribers: make(map[chan domain.ExamEvent]struct{}),
	}
}

// ID returns the exam identifier.
func (s *ExamSession) ID() string {
	return s.id
}

// Terminal reports whether the exam is completed or cancelled.
func (s *ExamSession) Terminal() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status.Terminal()
}

func (s *ExamSession) register(participantID string, kind domain.ParticipantKind) (domain.Participant, error) {
	if !kind.Valid() {
		return domain.Participant{}, domain.ErrInvalidParticipantKind
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusRegistrationOpen {
		return domain.Participant{}, domain.ErrRegistrationClosed
	}
	for _, p := range s.participants {
		if p.ID == participantID {
			return domain.Participant{}, domain.ErrDuplicateParticipant
		}
	}

	participant := domain.Participant{
		ID:        participantID,
		Kind:      kind,
		JoinOrder: len(s.participants),
	}
	s.participants = append(s.participants, participant)
	return participant, nil
}

func (s *ExamSession) start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusRegistrationOpen {
		if s.status.Terminal() {
			return domain.ErrExamTerminal
		}
		return domain.ErrExamNotInProgress
	}
	if len(s.participants) == 0 {
		return domain.ErrNoParticipants
	}
	if len(s.questions) == 0 {
		return domain.ErrEmptyQuestionSet
	}

	s.status = domain.StatusInProgress
	s.startedAt = s.now()
	s.openRoundLocked(0)
	return nil
}

// openRoundLocked makes questions[index] the current round and arms the
// round timer when one is configured.
func (s *ExamSession) openRoundLocked(index int) {
	s.current = index
	s.roundOpenedAt = s.now()
	if s.cfg.TimePerQuestion > 0 {
		token := s.roundToken
		s.timer = time.AfterFunc(s.cfg.TimePerQuestion, func() {
			s.onTimerFired(token)
		})
	}
	s.broadcastLocked(domain.ExamEvent{
		Type:          domain.EventRoundOpened,
		ExamID:        s.id,
		QuestionIndex: index,
		QuestionText:  s.questions[index].Text,
	})
}

// onTimerFired funnels the deadline trigger into the same locked closure
// path the last answer uses. A stale token means the round already closed.
func (s *ExamSession) onTimerFired(token int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != domain.StatusInProgress || token != s.roundToken {
		return
	}
	s.closeRoundLocked()
}

func (s *ExamSession) submit(participantID string, questionIndex int, value float64) (domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusInProgress {
		return domain.Answer{}, domain.ErrExamNotInProgress
	}
	participant, ok := s.participantLocked(participantID)
	if !ok {
		return domain.Answer{}, domain.ErrParticipantNotFound
	}
	if questionIndex != s.current {
		return domain.Answer{}, domain.ErrStaleRound
	}
	round := s.answers[s.current]
	if _, exists := round[participant.ID]; exists {
		return domain.Answer{}, domain.ErrDuplicateAnswer
	}

	question := s.questions[s.current]
	answer := domain.Answer{
		ParticipantID: participant.ID,
		QuestionIndex: s.current,
		Value:         value,
		Correct:       domain.AnswerMatches(value, question.Answer),
		SubmittedAt:   s.now(),
	}
	round[participant.ID] = answer

	if len(round) > len(s.participants) {
		// Broken invariant; stop the exam instead of masking it.
		log.Printf("exam %s round %d has %d answers for %d participants, cancelling", s.id, s.current, len(round), len(s.participants))
		s.cancelLocked()
		return domain.Answer{}, domain.ErrExamTerminal
	}
	if len(round) == len(s.participants) {
		s.closeRoundLocked()
	}
	return answer, nil
}

// closeRoundLocked is the single round-closure point shared by the
// all-answered and timer paths. It invalidates the round's timer token
// before anything else, so the losing trigger becomes a no-op.
func (s *ExamSession) closeRoundLocked() {
	s.roundToken++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	closed := s.current
	s.broadcastLocked(domain.ExamEvent{
		Type:          domain.EventRoundClosed,
		ExamID:        s.id,
		QuestionIndex: closed,
	})
	if closed+1 < len(s.questions) {
		s.openRoundLocked(closed + 1)
		return
	}
	s.completeLocked()
}

func (s *ExamSession) completeLocked() {
	s.status = domain.StatusCompleted
	s.completedAt = s.now()
	s.current = len(s.questions)
	lb := s.aggregateLocked()
	s.leaderboard = &lb
	s.broadcastLocked(domain.ExamEvent{
		Type:          domain.EventExamCompleted,
		ExamID:        s.id,
		QuestionIndex: len(s.questions) - 1,
		Leaderboard:   &lb,
	})
	if s.onCompleted != nil {
		go s.onCompleted(lb)
	}
}

// aggregateLocked scores each participant (unanswered rounds count as
// incorrect) and ranks by score descending, earlier join order first on
// ties.
func (s *ExamSession) aggregateLocked() domain.Leaderboard {
	entries := make([]domain.LeaderboardEntry, 0, len(s.participants))
	for _, p := range s.participants {
		entry := domain.LeaderboardEntry{
			ParticipantID: p.ID,
			Kind:          p.Kind,
			JoinOrder:     p.JoinOrder,
			Answers:       make([]*float64, len(s.questions)),
			Correct:       make([]bool, len(s.questions)),
		}
		for i := range s.questions {
			if answer, ok := s.answers[i][p.ID]; ok {
				value := answer.Value
				entry.Answers[i] = &value
				entry.Correct[i] = answer.Correct
				if answer.Correct {
					entry.Score++
				}
			}
		}
		if len(s.questions) > 0 {
			entry.Percentage = float64(entry.Score) / float64(len(s.questions)) * 100
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].JoinOrder < entries[j].JoinOrder
	})

	return domain.Leaderboard{
		ExamID:         s.id,
		TotalQuestions: len(s.questions),
		Entries:        entries,
		ComputedAt:     s.now(),
	}
}

func (s *ExamSession) cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return domain.ErrExamTerminal
	}
	s.cancelLocked()
	return nil
}

func (s *ExamSession) cancelLocked() {
	s.roundToken++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.status = domain.StatusCancelled
	s.broadcastLocked(domain.ExamEvent{
		Type:          domain.EventExamCancelled,
		ExamID:        s.id,
		QuestionIndex: s.current,
	})
}

func (s *ExamSession) statusView(participantID string) (domain.ExamStatusView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	participant, ok := s.participantLocked(participantID)
	if !ok {
		return domain.ExamStatusView{}, domain.ErrParticipantNotFound
	}

	view := domain.ExamStatusView{
		ExamID:               s.id,
		Status:               s.status,
		CurrentQuestionIndex: s.current,
		TotalQuestions:       len(s.questions),
		TotalParticipants:    len(s.participants),
	}

	if s.status == domain.StatusInProgress && s.current < len(s.questions) {
		view.QuestionText = s.questions[s.current].Text
		view.ParticipantsAnswered = len(s.answers[s.current])
		if own, ok := s.answers[s.current][participant.ID]; ok {
			ownCopy := own
			view.OwnAnswer = &ownCopy
		}
		if s.cfg.TimePerQuestion > 0 {
			remaining := s.roundOpenedAt.Add(s.cfg.TimePerQuestion).Sub(s.now())
			if remaining < 0 {
				remaining = 0
			}
			view.TimeRemaining = remaining
		}
	}

	view.VisibleAnswers = s.visibleAnswersLocked(participant)
	return view, nil
}

// visibleAnswersLocked picks which round the reveal policy inspects. The
// later-participants strategy reads the open round; the after-round strategy
// reads the most recently closed one, since closure and advance are atomic
// here.
func (s *ExamSession) visibleAnswersLocked(participant domain.Participant) []domain.VisibleAnswer {
	switch s.cfg.RevealStrategy {
	case domain.RevealToLaterParticipants:
		if s.status == domain.StatusInProgress && s.current >= 0 && s.current < len(s.questions) {
			return domain.VisibleAnswers(s.cfg.RevealStrategy, participant, s.participants, s.answers[s.current], false)
		}
	case domain.RevealAllAfterRound:
		lastClosed := s.current - 1
		if lastClosed >= 0 && lastClosed < len(s.questions) {
			return domain.VisibleAnswers(s.cfg.RevealStrategy, participant, s.participants, s.answers[lastClosed], true)
		}
	}
	return nil
}

func (s *ExamSession) finalLeaderboard() (domain.Leaderboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status == domain.StatusCancelled {
		return domain.Leaderboard{}, domain.ErrExamTerminal
	}
	if s.leaderboard == nil {
		return domain.Leaderboard{}, domain.ErrExamNotCompleted
	}
	return *s.leaderboard, nil
}

func (s *ExamSession) currentQuestion() (domain.Question, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status != domain.StatusInProgress || s.current < 0 || s.current >= len(s.questions) {
		return domain.Question{}, 0, domain.ErrExamNotInProgress
	}
	return s.questions[s.current], s.current, nil
}

func (s *ExamSession) participantList() []domain.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Participant, len(s.participants))
	copy(out, s.participants)
	return out
}

func (s *ExamSession) participantLocked(participantID string) (domain.Participant, bool) {
	for _, p := range s.participants {
		if p.ID == participantID {
			return p, true
		}
	}
	return domain.Participant{}, false
}

func (s *ExamSession) subscribe() (<-chan domain.ExamEvent, func()) {
	ch := make(chan domain.ExamEvent, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	var initial *domain.ExamEvent
	if s.status == domain.StatusInProgress && s.current >= 0 && s.current < len(s.questions) {
		initial = &domain.ExamEvent{
			Type:          domain.EventRoundOpened,
			ExamID:        s.id,
			QuestionIndex: s.current,
			QuestionText:  s.questions[s.current].Text,
		}
	}
	s.mu.Unlock()

	if initial != nil {
		ch <- *initial
	}

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *ExamSession) broadcastLocked(ev domain.ExamEvent) {
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// Drop the oldest queued event so a slow subscriber cannot block
			// round progression.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}
