package domain

import (
	"math"
	"time"
)

// ExamStatus tracks the lifecycle of an immersive exam.
type ExamStatus string

const (
	StatusCreated          ExamStatus = "created"
	StatusRegistrationOpen ExamStatus = "registration_open"
	StatusInProgress       ExamStatus = "in_progress"
	StatusCompleted        ExamStatus = "completed"
	StatusCancelled        ExamStatus = "cancelled"
)

// Terminal reports whether the exam can no longer change state.
func (s ExamStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// RevealStrategy governs which participants' answers are visible to others.
type RevealStrategy string

const (
	// RevealNone hides everyone's answers from everyone.
	RevealNone RevealStrategy = "none"
	// RevealToLaterParticipants shows earlier-joined participants' answers to
	// later-joined ones, never the other way around.
	RevealToLaterParticipants RevealStrategy = "reveal_to_later_participants"
	// RevealAllAfterRound shows every answer to everyone once a round closes.
	RevealAllAfterRound RevealStrategy = "reveal_all_after_round"
)

// Valid reports whether the strategy is one of the recognized values.
func (s RevealStrategy) Valid() bool {
	switch s {
	case RevealNone, RevealToLaterParticipants, RevealAllAfterRound:
		return true
	}
	return false
}

// ParticipantKind distinguishes humans from automated solvers.
type ParticipantKind string

const (
	KindHuman     ParticipantKind = "human"
	KindAutomated ParticipantKind = "automated"
)

// Valid reports whether the kind is one of the recognized values.
func (k ParticipantKind) Valid() bool {
	return k == KindHuman || k == KindAutomated
}

// Difficulty is a question difficulty bucket.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// DifficultyDistribution maps difficulty to the number of questions wanted.
type DifficultyDistribution map[Difficulty]int

// Total returns the number of questions the distribution asks for.
func (d DifficultyDistribution) Total() int {
	total := 0
	for _, count := range d {
		total += count
	}
	return total
}

// Question is one exam question with its expected numeric answer.
type Question struct {
	Equation   string     `json:"equation"`
	Text       string     `json:"text"`
	Answer     float64    `json:"answer"`
	Difficulty Difficulty `json:"difficulty"`
	Category   string     `json:"category,omitempty"`
}

// Participant is a registered exam participant. JoinOrder is the 0-based
// registration sequence; it drives reveal ordering and leaderboard
// tie-breaks.
type Participant struct {
	ID        string          `json:"id"`
	Kind      ParticipantKind `json:"kind"`
	JoinOrder int             `json:"joinOrder"`
}

// Answer is the write-once record of one participant's answer to one
// question.
type Answer struct {
	ParticipantID string    `json:"participantId"`
	QuestionIndex int       `json:"questionIndex"`
	Value         float64   `json:"value"`
	Correct       bool      `json:"correct"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

// ExamConfig holds the immutable settings chosen at creation time.
type ExamConfig struct {
	Distribution    DifficultyDistribution
	RevealStrategy  RevealStrategy
	TimePerQuestion time.Duration // zero means rounds close only when all answered
}

// VisibleAnswer is another participant's answer as exposed by the reveal
// policy.
type VisibleAnswer struct {
	ParticipantID string          `json:"participantId"`
	Kind          ParticipantKind `json:"kind"`
	Value         float64         `json:"value"`
	Correct       bool            `json:"correct"`
}

// ExamStatusView is a participant-scoped snapshot of a running exam.
type ExamStatusView struct {
	ExamID               string          `json:"examId"`
	Status               ExamStatus      `json:"status"`
	CurrentQuestionIndex int             `json:"currentQuestionIndex"`
	TotalQuestions       int             `json:"totalQuestions"`
	QuestionText         string          `json:"questionText,omitempty"`
	TimeRemaining        time.Duration   `json:"timeRemaining,omitempty"`
	ParticipantsAnswered int             `json:"participantsAnswered"`
	TotalParticipants    int             `json:"totalParticipants"`
	OwnAnswer            *Answer         `json:"ownAnswer,omitempty"`
	VisibleAnswers       []VisibleAnswer `json:"visibleAnswers,omitempty"`
}

// LeaderboardEntry is one participant's final standing.
type LeaderboardEntry struct {
	ParticipantID string          `json:"participantId"`
	Kind          ParticipantKind `json:"kind"`
	JoinOrder     int             `json:"joinOrder"`
	Score         int             `json:"score"`
	Percentage    float64         `json:"percentage"`
	Answers       []*float64      `json:"answers"`
	Correct       []bool          `json:"correct"`
}

// Leaderboard is the immutable final ranking of a completed exam.
type Leaderboard struct {
	ExamID         string             `json:"examId"`
	TotalQuestions int                `json:"totalQuestions"`
	Entries        []LeaderboardEntry `json:"entries"`
	ComputedAt     time.Time          `json:"computedAt"`
}

// ExamEventType labels the broadcast events emitted by a running exam.
type ExamEventType string

const (
	EventRoundOpened   ExamEventType = "round_opened"
	EventRoundClosed   ExamEventType = "round_closed"
	EventExamCompleted ExamEventType = "exam_completed"
	EventExamCancelled ExamEventType = "exam_cancelled"
)

// ExamEvent is pushed to subscribers on round transitions. It carries the
// question prompt, never the correct answer.
type ExamEvent struct {
	Type          ExamEventType `json:"type"`
	ExamID        string        `json:"examId"`
	QuestionIndex int           `json:"questionIndex"`
	QuestionText  string        `json:"questionText,omitempty"`
	Leaderboard   *Leaderboard  `json:"leaderboard,omitempty"`
}

const answerTolerance = 0.01

// AnswerMatches reports whether a submitted value counts as correct.
func AnswerMatches(submitted, correct float64) bool {
	return math.Abs(submitted-correct) < answerTolerance
}
