package domain

import "errors"

var (
	// ErrExamNotFound is returned when the exam ID is unknown.
	ErrExamNotFound = errors.New("exam not found")
	// ErrParticipantNotFound is returned when a caller acts before registering.
	ErrParticipantNotFound = errors.New("participant not registered in exam")
	// ErrRegistrationClosed is returned when registering after the exam left
	// the registration phase.
	ErrRegistrationClosed = errors.New("exam registration is closed")
	// ErrDuplicateParticipant is returned when a participant ID is already
	// registered.
	ErrDuplicateParticipant = errors.New("participant already registered")
	// ErrInvalidParticipantKind is returned for a kind outside human/automated.
	ErrInvalidParticipantKind = errors.New("invalid participant kind")
	// ErrInvalidRevealStrategy is returned for an unrecognized reveal strategy.
	ErrInvalidRevealStrategy = errors.New("invalid reveal strategy")
	// ErrEmptyQuestionSet is returned when the difficulty distribution yields
	// no questions.
	ErrEmptyQuestionSet = errors.New("exam has no questions")
	// ErrNoParticipants is returned when starting an exam nobody joined.
	ErrNoParticipants = errors.New("exam has no participants")
	// ErrExamNotInProgress is returned when answers arrive outside a running exam.
	ErrExamNotInProgress = errors.New("exam is not in progress")
	// ErrStaleRound is returned for answers to a past or future round.
	ErrStaleRound = errors.New("answer is for a closed or future round")
	// ErrDuplicateAnswer is returned on resubmission; the first write wins.
	ErrDuplicateAnswer = errors.New("answer already submitted for this question")
	// ErrExamNotCompleted is returned when results are requested too early.
	ErrExamNotCompleted = errors.New("exam is not completed")
	// ErrExamTerminal is returned when acting on a completed or cancelled exam.
	ErrExamTerminal = errors.New("exam already finished")
)
