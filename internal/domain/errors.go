package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoQuizzesAvailable is returned when the selection pool for a category is empty.
	ErrNoQuizzesAvailable = errors.New("no quizzes available for the selected category")
	// ErrNoQuizzesFound indicates every quiz referenced by a session has been deleted.
	ErrNoQuizzesFound = errors.New("no quizzes found for session")
	// ErrSessionNotFound is returned when a session id is unknown.
	ErrSessionNotFound = errors.New("session not found")
	// ErrQuizNotFound is returned when deleting a quiz that does not exist.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrInvalidOption indicates an answer position outside the displayed options.
	ErrInvalidOption = errors.New("option position out of range")
	// ErrInvalidQuiz wraps quiz shape validation failures.
	ErrInvalidQuiz = errors.New("invalid quiz")
	// ErrUnsupportedExportVersion is returned for import files with an unknown version.
	ErrUnsupportedExportVersion = errors.New("unsupported export version")
)

// InsufficientQuizzesError is returned under the strict selection policy when
// fewer quizzes exist than were requested.
type InsufficientQuizzesError struct {
	Available int
	Requested int
}

func (e *InsufficientQuizzesError) Error() string {
	return fmt.Sprintf("insufficient quizzes: %d available, %d requested", e.Available, e.Requested)
}

// PersistenceError reports a failed write to session or result storage.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
