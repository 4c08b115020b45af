package errors

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

// CapacityExceededError is returned when a lesson has no remaining seats.
type CapacityExceededError struct {
	LessonID int64
	Capacity int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("lesson %d is full (capacity %d)", e.LessonID, e.Capacity)
}

// NewCapacityExceededError creates a new CapacityExceededError
func NewCapacityExceededError(lessonID int64, capacity int) *CapacityExceededError {
	return &CapacityExceededError{LessonID: lessonID, Capacity: capacity}
}

// LockerUnavailableError is returned when the locker pool for a gender is exhausted.
type LockerUnavailableError struct {
	Gender string
}

func (e *LockerUnavailableError) Error() string {
	return fmt.Sprintf("no locker available for gender %s", e.Gender)
}

// LessonNotEnrollableError is returned when the lesson does not accept new
// enrollments in its current status.
type LessonNotEnrollableError struct {
	LessonID int64
	Status   string
}

func (e *LessonNotEnrollableError) Error() string {
	return fmt.Sprintf("lesson %d is not open for enrollment (status %s)", e.LessonID, e.Status)
}

// DuplicateEnrollmentError is returned when a user already holds an active
// enrollment for the same lesson.
type DuplicateEnrollmentError struct {
	UserID   string
	LessonID int64
}

func (e *DuplicateEnrollmentError) Error() string {
	return fmt.Sprintf("user %s already has an active enrollment for lesson %d", e.UserID, e.LessonID)
}

// InvalidTransitionError is returned when the enrollment state machine guard
// rejects a transition, typically because the enrollment already reached a
// terminal state. Callers that race on the same enrollment treat it as a no-op.
type InvalidTransitionError struct {
	From  string
	Event string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: event %s not allowed from status %s", e.Event, e.From)
}

// NewInvalidTransitionError creates a new InvalidTransitionError
func NewInvalidTransitionError(from, event string) *InvalidTransitionError {
	return &InvalidTransitionError{From: from, Event: event}
}
