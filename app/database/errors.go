package database

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrTaskNotDone rejects archiving of a task that has not completed
	// successfully.
	ErrTaskNotDone = errors.New("task is not in done state")

	// ErrArchiveConflict rejects a second archive attempt for a task that
	// already has an archive entry.
	ErrArchiveConflict = errors.New("task is already archived")
)
