package journal

import (
	"errors"
	"fmt"
)

var (
	// ErrNoArticles is returned when an operation requires at least one
	// uploaded article.
	ErrNoArticles = errors.New("no articles uploaded yet")

	// ErrCancelled is the failure recorded when a generation task is
	// cancelled before reaching a terminal state.
	ErrCancelled = errors.New("generation cancelled")
)

// PlanningError reports an internal inconsistency in the structure planner,
// such as the table of contents failing to stabilize after the second pass.
// Planning errors are fatal to the owning generation task and are never
// retried.
type PlanningError struct {
	Stage  string
	Reason string
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("planning inconsistency at %s: %s", e.Stage, e.Reason)
}
