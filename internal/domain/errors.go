// Package domain contains pure business types for the mode-selection
// scheduler, with ZERO infrastructure imports. This is the innermost ring
// of the repository — it depends on nothing else in the module.
package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Construction-time errors are fatal to the caller's intent (the task or
// mode is simply invalid); optimization-time errors are ordinary returned
// values. Neither kind unwinds the process — that decision belongs to the
// host (CLI, HTTP handler).

var (
	// ErrTooManyModes is returned when a task's mode menu exceeds MaxModes.
	ErrTooManyModes = errors.New("task exceeds maximum number of modes")

	// ErrInvalidMode is returned when a caller addresses a mode index
	// outside [0, num_modes) for a task.
	ErrInvalidMode = errors.New("invalid mode index for task")

	// ErrDegenerateMode is returned when a mode's period equals its span,
	// making Graham's bound undefined (division by zero).
	ErrDegenerateMode = errors.New("degenerate mode: period equals span")

	// ErrDivideByZero is returned by duration ratio operations when the
	// divisor duration is zero.
	ErrDivideByZero = errors.New("division by zero duration")

	// ErrParse is wrapped by the input-file parser to report malformed
	// task menus, with file/line context attached via fmt.Errorf("%w").
	ErrParse = errors.New("parse error")

	// ErrInfeasible is returned by the optimizer when no mode vector
	// satisfies the capacity bounds and the frozen-task constraints.
	ErrInfeasible = errors.New("no feasible mode selection within bounds")
)
