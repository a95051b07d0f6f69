// Package simerr holds the sentinel error kinds shared across the
// simulation: agents, tasks, the sense-map, and the controller all wrap one
// of these with errors.Is-checkable context.
package simerr

import "errors"

var (
	// ErrStateViolation marks an operation invoked while an agent is in a
	// state that forbids it. It is a programming-bug signal: callers should
	// treat it as fatal to the run, not retry or ignore it.
	ErrStateViolation = errors.New("simerr: state violation")

	// ErrInfeasibleAllocation marks a subtask that no agent could serve; the
	// subtask is dropped and the condition logged, not fatal.
	ErrInfeasibleAllocation = errors.New("simerr: infeasible allocation")

	// ErrOvertime marks a submit that landed outside a task's active
	// window; the sample is rolled back.
	ErrOvertime = errors.New("simerr: task overtime")

	// ErrCannotSense is reported by the world oracle when an agent cannot
	// sense its current region; it may trigger self-repair.
	ErrCannotSense = errors.New("simerr: cannot sense region")

	// ErrDamaged marks an agent that has broken down; it is removed from
	// the allocation pool.
	ErrDamaged = errors.New("simerr: agent damaged")

	// ErrKernelDomain marks a composite kernel distance outside [0,1] — a
	// fatal assertion failure in the sense-map.
	ErrKernelDomain = errors.New("simerr: kernel distance out of domain")

	// ErrIndexOutOfRange marks an out-of-bounds sense-map cell access.
	ErrIndexOutOfRange = errors.New("simerr: index out of range")
)
