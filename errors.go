package taskgraph

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions, mirroring the teacher's
// core/error.go base-error style.
var (
	// ErrConditionalIDOutOfRange is returned when If is called with an id
	// outside 0..30 (spec.md §4.6, §6).
	ErrConditionalIDOutOfRange = errors.New("taskgraph: conditional id out of range [0,30]")

	// ErrUnknownAccessIntent is returned when the Access Classifier
	// cannot map a declared attachment intent (spec.md §4.2).
	ErrUnknownAccessIntent = errors.New("taskgraph: access intent not classifiable")

	// ErrAttachmentIndexOutOfBounds is returned when TaskInterface.Get is
	// called with an index outside the task's declared attachment list.
	ErrAttachmentIndexOutOfBounds = errors.New("taskgraph: attachment index out of bounds")

	// ErrEmptyMemoryTypeBits is returned by Compile when the intersection
	// of all transient resources' memory_type_bits is empty (spec.md §4.4,
	// §7 compile errors).
	ErrEmptyMemoryTypeBits = errors.New("taskgraph: transient resources share no compatible memory type")

	// ErrAlreadyCompiled / ErrNotCompiled guard the record/compile/execute
	// state machine (spec.md §6 compile() "marks graph immutable").
	ErrAlreadyCompiled = errors.New("taskgraph: graph already compiled")
	ErrNotCompiled     = errors.New("taskgraph: graph not yet compiled")

	// ErrUnsetPersistentResource is returned by Execute when a persistent
	// handle's backing GPU resource was never set (spec.md §7 execution
	// errors).
	ErrUnsetPersistentResource = errors.New("taskgraph: persistent resource has no backing handle")

	// ErrDoubleSubmitNoTasks is returned when submit() is called twice
	// with no intervening tasks (spec.md §6 diagnostics).
	ErrDoubleSubmitNoTasks = errors.New("taskgraph: submit called twice with no intervening tasks")

	// ErrUnreachablePermutation is returned by Execute when the requested
	// conditional bitmask does not correspond to any permutation the
	// recorder ever materialized.
	ErrUnreachablePermutation = errors.New("taskgraph: no permutation recorded for this conditional mask")
)

// ValidationError represents a user API misuse detected at record time
// (spec.md §7 "Declaration errors"). Shape mirrors the teacher's
// core/error.go ValidationError: resource + field + message + cause.
type ValidationError struct {
	Entity  string // e.g. "TaskBuffer", "Task", "Conditional"
	Name    string // debug name of the offending entity, if any
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("taskgraph: %s %q: %s", e.Entity, e.Name, e.Message)
	}
	return fmt.Sprintf("taskgraph: %s: %s", e.Entity, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

func newValidationError(entity, name, message string) *ValidationError {
	return &ValidationError{Entity: entity, Name: name, Message: message}
}

// CompileError represents a failure during Compile() (spec.md §7).
type CompileError struct {
	Stage   string // e.g. "transient-allocation", "dag-validation"
	Message string
	Cause   error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("taskgraph: compile failed at %s: %s", e.Stage, e.Message)
}

func (e *CompileError) Unwrap() error { return e.Cause }

func newCompileError(stage, message string, cause error) *CompileError {
	return &CompileError{Stage: stage, Message: message, Cause: cause}
}

// ExecutionError represents a failure during Execute() (spec.md §7).
type ExecutionError struct {
	Name    string
	Message string
	Cause   error
}

func (e *ExecutionError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("taskgraph: execute failed (%s): %s", e.Name, e.Message)
	}
	return fmt.Sprintf("taskgraph: execute failed: %s", e.Message)
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

func newExecutionError(name, message string, cause error) *ExecutionError {
	return &ExecutionError{Name: name, Message: message, Cause: cause}
}
