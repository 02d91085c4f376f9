package types

import "fmt"

// ErrorType represents the category of error
type ErrorType int

const (
	ErrorTypeValidation ErrorType = iota
	ErrorTypeStateConflict
	ErrorTypeNotFound
	ErrorTypeSubprocess
	ErrorTypePartialFailure
	ErrorTypeConfig
	ErrorTypeInternal
)

func (et ErrorType) String() string {
	switch et {
	case ErrorTypeValidation:
		return "validation"
	case ErrorTypeStateConflict:
		return "state-conflict"
	case ErrorTypeNotFound:
		return "not-found"
	case ErrorTypeSubprocess:
		return "subprocess"
	case ErrorTypePartialFailure:
		return "partial-failure"
	case ErrorTypeConfig:
		return "config"
	case ErrorTypeInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// VibetreeError is the base interface for all vibetree errors
type VibetreeError interface {
	error
	Type() ErrorType
	Operation() string
	Context() map[string]interface{}
	Recoverable() bool
	SuggestedActions() []string
	UserMessage() string
}

// BaseError provides a base implementation of VibetreeError
type BaseError struct {
	errType          ErrorType
	operation        string
	message          string
	cause            error
	context          map[string]interface{}
	recoverable      bool
	suggestedActions []string
}

func (be *BaseError) Error() string {
	if be.cause != nil {
		return fmt.Sprintf("%s: %s: %v", be.operation, be.message, be.cause)
	}
	return fmt.Sprintf("%s: %s", be.operation, be.message)
}

func (be *BaseError) Type() ErrorType                 { return be.errType }
func (be *BaseError) Operation() string               { return be.operation }
func (be *BaseError) Context() map[string]interface{} { return be.context }
func (be *BaseError) Recoverable() bool               { return be.recoverable }
func (be *BaseError) SuggestedActions() []string      { return be.suggestedActions }
func (be *BaseError) UserMessage() string             { return be.message }
func (be *BaseError) Unwrap() error                   { return be.cause }

// ValidationError represents input rejected before any git call,
// such as a bad task id or branch name.
type ValidationError struct {
	*BaseError
}

func NewValidationError(operation, message string, cause error) *ValidationError {
	return &ValidationError{
		BaseError: &BaseError{
			errType:     ErrorTypeValidation,
			operation:   operation,
			message:     message,
			cause:       cause,
			recoverable: false,
			suggestedActions: []string{
				"Check your command arguments and try again",
				"Run 'vibetree --help' for usage information",
			},
		},
	}
}

// StateConflictError represents a conflict with existing repository state,
// such as a branch that already exists without --force.
type StateConflictError struct {
	*BaseError
}

func NewStateConflictError(operation, message string, cause error) *StateConflictError {
	return &StateConflictError{
		BaseError: &BaseError{
			errType:     ErrorTypeStateConflict,
			operation:   operation,
			message:     message,
			cause:       cause,
			recoverable: true,
			suggestedActions: []string{
				"Re-run with --force to replace the existing branch and worktree",
				"Pick a different task id",
			},
		},
	}
}

// NotFoundError represents an unresolvable target (worktree path or branch).
type NotFoundError struct {
	*BaseError
}

func NewNotFoundError(operation, message string, cause error) *NotFoundError {
	return &NotFoundError{
		BaseError: &BaseError{
			errType:     ErrorTypeNotFound,
			operation:   operation,
			message:     message,
			cause:       cause,
			recoverable: false,
			suggestedActions: []string{
				"Run 'vibetree list' to see known worktrees",
				"Verify the path or branch name",
			},
		},
	}
}

// SubprocessError represents a non-zero git/gh exit. The stderr of the
// failed process is preserved verbatim in Stderr and in the error chain.
type SubprocessError struct {
	*BaseError
	Command string
	Stderr  string
}

func NewSubprocessError(operation, command, stderr string, cause error) *SubprocessError {
	message := fmt.Sprintf("command failed: %s", command)
	if stderr != "" {
		message = fmt.Sprintf("command failed: %s: %s", command, stderr)
	}
	return &SubprocessError{
		BaseError: &BaseError{
			errType:   ErrorTypeSubprocess,
			operation: operation,
			message:   message,
			cause:     cause,
			context: map[string]interface{}{
				"command": command,
				"stderr":  stderr,
			},
			recoverable: true,
			suggestedActions: []string{
				"Check the git error output above",
				"Verify the repository is in a usable state",
			},
		},
		Command: command,
		Stderr:  stderr,
	}
}

// PartialFailureError represents a mid-strategy failure, such as a merge
// conflict during cleanup. The worktree is left intact.
type PartialFailureError struct {
	*BaseError
}

func NewPartialFailureError(operation, message string, cause error) *PartialFailureError {
	return &PartialFailureError{
		BaseError: &BaseError{
			errType:     ErrorTypePartialFailure,
			operation:   operation,
			message:     message,
			cause:       cause,
			recoverable: true,
			suggestedActions: []string{
				"Resolve the underlying conflict manually",
				"The worktree was left untouched",
			},
		},
	}
}

// ConfigError represents configuration-related failures
type ConfigError struct {
	*BaseError
}

func NewConfigError(operation, message string, cause error) *ConfigError {
	return &ConfigError{
		BaseError: &BaseError{
			errType:     ErrorTypeConfig,
			operation:   operation,
			message:     message,
			cause:       cause,
			recoverable: false,
			suggestedActions: []string{
				"Check configuration file syntax",
				"Run 'vibetree config validate' to diagnose",
			},
		},
	}
}
