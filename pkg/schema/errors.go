package schema

import (
	"errors"
	"fmt"
)

// Error codes for structured error reporting.
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeInvalidConfig     = "INVALID_CONFIG"
	ErrCodeMissingInput      = "MISSING_INPUT"
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeUnknownActionType = "UNKNOWN_ACTION_TYPE"
	ErrCodeUnknownWorkflow   = "UNKNOWN_WORKFLOW"
	ErrCodeUnknownAction     = "UNKNOWN_ACTION"
	ErrCodeActionCreation    = "ACTION_CREATION_ERROR"
	ErrCodeExecution         = "EXECUTION_ERROR"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeCycleDetected     = "CYCLE_DETECTED"
	ErrCodeUnreachable       = "UNREACHABLE_ACTION"
	ErrCodeDuplicateAction   = "DUPLICATE_ACTION"
	ErrCodePathDenied        = "PATH_DENIED"
	ErrCodeInterpolation     = "INTERPOLATION_ERROR"
	ErrCodeIsolation         = "ISOLATION_ERROR"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"

	// Engine-level failure kinds carried by WorkflowError.
	ErrCodeSetupFailure    = "SETUP_FAILURE"
	ErrCodeActionExecution = "ACTION_EXECUTION_FAILURE"
)

// Error is the structured error type shared by actions, the factory and the registry.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Action  string         `json:"action,omitempty"`
	Cause   error          `json:"-"`
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Action != "" {
		return fmt.Sprintf("[%s] action %s: %s", e.Code, e.Action, msg)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorf creates a new Error with a formatted message.
func NewErrorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithAction attaches the name of the action the error relates to.
func (e *Error) WithAction(name string) *Error {
	e.Action = name
	return e
}

// WithCause attaches an underlying cause.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// WorkflowError is the single error surfaced by a failed workflow run.
// Code is either ErrCodeSetupFailure or ErrCodeActionExecution; Cause holds the
// original error unchanged.
type WorkflowError struct {
	Code       string `json:"code"`
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id,omitempty"`
	Action     string `json:"action,omitempty"`
	Step       int    `json:"step"`
	State      string `json:"state"`
	Cause      error  `json:"-"`
}

func (e *WorkflowError) Error() string {
	where := fmt.Sprintf("workflow %s", e.WorkflowID)
	if e.Action != "" {
		where = fmt.Sprintf("%s step %d (%s)", where, e.Step, e.Action)
	}
	if e.Cause == nil {
		return fmt.Sprintf("[%s] %s failed", e.Code, where)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Code, where, e.Cause)
}

func (e *WorkflowError) Unwrap() error {
	return e.Cause
}

// HasCode reports whether any error in err's chain carries the given code.
func HasCode(err error, code string) bool {
	for err != nil {
		switch e := err.(type) {
		case *Error:
			if e.Code == code {
				return true
			}
		case *WorkflowError:
			if e.Code == code {
				return true
			}
		}
		err = errors.Unwrap(err)
	}
	return false
}

// CodeOf returns the code of the outermost structured error in err's chain, or "".
func CodeOf(err error) string {
	var wfErr *WorkflowError
	if errors.As(err, &wfErr) {
		return wfErr.Code
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
