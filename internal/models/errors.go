package models

import (
	"errors"
	"fmt"
)

// ErrorType identifies the category of error that occurred.
type ErrorType string

const (
	// Discovery, recovered with a warning
	ErrTaskNameInvalid   ErrorType = "task_name_invalid"
	ErrDuplicateTaskName ErrorType = "duplicate_task_name"

	// Resolution
	ErrMissingDependency  ErrorType = "missing_dependency"
	ErrTaskNotFound       ErrorType = "task_not_found"
	ErrCircularDependency ErrorType = "circular_dependency"

	// Security boundary
	ErrDirectoryTraversalRejected ErrorType = "directory_traversal_rejected"
	ErrScriptPathViolation        ErrorType = "script_path_violation"

	// Execution
	ErrTaskBodyFailure  ErrorType = "task_body_failure"
	ErrDependencyFailed ErrorType = "dependency_failed"
	ErrUnsupportedBody  ErrorType = "unsupported_task_body"

	// Configuration
	ErrConfigurationFileMalformed ErrorType = "configuration_file_malformed"
	ErrVariableNotFound           ErrorType = "variable_not_found"
	ErrVariableKeyInvalid         ErrorType = "variable_key_invalid"

	// create-task
	ErrTaskExists ErrorType = "task_exists"
)

var messages = map[ErrorType]string{
	ErrTaskNameInvalid:            "invalid task name",
	ErrDuplicateTaskName:          "duplicate task name",
	ErrMissingDependency:          "missing dependency",
	ErrTaskNotFound:               "task not found",
	ErrCircularDependency:         "circular dependency",
	ErrDirectoryTraversalRejected: "task directory rejected",
	ErrScriptPathViolation:        "script path rejected",
	ErrTaskBodyFailure:            "task failed",
	ErrDependencyFailed:           "dependency failed",
	ErrUnsupportedBody:            "unsupported task body",
	ErrConfigurationFileMalformed: "malformed configuration file",
	ErrVariableNotFound:           "variable not found",
	ErrVariableKeyInvalid:         "invalid variable key",
	ErrTaskExists:                 "task already exists",
}

// Error is a categorized failure naming the task, path or key it concerns.
type Error struct {
	Type    ErrorType
	Subject string
	Err     error
}

// NewError creates an Error of the given type.
func NewError(t ErrorType, subject string, err error) *Error {
	return &Error{Type: t, Subject: subject, Err: err}
}

func (e *Error) Error() string {
	msg, ok := messages[e.Type]
	if !ok {
		msg = string(e.Type)
	}
	if e.Subject != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Subject)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// IsType reports whether err wraps an *Error of type t.
func IsType(err error, t ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == t
}
