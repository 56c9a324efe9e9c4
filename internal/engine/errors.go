package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while processing an event.
//
// Runtime errors include:
//   - Mutation failure: the host rejected a tag update, deselect or create
//   - Clipboard failure: the copy gesture could not reach the clipboard
//   - No template: an operation needed a template that is not selected or
//     no longer exists
//   - Unknown event: an event kind the loop does not handle
//
// None of them stop the Run loop; they are logged and processing continues.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// TemplateID identifies the template involved, if any.
	TemplateID string

	// Err is the underlying collaborator error, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeMutationFailed indicates the FeatureMutator returned an error.
	ErrCodeMutationFailed RuntimeErrorCode = "MUTATION_FAILED"

	// ErrCodeClipboardFailed indicates the Clipboard returned an error.
	ErrCodeClipboardFailed RuntimeErrorCode = "CLIPBOARD_FAILED"

	// ErrCodeNoTemplate indicates no usable template was selected.
	ErrCodeNoTemplate RuntimeErrorCode = "NO_TEMPLATE"

	// ErrCodeUnknownEvent indicates an unhandled event kind.
	ErrCodeUnknownEvent RuntimeErrorCode = "UNKNOWN_EVENT"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.TemplateID != "" {
		msg += fmt.Sprintf(" (template=%s)", e.TemplateID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying collaborator error.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsMutationError returns true if the error is a mutation failure.
// Uses errors.As to handle wrapped errors.
func IsMutationError(err error) bool {
	return hasCode(err, ErrCodeMutationFailed)
}

// IsClipboardError returns true if the error is a clipboard failure.
func IsClipboardError(err error) bool {
	return hasCode(err, ErrCodeClipboardFailed)
}

// IsNoTemplateError returns true if no usable template was available.
func IsNoTemplateError(err error) bool {
	return hasCode(err, ErrCodeNoTemplate)
}

// NewMutationError wraps a FeatureMutator error.
func NewMutationError(op, templateID string, err error) *RuntimeError {
	return &RuntimeError{
		Code:       ErrCodeMutationFailed,
		Message:    op + " failed",
		TemplateID: templateID,
		Err:        err,
	}
}

// NewClipboardError wraps a Clipboard error.
func NewClipboardError(templateID string, err error) *RuntimeError {
	return &RuntimeError{
		Code:       ErrCodeClipboardFailed,
		Message:    "copy to clipboard failed",
		TemplateID: templateID,
		Err:        err,
	}
}

// NewNoTemplateError reports a missing or unselected template.
func NewNoTemplateError(templateID string) *RuntimeError {
	msg := "no template selected"
	if templateID != "" {
		msg = "template not found"
	}
	return &RuntimeError{
		Code:       ErrCodeNoTemplate,
		Message:    msg,
		TemplateID: templateID,
	}
}
