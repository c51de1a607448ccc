package main

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Error Kinds
// ---------------------------------------------------------------------------

var (
	// ErrInsufficientInk is returned when a signature canvas has too little ink.
	ErrInsufficientInk = errors.New("insufficient signature ink")

	// ErrUnreadableSignature is returned for a capture that is not a PNG of the canvas size.
	ErrUnreadableSignature = errors.New("unreadable signature image")

	// ErrStageOrder is returned when an operation is invoked outside its stage.
	ErrStageOrder = errors.New("operation not allowed in current stage")
)

// ConfigurationError reports a missing or broken template, font, or directory source.
type ConfigurationError struct {
	Resource string
	Err      error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %v", e.Resource, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ValidationError carries the first failing form rule.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// RenderError wraps unexpected failures while drawing or assembling the document.
type RenderError struct {
	Step string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Step, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// EmailDispatchError wraps a failed submission to the school mailbox.
type EmailDispatchError struct {
	Recipient string
	Err       error
}

func (e *EmailDispatchError) Error() string {
	return fmt.Sprintf("email to %s: %v", e.Recipient, e.Err)
}

func (e *EmailDispatchError) Unwrap() error { return e.Err }
