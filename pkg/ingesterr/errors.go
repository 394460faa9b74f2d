// Package ingesterr defines the ingestion pipeline's error taxonomy: a
// closed set of retry-relevant kinds plus structured error types carrying
// enough context to build a run's status report.
package ingesterr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for retry policy and reporting. These are the
// kinds, not Go type names; several Kinds may be carried by the same
// error type.
type Kind string

const (
	ConfigInvalid        Kind = "ConfigInvalid"
	CredentialInvalid     Kind = "CredentialInvalid"
	TransientNetwork      Kind = "TransientNetwork"
	RateLimited           Kind = "RateLimited"
	UnsupportedFormat     Kind = "UnsupportedFormat"
	ExtractionFailed      Kind = "ExtractionFailed"
	EmbeddingShape        Kind = "EmbeddingShape"
	DimensionMismatch     Kind = "DimensionMismatch"
	UpsertConflict        Kind = "UpsertConflict"
	VectorStoreDown       Kind = "VectorStoreDown"
	ArtifactStoreDown     Kind = "ArtifactStoreDown"
	IntegrityChunkOversize Kind = "IntegrityChunkOversize"
)

// Retryable reports whether an error of this kind should be retried under
// the uniform retry policy (§4.1). ConfigInvalid, CredentialInvalid,
// DimensionMismatch, UnsupportedFormat and IntegrityChunkOversize are
// never retried.
func (k Kind) Retryable() bool {
	switch k {
	case TransientNetwork, RateLimited, UpsertConflict, VectorStoreDown, ArtifactStoreDown:
		return true
	default:
		return false
	}
}

// RunFatal reports whether an error of this kind aborts the whole run
// before any document starts, rather than failing a single document.
func (k Kind) RunFatal() bool {
	switch k {
	case ConfigInvalid, CredentialInvalid, DimensionMismatch:
		return true
	default:
		return false
	}
}

// PipelineError is the structured error every pipeline stage returns when
// it fails in a way the orchestrator must classify.
type PipelineError struct {
	Kind      Kind
	Component string
	Operation string
	Message   string
	Cause     error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s.%s: %s (caused by: %v)", e.Kind, e.Component, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s.%s: %s", e.Kind, e.Component, e.Operation, e.Message)
}

func (e *PipelineError) Unwrap() error { return e.Cause }

// New builds a PipelineError.
func New(kind Kind, component, operation, message string, cause error) *PipelineError {
	return &PipelineError{Kind: kind, Component: component, Operation: operation, Message: message, Cause: cause}
}

// WrapWithContext wraps err, preserving it for errors.Unwrap, and assigns
// it a Kind so the orchestrator's retry loop can classify it without type
// assertions at every call site.
func WrapWithContext(err error, kind Kind, component, operation, message string) error {
	if err == nil {
		return nil
	}
	return New(kind, component, operation, message, err)
}

// KindOf extracts the Kind from err, defaulting to TransientNetwork for
// unclassified errors produced by collaborators outside this taxonomy —
// unknown errors are treated as retryable-then-give-up rather than fatal,
// since most external-collaborator failures in this pipeline are I/O.
func KindOf(err error) Kind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return TransientNetwork
}

// ConfigurationError signals a problem discovered while loading or
// validating Config, before any collaborator is constructed.
type ConfigurationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ConfigurationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid configuration for %s: %s (caused by: %v)", e.Field, e.Message, e.Cause)
	}
	return fmt.Sprintf("invalid configuration for %s: %s", e.Field, e.Message)
}

func (e *ConfigurationError) Unwrap() error { return e.Cause }

// NewConfigurationError builds a ConfigurationError wrapped as a
// ConfigInvalid PipelineError.
func NewConfigurationError(field, message string, cause error) error {
	return WrapWithContext(&ConfigurationError{Field: field, Message: message, Cause: cause}, ConfigInvalid, "config", "validate", message)
}

// IsRetryable is a convenience wrapper over KindOf(err).Retryable().
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return KindOf(err).Retryable()
}
