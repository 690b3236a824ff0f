// Package errs holds the error taxonomy shared by every stage of the
// ingestion and retrieval pipeline.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrExtraction means the source buffer could not be parsed into text.
	ErrExtraction = errors.New("text extraction failed")
	// ErrEmptyDocument means no chunk survived chunking.
	ErrEmptyDocument = errors.New("no chunks created from document")
	// ErrEmbedding means the external embedding call failed.
	ErrEmbedding = errors.New("embedding failed")
	// ErrEmptyInput is returned when asked to embed empty or whitespace-only text.
	ErrEmptyInput = errors.New("cannot embed empty text")
	// ErrVectorStore means a call to the vector index failed.
	ErrVectorStore = errors.New("vector store operation failed")
	// ErrNotFound is returned for operations on an unknown document id.
	ErrNotFound = errors.New("document not found")
	// ErrNotSupported is returned by operations that are deliberately unimplemented.
	ErrNotSupported = errors.New("operation not supported")
	// ErrInvalidInput means a caller-supplied value exceeds what the index can store.
	ErrInvalidInput = errors.New("invalid input")
)

// Stage names used in StageError and in ingestion-error records.
const (
	StageValidate = "validate"
	StageExtract  = "extract"
	StageChunk    = "chunk"
	StageEmbed    = "embed"
	StageUpsert   = "upsert"
	StageQuery    = "query"
	StageDelete   = "delete"
	StageIndex    = "index"
)

// StageError ties a pipeline failure to the stage it happened in.
// errors.Is matches both the stage sentinel and the underlying cause.
type StageError struct {
	Stage    string
	Sentinel error
	Err      error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Stage, e.Sentinel)
	}
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Sentinel, e.Err)
}

// Unwrap exposes the sentinel and the cause to errors.Is / errors.As.
func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Sentinel}
	}
	return []error{e.Sentinel, e.Err}
}

// Wrap builds a StageError. A nil cause is allowed for failures that have no
// underlying error (e.g. an empty document).
func Wrap(stage string, sentinel, err error) error {
	var se *StageError
	if errors.As(err, &se) && se.Sentinel == sentinel {
		return err
	}
	return &StageError{Stage: stage, Sentinel: sentinel, Err: err}
}

// StageOf returns the stage recorded on err, or "" when err carries none.
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
