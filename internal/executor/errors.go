package executor

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Phase is the pipeline step an error occurred in.
type Phase int

const (
	// PhaseCopy covers scanning the inputs and copying files.
	PhaseCopy Phase = iota
	// PhaseTransform covers reading, rewriting and writing a copied file.
	PhaseTransform
)

// String returns the string representation of Phase.
func (p Phase) String() string {
	switch p {
	case PhaseCopy:
		return "copy"
	case PhaseTransform:
		return "transform"
	default:
		return "unknown"
	}
}

// FileError represents an error that occurred while processing one file.
type FileError struct {
	Phase     Phase     // Step that failed
	File      string    // Source path of the file
	Err       error     // Underlying error
	Timestamp time.Time // When the error occurred
}

// NewFileError creates a new FileError with the current timestamp.
func NewFileError(phase Phase, file string, err error) *FileError {
	return &FileError{
		Phase:     phase,
		File:      file,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface for FileError.
func (e *FileError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s %s", e.Phase, e.File))
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return sb.String()
}

// Unwrap returns the underlying error for error wrapping support.
func (e *FileError) Unwrap() error {
	return e.Err
}

// IsFileError checks if the error is or wraps a FileError, i.e. a single
// file could not be processed as opposed to a problem with the run itself.
func IsFileError(err error) bool {
	if err == nil {
		return false
	}
	var fe *FileError
	return errors.As(err, &fe)
}
