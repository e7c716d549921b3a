// Package apperror defines the error kinds surfaced by the service layer.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the HTTP boundary can pick a status code.
type Kind string

const (
	KindInternal   Kind = "internal"
	KindEmbedding  Kind = "embedding"
	KindStore      Kind = "store"
	KindValidation Kind = "validation"
)

// Error is a failure tagged with its kind and the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with kind and op. A nil err yields nil.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Embedding marks err as a failed call to the embedding provider.
func Embedding(op string, err error) error {
	return New(KindEmbedding, op, err)
}

// Store marks err as a persistence failure.
func Store(op string, err error) error {
	return New(KindStore, op, err)
}

// Internal marks err as a data or programming error.
func Internal(op string, err error) error {
	return New(KindInternal, op, err)
}

// Validation returns a caller input error with a formatted message.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost *Error in err's chain,
// or KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
