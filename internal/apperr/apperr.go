// Package apperr classifies errors into the categories the CLI reports to users.
//
// Packages keep returning their own sentinel errors; apperr wraps them at the
// point where the category is known so the CLI can pick an exit code and show
// hints without inspecting every sentinel.
package apperr

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Kind is the category of a user-facing error.
type Kind int

const (
	// KindUnknown is any error that was never classified.
	KindUnknown Kind = iota
	// KindConfig covers missing or invalid configuration keys.
	KindConfig
	// KindRepository covers "not a repository" and "no changes".
	KindRepository
	// KindProvider covers network, auth and rate-limit failures from AI backends.
	KindProvider
	// KindCommit covers failures of the underlying commit or push.
	KindCommit
	// KindInterrupted is a user interrupt (Ctrl-C).
	KindInterrupted
)

// String returns the lowercase name used in JSON output.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "configuration"
	case KindRepository:
		return "repository"
	case KindProvider:
		return "provider"
	case KindCommit:
		return "commit"
	case KindInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Error is an error tagged with a Kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap tags err with kind. Hints are attached with cockroachdb/errors and can be
// read back with Hints. A nil err returns nil.
func Wrap(kind Kind, err error, hints ...string) error {
	if err == nil {
		return nil
	}
	for _, h := range hints {
		err = errors.WithHint(err, h)
	}
	return &Error{Kind: kind, Err: err}
}

// Config tags err as a configuration error.
func Config(err error, hints ...string) error {
	return Wrap(KindConfig, err, hints...)
}

// Repository tags err as a repository error.
func Repository(err error, hints ...string) error {
	return Wrap(KindRepository, err, hints...)
}

// Provider tags err as a provider error.
func Provider(err error, hints ...string) error {
	return Wrap(KindProvider, err, hints...)
}

// Commit tags err as a commit error.
func Commit(err error, hints ...string) error {
	return Wrap(KindCommit, err, hints...)
}

// KindOf returns the outermost Kind in err's chain. Context cancellation
// anywhere in the chain is reported as KindInterrupted.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, context.Canceled) {
		return KindInterrupted
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Hints returns every hint attached anywhere in err's chain.
func Hints(err error) []string {
	if err == nil {
		return nil
	}
	return errors.GetAllHints(err)
}
