package es

import (
	"errors"
	"fmt"

	"github.com/erikshafer/crittersupply/libs/eventstore"
)

// ErrNotFound is returned when a referenced aggregate has no events.
var ErrNotFound = errors.New("aggregate not found")

// Rejection is a business rule violation: the command's preconditions do
// not hold against the aggregate's current state. Rejections are terminal
// and never retried.
type Rejection struct {
	Command string
	Reason  string
}

func (r Rejection) Error() string {
	return fmt.Sprintf("%s rejected: %s", r.Command, r.Reason)
}

func Reject(command, reason string) error {
	return Rejection{Command: command, Reason: reason}
}

func IsRejection(err error) bool {
	var rej Rejection
	return errors.As(err, &rej)
}

// ExternalFailure wraps an error from a collaborator outside the
// boundary (payment gateway, broker, query service). Retriable mirrors
// the collaborator's own signal: a declined card is final even though it
// originated externally, an unreachable gateway is not.
type ExternalFailure struct {
	Dependency string
	Retriable  bool
	Err        error
}

func (e ExternalFailure) Error() string {
	return fmt.Sprintf("%s failure: %v", e.Dependency, e.Err)
}

func (e ExternalFailure) Unwrap() error { return e.Err }

func External(dependency string, err error, retriable bool) error {
	return ExternalFailure{Dependency: dependency, Retriable: retriable, Err: err}
}

// IsTransient reports whether the retry policy may reattempt after err.
// Concurrency conflicts and retriable external failures qualify;
// rejections and not-found never do.
func IsTransient(err error) bool {
	if errors.Is(err, eventstore.ErrConcurrencyConflict) {
		return true
	}
	var ext ExternalFailure
	if errors.As(err, &ext) {
		return ext.Retriable
	}
	return false
}
