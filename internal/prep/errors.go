package prep

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a data-integrity problem found while preparing.
type Kind string

const (
	MissingSnapshot  Kind = "missing_snapshot"
	UnknownFIPS      Kind = "unknown_fips"
	UnknownStateName Kind = "unknown_state_name"
	DroppedState     Kind = "dropped_state"
	TiedVote         Kind = "tied_vote"
	ZeroVotes        Kind = "zero_votes"
)

// IntegrityError describes input data that could be worked around. The
// dashboard shows these as warnings; partial results are still rendered.
type IntegrityError struct {
	Kind   Kind     `json:"kind"`
	Keys   []string `json:"keys,omitempty"`
	Detail string   `json:"detail"`
}

func (e *IntegrityError) Error() string {
	if len(e.Keys) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("%s: %s [%s]", e.Kind, e.Detail, strings.Join(e.Keys, ", "))
}

// Warnings collects integrity problems in the order they were found.
type Warnings []*IntegrityError

func (w *Warnings) add(kind Kind, detail string, keys ...string) {
	*w = append(*w, &IntegrityError{Kind: kind, Keys: keys, Detail: detail})
}

// Err joins all warnings into a single error, or nil when there are none.
func (w Warnings) Err() error {
	if len(w) == 0 {
		return nil
	}
	errs := make([]error, len(w))
	for i, e := range w {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Has reports whether a warning of the given kind was recorded.
func (w Warnings) Has(kind Kind) bool {
	return w.Find(kind) != nil
}

// Find returns the first warning of the given kind.
func (w Warnings) Find(kind Kind) *IntegrityError {
	for _, e := range w {
		if e.Kind == kind {
			return e
		}
	}
	return nil
}
