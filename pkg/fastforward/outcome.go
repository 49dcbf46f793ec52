package fastforward

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
)

// Outcome is what happened to one branch during a sync.
type Outcome int

const (
	// Created means the branch did not exist locally and now points at the target.
	Created Outcome = iota
	// Identical means the branch already pointed at the target.
	Identical
	// RemoteIsAncestor means the target is already part of the local history.
	RemoteIsAncestor
	// FastForwarded means the branch was moved forward to the target.
	FastForwarded
	// Diverged means neither side contains the other and the branch was left alone.
	Diverged
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "Created"
	case Identical:
		return "Identical"
	case RemoteIsAncestor:
		return "RemoteIsAncestor"
	case FastForwarded:
		return "FastForwarded"
	case Diverged:
		return "Diverged"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// OK is false only for Diverged.
func (o Outcome) OK() bool {
	return o != Diverged
}

// Result is the outcome for one branch, together with where it pointed
// before and after.
type Result struct {
	Ref     plumbing.ReferenceName
	Outcome Outcome
	// Old is the zero hash when the branch was created.
	Old plumbing.Hash
	New plumbing.Hash
}

// Message is the human readable summary of the result.
func (r *Result) Message() string {
	switch r.Outcome {
	case Created:
		return "Created new branch: " + r.Ref.String()
	case Identical:
		return "Source and target are identical."
	case RemoteIsAncestor:
		return "No new changes found."
	case FastForwarded:
		return "Fast-forwarded branch: " + r.Ref.String()
	case Diverged:
		return "Branch will diverge."
	}
	return r.Outcome.String()
}

func (r *Result) String() string {
	return fmt.Sprintf("%s: %s", r.Ref, r.Message())
}
