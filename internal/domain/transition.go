package domain

import (
	"slices"
	"strings"
)

// TransitionTable is the directed graph of legal task state changes.
// There are no implicit reverse edges; terminal states have none.
var TransitionTable = map[TaskState]map[TaskState]struct{}{ //nolint:gochecknoglobals // static lookup table
	TaskStateBacklog: {
		TaskStateInAnalysis: {},
		TaskStateCancelled:  {},
	},
	TaskStateInAnalysis: {
		TaskStateBacklog:    {},
		TaskStateInProgress: {},
		TaskStateBlocked:    {},
		TaskStateCancelled:  {},
	},
	TaskStateInProgress: {
		TaskStateInAnalysis: {},
		TaskStateCompleted:  {},
		TaskStateBlocked:    {},
		TaskStateCancelled:  {},
	},
	TaskStateBlocked: {
		TaskStateInAnalysis: {},
		TaskStateInProgress: {},
		TaskStateCancelled:  {},
	},
	TaskStateCompleted: {},
	TaskStateCancelled: {},
}

// HasEdge reports whether from -> to is listed in TransitionTable.
func HasEdge(from, to TaskState) bool {
	_, ok := TransitionTable[from][to]
	return ok
}

// AllowedTransitions returns the states reachable from the given state in
// canonical order.
func AllowedTransitions(from TaskState) []TaskState {
	edges := TransitionTable[from]
	out := make([]TaskState, 0, len(edges))
	for _, s := range ValidTaskStates {
		if _, ok := edges[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// RequiresReason reports whether entering the state needs a justification.
func (s TaskState) RequiresReason() bool {
	return s == TaskStateBlocked || s == TaskStateCancelled
}

// IsTerminal reports whether no further transition is allowed out of s.
func (s TaskState) IsTerminal() bool {
	return s == TaskStateCompleted || s == TaskStateCancelled
}

// ValidateTransition checks a requested state change.
// Rules are applied in order: same state is accepted as-is, then the reason
// requirement, then terminal immutability, then the edge lookup.
func ValidateTransition(current, next TaskState, reason string) error {
	if !slices.Contains(ValidTaskStates, current) || !slices.Contains(ValidTaskStates, next) {
		return ErrValidation
	}
	if current == next {
		return nil
	}
	if next.RequiresReason() && strings.TrimSpace(reason) == "" {
		return ErrMissingReason
	}
	if current.IsTerminal() {
		return ErrImmutableState
	}
	if !HasEdge(current, next) {
		return ErrInvalidTransition
	}
	return nil
}
