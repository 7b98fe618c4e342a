// Package lifecycle evaluates status transition tables.
package lifecycle

import (
	"fmt"
	"strings"
)

// Rule lists the states an operation may start from and the state it produces.
type Rule[S ~string] struct {
	From []S
	To   S
}

// Machine is an immutable transition table. It is safe for concurrent use.
type Machine[S ~string, O ~string] struct {
	resource string
	initial  S
	rules    map[O]Rule[S]
}

// RejectedError reports an operation that the table does not allow from the current state.
type RejectedError[S ~string, O ~string] struct {
	Resource  string
	Operation O
	Current   S
}

func (e *RejectedError[S, O]) Error() string {
	return fmt.Sprintf("cannot %s %s in status %s", e.Operation, e.Resource, strings.ToLower(string(e.Current)))
}

// UnknownOperationError reports an operation that has no rule at all.
type UnknownOperationError[O ~string] struct {
	Resource  string
	Operation O
}

func (e *UnknownOperationError[O]) Error() string {
	return fmt.Sprintf("unsupported %s operation: %s", e.Resource, e.Operation)
}

// NewMachine copies rules so later edits by the caller cannot change the table.
func NewMachine[S ~string, O ~string](resource string, initial S, rules map[O]Rule[S]) *Machine[S, O] {
	copied := make(map[O]Rule[S], len(rules))
	for op, r := range rules {
		copied[op] = Rule[S]{From: append([]S(nil), r.From...), To: r.To}
	}
	return &Machine[S, O]{resource: resource, initial: initial, rules: copied}
}

// Initial is the state every new record starts in.
func (m *Machine[S, O]) Initial() S {
	return m.initial
}

// Next returns the state produced by applying op to current.
func (m *Machine[S, O]) Next(current S, op O) (S, error) {
	rule, ok := m.rules[op]
	if !ok {
		var zero S
		return zero, &UnknownOperationError[O]{Resource: m.resource, Operation: op}
	}
	for _, from := range rule.From {
		if from == current {
			return rule.To, nil
		}
	}
	var zero S
	return zero, &RejectedError[S, O]{Resource: m.resource, Operation: op, Current: current}
}

// Supports reports whether op has a rule.
func (m *Machine[S, O]) Supports(op O) bool {
	_, ok := m.rules[op]
	return ok
}
