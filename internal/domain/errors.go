package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a business failure. Callers branch on Kind, never on the
// message text.
type Kind string

const (
	KindNotFound              Kind = "not_found"
	KindConflict              Kind = "conflict"
	KindInvalidTransition     Kind = "invalid_transition"
	KindInvalidState          Kind = "invalid_state"
	KindInvalidInput          Kind = "invalid_input"
	KindOperationNotPermitted Kind = "operation_not_permitted"
)

// Error is the typed failure returned by every business rule.
type Error struct {
	Kind    Kind
	Message string
	// CurrentVersion is set for KindConflict so clients can retry.
	CurrentVersion int64
	Details        map[string]any
}

func (e *Error) Error() string {
	return e.Message
}

func NotFound(entity, id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s %s not found", entity, id),
		Details: map[string]any{"entity": entity, "id": id},
	}
}

func Conflict(entity string, current int64) *Error {
	return &Error{
		Kind:           KindConflict,
		Message:        fmt.Sprintf("%s modified by another writer; reload and retry", entity),
		CurrentVersion: current,
		Details:        map[string]any{"current_version": current},
	}
}

func InvalidTransition(from, to TaskStatus) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("illegal task status transition %s -> %s", from, to),
		Details: map[string]any{"from": string(from), "to": string(to)},
	}
}

func InvalidState(msg string) *Error {
	return &Error{Kind: KindInvalidState, Message: msg}
}

func InvalidInput(msg string) *Error {
	return &Error{Kind: KindInvalidInput, Message: msg}
}

func NotPermitted(msg string) *Error {
	return &Error{Kind: KindOperationNotPermitted, Message: msg}
}

// KindOf returns the Kind carried by err, or "" for untyped failures.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
