package engine

import (
	"errors"
	"fmt"
)

// ValidationKind classifies why a statement failed validation.
type ValidationKind int

// Validation failure kinds.
const (
	MissingField ValidationKind = iota
	UnknownReference
	IllegalEnumValue
	DuplicateKey
)

// ValidationError reports a statement that failed validation against the
// current store contents. A statement failing validation performs no
// writes.
type ValidationError struct {
	Kind   ValidationKind
	Entity string // entity family the failure concerns
	Field  string // offending field, when applicable
	Ref    string // offending key or value
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case MissingField:
		return fmt.Sprintf("validation: %s requires %s", e.Entity, e.Field)
	case UnknownReference:
		return fmt.Sprintf("validation: unknown %s %q", e.Entity, e.Ref)
	case IllegalEnumValue:
		return fmt.Sprintf("validation: illegal %s %s value %q", e.Entity, e.Field, e.Ref)
	case DuplicateKey:
		return fmt.Sprintf("validation: %s %q already exists", e.Entity, e.Ref)
	}
	return fmt.Sprintf("validation: %s %s", e.Entity, e.Field)
}

// AuthorizationError reports a write rejected by the authorization
// provider.
type AuthorizationError struct {
	Identity string
	Op       Operation
	Target   string
	Err      error
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization: %s may not %s %s", e.Identity, e.Op, e.Target)
}

func (e *AuthorizationError) Unwrap() error {
	return e.Err
}

var (
	// ErrAlreadyClosed reports CLOSE on an issue that is already closed.
	ErrAlreadyClosed = errors.New("issue is already closed")
	// ErrDefaultUserDelete reports an attempt to delete the seeded
	// default user.
	ErrDefaultUserDelete = errors.New("the default user cannot be deleted")
)

func unknownRef(entity, ref string) error {
	return &ValidationError{Kind: UnknownReference, Entity: entity, Ref: ref}
}

func duplicateKey(entity, ref string) error {
	return &ValidationError{Kind: DuplicateKey, Entity: entity, Ref: ref}
}

func missingField(entity, field string) error {
	return &ValidationError{Kind: MissingField, Entity: entity, Field: field}
}

func illegalEnum(entity, field, value string) error {
	return &ValidationError{Kind: IllegalEnumValue, Entity: entity, Field: field, Ref: value}
}
