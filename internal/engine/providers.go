package engine

// Operation names a mutating statement class for authorization checks.
type Operation string

// Operations subject to authorization. Reads are never authorized.
const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
	OpAssign Operation = "assign"
	OpClose  Operation = "close"
	OpReopen Operation = "reopen"
)

// IdentityProvider supplies the acting identity for a statement. The
// identity becomes the default owner, assignee, and comment author.
type IdentityProvider interface {
	CurrentIdentity() string
}

// AuthorizationProvider decides whether an identity may perform a write.
// Authorize runs before validation; a non-nil error aborts the statement
// with zero observable mutation.
type AuthorizationProvider interface {
	Authorize(identity string, op Operation, target string) error
}

// StaticIdentity is an IdentityProvider that always reports the same
// username. The zero value reports the empty identity.
type StaticIdentity string

func (s StaticIdentity) CurrentIdentity() string {
	return string(s)
}

// AllowAll is an AuthorizationProvider that permits every operation.
type AllowAll struct{}

func (AllowAll) Authorize(string, Operation, string) error {
	return nil
}
