package auth

import (
	"context"
	"strings"
)

// Role is a capability granted to a caller. Tokens carry roles as a CSV
// claim (optionally with a ROLE_ prefix); they are parsed exactly once at
// the authentication boundary into a typed set.
type Role string

const (
	RoleAttendee  Role = "ATTENDEE"
	RoleAdmin     Role = "ADMIN"
	RoleOrganizer Role = "ORGANIZER"
)

// RoleSet is the parsed set of roles on a principal.
type RoleSet map[Role]struct{}

// ParseRoles parses a CSV roles claim into a RoleSet. Entries are
// case-insensitive and a leading ROLE_ prefix is stripped.
func ParseRoles(csv string) RoleSet {
	set := make(RoleSet)
	for _, part := range strings.Split(csv, ",") {
		name := strings.ToUpper(strings.TrimSpace(part))
		name = strings.TrimPrefix(name, "ROLE_")
		if name == "" {
			continue
		}
		set[Role(name)] = struct{}{}
	}
	return set
}

// Principal is the authenticated caller, decided once by the transport
// middleware and passed by value into services.
type Principal struct {
	Subject string
	Roles   RoleSet
}

func (p Principal) Has(role Role) bool {
	_, ok := p.Roles[role]
	return ok
}

func (p Principal) IsAdmin() bool {
	return p.Has(RoleAdmin)
}

// CanActFor reports whether the principal may act on resources owned by the
// given attendee: either it is that attendee or it is an administrator.
func (p Principal) CanActFor(attendeeID string) bool {
	return p.IsAdmin() || (p.Subject != "" && p.Subject == attendeeID)
}

type principalKey struct{}

// WithPrincipal stores the principal in the request context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal set by the authentication middleware.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
