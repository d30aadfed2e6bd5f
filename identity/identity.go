// Package identity holds the request-scoped view of who is calling.
//
// An Identity is resolved once per request by the gate and threaded
// through the request context; handlers never consult a global.
package identity

import (
	"context"
	"strings"
)

type (
	Role string

	// Identity is the caller of a request. The zero value is the anonymous caller.
	Identity struct {
		Username string
		Roles    []Role
	}

	key byte
)

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

var (
	identityKey = key(1)

	Anonymous = Identity{}
)

// ParseRoles splits a role list separated by '|' or ','.
// Blank entries are dropped and roles are upper-cased.
func ParseRoles(s string) []Role {
	var out []Role
	for _, v := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		v = strings.ToUpper(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		out = append(out, Role(v))
	}
	return out
}

// JoinRoles is the inverse of ParseRoles
func JoinRoles(roles []Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, "|")
}

func (i Identity) Authenticated() bool {
	return i.Username != ""
}

func (i Identity) Has(role Role) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (i Identity) String() string {
	if !i.Authenticated() {
		return "anonymous"
	}
	return i.Username
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the identity attached to ctx, or Anonymous when
// the request never passed through the gate.
func FromContext(ctx context.Context) Identity {
	v, ok := ctx.Value(identityKey).(Identity)
	if !ok {
		return Anonymous
	}
	return v
}
