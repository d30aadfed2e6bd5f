// Package credentials keeps the fixed set of accounts allowed to log in.
//
// A Store is built once at startup and never mutated afterwards, so it
// can be shared by every request goroutine without locking.
package credentials

import (
	"sort"

	"github.com/andrebq/rolegate/identity"
)

type (
	Record struct {
		Username     string
		PasswordHash string
		Roles        []identity.Role
	}

	Store struct {
		users map[string]Record
	}
)

// NewStore indexes records by username.
//
// An empty list, a duplicated or empty username, and a record without
// password hash are all rejected with a ConfigurationError.
func NewStore(records ...Record) (*Store, error) {
	if len(records) == 0 {
		return nil, ConfigurationError{Reason: "no users configured"}
	}
	s := &Store{users: make(map[string]Record, len(records))}
	for _, r := range records {
		switch {
		case r.Username == "":
			return nil, ConfigurationError{Reason: "empty username"}
		case r.PasswordHash == "":
			return nil, ConfigurationError{Username: r.Username, Reason: "missing password hash"}
		}
		if _, dup := s.users[r.Username]; dup {
			return nil, ConfigurationError{Username: r.Username, Reason: "duplicated username"}
		}
		r.Roles = append([]identity.Role(nil), r.Roles...)
		s.users[r.Username] = r
	}
	return s, nil
}

func (s *Store) Lookup(username string) (Record, error) {
	r, ok := s.users[username]
	if !ok {
		return Record{}, UserNotFound{Username: username}
	}
	return r, nil
}

// Roles lists, in sorted order, every role held by at least one user
func (s *Store) Roles() []identity.Role {
	seen := map[identity.Role]struct{}{}
	for _, u := range s.users {
		for _, r := range u.Roles {
			seen[r] = struct{}{}
		}
	}
	out := make([]identity.Role, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SampleDigest returns the password hash of the first username in
// sorted order. Verifying against it costs the same as verifying a real
// login, whatever the digest family of the store.
func (s *Store) SampleDigest() string {
	var first string
	for name := range s.users {
		if first == "" || name < first {
			first = name
		}
	}
	return s.users[first].PasswordHash
}

func (s *Store) Len() int {
	return len(s.users)
}

// Identity returns the identity a logged in record assumes.
func (r Record) Identity() identity.Identity {
	return identity.Identity{
		Username: r.Username,
		Roles:    append([]identity.Role(nil), r.Roles...),
	}
}
