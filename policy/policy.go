// Package policy decides which callers may reach which paths.
//
// A Policy is an ordered list of rules. Rules are evaluated top to
// bottom and the first rule matching the request path decides; when no
// rule matches the request is allowed.
package policy

import (
	"fmt"
	"path"
	"strings"

	"github.com/andrebq/rolegate/identity"
)

type (
	Decision int

	// Rule guards a single path.
	//
	// A Role restricts the path to callers holding that role; with
	// Authenticated any logged in caller is accepted. A rule with neither
	// explicitly permits everyone, which is useful to shadow later rules.
	Rule struct {
		Path          string        `yaml:"path"`
		Role          identity.Role `yaml:"role"`
		Authenticated bool          `yaml:"authenticated"`
	}

	Policy struct {
		rules []Rule
	}
)

const (
	Allow Decision = iota
	Deny
	RequireAuth
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	case RequireAuth:
		return "require-auth"
	}
	return fmt.Sprintf("decision(%d)", int(d))
}

// Default returns the stock policy: /admin for ADMIN, /user for USER,
// everything else public.
func Default() *Policy {
	p, _ := New(
		Rule{Path: "/admin", Role: identity.RoleAdmin},
		Rule{Path: "/user", Role: identity.RoleUser},
	)
	return p
}

// New validates and copies rules, their order is kept.
func New(rules ...Rule) (*Policy, error) {
	p := &Policy{rules: make([]Rule, 0, len(rules))}
	for i, r := range rules {
		if r.Path == "" || !strings.HasPrefix(r.Path, "/") {
			return nil, ConfigurationError{Rule: i, Reason: fmt.Sprintf("path %q must be absolute", r.Path)}
		}
		r.Path = cleanPath(r.Path)
		r.Role = identity.Role(strings.ToUpper(strings.TrimSpace(string(r.Role))))
		p.rules = append(p.rules, r)
	}
	return p, nil
}

// Rules returns a copy of the rules in evaluation order
func (p *Policy) Rules() []Rule {
	return append([]Rule(nil), p.rules...)
}

// Match returns the first rule guarding reqPath.
func (p *Policy) Match(reqPath string) (Rule, bool) {
	reqPath = cleanPath(reqPath)
	for _, r := range p.rules {
		if r.Path == reqPath {
			return r, true
		}
	}
	return Rule{}, false
}

// Evaluate decides whether id may reach reqPath.
//
// Anonymous callers hitting a guarded path get RequireAuth, logged in
// callers lacking the role get Deny.
func (p *Policy) Evaluate(reqPath string, id identity.Identity) Decision {
	r, ok := p.Match(reqPath)
	if !ok {
		return Allow
	}
	return r.decide(id)
}

func (r Rule) decide(id identity.Identity) Decision {
	if r.Role == "" && !r.Authenticated {
		return Allow
	}
	if !id.Authenticated() {
		return RequireAuth
	}
	if r.Role != "" && !id.Has(r.Role) {
		return Deny
	}
	return Allow
}

func (r Rule) String() string {
	switch {
	case r.Role != "":
		return fmt.Sprintf("%v -> role %v", r.Path, r.Role)
	case r.Authenticated:
		return fmt.Sprintf("%v -> authenticated", r.Path)
	}
	return fmt.Sprintf("%v -> permit", r.Path)
}

// UnknownRoles lists the roles required by some rule but absent from held.
func (p *Policy) UnknownRoles(held []identity.Role) []identity.Role {
	known := map[identity.Role]struct{}{}
	for _, r := range held {
		known[r] = struct{}{}
	}
	var out []identity.Role
	for _, r := range p.rules {
		if r.Role == "" {
			continue
		}
		if _, ok := known[r.Role]; !ok {
			known[r.Role] = struct{}{}
			out = append(out, r.Role)
		}
	}
	return out
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
