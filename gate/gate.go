// Package gate authenticates and authorizes requests before they reach
// the application handlers.
//
// The caller identity is resolved from the session cookie (or, when
// enabled, from HTTP Basic credentials), attached to the request context
// and checked against the access policy:
//
//   - allowed requests are forwarded;
//   - anonymous callers hitting a guarded path are sent to the login form;
//   - logged in callers lacking the required role get 403.
package gate

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/andrebq/rolegate/credentials"
	"github.com/andrebq/rolegate/credentials/passwd"
	"github.com/andrebq/rolegate/identity"
	"github.com/andrebq/rolegate/internal/logutil"
	"github.com/andrebq/rolegate/policy"
	"github.com/andrebq/rolegate/session"
	"github.com/rs/zerolog"
)

type (
	// LandingPage maps a role to the page a user holding it lands on after login
	LandingPage struct {
		Role identity.Role
		Path string
	}

	Config struct {
		Users    *credentials.Store
		Hasher   passwd.Hasher
		Policy   *policy.Policy
		Sessions session.Store

		// Landing is checked in order, callers without any listed role
		// land on "/".
		Landing []LandingPage

		// CookieMaxAge of zero issues a browser-session cookie
		CookieMaxAge time.Duration

		// InsecureCookie drops the Secure flag, only for plain HTTP development
		InsecureCookie bool

		// AllowBasic accepts HTTP Basic credentials on every request
		AllowBasic bool
	}

	Gate struct {
		users     *credentials.Store
		hasher    passwd.Hasher
		policy    *policy.Policy
		sessions  session.Store
		landing   []LandingPage
		maxAge    time.Duration
		insecure  bool
		basic     bool
		dummyHash string
	}
)

const (
	CookieName = "rolegate_session"
	LoginPath  = "/login"
	LogoutPath = "/logout"

	basicRealm   = `Basic realm="rolegate", charset="UTF-8"`
	sessionRealm = `Session realm="rolegate", login="` + LoginPath + `"`
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")

	DefaultLanding = []LandingPage{
		{Role: identity.RoleAdmin, Path: "/admin"},
		{Role: identity.RoleUser, Path: "/user"},
	}
)

// New validates cfg. A missing policy or user store is a configuration
// error, the gate never runs with undefined authorization rules.
func New(cfg Config) (*Gate, error) {
	switch {
	case cfg.Policy == nil:
		return nil, policy.ConfigurationError{Rule: -1, Reason: "missing access policy"}
	case cfg.Users == nil:
		return nil, credentials.ConfigurationError{Reason: "missing credential store"}
	case cfg.Hasher == nil:
		return nil, errors.New("gate: missing password hasher")
	case cfg.Sessions == nil:
		return nil, errors.New("gate: missing session store")
	}
	if cfg.Landing == nil {
		cfg.Landing = DefaultLanding
	}
	// unknown users are verified against a stored digest, so a failed
	// login runs the same algorithm and cost whether the username exists or not
	dummy := cfg.Users.SampleDigest()
	return &Gate{
		users:     cfg.Users,
		hasher:    cfg.Hasher,
		policy:    cfg.Policy,
		sessions:  cfg.Sessions,
		landing:   append([]LandingPage(nil), cfg.Landing...),
		maxAge:    cfg.CookieMaxAge,
		insecure:  cfg.InsecureCookie,
		basic:     cfg.AllowBasic,
		dummyHash: dummy,
	}, nil
}

// Protect wraps next with identity resolution and policy checks.
func (g *Gate) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logutil.GetOrDefault(ctx)

		id, triedBasic, err := g.resolve(r)
		if id.Authenticated() {
			zerolog.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("user", id.Username)
			})
			log = log.With().Str("user", id.Username).Logger()
			ctx = logutil.WithLogger(ctx, log)
		}
		if errors.Is(err, ErrInvalidCredentials) {
			log.Info().Str("path", r.URL.Path).Msg("Rejected basic credentials")
			g.unauthorized(w)
			return
		}

		decision := g.policy.Evaluate(r.URL.Path, id)
		switch decision {
		case policy.Allow:
			next.ServeHTTP(w, r.WithContext(identity.WithIdentity(ctx, id)))
		case policy.RequireAuth:
			log.Debug().Str("path", r.URL.Path).Msg("Authentication required")
			if triedBasic || wantsJSON(r) {
				g.unauthorized(w)
				return
			}
			http.Redirect(w, r, LoginPath, http.StatusFound)
		default:
			log.Info().Str("path", r.URL.Path).Msg("Access denied")
			http.Error(w, "Forbidden", http.StatusForbidden)
		}
	})
}

// resolve returns the caller identity. A stale or unknown session
// resolves to the anonymous caller, only bad Basic credentials are an error.
func (g *Gate) resolve(r *http.Request) (identity.Identity, bool, error) {
	ctx := r.Context()
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		s, err := g.sessions.Lookup(ctx, c.Value)
		switch {
		case err == nil:
			return s.Identity(), false, nil
		case !errors.Is(err, session.ErrNotFound):
			log := logutil.GetOrDefault(ctx)
			log.Error().Err(err).Str("session", session.Fingerprint(c.Value)).Msg("Unable to read session")
		}
	}
	if !g.basic {
		return identity.Anonymous, false, nil
	}
	username, password, ok := r.BasicAuth()
	if !ok {
		return identity.Anonymous, false, nil
	}
	rec, err := g.authenticate(username, passwd.PlainText(password))
	if err != nil {
		return identity.Anonymous, true, err
	}
	return rec.Identity(), true, nil
}

// authenticate checks username and password. Every failure returns
// ErrInvalidCredentials and runs one hash verification.
func (g *Gate) authenticate(username string, password passwd.PlainText) (credentials.Record, error) {
	defer password.Zero()
	rec, err := g.users.Lookup(username)
	if err != nil {
		g.hasher.Verify(password, g.dummyHash)
		return credentials.Record{}, ErrInvalidCredentials
	}
	if !g.hasher.Verify(password, rec.PasswordHash) {
		return credentials.Record{}, ErrInvalidCredentials
	}
	return rec, nil
}

func (g *Gate) unauthorized(w http.ResponseWriter) {
	if g.basic {
		w.Header().Set("WWW-Authenticate", basicRealm)
	} else {
		w.Header().Set("WWW-Authenticate", sessionRealm)
	}
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

func (g *Gate) landingFor(id identity.Identity) string {
	for _, l := range g.landing {
		if id.Has(l.Role) {
			return l.Path
		}
	}
	return "/"
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
