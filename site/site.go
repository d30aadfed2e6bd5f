// Package site holds the application pages served behind the gate.
package site

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/andrebq/rolegate/gate"
	"github.com/andrebq/rolegate/identity"
	"github.com/andrebq/rolegate/internal/logutil"
	"github.com/julienschmidt/httprouter"
)

type (
	whoami struct {
		Username      string   `json:"username"`
		Roles         []string `json:"roles"`
		Authenticated bool     `json:"authenticated"`
	}
)

const (
	HomeMessage  = "Welcome to the Spring Security presentation :))"
	UserMessage  = "Welcome, authenticated user!"
	AdminMessage = "Welcome, administrator!"
)

// AsHandler returns the site routes wrapped by g.
func AsHandler(g *gate.Gate) http.Handler {
	router := httprouter.New()
	router.HandlerFunc("GET", "/", staticText(HomeMessage))
	router.HandlerFunc("GET", "/user", staticText(UserMessage))
	router.HandlerFunc("GET", "/admin", staticText(AdminMessage))
	router.HandlerFunc("GET", "/whoami", whoamiHandler)
	router.HandlerFunc("GET", "/healthz", healthz)

	router.HandlerFunc("GET", gate.LoginPath, g.LoginForm)
	router.HandlerFunc("POST", gate.LoginPath, g.Login)
	router.HandlerFunc("POST", gate.LogoutPath, g.Logout)

	return g.Protect(router)
}

func staticText(msg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, msg)
	}
}

func whoamiHandler(w http.ResponseWriter, r *http.Request) {
	id := identity.FromContext(r.Context())
	out := whoami{
		Username:      id.Username,
		Roles:         make([]string, 0, len(id.Roles)),
		Authenticated: id.Authenticated(),
	}
	for _, role := range id.Roles {
		out.Roles = append(out.Roles, string(role))
	}
	writeJSON(w, r, out)
}

func healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, r *http.Request, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log := logutil.GetOrDefault(r.Context())
		log.Warn().Err(err).Msg("Unable to write response")
	}
}
