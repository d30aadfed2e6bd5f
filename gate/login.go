package gate

import (
	"html/template"
	"net/http"
	"time"

	"github.com/andrebq/rolegate/credentials/passwd"
	"github.com/andrebq/rolegate/internal/logutil"
	"github.com/andrebq/rolegate/session"
)

type (
	loginPage struct {
		Action    string
		Failed    bool
		LoggedOut bool
	}
)

var (
	loginTemplate = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Please sign in</title></head>
<body>
<form method="post" action="{{.Action}}">
<h2>Please sign in</h2>
{{if .Failed}}<p class="error">Invalid username or password.</p>{{end}}
{{if .LoggedOut}}<p class="info">You have been signed out.</p>{{end}}
<p><label for="username">Username</label> <input type="text" id="username" name="username" autofocus required></p>
<p><label for="password">Password</label> <input type="password" id="password" name="password" required></p>
<button type="submit">Sign in</button>
</form>
</body>
</html>
`))
)

// LoginForm renders the login form.
//
// "?error" shows the generic failure message and "?logout" the signed
// out notice.
func (g *Gate) LoginForm(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	_, failed := q["error"]
	_, loggedOut := q["logout"]
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	err := loginTemplate.Execute(w, loginPage{
		Action:    LoginPath,
		Failed:    failed,
		LoggedOut: loggedOut,
	})
	if err != nil {
		log := logutil.GetOrDefault(r.Context())
		log.Error().Err(err).Msg("Unable to render login form")
	}
}

// Login verifies the posted username and password.
//
// On success a new session replaces any previous one and the caller is
// sent to its landing page. On failure the caller goes back to the form,
// the response never tells whether the username exists.
func (g *Gate) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logutil.GetOrDefault(ctx)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Malformed login form", http.StatusBadRequest)
		return
	}
	username := r.PostForm.Get("username")
	rec, err := g.authenticate(username, passwd.PlainText(r.PostForm.Get("password")))
	if err != nil {
		log.Info().Str("username", username).Msg("Login failed")
		http.Redirect(w, r, LoginPath+"?error", http.StatusFound)
		return
	}
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		if err := g.sessions.Destroy(ctx, c.Value); err != nil {
			log.Warn().Err(err).Str("session", session.Fingerprint(c.Value)).Msg("Unable to destroy previous session")
		}
	}
	s, err := g.sessions.Create(ctx, rec.Identity())
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("Unable to create session")
		http.Error(w, "Unable to complete login, check logs for more information", http.StatusInternalServerError)
		return
	}
	log.Info().Str("username", username).Str("session", session.Fingerprint(s.ID)).Msg("Login succeeded")
	http.SetCookie(w, g.sessionCookie(s.ID))
	http.Redirect(w, r, g.landingFor(rec.Identity()), http.StatusFound)
}

// Logout destroys the current session, if any, and goes back to "/".
func (g *Gate) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logutil.GetOrDefault(ctx)
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		if err := g.sessions.Destroy(ctx, c.Value); err != nil {
			log.Error().Err(err).Str("session", session.Fingerprint(c.Value)).Msg("Unable to destroy session")
			http.Error(w, "Unable to complete logout, check logs for more information", http.StatusInternalServerError)
			return
		}
		log.Info().Str("session", session.Fingerprint(c.Value)).Msg("Logout")
	}
	http.SetCookie(w, g.expiredCookie())
	http.Redirect(w, r, "/", http.StatusFound)
}

func (g *Gate) sessionCookie(value string) *http.Cookie {
	c := &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   !g.insecure,
		SameSite: http.SameSiteLaxMode,
	}
	if g.maxAge > 0 {
		c.MaxAge = int(g.maxAge / time.Second)
	}
	return c
}

func (g *Gate) expiredCookie() *http.Cookie {
	c := g.sessionCookie("")
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	return c
}
