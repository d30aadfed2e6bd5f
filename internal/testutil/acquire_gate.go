package testutil

import (
	"context"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/andrebq/rolegate/credentials"
	"github.com/andrebq/rolegate/credentials/passwd"
	"github.com/andrebq/rolegate/gate"
	"github.com/andrebq/rolegate/policy"
	"github.com/andrebq/rolegate/session"
	"github.com/steinfletcher/apitest"
)

type (
	TestLog interface {
		Fatal(...interface{})
		Log(...interface{})
	}
)

// AcquireGate returns a gate over the development accounts, hashed with
// the fast hasher, and the default policy. tweak may adjust the config
// before the gate is built.
func AcquireGate(ctx context.Context, t TestLog, tweak func(*gate.Config)) (*gate.Gate, func()) {
	hasher := passwd.Fast()
	records, err := credentials.Seed(ctx, hasher)
	if err != nil {
		t.Fatal(err)
	}
	users, err := credentials.NewStore(records...)
	if err != nil {
		t.Fatal(err)
	}
	sessions, err := session.InMemory(time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	cfg := gate.Config{
		Users:          users,
		Hasher:         hasher,
		Policy:         policy.Default(),
		Sessions:       sessions,
		InsecureCookie: true,
	}
	if tweak != nil {
		tweak(&cfg)
	}
	g, err := gate.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return g, func() {
		if c, ok := sessions.(io.Closer); ok {
			if err := c.Close(); err != nil {
				t.Log("unable to close session store", err)
			}
		}
	}
}

// Login posts the login form and returns the session cookie, it fails
// the test when no cookie is issued.
func Login(t apitest.TestingT, handler http.Handler, username, password string) *http.Cookie {
	res := apitest.Handler(handler).
		Post(gate.LoginPath).
		FormData("username", username).
		FormData("password", password).
		Expect(t).
		Status(http.StatusFound).
		CookiePresent(gate.CookieName).
		End()
	for _, c := range res.Response.Cookies() {
		if c.Name == gate.CookieName {
			return c
		}
	}
	t.Fatal("session cookie missing from login response")
	return nil
}

// AcquireUsersDatabase stores records in a fresh SQLite users database.
func AcquireUsersDatabase(ctx context.Context, t TestLog, records ...credentials.Record) (string, func()) {
	dir, err := ioutil.TempDir("", "rolegate-tests")
	if err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(dir, "users.db")
	for _, r := range records {
		if err := credentials.AddToDatabase(ctx, file, r); err != nil {
			t.Fatal(err)
		}
	}
	return file, func() {
		err := os.RemoveAll(dir)
		if err != nil {
			t.Log("unable to cleanup temp dir", dir)
		}
	}
}
