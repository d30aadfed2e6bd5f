package site

import (
	"context"
	"net/http"
	"testing"

	"github.com/andrebq/rolegate/gate"
	"github.com/andrebq/rolegate/internal/testutil"
	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
)

func TestPublicPages(t *testing.T) {
	ctx := context.Background()
	g, cleanup := testutil.AcquireGate(ctx, t, nil)
	defer cleanup()
	handler := AsHandler(g)

	apitest.Handler(handler).Get("/").Expect(t).Status(http.StatusOK).Body(HomeMessage).End()
	apitest.Handler(handler).Get("/login").Expect(t).Status(http.StatusOK).End()
	apitest.Handler(handler).Get("/healthz").Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.status", "ok")).
		End()
	apitest.Handler(handler).Get("/whoami").Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.authenticated", false)).
		Assert(jsonpath.Equal("$.username", "")).
		Assert(jsonpath.Len("$.roles", 0)).
		End()
}

func TestAnonymousRedirectedToLogin(t *testing.T) {
	ctx := context.Background()
	g, cleanup := testutil.AcquireGate(ctx, t, nil)
	defer cleanup()
	handler := AsHandler(g)

	for _, path := range []string{"/admin", "/user", "/admin/"} {
		apitest.Handler(handler).Get(path).Expect(t).
			Status(http.StatusFound).
			Header("Location", gate.LoginPath).
			End()
	}
}

func TestAdmin(t *testing.T) {
	ctx := context.Background()
	g, cleanup := testutil.AcquireGate(ctx, t, nil)
	defer cleanup()
	handler := AsHandler(g)

	cookie := testutil.Login(t, handler, "admin", "password")
	apitest.Handler(handler).Get("/admin").Cookie(cookie.Name, cookie.Value).Expect(t).
		Status(http.StatusOK).Body(AdminMessage).End()
	apitest.Handler(handler).Get("/user").Cookie(cookie.Name, cookie.Value).Expect(t).
		Status(http.StatusForbidden).End()
	apitest.Handler(handler).Get("/whoami").Cookie(cookie.Name, cookie.Value).Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.username", "admin")).
		Assert(jsonpath.Contains("$.roles", "ADMIN")).
		Assert(jsonpath.Equal("$.authenticated", true)).
		End()
}

func TestUser(t *testing.T) {
	ctx := context.Background()
	g, cleanup := testutil.AcquireGate(ctx, t, nil)
	defer cleanup()
	handler := AsHandler(g)

	cookie := testutil.Login(t, handler, "user", "1234")
	apitest.Handler(handler).Get("/user").Cookie(cookie.Name, cookie.Value).Expect(t).
		Status(http.StatusOK).Body(UserMessage).End()
	apitest.Handler(handler).Get("/admin").Cookie(cookie.Name, cookie.Value).Expect(t).
		Status(http.StatusForbidden).End()

	apitest.Handler(handler).Post("/logout").Cookie(cookie.Name, cookie.Value).Expect(t).
		Status(http.StatusFound).Header("Location", "/").End()
	apitest.Handler(handler).Get("/user").Cookie(cookie.Name, cookie.Value).Expect(t).
		Status(http.StatusFound).Header("Location", gate.LoginPath).End()
}

func TestLogoutRequiresPost(t *testing.T) {
	ctx := context.Background()
	g, cleanup := testutil.AcquireGate(ctx, t, nil)
	defer cleanup()
	handler := AsHandler(g)

	apitest.Handler(handler).Get("/logout").Expect(t).Status(http.StatusMethodNotAllowed).End()
}
