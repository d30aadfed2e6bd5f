package serve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/andrebq/rolegate/credentials"
	"github.com/andrebq/rolegate/credentials/passwd"
	"github.com/andrebq/rolegate/gate"
	"github.com/andrebq/rolegate/internal/cmdflags"
	"github.com/andrebq/rolegate/internal/httpserver"
	"github.com/andrebq/rolegate/internal/logutil"
	"github.com/andrebq/rolegate/policy"
	"github.com/andrebq/rolegate/session"
	"github.com/andrebq/rolegate/site"
	"github.com/urfave/cli/v2"
)

type (
	options struct {
		usersFile      string
		usersDB        string
		policyFile     string
		hasher         string
		sessionTTL     time.Duration
		insecureCookie bool
		basicAuth      bool
	}
)

func Cmd() *cli.Command {
	bindAddr := "localhost:8080"
	opts := options{
		sessionTTL: 30 * time.Minute,
	}
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "bind",
				Usage:       "Address to bind for incoming requests",
				EnvVars:     []string{"ROLEGATE_BIND"},
				Value:       bindAddr,
				Destination: &bindAddr,
			},
			cmdflags.UsersFile(&opts.usersFile),
			cmdflags.UsersDB(&opts.usersDB),
			cmdflags.PolicyFile(&opts.policyFile),
			cmdflags.Hasher(&opts.hasher),
			&cli.DurationFlag{
				Name:        "session-ttl",
				Usage:       "How long a login lasts",
				EnvVars:     []string{"ROLEGATE_SESSION_TTL"},
				Value:       opts.sessionTTL,
				Destination: &opts.sessionTTL,
			},
			&cli.BoolFlag{
				Name:        "insecure-cookie",
				Usage:       "Allow the session cookie over plain HTTP (development only)",
				EnvVars:     []string{"ROLEGATE_INSECURE_COOKIE"},
				Destination: &opts.insecureCookie,
			},
			&cli.BoolFlag{
				Name:        "basic-auth",
				Usage:       "Accept HTTP Basic credentials besides the login form",
				EnvVars:     []string{"ROLEGATE_BASIC_AUTH"},
				Destination: &opts.basicAuth,
			},
		},
		Action: func(ctx *cli.Context) error {
			handler, cleanup, err := buildHandler(ctx.Context, opts)
			if err != nil {
				return err
			}
			defer cleanup()
			return httpserver.Serve(ctx.Context, bindAddr, handler)
		},
	}
}

// buildHandler wires every component, any configuration problem is
// reported here, before the listener is opened.
func buildHandler(ctx context.Context, opts options) (http.Handler, func(), error) {
	log := logutil.GetOrDefault(ctx)
	primary, err := passwd.ByName(opts.hasher)
	if err != nil {
		return nil, nil, err
	}
	hasher := passwd.Multi(primary)

	records, err := loadUsers(ctx, opts, hasher)
	if err != nil {
		return nil, nil, err
	}
	users, err := credentials.NewStore(records...)
	if err != nil {
		return nil, nil, err
	}

	rules := policy.Default()
	if opts.policyFile != "" {
		rules, err = policy.Load(ctx, opts.policyFile)
		if err != nil {
			return nil, nil, err
		}
	}
	for _, r := range rules.UnknownRoles(users.Roles()) {
		log.Warn().Str("role", string(r)).Msg("Access policy requires a role no user holds")
	}

	sessions, err := session.InMemory(opts.sessionTTL)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if c, ok := sessions.(io.Closer); ok {
			c.Close()
		}
	}

	g, err := gate.New(gate.Config{
		Users:          users,
		Hasher:         hasher,
		Policy:         rules,
		Sessions:       sessions,
		CookieMaxAge:   opts.sessionTTL,
		InsecureCookie: opts.insecureCookie,
		AllowBasic:     opts.basicAuth,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if opts.insecureCookie {
		log.Warn().Msg("Session cookie will be sent over plain HTTP")
	}
	log.Info().Int("users", users.Len()).Int("rules", len(rules.Rules())).Msg("Gate configured")
	return site.AsHandler(g), cleanup, nil
}

func loadUsers(ctx context.Context, opts options, hasher passwd.Hasher) ([]credentials.Record, error) {
	switch {
	case opts.usersDB != "" && opts.usersFile != "":
		return nil, errors.New("use either --users-db or --users-file, not both")
	case opts.usersDB != "":
		return credentials.LoadDatabase(ctx, opts.usersDB)
	case opts.usersFile != "":
		return credentials.LoadYAML(ctx, opts.usersFile, hasher)
	}
	records, err := credentials.Seed(ctx, hasher)
	if err != nil {
		return nil, fmt.Errorf("unable to build development accounts, cause %w", err)
	}
	return records, nil
}
