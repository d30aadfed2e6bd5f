package policy

import (
	"context"
	"fmt"

	"github.com/andrebq/rolegate/identity"
	"github.com/andrebq/rolegate/internal/cmdflags"
	rules "github.com/andrebq/rolegate/policy"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	var policyFile string
	return &cli.Command{
		Name:  "policy",
		Usage: "Inspect access policies without starting the server",
		Flags: []cli.Flag{
			cmdflags.PolicyFile(&policyFile),
		},
		Subcommands: []*cli.Command{
			checkCmd(&policyFile),
			showCmd(&policyFile),
		},
	}
}

func checkCmd(policyFile *string) *cli.Command {
	var reqPath string
	var username string
	return &cli.Command{
		Name:  "check",
		Usage: "Print the decision taken for a request path and caller",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "path",
				Usage:       "Request path to evaluate",
				Destination: &reqPath,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "user",
				Usage:       "Username of the caller, leave empty for an anonymous caller",
				Destination: &username,
			},
			&cli.StringSliceFlag{
				Name:    "role",
				Aliases: []string{"r"},
				Usage:   "Role held by the caller, might be repeated",
			},
		},
		Action: func(ctx *cli.Context) error {
			p, err := load(ctx.Context, *policyFile)
			if err != nil {
				return err
			}
			caller := identity.Anonymous
			roles := ctx.StringSlice("role")
			if username != "" || len(roles) > 0 {
				if username == "" {
					username = "cli"
				}
				caller = identity.Identity{Username: username}
				for _, r := range roles {
					caller.Roles = append(caller.Roles, identity.ParseRoles(r)...)
				}
			}
			decision := p.Evaluate(reqPath, caller)
			matched := "no rule matched"
			if r, ok := p.Match(reqPath); ok {
				matched = r.String()
			}
			_, err = fmt.Fprintf(ctx.App.Writer, "%v\t%v\t%v\n", decision, caller, matched)
			return err
		},
	}
}

func showCmd(policyFile *string) *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Print the rules in evaluation order",
		Action: func(ctx *cli.Context) error {
			p, err := load(ctx.Context, *policyFile)
			if err != nil {
				return err
			}
			for i, r := range p.Rules() {
				if _, err := fmt.Fprintf(ctx.App.Writer, "%d\t%v\n", i, r); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func load(ctx context.Context, file string) (*rules.Policy, error) {
	if file == "" {
		return rules.Default(), nil
	}
	return rules.Load(ctx, file)
}
