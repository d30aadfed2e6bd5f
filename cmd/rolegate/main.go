package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/andrebq/rolegate/cmd/rolegate/policy"
	"github.com/andrebq/rolegate/cmd/rolegate/serve"
	"github.com/andrebq/rolegate/cmd/rolegate/users"
	"github.com/andrebq/rolegate/internal/logutil"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	logLevel := "info"
	prettyLog := false
	app := &cli.App{
		Name:  "rolegate",
		Usage: "Role based authentication and authorization in front of a tiny site",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "Minimum level to log (debug, info, warn, error)",
				EnvVars:     []string{"ROLEGATE_LOG_LEVEL"},
				Value:       logLevel,
				Destination: &logLevel,
			},
			&cli.BoolFlag{
				Name:        "log-pretty",
				Usage:       "Human friendly logs instead of JSON",
				EnvVars:     []string{"ROLEGATE_LOG_PRETTY"},
				Destination: &prettyLog,
			},
		},
		Before: func(ctx *cli.Context) error {
			logger := logutil.New(os.Stderr, logLevel, prettyLog)
			log.Logger = logger
			ctx.Context = logutil.WithLogger(ctx.Context, logger)
			return nil
		},
		Commands: []*cli.Command{
			serve.Cmd(),
			users.Cmd(),
			policy.Cmd(),
		},
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	err := app.RunContext(ctx, os.Args)
	if err != nil {
		log.Error().Err(err).Msg("Application failed")
		cancel()
		os.Exit(1)
	}
}
