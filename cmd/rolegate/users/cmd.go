package users

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andrebq/rolegate/credentials"
	"github.com/andrebq/rolegate/credentials/passwd"
	"github.com/andrebq/rolegate/identity"
	"github.com/andrebq/rolegate/internal/cmdflags"
	"github.com/andrebq/rolegate/internal/logutil"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "Manage the accounts allowed to login",
		Subcommands: []*cli.Command{
			hashCmd(),
			addCmd(),
			listCmd(),
		},
	}
}

func hashCmd() *cli.Command {
	var hasherName string
	return &cli.Command{
		Name:  "hash",
		Usage: "Print the digest of a password (password is read from stdin), to be used as password_hash in a users file",
		Flags: []cli.Flag{
			cmdflags.Hasher(&hasherName),
		},
		Action: func(ctx *cli.Context) error {
			hasher, err := passwd.ByName(hasherName)
			if err != nil {
				return err
			}
			password, err := readPassword(ctx.App.Reader)
			if err != nil {
				return err
			}
			defer password.Zero()
			digest, err := hasher.Hash(password)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(ctx.App.Writer, digest)
			return err
		},
	}
}

func addCmd() *cli.Command {
	var dbFile string
	var hasherName string
	var username string
	return &cli.Command{
		Name:  "add",
		Usage: "Add a user to the users database (password is read from stdin)",
		Flags: []cli.Flag{
			cmdflags.UsersDB(&dbFile),
			cmdflags.Hasher(&hasherName),
			&cli.StringFlag{
				Name:        "username",
				Aliases:     []string{"u", "user"},
				Usage:       "Name of the user to register",
				Destination: &username,
				Required:    true,
			},
			&cli.StringSliceFlag{
				Name:    "role",
				Aliases: []string{"r"},
				Usage:   "Role granted to the user, might be repeated",
			},
		},
		Action: func(ctx *cli.Context) error {
			if dbFile == "" {
				return errors.New("missing --users-db")
			}
			hasher, err := passwd.ByName(hasherName)
			if err != nil {
				return err
			}
			password, err := readPassword(ctx.App.Reader)
			if err != nil {
				return err
			}
			defer password.Zero()
			digest, err := hasher.Hash(password)
			if err != nil {
				return err
			}
			var granted []identity.Role
			for _, r := range ctx.StringSlice("role") {
				granted = append(granted, identity.ParseRoles(r)...)
			}
			err = credentials.AddToDatabase(ctx.Context, dbFile, credentials.Record{
				Username:     username,
				PasswordHash: digest,
				Roles:        granted,
			})
			if err != nil {
				return err
			}
			log := logutil.GetOrDefault(ctx.Context)
			log.Info().Str("username", username).Str("roles", identity.JoinRoles(granted)).Msg("User added")
			return nil
		},
	}
}

func listCmd() *cli.Command {
	var dbFile string
	return &cli.Command{
		Name:  "list",
		Usage: "List the users stored in the users database",
		Flags: []cli.Flag{
			cmdflags.UsersDB(&dbFile),
		},
		Action: func(ctx *cli.Context) error {
			if dbFile == "" {
				return errors.New("missing --users-db")
			}
			records, err := credentials.LoadDatabase(ctx.Context, dbFile)
			if err != nil {
				return err
			}
			for _, r := range records {
				if _, err := fmt.Fprintf(ctx.App.Writer, "%v\t%v\n", r.Username, identity.JoinRoles(r.Roles)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func readPassword(in io.Reader) (passwd.PlainText, error) {
	sc := bufio.NewScanner(in)
	if !sc.Scan() {
		if sc.Err() != nil {
			return nil, sc.Err()
		}
		return nil, errors.New("missing password from stdin")
	}
	password := strings.TrimSpace(sc.Text())
	if len(password) == 0 {
		return nil, errors.New("missing password from stdin")
	}
	return passwd.PlainText(password), nil
}
