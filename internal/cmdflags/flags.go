package cmdflags

import (
	"github.com/andrebq/rolegate/credentials/passwd"
	"github.com/urfave/cli/v2"
)

func envVar(name string) []string {
	return []string{"ROLEGATE_" + name}
}

func UsersFile(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "users-file",
		Usage:       "YAML file with the accounts allowed to login",
		EnvVars:     envVar("USERS_FILE"),
		Value:       *out,
		Destination: out,
	}
}

func UsersDB(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "users-db",
		Aliases:     []string{"db"},
		Usage:       "SQLite database with the accounts allowed to login (see 'users add')",
		EnvVars:     envVar("USERS_DB"),
		Value:       *out,
		Destination: out,
	}
}

func PolicyFile(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "policy-file",
		Aliases:     []string{"p"},
		Usage:       "YAML or Lua file with the access rules (leave empty for the builtin rules)",
		EnvVars:     envVar("POLICY_FILE"),
		Value:       *out,
		Destination: out,
	}
}

func Hasher(out *string) cli.Flag {
	if len(*out) == 0 {
		*out = passwd.NameBCrypt
	}
	return &cli.StringFlag{
		Name:        "hasher",
		Usage:       "Password hashing strategy, either bcrypt or argon2id",
		EnvVars:     envVar("HASHER"),
		Value:       *out,
		Destination: out,
	}
}
