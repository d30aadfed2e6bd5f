package credentials

import (
	"context"
	"fmt"
	"os"

	"github.com/andrebq/rolegate/credentials/passwd"
	"github.com/andrebq/rolegate/identity"
	"github.com/andrebq/rolegate/internal/logutil"
	"gopkg.in/yaml.v3"
)

type (
	usersFile struct {
		Users []struct {
			Username     string   `yaml:"username"`
			Password     string   `yaml:"password"`
			PasswordHash string   `yaml:"password_hash"`
			Roles        []string `yaml:"roles"`
		} `yaml:"users"`
	}
)

// LoadYAML reads users from a file shaped as:
//
//	users:
//	  - username: admin
//	    password_hash: $2a$10$...
//	    roles: [ADMIN]
//
// Entries may carry a plain "password" instead, it is hashed with hasher
// at load time.
func LoadYAML(ctx context.Context, path string, hasher passwd.Hasher) ([]Record, error) {
	log := logutil.GetOrDefault(ctx).With().Str("users.file", path).Logger()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read users file %v, cause %w", path, err)
	}
	var uf usersFile
	if err := yaml.Unmarshal(data, &uf); err != nil {
		return nil, ConfigurationError{Reason: fmt.Sprintf("unable to parse %v: %v", path, err)}
	}
	out := make([]Record, 0, len(uf.Users))
	for _, u := range uf.Users {
		rec := Record{
			Username:     u.Username,
			PasswordHash: u.PasswordHash,
		}
		for _, r := range u.Roles {
			rec.Roles = append(rec.Roles, identity.ParseRoles(r)...)
		}
		switch {
		case rec.PasswordHash != "" && u.Password != "":
			return nil, ConfigurationError{Username: u.Username, Reason: "both password and password_hash are set"}
		case rec.PasswordHash == "" && u.Password != "":
			log.Warn().Str("username", u.Username).Msg("Plain text password found in users file, hashing it at startup")
			rec.PasswordHash, err = hasher.Hash(passwd.PlainText(u.Password))
			if err != nil {
				return nil, fmt.Errorf("unable to hash password for %v, cause %w", u.Username, err)
			}
		case rec.PasswordHash != "" && !hasher.Recognizes(rec.PasswordHash):
			return nil, ConfigurationError{Username: u.Username, Reason: "password_hash is not a recognized digest"}
		}
		out = append(out, rec)
	}
	log.Info().Int("users", len(out)).Msg("Users loaded")
	return out, nil
}
