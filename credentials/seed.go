package credentials

import (
	"context"
	"fmt"

	"github.com/andrebq/rolegate/credentials/passwd"
	"github.com/andrebq/rolegate/identity"
	"github.com/andrebq/rolegate/internal/logutil"
)

type (
	seedUser struct {
		username string
		password string
		role     identity.Role
	}
)

// development accounts, production deployments should load
// users from a file or database instead
var seedUsers = []seedUser{
	{"admin", "password", identity.RoleAdmin},
	{"user", "1234", identity.RoleUser},
}

// Seed hashes the builtin development accounts with hasher.
func Seed(ctx context.Context, hasher passwd.Hasher) ([]Record, error) {
	log := logutil.GetOrDefault(ctx)
	out := make([]Record, 0, len(seedUsers))
	for _, u := range seedUsers {
		hash, err := hasher.Hash(passwd.PlainText(u.password))
		if err != nil {
			return nil, fmt.Errorf("unable to hash seed password for %v, cause %w", u.username, err)
		}
		out = append(out, Record{
			Username:     u.username,
			PasswordHash: hash,
			Roles:        []identity.Role{u.role},
		})
	}
	log.Warn().Int("users", len(out)).Msg("Using builtin development accounts")
	return out, nil
}
