package passwd

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type (
	bcryptHasher struct {
		cost int
	}
)

// BCrypt returns a bcrypt hasher, a cost of zero selects bcrypt.DefaultCost.
func BCrypt(cost int) Hasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return bcryptHasher{cost: cost}
}

func (b bcryptHasher) Hash(p PlainText) (string, error) {
	buf, err := bcrypt.GenerateFromPassword(p, b.cost)
	if err != nil {
		return "", fmt.Errorf("passwd: unable to compute bcrypt digest, cause %w", err)
	}
	return string(buf), nil
}

// Verify ignores the configured cost, the digest carries its own.
func (b bcryptHasher) Verify(p PlainText, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), p) == nil
}

func (b bcryptHasher) Recognizes(digest string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(digest, prefix) {
			return true
		}
	}
	return false
}
