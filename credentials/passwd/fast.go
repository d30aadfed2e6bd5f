package passwd

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

type (
	fastHasher struct{}
)

const (
	fastPrefix = "$fast$"
)

// Fast returns a salted but cheap hasher.
//
// It exists for tests that need many logins, never use it to store
// real passwords.
func Fast() Hasher {
	return fastHasher{}
}

func (fastHasher) Hash(p PlainText) (string, error) {
	var salt [8]byte
	if _, err := io.ReadFull(rand.Reader, salt[:]); err != nil {
		return "", fmt.Errorf("passwd: unable to generate salt, cause %w", err)
	}
	sum := fastSum(salt[:], p)
	return fmt.Sprintf("%v%v$%v", fastPrefix,
		base64.RawStdEncoding.EncodeToString(salt[:]),
		base64.RawStdEncoding.EncodeToString(sum)), nil
}

func (f fastHasher) Verify(p PlainText, digest string) bool {
	if !f.Recognizes(digest) {
		return false
	}
	parts := strings.SplitN(digest[len(fastPrefix):], "$", 2)
	if len(parts) != 2 {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(fastSum(salt, p), expected) == 1
}

func (fastHasher) Recognizes(digest string) bool {
	return strings.HasPrefix(digest, fastPrefix)
}

func fastSum(salt []byte, p PlainText) []byte {
	h := sha256.New()
	h.Write(salt)
	h.Write(p)
	return h.Sum(nil)
}
