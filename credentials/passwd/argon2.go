package passwd

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

type (
	Argon2Params struct {
		Time    uint32
		Memory  uint32 // KiB
		Threads uint8
		SaltLen uint32
		KeyLen  uint32
	}

	argon2Hasher struct {
		params Argon2Params
		rand   io.Reader
	}

	// MalformedDigest is reported when an encoded digest cannot be parsed
	MalformedDigest struct {
		Reason string
	}
)

const (
	argon2Prefix = "$argon2id$"
)

var (
	// 3 passes over 32 MiB
	DefaultArgon2Params = Argon2Params{
		Time:    3,
		Memory:  32 * 1024,
		Threads: 2,
		SaltLen: 16,
		KeyLen:  32,
	}
)

func (m MalformedDigest) Error() string {
	return fmt.Sprintf("passwd: malformed digest, %v", m.Reason)
}

// Argon2id returns a hasher producing PHC encoded digests:
//
//	$argon2id$v=19$m=32768,t=3,p=2$<salt>$<key>
func Argon2id(params Argon2Params) Hasher {
	if params.Threads == 0 {
		params.Threads = 1
	}
	return argon2Hasher{params: params, rand: rand.Reader}
}

func (a argon2Hasher) Hash(p PlainText) (string, error) {
	salt := make([]byte, a.params.SaltLen)
	if _, err := io.ReadFull(a.rand, salt); err != nil {
		return "", fmt.Errorf("passwd: unable to generate salt, cause %w", err)
	}
	key := argon2.IDKey(p, salt, a.params.Time, a.params.Memory, a.params.Threads, a.params.KeyLen)
	return fmt.Sprintf("%vv=%d$m=%d,t=%d,p=%d$%v$%v", argon2Prefix, argon2.Version,
		a.params.Memory, a.params.Time, a.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

func (a argon2Hasher) Verify(p PlainText, digest string) bool {
	params, salt, key, err := decodeArgon2(digest)
	if err != nil {
		return false
	}
	actual := argon2.IDKey(p, salt, params.Time, params.Memory, params.Threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(actual, key) == 1
}

func (a argon2Hasher) Recognizes(digest string) bool {
	return strings.HasPrefix(digest, argon2Prefix)
}

func decodeArgon2(digest string) (Argon2Params, []byte, []byte, error) {
	var params Argon2Params
	parts := strings.Split(digest, "$")
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	if len(parts) != 6 || parts[1] != "argon2id" {
		return params, nil, nil, MalformedDigest{Reason: "not an argon2id digest"}
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return params, nil, nil, MalformedDigest{Reason: err.Error()}
	} else if version != argon2.Version {
		return params, nil, nil, MalformedDigest{Reason: fmt.Sprintf("unsupported argon2 version %v", version)}
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Time, &params.Threads); err != nil {
		return params, nil, nil, MalformedDigest{Reason: err.Error()}
	}
	if params.Threads == 0 {
		return params, nil, nil, MalformedDigest{Reason: "parallelism must be at least 1"}
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, MalformedDigest{Reason: err.Error()}
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return params, nil, nil, MalformedDigest{Reason: "invalid key"}
	}
	params.SaltLen = uint32(len(salt))
	params.KeyLen = uint32(len(key))
	return params, salt, key, nil
}
