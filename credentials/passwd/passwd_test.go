package passwd

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var (
	cheapArgon2 = Argon2Params{Time: 1, Memory: 1024, Threads: 1, SaltLen: 16, KeyLen: 32}
)

func TestHashers(t *testing.T) {
	for name, h := range map[string]Hasher{
		"bcrypt":   BCrypt(bcrypt.MinCost),
		"argon2id": Argon2id(cheapArgon2),
		"fast":     Fast(),
	} {
		h := h
		t.Run(name, func(t *testing.T) {
			first, err := h.Hash(PlainText("password"))
			require.NoError(t, err)
			second, err := h.Hash(PlainText("password"))
			require.NoError(t, err)

			assert.NotEqual(t, first, second, "salting should produce different digests")
			assert.True(t, h.Verify(PlainText("password"), first))
			assert.True(t, h.Verify(PlainText("password"), second))

			for _, wrong := range []string{"", "Password", "password ", "1234", "passwor"} {
				assert.False(t, h.Verify(PlainText(wrong), first), "%q should not verify", wrong)
			}
		})
	}
}

func TestMulti(t *testing.T) {
	bc, err := BCrypt(bcrypt.MinCost).Hash(PlainText("1234"))
	require.NoError(t, err)
	ar, err := Argon2id(cheapArgon2).Hash(PlainText("1234"))
	require.NoError(t, err)

	m := Multi(Fast())
	assert.True(t, m.Verify(PlainText("1234"), bc))
	assert.True(t, m.Verify(PlainText("1234"), ar))
	assert.False(t, m.Verify(PlainText("4321"), ar))
	assert.False(t, m.Verify(PlainText("1234"), "plain-text-is-not-a-digest"))

	digest, err := m.Hash(PlainText("1234"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest, fastPrefix))
	assert.True(t, m.Verify(PlainText("1234"), digest))

	production := Multi(BCrypt(bcrypt.MinCost))
	assert.False(t, production.Recognizes(digest), "fast digests are only accepted when fast is the primary")
	assert.False(t, production.Verify(PlainText("1234"), digest))
	assert.True(t, production.Recognizes(ar))
}

func TestArgon2Malformed(t *testing.T) {
	for _, digest := range []string{
		"",
		"$argon2id$v=19$m=1024,t=1,p=1$c2FsdA",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=0$c2FsdA$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$a2V5",
	} {
		_, _, _, err := decodeArgon2(digest)
		var malformed MalformedDigest
		assert.True(t, errors.As(err, &malformed), "digest %q should be malformed, got %v", digest, err)
	}
}

func TestByName(t *testing.T) {
	_, err := ByName("bcrypt")
	require.NoError(t, err)
	_, err = ByName("ARGON2ID")
	require.NoError(t, err)
	_, err = ByName("md5")
	assert.Equal(t, UnknownHasher{Name: "md5"}, err)
}

func TestZero(t *testing.T) {
	p := PlainText("secret")
	p.Zero()
	assert.Equal(t, PlainText{0, 0, 0, 0, 0, 0}, p)
}
