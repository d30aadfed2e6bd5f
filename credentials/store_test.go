package credentials

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/andrebq/rolegate/credentials/passwd"
	"github.com/andrebq/rolegate/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed(t *testing.T) {
	ctx := context.Background()
	hasher := passwd.Fast()
	records, err := Seed(ctx, hasher)
	require.NoError(t, err)
	store, err := NewStore(records...)
	require.NoError(t, err)

	for username, password := range map[string]string{"admin": "password", "user": "1234"} {
		rec, err := store.Lookup(username)
		require.NoError(t, err)
		assert.True(t, hasher.Verify(passwd.PlainText(password), rec.PasswordHash))
		assert.False(t, hasher.Verify(passwd.PlainText(password+"!"), rec.PasswordHash))
	}
	admin, _ := store.Lookup("admin")
	assert.Equal(t, []identity.Role{identity.RoleAdmin}, admin.Roles)
	assert.Equal(t, []identity.Role{identity.RoleAdmin, identity.RoleUser}, store.Roles())

	_, err = store.Lookup("root")
	assert.True(t, errors.Is(err, UserNotFound{Username: "root"}))
}

func TestNewStoreRejectsInvalidConfig(t *testing.T) {
	_, err := NewStore()
	var cfgErr ConfigurationError
	require.True(t, errors.As(err, &cfgErr))

	_, err = NewStore(
		Record{Username: "bob", PasswordHash: "x"},
		Record{Username: "bob", PasswordHash: "y"},
	)
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "bob", cfgErr.Username)

	_, err = NewStore(Record{Username: "bob"})
	require.True(t, errors.As(err, &cfgErr))

	_, err = NewStore(Record{PasswordHash: "y"})
	require.True(t, errors.As(err, &cfgErr))
}

func TestSampleDigest(t *testing.T) {
	store, err := NewStore(
		Record{Username: "zed", PasswordHash: "z-digest"},
		Record{Username: "bob", PasswordHash: "b-digest"},
		Record{Username: "carol", PasswordHash: "c-digest"},
	)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		assert.Equal(t, "b-digest", store.SampleDigest())
	}
}

func TestStoreIsolatedFromCaller(t *testing.T) {
	roles := []identity.Role{identity.RoleUser}
	store, err := NewStore(Record{Username: "bob", PasswordHash: "x", Roles: roles})
	require.NoError(t, err)
	roles[0] = identity.RoleAdmin
	rec, err := store.Lookup("bob")
	require.NoError(t, err)
	assert.False(t, rec.Identity().Has(identity.RoleAdmin))
}

func TestLoadYAML(t *testing.T) {
	ctx := context.Background()
	hasher := passwd.Fast()
	digest, err := hasher.Hash(passwd.PlainText("s3cret"))
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
users:
  - username: alice
    password_hash: "`+digest+`"
    roles: [admin, user]
  - username: bob
    password: hunter2
    roles: [USER]
`), 0600))

	records, err := LoadYAML(ctx, file, hasher)
	require.NoError(t, err)
	store, err := NewStore(records...)
	require.NoError(t, err)

	alice, err := store.Lookup("alice")
	require.NoError(t, err)
	assert.Equal(t, []identity.Role{identity.RoleAdmin, identity.RoleUser}, alice.Roles)
	assert.True(t, hasher.Verify(passwd.PlainText("s3cret"), alice.PasswordHash))

	bob, err := store.Lookup("bob")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", bob.PasswordHash)
	assert.True(t, hasher.Verify(passwd.PlainText("hunter2"), bob.PasswordHash))
}

func TestLoadYAMLRejectsUnknownDigest(t *testing.T) {
	file := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
users:
  - username: alice
    password_hash: "not-a-digest"
    roles: [ADMIN]
`), 0600))
	_, err := LoadYAML(context.Background(), file, passwd.Fast())
	var cfgErr ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "alice", cfgErr.Username)
}

func TestDatabase(t *testing.T) {
	ctx := context.Background()
	hasher := passwd.Fast()
	file := filepath.Join(t.TempDir(), "nested", "users.db")

	digest, err := hasher.Hash(passwd.PlainText("password"))
	require.NoError(t, err)
	require.NoError(t, AddToDatabase(ctx, file, Record{Username: "admin", PasswordHash: digest, Roles: []identity.Role{identity.RoleAdmin}}))
	require.NoError(t, AddToDatabase(ctx, file, Record{Username: "ops", PasswordHash: digest, Roles: []identity.Role{identity.RoleAdmin, identity.RoleUser}}))

	err = AddToDatabase(ctx, file, Record{Username: "ops", PasswordHash: digest})
	var cfgErr ConfigurationError
	require.True(t, errors.As(err, &cfgErr))

	records, err := LoadDatabase(ctx, file)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "admin", records[0].Username)
	assert.Equal(t, []identity.Role{identity.RoleAdmin, identity.RoleUser}, records[1].Roles)
	assert.True(t, hasher.Verify(passwd.PlainText("password"), records[1].PasswordHash))
}

func TestLoadMissingDatabase(t *testing.T) {
	_, err := LoadDatabase(context.Background(), filepath.Join(t.TempDir(), "missing.db"))
	assert.Error(t, err)
}
