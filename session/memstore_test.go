package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/andrebq/rolegate/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	bob = identity.Identity{Username: "bob", Roles: []identity.Role{identity.RoleUser}}
)

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	store, err := InMemory(time.Hour)
	require.NoError(t, err)
	defer store.(io.Closer).Close()

	s, err := store.Create(ctx, bob)
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "bob", s.Username)

	found, err := store.Lookup(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, found.ID)
	assert.Equal(t, bob, found.Identity())

	require.NoError(t, store.Destroy(ctx, s.ID))
	_, err = store.Lookup(ctx, s.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, store.Destroy(ctx, s.ID), "destroy should be idempotent")

	_, err = store.Lookup(ctx, "")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestExpiration(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2022, 5, 1, 10, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	store, err := InMemory(30*time.Minute, WithClock(clock))
	require.NoError(t, err)
	defer store.(io.Closer).Close()

	s, err := store.Create(ctx, bob)
	require.NoError(t, err)

	mu.Lock()
	now = now.Add(29 * time.Minute)
	mu.Unlock()
	_, err = store.Lookup(ctx, s.ID)
	require.NoError(t, err)

	mu.Lock()
	now = now.Add(time.Minute)
	mu.Unlock()
	_, err = store.Lookup(ctx, s.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAnonymousCannotCreate(t *testing.T) {
	store, err := InMemory(time.Hour)
	require.NoError(t, err)
	defer store.(io.Closer).Close()
	_, err = store.Create(context.Background(), identity.Anonymous)
	assert.Error(t, err)
}

func TestConcurrentSessions(t *testing.T) {
	ctx := context.Background()
	store, err := InMemory(time.Hour)
	require.NoError(t, err)
	defer store.(io.Closer).Close()

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := store.Create(ctx, bob)
			if err != nil {
				errs <- err
				return
			}
			if _, err := store.Lookup(ctx, s.ID); err != nil {
				errs <- err
				return
			}
			if err := store.Destroy(ctx, s.ID); err != nil {
				errs <- err
				return
			}
			if _, err := store.Lookup(ctx, s.ID); !errors.Is(err, ErrNotFound) {
				errs <- errors.New("session survived destroy")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestNewID(t *testing.T) {
	id, err := NewID(bytes.NewReader(make([]byte, idBytes)))
	require.NoError(t, err)
	assert.Equal(t, "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", id)

	_, err = NewID(bytes.NewReader(make([]byte, 4)))
	assert.Error(t, err)

	assert.NotEqual(t, id, Fingerprint(id))
	assert.Equal(t, Fingerprint(id), Fingerprint(id))
	assert.Empty(t, Fingerprint(""))
}

func TestInvalidTTL(t *testing.T) {
	_, err := InMemory(0)
	assert.Error(t, err)
}
