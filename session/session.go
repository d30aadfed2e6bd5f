// Package session keeps track of logged in callers.
//
// A session links an opaque random token, handed to the client as a
// cookie, to the identity that logged in. Sessions are lost when the
// process restarts, they expire or they are evicted from the cache; the
// caller must login again in that case.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/andrebq/rolegate/identity"
	"github.com/cespare/xxhash/v2"
)

type (
	Session struct {
		ID        string          `json:"-"`
		Username  string          `json:"username"`
		Roles     []identity.Role `json:"roles"`
		CreatedAt time.Time       `json:"created_at"`
	}

	// Store must be safe for concurrent use, independent sessions may be
	// created, read and destroyed at the same time.
	Store interface {
		Create(ctx context.Context, id identity.Identity) (Session, error)
		Lookup(ctx context.Context, sessionID string) (Session, error)
		Destroy(ctx context.Context, sessionID string) error
	}
)

const (
	idBytes = 32
)

var (
	ErrNotFound = errors.New("session not found")
)

func (s Session) Identity() identity.Identity {
	return identity.Identity{
		Username: s.Username,
		Roles:    append([]identity.Role(nil), s.Roles...),
	}
}

// NewID returns 256 random bits encoded as url-safe base64
func NewID(entropy io.Reader) (string, error) {
	var buf [idBytes]byte
	if _, err := io.ReadFull(entropy, buf[:]); err != nil {
		return "", fmt.Errorf("session: unable to generate id, cause %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf[:]), nil
}

func newID() (string, error) {
	return NewID(rand.Reader)
}

// Fingerprint identifies a session in logs without exposing the token
func Fingerprint(sessionID string) string {
	if sessionID == "" {
		return ""
	}
	return strconv.FormatUint(xxhash.Sum64String(sessionID), 16)
}
