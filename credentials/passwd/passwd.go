// Package passwd contains the one-way password hashing strategies used
// by the credential store.
//
// Every digest produced here embeds its own salt and cost parameters,
// so hashing the same password twice yields two different digests that
// both verify.
package passwd

import (
	"fmt"
	"strings"
)

type (
	PlainText []byte

	// Hasher hashes and verifies passwords.
	//
	// Verify must not leak, through timing, how much of the digest matched.
	// Recognizes reports whether a digest has the format Verify expects.
	Hasher interface {
		Hash(PlainText) (string, error)
		Verify(PlainText, string) bool
		Recognizes(string) bool
	}

	// UnknownHasher is returned by ByName when no strategy matches
	UnknownHasher struct {
		Name string
	}

	multi struct {
		primary Hasher
	}
)

const (
	NameBCrypt   = "bcrypt"
	NameArgon2id = "argon2id"
)

func (p PlainText) Zero() {
	for i := range p {
		p[i] = 0
	}
}

func (u UnknownHasher) Error() string {
	return fmt.Sprintf("passwd: unknown hasher %q, expecting %v or %v", u.Name, NameBCrypt, NameArgon2id)
}

// ByName returns the production strategy registered under name,
// using its default cost parameters.
func ByName(name string) (Hasher, error) {
	switch strings.ToLower(name) {
	case NameBCrypt, "":
		return BCrypt(0), nil
	case NameArgon2id:
		return Argon2id(DefaultArgon2Params), nil
	}
	return nil, UnknownHasher{Name: name}
}

// Detect returns the production strategy able to verify digest, based
// on its prefix. It returns nil when the digest format is not recognized.
func Detect(digest string) Hasher {
	for _, h := range []Hasher{BCrypt(0), Argon2id(DefaultArgon2Params)} {
		if h.Recognizes(digest) {
			return h
		}
	}
	return nil
}

// Multi hashes with primary but also verifies any digest Detect
// recognizes, which lets a single store mix bcrypt and argon2id entries.
func Multi(primary Hasher) Hasher {
	return multi{primary: primary}
}

func (m multi) Hash(p PlainText) (string, error) {
	return m.primary.Hash(p)
}

func (m multi) Verify(p PlainText, digest string) bool {
	if m.primary.Recognizes(digest) {
		return m.primary.Verify(p, digest)
	}
	h := Detect(digest)
	if h == nil {
		return false
	}
	return h.Verify(p, digest)
}

func (m multi) Recognizes(digest string) bool {
	return m.primary.Recognizes(digest) || Detect(digest) != nil
}
