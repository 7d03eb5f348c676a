// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher hashes and verifies account passwords.
type PasswordHasher interface {
	// Hash returns an encoded hash of password.
	Hash(password string) (string, error)

	// Verify returns (true, nil) on match, (false, nil) on mismatch, and an
	// error when hash cannot be decoded.
	Verify(password, hash string) (bool, error)

	// NeedsUpgrade reports whether a verified hash should be rewritten.
	NeedsUpgrade(hash string) bool
}

// Argon2Params are the argon2id cost settings.
type Argon2Params struct {
	Time    uint32 // iterations
	Memory  uint32 // KiB
	Threads uint8
	SaltLen int
	KeyLen  uint32
}

// DefaultArgon2Params follow the OWASP argon2id recommendation.
var DefaultArgon2Params = Argon2Params{
	Time:    1,
	Memory:  64 * 1024,
	Threads: 4,
	SaltLen: 16,
	KeyLen:  32,
}

// Argon2idHasher implements PasswordHasher with argon2id in PHC string form:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
//
// Accounts imported from older servers may carry bcrypt hashes; those
// verify and report NeedsUpgrade, as do argon2id hashes made with weaker
// parameters than the hasher's.
type Argon2idHasher struct {
	params Argon2Params
}

// NewArgon2idHasher returns a hasher using DefaultArgon2Params.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{params: DefaultArgon2Params}
}

// NewArgon2idHasherWithParams returns a hasher with custom cost settings.
func NewArgon2idHasherWithParams(p Argon2Params) (*Argon2idHasher, error) {
	if p.Time == 0 || p.Memory == 0 || p.Threads == 0 || p.SaltLen <= 0 || p.KeyLen == 0 {
		return nil, oops.Code("AUTH_INVALID_PARAMS").
			With("params", fmt.Sprintf("%+v", p)).
			Errorf("argon2 parameters must be positive")
	}
	return &Argon2idHasher{params: p}, nil
}

// Hash produces an argon2id hash of the password.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	encoded := phcHash{params: h.params, salt: salt}
	encoded.key = encoded.derive(password)
	return encoded.String(), nil
}

// Verify checks password against an argon2id or bcrypt hash.
func (h *Argon2idHasher) Verify(password, encodedHash string) (bool, error) {
	if isBcrypt(encodedHash) {
		return verifyBcrypt(password, encodedHash)
	}

	stored, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(stored.derive(password), stored.key) == 1, nil
}

// NeedsUpgrade reports true for non-argon2id hashes and for argon2id hashes
// whose time or memory cost is below the hasher's.
func (h *Argon2idHasher) NeedsUpgrade(hash string) bool {
	stored, err := decodePHC(hash)
	if err != nil {
		return true
	}
	return stored.params.Time < h.params.Time || stored.params.Memory < h.params.Memory
}

// phcHash is a decoded argon2id PHC string.
type phcHash struct {
	params Argon2Params
	salt   []byte
	key    []byte
}

func (p phcHash) derive(password string) []byte {
	return argon2.IDKey([]byte(password), p.salt, p.params.Time, p.params.Memory, p.params.Threads, p.params.KeyLen)
}

func (p phcHash) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.params.Memory, p.params.Time, p.params.Threads,
		base64.RawStdEncoding.EncodeToString(p.salt),
		base64.RawStdEncoding.EncodeToString(p.key))
}

func decodePHC(encoded string) (phcHash, error) {
	invalid := func(format string, args ...any) (phcHash, error) {
		return phcHash{}, oops.Code("AUTH_INVALID_HASH").Errorf(format, args...)
	}

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return invalid("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return invalid("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return invalid("invalid version field %q", parts[2])
	}
	if version != argon2.Version {
		return invalid("unsupported argon2 version %d", version)
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return invalid("invalid parameter field %q", parts[3])
	}
	if threads == 0 || threads > 255 {
		return invalid("threads value %d out of range", threads)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return phcHash{}, oops.Code("AUTH_INVALID_HASH").With("field", "salt").Wrap(err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return phcHash{}, oops.Code("AUTH_INVALID_HASH").With("field", "key").Wrap(err)
	}
	if len(key) == 0 || len(key) > 1<<30 {
		return invalid("invalid hash key length: %d", len(key))
	}

	return phcHash{
		params: Argon2Params{
			Time:    time,
			Memory:  memory,
			Threads: uint8(threads),
			SaltLen: len(salt),
			KeyLen:  uint32(len(key)),
		},
		salt: salt,
		key:  key,
	}, nil
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") ||
		strings.HasPrefix(hash, "$2b$") ||
		strings.HasPrefix(hash, "$2y$")
}

func verifyBcrypt(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, oops.Code("AUTH_INVALID_HASH").With("algorithm", "bcrypt").Wrap(err)
	}
}
