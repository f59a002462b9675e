// Package auth provides password hashing and bearer token handling.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

// Supported hashing algorithms.
const (
	AlgorithmPBKDF2 = "pbkdf2"
	AlgorithmBcrypt = "bcrypt"
)

// PBKDF2 defaults (OWASP 2023 minimum for HMAC-SHA256).
const (
	DefaultPBKDF2Iterations = 600_000
	pbkdf2SaltLen           = 16
	pbkdf2KeyLen            = 32
	pbkdf2Prefix            = "pbkdf2:sha256:"
)

var (
	// ErrInvalidHash indicates the digest is not in a recognized format.
	ErrInvalidHash = errors.New("invalid hash format")
	// ErrUnknownAlgorithm indicates an unsupported hashing algorithm was configured.
	ErrUnknownAlgorithm = errors.New("unknown password hashing algorithm")
)

// HasherConfig tunes the password hasher.
type HasherConfig struct {
	Algorithm        string
	PBKDF2Iterations int
	BcryptCost       int
}

// PasswordHasher produces and verifies salted one-way password digests.
// It is immutable after construction and safe for concurrent use.
type PasswordHasher struct {
	algorithm  string
	iterations int
	bcryptCost int
}

// NewPasswordHasher validates cfg and returns a hasher. Zero values fall back
// to PBKDF2 with DefaultPBKDF2Iterations and bcrypt.DefaultCost.
func NewPasswordHasher(cfg HasherConfig) (*PasswordHasher, error) {
	h := &PasswordHasher{
		algorithm:  cfg.Algorithm,
		iterations: cfg.PBKDF2Iterations,
		bcryptCost: cfg.BcryptCost,
	}
	if h.algorithm == "" {
		h.algorithm = AlgorithmPBKDF2
	}
	if h.iterations <= 0 {
		h.iterations = DefaultPBKDF2Iterations
	}
	if h.bcryptCost == 0 {
		h.bcryptCost = bcrypt.DefaultCost
	}

	switch h.algorithm {
	case AlgorithmPBKDF2:
	case AlgorithmBcrypt:
		if h.bcryptCost < bcrypt.MinCost || h.bcryptCost > bcrypt.MaxCost {
			return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", h.bcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, h.algorithm)
	}
	return h, nil
}

// Hash returns a digest of password with a fresh random salt embedded.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if h.algorithm == AlgorithmBcrypt {
		out, err := bcrypt.GenerateFromPassword([]byte(password), h.bcryptCost)
		if err != nil {
			return "", fmt.Errorf("hash password: %w", err)
		}
		return string(out), nil
	}

	salt := make([]byte, pbkdf2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(password), salt, h.iterations, pbkdf2KeyLen, sha256.New)

	// pbkdf2:sha256:<iterations>$<salt>$<key>
	return fmt.Sprintf("%s%d$%s$%s",
		pbkdf2Prefix,
		h.iterations,
		base64.RawStdEncoding.EncodeToString(salt),
		hex.EncodeToString(key),
	), nil
}

// Verify reports whether password matches digest. The algorithm and its
// parameters are read from the digest, so digests made under an older
// configuration keep verifying. Malformed digests never match.
func (h *PasswordHasher) Verify(password, digest string) bool {
	switch {
	case strings.HasPrefix(digest, pbkdf2Prefix):
		ok, err := verifyPBKDF2(password, digest)
		return err == nil && ok
	case strings.HasPrefix(digest, "$2"):
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
	default:
		return false
	}
}

func verifyPBKDF2(password, digest string) (bool, error) {
	parts := strings.Split(strings.TrimPrefix(digest, pbkdf2Prefix), "$")
	if len(parts) != 3 {
		return false, ErrInvalidHash
	}
	iterations, err := strconv.Atoi(parts[0])
	if err != nil || iterations <= 0 {
		return false, ErrInvalidHash
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil || len(salt) == 0 {
		return false, ErrInvalidHash
	}
	expected, err := hex.DecodeString(parts[2])
	if err != nil || len(expected) == 0 {
		return false, ErrInvalidHash
	}

	computed := pbkdf2.Key([]byte(password), salt, iterations, len(expected), sha256.New)
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}
