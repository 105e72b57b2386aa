// Package credential holds the password primitives of the notebook:
// salted PBKDF2 hashing, timing-safe verification, input validation and
// strong password generation. Nothing here touches storage.
package credential

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// MinIterations is the lowest PBKDF2 work factor a Hasher will use.
	MinIterations = 100_000
	// SaltBytes is the amount of randomness in a generated salt.
	SaltBytes = 16
	// KeyLength is the size of the derived key in bytes.
	KeyLength = 32
	// Separator splits the salt from the derived key in an encoded hash.
	Separator = "$"

	// DefaultPasswordLength is used by GenerateStrongPassword for non-positive lengths.
	DefaultPasswordLength = 12
)

const (
	letters     = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits      = "0123456789"
	punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

	passwordAlphabet = letters + digits + punctuation
)

// Hasher derives and verifies "{salt}${hex key}" password hashes.
// The salt is hex text and is fed to the KDF as its text bytes.
type Hasher struct {
	iterations int
}

// NewHasher returns a Hasher using the given PBKDF2 iteration count,
// raised to MinIterations when lower.
func NewHasher(iterations int) *Hasher {
	if iterations < MinIterations {
		iterations = MinIterations
	}
	return &Hasher{iterations: iterations}
}

// Iterations reports the work factor in use.
func (h *Hasher) Iterations() int { return h.iterations }

// Hash derives the encoded hash of password. An empty salt generates a fresh random one.
func (h *Hasher) Hash(password, salt string) (string, error) {
	if salt == "" {
		var err error
		salt, err = NewSalt()
		if err != nil {
			return "", err
		}
	}
	if strings.Contains(salt, Separator) {
		return "", fmt.Errorf("salt must not contain %q", Separator)
	}

	key := pbkdf2.Key([]byte(password), []byte(salt), h.iterations, KeyLength, sha256.New)
	return salt + Separator + hex.EncodeToString(key), nil
}

// Verify recomputes the hash of candidate with the salt recovered from stored
// and compares the encodings in constant time. The encoding does not carry the
// work factor, so a Hasher with a raised count also accepts hashes made at
// MinIterations.
func (h *Hasher) Verify(stored, candidate string) bool {
	salt, _, ok := splitHash(stored)
	if !ok {
		return false
	}
	if h.matches(stored, candidate, salt, h.iterations) {
		return true
	}
	return h.iterations != MinIterations && h.matches(stored, candidate, salt, MinIterations)
}

func (h *Hasher) matches(stored, candidate, salt string, iterations int) bool {
	key := pbkdf2.Key([]byte(candidate), []byte(salt), iterations, KeyLength, sha256.New)
	recomputed := salt + Separator + hex.EncodeToString(key)
	return subtle.ConstantTimeCompare([]byte(recomputed), []byte(stored)) == 1
}

func splitHash(stored string) (salt, key string, ok bool) {
	parts := strings.Split(stored, Separator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

var defaultHasher = NewHasher(MinIterations)

// HashPassword hashes password with the default work factor.
func HashPassword(password, salt string) (string, error) {
	return defaultHasher.Hash(password, salt)
}

// VerifyPassword checks candidate against a hash produced with the default work factor.
func VerifyPassword(stored, candidate string) bool {
	return defaultHasher.Verify(stored, candidate)
}

// NewSalt returns SaltBytes of crypto/rand output, hex encoded.
func NewSalt() (string, error) {
	b := make([]byte, SaltBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateStrongPassword draws length characters uniformly from letters,
// digits and ASCII punctuation using crypto/rand.
func GenerateStrongPassword(length int) (string, error) {
	if length <= 0 {
		length = DefaultPasswordLength
	}

	alphabetSize := big.NewInt(int64(len(passwordAlphabet)))
	var sb strings.Builder
	sb.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		sb.WriteByte(passwordAlphabet[n.Int64()])
	}
	return sb.String(), nil
}
