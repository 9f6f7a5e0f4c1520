// Package credential handles the per-player secrets that prove which side of a
// session a caller plays. Only digests are ever persisted.
package credential

import (
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// Digest returns the hex BLAKE2b-256 digest stored in place of a secret
func Digest(secret string) string {
	sum := blake2b.Sum256([]byte(normalize(secret)))
	return hex.EncodeToString(sum[:])
}

// Matches reports whether secret hashes to digest.
// An empty secret or digest never matches.
func Matches(secret, digest string) bool {
	if strings.TrimSpace(secret) == "" || digest == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(Digest(secret)), []byte(digest)) == 1
}

// normalize folds UUID-shaped secrets to their canonical form so that
// casing or brace variants of the same secret hash identically
func normalize(secret string) string {
	secret = strings.TrimSpace(secret)
	if id, err := uuid.Parse(secret); err == nil {
		return id.String()
	}
	return secret
}
