package random

import "github.com/google/uuid"

// Random provides identifier and secret generation that can be mocked for testing
type Random interface {
	// UUID returns a new random (version 4) UUID
	UUID() uuid.UUID
}

// CryptoRandom implements Random using crypto/rand via google/uuid
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// UUID returns a fresh random UUID
func (r *CryptoRandom) UUID() uuid.UUID {
	return uuid.New()
}
