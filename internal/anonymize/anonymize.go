// Package anonymize turns raw Bluetooth device names into short, salted,
// non-reversible tokens. The salt is generated per Anonymizer instance and
// never persisted, so the same physical device cannot be correlated across
// recording sessions.
package anonymize

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// UnknownToken is returned for devices with no advertised name.
const UnknownToken = "Unknown"

// tokenPrefix labels anonymized tokens in the event log.
const tokenPrefix = "Device_"

// hashWidth is the number of hex characters kept from the digest.
const hashWidth = 6

// Anonymizer maps raw device names to stable anonymous tokens for the
// lifetime of one recording session. It is safe for concurrent use.
type Anonymizer struct {
	salt string

	mu      sync.Mutex
	devices map[string]string
}

// New creates an Anonymizer with a random session-scoped salt.
func New() (*Anonymizer, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	return NewWithSalt(hex.EncodeToString(raw)), nil
}

// NewWithSalt creates an Anonymizer with an explicit salt. Intended for
// tests that need deterministic output; production callers should use New.
func NewWithSalt(salt string) *Anonymizer {
	return &Anonymizer{
		salt:    salt,
		devices: make(map[string]string),
	}
}

// Anonymize returns the token for a raw device name. The same name always
// yields the same token for the life of this Anonymizer; distinct names
// yield distinct tokens up to hash-collision probability. An empty name
// returns UnknownToken regardless of salt.
func (a *Anonymizer) Anonymize(name string) string {
	if name == "" {
		return UnknownToken
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if token, ok := a.devices[name]; ok {
		return token
	}

	sum := sha256.Sum256([]byte(a.salt + name))
	token := tokenPrefix + hex.EncodeToString(sum[:])[:hashWidth]
	a.devices[name] = token
	return token
}
