package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// MaxVerificationAttempts is the number of failed lookups tolerated for a
// verification token before the pending entry is destroyed. Once destroyed,
// the user has to request a fresh token.
const MaxVerificationAttempts = 5

// VerificationTTL is how long a pending verification entry stays claimable.
const VerificationTTL = 24 * time.Hour

// VerificationEntry is the pending-verification state keyed by token.
// Tries counts failed claim attempts recorded against the token.
type VerificationEntry struct {
	UserID string
	Tries  int
}

// Claimable reports whether the entry can still redeem a verification.
// An entry that has accumulated MaxVerificationAttempts misses is dead
// even if it still exists in storage.
func (e VerificationEntry) Claimable() bool {
	return e.UserID != "" && e.Tries < MaxVerificationAttempts
}

// NewVerificationToken returns a 64-character hex token from 32 bytes of
// crypto/rand entropy.
func NewVerificationToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate verification token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
