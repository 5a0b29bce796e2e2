package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// NewID returns a new opaque unique identifier.
func NewID() string {
	return uuid.NewString()
}

// NewTeamCode returns a human-readable join code like "TEAM-3FA2B1".
// Codes are always upper case; lookups normalize before comparing.
func NewTeamCode() string {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		// Fall back to a uuid fragment if crypto/rand is unavailable.
		return "TEAM-" + strings.ToUpper(uuid.NewString()[:6])
	}
	return "TEAM-" + strings.ToUpper(hex.EncodeToString(buf))
}
