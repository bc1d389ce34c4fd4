// Package util provides small helpers shared across HabitLens components.
package util

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
)

// GuestIDPrefix marks identifiers issued to unauthenticated visitors.
const GuestIDPrefix = "guest_"

var guestIDPattern = regexp.MustCompile(`^guest_[a-f0-9]{32}$`)

// GenerateRandomID returns "{prefix}{hex}" with hexLength random hex characters.
func GenerateRandomID(prefix string, hexLength int) string {
	return prefix + GenerateRandomHex(hexLength)
}

// GenerateRandomHex returns length random hexadecimal characters from crypto/rand.
func GenerateRandomHex(length int) string {
	if length <= 0 {
		return ""
	}
	buf := make([]byte, (length+1)/2)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand.Read never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(buf)[:length]
}

// GenerateGuestID returns a new guest identifier "guest_<32 hex>".
func GenerateGuestID() string {
	return GenerateRandomID(GuestIDPrefix, 32)
}

// IsGuestID reports whether id has the guest identifier format.
func IsGuestID(id string) bool {
	return guestIDPattern.MatchString(id)
}
