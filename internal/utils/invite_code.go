package utils

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// inviteAlphabet omits 0/O and 1/I so codes survive being read aloud. Its
// length divides 256, keeping byte-to-symbol mapping unbiased.
const inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	inviteGroups    = 3
	inviteGroupSize = 4
)

// GenerateInviteCode returns a random code shaped XXXX-XXXX-XXXX.
func GenerateInviteCode() (string, error) {
	raw := make([]byte, inviteGroups*inviteGroupSize)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	var b strings.Builder
	for i, v := range raw {
		if i > 0 && i%inviteGroupSize == 0 {
			b.WriteByte('-')
		}
		b.WriteByte(inviteAlphabet[int(v)%len(inviteAlphabet)])
	}
	return b.String(), nil
}

// NormalizeInviteCode canonicalizes user-typed codes before lookup.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
