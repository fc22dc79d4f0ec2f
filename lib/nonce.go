package lib

import (
	"strings"

	"github.com/google/uuid"
)

// Nonce returns a random string of exactly length characters, built by
// concatenating random 128-bit identifiers and truncating. A length below 1
// is clamped to 1.
func Nonce(length int) string {
	if length < 1 {
		length = 1
	}

	var b strings.Builder
	for b.Len() < length {
		b.WriteString(strings.ReplaceAll(uuid.NewString(), "-", ""))
	}
	return b.String()[:length]
}
