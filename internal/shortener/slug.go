package shortener

import (
	"crypto/sha256"
	"encoding/base32"
)

const (
	// PrimarySlugLength is the slug length issued for almost every URL
	PrimarySlugLength = 6

	// EscalatedSlugLength is used when the primary slug belongs to another URL
	EscalatedSlugLength = 10
)

// encoding is RFC 4648 base32 with a lowercase alphabet and no padding
var encoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// Hash returns the lowercase base32 form of the SHA-256 digest of a
// normalized URL. Slugs are prefixes of this string.
func Hash(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return encoding.EncodeToString(sum[:])
}

// Slug returns the first n characters of hash, or the whole hash if it is shorter
func Slug(hash string, n int) string {
	if n >= len(hash) {
		return hash
	}
	return hash[:n]
}
