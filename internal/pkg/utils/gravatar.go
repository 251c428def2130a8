package utils

import (
	"crypto/md5"
	"fmt"
	"strings"
)

// GetGravatarURL returns the avatar fallback for accounts that never
// uploaded a picture. Gravatar hashes the normalized address, so the
// email is trimmed and lowercased first. Size defaults to the 200px
// profile-page rendering.
func GetGravatarURL(email string, size int) string {
	if size <= 0 {
		size = 200
	}

	normalized := strings.ToLower(strings.TrimSpace(email))
	hash := md5.Sum([]byte(normalized))

	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?s=%d&d=mp", hash, size)
}
