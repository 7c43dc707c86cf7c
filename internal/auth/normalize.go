package auth

import "strings"

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
