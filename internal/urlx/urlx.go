// Package urlx normalizes platform URLs into comparable domain keys.
package urlx

import (
	"net/url"
	"strings"
)

// Normalize canonicalizes a raw URL or bare host into a lowercased hostname.
// A schemeless input is treated as https. Returns "" and false when the input
// cannot be parsed into a host; it never returns an error to the caller.
//
// Platforms are registered and looked up through the same normalization, so a
// platform stored as "Game.com" matches a connecting "Origin: https://game.com".
func Normalize(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}

	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "https://" + trimmed
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Hostname() == "" {
		return "", false
	}

	return strings.ToLower(u.Hostname()), true
}
