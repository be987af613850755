package app

import (
	"net/url"
	"strings"
)

// originAllowed builds the CORS origin check for the configured patterns.
// Patterns are hosts ("books.example.com"), subdomain wildcards
// ("*.example.com"), any-port hosts ("localhost:*") or "*".
func originAllowed(patterns []string) func(origin string) bool {
	normalized := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			normalized = append(normalized, p)
		}
	}
	return func(origin string) bool {
		host := originHost(origin)
		for _, p := range normalized {
			if hostMatches(p, host) {
				return true
			}
		}
		return false
	}
}

// originHost returns the lower-cased "host[:port]" of an Origin header.
func originHost(origin string) string {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil || u.Host == "" {
		return strings.ToLower(origin)
	}
	return strings.ToLower(u.Host)
}

func hostMatches(pattern, host string) bool {
	switch {
	case pattern == "*" || pattern == host:
		return true
	case strings.HasPrefix(pattern, "*."):
		return strings.HasSuffix(host, pattern[1:])
	case strings.HasSuffix(pattern, ":*"):
		return strings.HasPrefix(host, pattern[:len(pattern)-1])
	}
	return false
}
