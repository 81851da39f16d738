// Package profileurl extracts profile handles from social-network URLs.
package profileurl

import (
	"net/url"
	"regexp"
	"strings"
)

// Reasons reported for URLs that are not profiles.
const (
	ReasonInvalidURL      = "invalid URL"
	ReasonNotInstagram    = "not an Instagram profile"
	ReasonNotProfile      = "this page is not a profile"
	ReasonInvalidUsername = "invalid username"
)

// Result is the outcome of parsing a URL. Username is set when OK is true,
// Reason otherwise.
type Result struct {
	OK       bool   `json:"ok"`
	Username string `json:"username,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// nonProfileSegments are first path segments of Instagram pages that are
// not profiles.
var nonProfileSegments = map[string]bool{
	"p":         true,
	"reel":      true,
	"reels":     true,
	"stories":   true,
	"explore":   true,
	"accounts":  true,
	"direct":    true,
	"about":     true,
	"developer": true,
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._]+$`)

func fail(reason string) Result { return Result{Reason: reason} }

// ParseInstagramUsername returns the username of an Instagram profile URL
// such as https://www.instagram.com/some.user/.
func ParseInstagramUsername(raw string) Result {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fail(ReasonInvalidURL)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host != "instagram.com" {
		return fail(ReasonNotInstagram)
	}

	var parts []string
	for _, p := range strings.Split(u.Path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return fail(ReasonNotInstagram)
	}
	first := parts[0]
	if nonProfileSegments[first] {
		return fail(ReasonNotProfile)
	}
	username := strings.TrimSpace(first)
	if !usernamePattern.MatchString(username) {
		return fail(ReasonInvalidUsername)
	}
	return Result{OK: true, Username: username}
}
