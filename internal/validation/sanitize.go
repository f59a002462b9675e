package validation

import (
	"html"
	"strings"
)

// sqlDenylist is removed from sanitized text in this order.
// Removal is best-effort: overlapping fragments such as "x--p_" collapse into
// new matches, so this is never a substitute for parameterized queries.
var sqlDenylist = []string{";", "--", "/*", "*/", "xp_", "sp_"}

var unsafeSchemes = []string{"javascript:", "data:", "vbscript:"}

// Sanitize trims s, HTML-escapes it so markup renders as text, and strips the
// SQL denylist. Empty input yields "".
func Sanitize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	out := html.EscapeString(s)
	for _, frag := range sqlDenylist {
		out = strings.ReplaceAll(out, frag, "")
	}
	return out
}

// NormalizeEmail sanitizes an email address and lower-cases it for storage
// and lookups.
func NormalizeEmail(s string) string {
	return strings.ToLower(Sanitize(s))
}

// IsSafeURL reports whether u is a same-origin relative path.
func IsSafeURL(u string) bool {
	if u == "" {
		return false
	}
	lower := strings.ToLower(strings.TrimSpace(u))
	for _, scheme := range unsafeSchemes {
		if strings.HasPrefix(lower, scheme) {
			return false
		}
	}
	// "//host" and "/\host" are protocol-relative in browsers
	if strings.HasPrefix(u, "//") || strings.HasPrefix(u, `/\`) {
		return false
	}
	return strings.HasPrefix(u, "/")
}
