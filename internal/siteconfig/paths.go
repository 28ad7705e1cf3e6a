package siteconfig

import (
	"net/url"
	"path"
	"strings"
)

// NormalizePath rewrites a site-relative path into canonical form: a single
// leading slash, no dot segments, no trailing slash unless it is the root.
// Query strings and fragments are kept as-is. Values carrying a URL scheme
// (https:, mailto:, ...) and protocol-relative references (//host/path) point
// off-site and are returned unchanged apart from trimming.
//
// NormalizePath is idempotent.
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if hasScheme(p) || isProtocolRelative(p) {
		return p
	}

	suffix := ""
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p, suffix = p[:i], p[i:]
	}

	return path.Clean("/"+p) + suffix
}

// IsExternal reports whether link points outside the site.
func IsExternal(link string) bool {
	link = strings.TrimSpace(link)
	return hasScheme(link) || isProtocolRelative(link)
}

// isProtocolRelative reports whether s is a network-path reference such as
// //fonts.example.com/css, i.e. it starts with two slashes and names a host.
func isProtocolRelative(s string) bool {
	if !strings.HasPrefix(s, "//") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Host != ""
}

// hasScheme reports whether s starts with an RFC 3986 scheme followed by ':'.
func hasScheme(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9', c == '+', c == '-', c == '.':
			if i == 0 {
				return false
			}
		case c == ':':
			return i > 0
		default:
			return false
		}
	}
	return false
}

// isAbsoluteURL reports whether raw parses as a URL with both scheme and host.
func isAbsoluteURL(raw string) bool {
	if strings.TrimSpace(raw) != raw || raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != ""
}
