// Package canonical normalizes page addresses so that two references to the
// same page compare equal as plain strings.
package canonical

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path"
	"strings"
)

// ErrInvalidURL is returned for addresses that cannot be resolved to an
// absolute http(s) URL with a host.
var ErrInvalidURL = errors.New("invalid url")

// Policy controls the parts of canonicalization that are a judgement call.
type Policy struct {
	// KeepQuery retains the query string as part of a page's identity.
	KeepQuery bool
}

// DefaultPolicy keeps query strings.
var DefaultPolicy = Policy{KeepQuery: true}

// URL is an absolute, canonicalized page address. The zero value is not a
// valid URL; obtain one through Parse.
type URL struct {
	u *url.URL
	s string
}

// Parse canonicalizes raw using DefaultPolicy.
func Parse(raw string, base *URL) (URL, error) {
	return DefaultPolicy.Parse(raw, base)
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(raw string) URL {
	u, err := Parse(raw, nil)
	if err != nil {
		panic(err)
	}
	return u
}

// Parse canonicalizes raw, resolving it against base when raw is relative.
// Without a base, a scheme-less address such as "example.com" is treated as https.
func (p Policy) Parse(raw string, base *URL) (URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return URL{}, fmt.Errorf("%w: empty address", ErrInvalidURL)
	}

	if base == nil && !hasScheme(raw) {
		raw = "https://" + strings.TrimPrefix(raw, "//")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return URL{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if base != nil && base.u != nil {
		parsed = base.u.ResolveReference(parsed)
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return URL{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, parsed.Scheme)
	}

	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return URL{}, fmt.Errorf("%w: missing host in %q", ErrInvalidURL, raw)
	}
	if port := parsed.Port(); port != "" && !isDefaultPort(parsed.Scheme, port) {
		host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		// bare IPv6 literal
		host = "[" + host + "]"
	}

	out := &url.URL{
		Scheme: parsed.Scheme,
		Host:   host,
		Path:   cleanPath(parsed.Path),
	}
	if p.KeepQuery {
		out.RawQuery = parsed.RawQuery
	}

	return URL{u: out, s: out.String()}, nil
}

// String returns the canonical form. Two URLs are the same page iff their
// strings are equal.
func (u URL) String() string { return u.s }

// IsZero reports whether u was never initialized.
func (u URL) IsZero() bool { return u.u == nil }

// Scheme returns the lower-cased scheme.
func (u URL) Scheme() string {
	if u.u == nil {
		return ""
	}
	return u.u.Scheme
}

// Host returns the lower-cased host, including a non-default port.
func (u URL) Host() string {
	if u.u == nil {
		return ""
	}
	return u.u.Host
}

// Path returns the decoded path without a trailing slash. The site root has
// an empty path.
func (u URL) Path() string {
	if u.u == nil {
		return ""
	}
	return u.u.Path
}

// Origin returns scheme://host.
func (u URL) Origin() string {
	return u.Scheme() + "://" + u.Host()
}

// Segments returns the non-empty path segments.
func (u URL) Segments() []string {
	var segs []string
	for _, s := range strings.Split(u.Path(), "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// Resolve canonicalizes ref relative to u using DefaultPolicy.
func (u URL) Resolve(ref string) (URL, error) {
	return DefaultPolicy.Parse(ref, &u)
}

// SameSite reports whether u and o belong to the same site, ignoring a
// leading "www." on either host.
func (u URL) SameSite(o URL) bool {
	return SameSite(u, o)
}

// SameSite compares hosts with any leading "www." removed.
func SameSite(a, b URL) bool {
	if a.u == nil || b.u == nil {
		return false
	}
	return stripWWW(a.u.Host) == stripWWW(b.u.Host)
}

// IsSitemap reports whether u looks like a sitemap document rather than a page.
func (u URL) IsSitemap() bool {
	p := strings.ToLower(u.Path())
	if !strings.HasSuffix(p, ".xml") && !strings.HasSuffix(p, ".xml.gz") {
		return false
	}
	return strings.Contains(p, "sitemap")
}

func stripWWW(host string) string {
	return strings.TrimPrefix(host, "www.")
}

func hasScheme(raw string) bool {
	i := strings.Index(raw, ":")
	if i <= 0 {
		return false
	}
	scheme := strings.ToLower(raw[:i])
	for _, r := range scheme {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '+' && r != '-' && r != '.' {
			return false
		}
	}
	// "example.com:8080/path" parses as scheme "example.com"; only treat
	// well-formed schemes followed by something other than a port as schemes.
	rest := raw[i+1:]
	if strings.HasPrefix(rest, "//") {
		return true
	}
	if len(rest) > 0 && rest[0] >= '0' && rest[0] <= '9' {
		return false
	}
	return !strings.Contains(scheme, ".")
}

func isDefaultPort(scheme, port string) bool {
	return (scheme == "http" && port == "80") || (scheme == "https" && port == "443")
}

func cleanPath(p string) string {
	if p == "" {
		return ""
	}
	cleaned := path.Clean("/" + p)
	return strings.TrimRight(cleaned, "/")
}
