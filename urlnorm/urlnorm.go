// Package urlnorm implements the canonical URL form every other component
// keys off of. Normalization must be total on valid absolute URLs and
// idempotent: normalize(normalize(x)) == normalize(x).
package urlnorm

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ErrInvalidURL is returned when the input has no host after scheme
// insertion, or carries a malformed port.
var ErrInvalidURL = errors.New("urlnorm: invalid url")

// trackingParams is the compile-time constant set of query keys stripped
// during normalization. Extending this set never requires touching any
// other component.
var trackingParams = map[string]bool{
	"utm_source": true, "utm_medium": true, "utm_campaign": true,
	"utm_term": true, "utm_content": true, "utm_id": true,
	"fbclid": true, "gclid": true, "msclkid": true,
	"mc_cid": true, "mc_eid": true,
	"_ga": true, "_gl": true,
	"gad_source": true, "ref": true,
	"campaignid": true, "adgroupid": true,
}

func isTrackingParam(key string) bool {
	if trackingParams[key] {
		return true
	}
	return strings.HasPrefix(key, "utm_")
}

// Normalize produces the CanonicalURL form of s: default scheme https,
// lowercase host, no fragment, tracking params stripped, remaining query
// pairs sorted lexicographically, trailing slash stripped except for the
// bare root path.
func Normalize(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty string", ErrInvalidURL)
	}

	if !strings.Contains(s, "://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	if u.Port() != "" {
		if _, err := normalizePort(u.Port()); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
		}
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	if u.Path == "" {
		u.Path = "/"
	}
	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
		if u.Path == "" {
			u.Path = "/"
		}
	}

	if u.RawQuery != "" {
		values := u.Query()
		for key := range values {
			if isTrackingParam(strings.ToLower(key)) {
				values.Del(key)
			}
		}
		u.RawQuery = sortedQuery(values)
	}

	return u.String(), nil
}

// normalizePort validates a port string is numeric and in range; it exists
// purely to surface a malformed port as ErrInvalidURL rather than letting
// net/url silently accept it.
func normalizePort(p string) (string, error) {
	for _, r := range p {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("malformed port %q", p)
		}
	}
	if p == "" {
		return "", fmt.Errorf("empty port")
	}
	return p, nil
}

// sortedQuery renders url.Values as a query string with keys (and repeated
// values) in lexicographic order, independent of map iteration order.
func sortedQuery(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	first := true
	for _, k := range keys {
		vs := append([]string(nil), values[k]...)
		sort.Strings(vs)
		for _, v := range vs {
			if !first {
				b.WriteByte('&')
			}
			first = false
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

// Domain returns the lowercase host of s, ignoring normalization errors by
// falling back to a best-effort parse.
func Domain(s string) string {
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// Resolve resolves rel against base and returns its canonical form.
func Resolve(rel, base string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: bad base: %v", ErrInvalidURL, err)
	}
	relURL, err := url.Parse(rel)
	if err != nil {
		return "", fmt.Errorf("%w: bad relative url: %v", ErrInvalidURL, err)
	}
	resolved := baseURL.ResolveReference(relURL)
	return Normalize(resolved.String())
}

// IsValid reports whether s normalizes without error.
func IsValid(s string) bool {
	_, err := Normalize(s)
	return err == nil
}

// Equivalent reports whether a and b share a canonical form.
func Equivalent(a, b string) bool {
	na, errA := Normalize(a)
	nb, errB := Normalize(b)
	if errA != nil || errB != nil {
		return false
	}
	return na == nb
}
