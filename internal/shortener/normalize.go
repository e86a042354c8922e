package shortener

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/markoblogo/abvx-shortener/internal/domain"
)

// defaultPorts maps a scheme to the port that is implied when none is given
var defaultPorts = map[string]int{
	"http":  80,
	"https": 443,
}

const maxPort = 65535

const upperhex = "0123456789ABCDEF"

// Normalize canonicalizes a raw URL so that equivalent inputs map to the
// same slug. It trims whitespace, lowercases scheme and host, drops the
// default port and the fragment, and leaves path and query untouched apart
// from percent-encoding non-ASCII bytes. An empty path is serialized as "/".
func Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty URL", domain.ErrInvalidURL)
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidURL, trimmed)
	}

	// url.Parse already lowercases the scheme
	if _, ok := defaultPorts[u.Scheme]; !ok {
		return "", fmt.Errorf("%w: only http/https URLs are allowed", domain.ErrInvalidURL)
	}

	if u.Opaque != "" || u.Hostname() == "" {
		return "", fmt.Errorf("%w: URL must be absolute with a host", domain.ErrInvalidURL)
	}

	host := strings.ToLower(u.Hostname())
	if strings.Contains(host, ":") {
		// IPv6 literal
		host = "[" + host + "]"
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port > maxPort {
			return "", fmt.Errorf("%w: invalid port %s", domain.ErrInvalidURL, p)
		}
		if port != defaultPorts[u.Scheme] {
			host = host + ":" + strconv.Itoa(port)
		}
	}
	u.Host = host
	u.RawQuery = escapeNonASCII(u.RawQuery)

	u.Fragment = ""
	u.RawFragment = ""

	if u.Path == "" && u.RawPath == "" {
		u.Path = "/"
	}

	return escapeNonASCII(u.String()), nil
}

// escapeNonASCII percent-encodes every byte outside ASCII with uppercase hex.
// ASCII bytes, including existing escapes, are kept as they are.
func escapeNonASCII(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			n++
		}
	}
	if n == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < utf8.RuneSelf {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}
