package extract

import (
	"net"
	"net/netip"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// One scan covers explicit schemes, www. tokens and bare label.tld[/path] tokens.
var urlPattern = regexp.MustCompile(`(?i)` +
	`https?://[^\s<>"']+` +
	`|www\.[^\s<>"']+\.[^\s<>"']+` +
	`|[\p{L}\p{N}][\p{L}\p{N}-]*(?:\.[\p{L}\p{N}-]+)*\.[a-z]{2,}(?:/[^\s<>"']*)?`)

const trailingPunct = ".,;:!?)]}"

// ExtractURLs returns the normalized absolute URLs found in text,
// deduplicated in first-seen order
func ExtractURLs(text string) []string {
	var urls []string
	seen := make(map[string]bool)

	for _, loc := range urlPattern.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		token := text[start:end]

		if !hasScheme(token) && !hasPrefixFold(token, "www.") {
			// Bare shapes must stand alone: not an email domain, not glued to a word.
			if prev, _ := utf8.DecodeLastRuneInString(text[:start]); start > 0 && prev == '@' {
				continue
			}
			if next, _ := utf8.DecodeRuneInString(text[end:]); end < len(text) && isWordRune(next) {
				continue
			}
		}

		normalized, ok := NormalizeURL(token)
		if !ok || seen[normalized] {
			continue
		}
		// "TL.Son gün" is a sentence join, not a link
		if !hasScheme(token) && !hasPrefixFold(token, "www.") && !hasKnownTLD(normalized) {
			continue
		}
		seen[normalized] = true
		urls = append(urls, normalized)
	}

	return urls
}

// NormalizeURL turns a raw token into an absolute http(s) URL.
// It reports false when the result fails strict validation.
func NormalizeURL(token string) (string, bool) {
	token = strings.TrimRight(strings.TrimSpace(token), trailingPunct)
	if token == "" {
		return "", false
	}

	switch {
	case hasScheme(token):
		idx := strings.Index(token, "://")
		token = strings.ToLower(token[:idx]) + token[idx:]
	case hasPrefixFold(token, "www."):
		token = "https://" + token
	default:
		token = "http://" + token
	}

	u, err := url.Parse(token)
	if err != nil {
		return "", false
	}
	if !ValidHTTPURL(u) {
		return "", false
	}

	host, ok := asciiHost(u.Hostname())
	if !ok {
		return "", false
	}
	if port := u.Port(); port != "" {
		host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	u.Host = host
	return u.String(), true
}

// asciiHost lower-cases the host and converts IDN labels to their xn-- form,
// so display and lookup share one spelling
func asciiHost(host string) (string, bool) {
	host = strings.ToLower(host)
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr.String(), true
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", false
	}
	return ascii, true
}

// hasKnownTLD reports whether the URL's top-level label is an ICANN suffix
func hasKnownTLD(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.TrimSuffix(u.Hostname(), ".")
	if _, err := netip.ParseAddr(host); err == nil {
		return true
	}
	tld := host[strings.LastIndex(host, ".")+1:]
	if tld == "" {
		return false
	}
	_, icann := publicsuffix.PublicSuffix("x." + tld)
	return icann
}

// ValidHTTPURL checks scheme, host presence and IDNA validity of the host
func ValidHTTPURL(u *url.URL) bool {
	if u == nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}

	host := u.Hostname()
	if host == "" {
		return false
	}
	if _, err := netip.ParseAddr(host); err == nil {
		return true
	}
	if !strings.Contains(strings.Trim(host, "."), ".") {
		return false
	}

	_, err := idna.Lookup.ToASCII(strings.ToLower(host))
	return err == nil
}

func hasScheme(token string) bool {
	return hasPrefixFold(token, "http://") || hasPrefixFold(token, "https://")
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
