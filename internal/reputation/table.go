package reputation

import (
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/unicode/norm"

	"github.com/ppiankov/smsguard/internal/model"
)

var (
	numericDomainPattern = regexp.MustCompile(`^\d{3,}\.(com|net|org|info)$`)
	mainLabelPattern     = regexp.MustCompile(`^[a-z0-9-]+$`)
)

const minMainLabelLen = 3

// Table classifies domains against the official whitelist, shortener list
// and impostor rules. It is immutable after construction and safe for
// concurrent use.
type Table struct {
	official   map[string]bool
	shorteners map[string]bool
	rules      []*compiledRule
}

type compiledRule struct {
	name    string
	pattern *regexp.Regexp
	gov     bool
}

// NewTable builds a table from config (defaults when nil).
// An impostor rule that does not compile is a configuration error.
func NewTable(cfg *model.DomainsConfig) (*Table, error) {
	if cfg == nil {
		def := model.DefaultDomains()
		cfg = &def
	}

	table := &Table{
		official:   make(map[string]bool, len(cfg.Official)),
		shorteners: make(map[string]bool, len(cfg.Shorteners)),
		rules:      make([]*compiledRule, 0, len(cfg.ImpostorRules)),
	}

	for _, d := range cfg.Official {
		if n := NormalizeDomain(d); n != "" {
			table.official[n] = true
		}
	}
	for _, d := range cfg.Shorteners {
		if n := NormalizeDomain(d); n != "" {
			table.shorteners[n] = true
		}
	}

	for _, rule := range cfg.ImpostorRules {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("impostor rule %q: %w", rule.Name, err)
		}
		table.rules = append(table.rules, &compiledRule{
			name:    rule.Name,
			pattern: re,
			gov:     rule.Gov,
		})
	}

	return table, nil
}

// Classify returns the verdict for a bare domain (ports and a trailing dot are tolerated)
func (t *Table) Classify(domain string) model.DomainVerdict {
	host := NormalizeDomain(domain)
	verdict := model.DomainVerdict{
		Domain:            host,
		RegistrableDomain: registrable(host),
		Kind:              model.VerdictUnclassified,
	}

	if host == "" {
		verdict.Kind = model.VerdictMalformed
		verdict.Rule = "empty"
		return verdict
	}

	// Whitelist short-circuits every heuristic below
	if entry, ok := matchSuffix(host, t.official); ok {
		verdict.Kind = model.VerdictOfficial
		verdict.Rule = entry
		return verdict
	}

	if entry, ok := matchSuffix(host, t.shorteners); ok {
		verdict.Kind = model.VerdictShortener
		verdict.Rule = entry
		return verdict
	}

	legitGov := host == "gov.tr" || strings.HasSuffix(host, ".gov.tr")
	for _, rule := range t.rules {
		if rule.gov && legitGov {
			continue
		}
		if rule.pattern.MatchString(host) {
			verdict.Kind = model.VerdictImpostor
			verdict.Rule = rule.name
			return verdict
		}
	}

	if numericDomainPattern.MatchString(host) {
		verdict.Kind = model.VerdictNumeric
		verdict.Rule = "numeric-name"
		return verdict
	}
	if _, err := netip.ParseAddr(host); err == nil {
		verdict.Kind = model.VerdictNumeric
		verdict.Rule = "ip-literal"
		return verdict
	}

	label, _, _ := strings.Cut(host, ".")
	switch {
	case len([]rune(label)) < minMainLabelLen:
		verdict.Kind = model.VerdictMalformed
		verdict.Rule = "short-label"
	case !mainLabelPattern.MatchString(label):
		verdict.Kind = model.VerdictMalformed
		verdict.Rule = "invalid-chars"
	}

	return verdict
}

// ClassifyURL classifies the host of an absolute URL
func (t *Table) ClassifyURL(rawURL string) model.DomainVerdict {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return model.DomainVerdict{
			Domain: rawURL,
			Kind:   model.VerdictMalformed,
			Rule:   "unparseable",
		}
	}
	return t.Classify(u.Hostname())
}

// IsOfficial reports whether the domain is on the whitelist
func (t *Table) IsOfficial(domain string) bool {
	_, ok := matchSuffix(NormalizeDomain(domain), t.official)
	return ok
}

// NormalizeDomain lower-cases and canonicalizes a host name: port and
// trailing dot are removed, punycode is decoded, NFKC applied and a
// leading "www." stripped.
func NormalizeDomain(domain string) string {
	host := strings.TrimSpace(domain)

	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	host = strings.TrimSuffix(host, ".")

	if u, err := idna.ToUnicode(host); err == nil {
		host = u
	}

	host = strings.ToLower(norm.NFKC.String(host))
	host = strings.TrimPrefix(host, "www.")

	return host
}

// matchSuffix reports the list entry equal to host or a parent of it
func matchSuffix(host string, set map[string]bool) (string, bool) {
	if set[host] {
		return host, true
	}
	for i := 0; i < len(host); i++ {
		if host[i] == '.' && set[host[i+1:]] {
			return host[i+1:], true
		}
	}
	return "", false
}

func registrable(host string) string {
	if host == "" {
		return ""
	}
	if _, err := netip.ParseAddr(host); err == nil {
		return ""
	}

	ascii, err := idna.ToASCII(host)
	if err != nil {
		return ""
	}
	etld1, err := publicsuffix.EffectiveTLDPlusOne(ascii)
	if err != nil {
		return ""
	}
	if u, err := idna.ToUnicode(etld1); err == nil {
		return u
	}
	return etld1
}
