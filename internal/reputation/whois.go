package reputation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"

	"github.com/ppiankov/smsguard/internal/model"
)

// WhoisFunc returns the raw WHOIS text for a domain
type WhoisFunc func(ctx context.Context, domain string) (string, error)

// ErrNoCreatedDate is returned when a record parses but carries no usable creation date
var ErrNoCreatedDate = errors.New("whois record has no creation date")

var whoisDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
	"02.01.2006",
}

// Inspector looks up domain registration records
type Inspector struct {
	whois WhoisFunc
	now   func() time.Time
}

// InspectorOption configures an Inspector
type InspectorOption func(*Inspector)

// WithWhoisFunc replaces the network WHOIS query
func WithWhoisFunc(fn WhoisFunc) InspectorOption {
	return func(i *Inspector) { i.whois = fn }
}

// WithClock fixes the reference time used for AgeDays
func WithClock(now func() time.Time) InspectorOption {
	return func(i *Inspector) { i.now = now }
}

// NewInspector creates a registration inspector querying WHOIS servers directly
func NewInspector(timeout time.Duration, opts ...InspectorOption) *Inspector {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := whois.NewClient().SetTimeout(timeout)

	i := &Inspector{
		whois: func(ctx context.Context, domain string) (string, error) {
			return queryWhois(ctx, client, domain)
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// queryWhois runs the blocking whois client so a cancelled context returns early
func queryWhois(ctx context.Context, client *whois.Client, domain string) (string, error) {
	type answer struct {
		raw string
		err error
	}
	done := make(chan answer, 1)
	go func() {
		raw, err := client.Whois(domain)
		done <- answer{raw, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case a := <-done:
		return a.raw, a.err
	}
}

// Inspect fetches the registration record for the verdict's registrable
// domain, falling back to parent labels when no public suffix matched.
func (i *Inspector) Inspect(ctx context.Context, v model.DomainVerdict) (model.Registration, error) {
	domain := v.RegistrableDomain
	if domain == "" {
		domain = v.Domain
	}
	if domain == "" {
		return model.Registration{}, errors.New("no domain to inspect")
	}
	if v.Kind == model.VerdictNumeric && v.RegistrableDomain == "" {
		err := fmt.Errorf("%s is an IP literal", domain)
		return model.Registration{Domain: domain, Error: err.Error()}, err
	}

	// Without a known suffix, walk up the labels the way registrars expect
	candidates := []string{domain}
	if v.RegistrableDomain == "" {
		for p := parentDomain(domain); p != ""; p = parentDomain(p) {
			candidates = append(candidates, p)
		}
	}

	var lastErr error
	for _, candidate := range candidates {
		reg, err := i.lookup(ctx, candidate)
		if err == nil {
			return reg, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return model.Registration{Domain: domain, Error: lastErr.Error()}, lastErr
}

func (i *Inspector) lookup(ctx context.Context, domain string) (model.Registration, error) {
	raw, err := i.whois(ctx, domain)
	if err != nil {
		return model.Registration{}, fmt.Errorf("whois %s: %w", domain, err)
	}

	info, err := whoisparser.Parse(raw)
	if err != nil {
		return model.Registration{}, fmt.Errorf("parse whois for %s: %w", domain, err)
	}
	if info.Domain == nil {
		return model.Registration{}, fmt.Errorf("parse whois for %s: %w", domain, ErrNoCreatedDate)
	}

	created, ok := parseWhoisDate(info.Domain.CreatedDate)
	if !ok {
		return model.Registration{}, fmt.Errorf("%s: %w", domain, ErrNoCreatedDate)
	}

	reg := model.Registration{
		Domain:    domain,
		CreatedOn: created.Format("2006-01-02"),
		AgeDays:   max(0, int(i.now().Sub(created).Hours()/24)),
	}
	if t, ok := parseWhoisDate(info.Domain.UpdatedDate); ok {
		reg.UpdatedOn = t.Format("2006-01-02")
	}
	if t, ok := parseWhoisDate(info.Domain.ExpirationDate); ok {
		reg.ExpiresOn = t.Format("2006-01-02")
	}
	if info.Registrar != nil {
		reg.Registrar = info.Registrar.Name
	}
	return reg, nil
}

func parseWhoisDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range whoisDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parentDomain drops the first label while at least two remain
func parentDomain(domain string) string {
	parts := strings.Split(domain, ".")
	if len(parts) <= 2 {
		return ""
	}
	return strings.Join(parts[1:], ".")
}
