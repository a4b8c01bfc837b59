package reputation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/smsguard/internal/model"
)

const sampleWhois = `Domain Name: PTT-KARGO-TAKIP.COM
Registry Domain ID: 2890001234_DOMAIN_COM-VRSN
Registrar WHOIS Server: whois.example-registrar.com
Registrar URL: http://www.example-registrar.com
Updated Date: 2026-10-02T08:15:00Z
Creation Date: 2026-10-01T08:15:00Z
Registry Expiry Date: 2027-10-01T08:15:00Z
Registrar: Example Registrar, Inc.
Registrar IANA ID: 9999
Domain Status: clientTransferProhibited https://icann.org/epp#clientTransferProhibited
Name Server: NS1.EXAMPLE-DNS.NET
Name Server: NS2.EXAMPLE-DNS.NET
DNSSEC: unsigned
`

func fixedClock() time.Time {
	return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
}

func TestInspector_Inspect(t *testing.T) {
	var queried []string
	inspector := NewInspector(time.Second,
		WithClock(fixedClock),
		WithWhoisFunc(func(ctx context.Context, domain string) (string, error) {
			queried = append(queried, domain)
			return sampleWhois, nil
		}),
	)

	table := newDefaultTable(t)
	reg, err := inspector.Inspect(context.Background(), table.Classify("www.ptt-kargo-takip.com"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(queried) != 1 || queried[0] != "ptt-kargo-takip.com" {
		t.Errorf("Expected a single query for the registrable domain, got %v", queried)
	}
	if reg.CreatedOn != "2026-10-01" {
		t.Errorf("Expected created 2026-10-01, got %q", reg.CreatedOn)
	}
	if reg.AgeDays != 14 {
		t.Errorf("Expected age 14 days, got %d", reg.AgeDays)
	}
	if reg.ExpiresOn != "2027-10-01" {
		t.Errorf("Expected expiry 2027-10-01, got %q", reg.ExpiresOn)
	}
}

func TestInspector_WhoisError(t *testing.T) {
	inspector := NewInspector(time.Second, WithWhoisFunc(func(ctx context.Context, domain string) (string, error) {
		return "", errors.New("connection refused")
	}))

	reg, err := inspector.Inspect(context.Background(), model.DomainVerdict{
		Domain:            "example.org",
		RegistrableDomain: "example.org",
	})
	if err == nil {
		t.Fatal("Expected error when whois fails")
	}
	if !strings.Contains(reg.Error, "connection refused") {
		t.Errorf("Expected error recorded on registration, got %q", reg.Error)
	}
	if reg.Domain != "example.org" {
		t.Errorf("Expected domain example.org, got %q", reg.Domain)
	}
}

func TestInspector_WalksParentsWithoutSuffix(t *testing.T) {
	var queried []string
	inspector := NewInspector(time.Second,
		WithClock(fixedClock),
		WithWhoisFunc(func(ctx context.Context, domain string) (string, error) {
			queried = append(queried, domain)
			if domain != "b.internal" {
				return "", errors.New("no whois server")
			}
			return sampleWhois, nil
		}),
	)

	reg, err := inspector.Inspect(context.Background(), model.DomainVerdict{Domain: "x.a.b.internal"})
	if err != nil {
		t.Fatalf("Expected parent lookup to succeed, got %v", err)
	}
	if reg.Domain != "b.internal" {
		t.Errorf("Expected record for b.internal, got %q", reg.Domain)
	}

	expected := []string{"x.a.b.internal", "a.b.internal", "b.internal"}
	if strings.Join(queried, ",") != strings.Join(expected, ",") {
		t.Errorf("Expected queries %v, got %v", expected, queried)
	}
}

func TestInspector_IPLiteral(t *testing.T) {
	called := false
	inspector := NewInspector(time.Second, WithWhoisFunc(func(ctx context.Context, domain string) (string, error) {
		called = true
		return "", nil
	}))

	table := newDefaultTable(t)
	if _, err := inspector.Inspect(context.Background(), table.Classify("10.0.0.1")); err == nil {
		t.Error("Expected error for IP literal")
	}
	if called {
		t.Error("Expected no whois query for IP literal")
	}
}

func TestInspector_Cancelled(t *testing.T) {
	inspector := NewInspector(time.Second, WithWhoisFunc(func(ctx context.Context, domain string) (string, error) {
		return "", ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := inspector.Inspect(ctx, model.DomainVerdict{Domain: "a.b.c.example"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestParseWhoisDate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		ok       bool
	}{
		{"2026-10-01T08:15:00Z", "2026-10-01", true},
		{"2019-03-04 10:11:12", "2019-03-04", true},
		{"2019-03-04", "2019-03-04", true},
		{"04-Mar-2019", "2019-03-04", true},
		{"2019.03.04", "2019-03-04", true},
		{"  ", "", false},
		{"sometime last year", "", false},
	}

	for _, tt := range tests {
		got, ok := parseWhoisDate(tt.input)
		if ok != tt.ok {
			t.Errorf("Expected ok=%v for %q, got %v", tt.ok, tt.input, ok)
			continue
		}
		if ok && got.Format("2006-01-02") != tt.expected {
			t.Errorf("Expected %s for %q, got %s", tt.expected, tt.input, got.Format("2006-01-02"))
		}
	}
}
