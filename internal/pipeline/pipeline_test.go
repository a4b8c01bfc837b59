package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ppiankov/smsguard/internal/llm"
	"github.com/ppiankov/smsguard/internal/model"
)

// stubLookuper answers from a fixed table and records what it was asked
type stubLookuper struct {
	mu      sync.Mutex
	results map[string]model.ReputationResult
	calls   [][]string
}

func (s *stubLookuper) Lookup(ctx context.Context, urls []string) map[string]model.ReputationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, urls)

	out := make(map[string]model.ReputationResult, len(urls))
	for _, u := range urls {
		if r, ok := s.results[u]; ok {
			out[u] = r
			continue
		}
		out[u] = model.ReputationResult{Via: model.ViaBatch}
	}
	return out
}

func newTestPipeline(t *testing.T, lookuper *stubLookuper, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithLookuper(lookuper)}, opts...)
	p, err := NewPipeline(model.DefaultConfig(), opts...)
	if err != nil {
		t.Fatalf("Failed to build pipeline: %v", err)
	}
	return p
}

func TestPipeline_Scenarios(t *testing.T) {
	phishing := model.ReputationResult{
		Unsafe:      true,
		ThreatTypes: []string{model.ThreatSocialEngineering},
		Via:         model.ViaBatch,
	}

	tests := []struct {
		name       string
		message    string
		reputation map[string]model.ReputationResult
		level      model.RiskLevel
		minScore   int
		maxScore   int
		reason     string
	}{
		{
			name:     "suspension with shortener",
			message:  "Hesabınız askıya alındı! Hemen doğrulayın: bit.ly/abc123",
			level:    model.RiskFraud,
			minScore: 80,
			maxScore: 100,
			reason:   "bit.ly",
		},
		{
			name:       "confirmed phishing link",
			message:    "Hesabınız askıya alındı! Hemen doğrulayın: bit.ly/abc123",
			reputation: map[string]model.ReputationResult{"http://bit.ly/abc123": phishing},
			level:      model.RiskFraud,
			minScore:   90,
			maxScore:   100,
			reason:     "🎣 Phishing detected: http://bit.ly/abc123",
		},
		{
			name:     "delivery failure without links",
			message:  "Kargo teslim edilemedi",
			level:    model.RiskHigh,
			minScore: 60,
			maxScore: 79,
			reason:   "teslim edilemedi",
		},
		{
			name:     "harmless greeting",
			message:  "Merhaba, yarın görüşelim",
			level:    model.RiskSafe,
			minScore: 0,
			maxScore: 0,
			reason:   "No risk indicators found",
		},
		{
			name:     "genuine notification with official link",
			message:  "Kargonuz teslim edilemedi. Takip: https://www.ptt.gov.tr 12.03.2025",
			level:    model.RiskSafe,
			minScore: 0,
			maxScore: 19,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(t, &stubLookuper{results: tt.reputation})

			result, err := p.Analyze(context.Background(), tt.message)
			if err != nil {
				t.Fatalf("Analyze failed: %v", err)
			}

			if result.RiskLevel != tt.level {
				t.Errorf("Expected level %s, got %s (reasons %v)", tt.level, result.RiskLevel, result.Reasons)
			}
			if result.Score < tt.minScore || result.Score > tt.maxScore {
				t.Errorf("Expected score in [%d,%d], got %d", tt.minScore, tt.maxScore, result.Score)
			}
			if len(result.Reasons) == 0 || len(result.Reasons) > model.MaxReasons {
				t.Errorf("Expected 1-%d reasons, got %v", model.MaxReasons, result.Reasons)
			}
			if tt.reason != "" && !strings.Contains(strings.Join(result.Reasons, "\n"), tt.reason) {
				t.Errorf("Expected a reason mentioning %q, got %v", tt.reason, result.Reasons)
			}
		})
	}
}

func TestPipeline_OfficialLinkFeedsBase(t *testing.T) {
	p := newTestPipeline(t, &stubLookuper{})

	result, err := p.Analyze(context.Background(), "Kargonuz teslim edilemedi. Takip: https://www.ptt.gov.tr 12.03.2025")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if !result.Metadata.HasOfficialLink {
		t.Error("Expected official link to be detected")
	}
	if result.Metadata.Breakdown.BaseLevel != model.RiskSafe {
		t.Errorf("Expected base override to safe, got %s", result.Metadata.Breakdown.BaseLevel)
	}
	if len(result.Metadata.Domains) != 1 || result.Metadata.Domains[0] != "ptt.gov.tr" {
		t.Errorf("Expected normalized domain ptt.gov.tr, got %v", result.Metadata.Domains)
	}
}

func TestPipeline_NoURLsSkipsLookup(t *testing.T) {
	lookuper := &stubLookuper{}
	p := newTestPipeline(t, lookuper)

	if _, err := p.Analyze(context.Background(), "Toplantı yarın 14:00"); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(lookuper.calls) != 0 {
		t.Errorf("Expected no lookup for a message without links, got %v", lookuper.calls)
	}
}

func TestPipeline_LookupReceivesExtractedURLs(t *testing.T) {
	lookuper := &stubLookuper{}
	p := newTestPipeline(t, lookuper)

	_, err := p.Analyze(context.Background(), "Bakınız www.example.com ve http://Example.org/a, tekrar www.example.com")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(lookuper.calls) != 1 {
		t.Fatalf("Expected one lookup call, got %d", len(lookuper.calls))
	}
	expected := []string{"https://www.example.com", "http://example.org/a"}
	got := lookuper.calls[0]
	if len(got) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Expected %q at %d, got %q", expected[i], i, got[i])
		}
	}
}

func TestPipeline_EmptyInput(t *testing.T) {
	p := newTestPipeline(t, &stubLookuper{})

	for _, msg := range []string{"", "   ", "\n\t"} {
		if _, err := p.Analyze(context.Background(), msg); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("Expected ErrEmptyInput for %q, got %v", msg, err)
		}
	}
}

func TestPipeline_AnalyzeHTML(t *testing.T) {
	p := newTestPipeline(t, &stubLookuper{})

	html := `<html><body><p>Hesabınız askıya alındı.</p><a href="http://ptt-odeme.com/giris">Giriş</a><script>var x = "icra";</script></body></html>`
	result, err := p.AnalyzeHTML(context.Background(), html)
	if err != nil {
		t.Fatalf("AnalyzeHTML failed: %v", err)
	}

	if result.Metadata.CriticalSignals != 0 {
		t.Error("Expected script content to be ignored")
	}
	if !result.Metadata.HasSuspiciousDomains {
		t.Errorf("Expected link target to be classified, got %+v", result.Metadata)
	}
}

func TestNewPipeline_InvalidDomainRule(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Domains.ImpostorRules = append(cfg.Domains.ImpostorRules, model.ImpostorRule{Name: "broken", Pattern: "("})

	if _, err := NewPipeline(cfg); err == nil {
		t.Error("Expected error for invalid impostor pattern")
	}
}

// End to end through the real reputation client against a fake service
func TestPipeline_DefaultLookupWiring(t *testing.T) {
	var mu sync.Mutex
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		mu.Unlock()

		var body struct {
			ThreatInfo struct {
				ThreatEntries []struct {
					URL string `json:"url"`
				} `json:"threatEntries"`
			} `json:"threatInfo"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		type entry struct {
			URL string `json:"url"`
		}
		type match struct {
			ThreatType    string `json:"threatType"`
			PlatformType  string `json:"platformType"`
			Threat        entry  `json:"threat"`
			CacheDuration string `json:"cacheDuration"`
		}
		var matches []match
		for _, e := range body.ThreatInfo.ThreatEntries {
			if strings.Contains(e.URL, "phish") {
				matches = append(matches, match{"SOCIAL_ENGINEERING", "ANY_PLATFORM", entry{e.URL}, "300s"})
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"matches": matches})
	}))
	defer server.Close()

	cfg := model.DefaultConfig()
	cfg.Reputation.APIKey = "test-key"
	cfg.Reputation.Endpoint = server.URL
	cfg.RateLimiting.RequestsPerSecond = 0
	cfg.Cache.Enabled = true

	p, err := NewPipeline(cfg)
	if err != nil {
		t.Fatalf("Failed to build pipeline: %v", err)
	}

	msg := "Ödülünüz hazır: http://phish.example.net/odul"
	first, err := p.Analyze(context.Background(), msg)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if first.RiskLevel != model.RiskFraud || first.Score < 90 {
		t.Errorf("Expected fraud >= 90 for confirmed phishing, got %s/%d", first.RiskLevel, first.Score)
	}
	if !first.Metadata.BatchMethodUsed {
		t.Error("Expected batch method to be reported")
	}
	if !first.Metadata.Breakdown.CriticalOverride {
		t.Error("Expected critical override in breakdown")
	}

	// Second analysis is served from the result cache
	second, err := p.Analyze(context.Background(), msg)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if second.RiskLevel != model.RiskFraud {
		t.Errorf("Expected cached verdict fraud, got %s", second.RiskLevel)
	}

	mu.Lock()
	defer mu.Unlock()
	if requests != 1 {
		t.Errorf("Expected one service request with caching enabled, got %d", requests)
	}
}

func TestPipeline_NoCredentialDegrades(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Reputation.APIKey = model.PlaceholderAPIKey

	p, err := NewPipeline(cfg)
	if err != nil {
		t.Fatalf("Failed to build pipeline: %v", err)
	}

	result, err := p.Analyze(context.Background(), "Detaylar: https://example.org/bilgi")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.RiskLevel != model.RiskSafe {
		t.Errorf("Expected safe without credential or indicators, got %s", result.RiskLevel)
	}
	if result.Metadata.LookupErrors != 0 {
		t.Errorf("Expected missing credential not to count as lookup error, got %d", result.Metadata.LookupErrors)
	}
}

type fixedProvider struct{}

func (fixedProvider) Name() string                       { return "fixed" }
func (fixedProvider) IsAvailable(ctx context.Context) bool { return true }
func (fixedProvider) Explain(ctx context.Context, req llm.ExplainRequest) (*llm.ExplainResponse, error) {
	return &llm.ExplainResponse{Text: "explained " + string(req.Result.RiskLevel), Model: "m"}, nil
}

func TestPipeline_ExplanationDoesNotChangeVerdict(t *testing.T) {
	plain := newTestPipeline(t, &stubLookuper{})
	explained := newTestPipeline(t, &stubLookuper{},
		WithExplainer(llm.NewExplainerWithProvider(fixedProvider{}, llm.Config{})))

	msg := "Kargo teslim edilemedi"
	a, _ := plain.Analyze(context.Background(), msg)
	b, _ := explained.Analyze(context.Background(), msg)

	if a.RiskLevel != b.RiskLevel || a.Score != b.Score || strings.Join(a.Reasons, "|") != strings.Join(b.Reasons, "|") {
		t.Errorf("Expected identical verdicts, got %+v and %+v", a, b)
	}

	e := ExplanationOf(b)
	if e == nil || e.Text != "explained high" {
		t.Errorf("Expected explanation attached, got %+v", e)
	}
	if ExplanationOf(a) != nil {
		t.Error("Expected no explanation without an explainer")
	}
}
