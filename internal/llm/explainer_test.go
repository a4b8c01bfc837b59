package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/smsguard/internal/model"
)

// MockProvider implements the Provider interface for testing
type MockProvider struct {
	name      string
	available bool
	response  *ExplainResponse
	err       error
	lastReq   ExplainRequest
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Explain(ctx context.Context, req ExplainRequest) (*ExplainResponse, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *MockProvider) IsAvailable(ctx context.Context) bool {
	return m.available
}

func TestNewExplainer_Disabled(t *testing.T) {
	explainer, err := NewExplainer(Config{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if explainer.IsEnabled() {
		t.Error("Expected explainer to be disabled")
	}
	if explainer.ProviderName() != "" {
		t.Error("Expected empty provider name when disabled")
	}
	if got := explainer.Explain(context.Background(), "hi", model.AnalysisResult{}); got != nil {
		t.Errorf("Expected nil explanation when disabled, got %+v", got)
	}
}

func TestNewExplainer_UnknownProvider(t *testing.T) {
	if _, err := NewExplainer(Config{Provider: "anthropic"}); err == nil {
		t.Error("Expected error for unsupported provider")
	}
}

func TestExplainer_NilSafe(t *testing.T) {
	var explainer *Explainer
	if explainer.IsEnabled() {
		t.Error("Expected nil explainer to be disabled")
	}
	if explainer.Explain(context.Background(), "x", model.AnalysisResult{}) != nil {
		t.Error("Expected nil explanation from nil explainer")
	}
}

func TestExplainer_ProviderUnavailable(t *testing.T) {
	explainer := NewExplainerWithProvider(&MockProvider{name: "test-provider"}, Config{})

	got := explainer.Explain(context.Background(), "x", fraudResult())
	if got == nil {
		t.Fatal("Expected explanation with warnings")
	}
	if got.Enabled {
		t.Error("Expected explanation to be marked as disabled")
	}
	if len(got.Warnings) == 0 || !strings.Contains(got.Warnings[0], "not available") {
		t.Errorf("Expected unavailability warning, got %v", got.Warnings)
	}
}

func TestExplainer_Success(t *testing.T) {
	provider := &MockProvider{
		name:      "test-provider",
		available: true,
		response: &ExplainResponse{
			Text:       "Do not open http://bit.ly/abc.",
			CitedURLs:  []string{"http://bit.ly/abc"},
			Model:      "test-model",
			TokensUsed: 150,
		},
	}
	explainer := NewExplainerWithProvider(provider, Config{Model: "test-model", MaxTokens: 200})

	result := fraudResult()
	got := explainer.Explain(context.Background(), "msg", result)

	if got == nil || !got.Enabled {
		t.Fatalf("Expected enabled explanation, got %+v", got)
	}
	if got.Provider != "test-provider" || got.Model != "test-model" {
		t.Errorf("Unexpected provider/model: %s/%s", got.Provider, got.Model)
	}
	if got.Text != "Do not open http://bit.ly/abc." {
		t.Errorf("Unexpected text: %s", got.Text)
	}
	if len(provider.lastReq.AllowedURLs) != 1 || provider.lastReq.AllowedURLs[0] != "http://bit.ly/abc" {
		t.Errorf("Expected message URLs as allowlist, got %v", provider.lastReq.AllowedURLs)
	}
	if provider.lastReq.MaxTokens != 200 {
		t.Errorf("Expected max tokens 200, got %d", provider.lastReq.MaxTokens)
	}

	joined := strings.Join(got.Warnings, "\n")
	if !strings.Contains(joined, "Tokens used: 150") || !strings.Contains(joined, "Verified 1 cited links") {
		t.Errorf("Expected token and citation notes, got %v", got.Warnings)
	}

	// Verdict is untouched
	if result.RiskLevel != model.RiskFraud || result.Score != 100 {
		t.Error("Expected verdict to be unchanged")
	}
}

func TestExplainer_ProviderError(t *testing.T) {
	provider := &MockProvider{name: "test-provider", available: true, err: errors.New("API rate limit exceeded")}
	explainer := NewExplainerWithProvider(provider, Config{})

	got := explainer.Explain(context.Background(), "msg", fraudResult())
	if got == nil {
		t.Fatal("Expected explanation with error warning")
	}
	if !got.Enabled {
		t.Error("Expected explanation to be marked as enabled (but failed)")
	}
	if len(got.Warnings) == 0 || !strings.Contains(got.Warnings[0], "failed") || !strings.Contains(got.Warnings[0], "rate limit") {
		t.Errorf("Expected warning to mention error: %v", got.Warnings)
	}
}

func TestRenderText(t *testing.T) {
	if RenderText(nil) != "" {
		t.Error("Expected empty text for nil explanation")
	}

	text := RenderText(&model.Explanation{
		Enabled:  true,
		Provider: "openai",
		Model:    "gpt-4o-mini",
		Text:     "Likely phishing.",
		Warnings: []string{"Tokens used: 10"},
	})
	for _, want := range []string{"openai", "gpt-4o-mini", "determined independently", "Likely phishing.", "Tokens used: 10"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected rendered text to contain %q, got:\n%s", want, text)
		}
	}

	empty := RenderText(&model.Explanation{Provider: "ollama"})
	if !strings.Contains(empty, "No explanation generated") {
		t.Errorf("Expected placeholder for empty explanation, got %s", empty)
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("Kargonuz teslim edilemedi", fraudResult(), []string{"http://bit.ly/abc"})

	for _, want := range []string{
		"Kargonuz teslim edilemedi",
		"fraud (score 100/100)",
		"🎣 Phishing detected: http://bit.ly/abc",
		"SOCIAL_ENGINEERING: http://bit.ly/abc",
		"- http://bit.ly/abc",
		"verdict is final",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}

	noLinks := BuildPrompt("Merhaba", model.AnalysisResult{RiskLevel: model.RiskSafe}, nil)
	if !strings.Contains(noLinks, "no links") {
		t.Error("Expected prompt to forbid links when the message has none")
	}
}

func TestJoinURLs_Many(t *testing.T) {
	urls := make([]string, 15)
	for i := range urls {
		urls[i] = "http://example.com/" + string(rune('a'+i))
	}
	joined := joinURLs(urls)
	if !strings.Contains(joined, "and 5 more") {
		t.Errorf("Expected truncation note, got %s", joined)
	}
}

func TestConfigFromModel(t *testing.T) {
	cfg := ConfigFromModel(
		model.LLMConfig{Provider: "ollama", Model: "llama3.2", Timeout: 10, MaxTokens: 300},
		model.HTTPConfig{HTTPSProxy: "http://proxy:3128"},
	)
	if cfg.Provider != "ollama" || cfg.Model != "llama3.2" || cfg.Timeout != 10 || cfg.MaxTokens != 300 {
		t.Errorf("Unexpected LLM fields: %+v", cfg)
	}
	if cfg.HTTPSProxy != "http://proxy:3128" {
		t.Errorf("Expected proxy settings carried over, got %+v", cfg)
	}

	def := DefaultConfig()
	if def.Provider != "" || def.Timeout != 30 {
		t.Errorf("Expected disabled default with 30s timeout, got %+v", def)
	}
}
