package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/smsguard/internal/model"
)

// Provider generates explanations for finished verdicts
type Provider interface {
	// Name returns the provider name
	Name() string

	// Explain describes a verdict in plain language without changing it
	Explain(ctx context.Context, req ExplainRequest) (*ExplainResponse, error)

	// IsAvailable checks if the provider is configured and reachable
	IsAvailable(ctx context.Context) bool
}

// ExplainRequest contains the input for one explanation
type ExplainRequest struct {
	Message string
	Result  model.AnalysisResult

	// AllowedURLs is the only set of links the explanation may cite.
	// Anything else in the reply is rejected.
	AllowedURLs []string

	// Prompt overrides the default prompt when set
	Prompt string

	Model     string
	MaxTokens int
}

// ExplainResponse is the provider's reply
type ExplainResponse struct {
	Text       string
	CitedURLs  []string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", or "" (disabled)
	Provider string
	Model    string
	APIKey   string

	// BaseURL points at any OpenAI-compatible endpoint
	BaseURL string

	Timeout   int // seconds
	MaxTokens int

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns the disabled configuration
func DefaultConfig() Config {
	return Config{
		Timeout:   30,
		MaxTokens: 400,
	}
}

// ConfigFromModel converts the application config sections
func ConfigFromModel(llmCfg model.LLMConfig, httpCfg model.HTTPConfig) Config {
	return Config{
		Provider:   llmCfg.Provider,
		Model:      llmCfg.Model,
		APIKey:     llmCfg.APIKey,
		BaseURL:    llmCfg.BaseURL,
		Timeout:    llmCfg.Timeout,
		MaxTokens:  llmCfg.MaxTokens,
		HTTPProxy:  httpCfg.HTTPProxy,
		HTTPSProxy: httpCfg.HTTPSProxy,
		NoProxy:    httpCfg.NoProxy,
	}
}

const systemPrompt = "You explain SMS fraud verdicts to non-technical readers. " +
	"You never change or dispute the verdict you are given."

// BuildPrompt constructs the default explanation prompt
func BuildPrompt(message string, result model.AnalysisResult, allowedURLs []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, `An automated checker has already classified the SMS below. Explain the verdict in 2-3 short sentences for the recipient.

RULES:
1. The verdict is final. Do not raise or lower it.
2. Only mention links from this list:
%s
3. Do not invent institutions, amounts or links that are not in the message.
4. End with one concrete safety tip.

Message:
%q

Verdict: %s (score %d/100)
Reasons:
`, joinURLs(allowedURLs), message, result.RiskLevel, result.Score)

	for _, reason := range result.Reasons {
		fmt.Fprintf(&b, "- %s\n", reason)
	}

	if len(result.Metadata.Threats) > 0 {
		b.WriteString("Threat details:\n")
		for _, threat := range result.Metadata.Threats {
			fmt.Fprintf(&b, "- %s\n", threat)
		}
	}

	return b.String()
}

func joinURLs(urls []string) string {
	if len(urls) == 0 {
		return "(no links; do not mention any)"
	}
	var b strings.Builder
	for i, u := range urls {
		if i >= 10 {
			fmt.Fprintf(&b, "\n... and %d more", len(urls)-10)
			break
		}
		fmt.Fprintf(&b, "\n- %s", u)
	}
	return b.String()
}
