package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/smsguard/internal/model"
)

// Explainer attaches optional prose to verdicts. A failed or unavailable
// provider degrades to warnings; the verdict itself is never touched.
type Explainer struct {
	provider Provider
	config   Config
}

// NewExplainer creates an explainer; a disabled config yields a no-op explainer
func NewExplainer(config Config) (*Explainer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Explainer{provider: provider, config: config}, nil
}

// NewExplainerWithProvider wraps an existing provider
func NewExplainerWithProvider(provider Provider, config Config) *Explainer {
	return &Explainer{provider: provider, config: config}
}

// IsEnabled reports whether a provider is configured
func (e *Explainer) IsEnabled() bool {
	return e != nil && e.provider != nil
}

// ProviderName returns the configured provider, or "" when disabled
func (e *Explainer) ProviderName() string {
	if !e.IsEnabled() {
		return ""
	}
	return e.provider.Name()
}

// Explain returns nil when disabled
func (e *Explainer) Explain(ctx context.Context, message string, result model.AnalysisResult) *model.Explanation {
	if !e.IsEnabled() {
		return nil
	}

	explanation := &model.Explanation{
		Provider: e.provider.Name(),
		Model:    e.config.Model,
	}

	if !e.provider.IsAvailable(ctx) {
		explanation.Warnings = append(explanation.Warnings,
			fmt.Sprintf("Provider %s is not available", e.provider.Name()))
		return explanation
	}
	explanation.Enabled = true

	resp, err := e.provider.Explain(ctx, ExplainRequest{
		Message:     message,
		Result:      result,
		AllowedURLs: result.Metadata.URLs,
		Model:       e.config.Model,
		MaxTokens:   e.config.MaxTokens,
	})
	if err != nil {
		explanation.Warnings = append(explanation.Warnings, fmt.Sprintf("Explanation failed: %v", err))
		return explanation
	}

	explanation.Text = resp.Text
	explanation.Model = resp.Model
	if resp.TokensUsed > 0 {
		explanation.Warnings = append(explanation.Warnings, fmt.Sprintf("Tokens used: %d", resp.TokensUsed))
	}
	if len(resp.CitedURLs) > 0 {
		explanation.Warnings = append(explanation.Warnings,
			fmt.Sprintf("Verified %d cited links against the message", len(resp.CitedURLs)))
	}

	return explanation
}

// RenderText formats an explanation for terminal output; "" when there is nothing to show
func RenderText(e *model.Explanation) string {
	if e == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Explanation (%s", e.Provider)
	if e.Model != "" {
		fmt.Fprintf(&b, ", %s", e.Model)
	}
	b.WriteString("; generated text, the verdict above was determined independently)\n")

	if e.Text != "" {
		b.WriteString(e.Text)
		b.WriteString("\n")
	} else {
		b.WriteString("No explanation generated.\n")
	}

	for _, w := range e.Warnings {
		fmt.Fprintf(&b, "  note: %s\n", w)
	}

	return b.String()
}
