package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/smsguard/internal/llm"
	"github.com/ppiankov/smsguard/internal/model"
	"github.com/ppiankov/smsguard/internal/worker"
)

// Renderer writes analysis results for people and machines
type Renderer struct {
	verbose bool
}

// NewRenderer creates a renderer; verbose adds the score breakdown to summaries
func NewRenderer(verbose bool) *Renderer {
	return &Renderer{verbose: verbose}
}

// RenderJSON writes one result as indented JSON to path ("-" for stdout)
func (r *Renderer) RenderJSON(result *model.AnalysisResult, path string) error {
	if path == "-" {
		return r.WriteJSON(os.Stdout, result)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if err := r.WriteJSON(f, result); err != nil {
		return err
	}
	return f.Close()
}

// WriteJSON encodes one result as indented JSON
func (r *Renderer) WriteJSON(w io.Writer, result *model.AnalysisResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}

// BatchRecord is one JSON line of batch output
type BatchRecord struct {
	Index     int             `json:"index"`
	Message   string          `json:"message"`
	RiskLevel model.RiskLevel `json:"risk_level,omitempty"`
	Score     int             `json:"score"`
	Reasons   []string        `json:"reasons,omitempty"`
	URLs      []string        `json:"urls,omitempty"`
	Threats   []string        `json:"threats,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// RenderBatch writes one JSON object per message, in input order
func (r *Renderer) RenderBatch(w io.Writer, results []*worker.MessageResult) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	for _, res := range results {
		rec := BatchRecord{Index: res.Index, Message: res.Message}
		if res.Error != nil {
			rec.Error = res.Error.Error()
		} else if res.Result != nil {
			rec.RiskLevel = res.Result.RiskLevel
			rec.Score = res.Result.Score
			rec.Reasons = res.Result.Reasons
			rec.URLs = res.Result.Metadata.URLs
			rec.Threats = res.Result.Metadata.Threats
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode record %d: %w", res.Index, err)
		}
	}
	return nil
}

// RenderSummary prints a human-readable verdict
func (r *Renderer) RenderSummary(w io.Writer, result *model.AnalysisResult) {
	fmt.Fprintf(w, "%s %s (score %d/100)\n", levelBanner(result.RiskLevel),
		strings.ToUpper(string(result.RiskLevel)), result.Score)

	for _, reason := range result.Reasons {
		fmt.Fprintf(w, "  • %s\n", reason)
	}

	meta := result.Metadata
	if meta.URLCount > 0 {
		fmt.Fprintf(w, "\nLinks: %d (%d flagged by reputation, %d suspicious domains)\n",
			meta.URLCount, meta.SafeBrowsingThreats, meta.DomainThreats)
		for _, u := range meta.URLs {
			fmt.Fprintf(w, "  - %s\n", u)
		}
		if meta.LookupErrors > 0 {
			fmt.Fprintf(w, "  ⚠️  %d link lookups failed; verdict is based on local checks for those links\n", meta.LookupErrors)
		}
	}

	if r.verbose {
		b := meta.Breakdown
		fmt.Fprintf(w, "\nBreakdown: base %s/%d, %s", b.BaseLevel, b.BaseScore, b.Formula)
		if b.Escalated {
			fmt.Fprint(w, ", escalated to keep linguistic band")
		}
		if b.CriticalOverride {
			fmt.Fprint(w, ", critical threat override")
		}
		fmt.Fprintf(w, "\nSignals: %d critical, %d strong, %d weak; personal info: %v; official link: %v\n",
			meta.CriticalSignals, meta.StrongSignals, meta.WeakSignals, meta.PersonalInfo, meta.HasOfficialLink)
	}

	if text := llm.RenderText(ExplanationOf(result)); text != "" {
		fmt.Fprintf(w, "\n%s", text)
	}
}

// RenderDomain prints one domain table verdict
func (r *Renderer) RenderDomain(w io.Writer, input string, v model.DomainVerdict) {
	marker := "✓"
	if v.Suspicious() {
		marker = "⚠️ "
	}
	line := fmt.Sprintf("%s %s: %s", marker, input, v.Kind)
	if v.Rule != "" {
		line += fmt.Sprintf(" (%s)", v.Rule)
	}
	if v.RegistrableDomain != "" && v.RegistrableDomain != v.Domain {
		line += fmt.Sprintf(" [%s]", v.RegistrableDomain)
	}
	fmt.Fprintln(w, line)
}

// RenderRegistration prints the WHOIS summary beneath a domain verdict
func (r *Renderer) RenderRegistration(w io.Writer, reg model.Registration) {
	if reg.Error != "" {
		fmt.Fprintf(w, "    whois %s: unavailable (%s)\n", reg.Domain, reg.Error)
		return
	}
	line := fmt.Sprintf("    whois %s: registered %s (%d days ago)", reg.Domain, reg.CreatedOn, reg.AgeDays)
	if reg.AgeDays < model.NewDomainAgeDays {
		line += " - newly registered"
	}
	fmt.Fprintln(w, line)
	if r.verbose {
		if reg.Registrar != "" {
			fmt.Fprintf(w, "      registrar: %s\n", reg.Registrar)
		}
		if reg.ExpiresOn != "" {
			fmt.Fprintf(w, "      expires: %s\n", reg.ExpiresOn)
		}
	}
}

func levelBanner(level model.RiskLevel) string {
	switch level {
	case model.RiskFraud:
		return "🚨"
	case model.RiskHigh:
		return "⛔"
	case model.RiskMedium:
		return "⚠️"
	case model.RiskLow:
		return "🔎"
	default:
		return "✅"
	}
}
