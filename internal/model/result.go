package model

// AnalysisResult is the final verdict for one message.
// RiskLevel, Score and Reasons are authoritative; Metadata is informational.
type AnalysisResult struct {
	RiskLevel RiskLevel `json:"risk_level"`
	Score     int       `json:"score"`   // 0-100
	Reasons   []string  `json:"reasons"` // At most MaxReasons entries
	Metadata  Metadata  `json:"metadata"`
}

// MaxReasons caps the reasons shown for a verdict
const MaxReasons = 5

// Metadata carries derived counts for observability.
// It is never consumed to re-derive the verdict.
type Metadata struct {
	URLCount            int      `json:"url_count"`
	SafeBrowsingThreats int      `json:"safe_browsing_threats"`
	DomainThreats       int      `json:"domain_threats"`
	TotalThreats        int      `json:"total_threats"`
	URLs                []string `json:"urls"`
	Domains             []string `json:"domains"`
	Threats             []string `json:"threats"` // Raw, unformatted threat details

	HasMaliciousURLs     bool `json:"has_malicious_urls"`
	HasSuspiciousDomains bool `json:"has_suspicious_domains"`
	HasOfficialLink      bool `json:"has_official_link"`
	BatchMethodUsed      bool `json:"batch_method_used"`
	LookupErrors         int  `json:"lookup_errors"`

	CriticalSignals     int  `json:"critical_signals"`
	StrongSignals       int  `json:"strong_signals"`
	WeakSignals         int  `json:"weak_signals"`
	PersonalInfo        bool `json:"personal_info"`
	MentionsInstitution bool `json:"mentions_institution"`

	Breakdown ScoreBreakdown `json:"breakdown"`

	Extra map[string]any `json:"extra,omitempty"`
}

// ScoreBreakdown documents how the final score was reached
type ScoreBreakdown struct {
	BaseLevel        RiskLevel `json:"base_level"`
	BaseScore        int       `json:"base_score"`
	ReputationPoints int       `json:"reputation_points"`
	DomainPoints     int       `json:"domain_points"`
	Escalated        bool      `json:"escalated"`         // Linguistic-only fraud/high kept its band
	CriticalOverride bool      `json:"critical_override"` // Confirmed phishing/malware forced fraud
	Formula          string    `json:"formula"`
}

// Explanation is optional generated prose about a finished verdict.
// It is attached after scoring and never changes RiskLevel, Score or Reasons.
type Explanation struct {
	Enabled  bool     `json:"enabled"`
	Provider string   `json:"provider"`
	Model    string   `json:"model,omitempty"`
	Text     string   `json:"text,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}
