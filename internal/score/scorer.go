package score

import (
	"fmt"
	"strings"

	"github.com/ppiankov/smsguard/internal/model"
)

// Scorer computes the linguistic base verdict and fuses it with URL evidence.
// It holds only immutable weights and is safe for concurrent use.
type Scorer struct {
	w model.ScoringConfig
}

// NewScorer creates a scorer with the given weights (canonical weights when nil)
func NewScorer(cfg *model.ScoringConfig) *Scorer {
	if cfg == nil {
		def := model.DefaultScoring()
		cfg = &def
	}
	return &Scorer{w: *cfg}
}

// Base scores linguistic signals alone. hasOfficialLink is known only after
// URL classification, so callers classify URLs first.
func (s *Scorer) Base(signals model.LinguisticSignals, hasOfficialLink bool) model.BaseResult {
	critical, strong, weak := len(signals.Critical), len(signals.Strong), len(signals.Weak)

	score := s.w.CriticalWeight*critical + s.w.StrongWeight*strong + s.w.WeakWeight*weak
	if signals.HasPersonalInfo {
		score -= s.w.PersonalInfoDiscount
	}
	if hasOfficialLink {
		score -= s.w.OfficialLinkDiscount
	}

	var level model.RiskLevel
	switch {
	case critical > 0, strong >= 2:
		level = model.RiskFraud
	case strong == 1:
		level = model.RiskHigh
	case weak >= 2:
		level = model.RiskMedium
	case weak == 1:
		level = model.RiskLow
	default:
		level = model.RiskSafe
	}

	// Real notifications from an institution carry a link to its own domain
	// plus dates or amounts; a single strong trigger is not enough against that.
	if level == model.RiskHigh && signals.HasPersonalInfo && hasOfficialLink {
		level = model.RiskSafe
	}

	return model.BaseResult{
		Level:           level,
		Score:           clamp(score),
		Reasons:         truncate(signals.Descriptions(), model.MaxReasons),
		Signals:         signals,
		HasOfficialLink: hasOfficialLink,
	}
}

// Fuse merges the base verdict with per-URL domain verdicts and reputation
// results. urls fixes the order of URL-derived reasons; maps may omit URLs.
func (s *Scorer) Fuse(
	base model.BaseResult,
	urls []string,
	verdicts map[string]model.DomainVerdict,
	reputation map[string]model.ReputationResult,
) model.AnalysisResult {
	meta := model.Metadata{
		URLCount:            len(urls),
		URLs:                append([]string{}, urls...),
		Domains:             []string{},
		Threats:             []string{},
		HasOfficialLink:     base.HasOfficialLink,
		CriticalSignals:     len(base.Signals.Critical),
		StrongSignals:       len(base.Signals.Strong),
		WeakSignals:         len(base.Signals.Weak),
		PersonalInfo:        base.Signals.HasPersonalInfo,
		MentionsInstitution: base.Signals.MentionsInstitution,
	}

	var urlReasons []string
	var sbThreats, domainThreats int
	var criticalThreat, sawBatch, sawFallback bool
	seenDomain := make(map[string]bool)

	for _, u := range urls {
		if r, ok := reputation[u]; ok {
			switch r.Via {
			case model.ViaBatch:
				sawBatch = true
			case model.ViaFallback:
				sawFallback = true
			}
			if isLookupError(r.Error) {
				meta.LookupErrors++
			}
			if r.Unsafe {
				sbThreats++
				threat := r.PrimaryThreat()
				urlReasons = append(urlReasons, formatThreat(threat, u))
				meta.Threats = append(meta.Threats, threat+": "+u)
				if r.IsCritical() {
					criticalThreat = true
				}
			}
		}

		if v, ok := verdicts[u]; ok {
			if v.Domain != "" && !seenDomain[v.Domain] {
				seenDomain[v.Domain] = true
				meta.Domains = append(meta.Domains, v.Domain)
			}
			if v.Suspicious() {
				domainThreats++
				urlReasons = append(urlReasons, fmt.Sprintf("⚠️ Suspicious domain: %s (%s)", v.Domain, v.Kind))
				meta.Threats = append(meta.Threats, fmt.Sprintf("domain %s: %s", v.Kind, v.Domain))
			}
		}
	}

	final := clamp(base.Score + s.w.ReputationWeight*sbThreats + s.w.DomainWeight*domainThreats)
	level := model.LevelForScore(final)

	breakdown := model.ScoreBreakdown{
		BaseLevel:        base.Level,
		BaseScore:        base.Score,
		ReputationPoints: s.w.ReputationWeight * sbThreats,
		DomainPoints:     s.w.DomainWeight * domainThreats,
		Formula: fmt.Sprintf("clamp(%d + %d*%d + %d*%d) = %d",
			base.Score, s.w.ReputationWeight, sbThreats, s.w.DomainWeight, domainThreats, final),
	}

	// Without links to corroborate or refute, strong linguistic evidence keeps its band.
	if sbThreats+domainThreats == 0 {
		floor := -1
		switch base.Level {
		case model.RiskFraud:
			floor = model.FraudFloor
		case model.RiskHigh:
			floor = model.HighFloor
		}
		if floor >= 0 && final < floor {
			final = floor
			level = model.LevelForScore(final)
			breakdown.Escalated = true
		}
	}

	// A confirmed phishing or malware URL is decisive.
	if criticalThreat {
		level = model.RiskFraud
		if final < s.w.CriticalThreatFloor {
			final = clamp(s.w.CriticalThreatFloor)
		}
		breakdown.CriticalOverride = true
	}

	reasons := truncate(append(urlReasons, base.Reasons...), model.MaxReasons)
	if len(reasons) == 0 {
		reasons = []string{GenericReason(level)}
	}

	meta.SafeBrowsingThreats = sbThreats
	meta.DomainThreats = domainThreats
	meta.TotalThreats = sbThreats + domainThreats
	meta.HasMaliciousURLs = sbThreats > 0
	meta.HasSuspiciousDomains = domainThreats > 0
	meta.BatchMethodUsed = sawBatch && !sawFallback
	meta.Breakdown = breakdown

	return model.AnalysisResult{
		RiskLevel: level,
		Score:     final,
		Reasons:   reasons,
		Metadata:  meta,
	}
}

// GenericReason is the single reason shown when no specific indicator fired
func GenericReason(level model.RiskLevel) string {
	switch level {
	case model.RiskFraud:
		return "Strong fraud indicators: do not click links or share information"
	case model.RiskHigh:
		return "High risk: treat this message as likely fraudulent"
	case model.RiskMedium:
		return "Some risk indicators found: verify with the sender through an official channel"
	case model.RiskLow:
		return "Minor risk indicators found"
	default:
		return "No risk indicators found"
	}
}

func formatThreat(threat, url string) string {
	switch threat {
	case model.ThreatSocialEngineering:
		return "🎣 Phishing detected: " + url
	case model.ThreatMalware:
		return "🦠 Malware detected: " + url
	default:
		label := strings.ToLower(strings.ReplaceAll(threat, "_", " "))
		return fmt.Sprintf("⚠️ Unsafe link (%s): %s", label, url)
	}
}

// isLookupError excludes the credential skip, which is absence of evidence
func isLookupError(kind model.ErrorKind) bool {
	return kind != model.ErrorNone && kind != model.ErrorNoCredential
}

func clamp(score int) int {
	return max(0, min(100, score))
}

func truncate(items []string, n int) []string {
	if len(items) > n {
		items = items[:n]
	}
	out := make([]string, len(items))
	copy(out, items)
	return out
}
