package model

// VerdictKind is the classification of a single domain
type VerdictKind string

const (
	VerdictOfficial     VerdictKind = "official"     // Whitelisted institution domain
	VerdictShortener    VerdictKind = "shortener"    // URL shortening service
	VerdictImpostor     VerdictKind = "impostor"     // Matches a typosquatting/phishing rule
	VerdictNumeric      VerdictKind = "numeric"      // Numeric-only name or IP literal
	VerdictMalformed    VerdictKind = "malformed"    // Structural anomaly in the main label
	VerdictUnclassified VerdictKind = "unclassified" // Nothing matched
)

// DomainVerdict is the domain table's classification of one host
type DomainVerdict struct {
	Domain            string      `json:"domain"`
	RegistrableDomain string      `json:"registrable_domain,omitempty"`
	Kind              VerdictKind `json:"kind"`
	Rule              string      `json:"rule,omitempty"` // Matching list entry or pattern name
}

// Suspicious reports whether the verdict contributes domain threat weight
func (v DomainVerdict) Suspicious() bool {
	return v.Kind != VerdictOfficial && v.Kind != VerdictUnclassified && v.Kind != ""
}

// ErrorKind tags why a reputation result carries no evidence
type ErrorKind string

const (
	ErrorNone         ErrorKind = ""
	ErrorInvalidURL   ErrorKind = "INVALID_URL"
	ErrorNoCredential ErrorKind = "NO_CREDENTIAL"
	ErrorLookupFailed ErrorKind = "LOOKUP_FAILED"
	ErrorBatchFailed  ErrorKind = "BATCH_FAILED"
)

// LookupVia records which path produced a reputation result
type LookupVia string

const (
	ViaBatch    LookupVia = "batch"
	ViaFallback LookupVia = "fallback"
	ViaCache    LookupVia = "cache"
	ViaSkipped  LookupVia = "skipped"
)

// Threat types reported by the Safe Browsing v4 API
const (
	ThreatMalware            = "MALWARE"
	ThreatSocialEngineering  = "SOCIAL_ENGINEERING"
	ThreatUnwantedSoftware   = "UNWANTED_SOFTWARE"
	ThreatPotentiallyHarmful = "POTENTIALLY_HARMFUL_APPLICATION"
)

// ReputationResult is the external lookup outcome for one URL
type ReputationResult struct {
	Unsafe        bool      `json:"unsafe"`
	ThreatTypes   []string  `json:"threat_types,omitempty"`
	PlatformTypes []string  `json:"platform_types,omitempty"`
	CacheDuration string    `json:"cache_duration,omitempty"`
	Error         ErrorKind `json:"error,omitempty"`
	Detail        string    `json:"detail,omitempty"` // Underlying error text, if any
	Via           LookupVia `json:"via,omitempty"`
}

// IsCritical reports whether the result confirms phishing or malware
func (r ReputationResult) IsCritical() bool {
	if !r.Unsafe {
		return false
	}
	for _, t := range r.ThreatTypes {
		if t == ThreatSocialEngineering || t == ThreatMalware {
			return true
		}
	}
	return false
}

// PrimaryThreat returns the first reported threat type, defaulting to MALWARE
func (r ReputationResult) PrimaryThreat() string {
	if len(r.ThreatTypes) == 0 {
		return ThreatMalware
	}
	return r.ThreatTypes[0]
}

// NewDomainAgeDays marks registrations young enough to flag in output
const NewDomainAgeDays = 30

// Registration is the WHOIS record summary for a registrable domain.
// It is informational and never feeds the risk score.
type Registration struct {
	Domain    string `json:"domain"`
	Registrar string `json:"registrar,omitempty"`
	CreatedOn string `json:"created_on,omitempty"` // YYYY-MM-DD
	UpdatedOn string `json:"updated_on,omitempty"`
	ExpiresOn string `json:"expires_on,omitempty"`
	AgeDays   int    `json:"age_days"`
	Error     string `json:"error,omitempty"`
}
