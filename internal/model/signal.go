package model

// RiskLevel is the ordered severity of a verdict
type RiskLevel string

const (
	RiskSafe   RiskLevel = "safe"
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
	RiskFraud  RiskLevel = "fraud"
)

// Rank returns the position of the level in the safe..fraud ordering (-1 if unknown)
func (l RiskLevel) Rank() int {
	switch l {
	case RiskSafe:
		return 0
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	case RiskFraud:
		return 4
	default:
		return -1
	}
}

// Score bands. A score at or above the floor maps to the level.
const (
	FraudFloor  = 80
	HighFloor   = 60
	MediumFloor = 40
	LowFloor    = 20
)

// LevelForScore maps a 0-100 score onto the fixed bands
func LevelForScore(score int) RiskLevel {
	switch {
	case score >= FraudFloor:
		return RiskFraud
	case score >= HighFloor:
		return RiskHigh
	case score >= MediumFloor:
		return RiskMedium
	case score >= LowFloor:
		return RiskLow
	default:
		return RiskSafe
	}
}

// SignalTier classifies how much a textual indicator weighs
type SignalTier string

const (
	TierCritical SignalTier = "critical"
	TierStrong   SignalTier = "strong"
	TierWeak     SignalTier = "weak"
)

// Signal is a textual fraud indicator detected in a message
type Signal struct {
	Tier        SignalTier `json:"tier"`
	Rule        string     `json:"rule"`        // Rule identifier (e.g., "urgency")
	Description string     `json:"description"` // Human-readable reason
}

// LinguisticSignals is the output of the linguistic extractor
type LinguisticSignals struct {
	Critical []Signal `json:"critical"`
	Strong   []Signal `json:"strong"`
	Weak     []Signal `json:"weak"`

	MentionsInstitution bool `json:"mentions_institution"`
	HasPersonalInfo     bool `json:"has_personal_info"`
}

// Descriptions returns critical ++ strong ++ weak descriptions in order
func (s LinguisticSignals) Descriptions() []string {
	out := make([]string, 0, len(s.Critical)+len(s.Strong)+len(s.Weak))
	for _, group := range [][]Signal{s.Critical, s.Strong, s.Weak} {
		for _, sig := range group {
			out = append(out, sig.Description)
		}
	}
	return out
}

// BaseResult is the linguistic-only verdict computed before URL fusion
type BaseResult struct {
	Level           RiskLevel         `json:"level"`
	Score           int               `json:"score"`
	Reasons         []string          `json:"reasons"`
	Signals         LinguisticSignals `json:"signals"`
	HasOfficialLink bool              `json:"has_official_link"`
}
