package extract

import (
	"fmt"
	"regexp"

	"github.com/ppiankov/smsguard/internal/model"
)

// Rule identifiers
const (
	RuleLegalThreat        = "legal_threat"
	RuleAccountSuspension  = "account_suspension"
	RuleDeliveryFailure    = "delivery_failure"
	RuleShipment           = "shipment"
	RuleVerification       = "verification"
	RuleSuspiciousActivity = "suspicious_activity"
	RuleUrgency            = "urgency"
	RuleRewardLure         = "reward_lure"
	RuleCredentialRequest  = "credential_request"
)

// Personal-info markers: 4-digit number, currency amount, time of day, date
var personalInfoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{4}\b`),
	regexp.MustCompile(`\b\d+([.,]\d+)?\s*(tl|try)\b`),
	regexp.MustCompile(`\d\s*₺|₺\s*\d`),
	regexp.MustCompile(`\b\d{1,2}:\d{2}\b`),
	regexp.MustCompile(`\b\d{1,2}[./]\d{1,2}[./]\d{4}\b`),
}

// SignalExtractor detects tiered textual fraud indicators
type SignalExtractor struct {
	legal        []string
	account      []string
	suspension   []string
	card         []string
	block        []string
	delivery     []string
	shipment     []string
	verification []string
	activity     []string
	urgency      []string
	reward       []string
	credential   []string
	institutions []string
}

// NewSignalExtractor creates an extractor over the given lexicon (defaults when nil)
func NewSignalExtractor(lex *model.LexiconConfig) *SignalExtractor {
	if lex == nil {
		def := model.DefaultLexicon()
		lex = &def
	}

	return &SignalExtractor{
		legal:        foldAll(lex.LegalThreat),
		account:      foldAll(lex.AccountTerms),
		suspension:   foldAll(lex.SuspensionTerms),
		card:         foldAll(lex.CardTerms),
		block:        foldAll(lex.BlockTerms),
		delivery:     foldAll(lex.DeliveryFailure),
		shipment:     foldAll(lex.Shipment),
		verification: foldAll(lex.Verification),
		activity:     foldAll(lex.SuspiciousActivity),
		urgency:      foldAll(lex.Urgency),
		reward:       foldAll(lex.RewardLure),
		credential:   foldAll(lex.CredentialRequest),
		institutions: foldAll(lex.Institutions),
	}
}

// Extract evaluates every rule independently against the message text
func (e *SignalExtractor) Extract(text string) model.LinguisticSignals {
	folded := Fold(text)

	var out model.LinguisticSignals

	if p, ok := containsAny(folded, e.legal); ok {
		out.Critical = append(out.Critical, signal(model.TierCritical, RuleLegalThreat,
			"Legal enforcement threat", p))
	}

	if p, ok := pair(folded, e.account, e.suspension); ok {
		out.Strong = append(out.Strong, signal(model.TierStrong, RuleAccountSuspension,
			"Account suspension warning", p))
	} else if p, ok := pair(folded, e.card, e.block); ok {
		out.Strong = append(out.Strong, signal(model.TierStrong, RuleAccountSuspension,
			"Card block warning", p))
	}

	if p, ok := containsAny(folded, e.delivery); ok {
		out.Strong = append(out.Strong, signal(model.TierStrong, RuleDeliveryFailure,
			"Delivery failure notice", p))
	} else if p, ok := containsAny(folded, e.shipment); ok {
		out.Weak = append(out.Weak, signal(model.TierWeak, RuleShipment,
			"Shipment mention", p))
	}

	if p, ok := containsAny(folded, e.verification); ok {
		out.Strong = append(out.Strong, signal(model.TierStrong, RuleVerification,
			"Verification request", p))
	}

	if p, ok := containsAny(folded, e.urgency); ok {
		out.Strong = append(out.Strong, signal(model.TierStrong, RuleUrgency,
			"Urgency pressure", p))
	}

	if p, ok := containsAny(folded, e.reward); ok {
		out.Strong = append(out.Strong, signal(model.TierStrong, RuleRewardLure,
			"Prize or reward lure", p))
	}

	if p, ok := containsAny(folded, e.credential); ok {
		out.Strong = append(out.Strong, signal(model.TierStrong, RuleCredentialRequest,
			"Request for credentials or card details", p))
	}

	if p, ok := containsAny(folded, e.activity); ok {
		out.Weak = append(out.Weak, signal(model.TierWeak, RuleSuspiciousActivity,
			"Security or suspicious activity warning", p))
	}

	out.HasPersonalInfo = hasPersonalInfo(folded)

	for _, inst := range e.institutions {
		if containsWord(folded, inst) {
			out.MentionsInstitution = true
			break
		}
	}

	return out
}

// pair matches when a term from each list is present
func pair(folded string, first, second []string) (string, bool) {
	a, ok := containsAny(folded, first)
	if !ok {
		return "", false
	}
	b, ok := containsAny(folded, second)
	if !ok {
		return "", false
	}
	return a + " + " + b, true
}

func hasPersonalInfo(folded string) bool {
	for _, re := range personalInfoPatterns {
		if re.MatchString(folded) {
			return true
		}
	}
	return false
}

func signal(tier model.SignalTier, rule, desc, matched string) model.Signal {
	return model.Signal{
		Tier:        tier,
		Rule:        rule,
		Description: fmt.Sprintf("%s (%q)", desc, matched),
	}
}
