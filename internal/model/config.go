package model

import "time"

// Config is the complete smsguard configuration.
// It is built once at startup and never mutated afterwards.
type Config struct {
	Reputation   ReputationConfig   `yaml:"reputation" mapstructure:"reputation"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Scoring      ScoringConfig      `yaml:"scoring" mapstructure:"scoring"`
	Domains      DomainsConfig      `yaml:"domains" mapstructure:"domains"`
	Lexicon      LexiconConfig      `yaml:"lexicon" mapstructure:"lexicon"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// ReputationConfig configures the Safe Browsing lookup client
type ReputationConfig struct {
	Enabled             bool          `yaml:"enabled" mapstructure:"enabled"`
	APIKey              string        `yaml:"-" mapstructure:"api_key"`
	Endpoint            string        `yaml:"endpoint" mapstructure:"endpoint"`
	ClientID            string        `yaml:"client_id" mapstructure:"client_id"`
	ClientVersion       string        `yaml:"client_version" mapstructure:"client_version"`
	Timeout             time.Duration `yaml:"timeout" mapstructure:"timeout"`               // Per request, batch or single
	MaxBatchSize        int           `yaml:"max_batch_size" mapstructure:"max_batch_size"` // Service limit per request
	FallbackConcurrency int           `yaml:"fallback_concurrency" mapstructure:"fallback_concurrency"`
	ThreatTypes         []string      `yaml:"threat_types" mapstructure:"threat_types"`
	PlatformTypes       []string      `yaml:"platform_types" mapstructure:"platform_types"`
}

// HTTPConfig holds outbound HTTP settings
type HTTPConfig struct {
	UserAgent  string `yaml:"user_agent" mapstructure:"user_agent"`
	HTTPProxy  string `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy" mapstructure:"no_proxy"`
}

// CacheConfig controls the optional reputation result cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskDir   string        `yaml:"disk_dir" mapstructure:"disk_dir"` // Empty disables the disk layer
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig controls batch analysis parallelism
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig paces outbound reputation requests per host
type RateLimitingConfig struct {
	RequestsPerSecond float64         `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int             `yaml:"burst_size" mapstructure:"burst_size"`
	Hosts             []HostRateLimit `yaml:"hosts" mapstructure:"hosts"`
}

// HostRateLimit overrides the default pacing for one host
type HostRateLimit struct {
	Host              string  `yaml:"host" mapstructure:"host"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ScoringConfig holds the point weights of the base and fusion formulas
type ScoringConfig struct {
	CriticalWeight       int `yaml:"critical_weight" mapstructure:"critical_weight"`
	StrongWeight         int `yaml:"strong_weight" mapstructure:"strong_weight"`
	WeakWeight           int `yaml:"weak_weight" mapstructure:"weak_weight"`
	PersonalInfoDiscount int `yaml:"personal_info_discount" mapstructure:"personal_info_discount"`
	OfficialLinkDiscount int `yaml:"official_link_discount" mapstructure:"official_link_discount"`
	ReputationWeight     int `yaml:"reputation_weight" mapstructure:"reputation_weight"`
	DomainWeight         int `yaml:"domain_weight" mapstructure:"domain_weight"`
	CriticalThreatFloor  int `yaml:"critical_threat_floor" mapstructure:"critical_threat_floor"`
}

// DomainsConfig is the static domain reputation table
type DomainsConfig struct {
	Official      []string       `yaml:"official" mapstructure:"official"`
	Shorteners    []string       `yaml:"shorteners" mapstructure:"shorteners"`
	ImpostorRules []ImpostorRule `yaml:"impostor_rules" mapstructure:"impostor_rules"`
}

// ImpostorRule is a named regular expression over a normalized domain
type ImpostorRule struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Pattern string `yaml:"pattern" mapstructure:"pattern"`
	Gov     bool   `yaml:"gov,omitempty" mapstructure:"gov"` // Skipped for legitimate .gov.tr hosts
}

// LexiconConfig holds the phrase lists used by the linguistic rules.
// Phrases are matched after lower-casing and diacritic folding.
type LexiconConfig struct {
	LegalThreat        []string `yaml:"legal_threat" mapstructure:"legal_threat"`
	AccountTerms       []string `yaml:"account_terms" mapstructure:"account_terms"`
	SuspensionTerms    []string `yaml:"suspension_terms" mapstructure:"suspension_terms"`
	CardTerms          []string `yaml:"card_terms" mapstructure:"card_terms"`
	BlockTerms         []string `yaml:"block_terms" mapstructure:"block_terms"`
	DeliveryFailure    []string `yaml:"delivery_failure" mapstructure:"delivery_failure"`
	Shipment           []string `yaml:"shipment" mapstructure:"shipment"`
	Verification       []string `yaml:"verification" mapstructure:"verification"`
	SuspiciousActivity []string `yaml:"suspicious_activity" mapstructure:"suspicious_activity"`
	Urgency            []string `yaml:"urgency" mapstructure:"urgency"`
	RewardLure         []string `yaml:"reward_lure" mapstructure:"reward_lure"`
	CredentialRequest  []string `yaml:"credential_request" mapstructure:"credential_request"`
	Institutions       []string `yaml:"institutions" mapstructure:"institutions"`
}

// LLMConfig configures the optional verdict explainer
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, ollama, or empty
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose   bool   `yaml:"verbose" mapstructure:"verbose"`
	LogFormat string `yaml:"log_format" mapstructure:"log_format"` // text or json
}

// PlaceholderAPIKey is the sample value shipped in example env files
const PlaceholderAPIKey = "your_api_key_here"

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return &Config{
		Reputation: ReputationConfig{
			Enabled:             true,
			Endpoint:            "https://safebrowsing.googleapis.com/v4/threatMatches:find",
			ClientID:            "smsguard",
			ClientVersion:       "0.3.0",
			Timeout:             10 * time.Second,
			MaxBatchSize:        500,
			FallbackConcurrency: 1,
			ThreatTypes: []string{
				ThreatMalware,
				ThreatSocialEngineering,
				ThreatUnwantedSoftware,
				ThreatPotentiallyHarmful,
			},
			PlatformTypes: []string{"ANY_PLATFORM"},
		},
		HTTP: HTTPConfig{
			UserAgent: "smsguard/0.3 (+https://github.com/ppiankov/smsguard)",
		},
		Cache: CacheConfig{
			Enabled:   false,
			MemoryTTL: 5 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 10,
			BurstSize:         5,
		},
		Scoring: DefaultScoring(),
		Domains: DefaultDomains(),
		Lexicon: DefaultLexicon(),
		LLM: LLMConfig{
			Timeout:   30,
			MaxTokens: 400,
		},
		Output: OutputConfig{
			LogFormat: "text",
		},
	}
}

// DefaultScoring returns the canonical point weights
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		CriticalWeight:       40,
		StrongWeight:         20,
		WeakWeight:           5,
		PersonalInfoDiscount: 10,
		OfficialLinkDiscount: 15,
		ReputationWeight:     40,
		DomainWeight:         20,
		CriticalThreatFloor:  90,
	}
}

// DefaultDomains returns the built-in whitelist, shortener list and impostor rules
func DefaultDomains() DomainsConfig {
	return DomainsConfig{
		Official: []string{
			"ptt.gov.tr", "ptt.com.tr", "edevlet.gov.tr", "turkiye.gov.tr",
			"gib.gov.tr", "garanti.com.tr", "garantibbva.com.tr", "isbank.com.tr",
			"ziraatbank.com.tr", "ziraat.com.tr", "yapikredi.com.tr", "akbank.com.tr",
			"qnb.com.tr", "ing.com.tr", "teb.com.tr", "turkcell.com.tr",
			"vodafone.com.tr", "turktelekom.com.tr",
		},
		Shorteners: []string{
			"bit.ly", "t.co", "tinyurl.com", "cutt.ly", "rebrand.ly",
			"is.gd", "v.gd", "shorturl.at", "ow.ly", "buff.ly",
			"t.ly", "rb.gy", "shorte.st", "adf.ly", "bc.vc",
			"goo.gl", "bitly.com", "bl.ink", "short.cm", "clck.ru",
			"shrtco.de", "tiny.cc", "soo.gd", "s.id",
		},
		ImpostorRules: []ImpostorRule{
			{Name: "gov-prefix", Pattern: `^gov[-.][a-z0-9]+\.(com|net|org|info|biz)$`, Gov: true},
			{Name: "gov-suffix", Pattern: `^[a-z0-9]+[-.]gov\.(com|net|org|info)$`, Gov: true},
			{Name: "gov-anywhere", Pattern: `gov.*\.(com|net|org|info)`, Gov: true},
			{Name: "icra-gov", Pattern: `icra[-.].*gov.*\.(com|net|org)`, Gov: true},

			{Name: "ptt-prefix", Pattern: `ptt[-.][a-z0-9]+\.(com|net|org|info)$`},
			{Name: "ptt-suffix", Pattern: `[a-z0-9]+[-.]ptt\.(com|net|org|info)$`},
			{Name: "ptt-anywhere", Pattern: `ptt.*\.(com|net|org|info)`},
			{Name: "bank", Pattern: `bank.*\.(com|net|org)`},
			{Name: "garanti", Pattern: `garanti.*\.(com|net|org)`},
			{Name: "bankasi", Pattern: `bankasi?[-.][a-z0-9]+\.(com|net|org)$`},
			{Name: "finans", Pattern: `finans.*\.(com|net|org)`},
			{Name: "secure-login", Pattern: `secure[-.][a-z0-9]+[-.]login\.`},
			{Name: "secure-verify", Pattern: `secure[-.][a-z0-9]+[-.]verify\.`},
			{Name: "secure-any-login", Pattern: `secure.*login.*\.(com|net|org)`},
			{Name: "secure-any-verify", Pattern: `secure.*verify.*\.(com|net|org)`},
			{Name: "login-prefix", Pattern: `login[-.][a-z0-9]+\.(com|net|org)`},
			{Name: "verify-prefix", Pattern: `verify[-.][a-z0-9]+\.(com|net|org)`},
			{Name: "pay-prefix", Pattern: `pay[-.][a-z0-9]+\.(com|net|org)`},
			{Name: "payment-prefix", Pattern: `payment[-.][a-z0-9]+\.(com|net|org)`},
			{Name: "odeme", Pattern: `ödeme.*\.(com|net|org)`},
			{Name: "payment-online", Pattern: `payment.*online.*\.(com|net|org)`},
			{Name: "kargo", Pattern: `kargo.*\.(com|net|org)`},
			{Name: "teslimat", Pattern: `teslimat.*\.(com|net|org)`},
			{Name: "delivery", Pattern: `delivery.*\.(com|net|org)`},
			{Name: "update-prefix", Pattern: `update[-.][a-z0-9]+\.(com|net|org)`},
			{Name: "account-prefix", Pattern: `account[-.][a-z0-9]+\.(com|net|org)`},
			{Name: "edevlet", Pattern: `e[-.]?devlet.*\.(com|net|org)`},
			{Name: "security-prefix", Pattern: `security[-.][a-z0-9]+\.(com|net|org)`},
			{Name: "guvenlik", Pattern: `güvenlik.*\.(com|net|org)`},
			{Name: "online-bank", Pattern: `online[-.]bank\.(com|net|org)$`},
			{Name: "fast-prefix", Pattern: `fast[-.][a-z0-9]+\.(com|net|org)`},
			{Name: "quick-prefix", Pattern: `quick[-.][a-z0-9]+\.(com|net|org)`},
			{Name: "instant-prefix", Pattern: `instant[-.][a-z0-9]+\.(com|net|org)`},
		},
	}
}

// DefaultLexicon returns the built-in Turkish phrase lists
func DefaultLexicon() LexiconConfig {
	return LexiconConfig{
		LegalThreat:        []string{"icra"},
		AccountTerms:       []string{"hesap", "hesab"},
		SuspensionTerms:    []string{"askıya"},
		CardTerms:          []string{"kart"},
		BlockTerms:         []string{"bloke"},
		DeliveryFailure:    []string{"teslim edilemedi", "dağıtıma çıkarılamadı"},
		Shipment:           []string{"kargo"},
		Verification:       []string{"onayla", "doğrula", "aktif et"},
		SuspiciousActivity: []string{"olağandışı", "şüpheli işlem", "güvenlik nedeniyle", "erişim kısıtlaması"},
		Urgency: []string{
			"hemen", "derhal", "son uyarı", "24 saat",
			"aksi halde", "acil", "geciktirme", "kaçırmayın",
		},
		RewardLure:        []string{"kazandınız", "ödülünüz", "bedava hediye"},
		CredentialRequest: []string{"şifrenizi girin", "kart bilgileriniz"},
		Institutions: []string{
			"ptt", "e-devlet", "edevlet", "garanti", "bbva", "ziraat",
			"iş bank", "yapı kredi", "akbank", "qnb", "ing", "teb",
			"turkcell", "vodafone", "türk telekom",
		},
	}
}
