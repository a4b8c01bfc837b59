package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ppiankov/smsguard/internal/cache"
	"github.com/ppiankov/smsguard/internal/extract"
	"github.com/ppiankov/smsguard/internal/llm"
	"github.com/ppiankov/smsguard/internal/model"
	"github.com/ppiankov/smsguard/internal/reputation"
	"github.com/ppiankov/smsguard/internal/score"
	"github.com/ppiankov/smsguard/internal/worker"
)

// ErrEmptyInput is returned for messages that are empty or whitespace only
var ErrEmptyInput = errors.New("message is empty")

// Pipeline orchestrates one analysis: signals, URLs, domain verdicts,
// reputation lookup, fusion. It is safe for concurrent use.
type Pipeline struct {
	signals   *extract.SignalExtractor
	table     *reputation.Table
	lookuper  reputation.Lookuper
	scorer    *score.Scorer
	explainer *llm.Explainer
	logger    *slog.Logger
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLookuper replaces the reputation lookup (tests, offline runs)
func WithLookuper(l reputation.Lookuper) Option {
	return func(p *Pipeline) { p.lookuper = l }
}

// WithExplainer attaches an explanation step after scoring
func WithExplainer(e *llm.Explainer) Option {
	return func(p *Pipeline) { p.explainer = e }
}

// WithLogger sets the logger (slog.Default otherwise)
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline builds a pipeline from configuration. Unless overridden, the
// lookup goes to the reputation service through the outbound limiter and,
// when enabled, the result cache.
func NewPipeline(cfg *model.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}

	table, err := reputation.NewTable(&cfg.Domains)
	if err != nil {
		return nil, fmt.Errorf("build domain table: %w", err)
	}

	p := &Pipeline{
		signals: extract.NewSignalExtractor(&cfg.Lexicon),
		table:   table,
		scorer:  score.NewScorer(&cfg.Scoring),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.lookuper == nil {
		client := reputation.NewClient(cfg.Reputation, cfg.HTTP,
			reputation.WithPacer(worker.NewLimiter(cfg.RateLimiting)),
			reputation.WithLogger(p.logger),
		)
		if !client.HasCredential() && cfg.Reputation.Enabled {
			p.logger.Debug("No reputation API key configured; URL lookups will be skipped")
		}

		p.lookuper = client
		if store := cache.New(cfg.Cache); store != nil {
			p.lookuper = reputation.NewCachedLookuper(client, store, p.logger)
		}
	}

	return p, nil
}

// Table exposes the domain table for direct queries
func (p *Pipeline) Table() *reputation.Table {
	return p.table
}

// Analyze scores one message
func (p *Pipeline) Analyze(ctx context.Context, text string) (*model.AnalysisResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	signals := p.signals.Extract(text)
	urls := extract.ExtractURLs(text)

	// Official-link detection feeds the base score, so domains go first
	verdicts := make(map[string]model.DomainVerdict, len(urls))
	hasOfficialLink := false
	for _, u := range urls {
		v := p.table.ClassifyURL(u)
		verdicts[u] = v
		if v.Kind == model.VerdictOfficial {
			hasOfficialLink = true
		}
	}

	base := p.scorer.Base(signals, hasOfficialLink)

	var reputations map[string]model.ReputationResult
	if len(urls) > 0 {
		reputations = p.lookuper.Lookup(ctx, urls)
	}

	result := p.scorer.Fuse(base, urls, verdicts, reputations)

	if explanation := p.explainer.Explain(ctx, text, result); explanation != nil {
		result.Metadata.Extra = map[string]any{"explanation": explanation}
	}

	p.logger.Debug("Message analyzed",
		"risk_level", result.RiskLevel,
		"score", result.Score,
		"urls", len(urls),
		"threats", result.Metadata.TotalThreats,
		"lookup_errors", result.Metadata.LookupErrors,
	)

	return &result, nil
}

// AnalyzeHTML scores a message delivered as HTML (visible text plus link targets)
func (p *Pipeline) AnalyzeHTML(ctx context.Context, content string) (*model.AnalysisResult, error) {
	text, err := extract.FlattenHTML(content)
	if err != nil {
		return nil, fmt.Errorf("flatten html: %w", err)
	}
	return p.Analyze(ctx, text)
}

// ExplanationOf returns the explanation attached by Analyze, if any
func ExplanationOf(result *model.AnalysisResult) *model.Explanation {
	if result == nil {
		return nil
	}
	e, _ := result.Metadata.Extra["explanation"].(*model.Explanation)
	return e
}
