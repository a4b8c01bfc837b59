package reputation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/smsguard/internal/extract"
	"github.com/ppiankov/smsguard/internal/model"
	"github.com/ppiankov/smsguard/internal/util"
)

var (
	// ErrNoCredential means no usable API key is configured
	ErrNoCredential = errors.New("reputation: no credential configured")
	// ErrBadStatus wraps non-2xx responses from the lookup service
	ErrBadStatus = errors.New("reputation: unexpected response status")
)

const (
	maxResponseBytes = 4 << 20
	apiKeyHeader     = "X-Goog-Api-Key"
)

// Lookuper resolves reputation results for a list of URLs.
// Results are keyed by the input strings; lookups never fail as a whole.
type Lookuper interface {
	Lookup(ctx context.Context, urls []string) map[string]model.ReputationResult
}

// Pacer delays outbound requests (worker.Limiter satisfies it)
type Pacer interface {
	Wait(ctx context.Context, rawURL string) error
}

// Client queries the Safe Browsing v4 threatMatches:find endpoint
type Client struct {
	cfg        model.ReputationConfig
	httpClient *http.Client
	userAgent  string
	pacer      Pacer
	logger     *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPacer paces every outbound request
func WithPacer(p Pacer) Option {
	return func(c *Client) { c.pacer = p }
}

// WithLogger sets the logger (slog.Default otherwise)
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a reputation client. Per-request deadlines come from
// cfg.Timeout and are applied through the request context.
func NewClient(cfg model.ReputationConfig, httpCfg model.HTTPConfig, opts ...Option) *Client {
	def := model.DefaultConfig().Reputation
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.ClientID == "" {
		cfg.ClientID = def.ClientID
	}
	if cfg.ClientVersion == "" {
		cfg.ClientVersion = def.ClientVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = def.MaxBatchSize
	}
	if len(cfg.ThreatTypes) == 0 {
		cfg.ThreatTypes = def.ThreatTypes
	}
	if len(cfg.PlatformTypes) == 0 {
		cfg.PlatformTypes = def.PlatformTypes
	}
	cfg.APIKey = cleanCredential(cfg.APIKey)

	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy),
			},
		},
		userAgent: httpCfg.UserAgent,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasCredential reports whether lookups will reach the network
func (c *Client) HasCredential() bool {
	return c.cfg.Enabled && c.cfg.APIKey != "" && c.cfg.APIKey != model.PlaceholderAPIKey
}

type pendingURL struct {
	input      string
	normalized string
}

// Lookup classifies every URL. Invalid URLs are never sent; without a
// credential nothing is sent. Each chunk of at most MaxBatchSize URLs is
// tried as one request and, if that fails, URL by URL.
func (c *Client) Lookup(ctx context.Context, urls []string) map[string]model.ReputationResult {
	results := make(map[string]model.ReputationResult, len(urls))
	if len(urls) == 0 {
		return results
	}

	if !c.HasCredential() {
		for _, u := range urls {
			results[u] = model.ReputationResult{
				Error:  model.ErrorNoCredential,
				Detail: ErrNoCredential.Error(),
				Via:    model.ViaSkipped,
			}
		}
		return results
	}

	var pending []pendingURL
	for _, u := range urls {
		normalized, ok := normalizeLookupURL(u)
		if !ok {
			results[u] = model.ReputationResult{Error: model.ErrorInvalidURL, Via: model.ViaSkipped}
			continue
		}
		pending = append(pending, pendingURL{input: u, normalized: normalized})
	}

	for start := 0; start < len(pending); start += c.cfg.MaxBatchSize {
		end := min(start+c.cfg.MaxBatchSize, len(pending))
		c.lookupChunk(ctx, pending[start:end], results)
	}

	return results
}

func (c *Client) lookupChunk(ctx context.Context, chunk []pendingURL, results map[string]model.ReputationResult) {
	entries := uniqueNormalized(chunk)

	matches, err := c.find(ctx, entries)
	if err == nil {
		for _, p := range chunk {
			results[p.input] = resultFor(matches[p.normalized], model.ViaBatch)
		}
		return
	}

	c.logger.Warn("batch reputation lookup failed, falling back to per-URL lookups",
		"urls", len(entries), "error", err)

	if ctx.Err() != nil {
		for _, p := range chunk {
			results[p.input] = model.ReputationResult{
				Error:  model.ErrorBatchFailed,
				Detail: err.Error(),
				Via:    model.ViaBatch,
			}
		}
		return
	}

	fallback := c.fallback(ctx, entries)
	for _, p := range chunk {
		results[p.input] = fallback[p.normalized]
	}
}

// fallback looks URLs up one at a time. With FallbackConcurrency > 1 the
// lookups fan out but results stay keyed, so ordering is unaffected.
func (c *Client) fallback(ctx context.Context, entries []string) map[string]model.ReputationResult {
	out := make([]model.ReputationResult, len(entries))

	single := func(i int) {
		if err := ctx.Err(); err != nil {
			out[i] = lookupFailed(err)
			return
		}
		matches, err := c.find(ctx, entries[i:i+1])
		if err != nil {
			c.logger.Debug("single reputation lookup failed", "url", entries[i], "error", err)
			out[i] = lookupFailed(err)
			return
		}
		out[i] = resultFor(matches[entries[i]], model.ViaFallback)
	}

	if c.cfg.FallbackConcurrency > 1 {
		var g errgroup.Group
		g.SetLimit(c.cfg.FallbackConcurrency)
		for i := range entries {
			g.Go(func() error {
				single(i)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range entries {
			single(i)
		}
	}

	byURL := make(map[string]model.ReputationResult, len(entries))
	for i, e := range entries {
		byURL[e] = out[i]
	}
	return byURL
}

// Wire types for threatMatches:find

type findRequest struct {
	Client     clientInfo `json:"client"`
	ThreatInfo threatInfo `json:"threatInfo"`
}

type clientInfo struct {
	ClientID      string `json:"clientId"`
	ClientVersion string `json:"clientVersion"`
}

type threatInfo struct {
	ThreatTypes      []string      `json:"threatTypes"`
	PlatformTypes    []string      `json:"platformTypes"`
	ThreatEntryTypes []string      `json:"threatEntryTypes"`
	ThreatEntries    []threatEntry `json:"threatEntries"`
}

type threatEntry struct {
	URL string `json:"url"`
}

type findResponse struct {
	Matches []threatMatch `json:"matches"`
}

type threatMatch struct {
	ThreatType      string      `json:"threatType"`
	PlatformType    string      `json:"platformType"`
	ThreatEntryType string      `json:"threatEntryType"`
	Threat          threatEntry `json:"threat"`
	CacheDuration   string      `json:"cacheDuration"`
}

// match aggregates every report for one URL
type match struct {
	threatTypes   []string
	platformTypes []string
	cacheDuration string
}

// find issues one threatMatches:find request bounded by the configured timeout
func (c *Client) find(ctx context.Context, urls []string) (map[string]*match, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	if c.pacer != nil {
		if err := c.pacer.Wait(reqCtx, c.cfg.Endpoint); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	body := findRequest{
		Client: clientInfo{ClientID: c.cfg.ClientID, ClientVersion: c.cfg.ClientVersion},
		ThreatInfo: threatInfo{
			ThreatTypes:      c.cfg.ThreatTypes,
			PlatformTypes:    c.cfg.PlatformTypes,
			ThreatEntryTypes: []string{"URL"},
			ThreatEntries:    make([]threatEntry, 0, len(urls)),
		},
	}
	for _, u := range urls {
		body.ThreatInfo.ThreatEntries = append(body.ThreatInfo.ThreatEntries, threatEntry{URL: u})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	// Transport errors quote the request URL, so the key stays out of it
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.cfg.APIKey)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	var decoded findResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&decoded); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	matches := make(map[string]*match)
	for _, m := range decoded.Matches {
		agg, ok := matches[m.Threat.URL]
		if !ok {
			agg = &match{}
			matches[m.Threat.URL] = agg
		}
		agg.threatTypes = appendUnique(agg.threatTypes, m.ThreatType)
		agg.platformTypes = appendUnique(agg.platformTypes, m.PlatformType)
		if agg.cacheDuration == "" {
			agg.cacheDuration = m.CacheDuration
		}
	}

	c.logger.Debug("reputation lookup complete", "urls", len(urls), "matches", len(matches))
	return matches, nil
}

func resultFor(m *match, via model.LookupVia) model.ReputationResult {
	if m == nil {
		return model.ReputationResult{Via: via}
	}
	return model.ReputationResult{
		Unsafe:        true,
		ThreatTypes:   m.threatTypes,
		PlatformTypes: m.platformTypes,
		CacheDuration: m.cacheDuration,
		Via:           via,
	}
}

func lookupFailed(err error) model.ReputationResult {
	return model.ReputationResult{
		Error:  model.ErrorLookupFailed,
		Detail: err.Error(),
		Via:    model.ViaFallback,
	}
}

// normalizeLookupURL strips quotes and punctuation pasted around a URL and
// applies the extractor's normalization
func normalizeLookupURL(raw string) (string, bool) {
	raw = strings.Trim(strings.TrimSpace(raw), "\"'`“”‘’")
	return extract.NormalizeURL(raw)
}

// cleanCredential removes surrounding quotes left over from .env files
func cleanCredential(key string) string {
	return strings.Trim(strings.TrimSpace(key), "\"'")
}

func uniqueNormalized(chunk []pendingURL) []string {
	seen := make(map[string]bool, len(chunk))
	out := make([]string, 0, len(chunk))
	for _, p := range chunk {
		if !seen[p.normalized] {
			seen[p.normalized] = true
			out = append(out, p.normalized)
		}
	}
	return out
}

func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
