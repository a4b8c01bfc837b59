package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/smsguard/internal/util"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaProvider runs explanations on a local Ollama server through its
// OpenAI-compatible /v1 API
type OllamaProvider struct {
	*OpenAIProvider
	root       string
	httpClient *http.Client
}

// NewOllamaProvider creates a provider; BaseURL is the server root
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("ollama model must be specified (e.g. llama3.2)")
	}

	root := strings.TrimSuffix(config.BaseURL, "/")
	if root == "" {
		root = defaultOllamaURL
	}
	root = strings.TrimSuffix(root, "/v1")

	if config.Timeout == 0 {
		config.Timeout = 60 // local models are slower
	}

	chat := config
	chat.BaseURL = root + "/v1"
	if chat.APIKey == "" {
		chat.APIKey = "ollama" // ignored by the server, required by the client
	}

	return &OllamaProvider{
		OpenAIProvider: newChatProvider("ollama", chat),
		root:           root,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
			},
		},
	}, nil
}

// IsAvailable checks that the server answers /api/tags
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.root+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		slog.Debug("Ollama availability check failed", "url", p.root, "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}
