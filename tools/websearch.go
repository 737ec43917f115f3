package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/luminon/agentd/llm"
	"github.com/luminon/agentd/types"
)

// SearchResult is a single web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchProvider is the web search backend. Implementations can wrap
// DuckDuckGo, SerpAPI, Tavily, or any other engine.
type SearchProvider interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
	Name() string
}

// WebSearchConfig configures the web search tool.
type WebSearchConfig struct {
	// MaxResults caps results per search. Defaults to 10.
	MaxResults int `yaml:"max_results"`
	// Timeout bounds one search call. Defaults to 15s.
	Timeout time.Duration `yaml:"timeout"`
	// RateLimit is the allowed searches per minute, 0 disables limiting.
	RateLimit int `yaml:"rate_limit"`
}

// DefaultWebSearchConfig returns sensible defaults.
func DefaultWebSearchConfig() WebSearchConfig {
	return WebSearchConfig{
		MaxResults: 10,
		Timeout:    15 * time.Second,
		RateLimit:  30,
	}
}

// WebSearch is the concrete web search tool.
type WebSearch struct {
	provider SearchProvider
	config   WebSearchConfig
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewWebSearch creates the tool around a search provider.
func NewWebSearch(provider SearchProvider, config WebSearchConfig, logger *zap.Logger) *WebSearch {
	if config.MaxResults == 0 {
		config.MaxResults = 10
	}
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RateLimit)), config.RateLimit)
	}
	return &WebSearch{
		provider: provider,
		config:   config,
		limiter:  limiter,
		logger:   logger.With(zap.String("tool", "web_search")),
	}
}

type webSearchArgs struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
}

type webSearchResponse struct {
	Query      string         `json:"query"`
	Results    []SearchResult `json:"results"`
	TotalCount int            `json:"total_count"`
}

// Describe returns the tool schema.
func (w *WebSearch) Describe() llm.ToolSchema {
	return llm.ToolSchema{
		Name:        "web_search",
		Description: "Real-time web search for fresh information (dates, events, news). Returns relevant results with titles, URLs, and snippets.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {
					"type": "string",
					"description": "The search query"
				},
				"max_results": {
					"type": "integer",
					"description": "Maximum number of results to return (default: 10)"
				}
			},
			"required": ["query"]
		}`),
	}
}

// Invoke runs one search and renders the results as a JSON content string.
func (w *WebSearch) Invoke(ctx context.Context, call types.ToolCall) (string, error) {
	var args webSearchArgs
	if err := json.Unmarshal(call.Arguments, &args); err != nil {
		return "", types.NewError(types.ErrToolFailure, "invalid web_search arguments").WithCause(err)
	}
	if args.Query == "" {
		return "", types.NewError(types.ErrToolFailure, "query is required")
	}
	if w.provider == nil {
		return "", types.NewError(types.ErrToolFailure, "web search provider not configured")
	}

	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			return "", types.NewError(types.ErrToolFailure, "search rate limit wait aborted").WithCause(err)
		}
	}

	maxResults := w.config.MaxResults
	if args.MaxResults > 0 && args.MaxResults < maxResults {
		maxResults = args.MaxResults
	}

	ctx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	start := time.Now()
	results, err := w.provider.Search(ctx, args.Query, maxResults)
	if err != nil {
		w.logger.Error("web search failed", zap.String("query", args.Query), zap.Error(err))
		return "", types.NewError(types.ErrToolFailure, "web search failed").WithCause(err).WithRetryable(true)
	}
	w.logger.Info("web search completed",
		zap.String("query", args.Query),
		zap.Int("results", len(results)),
		zap.Duration("duration", time.Since(start)))

	payload, err := json.Marshal(webSearchResponse{
		Query:      args.Query,
		Results:    results,
		TotalCount: len(results),
	})
	if err != nil {
		return "", types.NewError(types.ErrToolFailure, "failed to render search results").WithCause(err)
	}
	return string(payload), nil
}

// DuckDuckGo is a keyless SearchProvider over the DuckDuckGo instant-answer
// API.
type DuckDuckGo struct {
	baseURL string
	client  *http.Client
}

// NewDuckDuckGo creates the provider. An empty baseURL targets the public
// API endpoint.
func NewDuckDuckGo(baseURL string, timeout time.Duration) *DuckDuckGo {
	if baseURL == "" {
		baseURL = "https://api.duckduckgo.com"
	}
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &DuckDuckGo{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

type ddgResponse struct {
	Heading       string `json:"Heading"`
	AbstractText  string `json:"AbstractText"`
	AbstractURL   string `json:"AbstractURL"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

// Search queries the instant-answer API.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	endpoint := fmt.Sprintf("%s/?q=%s&format=json&no_html=1&skip_disambig=1",
		d.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search error: status=%d", resp.StatusCode)
	}

	var body ddgResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	results := make([]SearchResult, 0, maxResults)
	if body.AbstractText != "" {
		results = append(results, SearchResult{
			Title:   body.Heading,
			URL:     body.AbstractURL,
			Snippet: body.AbstractText,
		})
	}
	for _, topic := range body.RelatedTopics {
		if len(results) >= maxResults {
			break
		}
		if topic.Text == "" {
			continue
		}
		results = append(results, SearchResult{
			Title:   topic.Text,
			URL:     topic.FirstURL,
			Snippet: topic.Text,
		})
	}
	return results, nil
}
