package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/regscout/regscout/internal/config"
	"github.com/regscout/regscout/pkg/errx"
	"github.com/regscout/regscout/pkg/logger"
	"github.com/rs/zerolog"
)

// FDADomains restricts every search to FDA owned sites.
var FDADomains = []string{"fda.gov", "accessdata.fda.gov"}

type Service struct {
	client  *http.Client
	apiKey  string
	baseURL string
	domains []string
	log     zerolog.Logger
}

type SearchRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	IncludeDomains []string `json:"include_domains"`
}

type SearchResponse struct {
	Query   string `json:"query"`
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
	ResponseTime float64 `json:"response_time"`
}

func NewService(cfg config.TavilyConfig) *Service {
	log := logger.For(logger.SERVICE)

	if cfg.APIKey == "" {
		log.Warn().Msg("Tavily service not configured - FDA guidance search will be unavailable")
		return nil
	}

	log.Info().
		Str("base_url", cfg.BaseURL).
		Strs("include_domains", FDADomains).
		Msg("Tavily service initialized")

	return &Service{
		client:  &http.Client{Timeout: 30 * time.Second},
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		domains: FDADomains,
		log:     log,
	}
}

// Search runs a domain-restricted web search and returns the provider's
// result payload as compact JSON text.
func (s *Service) Search(ctx context.Context, searchTerms string) (string, error) {
	s.log.Info().Str("search_terms", searchTerms).Msg("Searching FDA guidance documents")

	jsonData, err := json.Marshal(SearchRequest{
		APIKey:         s.apiKey,
		Query:          searchTerms,
		IncludeDomains: s.domains,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := s.baseURL + "/search"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		s.log.Error().Err(err).Str("url", url).Msg("Tavily request failed")
		return "", errx.Network("failed to reach Tavily search", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errx.Network("failed to read Tavily response", err)
	}

	if resp.StatusCode != http.StatusOK {
		s.log.Error().
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("Tavily API returned non-200 status")
		return "", errx.Upstream("Tavily search returned an error", resp.StatusCode, nil)
	}

	var searchResp SearchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return "", errx.Parse("failed to decode Tavily response", err)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err != nil {
		return "", errx.Parse("failed to compact Tavily response", err)
	}

	s.log.Debug().
		Int("results", len(searchResp.Results)).
		Float64("response_time", searchResp.ResponseTime).
		Msg("Tavily search completed")

	return compact.String(), nil
}
