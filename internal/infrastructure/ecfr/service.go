package ecfr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/regscout/regscout/internal/config"
	"github.com/regscout/regscout/pkg/errx"
	"github.com/regscout/regscout/pkg/logger"
	"github.com/rs/zerolog"
)

// ErrorMessage is reported for every failed eCFR request.
const ErrorMessage = "Error getting response from CFR"

const resultsPerPage = 25

type Service struct {
	client  *http.Client
	baseURL string
	log     zerolog.Logger
}

type SearchResponse struct {
	Results []Result `json:"results"`
}

type Result struct {
	FullTextExcerpt   string          `json:"full_text_excerpt"`
	HierarchyHeadings json.RawMessage `json:"hierarchy_headings"`
}

func NewService(cfg config.ECFRConfig) *Service {
	log := logger.For(logger.SERVICE)

	log.Info().
		Str("base_url", cfg.BaseURL).
		Msg("eCFR service initialized")

	return &Service{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		log:     log,
	}
}

// SearchURL builds the full-text search URL for searchTerms.
func (s *Service) SearchURL(searchTerms string) string {
	return fmt.Sprintf("%s/api/search/v1/results?query=%s&per_page=%d&page=1&order=relevance&paginate_by=results",
		s.baseURL, url.QueryEscape(searchTerms), resultsPerPage)
}

// Search queries the eCFR full-text search and returns one line per result:
// the excerpt followed by the JSON hierarchy headings.
func (s *Service) Search(ctx context.Context, searchTerms string) (string, error) {
	searchURL := s.SearchURL(searchTerms)
	s.log.Info().Str("search_terms", searchTerms).Msg("Searching CFR")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Error().Err(err).Str("url", searchURL).Msg("eCFR request failed")
		return "", errx.Network(ErrorMessage, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.log.Error().
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("eCFR API returned error status")
		return "", errx.Upstream(ErrorMessage, resp.StatusCode, nil)
	}

	var searchResp SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		if ctx.Err() != nil {
			return "", errx.Network(ErrorMessage, err)
		}
		return "", errx.Parse("failed to decode CFR response", err)
	}

	lines := make([]string, 0, len(searchResp.Results))
	lengths := make([]int, 0, len(searchResp.Results))
	for _, result := range searchResp.Results {
		line := result.FullTextExcerpt + " " + compactHeadings(result.HierarchyHeadings)
		lines = append(lines, line)
		lengths = append(lengths, len(line))
	}

	s.log.Debug().Ints("result_lengths", lengths).Msg("CFR search completed")

	return strings.Join(lines, "\n"), nil
}

func compactHeadings(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
