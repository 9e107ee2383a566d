package gemini

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fwojciec/medprice"
	"google.golang.org/genai"
)

// Ensure Searcher implements medprice.SearchProvider at compile time.
var _ medprice.SearchProvider = (*Searcher)(nil)

// groundingRedirectHost serves the opaque redirect URLs Gemini returns in
// grounding chunks instead of the source page.
const groundingRedirectHost = "vertexaisearch.cloud.google.com"

// Searcher implements medprice.SearchProvider with Gemini's Google Search
// grounding. Candidates carry no inline record; callers scrape them.
type Searcher struct {
	client *genai.Client

	// Model overrides DefaultModel.
	Model string

	// HTTPClient resolves grounding redirect URLs to their targets.
	// Resolution is skipped when nil.
	HTTPClient *http.Client
}

// NewSearcher creates a new Searcher.
func NewSearcher(client *genai.Client) *Searcher {
	return &Searcher{
		client: client,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Search asks Gemini to search the web for query and returns the grounding
// sources, deduplicated and capped at limit.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]*medprice.Candidate, error) {
	if strings.TrimSpace(query) == "" {
		return nil, medprice.Errorf(medprice.EINVALID, "query required")
	}
	if limit <= 0 {
		limit = medprice.DefaultSearchLimit
	}

	result, err := s.client.Models.GenerateContent(ctx, modelOrDefault(s.Model),
		[]*genai.Content{genai.NewContentFromText(BuildSearchPrompt(query, limit), genai.RoleUser)},
		BuildSearchConfig(),
	)
	if err != nil {
		return nil, fmt.Errorf("gemini search: %w", err)
	}
	if result == nil {
		return nil, medprice.Errorf(medprice.EINTERNAL, "gemini returned nil result")
	}

	candidates := GroundingCandidates(result, limit)
	for _, c := range candidates {
		c.URL = s.resolve(ctx, c.URL)
	}
	return candidates, nil
}

// resolve follows a single grounding redirect. The original URL is kept on
// any failure since it still redirects to the page when fetched.
func (s *Searcher) resolve(ctx context.Context, rawURL string) string {
	if s.HTTPClient == nil {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host != groundingRedirectHost {
		return rawURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return rawURL
	}
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return rawURL
	}
	defer resp.Body.Close()

	if loc := resp.Header.Get("Location"); loc != "" && resp.StatusCode >= 300 && resp.StatusCode < 400 {
		return loc
	}
	return rawURL
}

// BuildSearchConfig returns the GenerateContentConfig enabling Google Search
// grounding.
func BuildSearchConfig() *genai.GenerateContentConfig {
	temp := float32(0)
	return &genai.GenerateContentConfig{
		Tools:       []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		Temperature: &temp,
	}
}

// BuildSearchPrompt builds the prompt asking for product pages about query.
func BuildSearchPrompt(query string, limit int) string {
	return fmt.Sprintf("Search the web for online pharmacy product pages that list the current price of: %s\n"+
		"Prefer pages from Indian pharmacies such as 1mg, PharmEasy, Netmeds and Apollo Pharmacy.\n"+
		"List up to %d product pages with their prices.", query, limit)
}

// GroundingCandidates extracts up to limit unique web sources from the
// grounding metadata of the first response candidate.
func GroundingCandidates(result *genai.GenerateContentResponse, limit int) []*medprice.Candidate {
	candidates := []*medprice.Candidate{}
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].GroundingMetadata == nil {
		return candidates
	}

	seen := make(map[string]bool)
	for _, chunk := range result.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		if seen[chunk.Web.URI] {
			continue
		}
		seen[chunk.Web.URI] = true
		candidates = append(candidates, &medprice.Candidate{URL: chunk.Web.URI, Title: chunk.Web.Title})
		if len(candidates) == limit {
			break
		}
	}
	return candidates
}
