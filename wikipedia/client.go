package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultAPIEndpoint = "https://en.wikipedia.org/w/api.php"
	defaultUserAgent   = "cinevec/1.0 (movie catalog embedding tool)"

	// matchThreshold is the minimum confidence (0-100) for a search hit
	// to be accepted as the record's article.
	matchThreshold = 60
)

// Section is one heading-delimited block of article text.
type Section struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	WordCount int    `json:"word_count"`
}

// MatchResult is the outcome of one article lookup. Found=false results
// carry a Reason and are cached like positive ones.
type MatchResult struct {
	Found      bool      `json:"found"`
	Title      string    `json:"title,omitempty"`
	URL        string    `json:"url,omitempty"`
	Summary    string    `json:"summary,omitempty"`
	Sections   []Section `json:"sections,omitempty"`
	Confidence int       `json:"confidence,omitempty"`
	Reason     string    `json:"reason,omitempty"`
}

// Client looks up movie articles through the MediaWiki API.
type Client struct {
	endpoint  string
	userAgent string
	client    *http.Client
}

type Option func(*Client)

func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		endpoint:  defaultAPIEndpoint,
		userAgent: defaultUserAgent,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type extractResponse struct {
	Query struct {
		Pages map[string]struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
			FullURL string `json:"fullurl"`
		} `json:"pages"`
	} `json:"query"`
}

// Enrich searches for the movie's article and, on a confident match,
// returns its summary and sections. A miss is a result, not an error;
// errors are reserved for transport failures.
func (c *Client) Enrich(ctx context.Context, title, year, director string) (*MatchResult, error) {
	query := strings.TrimSpace(fmt.Sprintf("%s %s film", title, year))

	candidates, err := c.search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &MatchResult{Found: false, Reason: "no search results"}, nil
	}

	best, confidence := pickCandidate(candidates, title)
	if confidence < matchThreshold {
		return &MatchResult{
			Found:      false,
			Confidence: confidence,
			Reason:     fmt.Sprintf("best candidate %q below confidence threshold", best),
		}, nil
	}

	article, err := c.fetchArticle(ctx, best)
	if err != nil {
		return nil, err
	}
	if article.Extract == "" {
		return &MatchResult{Found: false, Reason: "article has no text"}, nil
	}

	summary, sections := splitExtract(article.Extract)
	confidence = adjustConfidence(confidence, article.Extract, year, director)
	if confidence < matchThreshold {
		return &MatchResult{
			Found:      false,
			Confidence: confidence,
			Reason:     fmt.Sprintf("article %q failed verification", best),
		}, nil
	}

	return &MatchResult{
		Found:      true,
		Title:      article.Title,
		URL:        article.URL,
		Summary:    summary,
		Sections:   sections,
		Confidence: confidence,
	}, nil
}

func (c *Client) search(ctx context.Context, query string) ([]string, error) {
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {"5"},
		"format":   {"json"},
	}

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	titles := make([]string, 0, len(resp.Query.Search))
	for _, hit := range resp.Query.Search {
		titles = append(titles, hit.Title)
	}
	return titles, nil
}

type article struct {
	Title   string
	URL     string
	Extract string
}

func (c *Client) fetchArticle(ctx context.Context, title string) (*article, error) {
	params := url.Values{
		"action":      {"query"},
		"prop":        {"extracts|info"},
		"explaintext": {"1"},
		"inprop":      {"url"},
		"redirects":   {"1"},
		"titles":      {title},
		"format":      {"json"},
	}

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var resp extractResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode extract response: %w", err)
	}

	for _, page := range resp.Query.Pages {
		return &article{
			Title:   page.Title,
			URL:     page.FullURL,
			Extract: page.Extract,
		}, nil
	}

	return nil, fmt.Errorf("no page returned for %q", title)
}

func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach Wikipedia: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Wikipedia returned status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// pickCandidate scores each search hit by title similarity and returns the
// best one. Parenthesized disambiguators like "(1979 film)" are ignored
// when comparing.
func pickCandidate(candidates []string, title string) (string, int) {
	best := ""
	bestScore := -1

	for _, candidate := range candidates {
		score := titleScore(candidate, title)
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}

	return best, bestScore
}

func titleScore(candidate, title string) int {
	base := candidate
	if idx := strings.Index(base, " ("); idx > 0 {
		base = base[:idx]
	}

	cand := strings.ToLower(strings.TrimSpace(base))
	want := strings.ToLower(strings.TrimSpace(title))

	switch {
	case cand == want:
		return 90
	case strings.Contains(cand, want) || strings.Contains(want, cand):
		return 70
	default:
		// Partial word overlap
		overlap := 0
		wantWords := strings.Fields(want)
		for _, w := range wantWords {
			if strings.Contains(cand, w) {
				overlap++
			}
		}
		if len(wantWords) == 0 {
			return 0
		}
		return 50 * overlap / len(wantWords)
	}
}

// adjustConfidence verifies the matched article against the record's year
// and director. Mentions raise confidence, absences lower it.
func adjustConfidence(confidence int, text, year, director string) int {
	if year != "" {
		if strings.Contains(text, year) {
			confidence += 10
		} else {
			confidence -= 20
		}
	}
	if director != "" {
		if strings.Contains(strings.ToLower(text), strings.ToLower(director)) {
			confidence += 10
		} else {
			confidence -= 10
		}
	}

	if confidence > 100 {
		confidence = 100
	}
	if confidence < 0 {
		confidence = 0
	}
	return confidence
}

// splitExtract divides a plain-text extract into the lead summary and its
// "== Heading ==" sections.
func splitExtract(extract string) (string, []Section) {
	lines := strings.Split(extract, "\n")

	var summary strings.Builder
	var sections []Section
	var current *Section

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if heading, ok := parseHeading(trimmed); ok {
			if current != nil {
				finishSection(current, &sections)
			}
			current = &Section{Title: heading}
			continue
		}

		if current == nil {
			if trimmed != "" {
				if summary.Len() > 0 {
					summary.WriteString("\n")
				}
				summary.WriteString(trimmed)
			}
		} else if trimmed != "" {
			if current.Content != "" {
				current.Content += "\n"
			}
			current.Content += trimmed
		}
	}
	if current != nil {
		finishSection(current, &sections)
	}

	return summary.String(), sections
}

func parseHeading(line string) (string, bool) {
	if !strings.HasPrefix(line, "==") || !strings.HasSuffix(line, "==") {
		return "", false
	}
	heading := strings.Trim(line, "= ")
	if heading == "" {
		return "", false
	}
	return heading, true
}

func finishSection(s *Section, sections *[]Section) {
	if s.Content == "" {
		return
	}
	s.WordCount = len(strings.Fields(s.Content))
	*sections = append(*sections, *s)
}
