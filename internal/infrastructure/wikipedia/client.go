package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"Weaver/internal/domain"
	"Weaver/internal/ports"
)

const (
	categoryPrefix   = "Category:"
	defaultUserAgent = "TheWeaver/1.0"
)

// Client reads category members and page intros from the MediaWiki action API.
type Client struct {
	endpoint  string
	userAgent string
	client    *http.Client
}

var _ ports.KnowledgeSource = (*Client)(nil)

// NewClient wires an HTTP client; a nil client gets a 20s timeout.
func NewClient(endpoint, userAgent string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{endpoint: endpoint, userAgent: userAgent, client: client}
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type queryResponse struct {
	Error *apiError `json:"error"`
	Query struct {
		Pages []struct {
			Title   string `json:"title"`
			NS      int    `json:"ns"`
			Missing bool   `json:"missing"`
			Invalid bool   `json:"invalid"`
			Extract string `json:"extract"`
			FullURL string `json:"fullurl"`
		} `json:"pages"`
		CategoryMembers []struct {
			Title string `json:"title"`
			NS    int    `json:"ns"`
		} `json:"categorymembers"`
	} `json:"query"`
}

// CategoryMembers checks that the category exists and lists up to limit members.
func (c *Client) CategoryMembers(ctx context.Context, category string, limit int) ([]domain.PageRef, error) {
	title := categoryTitle(category)

	var probe queryResponse
	if err := c.query(ctx, url.Values{
		"titles": {title},
	}, &probe); err != nil {
		return nil, fmt.Errorf("category %s: %w", category, err)
	}
	if len(probe.Query.Pages) == 0 || probe.Query.Pages[0].Missing || probe.Query.Pages[0].Invalid {
		return nil, fmt.Errorf("category %s: %w", category, domain.ErrCategoryNotFound)
	}

	var listing queryResponse
	if err := c.query(ctx, url.Values{
		"list":    {"categorymembers"},
		"cmtitle": {title},
		"cmlimit": {strconv.Itoa(limit)},
	}, &listing); err != nil {
		return nil, fmt.Errorf("category %s: %w", category, err)
	}

	members := make([]domain.PageRef, 0, len(listing.Query.CategoryMembers))
	for _, m := range listing.Query.CategoryMembers {
		members = append(members, domain.PageRef{Title: m.Title, Namespace: m.NS})
	}
	return members, nil
}

// PageDetails fetches the plain-text intro and canonical URL of a page.
func (c *Client) PageDetails(ctx context.Context, title string) (domain.PageDetails, error) {
	var resp queryResponse
	if err := c.query(ctx, url.Values{
		"titles":  {title},
		"prop":    {"extracts|info"},
		"exintro": {"1"},
		"inprop":  {"url"},
	}, &resp); err != nil {
		return domain.PageDetails{}, fmt.Errorf("page %s: %w", title, err)
	}
	if len(resp.Query.Pages) == 0 || resp.Query.Pages[0].Missing {
		return domain.PageDetails{}, fmt.Errorf("page %s: not found", title)
	}

	page := resp.Query.Pages[0]
	summary, err := extractText(page.Extract)
	if err != nil {
		return domain.PageDetails{}, fmt.Errorf("page %s: %w", title, err)
	}

	return domain.PageDetails{
		Title:   page.Title,
		Summary: summary,
		URL:     page.FullURL,
	}, nil
}

func (c *Client) query(ctx context.Context, params url.Values, v *queryResponse) error {
	reqURL, err := buildQueryURL(c.endpoint, params)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("wikipedia returned %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if v.Error != nil {
		return fmt.Errorf("wikipedia api error %s: %s", v.Error.Code, v.Error.Info)
	}
	return nil
}

// extractText flattens an HTML intro extract into newline-separated paragraphs.
func extractText(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse extract: %w", err)
	}
	doc.Find("style, script, .mw-empty-elt").Remove()

	var paragraphs []string
	doc.Find("p, li").Each(func(_ int, s *goquery.Selection) {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) == 0 {
		return strings.Join(strings.Fields(doc.Text()), " "), nil
	}
	return strings.Join(paragraphs, "\n"), nil
}

func categoryTitle(category string) string {
	if strings.HasPrefix(category, categoryPrefix) {
		return category
	}
	return categoryPrefix + category
}

func buildQueryURL(base string, params url.Values) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid api url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("action", "query")
	query.Set("format", "json")
	query.Set("formatversion", "2")
	for key, values := range params {
		for _, v := range values {
			query.Add(key, v)
		}
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
