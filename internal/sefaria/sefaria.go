// Package sefaria fetches the Breslov corpus from the Sefaria text API.
// Responses carry Hebrew and English as arbitrarily nested string arrays;
// the client flattens each top-level section into one corpus document whose
// reference matches the canonical form used by citation lookup.
package sefaria

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/corpus"
	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/log"
)

const (
	defaultBaseURL = "https://www.sefaria.org"
	userAgent      = "guezi-rag-chatbot/1.0"
	requestTimeout = 30 * time.Second

	// One request every half second keeps us inside the API's comfort zone
	// when pulling a dozen complete books.
	requestInterval = 500 * time.Millisecond
)

// Book pairs a Sefaria index name with the display title used in corpus
// references.
type Book struct {
	APIName string
	Title   string
}

// DefaultBooks is the Breslov corpus: Rabbi Nachman's primary texts plus
// the biographical works of Rabbi Natan.
var DefaultBooks = []Book{
	{"Likutey_Moharan", "Likutei Moharan"},
	{"Likutey_Moharan_Tinyana", "Likutei Moharan, Part II"},
	{"Sippurei_Maasiyot", "Sippurei Maasiyot"},
	{"Tikkun_HaKlali", "Tikkun HaKlali"},
	{"Likutey_Tefilot", "Likutei Tefilot, Volume I"},
	{"Sefer_HaMiddot", "Sefer HaMiddot"},
	{"Meshivat_Nefesh", "Meshivat Nefesh"},
	{"Hishtapkhut_HaNefesh", "Hishtapkhut HaNefesh"},
	{"Kitzur_Likutey_Moharan", "Kitzur Likutei Moharan"},
	{"Shivchei_HaRan", "Shivchei HaRan"},
	{"Sichot_HaRan", "Sichot HaRan"},
	{"Chayei_Moharan", "Chayei Moharan"},
}

// Client talks to the Sefaria API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a rate-limited Sefaria client.
func NewClient(logger log.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    defaultBaseURL,
		limiter:    rate.NewLimiter(rate.Every(requestInterval), 1),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// textResponse is the subset of the texts endpoint we read. he and text
// mirror each other: nested arrays of strings, one level per section depth.
type textResponse struct {
	Ref    string          `json:"ref"`
	Hebrew json.RawMessage `json:"he"`
	Text   json.RawMessage `json:"text"`
}

// FetchBook downloads a complete book and returns one document per
// top-level section.
func (c *Client) FetchBook(ctx context.Context, book Book) ([]corpus.Document, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/api/texts/%s", c.baseURL, url.PathEscape(book.APIName))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("sefaria: build request for %s: %w", book.APIName, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sefaria: fetch %s: %w", book.APIName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sefaria: fetch %s: unexpected status %s", book.APIName, resp.Status)
	}

	var tr textResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("sefaria: decode %s: %w", book.APIName, err)
	}

	docs := flattenBook(book.Title, tr.Hebrew, tr.Text)
	c.logger.Info("fetched book", "book", book.APIName, "sections", len(docs))
	return docs, nil
}

// FetchAll downloads every book. A book that fails is logged and skipped:
// a partial corpus beats no corpus during ingestion.
func (c *Client) FetchAll(ctx context.Context, books []Book) ([]corpus.Document, error) {
	if len(books) == 0 {
		books = DefaultBooks
	}

	var all []corpus.Document
	for _, b := range books {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		docs, err := c.FetchBook(ctx, b)
		if err != nil {
			c.logger.Warn("skipping book", "book", b.APIName, "error", err)
			continue
		}
		all = append(all, docs...)
	}

	if len(all) == 0 {
		return nil, fmt.Errorf("sefaria: no documents fetched")
	}
	return all, nil
}
