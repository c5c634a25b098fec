package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/productlens/ingest/internal/domain"
)

const (
	// DefaultTimeout bounds a single request to the catalog API
	DefaultTimeout = 30 * time.Second

	// maxBodyBytes caps how much of a response body is read
	maxBodyBytes = 4 << 20

	// maxMessageLen caps the error message taken from a failed response body
	maxMessageLen = 200
)

// identifierPattern matches identifiers that can be sent to the API as-is
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Limiter admits outbound calls
type Limiter interface {
	Acquire(ctx context.Context) error
}

// ClientConfig holds catalog API settings
type ClientConfig struct {
	APIKey  string
	BaseURL string
	Country string
	Timeout time.Duration
}

// Client fetches product payloads from the catalog API. Every attempt waits
// on the shared limiter before the request is sent.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	country    string
	limiter    Limiter
	retry      *RetryPolicy
	debug      bool
}

// NewClient creates a new catalog API client
func NewClient(cfg ClientConfig, limiter Limiter, retry *RetryPolicy) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if retry == nil {
		retry = NewRetryPolicy(DefaultAttempts, DefaultBaseDelay)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		country: cfg.Country,
		limiter: limiter,
		retry:   retry,
	}
}

// SetDebug enables verbose per-attempt logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

func (c *Client) debugLog(format string, args ...interface{}) {
	if c.debug {
		log.Printf("[CATALOG] "+format, args...)
	}
}

// Fetch retrieves the raw payload for one identifier. Failures are always
// returned as *domain.FetchError carrying the last status and message seen.
func (c *Client) Fetch(ctx context.Context, id string) (*domain.RawResponse, error) {
	if !identifierPattern.MatchString(id) {
		return nil, &domain.FetchError{
			Message: fmt.Sprintf("identifier %q is not valid", id),
			Err:     domain.ErrInvalidIdentifier,
		}
	}

	var raw *domain.RawResponse
	err := c.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		resp, err := c.fetchOnce(ctx, id)
		if err != nil {
			log.Printf("[CATALOG] %s attempt %d failed: %v", id, attempt, err)
			return err
		}
		raw = resp
		return nil
	})
	if err != nil {
		var fetchErr *domain.FetchError
		if errors.As(err, &fetchErr) {
			return nil, fetchErr
		}
		return nil, &domain.FetchError{Message: err.Error(), Err: err}
	}

	return raw, nil
}

// fetchOnce performs a single rate-limited request
func (c *Client) fetchOnce(ctx context.Context, id string) (*domain.RawResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, &domain.FetchError{Message: "rate limiter: " + err.Error(), Err: err}
		}
	}

	resp, err := c.doRequest(ctx, c.productURL(id))
	if err != nil {
		return nil, &domain.FetchError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := readLimitedBody(resp.Body, maxBodyBytes)
	if err != nil {
		return nil, &domain.FetchError{
			Status:  resp.StatusCode,
			Message: "failed to read response: " + err.Error(),
			Err:     fmt.Errorf("%w: %v", domain.ErrCatalogAPIFailure, err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.FetchError{
			Status:  resp.StatusCode,
			Message: responseMessage(resp.StatusCode, body),
			Err:     domain.ErrCatalogAPIFailure,
		}
	}

	c.debugLog("%s fetched (%d bytes)", id, len(body))
	return &domain.RawResponse{
		Identifier: id,
		Status:     resp.StatusCode,
		Body:       body,
		FetchedAt:  time.Now(),
	}, nil
}

// productURL builds the request URL for one identifier
func (c *Client) productURL(id string) string {
	params := url.Values{}
	params.Add("api_key", c.apiKey)
	params.Add("asin", id)
	if c.country != "" {
		params.Add("country", c.country)
	}
	return fmt.Sprintf("%s?%s", c.baseURL, params.Encode())
}

// doRequest executes an HTTP GET request with proper headers and error handling
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "ProductLens-Ingest/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogAPIFailure, err)
	}

	return resp, nil
}

// readLimitedBody reads at most limit bytes from r
func readLimitedBody(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}

// responseMessage picks a short message for a failed response
func responseMessage(status int, body []byte) string {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return http.StatusText(status)
	}
	if runes := []rune(msg); len(runes) > maxMessageLen {
		msg = string(runes[:maxMessageLen])
	}
	return msg
}
