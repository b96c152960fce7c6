package transcript

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Client fetches transcript documents from a records service.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string

	// MaxResponseBytes caps the size of a response body.
	MaxResponseBytes int64

	limiter *rate.Limiter
}

// DefaultMaxResponseBytes is the body cap used by NewClient.
const DefaultMaxResponseBytes = 8 << 20

// ErrResponseTooLarge means a response body exceeded MaxResponseBytes.
var ErrResponseTooLarge = errors.New("response body too large")

// NewClient returns a client for baseURL. rps caps outbound requests per
// second; zero or negative disables pacing.
func NewClient(baseURL string, timeout time.Duration, rps float64) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		MaxResponseBytes: DefaultMaxResponseBytes,
		limiter:          rate.NewLimiter(rate.Inf, 1),
	}
	if rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return c
}

// Fetch retrieves the transcript of one student.
func (c *Client) Fetch(ctx context.Context, studentID string) (*Document, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, fmt.Errorf("student id is required")
	}
	endpoint := fmt.Sprintf("%s/students/%s/transcript", c.BaseURL, url.PathEscape(studentID))

	body, err := c.makeRequest(ctx, http.MethodGet, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch transcript for %s: %w", studentID, err)
	}
	doc, err := Decode(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if doc.StudentID == "" {
		doc.StudentID = studentID
	}
	return doc, nil
}

func (c *Client) makeRequest(ctx context.Context, method, endpoint string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "academic-advisor/1.0")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	limit := c.MaxResponseBytes
	if limit <= 0 {
		limit = DefaultMaxResponseBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, limit)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

// StatusError is a non-200 answer from the records service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("records service returned status %d: %s", e.Code, e.Body)
}
