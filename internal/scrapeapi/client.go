// Package scrapeapi is the outbound client for the external scraping
// provider. The provider runs the actual LinkedIn extraction; this client
// only submits jobs and resolves job handles to materialized results.
package scrapeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	// ClientTimeout is the total request timeout.
	ClientTimeout = 30 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 10 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 10 * time.Second
	// ResponseHeaderTimeout is time to wait for response headers.
	ResponseHeaderTimeout = 15 * time.Second

	userAgent = "LeadLens/1.0"
)

// Client talks to the scraping provider's job API.
// The provider key is passed per call because each user supplies their
// own stored credential; the client itself holds no secret.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a provider client for the given base URL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    newHTTPClient(),
		logger:  logger.With("component", "scrapeapi.client"),
	}
}

// SetTimeout overrides the total request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		c.http.Timeout = timeout
	}
}

// newHTTPClient builds an HTTP client with conservative timeouts.
// Redirects are not followed; the provider API never redirects.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: ClientTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   TLSHandshakeTimeout,
			ResponseHeaderTimeout: ResponseHeaderTimeout,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// submitRequest is the wire shape for job submission.
type submitRequest struct {
	Kind        string   `json:"kind"`
	PostURL     string   `json:"post_url,omitempty"`
	ProfileURLs []string `json:"profile_urls,omitempty"`
}

// submitResponse carries the opaque job handle.
type submitResponse struct {
	JobID string `json:"job_id"`
}

// resultsResponse is the wire shape for result retrieval.
type resultsResponse struct {
	Status string            `json:"status"`
	Items  []json.RawMessage `json:"items"`
}

// Result is one materialized item from a provider job. ProfileURL is the
// identifier extracted from the payload; empty when the provider returned
// an item without one.
type Result struct {
	ProfileURL string
	Payload    json.RawMessage
}

// SubmitCommentExtraction submits a job extracting the commenters of a
// single post URL. Returns the provider's job handle.
func (c *Client) SubmitCommentExtraction(ctx context.Context, apiKey, postURL string) (string, error) {
	return c.submit(ctx, apiKey, submitRequest{Kind: "post_comments", PostURL: postURL})
}

// SubmitProfileExtraction submits a job extracting details for a batch of
// profile URLs. Returns the provider's job handle.
func (c *Client) SubmitProfileExtraction(ctx context.Context, apiKey string, profileURLs []string) (string, error) {
	return c.submit(ctx, apiKey, submitRequest{Kind: "profile_details", ProfileURLs: profileURLs})
}

func (c *Client) submit(ctx context.Context, apiKey string, body submitRequest) (string, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal submit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/jobs", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build submit request: %w", err)
	}
	setHeaders(req, apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit %s job: %w", body.Kind, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	if out.JobID == "" {
		return "", fmt.Errorf("provider returned empty job handle")
	}

	c.logger.Debug("provider job submitted", "kind", body.Kind, "handle", out.JobID)

	return out.JobID, nil
}

// FetchResults resolves a job handle to the materialized result list.
// Returns ErrJobNotReady while the provider is still running the job.
func (c *Client) FetchResults(ctx context.Context, apiKey, handle string) ([]Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/jobs/"+handle+"/results", nil)
	if err != nil {
		return nil, fmt.Errorf("build results request: %w", err)
	}
	setHeaders(req, apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch results for %s: %w", handle, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var out resultsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode results response: %w", err)
	}

	if out.Status != "" && out.Status != "ready" {
		return nil, ErrJobNotReady
	}

	results := make([]Result, 0, len(out.Items))
	for _, item := range out.Items {
		results = append(results, Result{
			ProfileURL: ExtractProfileURL(item),
			Payload:    item,
		})
	}

	return results, nil
}

// ExtractProfileURL pulls the profile identifier out of a raw result item.
// Providers are inconsistent about the field name; every known variant is
// tried. Returns "" when no identifier is present.
func ExtractProfileURL(item json.RawMessage) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item, &fields); err != nil {
		return ""
	}

	for _, name := range []string{"profile_url", "profileUrl", "linkedin_url", "linkedinUrl", "url"} {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}

	return ""
}

func setHeaders(req *http.Request, apiKey string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("User-Agent", userAgent)
}

// checkStatus maps non-2xx responses to typed errors.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrProviderUnauthorized
	case http.StatusNotFound:
		return ErrJobHandleNotFound
	}

	// Read a bounded chunk of the body for the error message.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &ProviderError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
