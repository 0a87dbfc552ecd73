package adzuna

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/spigell/recruiter-agency/internal/utils"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"
	maxErrorDetail  = 300
)

// SearchError is returned for transport failures and non-success statuses.
type SearchError struct {
	// Status is zero when no response was received.
	Status int
	Detail string
	Err    error
}

func (e *SearchError) Error() string {
	msg := "job search failed"
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SearchError) Unwrap() error { return e.Err }

type itemResponse struct {
	Count   int              `json:"count"`
	Results []map[string]any `json:"results"`
}

func (c *Client) getItems(ctx context.Context, url string, q url.Values) ([]map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &SearchError{Detail: "build request", Err: err}
	}

	req = c.setHeaders(req)
	req.URL.RawQuery = q.Encode()

	resp, err := c.request(req)
	if err != nil {
		return nil, &SearchError{Err: err}
	}
	defer resp.Body.Close()

	response, err := c.parseItemResponse(resp)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("got response from Adzuna", zap.Int("count", response.Count), zap.Int("items", len(response.Results)))

	return response.Results, nil
}

func (c *Client) parseItemResponse(resp *http.Response) (*itemResponse, error) {
	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, &SearchError{Status: resp.StatusCode, Detail: "gzip", Err: err}
		}
		defer gzipReader.Close()
		body = gzipReader
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &SearchError{Status: resp.StatusCode, Detail: "read body", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &SearchError{Status: resp.StatusCode, Detail: utils.TruncateForLog(string(data), maxErrorDetail)}
	}

	var response itemResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, &SearchError{Status: resp.StatusCode, Detail: "decode body", Err: err}
	}

	return &response, nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("url", redact(req.URL)))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("request timed out: %w", err)
		}
		return nil, err
	}

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", contentType)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}

// redact hides credentials from logged URLs.
func redact(u *url.URL) string {
	copied := *u
	q := copied.Query()
	for _, key := range []string{"app_id", "app_key"} {
		if q.Has(key) {
			q.Set(key, "***")
		}
	}
	copied.RawQuery = q.Encode()
	return copied.String()
}
