package adzuna

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	apiURL         = "https://api.adzuna.com"
	userAgent      = "spigell/recruiter-agency"
	defaultCountry = "in"
	defaultTimeout = 10 * time.Second
	// Max value for search per page.
	maxPageSize = 50
)

type Client struct {
	appID  string
	appKey string
	logger *zap.Logger

	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
	// Country is the Adzuna country code used in the search path.
	Country string
	// Location is used when a search does not name one.
	Location string
}

// Options configures a Client. Empty fields fall back to defaults.
type Options struct {
	AppID    string
	AppKey   string
	APIURL   string
	Country  string
	Location string
	Timeout  time.Duration
}

func New(logger *zap.Logger, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		appID:  strings.TrimSpace(opts.AppID),
		appKey: strings.TrimSpace(opts.AppKey),
		logger: logger,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		UserAgent: userAgent,
		APIURL:    strings.TrimRight(opts.APIURL, "/"),
		Country:   strings.TrimSpace(opts.Country),
		Location:  strings.TrimSpace(opts.Location),
	}

	if c.APIURL == "" {
		c.APIURL = apiURL
	}
	if c.Country == "" {
		c.Country = defaultCountry
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}

	return c
}

// Search runs a single search request and returns normalized postings.
func (c *Client) Search(ctx context.Context, params SearchParams) ([]Posting, error) {
	return c.search(ctx, params)
}
