// Package github reads a user's recent comments, issues, pull requests and
// discussions from GitHub and fetches the reactions on each of them.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v71/github"
	"github.com/rs/zerolog/log"

	"github.com/reactionwatch/internal/capture"
	"github.com/reactionwatch/internal/retry"
)

const (
	DefaultAPIURL     = "https://api.github.com/"
	DefaultGraphQLURL = "https://api.github.com/graphql"
	userAgent         = "reactionwatch"
)

// ClientConfig configures the production Transport.
type ClientConfig struct {
	Token             string
	APIURL            string
	GraphQLURL        string
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
	Timeout           time.Duration

	// HTTPTransport overrides the underlying round tripper (tests).
	HTTPTransport http.RoundTripper
	Capture       *capture.Recorder
}

// Client talks to the GitHub REST API through go-github and to the GraphQL
// API with plain JSON POSTs. All requests share one rate limiter.
type Client struct {
	rest       *gogithub.Client
	http       *http.Client
	token      string
	graphqlURL string
	retry      retry.RetryConfig
	capture    *capture.Recorder
}

var _ Transport = (*Client)(nil)

// NewClient builds a Client from cfg.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("github token is required")
	}

	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	base, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid github api url %q: %w", cfg.APIURL, err)
	}

	graphqlURL := cfg.GraphQLURL
	if graphqlURL == "" {
		graphqlURL = DefaultGraphQLURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: newThrottledTransport(newLimiter(cfg.RequestsPerSecond, cfg.Burst), cfg.HTTPTransport),
	}

	rest := gogithub.NewClient(httpClient).WithAuthToken(cfg.Token)
	rest.BaseURL = base
	rest.UserAgent = userAgent

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Client{
		rest:       rest,
		http:       httpClient,
		token:      cfg.Token,
		graphqlURL: graphqlURL,
		retry:      retry.APIRetryConfig(maxRetries),
		capture:    cfg.Capture,
	}, nil
}

// ListUserEvents implements Transport.
func (c *Client) ListUserEvents(ctx context.Context, username string, page, perPage int) ([]*gogithub.Event, error) {
	var events []*gogithub.Event
	err := c.do(ctx, "list events", func() error {
		var err error
		events, _, err = c.rest.Activity.ListEventsPerformedByUser(ctx, username, true, &gogithub.ListOptions{
			Page:    page,
			PerPage: perPage,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list events for %s (page %d): %w", username, page, err)
	}

	c.capture.WriteJSON("github-events", events)
	return events, nil
}

// ListReactions implements Transport.
func (c *Client) ListReactions(ctx context.Context, path string) ([]RESTReaction, error) {
	var out []RESTReaction
	err := c.do(ctx, "list reactions", func() error {
		req, err := c.rest.NewRequest(http.MethodGet, path, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Accept", "application/vnd.github+json")

		out = nil
		_, err = c.rest.Do(ctx, req, &out)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list reactions at %s: %w", path, err)
	}

	c.capture.WriteJSON("github-reactions", out)
	return out, nil
}

// do runs op with backoff, classifying go-github errors first so client
// errors fail fast and server errors are retried.
func (c *Client) do(ctx context.Context, what string, op func() error) error {
	logger := log.With().Str("op", what).Logger()
	result := retry.RetryWithBackoff(ctx, c.retry, func() error {
		return classify(op())
	}, &logger)
	if result.Success {
		return nil
	}
	return result.LastError
}

func classify(err error) error {
	if err == nil {
		return nil
	}

	var rateErr *gogithub.RateLimitError
	var abuseErr *gogithub.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return retry.Transient(err)
	}

	var respErr *gogithub.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		status := respErr.Response.StatusCode
		switch {
		case status == http.StatusTooManyRequests || status >= 500:
			return retry.Transient(err)
		case status >= 400:
			return retry.Permanent(err)
		}
	}

	if errors.Is(err, context.Canceled) {
		return retry.Permanent(err)
	}
	return err
}
