// Package valuation provides the HTTP client for the external lead valuation
// estimator. Calls go through a circuit breaker so a failing estimator is
// skipped quickly and analytics fall back to explicit values.
package valuation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"marketplace_backend/internal/pipeline/domain"
	"marketplace_backend/platform/logger"

	"github.com/sony/gobreaker"
)

const estimatePath = "/v1/estimates"

var (
	// ErrUnavailable is returned when the breaker is open or the estimator failed.
	ErrUnavailable = errors.New("valuation estimator unavailable")
	// ErrUnauthorized is returned when the estimator rejects the API key.
	ErrUnauthorized = errors.New("valuation estimator rejected credentials")
)

// Client calls the estimator.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	breaker    *gobreaker.CircuitBreaker
	log        *logger.Logger
}

// New creates a client for baseURL. timeout bounds each HTTP call.
func New(baseURL, apiKey string, timeout time.Duration, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Discard()
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		breaker:    newBreaker("valuation"),
		log:        log,
	}
}

// newBreaker opens after at least 5 requests in a 30s window with a failure
// ratio of 60% or more, and probes again after 10s.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
	})
}

// State returns the breaker state, for health reporting.
func (c *Client) State() string {
	return c.breaker.State().String()
}

type estimateLead struct {
	ID       string `json:"id"`
	BrandID  string `json:"brandId"`
	Source   string `json:"source"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
}

type estimateRequest struct {
	Leads []estimateLead `json:"leads"`
}

type estimateResponse struct {
	TotalCents int64 `json:"totalCents"`
}

// EstimateLeads returns the combined estimated value of leads in cents.
func (c *Client) EstimateLeads(ctx context.Context, leads []domain.Lead) (int64, error) {
	if len(leads) == 0 {
		return 0, nil
	}

	body := estimateRequest{Leads: make([]estimateLead, 0, len(leads))}
	for _, l := range leads {
		body.Leads = append(body.Leads, estimateLead{
			ID:       l.ID.String(),
			BrandID:  l.BrandID,
			Source:   string(l.Source),
			Status:   string(l.Status),
			Priority: string(l.Priority),
		})
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return 0, err
	}
	return result.(int64), nil
}

func (c *Client) doRequest(ctx context.Context, body estimateRequest) (int64, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+estimatePath, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("valuation request failed", "error", err)
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		c.log.Error("valuation unauthorized", "status", resp.StatusCode)
		return 0, ErrUnauthorized
	default:
		c.log.Warn("valuation upstream error", "status", resp.StatusCode)
		return 0, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out estimateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	if out.TotalCents < 0 {
		return 0, fmt.Errorf("%w: negative estimate", ErrUnavailable)
	}
	return out.TotalCents, nil
}
