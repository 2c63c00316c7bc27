package copilot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config holds Copilot API client configuration.
type Config struct {
	BaseURL string        // e.g. "https://owpublic.blob.core.windows.net/tech-task"
	Token   string        // Optional bearer token
	Timeout time.Duration // HTTP request timeout (default: 10s)

	MaxIdleConns    int           // Maximum idle connections (default: 100)
	IdleConnTimeout time.Duration // Idle connection timeout (default: 90s)
}

// Client is an HTTP client for the Copilot API. Requests are single-attempt:
// a failed lookup is handled by the caller's fallback branch, not retried.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new Copilot API client with pooled connections.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 100
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = 90 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     cfg.IdleConnTimeout,

		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,

		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		logger: logger,
	}
}

// GetReport fetches report details by ID. The ID is passed through as an
// opaque path segment; a malformed ID surfaces as the upstream's 404/400.
func (c *Client) GetReport(ctx context.Context, reportID string) (*Report, error) {
	c.logger.Debug("fetching report", zap.String("report_id", reportID))

	var report Report
	if err := c.doRequest(ctx, "/reports/"+url.PathEscape(reportID), &report); err != nil {
		return nil, err
	}

	c.logger.Debug("fetched report",
		zap.String("report_id", reportID),
		zap.String("name", report.Name),
		zap.Float64("credit_cost", report.CreditCost),
	)

	return &report, nil
}

// CurrentPeriodMessages fetches all messages from the current billing period.
func (c *Client) CurrentPeriodMessages(ctx context.Context) ([]Message, error) {
	c.logger.Debug("fetching current period messages")

	var result messagesResponse
	if err := c.doRequest(ctx, "/messages/current-period", &result); err != nil {
		return nil, err
	}

	c.logger.Debug("fetched current period messages",
		zap.Int("count", len(result.Messages)),
	)

	return result.Messages, nil
}

// doRequest executes a single GET and decodes the JSON response into result.
func (c *Client) doRequest(ctx context.Context, path string, result interface{}) error {
	reqURL := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)

	if err != nil {
		c.logger.Error("HTTP request failed",
			zap.String("url", reqURL),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	c.logger.Debug("HTTP response received",
		zap.String("url", reqURL),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", duration),
		zap.Int("body_size", len(respBody)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			c.logger.Error("failed to parse response",
				zap.String("url", reqURL),
				zap.ByteString("body", respBody),
				zap.Error(err),
			)
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}

	return nil
}

// setHeaders sets common HTTP headers, including a per-request correlation ID.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "orbital-usage-service/1.0")
	req.Header.Set("X-Request-ID", uuid.NewString())

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
