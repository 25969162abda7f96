// Package rag provides the HTTP client for the remote answer service.
package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ClientConfig configures the answer service client.
type ClientConfig struct {
	Endpoint string        // full URL of the chat endpoint
	APIKey   string        // optional bearer token
	Timeout  time.Duration // HTTP request timeout
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Endpoint: "http://localhost:8000/api/v1/chat/message",
		Timeout:  30 * time.Second,
	}
}

// Client talks to the remote retrieval-augmented answer service.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	logger     zerolog.Logger

	mu        sync.RWMutex
	connected bool

	onStatusChange func(connected bool)
}

// NewClient creates a new answer service client.
func NewClient(cfg *ClientConfig, logger zerolog.Logger) *Client {
	if cfg == nil {
		cfg = DefaultClientConfig()
	}

	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.With().Str("component", "rag-client").Logger(),
	}
}

// SetStatusHandler sets the callback for connection status changes.
func (c *Client) SetStatusHandler(handler func(connected bool)) {
	c.onStatusChange = handler
}

// Query sends a user message with identity context and returns the parsed
// reply. Any transport, status, or decode failure is returned as a
// *ServiceError.
func (c *Client) Query(ctx context.Context, req *QueryRequest) (*QueryResponse, error) {
	if req.Message == "" {
		return nil, &ServiceError{Reason: "request", Err: errors.New("empty message")}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &ServiceError{Reason: "request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, &ServiceError{Reason: "request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	c.logger.Debug().Str("message", req.Message).Str("userType", req.UserType).Msg("Sending query to answer service")
	start := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.setConnected(false)
		return nil, &ServiceError{Reason: "request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error().Int("status", resp.StatusCode).Str("body", string(respBody)).Msg("Answer service returned error status")
		return nil, &ServiceError{
			StatusCode: resp.StatusCode,
			Reason:     "status",
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var out QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.logger.Error().Err(err).Msg("Failed to decode answer service reply")
		return nil, &ServiceError{Reason: "decode", Err: err}
	}

	c.setConnected(true)
	c.logger.Debug().Dur("elapsed", time.Since(start)).Float64("confidence", out.Confidence).Msg("Answer service reply received")
	return &out, nil
}

// Health probes the endpoint to check reachability without sending a query.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.Endpoint(), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.setConnected(false)
		return fmt.Errorf("answer service unreachable: %w", err)
	}
	resp.Body.Close()

	// Any HTTP response means the service is up; the chat endpoint may
	// well reject HEAD with 405.
	c.setConnected(true)
	return nil
}

// IsConnected returns the last observed connection status.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Endpoint returns the configured endpoint URL.
func (c *Client) Endpoint() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config.Endpoint
}

// UpdateEndpoint changes the endpoint for subsequent queries.
func (c *Client) UpdateEndpoint(url string) {
	c.mu.Lock()
	c.config.Endpoint = url
	c.mu.Unlock()
	c.logger.Info().Str("endpoint", url).Msg("Answer service endpoint updated")
}

// setConnected updates connection status and notifies the handler.
func (c *Client) setConnected(connected bool) {
	c.mu.Lock()
	changed := c.connected != connected
	c.connected = connected
	c.mu.Unlock()

	if changed && c.onStatusChange != nil {
		c.onStatusChange(connected)
	}
}
