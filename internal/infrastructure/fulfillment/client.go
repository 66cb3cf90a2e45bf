// Package fulfillment is the HTTP adapter for the fulfillment network's
// inbound API.
package fulfillment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/sony/gobreaker"

	"github.com/wms-platform/inbound-service/internal/domain"
	"github.com/wms-platform/inbound-service/pkg/logging"
	"github.com/wms-platform/inbound-service/pkg/metrics"
	"github.com/wms-platform/inbound-service/pkg/resilience"
	"github.com/wms-platform/inbound-service/pkg/tracing"
)

const (
	apiPrefix    = "/inbound/fba/2024-03-20"
	labelsPrefix = "/inbound/fba/v0"
	maxPages     = 50
)

// Config holds the connection settings for the fulfillment network API
type Config struct {
	BaseURL      string        `yaml:"baseUrl"`
	AccessToken  string        `yaml:"accessToken"`
	Marketplace  string        `yaml:"marketplace"`
	Timeout      time.Duration `yaml:"timeout"`
	PageSize     int           `yaml:"pageSize"`
	MaxAttempts  int           `yaml:"maxAttempts"`
	RetryBackoff time.Duration `yaml:"retryBackoff"`
}

// DefaultConfig returns a Config pointed at the production endpoint
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      "https://sellingpartnerapi-na.amazon.com",
		Marketplace:  "ATVPDKIKX0DER",
		Timeout:      30 * time.Second,
		PageSize:     20,
		MaxAttempts:  3,
		RetryBackoff: 500 * time.Millisecond,
	}
}

// Client implements domain.FulfillmentNetwork over HTTP. Every call runs
// through a circuit breaker and is retried while the answer is temporary.
type Client struct {
	config     *Config
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	retry      *resilience.RetryConfig
	metrics    *metrics.Metrics
	logger     *logging.Logger
	tracer     trace.Tracer
}

var _ domain.FulfillmentNetwork = (*Client)(nil)

// NewClient creates a new fulfillment network client
func NewClient(config *Config, m *metrics.Metrics, logger *logging.Logger) *Client {
	if config.PageSize <= 0 {
		config.PageSize = 20
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}

	cbConfig := resilience.DefaultCircuitBreakerConfig("fulfillment-network")
	// 4xx answers mean the request was wrong, not that the network is down
	cbConfig.IsSuccessful = func(err error) bool {
		var remote *domain.RemoteCallError
		if errors.As(err, &remote) {
			return !remote.Temporary()
		}
		return err == nil
	}
	cbConfig.OnStateChange = func(name string, _, to gobreaker.State) {
		m.SetCircuitBreakerState(name, int(to))
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = config.MaxAttempts
	retry.InitialDelay = config.RetryBackoff
	retry.RetryableErrors = isTemporary

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		breaker:    resilience.NewCircuitBreaker(cbConfig, logger),
		retry:      retry,
		metrics:    m,
		logger:     logger.WithComponent("fulfillment-client"),
		tracer:     otel.Tracer("fulfillment"),
	}
}

// BreakerStatus reports the circuit breaker for health endpoints
func (c *Client) BreakerStatus() resilience.CircuitBreakerStatus {
	return c.breaker.Status()
}

func isTemporary(err error) bool {
	var remote *domain.RemoteCallError
	if errors.As(err, &remote) {
		return remote.Temporary()
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// call is one API request. A nil result discards the response body.
type call struct {
	operation string
	method    string
	path      string
	query     url.Values
	body      any
	result    any
}

// do executes the call with retries and records a span, a metric and a log
// line per attempt.
func (c *Client) do(ctx context.Context, req call) error {
	return resilience.Retry(ctx, c.retry, func() error {
		_, err := resilience.Execute(ctx, c.breaker, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.attempt(ctx, req)
		})
		return err
	})
}

func (c *Client) attempt(ctx context.Context, req call) error {
	ctx, span := c.tracer.Start(ctx, "fulfillment."+req.operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(tracing.RemoteCallSpanAttributes(req.operation, req.method, req.path)...),
	)
	defer span.End()

	start := time.Now()
	status, err := c.send(ctx, req)
	duration := time.Since(start)

	c.metrics.RecordRemoteCall(req.operation, status, duration)
	c.logger.RemoteCall(ctx, req.operation, status, duration, err)

	span.SetAttributes(attribute.Int("http.status_code", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return err
}

func (c *Client) send(ctx context.Context, req call) (int, error) {
	var reqBody io.Reader
	if req.body != nil {
		jsonBody, err := json.Marshal(req.body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	endpoint := strings.TrimRight(c.config.BaseURL, "/") + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, reqBody)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.config.AccessToken != "" {
		httpReq.Header.Set("x-amz-access-token", c.config.AccessToken)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("%s request failed: %w", req.operation, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		return resp.StatusCode, &domain.RemoteCallError{
			Operation:  req.operation,
			StatusCode: resp.StatusCode,
			Problems:   parseProblems(respBody, resp.Status),
		}
	}

	if req.result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, req.result); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to unmarshal %s response: %w", req.operation, err)
		}
	}
	return resp.StatusCode, nil
}

// parseProblems reads the API error list, falling back to the raw body
func parseProblems(body []byte, status string) []domain.Problem {
	var parsed errorList
	if err := json.Unmarshal(body, &parsed); err == nil && len(parsed.Errors) > 0 {
		problems := make([]domain.Problem, len(parsed.Errors))
		for i, e := range parsed.Errors {
			problems[i] = e.toDomain()
		}
		return problems
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = status
	}
	return []domain.Problem{{Message: msg}}
}

// listPages follows pagination tokens and drops items already seen under the
// same key, which happens when the remote list shifts between pages.
func listPages[T any](ctx context.Context, c *Client, fetch func(ctx context.Context, query url.Values) ([]T, string, error), key func(T) string) ([]T, error) {
	var out []T
	seen := make(map[string]bool)
	token := ""

	for page := 0; page < maxPages; page++ {
		query := url.Values{}
		query.Set("pageSize", fmt.Sprint(c.config.PageSize))
		if token != "" {
			query.Set("paginationToken", token)
		}

		items, next, err := fetch(ctx, query)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			k := key(item)
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, item)
		}

		if next == "" || next == token {
			return out, nil
		}
		token = next
	}
	return out, nil
}
