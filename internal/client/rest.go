package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"platoo/storefront/internal/config"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

var errServerFailure = errors.New("server failure")

// restClient is the shared JSON-over-HTTP plumbing behind every service client
type restClient struct {
	rl         ratelimit.Limiter
	breaker    *gobreaker.CircuitBreaker[*resty.Response]
	httpClient *resty.Client
}

func newRESTClient(name, baseURL string, cfg config.HTTPConfig) *restClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	// resty only retries idempotent methods, so cart mutations and order
	// submission stay fire-and-confirm
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	rl := ratelimit.NewUnlimited()
	if cfg.MaxRequestsPerSecond > 0 {
		rl = ratelimit.New(cfg.MaxRequestsPerSecond)
	}

	failures := uint32(cfg.BreakerFailures)
	if failures == 0 {
		failures = 5
	}
	cooldown := time.Duration(cfg.BreakerCooldown) * time.Second
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	// Only transport failures and 5xx answers count against the service
	breaker := gobreaker.NewCircuitBreaker[*resty.Response](gobreaker.Settings{
		Name:    name,
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("⚡ %s circuit %s -> %s", name, from, to)
		},
	})

	return &restClient{
		rl:         rl,
		breaker:    breaker,
		httpClient: client,
	}
}

// call performs one request and decodes a 2xx JSON body into result when result is not nil
func (c *restClient) call(ctx context.Context, op, method, path string, headers map[string]string, body, result any) error {
	c.rl.Take()

	req := c.httpClient.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}

	resp, err := c.breaker.Execute(func() (*resty.Response, error) {
		resp, err := req.Execute(method, path)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() >= 500 {
			return resp, errServerFailure
		}
		return resp, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &Error{Op: op, Kind: KindUnavailable, Err: err}
	}
	if err != nil && !errors.Is(err, errServerFailure) {
		return transportError(op, err)
	}

	if resp.IsError() {
		log.Debugf("%s: %s %s answered %d", op, method, path, resp.StatusCode())
		return &Error{Op: op, Kind: KindStatus, StatusCode: resp.StatusCode()}
	}

	if result == nil {
		return nil
	}

	raw := resp.String()
	if raw == "" {
		return &Error{Op: op, Kind: KindDecode, Err: fmt.Errorf("empty response body")}
	}
	if err := json.Unmarshal([]byte(raw), result); err != nil {
		return &Error{Op: op, Kind: KindDecode, Err: err}
	}

	return nil
}

func (c *restClient) Close() error {
	return c.httpClient.Close()
}
