package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultUserAgent is sent with every outbound request.
const DefaultUserAgent = "local-currency/1.0"

const maxResponseBytes = 1 << 20

// apiClient performs JSON calls with retry, backoff and a circuit breaker.
type apiClient struct {
	name    string
	http    *http.Client
	token   string
	retries int
	backoff Backoff
	breaker *CircuitBreaker
}

func newAPIClient(name string, cfg *Config) *apiClient {
	return &apiClient{
		name:    name,
		http:    &http.Client{Timeout: cfg.Timeout()},
		token:   cfg.API.Token,
		retries: cfg.API.Retries,
		backoff: DefaultBackoff,
		breaker: NewCircuitBreaker(DefaultCircuitBreakerConfig(name)),
	}
}

// do sends the request, retrying transient failures, and decodes the
// response body into out when out is non-nil. Every returned error is a
// *ServiceError.
func (c *apiClient) do(ctx context.Context, method, url string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return &ServiceError{Op: c.name, Err: err}
		}
	}

	for attempt := 0; ; attempt++ {
		if !c.breaker.Allow() {
			return &ServiceError{Op: c.name, Message: msgUnavailable, Err: ErrCircuitOpen}
		}

		started := time.Now()
		err := c.once(ctx, method, url, body, out)
		if err == nil || !retryable(err) {
			// A rejected request still proves the service is reachable.
			c.breaker.Record(nil)
		} else {
			c.breaker.Record(err)
		}
		if err == nil {
			slog.Debug("API call succeeded",
				slog.String("client", c.name),
				slog.String("method", method),
				slog.Duration("elapsed", time.Since(started)))
			return nil
		}

		if !retryable(err) || attempt >= c.retries || ctx.Err() != nil {
			return asServiceError(c.name, err)
		}

		slog.Warn("API call failed, retrying",
			slog.String("client", c.name),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", c.backoff.Delay(attempt)),
			slog.Any("error", err))
		if serr := c.backoff.Sleep(ctx, attempt); serr != nil {
			return asServiceError(c.name, err)
		}
	}
}

func (c *apiClient) once(ctx context.Context, method, url string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ServiceError{
			Op:      c.name,
			Status:  resp.StatusCode,
			Message: serverMessage(data),
			Err:     ErrUnexpectedStatus,
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", errDecode, err)
	}
	return nil
}

// serverMessage extracts {"message": "..."} from an error body.
func serverMessage(data []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &payload) != nil {
		return ""
	}
	return payload.Message
}

func asServiceError(op string, err error) error {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return &ServiceError{Op: op, Err: err}
}
