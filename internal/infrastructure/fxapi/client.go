// Package fxapi is the HTTP client for the FX execution API. It adds
// bounded retry with exponential backoff on transient failures and an
// idempotency token on every order placement.
package fxapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"fxcopier-backend/internal/domain"
)

// ErrUnavailable marks retry exhaustion on a transient failure. The caller
// aborts the current operation; state is left unchanged.
var ErrUnavailable = errors.New("fxapi unavailable")

// APIError captures a structured rejection returned by the API. Rejections
// are not retried: the order is treated as failed.
type APIError struct {
	StatusCode int
	Code       int    `json:"code"`
	Message    string `json:"message"`
	Body       string
}

func (e *APIError) Error() string {
	if e == nil {
		return "fxapi error"
	}
	if e.Code != 0 || e.Message != "" {
		return fmt.Sprintf("fxapi error %d (code=%d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("fxapi error %d: %s", e.StatusCode, e.Body)
}

func parseAPIError(statusCode int, body []byte) error {
	var parsed struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && (parsed.Code != 0 || parsed.Message != "") {
		return &APIError{StatusCode: statusCode, Code: parsed.Code, Message: parsed.Message, Body: string(body)}
	}
	return &APIError{StatusCode: statusCode, Body: string(body)}
}

const (
	initialBackoff = 50 * time.Millisecond
	maxBackoff     = 1 * time.Second
)

// Client talks to the FX API over HTTP.
type Client struct {
	baseURL    string
	token      string
	maxRetries int
	httpClient *http.Client
}

// NewClient creates an FX API client. maxRetries bounds the attempts per
// call; timeout applies per attempt.
func NewClient(baseURL, token string, maxRetries int, timeout time.Duration) *Client {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) GetAccount(ctx context.Context) (*domain.Account, error) {
	var acct domain.Account
	if err := c.retryGet(ctx, "/account", nil, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

func (c *Client) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	params := url.Values{}
	params.Set("symbols", symbol)
	var q domain.Quote
	if err := c.retryGet(ctx, "/quotes", params, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

type orderPayload struct {
	Symbol   string   `json:"symbol"`
	Side     string   `json:"side"`
	Volume   float64  `json:"volume"`
	Price    *float64 `json:"price,omitempty"`
	Type     string   `json:"type,omitempty"`
	SL       *float64 `json:"sl,omitempty"`
	TP       *float64 `json:"tp,omitempty"`
	ClientID string   `json:"client_id"`
}

type orderResponse struct {
	Ticket string   `json:"ticket"`
	ID     string   `json:"id"`
	Price  *float64 `json:"price"`
}

func (c *Client) PlaceMarket(ctx context.Context, req *domain.OrderRequest) (*domain.OrderResult, error) {
	payload := orderPayload{
		Symbol:   req.Symbol,
		Side:     string(req.Side),
		Volume:   req.Volume,
		SL:       req.StopLoss,
		TP:       req.TakeProfit,
		ClientID: clientID(req),
	}
	return c.placeOrder(ctx, payload)
}

func (c *Client) PlaceLimit(ctx context.Context, req *domain.OrderRequest) (*domain.OrderResult, error) {
	price := req.Price
	payload := orderPayload{
		Symbol:   req.Symbol,
		Side:     string(req.Side),
		Volume:   req.Volume,
		Price:    &price,
		Type:     "limit",
		SL:       req.StopLoss,
		TP:       req.TakeProfit,
		ClientID: clientID(req),
	}
	return c.placeOrder(ctx, payload)
}

func (c *Client) placeOrder(ctx context.Context, payload orderPayload) (*domain.OrderResult, error) {
	var resp orderResponse
	if err := c.retryPost(ctx, "/order", payload, &resp); err != nil {
		return nil, err
	}
	res := &domain.OrderResult{Ticket: resp.Ticket}
	if res.Ticket == "" {
		res.Ticket = resp.ID
	}
	if resp.Price != nil {
		res.Price = *resp.Price
	}
	return res, nil
}

func (c *Client) ModifyOrder(ctx context.Context, ticket string, stopLoss, takeProfit *float64) error {
	payload := struct {
		Ticket string   `json:"ticket"`
		SL     *float64 `json:"sl,omitempty"`
		TP     *float64 `json:"tp,omitempty"`
	}{ticket, stopLoss, takeProfit}
	return c.retryPost(ctx, "/modify", payload, nil)
}

func (c *Client) CloseOrder(ctx context.Context, ticket string, volume *float64) error {
	payload := struct {
		Ticket string   `json:"ticket"`
		Volume *float64 `json:"volume,omitempty"`
	}{ticket, volume}
	return c.retryPost(ctx, "/close", payload, nil)
}

func (c *Client) GetPositions(ctx context.Context) ([]domain.Position, error) {
	var resp struct {
		Positions []domain.Position `json:"positions"`
	}
	if err := c.retryGet(ctx, "/positions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Positions, nil
}

// GetProfit resolves profit via the positions endpoint: by ticket first,
// then by symbol. A missing position reports 0 profit.
func (c *Client) GetProfit(ctx context.Context, ticket, symbol string) (float64, error) {
	positions, err := c.GetPositions(ctx)
	if err != nil {
		return 0, err
	}
	if ticket != "" {
		for _, p := range positions {
			if p.Ticket == ticket {
				return p.Profit, nil
			}
		}
	}
	if symbol != "" {
		for _, p := range positions {
			if p.Symbol == symbol {
				return p.Profit, nil
			}
		}
	}
	return 0, nil
}

func clientID(req *domain.OrderRequest) string {
	if req.ClientRequestID != "" {
		return req.ClientRequestID
	}
	return uuid.NewString()
}

func (c *Client) retryGet(ctx context.Context, path string, params url.Values, out any) error {
	return c.retry(ctx, "GET", path, func() (*http.Request, error) {
		u := c.requestURL(path, params)
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}, out)
}

func (c *Client) retryPost(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.retry(ctx, "POST", path, func() (*http.Request, error) {
		u := c.requestURL(path, nil)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, out)
}

// retry runs the request with exponential backoff. Transport errors and
// 5xx responses are retried up to maxRetries; a 4xx is a rejection and is
// returned immediately as *APIError.
func (c *Client) retry(ctx context.Context, method, path string, build func() (*http.Request, error), out any) error {
	backoff := initialBackoff
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, ctx.Err())
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		req, err := build()
		if err != nil {
			return err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode >= 500:
			lastErr = parseAPIError(resp.StatusCode, body)
			continue
		case resp.StatusCode >= 400:
			return parseAPIError(resp.StatusCode, body)
		}

		if out == nil {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("%s %s: malformed response: %w", method, path, err)
		}
		return nil
	}
	return fmt.Errorf("%w: %s %s failed after %d attempts: %v", ErrUnavailable, method, path, c.maxRetries, lastErr)
}

func (c *Client) requestURL(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("token", c.token)
	return c.baseURL + path + "?" + params.Encode()
}

// compile-time check
var _ domain.Broker = (*Client)(nil)
