package orderservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPClient talks JSON over HTTP to the remote order service.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HTTPClient) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	path := "/orders/" + url.PathEscape(orderID)
	if err := c.do(ctx, http.MethodGet, path, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *HTTPClient) FetchLines(ctx context.Context, lineIDs []string) ([]Line, error) {
	if len(lineIDs) == 0 {
		return nil, nil
	}
	req := struct {
		LineIDs []string `json:"line_ids"`
	}{LineIDs: lineIDs}

	var resp struct {
		Lines []Line `json:"lines"`
	}
	if err := c.do(ctx, http.MethodPost, "/order-lines/fetch", req, &resp); err != nil {
		return nil, err
	}
	return resp.Lines, nil
}

func (c *HTTPClient) CreateLine(ctx context.Context, orderID, productID string, quantity, unitPrice int, name string) (string, error) {
	req := struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
		UnitPrice int    `json:"unit_price"`
		Name      string `json:"name"`
	}{productID, quantity, unitPrice, name}

	var resp struct {
		LineID string `json:"line_id"`
	}
	path := "/orders/" + url.PathEscape(orderID) + "/lines"
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return "", err
	}
	return resp.LineID, nil
}

func (c *HTTPClient) UpdateLine(ctx context.Context, lineID string, quantity, unitPrice int) error {
	req := struct {
		Quantity  int `json:"quantity"`
		UnitPrice int `json:"unit_price"`
	}{quantity, unitPrice}

	path := "/order-lines/" + url.PathEscape(lineID)
	return c.do(ctx, http.MethodPatch, path, req, nil)
}

func (c *HTTPClient) DeleteLine(ctx context.Context, lineID string) error {
	path := "/order-lines/" + url.PathEscape(lineID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("order service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Message: resp.Status}
		// Decode failures leave the HTTP status as the message.
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
