package orderclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"storefront/internal/domain/model"
)

const (
	HeaderIdempotencyKey = "X-Idempotency-Key"
	// エラーメッセージに載せる本文の上限
	maxErrorBody = 512
)

// 注文サービスが4xx/5xxを返した
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("order service returned %d: %s", e.StatusCode, e.Message)
}

// HTTPの注文サービスクライアント
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid order service url %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: u, http: httpClient}, nil
}

// POST /orders
func (c *Client) CreateOrder(ctx context.Context, req model.OrderRequest) (model.Order, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return model.Order{}, fmt.Errorf("encode order request: %w", err)
	}

	u := c.baseURL.JoinPath("orders")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return model.Order{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if req.IdempotencyKey != "" {
		httpReq.Header.Set(HeaderIdempotencyKey, req.IdempotencyKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return model.Order{}, fmt.Errorf("order service request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Order{}, fmt.Errorf("read order response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.Order{}, &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}

	id, err := extractOrderID(data)
	if err != nil {
		return model.Order{}, err
	}
	return model.Order{ID: id, Payload: json.RawMessage(data)}, nil
}

// order_id は文字列でも数値でもよい。無い場合は空で返す（判定は呼び出し側）
func extractOrderID(data []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var body map[string]interface{}
	if err := dec.Decode(&body); err != nil {
		return "", fmt.Errorf("decode order response: %w", err)
	}

	switch v := body["order_id"].(type) {
	case string:
		return strings.TrimSpace(v), nil
	case json.Number:
		return v.String(), nil
	default:
		return "", nil
	}
}

// {"error": "..."} があればそれを使う
func errorMessage(data []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &e); err == nil && e.Error != "" {
		return e.Error
	}
	s := strings.TrimSpace(string(data))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody]
	}
	return s
}
