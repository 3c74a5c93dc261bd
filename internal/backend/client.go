package backend

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

	"github.com/shinyyama/fragrance-assistant/internal/failure"
)

// Client talks to the storefront REST API. All payloads are snake_case JSON.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	contentType string
}

func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  httpClient,
		contentType: "application/json",
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	if c == nil {
		return errors.New("backend client is nil")
	}
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", c.contentType)
	}
	req.Header.Set("Accept", c.contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return failure.Network(err)
	}
	defer resp.Body.Close()

	resBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure.Network(err)
	}
	if resp.StatusCode >= 300 {
		return failure.FromStatus(resp.StatusCode, errorMessage(resBody))
	}
	if out == nil || len(bytes.TrimSpace(resBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resBody, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var parsed struct {
		Message string          `json:"message"`
		Detail  json.RawMessage `json:"detail"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		for _, raw := range []json.RawMessage{parsed.Detail, parsed.Error} {
			var s string
			if len(raw) > 0 && json.Unmarshal(raw, &s) == nil && s != "" {
				return s
			}
			var nested struct {
				Message string `json:"message"`
			}
			if len(raw) > 0 && json.Unmarshal(raw, &nested) == nil && nested.Message != "" {
				return nested.Message
			}
		}
	}
	return truncate(strings.TrimSpace(string(body)), 300)
}

func identity(userID, sessionID string) url.Values {
	q := url.Values{}
	q.Set("user_id", userID)
	q.Set("session_id", sessionID)
	return q
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
