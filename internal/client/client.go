package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: %s", resp.Status)
	}
	return nil
}

func (c *Client) Remember(ctx context.Context, req RememberRequest) (*RememberResult, error) {
	var result RememberResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/memories", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListMemories(ctx context.Context, tier string, limit int) ([]Memory, error) {
	var result struct {
		Records []Memory `json:"records"`
	}
	path := fmt.Sprintf("/api/v1/memories?tier=%s&limit=%d", tier, limit)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Records, nil
}

func (c *Client) GetMemory(ctx context.Context, tier string, id int64) (*Memory, error) {
	var mem Memory
	path := fmt.Sprintf("/api/v1/memories/%s/%d", tier, id)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &mem); err != nil {
		return nil, err
	}
	return &mem, nil
}

func (c *Client) DeleteMemory(ctx context.Context, tier string, id int64) error {
	path := fmt.Sprintf("/api/v1/memories/%s/%d", tier, id)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) BoostMemory(ctx context.Context, tier string, id int64) (*Memory, error) {
	var mem Memory
	path := fmt.Sprintf("/api/v1/memories/%s/%d/boost", tier, id)
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &mem); err != nil {
		return nil, err
	}
	return &mem, nil
}

func (c *Client) ClearMemories(ctx context.Context, tier string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/memories?tier="+tier, nil, nil)
}

func (c *Client) Recall(ctx context.Context, query string) (*RecallResponse, error) {
	var resp RecallResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/memories/recall", RecallRequest{Query: query}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Decay(ctx context.Context) (map[string]DecayResult, error) {
	var results map[string]DecayResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/memories/decay", nil, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Client) Reflect(ctx context.Context) (*Memory, error) {
	var mem Memory
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/reflect", nil, &mem); err != nil {
		return nil, err
	}
	if mem.ID == 0 {
		return nil, nil
	}
	return &mem, nil
}

func (c *Client) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) Export(ctx context.Context) (*ExportResult, error) {
	var result ExportResult
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/export", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Import(ctx context.Context, records []ExportedMemory) error {
	return c.doJSON(ctx, http.MethodPost, "/api/v1/import", ImportRequest{Records: records}, nil)
}

func (c *Client) GetSettings(ctx context.Context) (*Settings, error) {
	var s Settings
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/settings", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) UpdateSettings(ctx context.Context, update SettingsUpdate) (*Settings, error) {
	var s Settings
	if err := c.doJSON(ctx, http.MethodPut, "/api/v1/settings", update, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Chat posts one conversation turn and consumes the server-sent event
// stream, invoking onDelta for each text fragment. The final "done" event
// carries the full result.
func (c *Client) Chat(ctx context.Context, text string, onDelta func(string)) (*ChatResult, error) {
	data, err := json.Marshal(ChatRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v1/chat", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	httpClient := &http.Client{} // no timeout: streaming can outlive 30s
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error %s: %s", resp.Status, string(body))
	}

	var (
		event   string
		result  *ChatResult
		scanner = bufio.NewScanner(resp.Body)
	)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			payload := strings.TrimPrefix(line, "data: ")
			switch event {
			case "delta":
				var d struct {
					Text string `json:"text"`
				}
				if err := json.Unmarshal([]byte(payload), &d); err == nil && onDelta != nil {
					onDelta(d.Text)
				}
			case "done":
				var r ChatResult
				if err := json.Unmarshal([]byte(payload), &r); err != nil {
					return nil, fmt.Errorf("decode result: %w", err)
				}
				result = &r
			case "error":
				var e struct {
					Error string `json:"error"`
				}
				if err := json.Unmarshal([]byte(payload), &e); err == nil {
					return nil, fmt.Errorf("chat failed: %s", e.Error)
				}
				return nil, fmt.Errorf("chat failed: %s", payload)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}
	if result == nil {
		return nil, fmt.Errorf("stream ended without a result")
	}
	return result, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("API error %s: %s", resp.Status, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}
