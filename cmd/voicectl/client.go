package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant/handler"
	"github.com/FACorreiaa/echo-voice-assistant/internal/domain/assistant/service"
)

// apiClient posts turns to the assistant API.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL, token string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// turn sends one turn and decodes the reply. Error statuses still carry a
// spoken reply, so the body is decoded either way.
func (c *apiClient) turn(ctx context.Context, req handler.TurnRequest) (*service.Response, int, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode turn: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/assistant/turn", bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.http.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to send turn: %w", err)
	}
	defer res.Body.Close()

	var resp service.Response
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, res.StatusCode, fmt.Errorf("failed to decode reply (status %d): %w", res.StatusCode, err)
	}
	return &resp, res.StatusCode, nil
}

// exportCommands streams the command audit CSV for [from, to] into w.
func (c *apiClient) exportCommands(ctx context.Context, from, to string, w io.Writer) error {
	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}
	if to != "" {
		q.Set("to", to)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/assistant/commands/export?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to request export: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		var resp service.Response
		_ = json.NewDecoder(res.Body).Decode(&resp)
		return fmt.Errorf("export failed with status %d: %s", res.StatusCode, resp.Error)
	}
	if _, err := io.Copy(w, res.Body); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}
