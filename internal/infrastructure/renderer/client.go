package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrEmptyDocument = errors.New("renderer: empty document")

const maxDocumentBytes = 20 << 20

var defaultClient = &http.Client{Timeout: 60 * time.Second}

// HTTPClient renders certificates through the renderer's HTTP API.
type HTTPClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func (c *HTTPClient) Render(ctx context.Context, p Payload) ([]byte, error) {
	client := c.Client
	if client == nil {
		client = defaultClient
	}
	if c.BaseURL == "" {
		return nil, fmt.Errorf("renderer: RENDERER_URL is not set")
	}
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("renderer: encode payload: %w", err)
	}
	url := strings.TrimRight(c.BaseURL, "/") + "/render"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/pdf")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("renderer request: %w", err)
	}
	defer resp.Body.Close()

	doc, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("renderer read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(doc)
		if len(snippet) > 300 {
			snippet = snippet[:300]
		}
		return nil, fmt.Errorf("renderer error: status %d body: %s", resp.StatusCode, snippet)
	}
	if len(doc) == 0 {
		return nil, ErrEmptyDocument
	}
	return doc, nil
}
