package assistant

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

	"github.com/dabirhq/dabir/internal/config"
)

// UpstreamClient talks to an OpenAI-compatible chat completion endpoint.
// The assistant handler picks the endpoint by the user's model preference.
type UpstreamClient struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

// NewUpstreamClient creates an upstream client for one endpoint.
func NewUpstreamClient(baseURL, apiKey, model string, timeout time.Duration) *UpstreamClient {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &UpstreamClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Timeout: timeout},
	}
}

// UpstreamsFromConfig builds the local/cloud upstream pair.
func UpstreamsFromConfig(cfg config.UpstreamConfig) (local, cloud *UpstreamClient) {
	local = NewUpstreamClient(cfg.LocalBaseURL, "", cfg.LocalModel, 0)
	cloud = NewUpstreamClient(cfg.CloudBaseURL, cfg.CloudAPIKey, cfg.CloudModel, 0)
	return local, cloud
}

type completionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type completionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// StreamChat sends the messages upstream and emits response deltas on the
// returned channel. The error channel carries at most one error and both
// channels close when the stream ends.
func (u *UpstreamClient) StreamChat(ctx context.Context, messages []Message) (<-chan string, <-chan error) {
	deltas := make(chan string, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(deltas)
		defer close(errs)

		if u.baseURL == "" {
			errs <- fmt.Errorf("upstream base url not configured")
			return
		}
		payload, err := json.Marshal(completionRequest{
			Model:    u.model,
			Messages: messages,
			Stream:   true,
		})
		if err != nil {
			errs <- err
			return
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/chat/completions", bytes.NewReader(payload))
		if err != nil {
			errs <- err
			return
		}
		req.Header.Set("Content-Type", "application/json")
		if u.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+u.apiKey)
		}
		resp, err := u.http.Do(req)
		if err != nil {
			errs <- err
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 32*1024))
			var parsed completionChunk
			if json.Unmarshal(raw, &parsed) == nil && parsed.Error != nil && parsed.Error.Message != "" {
				errs <- fmt.Errorf("upstream %d: %s", resp.StatusCode, parsed.Error.Message)
				return
			}
			errs <- fmt.Errorf("upstream status %d", resp.StatusCode)
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}
			var chunk completionChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}
			for _, choice := range chunk.Choices {
				content := choice.Delta.Content
				if content == "" {
					content = choice.Message.Content
				}
				if content == "" {
					continue
				}
				select {
				case deltas <- content:
				case <-ctx.Done():
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			errs <- err
		}
	}()

	return deltas, errs
}
