package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dabirhq/dabir/internal/config"
	"github.com/dabirhq/dabir/internal/i18n"
)

const chatPath = "/api/assistant/chat"

// Client proxies a user's message to the internal assistant endpoint,
// failing over across an ordered list of candidate base URLs.
type Client struct {
	logger   *slog.Logger
	catalog  *i18n.Catalog
	baseURLs []string
	http     *http.Client
}

// NewClient creates a proxy client over an explicit candidate list.
func NewClient(log *slog.Logger, catalog *i18n.Catalog, baseURLs []string, timeout time.Duration) *Client {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		logger:   log.With(slog.String("client", "assistant")),
		catalog:  catalog,
		baseURLs: dedupe(baseURLs),
		http:     &http.Client{Timeout: timeout},
	}
}

// CandidateBaseURLs builds the ordered candidate list from config: explicit
// internal override first, then loopback addresses, then the public URL.
func CandidateBaseURLs(cfg config.AssistantConfig) []string {
	port := cfg.Port
	if port <= 0 {
		port = 8080
	}
	candidates := []string{
		cfg.InternalAppURL,
		fmt.Sprintf("http://127.0.0.1:%d", port),
		fmt.Sprintf("http://localhost:%d", port),
		cfg.PublicAppURL,
	}
	return dedupe(candidates)
}

// Ask posts the user's message to each candidate in order and returns a reply
// stream. It never returns an error; failures become localized reply text.
func (c *Client) Ask(ctx context.Context, req AskRequest) Reply {
	payload, err := json.Marshal(chatRequest{
		Messages: []Message{{Role: "user", Content: req.Text}},
	})
	if err != nil {
		c.logger.Error("marshal chat request", slog.Any("error", err))
		return c.failureReply()
	}

	for _, base := range c.baseURLs {
		reply, done := c.tryCandidate(ctx, base, payload, req)
		if done {
			return reply
		}
	}
	c.logger.Warn("assistant candidates exhausted", slog.Int("candidates", len(c.baseURLs)))
	return c.failureReply()
}

// tryCandidate issues one POST. done=false means move to the next candidate
// (network error or 5xx); done=true carries the final reply (2xx or 4xx).
func (c *Client) tryCandidate(ctx context.Context, base string, payload []byte, req AskRequest) (Reply, bool) {
	url := strings.TrimRight(base, "/") + chatPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		c.logger.Warn("build assistant request", slog.String("base", base), slog.Any("error", err))
		return Reply{}, false
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-User-ID", req.UserID)
	if req.ModelPreference != "" {
		httpReq.Header.Set("X-Model-Preference", req.ModelPreference)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Warn("assistant candidate unreachable", slog.String("base", base), slog.Any("error", err))
		return Reply{}, false
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return Reply{Body: resp.Body, Outcome: OutcomeSuccess}, true
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// A 4xx means the request itself is bad; other candidates would
		// reject it the same way, so surface the parsed message as the reply.
		msg := parseErrorMessage(resp.Body)
		resp.Body.Close()
		if msg == "" {
			msg = c.catalog.T(i18n.KeyAssistantUnavailable)
		}
		c.logger.Warn("assistant rejected request",
			slog.String("base", base),
			slog.Int("status", resp.StatusCode),
			slog.String("message", msg),
		)
		return Reply{Body: io.NopCloser(strings.NewReader(msg)), Outcome: OutcomeClientError}, true
	default:
		resp.Body.Close()
		c.logger.Warn("assistant candidate failed",
			slog.String("base", base),
			slog.Int("status", resp.StatusCode),
		)
		return Reply{}, false
	}
}

func (c *Client) failureReply() Reply {
	msg := c.catalog.T(i18n.KeyAssistantUnavailable)
	return Reply{Body: io.NopCloser(strings.NewReader(msg)), Outcome: OutcomeExhausted}
}

func parseErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 64*1024))
	if err != nil {
		return ""
	}
	var parsed errorBody
	if err := json.Unmarshal(raw, &parsed); err == nil && strings.TrimSpace(parsed.Error) != "" {
		return strings.TrimSpace(parsed.Error)
	}
	return strings.TrimSpace(string(raw))
}

func dedupe(urls []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(strings.TrimRight(u, "/"))
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
