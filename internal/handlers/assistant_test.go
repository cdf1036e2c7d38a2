package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dabirhq/dabir/internal/assistant"
)

func sseUpstream(t *testing.T, deltas []string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, delta := range deltas {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", delta)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(server.Close)
	return server
}

func postChat(t *testing.T, handler *AssistantHandler, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	handler.Register(e)
	req := httptest.NewRequest(http.MethodPost, "/api/assistant/chat", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAssistantChatStreamsUpstreamDeltas(t *testing.T) {
	t.Parallel()

	upstream := sseUpstream(t, []string{"سلام ", "دانش‌آموز"})
	cloud := assistant.NewUpstreamClient(upstream.URL, "", "test-model", 5*time.Second)
	h := NewAssistantHandler(nil, nil, cloud)

	rec := postChat(t, h, `{"messages":[{"role":"user","content":"سلام"}]}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Body.String(); got != "سلام دانش‌آموز" {
		t.Fatalf("unexpected stream body %q", got)
	}
}

func TestAssistantChatPrefersLocalUpstream(t *testing.T) {
	t.Parallel()

	localUp := sseUpstream(t, []string{"local"})
	cloudUp := sseUpstream(t, []string{"cloud"})
	local := assistant.NewUpstreamClient(localUp.URL, "", "m", 5*time.Second)
	cloud := assistant.NewUpstreamClient(cloudUp.URL, "", "m", 5*time.Second)
	h := NewAssistantHandler(nil, local, cloud)

	rec := postChat(t, h, `{"messages":[{"role":"user","content":"hi"}]}`,
		map[string]string{"X-Model-Preference": "local"})
	if rec.Body.String() != "local" {
		t.Fatalf("expected local upstream reply, got %q", rec.Body.String())
	}

	rec = postChat(t, h, `{"messages":[{"role":"user","content":"hi"}]}`, nil)
	if rec.Body.String() != "cloud" {
		t.Fatalf("expected cloud upstream reply, got %q", rec.Body.String())
	}
}

func TestAssistantChatRequiresMessages(t *testing.T) {
	t.Parallel()

	h := NewAssistantHandler(nil, nil, assistant.NewUpstreamClient("http://127.0.0.1:1", "", "m", time.Second))
	rec := postChat(t, h, `{"messages":[]}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAssistantChatUpstreamErrorBeforeStream(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"model overloaded"}}`, http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	cloud := assistant.NewUpstreamClient(server.URL, "", "m", 5*time.Second)
	h := NewAssistantHandler(nil, nil, cloud)
	rec := postChat(t, h, `{"messages":[{"role":"user","content":"hi"}]}`, nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", rec.Code, rec.Body.String())
	}
}
