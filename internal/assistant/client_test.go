package assistant

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dabirhq/dabir/internal/config"
	"github.com/dabirhq/dabir/internal/i18n"
)

func testCatalog(t *testing.T) *i18n.Catalog {
	t.Helper()
	catalog, err := i18n.Load()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return catalog
}

func readReply(t *testing.T, reply Reply) string {
	t.Helper()
	defer reply.Body.Close()
	raw, err := io.ReadAll(reply.Body)
	if err != nil {
		t.Fatalf("read reply body: %v", err)
	}
	return string(raw)
}

func TestAskFailsOverToHealthyCandidate(t *testing.T) {
	t.Parallel()

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != chatPath {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("X-User-ID"); got != "u-1" {
			t.Errorf("missing user header, got %q", got)
		}
		io.WriteString(w, "سلام! چه کمکی از من ساخته است؟")
	}))
	defer healthy.Close()

	// First two candidates refuse connections (closed servers).
	dead1 := httptest.NewServer(http.HandlerFunc(nil))
	dead1.Close()
	dead2 := httptest.NewServer(http.HandlerFunc(nil))
	dead2.Close()

	client := NewClient(nil, testCatalog(t), []string{dead1.URL, dead2.URL, healthy.URL}, 5*time.Second)
	reply := client.Ask(context.Background(), AskRequest{UserID: "u-1", Text: "سلام"})
	if reply.Outcome != OutcomeSuccess {
		t.Fatalf("expected success, got outcome %v", reply.Outcome)
	}
	if got := readReply(t, reply); !strings.Contains(got, "سلام") {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestAskStopsOnClientError(t *testing.T) {
	t.Parallel()

	var secondCalled bool
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":"bad key"}`)
	}))
	defer bad.Close()
	next := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secondCalled = true
	}))
	defer next.Close()

	client := NewClient(nil, testCatalog(t), []string{bad.URL, next.URL}, 5*time.Second)
	reply := client.Ask(context.Background(), AskRequest{UserID: "u-1", Text: "hi"})
	if reply.Outcome != OutcomeClientError {
		t.Fatalf("expected client error outcome, got %v", reply.Outcome)
	}
	if got := readReply(t, reply); !strings.Contains(got, "bad key") {
		t.Fatalf("expected parsed error message, got %q", got)
	}
	if secondCalled {
		t.Fatal("4xx must not fail over to the next candidate")
	}
}

func TestAskFailsOverOnServerError(t *testing.T) {
	t.Parallel()

	flaky := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer flaky.Close()
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	}))
	defer healthy.Close()

	client := NewClient(nil, testCatalog(t), []string{flaky.URL, healthy.URL}, 5*time.Second)
	reply := client.Ask(context.Background(), AskRequest{UserID: "u-1", Text: "hi"})
	if reply.Outcome != OutcomeSuccess {
		t.Fatalf("expected success after 5xx failover, got %v", reply.Outcome)
	}
	if got := readReply(t, reply); got != "ok" {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestAskExhaustedReturnsLocalizedFailure(t *testing.T) {
	t.Parallel()

	dead := httptest.NewServer(http.HandlerFunc(nil))
	dead.Close()

	catalog := testCatalog(t)
	client := NewClient(nil, catalog, []string{dead.URL}, time.Second)
	reply := client.Ask(context.Background(), AskRequest{UserID: "u-1", Text: "hi"})
	if reply.Outcome != OutcomeExhausted {
		t.Fatalf("expected exhausted outcome, got %v", reply.Outcome)
	}
	if got := readReply(t, reply); got != catalog.T(i18n.KeyAssistantUnavailable) {
		t.Fatalf("expected localized failure message, got %q", got)
	}
}

func TestCandidateBaseURLsOrderAndDedupe(t *testing.T) {
	t.Parallel()

	urls := CandidateBaseURLs(config.AssistantConfig{
		InternalAppURL: "http://app.internal:8080",
		PublicAppURL:   "https://dabir.example.ir",
		Port:           8080,
	})
	want := []string{
		"http://app.internal:8080",
		"http://127.0.0.1:8080",
		"http://localhost:8080",
		"https://dabir.example.ir",
	}
	if len(urls) != len(want) {
		t.Fatalf("unexpected candidates %v", urls)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Fatalf("candidate %d: want %q got %q", i, want[i], urls[i])
		}
	}

	// Internal override equal to a loopback must collapse.
	urls = CandidateBaseURLs(config.AssistantConfig{
		InternalAppURL: "http://127.0.0.1:9090/",
		Port:           9090,
	})
	if len(urls) != 2 {
		t.Fatalf("expected deduped candidates, got %v", urls)
	}
	if urls[0] != "http://127.0.0.1:9090" || urls[1] != "http://localhost:9090" {
		t.Fatalf("unexpected candidates %v", urls)
	}
}
