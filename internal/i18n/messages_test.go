package i18n

import (
	"strings"
	"testing"
)

func TestLoadCatalog(t *testing.T) {
	t.Parallel()

	catalog, err := Load()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	msg := catalog.T(KeyAssistantUnavailable)
	if msg == KeyAssistantUnavailable {
		t.Fatal("assistant_unavailable missing from catalog")
	}
	if !strings.Contains(msg, "دستیار") {
		t.Fatalf("expected Persian failure message, got %q", msg)
	}
}

func TestUnknownKeyFallsBackToKey(t *testing.T) {
	t.Parallel()

	catalog, err := Load()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if got := catalog.T("no_such_key"); got != "no_such_key" {
		t.Fatalf("expected key fallback, got %q", got)
	}
}

func TestNilCatalogReturnsKey(t *testing.T) {
	t.Parallel()

	var catalog *Catalog
	if got := catalog.T("x"); got != "x" {
		t.Fatalf("nil catalog should echo the key, got %q", got)
	}
}
