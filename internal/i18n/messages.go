// Package i18n holds the Persian-facing strings the bot pipeline and
// handlers send to end users, loaded from an embedded YAML catalog.
package i18n

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed fa.yaml
var catalogFiles embed.FS

// Catalog resolves message keys to localized strings.
type Catalog struct {
	messages map[string]string
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	raw, err := catalogFiles.ReadFile("fa.yaml")
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	messages := map[string]string{}
	if err := yaml.Unmarshal(raw, &messages); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return &Catalog{messages: messages}, nil
}

// T returns the message for key, or the key itself when it is missing so a
// broken catalog never silences a reply.
func (c *Catalog) T(key string) string {
	if c == nil {
		return key
	}
	if msg, ok := c.messages[strings.TrimSpace(key)]; ok && strings.TrimSpace(msg) != "" {
		return msg
	}
	return key
}

// Message keys used across the bot pipeline.
const (
	KeyAssistantUnavailable = "assistant_unavailable"
	KeyEmptyReply           = "assistant_empty_reply"
)
