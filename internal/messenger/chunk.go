package messenger

import "strings"

// boundaryFraction is how far into the window a newline/space must sit to be
// preferred over a hard cut, so chunks do not end up much shorter than max.
const boundaryFraction = 0.8

// SplitChunks splits text into pieces of at most max runes each, preferring
// to break at the last newline or space past 80% of the window. Falls back
// to a hard cut when no such boundary exists.
func SplitChunks(text string, max int) []string {
	if max <= 0 {
		max = SafeMessageLength
	}
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= max {
		return []string{string(runes)}
	}

	minBoundary := int(float64(max) * boundaryFraction)
	chunks := []string{}
	for len(runes) > 0 {
		if len(runes) <= max {
			chunks = append(chunks, strings.TrimSpace(string(runes)))
			break
		}
		window := runes[:max]
		cut := lastBoundary(window, minBoundary)
		skipBoundary := 0
		if cut < 0 {
			cut = max
		} else {
			skipBoundary = 1
		}
		chunk := strings.TrimSpace(string(runes[:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		runes = runes[cut+skipBoundary:]
	}
	return chunks
}

// lastBoundary returns the index of the best break point in the window: the
// last newline at or past minIndex, else the last space at or past minIndex,
// else -1.
func lastBoundary(window []rune, minIndex int) int {
	lastNewline := -1
	lastSpace := -1
	for i, r := range window {
		if i < minIndex {
			continue
		}
		switch r {
		case '\n':
			lastNewline = i
		case ' ', '\t':
			lastSpace = i
		}
	}
	if lastNewline >= 0 {
		return lastNewline
	}
	return lastSpace
}
