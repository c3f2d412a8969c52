package fetcher

import (
	"bytes"
	"strings"
)

// defaultBlockKeywords are phrases that interstitial and challenge pages
// tend to carry while real article listings do not.
var defaultBlockKeywords = []string{
	"captcha",
	"access denied",
	"verify you are human",
	"enable javascript",
	"unusual traffic",
	"request blocked",
	"attention required",
}

// BlockDetector flags HTTP 200 responses that are actually bot-challenge
// pages, so the client can promote them to a headless render.
type BlockDetector struct {
	minHTMLBytes int
	keywords     [][]byte
}

// NewBlockDetector constructs a detector with the configured thresholds.
// An empty keyword list falls back to the built-in phrases.
func NewBlockDetector(minBytes int, keywords []string) *BlockDetector {
	if len(keywords) == 0 {
		keywords = defaultBlockKeywords
	}
	lower := make([][]byte, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		lower = append(lower, bytes.ToLower([]byte(kw)))
	}
	return &BlockDetector{
		minHTMLBytes: minBytes,
		keywords:     lower,
	}
}

// Blocked reports whether the body looks like a challenge page rather
// than the real document.
func (d *BlockDetector) Blocked(body []byte) bool {
	if d == nil {
		return false
	}
	if d.minHTMLBytes > 0 && len(body) < d.minHTMLBytes {
		return true
	}
	return d.containsKeywords(body)
}

func (d *BlockDetector) containsKeywords(body []byte) bool {
	if len(body) == 0 || len(d.keywords) == 0 {
		return false
	}
	lowerBody := bytes.ToLower(body)
	for _, kw := range d.keywords {
		if bytes.Contains(lowerBody, kw) {
			return true
		}
	}
	return false
}
