// Package markup parses fetched page bytes through a chain of parser
// backends with escalating leniency. Real-world news markup is frequently
// malformed; the chain avoids paying the cost of the most forgiving backend
// unless the stricter ones reject the input.
package markup

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/avelkov/newsreel/internal/scraper"
)

// backend is one parsing strategy in the chain.
type backend struct {
	name  string
	parse func(body []byte) (*goquery.Document, error)
}

// Parser implements scraper.Parser with a fixed backend chain:
// strict UTF-8, charset-sniffed decoding, then lossy sanitized parsing.
type Parser struct {
	backends []backend
	logger   *zap.Logger
}

// New constructs the parser chain.
func New(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{
		backends: []backend{
			{name: "strict", parse: parseStrict},
			{name: "charset", parse: parseCharset},
			{name: "lossy", parse: parseLossy},
		},
		logger: logger,
	}
}

// Parse returns the document produced by the first backend that accepts the
// body. It fails with a scraper.ParseError only when every backend fails.
func (p *Parser) Parse(body []byte) (*goquery.Document, error) {
	var (
		names []string
		errs  []error
	)
	for i, b := range p.backends {
		doc, err := b.parse(body)
		if err == nil {
			if i > 0 {
				p.logger.Debug("lenient parser backend used", zap.String("backend", b.name))
				scraper.ParseFallbacks.WithLabelValues(b.name).Inc()
			}
			return doc, nil
		}
		names = append(names, b.name)
		errs = append(errs, err)
	}
	return nil, &scraper.ParseError{Backends: names, Errs: errs}
}

// parseStrict accepts only non-empty, valid UTF-8 markup that yields a
// non-empty document body.
func parseStrict(body []byte) (*goquery.Document, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	if !utf8.Valid(body) {
		return nil, fmt.Errorf("invalid utf-8")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return requireContent(doc)
}

// parseCharset sniffs the document encoding (meta tags, BOM, content
// heuristics) and decodes to UTF-8 before parsing.
func parseCharset(body []byte) (*goquery.Document, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	reader, err := charset.NewReader(bytes.NewReader(body), "")
	if err != nil {
		return nil, fmt.Errorf("detect charset: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, err
	}
	return requireContent(doc)
}

// parseLossy strips control bytes and replaces invalid sequences, accepting
// nearly anything that still contains markup.
func parseLossy(body []byte) (*goquery.Document, error) {
	cleaned := strings.ToValidUTF8(string(body), "")
	cleaned = strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, cleaned)
	if strings.TrimSpace(cleaned) == "" {
		return nil, fmt.Errorf("nothing left after sanitizing")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cleaned))
	if err != nil {
		return nil, err
	}
	return requireContent(doc)
}

// requireContent rejects documents whose body carries no elements at all;
// such input is noise, not markup.
func requireContent(doc *goquery.Document) (*goquery.Document, error) {
	if doc.Find("body *").Length() == 0 && strings.TrimSpace(doc.Find("body").Text()) == "" {
		return nil, fmt.Errorf("document has no content")
	}
	return doc, nil
}
