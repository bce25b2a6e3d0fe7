package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/andreipetrus/first-base-api-dochancer/internal/fetcher"
	"github.com/andreipetrus/first-base-api-dochancer/internal/textextract"
	"github.com/andreipetrus/first-base-api-dochancer/internal/types"
)

// Document formats the parser dispatches on.
const (
	FormatPDF  = textextract.FormatPDF
	FormatDOCX = textextract.FormatDOCX
	FormatHTML = "html"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatText = "text"
)

var (
	// ErrUnsupportedFormat is returned for unknown extensions or format hints.
	ErrUnsupportedFormat = errors.New("unsupported file type")
	// ErrFetchFailed is returned when the primary document URL cannot be retrieved.
	ErrFetchFailed = errors.New("failed to fetch documentation from URL")
)

// Fetcher retrieves remote documents.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, timeout time.Duration) (*fetcher.Document, error)
	FetchLinked(ctx context.Context, rawURL string, timeout time.Duration) (*fetcher.Document, error)
}

// Options tune parsing limits and timeouts.
type Options struct {
	DocumentTimeout  time.Duration
	LinkedDocTimeout time.Duration
	// RawContentLimit caps ParsedDocument.RawContent in characters. The cap is
	// lossy: context past it is unavailable downstream, but explicitly captured
	// originalDocumentation is kept whole.
	RawContentLimit  int
	LinkedDocWorkers int
}

// Parser converts raw documentation into a ParsedDocument.
type Parser struct {
	fetcher   Fetcher
	extractor textextract.Extractor
	opts      Options
	logger    *zap.Logger

	// extract runs the generic text heuristics over a document's text.
	extract func(doc *types.ParsedDocument, text, sourceURL string)
}

// New creates a Parser.
func New(f Fetcher, extractor textextract.Extractor, opts Options, logger *zap.Logger) *Parser {
	if opts.DocumentTimeout <= 0 {
		opts.DocumentTimeout = 30 * time.Second
	}
	if opts.LinkedDocTimeout <= 0 {
		opts.LinkedDocTimeout = 15 * time.Second
	}
	if opts.RawContentLimit <= 0 {
		opts.RawContentLimit = 10000
	}
	if opts.LinkedDocWorkers <= 0 {
		opts.LinkedDocWorkers = 4
	}
	if extractor == nil {
		extractor = textextract.Default{}
	}
	return &Parser{
		fetcher:   f,
		extractor: extractor,
		opts:      opts,
		logger:    logger.Named("parser"),
		extract:   extractAPIInfo,
	}
}

// FormatFromExtension maps a file name to a document format.
func FormatFromExtension(name string) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FormatPDF, nil
	case ".doc", ".docx":
		return FormatDOCX, nil
	case ".html", ".htm":
		return FormatHTML, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".txt", ".md", ".markdown":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// FormatFromContentType maps a response media type to a document format.
// Anything unrecognized is treated as HTML.
func FormatFromContentType(mediaType string) string {
	switch {
	case strings.Contains(mediaType, "json"):
		return FormatJSON
	case strings.Contains(mediaType, "yaml"):
		return FormatYAML
	case mediaType == "application/pdf":
		return FormatPDF
	case strings.Contains(mediaType, "wordprocessingml"), mediaType == "application/msword":
		return FormatDOCX
	case mediaType == "text/plain", mediaType == "text/markdown":
		return FormatText
	default:
		return FormatHTML
	}
}

// ParseFile reads and parses a local documentation file.
func (p *Parser) ParseFile(ctx context.Context, filePath string) (*types.ParsedDocument, error) {
	format, err := FormatFromExtension(filePath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	return p.Parse(ctx, data, format, "")
}

// ParseURL fetches and parses a documentation URL.
func (p *Parser) ParseURL(ctx context.Context, rawURL string) (*types.ParsedDocument, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid URL %q", ErrFetchFailed, rawURL)
	}

	fetched, err := p.fetcher.Fetch(ctx, rawURL, p.opts.DocumentTimeout)
	if err != nil {
		p.logger.Warn("Document fetch failed", zap.String("url", rawURL), zap.Error(err))
		return nil, fmt.Errorf("%w: %s", ErrFetchFailed, rawURL)
	}

	format := FormatFromContentType(fetched.MediaType())
	// Raw file hosts often serve specs as text/plain or octet-stream.
	if mt := fetched.MediaType(); mt == "" || mt == "text/plain" || mt == "application/octet-stream" {
		if byExt, err := FormatFromExtension(path.Base(u.Path)); err == nil {
			format = byExt
		}
	}

	p.logger.Info("Fetched documentation",
		zap.String("url", rawURL),
		zap.String("content_type", fetched.ContentType),
		zap.String("format", format),
		zap.Int("bytes", len(fetched.Body)),
	)
	return p.Parse(ctx, fetched.Body, format, rawURL)
}

// Parse converts raw bytes of the given format. Malformed content never fails:
// it degrades to heuristic text extraction. sourceURL may be empty.
func (p *Parser) Parse(ctx context.Context, data []byte, format, sourceURL string) (*types.ParsedDocument, error) {
	var doc *types.ParsedDocument

	switch format {
	case FormatPDF, FormatDOCX:
		text, err := p.extractor.ExtractText(ctx, format, data)
		if err != nil {
			p.logger.Warn("Binary text extraction failed, recovering printable text",
				zap.String("format", format), zap.Error(err))
			text = textextract.PrintableRuns(data, 4)
		}
		doc = p.parseText(text, sourceURL)
	case FormatHTML:
		doc = p.parseHTML(ctx, data, sourceURL)
	case FormatJSON:
		doc = p.parseJSON(data, sourceURL)
	case FormatYAML:
		doc = p.parseYAML(data, sourceURL)
	case FormatText:
		doc = p.parseText(string(data), sourceURL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	p.logger.Info("Parsed documentation",
		zap.String("format", format),
		zap.String("title", doc.Title),
		zap.String("version", doc.Version),
		zap.String("base_url", doc.BaseURL),
		zap.Int("endpoints", len(doc.Endpoints)),
	)
	return doc, nil
}

func (p *Parser) parseJSON(data []byte, sourceURL string) *types.ParsedDocument {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		p.logger.Debug("Invalid JSON, using raw text", zap.Error(err))
		return p.parseText(string(data), sourceURL)
	}

	if isOpenAPI(value) {
		doc, err := p.parseOpenAPI(data)
		if err == nil {
			return doc
		}
		p.logger.Warn("OpenAPI document could not be loaded, using text heuristics", zap.Error(err))
		return p.parseText(string(data), sourceURL)
	}

	pretty, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return p.parseText(string(data), sourceURL)
	}
	return p.parseText(string(pretty), sourceURL)
}

func (p *Parser) parseYAML(data []byte, sourceURL string) *types.ParsedDocument {
	var value any
	if err := yaml.Unmarshal(data, &value); err != nil {
		p.logger.Debug("Invalid YAML, using raw text", zap.Error(err))
		return p.parseText(string(data), sourceURL)
	}

	value = normalizeYAML(value)
	if !isOpenAPI(value) {
		return p.parseText(string(data), sourceURL)
	}

	asJSON, err := json.Marshal(value)
	if err != nil {
		return p.parseText(string(data), sourceURL)
	}
	doc, err := p.parseOpenAPI(asJSON)
	if err != nil {
		p.logger.Warn("OpenAPI document could not be loaded, using text heuristics", zap.Error(err))
		return p.parseText(string(data), sourceURL)
	}
	return doc
}

func isOpenAPI(value any) bool {
	m, ok := value.(map[string]any)
	if !ok {
		return false
	}
	_, hasOpenAPI := m["openapi"]
	_, hasSwagger := m["swagger"]
	return hasOpenAPI || hasSwagger
}

// normalizeYAML converts YAML maps with non-string keys (such as response
// codes) into JSON-compatible maps.
func normalizeYAML(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, item := range v {
			v[key] = normalizeYAML(item)
		}
		return v
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = normalizeYAML(item)
		}
		return out
	case []any:
		for i, item := range v {
			v[i] = normalizeYAML(item)
		}
		return v
	default:
		return v
	}
}

// parseText runs the generic heuristics over plain text.
func (p *Parser) parseText(text, sourceURL string) *types.ParsedDocument {
	doc := &types.ParsedDocument{Endpoints: []types.Endpoint{}}
	if m := markdownTitle.FindStringSubmatch(text); m != nil {
		doc.Title = strings.TrimSpace(m[1])
	}
	p.extract(doc, text, sourceURL)
	doc.RawContent = truncate(text, p.opts.RawContentLimit)
	return doc
}

// truncate returns the first limit characters of s.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := bytes.Runes([]byte(s))
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
