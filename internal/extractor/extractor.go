// Package extractor normalizes parsed endpoints and enriches them with
// heuristics and, when configured, the AI capability.
package extractor

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/andreipetrus/first-base-api-dochancer/internal/fetcher"
	"github.com/andreipetrus/first-base-api-dochancer/internal/llm"
	"github.com/andreipetrus/first-base-api-dochancer/internal/parser"
	"github.com/andreipetrus/first-base-api-dochancer/internal/types"
)

const (
	// descriptionWindow is how far around a path mention a description is searched for.
	descriptionWindow = 200
	// productContextLimit caps product page text handed to the AI.
	productContextLimit = 2000
)

var (
	pathPlaceholder = regexp.MustCompile(`\{([^}]+)\}`)
	sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+`)
)

// PageFetcher retrieves product pages.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string, timeout time.Duration) (*fetcher.Document, error)
}

// Options tune the extractor.
type Options struct {
	// Workers bounds concurrent per-endpoint AI calls.
	Workers      int
	FetchTimeout time.Duration
}

// Extractor turns a ParsedDocument into a normalized endpoint list.
type Extractor struct {
	ai      llm.LLMClient
	fetcher PageFetcher
	opts    Options
	logger  *zap.Logger
}

// New creates an Extractor. ai may be nil, which skips every AI step.
func New(ai llm.LLMClient, f PageFetcher, opts Options, logger *zap.Logger) *Extractor {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	return &Extractor{
		ai:      ai,
		fetcher: f,
		opts:    opts,
		logger:  logger.Named("extractor"),
	}
}

// ExtractAndEnhance returns the document's endpoints deduplicated and enriched.
// The document is not modified. AI failures leave the affected endpoints as
// they were; this method never fails.
func (x *Extractor) ExtractAndEnhance(ctx context.Context, doc *types.ParsedDocument, productURL string) []types.Endpoint {
	endpoints := make([]types.Endpoint, len(doc.Endpoints))
	for i, e := range doc.Endpoints {
		endpoints[i] = e.Clone()
	}

	if len(endpoints) == 0 && x.ai != nil {
		x.logger.Info("No endpoints found by parsing, asking AI to extract them")
		found, err := x.ai.ExtractEndpoints(ctx, doc.RawContent)
		if err == nil {
			endpoints = found
		}
	}

	endpoints = Deduplicate(endpoints)
	for i := range endpoints {
		enrich(&endpoints[i], doc.RawContent)
	}

	if x.ai != nil {
		endpoints = x.enhanceEach(ctx, endpoints)
	}

	productContext := x.productContext(ctx, doc.Title, productURL)

	if x.ai != nil {
		categorized, err := x.ai.CategorizeEndpoints(ctx, endpoints, productContext)
		if err == nil {
			endpoints = categorized
		}
	}

	x.logger.Info("Endpoint extraction complete",
		zap.Int("parsed", len(doc.Endpoints)),
		zap.Int("endpoints", len(endpoints)),
		zap.Bool("ai", x.ai != nil),
	)
	return endpoints
}

// Deduplicate keeps the first endpoint for each (method, path) pair, in order.
func Deduplicate(endpoints []types.Endpoint) []types.Endpoint {
	seen := make(map[string]bool, len(endpoints))
	unique := make([]types.Endpoint, 0, len(endpoints))
	for _, e := range endpoints {
		if seen[e.Key()] {
			continue
		}
		seen[e.Key()] = true
		unique = append(unique, e)
	}
	return unique
}

// enrich fills category, path parameters and description when they are absent.
func enrich(e *types.Endpoint, rawContent string) {
	if e.Category == "" {
		for _, segment := range strings.Split(e.Path, "/") {
			if segment != "" {
				e.Category = capitalize(segment)
				break
			}
		}
	}

	if e.Parameters == nil {
		e.Parameters = pathParameters(e.Path)
	} else {
		e.Parameters = types.UniqueParameters(e.Parameters)
	}

	if e.Description == "" && rawContent != "" {
		e.Description = describe(e.Path, rawContent)
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return strings.ToUpper(string(r)) + strings.ToLower(s[size:])
}

// pathParameters declares each distinct {name} placeholder as a required string path parameter.
func pathParameters(path string) []types.Parameter {
	var params []types.Parameter
	for _, m := range pathPlaceholder.FindAllStringSubmatch(path, -1) {
		params = append(params, types.Parameter{
			Name:     m[1],
			In:       types.InPath,
			Required: true,
			Schema:   &types.Schema{Type: "string"},
		})
	}
	return types.UniqueParameters(params)
}

// describe returns the first sentence near the first mention of path in content.
func describe(path, content string) string {
	idx := strings.Index(content, path)
	if idx < 0 {
		return ""
	}
	start := max(0, idx-descriptionWindow)
	for start > 0 && !utf8.RuneStart(content[start]) {
		start++
	}
	end := min(len(content), idx+len(path)+descriptionWindow)
	for end < len(content) && !utf8.RuneStart(content[end]) {
		end++
	}

	sentence := sentencePattern.FindString(content[start:end])
	return strings.TrimSpace(sentence)
}

// enhanceEach runs detail extraction then documentation polish per endpoint,
// concurrently. Each endpoint keeps its previous value when a call fails.
func (x *Extractor) enhanceEach(ctx context.Context, endpoints []types.Endpoint) []types.Endpoint {
	out := make([]types.Endpoint, len(endpoints))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(x.opts.Workers)

	for i, e := range endpoints {
		g.Go(func() error {
			current := e
			if detailed, err := x.ai.ExtractEndpointDetails(gctx, current); err == nil {
				current = detailed
			}
			if enhanced, err := x.ai.EnhanceEndpointDocumentation(gctx, current); err == nil {
				current = enhanced
			}
			out[i] = current
			return nil
		})
	}
	// Workers never return errors.
	_ = g.Wait()
	return out
}

// productContext reads the product page, falling back to an AI summary of the
// document title. Failures yield an empty context.
func (x *Extractor) productContext(ctx context.Context, title, productURL string) string {
	if productURL != "" && x.fetcher != nil {
		page, err := x.fetcher.Fetch(ctx, productURL, x.opts.FetchTimeout)
		if err != nil {
			x.logger.Warn("Failed to fetch product page", zap.String("url", productURL), zap.Error(err))
		} else {
			text := string(page.Body)
			if page.MediaType() == "" || strings.Contains(page.MediaType(), "html") {
				text = parser.ReduceToText(page.Body)
			}
			if text = strings.TrimSpace(text); text != "" {
				if len(text) > productContextLimit {
					text = text[:productContextLimit]
					for len(text) > 0 && !utf8.ValidString(text) {
						text = text[:len(text)-1]
					}
				}
				return text
			}
		}
	}

	if x.ai == nil || title == "" {
		return ""
	}
	summary, err := x.ai.SearchProductContext(ctx, title)
	if err != nil {
		return ""
	}
	return summary
}
