package parser

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/errgroup"

	"github.com/andreipetrus/first-base-api-dochancer/internal/types"
)

// fetchLinkedDocs fills originalDocumentation for endpoints that only carry a
// documentationLink. Each unique link is fetched once. Links that cannot be
// fetched, or that point back at the page itself, get the main page text.
func (p *Parser) fetchLinkedDocs(ctx context.Context, doc *types.ParsedDocument, sourceURL, pageText string) {
	var links []string
	seen := make(map[string]bool)
	for _, e := range doc.Endpoints {
		if e.DocumentationLink == "" || e.OriginalDocumentation != "" {
			continue
		}
		if link := fetchableLink(e.DocumentationLink, sourceURL); link != "" && !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	}

	texts := make([]string, len(links))
	if len(links) > 0 && p.fetcher != nil {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.opts.LinkedDocWorkers)
		for i, link := range links {
			g.Go(func() error {
				fetched, err := p.fetcher.FetchLinked(gctx, link, p.opts.LinkedDocTimeout)
				if err != nil {
					p.logger.Debug("Linked documentation fetch failed", zap.String("url", link), zap.Error(err))
					return nil
				}
				texts[i] = ReduceToText(fetched.Body)
				return nil
			})
		}
		// Workers never return errors; failures leave an empty slot.
		_ = g.Wait()
	}

	byLink := make(map[string]string, len(links))
	for i, link := range links {
		byLink[link] = texts[i]
	}

	fallback := truncate(pageText, p.opts.RawContentLimit)
	fetched := 0
	for i := range doc.Endpoints {
		e := &doc.Endpoints[i]
		if e.DocumentationLink == "" || e.OriginalDocumentation != "" {
			continue
		}
		text := byLink[fetchableLink(e.DocumentationLink, sourceURL)]
		if text == "" {
			e.OriginalDocumentation = fallback
			continue
		}
		e.OriginalDocumentation = text
		fetched++
	}

	if len(links) > 0 {
		p.logger.Info("Resolved linked documentation",
			zap.Int("links", len(links)),
			zap.Int("fetched_endpoints", fetched),
		)
	}
}

// fetchableLink returns the absolute URL to fetch for link, or "" when the
// link is relative without a base or points at the source page itself.
func fetchableLink(link, sourceURL string) string {
	u, err := url.Parse(link)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	u.Fragment = ""
	if src, err := url.Parse(sourceURL); err == nil && src.IsAbs() {
		src.Fragment = ""
		if src.String() == u.String() {
			return ""
		}
	}
	return u.String()
}

// ReduceToText keeps the paragraph, heading and code fragments of an HTML page,
// joined by blank lines. Page chrome is dropped.
func ReduceToText(data []byte) string {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	removeElements(root, atom.Script, atom.Style, atom.Noscript, atom.Nav, atom.Footer)

	var fragments []string
	walk(root, func(n *html.Node) bool {
		switch n.DataAtom {
		case atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Li:
			if text := collapse(nodeText(n)); text != "" {
				fragments = append(fragments, text)
			}
			return false
		case atom.Pre, atom.Code:
			if text := strings.TrimSpace(nodeText(n)); text != "" {
				fragments = append(fragments, text)
			}
			return false
		}
		return true
	})
	return strings.Join(fragments, "\n\n")
}
