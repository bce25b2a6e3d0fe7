package parser

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/andreipetrus/first-base-api-dochancer/internal/types"
)

var (
	// headingEndpointPattern matches "METHOD? /path" anywhere in a heading.
	headingEndpointPattern = regexp.MustCompile(`(?i)(?:^|\s)(?:(GET|POST|PUT|DELETE|PATCH|HEAD|OPTIONS)\s+)?(/[/\w\-{}:.]*)`)
	// leadingEndpointPattern matches a verb and path at the start of a block.
	leadingEndpointPattern = regexp.MustCompile(`(?i)^\s*(GET|POST|PUT|DELETE|PATCH|HEAD|OPTIONS)\s+(/[/\w\-{}:.]*)`)
	codeBaseURLPattern     = regexp.MustCompile(`https?://[^\s/'"<>]+(?:/api)?(?:/v\d+)?`)
	hrefBaseURLPattern     = regexp.MustCompile(`^(https?://[^/]+(?:/api(?:/v\d+)?)?)`)
	blankLines             = regexp.MustCompile(`\n{3,}`)
	spaceRuns              = regexp.MustCompile(`[ \t\r\f\v]+`)
)

// parseHTML runs the structure-aware passes, then the generic text heuristics,
// then resolves linked documentation.
func (p *Parser) parseHTML(ctx context.Context, data []byte, sourceURL string) *types.ParsedDocument {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return p.parseText(string(data), sourceURL)
	}
	removeElements(root, atom.Script, atom.Style, atom.Noscript)

	doc := &types.ParsedDocument{Endpoints: []types.Endpoint{}}
	doc.Title = documentTitle(root)
	doc.Description = metaDescription(root)

	p.headingSections(root, doc)
	codeEndpoints(root, doc)
	anchorEndpoints(root, doc, sourceURL)
	if doc.BaseURL == "" {
		doc.BaseURL = mineBaseURL(root)
	}

	text := textContent(root)
	p.extract(doc, text, sourceURL)
	doc.RawContent = truncate(text, p.opts.RawContentLimit)

	p.fetchLinkedDocs(ctx, doc, sourceURL, text)
	return doc
}

func documentTitle(root *html.Node) string {
	if n := findFirst(root, atom.Title); n != nil {
		if title := collapse(nodeText(n)); title != "" {
			return title
		}
	}
	if n := findFirst(root, atom.H1); n != nil {
		return collapse(nodeText(n))
	}
	return ""
}

func metaDescription(root *html.Node) string {
	var description string
	walk(root, func(n *html.Node) bool {
		if n.DataAtom == atom.Meta && strings.EqualFold(attr(n, "name"), "description") {
			description = strings.TrimSpace(attr(n, "content"))
			return false
		}
		return description == ""
	})
	return description
}

// headingSections turns headings naming an endpoint into documentation
// sections. The section body is every following sibling up to the next
// heading of equal or higher level.
func (p *Parser) headingSections(root *html.Node, doc *types.ParsedDocument) {
	index := endpointIndex(doc)

	walk(root, func(n *html.Node) bool {
		level := headingLevel(n)
		if level == 0 {
			return true
		}
		heading := collapse(nodeText(n))
		m := headingEndpointPattern.FindStringSubmatch(heading)
		if m == nil {
			return false
		}
		method := strings.ToUpper(m[1])
		if method == "" {
			method = "GET"
		}
		path := cleanPath(m[2])
		if len(path) < 2 {
			return false
		}

		section := sectionText(n, level)
		i := upsertEndpoint(doc, index, method, path, heading)
		if doc.Endpoints[i].OriginalDocumentation == "" {
			doc.Endpoints[i].OriginalDocumentation = section
		}
		return false
	})
}

func sectionText(heading *html.Node, level int) string {
	var sb strings.Builder
	for sib := heading.NextSibling; sib != nil; sib = sib.NextSibling {
		if l := minHeadingLevel(sib); l != 0 && l <= level {
			break
		}
		renderBlock(&sb, sib)
	}
	return tidy(sb.String())
}

// codeEndpoints adds endpoints for <pre>/<code> blocks that start with a verb and path.
func codeEndpoints(root *html.Node, doc *types.ParsedDocument) {
	index := endpointIndex(doc)
	walk(root, func(n *html.Node) bool {
		if n.DataAtom != atom.Pre && n.DataAtom != atom.Code {
			return true
		}
		if m := leadingEndpointPattern.FindStringSubmatch(nodeText(n)); m != nil {
			method := strings.ToUpper(m[1])
			path := cleanPath(m[2])
			if _, known := index[method+" "+path]; !known {
				upsertEndpoint(doc, index, method, path, method+" "+path)
			}
		}
		// Code nested in pre is the same block.
		return false
	})
}

// anchorEndpoints records links whose text names an endpoint as documentation links.
func anchorEndpoints(root *html.Node, doc *types.ParsedDocument, sourceURL string) {
	index := endpointIndex(doc)
	base, _ := url.Parse(sourceURL)

	walk(root, func(n *html.Node) bool {
		if n.DataAtom != atom.A {
			return true
		}
		href := strings.TrimSpace(attr(n, "href"))
		m := leadingEndpointPattern.FindStringSubmatch(collapse(nodeText(n)))
		if href == "" || m == nil {
			return false
		}
		method := strings.ToUpper(m[1])
		path := cleanPath(m[2])

		link := href
		if ref, err := url.Parse(href); err == nil && base != nil && base.IsAbs() {
			link = base.ResolveReference(ref).String()
		}

		i := upsertEndpoint(doc, index, method, path, method+" "+path)
		if doc.Endpoints[i].DocumentationLink == "" {
			doc.Endpoints[i].DocumentationLink = link
		}
		return false
	})
}

// mineBaseURL looks for API-looking URLs in code blocks, then in absolute links.
func mineBaseURL(root *html.Node) string {
	var found string
	walk(root, func(n *html.Node) bool {
		if found != "" {
			return false
		}
		if n.DataAtom != atom.Pre && n.DataAtom != atom.Code {
			return true
		}
		for _, candidate := range codeBaseURLPattern.FindAllString(nodeText(n), -1) {
			if !strings.Contains(strings.ToLower(candidate), "api") {
				continue
			}
			if cleaned, ok := acceptBaseURL(candidate); ok {
				found = cleaned
				break
			}
		}
		return false
	})
	if found != "" {
		return found
	}

	walk(root, func(n *html.Node) bool {
		if found != "" {
			return false
		}
		if n.DataAtom == atom.A {
			href := attr(n, "href")
			if strings.Contains(href, "://") && strings.Contains(strings.ToLower(href), "api") {
				if m := hrefBaseURLPattern.FindStringSubmatch(href); m != nil {
					if cleaned, ok := acceptBaseURL(m[1]); ok {
						found = cleaned
					}
				}
			}
		}
		return true
	})
	return found
}

// endpointIndex maps endpoint keys to their position in doc.Endpoints.
func endpointIndex(doc *types.ParsedDocument) map[string]int {
	index := make(map[string]int, len(doc.Endpoints))
	for i, e := range doc.Endpoints {
		if _, ok := index[e.Key()]; !ok {
			index[e.Key()] = i
		}
	}
	return index
}

// upsertEndpoint returns the index of the endpoint for method and path, adding it if needed.
func upsertEndpoint(doc *types.ParsedDocument, index map[string]int, method, path, summary string) int {
	key := method + " " + path
	if i, ok := index[key]; ok {
		return i
	}
	doc.Endpoints = append(doc.Endpoints, newEndpoint(method, path, summary))
	index[key] = len(doc.Endpoints) - 1
	return index[key]
}

// walk visits nodes depth-first; fn returns false to skip a node's children.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if n.Type == html.ElementNode && !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func findFirst(root *html.Node, a atom.Atom) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if n.DataAtom == a {
			found = n
			return false
		}
		return true
	})
	return found
}

func removeElements(root *html.Node, atoms ...atom.Atom) {
	var doomed []*html.Node
	walk(root, func(n *html.Node) bool {
		for _, a := range atoms {
			if n.DataAtom == a {
				doomed = append(doomed, n)
				return false
			}
		}
		return true
	})
	for _, n := range doomed {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func headingLevel(n *html.Node) int {
	if n.Type != html.ElementNode {
		return 0
	}
	switch n.DataAtom {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	case atom.H6:
		return 6
	}
	return 0
}

// minHeadingLevel returns the highest-rank heading level at or below n, or 0.
func minHeadingLevel(n *html.Node) int {
	best := 0
	var visit func(*html.Node)
	visit = func(node *html.Node) {
		if l := headingLevel(node); l != 0 && (best == 0 || l < best) {
			best = l
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return best
}

// nodeText is the raw concatenated text below n.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return sb.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true, atom.Main: true,
	atom.Header: true, atom.Footer: true, atom.Nav: true, atom.Aside: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Ul: true, atom.Ol: true, atom.Li: true, atom.Pre: true, atom.Table: true, atom.Tr: true,
	atom.Dl: true, atom.Dt: true, atom.Dd: true, atom.Blockquote: true, atom.Br: true, atom.Title: true,
}

// textContent flattens the page to text with line breaks around block elements,
// so line-oriented heuristics see one statement per line.
func textContent(root *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.DataAtom == atom.Pre {
				sb.WriteString("\n")
				sb.WriteString(nodeText(n))
				sb.WriteString("\n")
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
		if n.Type == html.ElementNode && blockElements[n.DataAtom] {
			sb.WriteString("\n")
		}
	}
	visit(root)
	return tidy(sb.String())
}

// renderBlock writes n as text keeping list items, code blocks and paragraphs apart.
func renderBlock(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(spaceRuns.ReplaceAllString(strings.ReplaceAll(n.Data, "\n", " "), " "))
		return
	case html.ElementNode:
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderBlock(sb, c)
		}
		return
	}

	switch n.DataAtom {
	case atom.Pre:
		sb.WriteString("\n```\n")
		sb.WriteString(strings.Trim(nodeText(n), "\n"))
		sb.WriteString("\n```\n\n")
	case atom.Code:
		sb.WriteString("`" + collapse(nodeText(n)) + "`")
	case atom.Br:
		sb.WriteString("\n")
	case atom.Ul, atom.Ol:
		sb.WriteString("\n")
		ordinal := 0
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.DataAtom != atom.Li {
				continue
			}
			ordinal++
			if n.DataAtom == atom.Ol {
				sb.WriteString(strconv.Itoa(ordinal) + ". ")
			} else {
				sb.WriteString("- ")
			}
			var item strings.Builder
			for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
				renderBlock(&item, gc)
			}
			sb.WriteString(strings.TrimSpace(item.String()))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	case atom.Tr:
		var cells []string
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.DataAtom == atom.Td || c.DataAtom == atom.Th {
				cells = append(cells, collapse(nodeText(c)))
			}
		}
		sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	default:
		if l := headingLevel(n); l != 0 {
			sb.WriteString("\n" + strings.Repeat("#", l) + " " + collapse(nodeText(n)) + "\n\n")
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderBlock(sb, c)
		}
		if blockElements[n.DataAtom] {
			sb.WriteString("\n\n")
		}
	}
}

// tidy trims trailing spaces on each line and collapses runs of blank lines.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}
