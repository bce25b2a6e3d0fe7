package parser

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/andreipetrus/first-base-api-dochancer/internal/types"
)

// Heuristic patterns. Within each list the first pattern with an accepted
// match wins, so order is significant.
var (
	versionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bversion\s*[:=]?\s*v?(\d+(?:\.\d+)*)\b`),
		regexp.MustCompile(`(?i)\bv(\d+(?:\.\d+)*)\s+api\b`),
		regexp.MustCompile(`(?i)/api/v(\d+(?:\.\d+)*)(?:/|\b)`),
		regexp.MustCompile(`(?i)"version"\s*:\s*"v?(\d+(?:\.\d+)*)"`),
	}

	urlVersionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)/api[_-]?docs?/v?(\d+(?:\.\d+)*)(?:\.html?)?(?:/|$)`),
		regexp.MustCompile(`(?i)/v(\d+(?:\.\d+)*)(?:/|$)`),
		regexp.MustCompile(`(?i)[/_-]v?(\d+(?:\.\d+)*)\.html?$`),
	}

	// baseURLPatterns capture the candidate in group 1 when present, else the whole match.
	baseURLPatterns = []*regexp.Regexp{
		regexp.MustCompile("(?i)\\b(?:base[\\s_-]*url|api\\s*endpoint|host|server)[:\\s]+['\"\x60]?(https?://[^\\s'\"\x60<>]+)"),
		regexp.MustCompile("(?i)https?://api\\.[^\\s/'\"\x60<>]+(?:/v\\d+)?"),
		regexp.MustCompile("(?i)curl\\b[^\\n]*?['\"]?(https?://[^\\s'\"]+)"),
		regexp.MustCompile("(?i)https?://[^\\s/'\"\x60<>]+/api(?:/v\\d+)?\\b"),
		regexp.MustCompile("(?i)https?://[^\\s/'\"\x60<>]+\\.com(?:/api)?(?:/v\\d+)?"),
	}

	methodPathPattern = regexp.MustCompile(`(?i)\b(GET|POST|PUT|DELETE|PATCH|HEAD|OPTIONS)\s+(/[/\w\-{}:.]*)`)
	apiURLPattern     = regexp.MustCompile(`(?i)https?://[^\s'"<>]+/api[^\s'"<>]*`)
	apiPathPattern    = regexp.MustCompile(`^/api[/\w\-{}:]*`)
	apiPrefixPattern  = regexp.MustCompile(`^/api(?:/v\d+)?`)

	trailingPunct = regexp.MustCompile("['\"\x60,;.)\\]]+$")
	trailingParam = regexp.MustCompile(`/\{[^/{}]+\}$`)
	markdownTitle = regexp.MustCompile(`(?m)^#\s+(.+)$`)
)

// extractAPIInfo fills version, base URL and endpoints from free text. Fields
// already populated by earlier passes are left untouched; endpoints already
// present are not added again.
func extractAPIInfo(doc *types.ParsedDocument, text, sourceURL string) {
	if doc.Version == "" {
		doc.Version = inferVersion(text, sourceURL)
	}
	if doc.BaseURL == "" {
		doc.BaseURL = inferBaseURL(text)
	}
	discoverEndpoints(doc, text)
}

// inferVersion tries the text patterns, then the source URL's path.
func inferVersion(text, sourceURL string) string {
	for _, pattern := range versionPatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return normalizeVersion(m[1])
		}
	}

	if sourceURL == "" {
		return ""
	}
	u, err := url.Parse(sourceURL)
	if err != nil {
		return ""
	}
	for _, pattern := range urlVersionPatterns {
		if m := pattern.FindStringSubmatch(u.Path); m != nil {
			return normalizeVersion(m[1])
		}
	}
	return ""
}

// normalizeVersion turns a bare integer into N.0; dotted versions pass through.
func normalizeVersion(v string) string {
	if strings.Contains(v, ".") {
		return v
	}
	return v + ".0"
}

func inferBaseURL(text string) string {
	for _, pattern := range baseURLPatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			candidate := m[0]
			if len(m) > 1 && m[1] != "" {
				candidate = m[1]
			}
			if cleaned, ok := acceptBaseURL(candidate); ok {
				return cleaned
			}
		}
	}
	return ""
}

// acceptBaseURL cleans a candidate and reports whether it has the accepted shape.
func acceptBaseURL(candidate string) (string, bool) {
	cleaned := cleanBaseURL(candidate)
	if len(cleaned) >= 100 || strings.Contains(cleaned, "?") || !strings.Contains(cleaned, "://") {
		return "", false
	}
	return cleaned, true
}

// cleanBaseURL strips trailing punctuation, a trailing slash and one trailing {param} segment.
func cleanBaseURL(candidate string) string {
	cleaned := trailingPunct.ReplaceAllString(strings.TrimSpace(candidate), "")
	cleaned = strings.TrimRight(cleaned, "/")
	cleaned = trailingParam.ReplaceAllString(cleaned, "")
	return strings.TrimRight(cleaned, "/")
}

// discoverEndpoints adds METHOD /path pairs and bare /api URLs found in text.
func discoverEndpoints(doc *types.ParsedDocument, text string) {
	known := make(map[string]bool, len(doc.Endpoints))
	knownPaths := make(map[string]bool, len(doc.Endpoints))
	for _, e := range doc.Endpoints {
		known[e.Key()] = true
		knownPaths[e.Path] = true
	}

	for _, m := range methodPathPattern.FindAllStringSubmatch(text, -1) {
		method := strings.ToUpper(m[1])
		path := cleanPath(m[2])
		if !strings.HasPrefix(path, "/") {
			continue
		}
		endpoint := newEndpoint(method, path, method+" "+path)
		if known[endpoint.Key()] {
			continue
		}
		known[endpoint.Key()] = true
		knownPaths[path] = true
		doc.Endpoints = append(doc.Endpoints, endpoint)
	}

	for _, raw := range apiURLPattern.FindAllString(text, -1) {
		raw = trailingPunct.ReplaceAllString(raw, "")
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		idx := strings.Index(u.Path, "/api")
		if idx < 0 {
			continue
		}
		if doc.BaseURL == "" {
			candidate := u.Scheme + "://" + u.Host + u.Path[:idx] + apiPrefixPattern.FindString(u.Path[idx:])
			if cleaned, ok := acceptBaseURL(candidate); ok {
				doc.BaseURL = cleaned
			}
		}
		path := apiPathPattern.FindString(u.Path[idx:])
		if path == "" || knownPaths[path] {
			continue
		}
		knownPaths[path] = true
		endpoint := newEndpoint("GET", path, "API endpoint: "+path)
		known[endpoint.Key()] = true
		doc.Endpoints = append(doc.Endpoints, endpoint)
	}
}

// cleanPath drops sentence punctuation that the path pattern admits.
func cleanPath(path string) string {
	return strings.TrimRight(path, ".:")
}

func newEndpoint(method, path, summary string) types.Endpoint {
	return types.Endpoint{
		ID:      types.EndpointID(method, path),
		Method:  method,
		Path:    path,
		Summary: summary,
	}
}
