package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/andreipetrus/first-base-api-dochancer/internal/testdata"
	"github.com/andreipetrus/first-base-api-dochancer/internal/types"
)

// queryParam keeps query parameters in the order they were added.
type queryParam struct {
	name, value string
}

// buildRequest creates an HTTP request for the given endpoint from the
// configured overrides and synthesized values. Overrides with an empty value
// are ignored.
func (t *Tester) buildRequest(ctx context.Context, s *settings, endpoint types.Endpoint) (*http.Request, error) {
	path := substitutePath(endpoint, s.common)
	query := buildQuery(endpoint, s.common)

	method := strings.ToUpper(endpoint.Method)
	var body io.Reader
	switch method {
	case http.MethodGet:
		query = append(query, dataAsQuery(t.testData(ctx, s, endpoint))...)
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		payload, err := json.Marshal(t.testData(ctx, s, endpoint))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	target := s.baseURL + path
	if len(query) > 0 {
		target += "?" + encodeQuery(query)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for _, h := range buildHeaders(s.apiKey, s.common) {
		req.Header.Set(h.name, h.value)
	}
	return req, nil
}

// substitutePath replaces {name} tokens: path overrides first, then declared
// path parameters by override name or synthesized value.
func substitutePath(endpoint types.Endpoint, common []types.APIParameter) string {
	path := endpoint.Path
	for _, c := range common {
		if c.Type == types.InPath && c.Value != "" {
			path = strings.ReplaceAll(path, "{"+c.Name+"}", url.PathEscape(c.Value))
		}
	}

	for _, p := range endpoint.Parameters {
		if p.In != types.InPath {
			continue
		}
		token := "{" + p.Name + "}"
		if !strings.Contains(path, token) {
			continue
		}
		value, ok := overrideByName(common, p.Name)
		if !ok {
			value = testdata.ParamValue(p)
		}
		path = strings.ReplaceAll(path, token, url.PathEscape(value))
	}
	return path
}

func overrideByName(common []types.APIParameter, name string) (string, bool) {
	for _, c := range common {
		if c.Name == name && c.Value != "" {
			return c.Value, true
		}
	}
	return "", false
}

// buildQuery appends query overrides, then synthesizes declared query
// parameters not already supplied.
func buildQuery(endpoint types.Endpoint, common []types.APIParameter) []queryParam {
	var query []queryParam
	supplied := make(map[string]bool)
	for _, c := range common {
		if c.Type == types.InQuery && c.Value != "" {
			query = append(query, queryParam{c.Name, c.Value})
			supplied[c.Name] = true
		}
	}
	for _, p := range endpoint.Parameters {
		if p.In != types.InQuery || supplied[p.Name] {
			continue
		}
		query = append(query, queryParam{p.Name, testdata.ParamValue(p)})
		supplied[p.Name] = true
	}
	return query
}

func encodeQuery(query []queryParam) string {
	parts := make([]string, len(query))
	for i, q := range query {
		parts[i] = url.QueryEscape(q.name) + "=" + url.QueryEscape(q.value)
	}
	return strings.Join(parts, "&")
}

// dataAsQuery flattens a synthesized object into query parameters. Nested
// values are sent as JSON.
func dataAsQuery(data any) []queryParam {
	obj, ok := data.(map[string]any)
	if !ok || len(obj) == 0 {
		return nil
	}
	names := make([]string, 0, len(obj))
	for name := range obj {
		names = append(names, name)
	}
	slices.Sort(names)

	query := make([]queryParam, 0, len(names))
	for _, name := range names {
		query = append(query, queryParam{name, queryValue(obj[name])})
	}
	return query
}

func queryValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(encoded)
	default:
		return fmt.Sprint(v)
	}
}

type header struct {
	name, value string
}

// buildHeaders starts from JSON defaults, adds credentials for a configured
// key, then applies header overrides, which win by name.
func buildHeaders(apiKey string, common []types.APIParameter) []header {
	headers := []header{
		{"Content-Type", types.ContentTypeJSON},
		{"Accept", types.ContentTypeJSON},
	}
	if apiKey != "" {
		headers = append(headers,
			header{"Authorization", "Bearer " + apiKey},
			header{"X-API-Key", apiKey},
		)
	}
	for _, c := range common {
		if c.Type == types.InHeader && c.Value != "" {
			headers = append(headers, header{c.Name, c.Value})
		}
	}
	return headers
}

// testData prefers AI-generated data, then the JSON request body schema,
// then declared body parameters.
func (t *Tester) testData(ctx context.Context, s *settings, endpoint types.Endpoint) any {
	if s.ai != nil {
		data, err := s.ai.GenerateTestData(ctx, endpoint)
		if err == nil && data != nil {
			return data
		}
		t.logger.Debug("AI test data unavailable, synthesizing", zap.String("endpoint", endpoint.Key()), zap.Error(err))
	}

	if schema := endpoint.RequestBody.JSONSchema(); schema != nil {
		return testdata.FromSchema(schema)
	}

	data := make(map[string]any)
	for _, p := range endpoint.Parameters {
		if p.In == types.InBody {
			data[p.Name] = testdata.ParamValue(p)
		}
	}
	return data
}
