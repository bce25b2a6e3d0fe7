package types

import (
	"regexp"
	"strings"
	"time"
)

// HTTP methods accepted for endpoints, in the order structured ingestion visits them.
var Methods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"}

// Parameter locations.
const (
	InPath   = "path"
	InQuery  = "query"
	InHeader = "header"
	InCookie = "cookie"
	InBody   = "body"
)

// Test result statuses.
const (
	StatusSuccess = "success"
	StatusWarning = "warning"
	StatusFailure = "failure"
	StatusPending = "pending"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)

// EndpointID derives the stable identifier for a method and path pair.
func EndpointID(method, path string) string {
	return strings.ToUpper(method) + "_" + nonAlphanumeric.ReplaceAllString(path, "_")
}

// IsMethod reports whether m is one of the supported HTTP methods.
func IsMethod(m string) bool {
	m = strings.ToUpper(m)
	for _, method := range Methods {
		if method == m {
			return true
		}
	}
	return false
}

// Endpoint represents one HTTP method+path operation of an API
type Endpoint struct {
	ID                    string       `json:"id"`
	Method                string       `json:"method"`
	Path                  string       `json:"path"`
	Summary               string       `json:"summary,omitempty"`
	Description           string       `json:"description,omitempty"`
	Category              string       `json:"category,omitempty"`
	Parameters            []Parameter  `json:"parameters,omitempty"`
	RequestBody           *RequestBody `json:"requestBody,omitempty"`
	Responses             []Response   `json:"responses,omitempty"`
	TestResult            *TestResult  `json:"testResult,omitempty"`
	OriginalDocumentation string       `json:"originalDocumentation,omitempty"`
	DocumentationLink     string       `json:"documentationLink,omitempty"`
}

// Key returns the (method, path) identity used for deduplication.
func (e Endpoint) Key() string {
	return strings.ToUpper(e.Method) + " " + e.Path
}

// Clone returns a copy of the endpoint that shares no slices with the receiver.
// Schemas are shared; they are treated as read-only once parsed.
func (e Endpoint) Clone() Endpoint {
	out := e
	if e.Parameters != nil {
		out.Parameters = append([]Parameter(nil), e.Parameters...)
	}
	if e.Responses != nil {
		out.Responses = append([]Response(nil), e.Responses...)
	}
	if e.RequestBody != nil {
		rb := *e.RequestBody
		out.RequestBody = &rb
	}
	if e.TestResult != nil {
		tr := *e.TestResult
		out.TestResult = &tr
	}
	return out
}

// HasJSONContent reports whether the endpoint declares JSON request or response content.
func (e Endpoint) HasJSONContent() bool {
	if e.RequestBody != nil {
		if _, ok := e.RequestBody.Content[ContentTypeJSON]; ok {
			return true
		}
	}
	for _, r := range e.Responses {
		if _, ok := r.Content[ContentTypeJSON]; ok {
			return true
		}
	}
	return false
}

// ContentTypeJSON is the media type used for synthesized bodies.
const ContentTypeJSON = "application/json"

// Parameter represents an endpoint-scoped API parameter
type Parameter struct {
	Name        string  `json:"name"`
	In          string  `json:"in"`
	Required    bool    `json:"required,omitempty"`
	Description string  `json:"description,omitempty"`
	Schema      *Schema `json:"schema,omitempty"`
	Example     any     `json:"example,omitempty"`
}

// UniqueParameters drops parameters repeating an earlier (in, name) pair.
func UniqueParameters(params []Parameter) []Parameter {
	if params == nil {
		return nil
	}
	seen := make(map[string]bool, len(params))
	out := make([]Parameter, 0, len(params))
	for _, p := range params {
		key := p.In + ":" + p.Name
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

// Schema is the JSON-schema-like fragment understood by the value generator.
// Example and Enum values hold decoded JSON (nil, bool, float64, string, []any, map[string]any).
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Format      string             `json:"format,omitempty"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Enum        []any              `json:"enum,omitempty"`
	Example     any                `json:"example,omitempty"`
	Minimum     *float64           `json:"minimum,omitempty"`
}

// MediaType describes one content type of a request or response.
type MediaType struct {
	Schema  *Schema `json:"schema,omitempty"`
	Example any     `json:"example,omitempty"`
}

// RequestBody describes the payload an endpoint accepts.
type RequestBody struct {
	Description string               `json:"description,omitempty"`
	Required    bool                 `json:"required,omitempty"`
	Content     map[string]MediaType `json:"content,omitempty"`
}

// JSONSchema returns the schema of the JSON content, if any.
func (rb *RequestBody) JSONSchema() *Schema {
	if rb == nil {
		return nil
	}
	if mt, ok := rb.Content[ContentTypeJSON]; ok {
		return mt.Schema
	}
	return nil
}

// Response represents one documented response of an endpoint
type Response struct {
	StatusCode  string               `json:"statusCode"`
	Description string               `json:"description,omitempty"`
	Content     map[string]MediaType `json:"content,omitempty"`
}

// APIParameter is a document-scoped common parameter candidate.
type APIParameter struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Type        string `json:"type"`
	Generated   bool   `json:"generated"`
	Description string `json:"description,omitempty"`
	Format      string `json:"format,omitempty"`
}

// ParsedDocument is the canonical output of the document parser.
type ParsedDocument struct {
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Version     string     `json:"version,omitempty"`
	BaseURL     string     `json:"baseUrl,omitempty"`
	Endpoints   []Endpoint `json:"endpoints"`
	RawContent  string     `json:"rawContent,omitempty"`
}

// TestResult represents the outcome of one live endpoint test
type TestResult struct {
	Status     string            `json:"status"`
	StatusCode int               `json:"statusCode,omitempty"`
	Message    string            `json:"message,omitempty"`
	Response   string            `json:"response,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	Error      string            `json:"error,omitempty"`
	Duration   time.Duration     `json:"duration,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}
