package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/andreipetrus/first-base-api-dochancer/internal/config"
	"github.com/andreipetrus/first-base-api-dochancer/internal/logger"
	"github.com/andreipetrus/first-base-api-dochancer/internal/types"
)

const systemPrompt = "You are a technical writer and API analyst. You read API documentation and answer in exactly the format requested. When JSON is requested, respond with JSON only."

// minDetailsLength is the shortest documentation worth a detail extraction call.
const minDetailsLength = 50

// completion is one provider request.
type completion struct {
	System    string
	Prompt    string
	MaxTokens int
}

// completer is the provider-specific part of a client.
type completer interface {
	complete(ctx context.Context, req completion) (string, error)
}

// BaseClient implements LLMClient on top of a provider completer
type BaseClient struct {
	completer completer
	config    config.AIConfig
	logger    *zap.Logger
}

// NewBaseClient creates a client that sends prompts through c
func NewBaseClient(c completer, cfg config.AIConfig, log *zap.Logger) *BaseClient {
	return &BaseClient{
		completer: c,
		config:    cfg,
		logger:    log.Named("llm"),
	}
}

// callLLM sends one prompt within the configured timeout
func (c *BaseClient) callLLM(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}
	if c.config.MaxTokens > 0 && (maxTokens <= 0 || maxTokens > c.config.MaxTokens) {
		maxTokens = c.config.MaxTokens
	}
	response, err := c.completer.complete(ctx, completion{
		System:    systemPrompt,
		Prompt:    prompt,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(response) == "" {
		return "", fmt.Errorf("empty response from %s", c.config.Provider)
	}
	return response, nil
}

// CategorizeEndpoints implements the LLMClient interface
func (c *BaseClient) CategorizeEndpoints(ctx context.Context, endpoints []types.Endpoint, productContext string) ([]types.Endpoint, error) {
	const op = "CategorizeEndpoints"
	if len(endpoints) == 0 {
		return endpoints, nil
	}
	if productContext == "" {
		productContext = "Not provided"
	}

	// Only the fields the model may change are sent, to keep prompts small.
	type brief struct {
		Method      string `json:"method"`
		Path        string `json:"path"`
		Summary     string `json:"summary,omitempty"`
		Description string `json:"description,omitempty"`
		Category    string `json:"category,omitempty"`
	}
	briefs := make([]brief, len(endpoints))
	for i, e := range endpoints {
		briefs[i] = brief{e.Method, e.Path, e.Summary, e.Description, e.Category}
	}
	endpointsJSON, _ := json.MarshalIndent(briefs, "", "  ")

	prompt := fmt.Sprintf(`Group these API endpoints into logical categories that follow user flows and actions.
Also improve each description for clarity, grammar and spelling without changing technical meaning.

Product Context: %s

Endpoints:
%s

Respond with a JSON array containing every endpoint with "method", "path", "category", "summary" and "description".`,
		productContext, string(endpointsJSON))

	input := map[string]any{"endpoints": len(endpoints), "productContext": productContext}
	response, err := c.callLLM(ctx, prompt, 4000)
	if err != nil {
		logger.LogAIInteraction(c.logger, op, input, nil, err)
		return nil, &EnhancementError{Op: op, Err: err}
	}

	categorized, err := ParseJSONResponse[[]brief](response)
	if err != nil {
		logger.LogAIInteraction(c.logger, op, input, nil, err)
		return nil, &EnhancementError{Op: op, Err: err}
	}

	byKey := make(map[string]brief, len(categorized))
	for _, b := range categorized {
		key := strings.ToUpper(b.Method) + " " + b.Path
		if _, ok := byKey[key]; !ok {
			byKey[key] = b
		}
	}

	out := make([]types.Endpoint, len(endpoints))
	matched := 0
	for i, e := range endpoints {
		out[i] = e.Clone()
		b, ok := byKey[e.Key()]
		if !ok {
			continue
		}
		matched++
		if b.Category != "" {
			out[i].Category = b.Category
		}
		if b.Summary != "" {
			out[i].Summary = b.Summary
		}
		if b.Description != "" {
			out[i].Description = b.Description
		}
	}
	if matched == 0 {
		err := fmt.Errorf("response matched none of the %d endpoints", len(endpoints))
		logger.LogAIInteraction(c.logger, op, input, nil, err)
		return nil, &EnhancementError{Op: op, Err: err}
	}

	logger.LogAIInteraction(c.logger, op, input, map[string]int{"matched": matched}, nil)
	return out, nil
}

// GenerateTestData implements the LLMClient interface
func (c *BaseClient) GenerateTestData(ctx context.Context, endpoint types.Endpoint) (any, error) {
	const op = "GenerateTestData"
	endpointJSON, _ := json.MarshalIndent(endpointForPrompt(endpoint), "", "  ")

	prompt := fmt.Sprintf(`Generate realistic, semantically valid test data for this API endpoint:

%s

Respond with a single JSON object usable as the request body or query parameters.`, string(endpointJSON))

	input := endpoint.Key()
	response, err := c.callLLM(ctx, prompt, 2000)
	if err != nil {
		logger.LogAIInteraction(c.logger, op, input, nil, err)
		return nil, &EnhancementError{Op: op, Err: err}
	}

	data, err := ParseJSONResponse[map[string]any](response)
	if err != nil {
		logger.LogAIInteraction(c.logger, op, input, nil, err)
		return nil, &EnhancementError{Op: op, Err: err}
	}

	logger.LogAIInteraction(c.logger, op, input, data, nil)
	return data, nil
}

// ExtractEndpointDetails implements the LLMClient interface. Endpoints without
// enough documentation are returned unchanged.
func (c *BaseClient) ExtractEndpointDetails(ctx context.Context, endpoint types.Endpoint) (types.Endpoint, error) {
	const op = "ExtractEndpointDetails"
	documentation := endpoint.OriginalDocumentation
	if documentation == "" {
		documentation = endpoint.Description
	}
	if len(documentation) < minDetailsLength {
		return endpoint, nil
	}

	prompt := fmt.Sprintf(`Extract detailed information about this API endpoint from its documentation.

Endpoint: %s %s

Documentation:
%s

Respond with a JSON object:
{
  "summary": "one-line summary",
  "description": "what the endpoint does",
  "parameters": [
    {"name": "name", "in": "query|header|path|cookie", "description": "...", "required": true, "schema": {"type": "string|integer|number|boolean|array|object"}}
  ],
  "requestBody": {
    "description": "...",
    "required": true,
    "content": {"application/json": {"schema": {"type": "object", "properties": {}}}}
  },
  "responses": [
    {"statusCode": "200", "description": "...", "content": {"application/json": {"schema": {"type": "object"}}}}
  ]
}

Parameter location rules:
- "?key=value", "query string" or "URL parameter" means in=query.
- "Authorization:", "X-API-Key:", "HTTP header" or "key: value" lines in code blocks mean in=header.
- "{id}", ":id" or "in the path" means in=path.
- "request body", "JSON payload" or "POST data" belongs in requestBody.
- For authentication parameters, use the location shown in the examples.

Include every parameter the documentation mentions. Respond with the JSON object only.`,
		endpoint.Method, endpoint.Path, documentation)

	input := endpoint.Key()
	response, err := c.callLLM(ctx, prompt, 3000)
	if err != nil {
		logger.LogAIInteraction(c.logger, op, input, nil, err)
		return endpoint, &EnhancementError{Op: op, Err: err}
	}

	details, err := ParseJSONResponse[ExtractedDetails](response)
	if err != nil {
		logger.LogAIInteraction(c.logger, op, input, nil, err)
		return endpoint, &EnhancementError{Op: op, Err: err}
	}

	out := endpoint.Clone()
	if details.Summary != "" {
		out.Summary = details.Summary
	}
	if details.Description != "" {
		out.Description = details.Description
	}
	if params := validParameters(details.Parameters); len(params) > 0 {
		out.Parameters = params
	}
	if details.RequestBody != nil {
		out.RequestBody = details.RequestBody
	}
	if len(details.Responses) > 0 {
		out.Responses = details.Responses
	}

	logger.LogAIInteraction(c.logger, op, input, details, nil)
	return out, nil
}

// EnhanceEndpointDocumentation implements the LLMClient interface
func (c *BaseClient) EnhanceEndpointDocumentation(ctx context.Context, endpoint types.Endpoint) (types.Endpoint, error) {
	const op = "EnhanceEndpointDocumentation"
	original := endpoint.OriginalDocumentation
	if original == "" {
		original = endpoint.Description
	}
	if original == "" {
		return endpoint, nil
	}

	prompt := fmt.Sprintf(`Review and improve this API endpoint documentation.

Original Documentation:
%s

Current Endpoint:
Method: %s
Path: %s
Summary: %s
Description: %s

Carry the original content over in a form suitable for an OpenAPI description, fix grammar
and spelling, and make it clearer for developers. Do not change any technical detail and keep
every example, code snippet and specification.

Respond with a JSON object:
{"summary": "one-line summary", "description": "improved description", "technicalNotes": "important technical details"}`,
		original, endpoint.Method, endpoint.Path, orNotProvided(endpoint.Summary), orNotProvided(endpoint.Description))

	input := endpoint.Key()
	response, err := c.callLLM(ctx, prompt, 2000)
	if err != nil {
		logger.LogAIInteraction(c.logger, op, input, nil, err)
		return endpoint, &EnhancementError{Op: op, Err: err}
	}

	enhanced, err := ParseJSONResponse[EnhancedDocumentation](response)
	if err != nil {
		logger.LogAIInteraction(c.logger, op, input, nil, err)
		return endpoint, &EnhancementError{Op: op, Err: err}
	}

	out := endpoint.Clone()
	if enhanced.Summary != "" {
		out.Summary = enhanced.Summary
	}
	if enhanced.Description != "" {
		out.Description = enhanced.Description
	}

	logger.LogAIInteraction(c.logger, op, input, enhanced, nil)
	return out, nil
}

// GenerateProductIntro implements the LLMClient interface
func (c *BaseClient) GenerateProductIntro(ctx context.Context, productURL, documentationURL, existingDescription string) (string, error) {
	const op = "GenerateProductIntro"
	var facts []string
	if productURL != "" {
		facts = append(facts, "Product URL: "+productURL)
	}
	if documentationURL != "" {
		facts = append(facts, "Documentation URL: "+documentationURL)
	}
	if existingDescription != "" {
		facts = append(facts, "Existing description: "+existingDescription)
	}

	prompt := fmt.Sprintf(`Write a technical product introduction for API documentation from this information:

%s

Write for developers in a professional tone. Describe what the API lets developers build and its
main capabilities in 2-3 paragraphs, at most 200 words.

Respond with the introduction text only, without headings or formatting.`, strings.Join(facts, "\n"))

	response, err := c.callLLM(ctx, prompt, 800)
	logger.LogAIInteraction(c.logger, op, facts, response, err)
	if err != nil {
		return "", &EnhancementError{Op: op, Err: err}
	}
	return strings.TrimSpace(response), nil
}

// SearchProductContext implements the LLMClient interface
func (c *BaseClient) SearchProductContext(ctx context.Context, productName string) (string, error) {
	const op = "SearchProductContext"
	prompt := fmt.Sprintf("Briefly summarize what %s does, focusing on its main features and API capabilities. Keep it under 200 words.", productName)

	response, err := c.callLLM(ctx, prompt, 500)
	logger.LogAIInteraction(c.logger, op, productName, response, err)
	if err != nil {
		return "", &EnhancementError{Op: op, Err: err}
	}
	return strings.TrimSpace(response), nil
}

// ExtractEndpoints implements the LLMClient interface
func (c *BaseClient) ExtractEndpoints(ctx context.Context, rawContent string) ([]types.Endpoint, error) {
	const op = "ExtractEndpoints"
	if strings.TrimSpace(rawContent) == "" {
		return []types.Endpoint{}, nil
	}

	prompt := fmt.Sprintf(`List every HTTP API endpoint described in this documentation.

Documentation:
%s

Respond with a JSON array:
[{"method": "GET|POST|PUT|DELETE|PATCH|HEAD|OPTIONS", "path": "/path/{param}", "summary": "one-line summary", "description": "what it does"}]
Respond with an empty array when no endpoints are described.`, rawContent)

	input := map[string]int{"rawContentLength": len(rawContent)}
	response, err := c.callLLM(ctx, prompt, 4000)
	if err != nil {
		logger.LogAIInteraction(c.logger, op, input, nil, err)
		return nil, &EnhancementError{Op: op, Err: err}
	}

	found, err := ParseJSONResponse[[]types.Endpoint](response)
	if err != nil {
		logger.LogAIInteraction(c.logger, op, input, nil, err)
		return nil, &EnhancementError{Op: op, Err: err}
	}

	endpoints := make([]types.Endpoint, 0, len(found))
	for _, e := range found {
		e.Method = strings.ToUpper(strings.TrimSpace(e.Method))
		e.Path = strings.TrimSpace(e.Path)
		if !types.IsMethod(e.Method) || !strings.HasPrefix(e.Path, "/") {
			continue
		}
		e.ID = types.EndpointID(e.Method, e.Path)
		e.Parameters = validParameters(e.Parameters)
		e.TestResult = nil
		endpoints = append(endpoints, e)
	}

	logger.LogAIInteraction(c.logger, op, input, map[string]int{"endpoints": len(endpoints)}, nil)
	return endpoints, nil
}

// Ping implements the LLMClient interface
func (c *BaseClient) Ping(ctx context.Context) error {
	const op = "Ping"
	_, err := c.callLLM(ctx, "Reply with the single word: ok", 5)
	logger.LogAIInteraction(c.logger, op, nil, nil, err)
	if err != nil {
		return &EnhancementError{Op: op, Err: err}
	}
	return nil
}

// endpointForPrompt drops fields that only add noise to a prompt.
func endpointForPrompt(e types.Endpoint) types.Endpoint {
	out := e.Clone()
	out.TestResult = nil
	out.OriginalDocumentation = ""
	out.DocumentationLink = ""
	return out
}

// validParameters keeps parameters with a name and a known location, the
// first of each (in, name) pair.
func validParameters(params []types.Parameter) []types.Parameter {
	var out []types.Parameter
	for _, p := range params {
		switch p.In {
		case types.InPath, types.InQuery, types.InHeader, types.InCookie:
		default:
			continue
		}
		if p.Name == "" {
			continue
		}
		if p.In == types.InPath {
			p.Required = true
		}
		out = append(out, p)
	}
	return types.UniqueParameters(out)
}

func orNotProvided(s string) string {
	if s == "" {
		return "Not provided"
	}
	return s
}
