package llm

import (
	"context"
	"fmt"

	"github.com/andreipetrus/first-base-api-dochancer/internal/types"
)

// EnhancementError is returned by every AI capability call. Callers keep the
// value they passed in when they receive one.
type EnhancementError struct {
	Op  string
	Err error
}

func (e *EnhancementError) Error() string {
	return fmt.Sprintf("ai %s: %v", e.Op, e.Err)
}

func (e *EnhancementError) Unwrap() error {
	return e.Err
}

// EnhancedDocumentation is the AI rewrite of one endpoint's documentation.
type EnhancedDocumentation struct {
	Summary        string `json:"summary"`
	Description    string `json:"description"`
	TechnicalNotes string `json:"technicalNotes"`
}

// ExtractedDetails is the structured information the AI reads out of an
// endpoint's original documentation.
type ExtractedDetails struct {
	Summary     string             `json:"summary"`
	Description string             `json:"description"`
	Parameters  []types.Parameter  `json:"parameters"`
	RequestBody *types.RequestBody `json:"requestBody"`
	Responses   []types.Response   `json:"responses"`
}

// LLMClient defines the AI capability used to enrich documentation
type LLMClient interface {
	// CategorizeEndpoints assigns categories and polishes descriptions across the whole set.
	CategorizeEndpoints(ctx context.Context, endpoints []types.Endpoint, productContext string) ([]types.Endpoint, error)

	// GenerateTestData returns a realistic JSON request value for the endpoint.
	GenerateTestData(ctx context.Context, endpoint types.Endpoint) (any, error)

	// ExtractEndpointDetails overlays parameters, body and responses read from the
	// endpoint's original documentation.
	ExtractEndpointDetails(ctx context.Context, endpoint types.Endpoint) (types.Endpoint, error)

	// EnhanceEndpointDocumentation improves the endpoint's summary and description.
	EnhanceEndpointDocumentation(ctx context.Context, endpoint types.Endpoint) (types.Endpoint, error)

	// GenerateProductIntro writes a short developer-facing product introduction.
	GenerateProductIntro(ctx context.Context, productURL, documentationURL, existingDescription string) (string, error)

	// SearchProductContext summarizes what a named product does.
	SearchProductContext(ctx context.Context, productName string) (string, error)

	// ExtractEndpoints reads endpoints out of raw documentation text.
	ExtractEndpoints(ctx context.Context, rawContent string) ([]types.Endpoint, error)

	// Ping performs a minimal completion to check the credentials.
	Ping(ctx context.Context) error
}
