package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"

	"github.com/andreipetrus/first-base-api-dochancer/internal/assembler"
	"github.com/andreipetrus/first-base-api-dochancer/internal/executor"
	"github.com/andreipetrus/first-base-api-dochancer/internal/params"
	"github.com/andreipetrus/first-base-api-dochancer/internal/reporter"
	"github.com/andreipetrus/first-base-api-dochancer/internal/store"
	"github.com/andreipetrus/first-base-api-dochancer/internal/types"
)

// ErrNoSource is returned when a request names neither a file nor a URL.
var ErrNoSource = errors.New("a documentation file or URL is required")

// Request describes one documentation job.
type Request struct {
	FilePath   string
	URL        string
	ProductURL string
	// BaseURL and APIKey override the document's base URL and the configured tester key.
	BaseURL string
	APIKey  string
	Test    bool
	Zip     bool
	// Overrides replace inferred common parameters by name and type.
	Overrides []types.APIParameter
}

// Result is everything a job produced.
type Result struct {
	Document         *types.ParsedDocument
	Endpoints        []types.Endpoint
	CommonParameters []types.APIParameter
	ProductIntro     string
	Spec             *openapi3.T
	Bundle           *assembler.Bundle
	Report           *reporter.Report
	ReportFiles      []string
	Run              *store.Run
}

// Run executes parse, extraction, parameter inference, optional testing,
// assembly and publishing under the configured pipeline timeout. Only source
// and output errors fail the job.
func (s *Services) Run(ctx context.Context, req Request) (*Result, error) {
	if timeout := s.Config.Pipeline.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	started := time.Now()

	doc, endpoints, err := s.Extract(ctx, req)
	if err != nil {
		return nil, err
	}
	result := &Result{Document: doc, Endpoints: endpoints}
	result.CommonParameters = params.Merge(params.ExtractCommonParameters(result.Endpoints), req.Overrides)

	baseURL := firstNonEmpty(req.BaseURL, doc.BaseURL)
	tested := req.Test && baseURL != ""
	if req.Test && !tested {
		s.Logger.Warn("Skipping endpoint tests: no base URL")
	}
	if tested {
		outcome, err := s.Test(ctx, result.Endpoints, result.CommonParameters, baseURL, req.APIKey)
		if err != nil {
			return nil, err
		}
		result.Endpoints = outcome.Endpoints
		result.Report = outcome.Report
		result.ReportFiles = outcome.ReportFiles
		result.Run = outcome.Run
	}

	result.ProductIntro = s.productIntro(ctx, doc, req)

	result.Spec = assembler.Generate(result.Endpoints, assembler.Metadata{
		Title:        doc.Title,
		Description:  doc.Description,
		ProductIntro: result.ProductIntro,
		Version:      doc.Version,
		BaseURL:      baseURL,
	})
	warnings := assembler.Validate(ctx, result.Spec)
	for _, w := range warnings {
		s.Logger.Warn("OpenAPI document warning", zap.String("warning", w))
	}

	result.Bundle, err = s.Writer.WriteBundle(result.Spec)
	if err != nil {
		return nil, err
	}
	result.Bundle.Warnings = warnings
	if req.Zip {
		if err := s.Writer.WriteZip(result.Spec, result.Bundle); err != nil {
			return nil, err
		}
	}

	s.Logger.Info("Documentation generated",
		zap.Int("endpoints", len(result.Endpoints)),
		zap.Int("warnings", len(warnings)),
		zap.String("html", result.Bundle.HTMLPath),
		zap.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

// TestOutcome is what a test run produced.
type TestOutcome struct {
	Endpoints   []types.Endpoint
	Report      *reporter.Report
	ReportFiles []string
	Run         *store.Run
}

// Test runs every endpoint against baseURL with the given common parameters,
// writes the configured reports and records the run when history is enabled.
// An empty apiKey falls back to the configured tester key. Only report output
// errors are returned. Concurrent calls on one Services are independent.
func (s *Services) Test(ctx context.Context, endpoints []types.Endpoint, common []types.APIParameter, baseURL, apiKey string) (*TestOutcome, error) {
	started := time.Now()
	outcome := &TestOutcome{Endpoints: s.Tester.TestAllEndpointsAt(ctx, executor.Target{
		BaseURL: baseURL,
		APIKey:  firstNonEmpty(apiKey, s.Config.Tester.APIKey),
		AI:      s.AI,
		Common:  common,
	}, endpoints)}

	var err error
	outcome.Report, outcome.ReportFiles, err = s.Reporter.GenerateReport(outcome.Endpoints, baseURL)
	if err != nil {
		return nil, err
	}
	s.Logger.Info(outcome.Report.Summary())

	if s.Store != nil {
		run, err := s.Store.SaveRun(ctx, outcome.Report, started)
		if err != nil {
			s.Logger.Warn("Failed to store test run", zap.Error(err))
		}
		outcome.Run = run
	}
	return outcome, nil
}

// Extract parses the request's source and returns the document with its
// normalized endpoints.
func (s *Services) Extract(ctx context.Context, req Request) (*types.ParsedDocument, []types.Endpoint, error) {
	doc, err := s.parse(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	return doc, s.Extractor.ExtractAndEnhance(ctx, doc, req.ProductURL), nil
}

func (s *Services) parse(ctx context.Context, req Request) (*types.ParsedDocument, error) {
	switch {
	case req.FilePath != "":
		return s.Parser.ParseFile(ctx, req.FilePath)
	case req.URL != "":
		return s.Parser.ParseURL(ctx, req.URL)
	default:
		return nil, ErrNoSource
	}
}

// productIntro asks the AI for an introduction. Without AI it is empty, which
// lets the document description stand.
func (s *Services) productIntro(ctx context.Context, doc *types.ParsedDocument, req Request) string {
	if s.AI == nil {
		return ""
	}
	intro, err := s.AI.GenerateProductIntro(ctx, req.ProductURL, req.URL, doc.Description)
	if err != nil || intro == "" {
		return firstNonEmpty(doc.Description, "API documentation")
	}
	return intro
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
