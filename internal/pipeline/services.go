// Package pipeline wires the components together and runs a documentation
// job end to end.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/andreipetrus/first-base-api-dochancer/internal/assembler"
	"github.com/andreipetrus/first-base-api-dochancer/internal/config"
	"github.com/andreipetrus/first-base-api-dochancer/internal/executor"
	"github.com/andreipetrus/first-base-api-dochancer/internal/extractor"
	"github.com/andreipetrus/first-base-api-dochancer/internal/fetcher"
	"github.com/andreipetrus/first-base-api-dochancer/internal/llm"
	"github.com/andreipetrus/first-base-api-dochancer/internal/parser"
	"github.com/andreipetrus/first-base-api-dochancer/internal/reporter"
	"github.com/andreipetrus/first-base-api-dochancer/internal/store"
	"github.com/andreipetrus/first-base-api-dochancer/internal/textextract"
)

// Services holds one instance of every component. It is built once at
// startup and shared by reference.
type Services struct {
	Config    *config.Config
	Logger    *zap.Logger
	Fetcher   *fetcher.Client
	Parser    *parser.Parser
	Extractor *extractor.Extractor
	Tester    *executor.Tester
	Writer    *assembler.Writer
	Reporter  *reporter.Reporter

	// AI is nil when no provider key is configured.
	AI llm.LLMClient
	// Store is nil unless history is enabled.
	Store *store.Store
}

// NewServices constructs every component from cfg.
func NewServices(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Services, error) {
	ai, err := llm.NewClient(ctx, cfg.AI, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI client: %w", err)
	}

	f := fetcher.New(fetcher.Options{
		UserAgent:    cfg.Fetch.UserAgent,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		LinkedRate:   cfg.Fetch.LinkedDocRate,
		LinkedBurst:  cfg.Fetch.LinkedDocBurst,
	}, log)

	s := &Services{
		Config:  cfg,
		Logger:  log,
		Fetcher: f,
		Parser: parser.New(f, textextract.Default{}, parser.Options{
			DocumentTimeout:  cfg.Fetch.DocumentTimeout,
			LinkedDocTimeout: cfg.Fetch.LinkedDocTimeout,
			RawContentLimit:  cfg.Fetch.RawContentLimit,
		}, log),
		Extractor: extractor.New(ai, f, extractor.Options{
			FetchTimeout: cfg.Fetch.DocumentTimeout,
		}, log),
		Tester: executor.NewTester(executor.Options{
			Timeout:    cfg.Tester.Timeout,
			MaxWorkers: cfg.Tester.MaxWorkers,
		}, log),
		Writer: assembler.NewWriter(cfg.Output.Dir, log),
		Reporter: reporter.NewReporter(reporter.ReportingConfig{
			Formats:   cfg.Output.ReportFormats,
			OutputDir: cfg.Output.ReportDir,
		}),
		AI: ai,
	}

	if cfg.Store.Enabled {
		st, err := store.Open(ctx, cfg.Store, log)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
		s.Store = st
	}
	return s, nil
}

// Close releases held connections.
func (s *Services) Close() error {
	var errs []error
	s.Fetcher.CloseIdleConnections()
	s.Tester.CloseIdleConnections()
	if s.Store != nil {
		errs = append(errs, s.Store.Close())
	}
	return errors.Join(errs...)
}
