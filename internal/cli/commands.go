package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/andreipetrus/first-base-api-dochancer/internal/params"
	"github.com/andreipetrus/first-base-api-dochancer/internal/pipeline"
	"github.com/andreipetrus/first-base-api-dochancer/internal/testdata"
	"github.com/andreipetrus/first-base-api-dochancer/internal/types"
)

type sourceFlags struct {
	file       string
	url        string
	productURL string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "documentation file (.json, .yaml, .html, .md, .txt, .pdf, .docx)")
	cmd.Flags().StringVarP(&f.url, "url", "u", "", "documentation URL")
	cmd.Flags().StringVar(&f.productURL, "product-url", "", "product website used as context for AI enhancement")
	cmd.MarkFlagsOneRequired("file", "url")
	cmd.MarkFlagsMutuallyExclusive("file", "url")
}

func (a *app) newExtractCmd() *cobra.Command {
	var src sourceFlags
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Parse documentation and print the normalized endpoints as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.services(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			_, endpoints, err := s.Extract(cmd.Context(), pipeline.Request{
				FilePath:   src.file,
				URL:        src.url,
				ProductURL: src.productURL,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), endpoints)
		},
	}
	src.register(cmd)
	return cmd
}

func (a *app) newParamsCmd() *cobra.Command {
	var input, out string
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Infer common parameters from extracted endpoints and write an editable template",
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoints, err := readEndpoints(input)
			if err != nil {
				return err
			}
			common := params.ExtractCommonParameters(endpoints)
			path, err := testdata.NewGenerator(out).GenerateTemplate(common)
			if err != nil {
				return err
			}
			a.log.Info("Parameter template written", zap.String("path", path), zap.Int("parameters", len(common)))
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "endpoints JSON produced by extract")
	cmd.Flags().StringVarP(&out, "out", "o", "testdata", "directory for the parameter template")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// loadOverrides reads edited parameters from dir. A directory without
// parameter files yields no overrides.
func (a *app) loadOverrides(dir string) ([]types.APIParameter, error) {
	if dir == "" {
		return nil, nil
	}
	overrides, err := testdata.NewLoader(dir).LoadParameters()
	if errors.Is(err, testdata.ErrNoParameters) {
		a.log.Warn("No parameter overrides found", zap.String("dir", dir))
		return nil, nil
	}
	return overrides, err
}

func (a *app) newTestCmd() *cobra.Command {
	var input, baseURL, apiKey, paramsDir string
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run live requests against extracted endpoints and write a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoints, err := readEndpoints(input)
			if err != nil {
				return err
			}
			target := firstNonEmpty(baseURL, a.cfg.Tester.BaseURL)
			if target == "" {
				return errors.New("a base URL is required: use --base-url or tester.base_url")
			}
			overrides, err := a.loadOverrides(paramsDir)
			if err != nil {
				return err
			}

			s, err := a.services(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			common := params.Merge(params.ExtractCommonParameters(endpoints), overrides)
			outcome, err := s.Test(cmd.Context(), endpoints, common, target, apiKey)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, outcome.Report.Summary())
			for _, path := range outcome.ReportFiles {
				fmt.Fprintln(w, path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "endpoints JSON produced by extract")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "server the requests are sent to")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "credential sent as a bearer token and X-API-Key")
	cmd.Flags().StringVar(&paramsDir, "params", "", "directory holding parameters.json or the generated template")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func (a *app) newGenerateCmd() *cobra.Command {
	var (
		src               sourceFlags
		baseURL, apiKey   string
		paramsDir, outDir string
		test, zip         bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Produce an OpenAPI document and viewer from documentation, optionally testing every endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir != "" {
				a.cfg.Output.Dir = outDir
			}
			overrides, err := a.loadOverrides(paramsDir)
			if err != nil {
				return err
			}

			s, err := a.services(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := s.Run(cmd.Context(), pipeline.Request{
				FilePath:   src.file,
				URL:        src.url,
				ProductURL: src.productURL,
				BaseURL:    firstNonEmpty(baseURL, a.cfg.Tester.BaseURL),
				APIKey:     apiKey,
				Test:       test,
				Zip:        zip || a.cfg.Output.Zip,
				Overrides:  overrides,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Endpoints: %d\n", len(result.Endpoints))
			fmt.Fprintf(w, "Spec: %s\n", result.Bundle.SpecPath)
			fmt.Fprintf(w, "Viewer: %s\n", result.Bundle.HTMLPath)
			if result.Bundle.ZipPath != "" {
				fmt.Fprintf(w, "Archive: %s\n", result.Bundle.ZipPath)
			}
			if result.Report != nil {
				fmt.Fprintln(w, result.Report.Summary())
			}
			for _, warning := range result.Bundle.Warnings {
				fmt.Fprintf(w, "Warning: %s\n", warning)
			}
			return nil
		},
	}
	src.register(cmd)
	cmd.Flags().StringVar(&baseURL, "base-url", "", "server URL, overriding the one found in the documentation")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "credential for endpoint tests")
	cmd.Flags().StringVar(&paramsDir, "params", "", "directory holding common parameter overrides")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default output.dir)")
	cmd.Flags().BoolVar(&test, "test", false, "send a live request to every endpoint")
	cmd.Flags().BoolVar(&zip, "zip", false, "also write a zip archive of the viewer and spec")
	return cmd
}
