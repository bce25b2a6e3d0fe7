package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/andreipetrus/first-base-api-dochancer/internal/config"
	"github.com/andreipetrus/first-base-api-dochancer/internal/fetcher"
	"github.com/andreipetrus/first-base-api-dochancer/internal/pipeline"
)

// checks is the outcome of the validate command, keyed by what was checked.
type checks map[string]fetcher.Validation

func (c checks) valid() bool {
	for _, v := range c {
		if !v.Valid {
			return false
		}
	}
	return true
}

func (a *app) newValidateCmd() *cobra.Command {
	var docURL, baseURL, apiKey string
	var ai bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a documentation URL, API credentials or the AI provider before a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.services(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			timeout := a.cfg.Fetch.ValidationTimeout
			result := checks{}
			if docURL != "" {
				result["url"] = s.Fetcher.ValidateURL(ctx, docURL, timeout)
			}
			if apiKey != "" || baseURL != "" {
				result["apiKey"] = s.Fetcher.ValidateAPIKey(ctx, firstNonEmpty(baseURL, a.cfg.Tester.BaseURL), firstNonEmpty(apiKey, a.cfg.Tester.APIKey), timeout)
			}
			if ai {
				result["ai"] = pingAI(ctx, s)
			}
			if len(result) == 0 {
				return errors.New("nothing to validate: pass --url, --base-url/--api-key or --ai")
			}

			if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if !result.valid() {
				return errors.New("validation failed")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&docURL, "url", "u", "", "documentation URL to check")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "API server to authenticate against")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API credential to check")
	cmd.Flags().BoolVar(&ai, "ai", false, "check the configured AI provider")
	return cmd
}

func pingAI(ctx context.Context, s *pipeline.Services) fetcher.Validation {
	if s.AI == nil {
		return fetcher.Validation{Message: "AI provider is not configured", Details: "Set ai.api_key or OPENAI_API_KEY"}
	}
	if err := s.AI.Ping(ctx); err != nil {
		return fetcher.Validation{Message: "AI provider rejected the request", Details: err.Error()}
	}
	return fetcher.Validation{Valid: true, Message: "AI provider is reachable"}
}

func (a *app) newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent test runs recorded in the history database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.Store.Enabled {
				return errors.New("run history is disabled: set store.enabled")
			}
			s, err := a.services(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.Store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tBASE URL\tTOTAL\tSUCCESS\tWARNINGS\tFAILURES")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
					r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.BaseURL, r.Total, r.Success, r.Warnings, r.Failures)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to list")
	return cmd
}

func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var path string
	var force bool
	initCmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a configuration file holding every default",
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}
			if err := config.Save(config.Default(), path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&path, "path", "p", "config.yaml", "where to write the file")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Annotations: map[string]string{skipConfig: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), a.version)
		},
	}
}
