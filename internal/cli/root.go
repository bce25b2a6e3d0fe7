// Package cli implements the dochancer command line.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/andreipetrus/first-base-api-dochancer/internal/config"
	"github.com/andreipetrus/first-base-api-dochancer/internal/logger"
	"github.com/andreipetrus/first-base-api-dochancer/internal/pipeline"
	"github.com/andreipetrus/first-base-api-dochancer/internal/types"
)

// skipConfig marks commands that run without loading configuration.
const skipConfig = "skip-config"

// app carries what the commands of one invocation share.
type app struct {
	version string
	cfgFile string
	cfg     *config.Config
	log     *zap.Logger
}

// Execute runs the command line with os.Args.
func Execute(ctx context.Context, version string) error {
	return NewRootCmd(version).ExecuteContext(ctx)
}

// NewRootCmd builds the command tree. Every call returns an independent tree.
func NewRootCmd(version string) *cobra.Command {
	a := &app{version: version, log: zap.NewNop()}

	root := &cobra.Command{
		Use:           "dochancer",
		Short:         "Turn API documentation into a tested OpenAPI document",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipConfig] != "" {
				return nil
			}
			return a.initialize()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./config.yaml)")

	root.AddCommand(
		a.newExtractCmd(),
		a.newParamsCmd(),
		a.newTestCmd(),
		a.newGenerateCmd(),
		a.newValidateCmd(),
		a.newHistoryCmd(),
		a.newConfigCmd(),
		a.newVersionCmd(),
	)
	return root
}

// initialize loads configuration from file, DOCHANCER_* variables and defaults,
// then builds the logger.
func (a *app) initialize() error {
	v := viper.New()
	config.SetDefaults(v)

	if a.cfgFile != "" {
		v.SetConfigFile(a.cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix("DOCHANCER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg, err := config.NewConfigFromViper(v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger.NewStderr(cfg.Logger)
	if used := v.ConfigFileUsed(); used != "" {
		a.log.Debug("Loaded configuration", zap.String("file", used))
	}
	return nil
}

func (a *app) services(ctx context.Context) (*pipeline.Services, error) {
	return pipeline.NewServices(ctx, a.cfg, a.log)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readEndpoints(path string) ([]types.Endpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read endpoints: %w", err)
	}
	var endpoints []types.Endpoint
	if err := json.Unmarshal(data, &endpoints); err != nil {
		return nil, fmt.Errorf("failed to parse endpoints in %s: %w", path, err)
	}
	return endpoints, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
