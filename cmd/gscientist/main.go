// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the gscientist CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/gscientist/internal/secrets"
	"github.com/pdiddy/gscientist/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is the merged configuration for this invocation.
	cfg types.Config

	// logger is built in PersistentPreRunE from --log-level and --log-json.
	logger = zerolog.Nop()
)

// rootCmd is the base command for the gscientist CLI.
var rootCmd = &cobra.Command{
	Use:   "gscientist",
	Short: "Search, collect, and organize academic papers",
	Long: `gscientist searches arXiv and Google Scholar, merges and deduplicates the
results, and exports them as CSV, JSON, YAML, or Excel. Results can be saved
into research projects, PDFs downloaded, and saved queries re-run on a
schedule.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		jsonLogs, _ := cmd.Flags().GetBool("log-json")
		l, err := newLogger(os.Stderr, level, jsonLogs)
		if err != nil {
			return err
		}
		logger = l

		if err := secrets.LoadEnv(".env"); err != nil {
			return err
		}
		s, err := secrets.Load(".secrets/", logger)
		if err != nil {
			return err
		}
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug().Strs("keys", keys).Msg("loaded secrets")
		}

		if err := viper.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("decoding config: %w", err)
		}
		secrets.Apply(s, &cfg)
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./gscientist.yaml or ~/.config/gscientist/gscientist.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("log-json", false, "write logs as JSON instead of console text")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("gscientist")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "gscientist"))
		}
	}

	setDefaults(viper.GetViper())
	viper.SetEnvPrefix("GSCIENTIST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every config key so that environment overrides
// reach Unmarshal even when no config file is present.
func setDefaults(v *viper.Viper) {
	a := types.DefaultArxivConfig()
	setRetryDefaults(v, "arxiv.retry", a.Retry)
	v.SetDefault("arxiv.max_results", a.MaxResults)
	v.SetDefault("arxiv.batch_size", a.BatchSize)
	v.SetDefault("arxiv.segments", a.Segments)
	v.SetDefault("arxiv.sort_by", a.SortBy)
	v.SetDefault("arxiv.sort_order", a.SortOrder)

	s := types.DefaultScholarConfig()
	setRetryDefaults(v, "scholar.retry", s.Retry)
	v.SetDefault("scholar.proxy.enabled", s.Proxy.Enabled)
	v.SetDefault("scholar.proxy.sources", s.Proxy.Sources)
	v.SetDefault("scholar.proxy.probe_url", s.Proxy.ProbeURL)
	v.SetDefault("scholar.proxy.probe_timeout", s.Proxy.ProbeTimeout)
	v.SetDefault("scholar.max_results", s.MaxResults)
	v.SetDefault("scholar.batch_size", s.BatchSize)
	v.SetDefault("scholar.save_batches", s.SaveBatches)
	v.SetDefault("scholar.batch_file", "scholar_batches.csv")

	v.SetDefault("project.db_path", "")
	v.SetDefault("project.workspace_root", "")

	v.SetDefault("agent.model", "")
	v.SetDefault("agent.api_key", "")
	v.SetDefault("agent.base_url", "")
	v.SetDefault("agent.system_message", "")
}

func setRetryDefaults(v *viper.Viper, prefix string, r types.RetryConfig) {
	v.SetDefault(prefix+".max_retries", r.MaxRetries)
	v.SetDefault(prefix+".timeout", r.Timeout)
	v.SetDefault(prefix+".delay_min", r.DelayMin)
	v.SetDefault(prefix+".delay_max", r.DelayMax)
	v.SetDefault(prefix+".rate_limit_base", r.RateLimitBase)
	v.SetDefault(prefix+".min_interval", r.MinInterval)
}

// newLogger returns a console logger on w, or a JSON logger when jsonOut
// is set.
func newLogger(w io.Writer, level string, jsonOut bool) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), types.NewConfigurationError("log level", level, "must be debug, info, warn, or error")
	}
	if !jsonOut {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
