// Package cmd defines the companycrawler command line.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/company-intel-crawler/internal/config"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "companycrawler",
		Short: "Crawls company websites and builds a sales intelligence workbook.",
		Long: `companycrawler reads a list of companies and their websites, visits each
site in a real browser, collects the about text, founding year and contact
email, asks a language model for a structured company report and writes
everything to an .xlsx workbook.

Run "serve" for the HTTP service with live progress, or "crawl" for a
one-shot batch over a local spreadsheet.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file (environment variables with the CRAWLER_ prefix override it)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newCrawlCmd(opts))
	return cmd
}

func (o *options) load() (*config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		zap.L().Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}
