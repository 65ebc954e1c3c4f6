// Package cli defines the quote-scraper commands.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quote-scraper/internal/adapters/http/handlers"
)

// DefaultConfigDir is where base.yaml and the profile files live.
const DefaultConfigDir = "configs"

type rootOptions struct {
	profile   string
	configDir string
}

// NewRootCommand returns the quote-scraper command tree.
func NewRootCommand(info handlers.BuildInfo) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "quote-scraper",
		Short: "Scrape an author quote page and serve random quotes over HTTP",
		Long: `quote-scraper renders an author quote page, extracts its quotes and
serves a random one per request from a one-hour cache.`,
		Version:       info.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.profile, "profile", "p", envOr("APP_ENVIRONMENT", "local"),
		"configuration profile (configs/<profile>.yaml)")
	cmd.PersistentFlags().StringVar(&opts.configDir, "config-dir", DefaultConfigDir,
		"directory holding base.yaml and profile files")

	cmd.AddCommand(
		newServeCommand(opts, info),
		newFetchCommand(opts),
		newVersionCommand(info),
	)

	return cmd
}

// Execute runs the command tree with args.
func Execute(ctx context.Context, info handlers.BuildInfo, args []string) error {
	cmd := NewRootCommand(info)
	cmd.SetArgs(args)

	return cmd.ExecuteContext(ctx)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
