package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quote-scraper/internal/adapters/http/handlers"
)

func newVersionCommand(info handlers.BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "quote-scraper %s (commit %s, built %s, %s)\n",
				info.Version, info.Commit, info.BuildTime, info.GoVersion)

			return err
		},
	}
}
