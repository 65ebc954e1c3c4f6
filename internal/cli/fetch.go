package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quote-scraper/internal/domain"
	"github.com/jsamuelsen/quote-scraper/internal/platform/config"
)

type fetchOptions struct {
	url    string
	engine string
	text   bool
}

// fetchResult is what the fetch command prints.
type fetchResult struct {
	URL    string   `json:"url"`
	Engine string   `json:"engine"`
	Count  int      `json:"count"`
	Quotes []string `json:"quotes"`
}

func newFetchCommand(root *rootOptions) *cobra.Command {
	opts := &fetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Render the quote page once and print the extracted quotes",
		Long: `fetch performs one render and extraction without the cache or HTTP
server. Use it to check selectors against the live page.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root, func(c *config.Config) {
				if opts.url != "" {
					c.Scraper.URL = opts.url
				}

				if opts.engine != "" {
					c.Scraper.Engine = opts.engine
				}
			})
			if err != nil {
				return err
			}

			logger := newLogger(cfg)

			r, err := newRenderer(cfg, logger)
			if err != nil {
				return err
			}

			quotes, err := newSource(cfg, r, logger).FetchQuotes(cmd.Context())
			if err != nil {
				return err
			}

			logger.Debug("fetch complete", slog.Int("count", quotes.Len()))

			return printQuotes(cmd.OutOrStdout(), cfg, quotes, opts.text)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "page to scrape (overrides scraper.url)")
	cmd.Flags().StringVar(&opts.engine, "engine", "", "renderer: browser or static (overrides scraper.engine)")
	cmd.Flags().BoolVar(&opts.text, "text", false, "print one quote per line instead of JSON")

	return cmd
}

func printQuotes(w io.Writer, cfg *config.Config, quotes domain.QuoteCollection, text bool) error {
	if text {
		for _, q := range quotes {
			if _, err := fmt.Fprintln(w, q.Text); err != nil {
				return err
			}
		}

		return nil
	}

	out := fetchResult{
		URL:    cfg.Scraper.URL,
		Engine: cfg.Scraper.Engine,
		Count:  quotes.Len(),
		Quotes: make([]string, 0, quotes.Len()),
	}

	for _, q := range quotes {
		out.Quotes = append(out.Quotes, q.Text)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	return enc.Encode(out)
}
