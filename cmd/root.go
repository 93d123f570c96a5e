// Package cmd implements the gosearch command-line interface: the combined
// crawl and search server, seed registration, one-shot queries, crawl status,
// and schema migrations.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/gosearch/internal/config"
)

// Execute runs the root command with a fresh context.
func Execute() error {
	return newRootCommand().ExecuteContext(context.Background())
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "gosearch",
		Short: "A web crawler and full-text search engine",
		Long: `gosearch crawls the web under robots.txt and per-domain politeness
policy and serves full-text search over the crawled pages.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.AddCommand(
		newServeCommand(),
		newCrawlCommand(),
		newSearchCommand(),
		newStatusCommand(),
		newMigrateCommand(),
		newVersionCommand(),
	)

	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("gosearch version %s\n", config.Version)
		},
	}
}
