package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/gosearch/internal/logger"
	"github.com/jonesrussell/gosearch/internal/seeds"
)

func newCrawlCommand() *cobra.Command {
	var seedFile string

	cmd := &cobra.Command{
		Use:   "crawl [url...]",
		Short: "Register seed URLs and queue them for crawling",
		Long: `Registers the given URLs at depth 0 and pushes them onto the work
queue. URLs come from the arguments, from a YAML seed file, or from
the configured SEED_FILE_PATH, in that order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(cmd.Context(), args, seedFile)
		},
	}

	cmd.Flags().StringVarP(&seedFile, "file", "f", "", "YAML file of seed URLs")

	return cmd
}

func runCrawl(ctx context.Context, args []string, seedFile string) error {
	d, err := newDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	urls, err := resolveSeeds(args, seedFile, d.cfg.Crawler.SeedFilePath)
	if err != nil {
		return err
	}

	registrar, _, _ := d.newAdmission()
	_, producer := d.newQueue()

	created := 0
	queued := 0

	for _, seedURL := range urls {
		isNew, regErr := registrar.RegisterSeed(ctx, seedURL)
		if regErr != nil {
			d.log.Warn("skipping seed",
				logger.String("url", seedURL),
				logger.Error(regErr),
			)

			continue
		}

		if isNew {
			created++
		}

		if _, enqErr := producer.Enqueue(ctx, seedURL, 0); enqErr != nil {
			d.log.Error("failed to enqueue seed",
				logger.String("url", seedURL),
				logger.Error(enqErr),
			)

			continue
		}

		queued++
	}

	fmt.Printf("Seeds: %d given, %d new, %d queued\n", len(urls), created, queued)

	return nil
}

// resolveSeeds returns the seed URLs from the arguments, the --file flag,
// or the configured seed file, in that order of preference.
func resolveSeeds(args []string, flagPath, configPath string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}

	path := flagPath
	if path == "" {
		path = configPath
	}

	if path == "" {
		return nil, errors.New("no seed URLs: pass them as arguments or use --file")
	}

	return seeds.Load(path)
}
