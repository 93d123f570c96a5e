package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/gosearch/internal/domain"
	"github.com/jonesrussell/gosearch/internal/logger"
)

const defaultTopDomains = 10

func newStatusCommand() *cobra.Command {
	var topDomains int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show crawl state counters and the busiest domains",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), topDomains)
		},
	}

	cmd.Flags().IntVar(&topDomains, "domains", defaultTopDomains, "number of top domains to show")

	return cmd
}

func runStatus(ctx context.Context, topDomains int) error {
	d, err := newDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	stats, err := d.urls.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to load crawl stats: %w", err)
	}

	_, producer := d.newQueue()

	queued, err := producer.QueueDepth(ctx)
	if err != nil {
		d.log.Warn("failed to read queue depth", logger.Error(err))
		queued = 0
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"State", "URLs"})
	t.AppendRow(table.Row{"pending", stats.Pending})
	t.AppendRow(table.Row{"crawling", stats.Crawling})
	t.AppendRow(table.Row{"done", stats.Done})
	t.AppendRow(table.Row{"error", stats.Error})
	t.AppendRow(table.Row{"blocked", stats.Blocked})
	t.AppendRow(table.Row{"deleted", stats.Deleted})
	t.AppendFooter(table.Row{"queued", queued})
	t.Render()

	domains, err := d.urls.TopDomains(ctx, topDomains)
	if err != nil {
		return fmt.Errorf("failed to load top domains: %w", err)
	}

	if len(domains) > 0 {
		renderTopDomains(domains)
	}

	return nil
}

func renderTopDomains(domains []*domain.DomainStat) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Domain", "URLs", "Last Crawl"})

	for _, stat := range domains {
		lastCrawl := "never"
		if stat.LastCrawl != nil {
			lastCrawl = stat.LastCrawl.Format(time.RFC3339)
		}

		t.AppendRow(table.Row{stat.Domain, stat.Count, lastCrawl})
	}

	t.Render()
}
