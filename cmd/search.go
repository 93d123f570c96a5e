package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/gosearch/internal/domain"
	"github.com/jonesrussell/gosearch/internal/metrics"
	"github.com/jonesrussell/gosearch/internal/search"
)

const (
	defaultCLISearchLimit = 10

	indexColumnWidth   = 4
	titleColumnWidth   = 32
	urlColumnWidth     = 48
	snippetColumnWidth = 60
)

func newSearchCommand() *cobra.Command {
	var (
		limit    int
		category string
		site     string
		images   bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a one-shot search query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filters := domain.SearchFilters{
				Category:      category,
				Domain:        site,
				IncludeImages: images,
			}

			return runSearch(cmd.Context(), strings.Join(args, " "), filters, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultCLISearchLimit, "maximum number of results")
	cmd.Flags().StringVar(&category, "category", "", "filter by page category")
	cmd.Flags().StringVar(&site, "domain", "", "filter by page domain")
	cmd.Flags().BoolVar(&images, "images", false, "include representative images")

	return cmd
}

func runSearch(ctx context.Context, query string, filters domain.SearchFilters, limit int) error {
	d, err := newDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	engine := d.newEngine(metrics.New(prometheus.NewRegistry()))

	resp, err := engine.Search(ctx, query, filters, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	renderSearchResults(resp)

	return nil
}

// renderSearchResults prints the hits as a rounded table with the query
// echoed in the footer.
func renderSearchResults(resp *search.SearchResponse) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMax: indexColumnWidth},
		{Number: 2, WidthMax: titleColumnWidth},
		{Number: 3, WidthMax: urlColumnWidth},
		{Number: 4, WidthMax: snippetColumnWidth},
	})

	t.AppendHeader(table.Row{"#", "Title", "URL", "Snippet"})

	for i, hit := range resp.Results {
		t.AppendRow(table.Row{
			i + 1,
			strings.TrimSpace(hit.Title),
			hit.URL,
			strings.Join(strings.Fields(hit.Snippet), " "),
		})
	}

	t.AppendFooter(table.Row{"Total", resp.Count, "", fmt.Sprintf("Query: %s", resp.Query)})
	t.Render()

	if len(resp.Keywords) > 0 {
		fmt.Printf("Keywords: %s\n", strings.Join(resp.Keywords, ", "))
	}
}
