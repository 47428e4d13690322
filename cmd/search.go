package cmd

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/uniseek/uniseek/pkg/cache"
	"github.com/uniseek/uniseek/pkg/config"
	"github.com/uniseek/uniseek/pkg/filter"
	"github.com/uniseek/uniseek/pkg/query"
	"github.com/uniseek/uniseek/pkg/search"
	"github.com/uniseek/uniseek/pkg/source"
	"github.com/uniseek/uniseek/pkg/synonyms"
	"github.com/urfave/cli/v3"
)

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search the program catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "query",
				Usage: "Search query",
			},
			&cli.StringSliceFlag{
				Name:  "state",
				Usage: "Filter by state (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "category",
				Usage: "Filter by institution category (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "subject",
				Usage: "Filter by subject (repeatable)",
			},
			&cli.FloatFlag{
				Name:  "max-cost",
				Usage: "Maximum yearly tuition",
			},
			&cli.IntFlag{
				Name:  "max-rank",
				Usage: "Maximum world ranking",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of results",
				Value: 10,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return searchCatalog(ctx, c)
		},
	}
}

// searchCatalog runs one search against the catalog and prints the results.
// It reuses the HTTP parameter parser so the CLI accepts exactly the filters
// the API does.
func searchCatalog(ctx context.Context, c *cli.Command) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	values := url.Values{}
	values.Set("q", c.String("query"))
	for _, s := range c.StringSlice("state") {
		values.Add("state", s)
	}
	for _, cat := range c.StringSlice("category") {
		values.Add("category", cat)
	}
	for _, sub := range c.StringSlice("subject") {
		values.Add("subject", sub)
	}
	if c.Float("max-cost") > 0 {
		values.Set("max_cost", strconv.FormatFloat(c.Float("max-cost"), 'f', -1, 64))
	}
	if c.Int("max-rank") > 0 {
		values.Set("max_rank", strconv.Itoa(int(c.Int("max-rank"))))
	}
	values.Set("limit", strconv.Itoa(int(c.Int("limit"))))

	params, err := search.ParseParams(values)
	if err != nil {
		return fmt.Errorf("parsing search parameters: %w", err)
	}

	src, err := source.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to catalog database: %w", err)
	}
	defer src.Close()

	service := search.NewService(
		query.NewExpander(synonyms.NewTableWithExtras(cfg.Synonyms, cfg.Regions)),
		filter.NewEngine(),
		cache.NewMemory(),
		src,
		cfg.Cache.TTL.Duration,
	)

	payload, _, err := service.Search(ctx, params)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	response, err := search.DecodeResponse(payload)
	if err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	fmt.Printf("Query:      %s\n", response.Query)
	fmt.Printf("Expression: %s\n", response.Expression)
	fmt.Printf("Matched %d of %d candidates (%.1f%%)\n\n", response.FilteredCount, response.TotalCount, response.MatchPercentage)

	for i, r := range response.Results {
		fmt.Printf("%d. %s (%s, %s)\n", i+1, r.Name, r.State, r.Category)
		if r.Ranking > 0 {
			fmt.Printf("   ranking: %d\n", r.Ranking)
		}
		if r.TuitionPerYear > 0 {
			fmt.Printf("   tuition: $%.0f/year\n", r.TuitionPerYear)
		}
		if i < len(response.Results)-1 {
			fmt.Println()
		}
	}
	if len(response.Results) == 0 {
		fmt.Println("No results.")
	}
	return nil
}
