package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/uniseek/uniseek/pkg/config"
	"github.com/uniseek/uniseek/pkg/query"
	"github.com/uniseek/uniseek/pkg/synonyms"
	"github.com/urfave/cli/v3"
)

// QueryCommand creates the query command
func QueryCommand() *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "Show how a search query expands",
		ArgsUsage: "<terms>",
		Action: func(ctx context.Context, c *cli.Command) error {
			return showExpansion(c.String("config"), strings.Join(c.Args().Slice(), " "))
		},
	}
}

// showExpansion prints the broad term set and the boolean expression a query
// turns into, without touching the database.
func showExpansion(configPath, q string) error {
	if strings.TrimSpace(q) == "" {
		return fmt.Errorf("query terms required")
	}

	// Extra synonym tables only apply when a config file exists; the
	// built-ins still work without one.
	table := synonyms.NewTable()
	if cfg, err := config.LoadConfig(configPath); err == nil {
		table = synonyms.NewTableWithExtras(cfg.Synonyms, cfg.Regions)
	}

	expander := query.NewExpander(table)

	fmt.Printf("Query:      %s\n", q)
	fmt.Printf("Terms:      %s\n", strings.Join(expander.Expand(q), ", "))
	fmt.Printf("Expression: %s\n", expander.BuildBooleanExpression(q))
	return nil
}
