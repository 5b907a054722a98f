package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/alfredjeanlab/gridq/internal/catalog"
	"github.com/alfredjeanlab/gridq/internal/client"
	"github.com/alfredjeanlab/gridq/internal/dataset"
	"github.com/alfredjeanlab/gridq/internal/model"
)

var queryCmd = &cobra.Command{
	Use:   "query [dataset]",
	Short: "Fetch one page of a dataset",
	Long: `Fetch one page of a dataset: rows are filtered by a case-insensitive
substring match on any field, sorted by one field, then paginated.

The dataset is either a name from the datasets file or, with --file, a
JSON or JSON Lines file read directly.`,
	Example: `  gridq query people --filter smith --sort -birth_date
  gridq query --file people.jsonl --page 3 --page-size 20 --columns id,first_name
  gridq query people --transport http --http-url http://gridq:8080`,
	GroupID: "data",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		dateFields, _ := cmd.Flags().GetStringSlice("date-field")
		columns, _ := cmd.Flags().GetStringSlice("columns")

		q, err := queryFromFlags(cmd)
		if err != nil {
			return err
		}

		var name string
		switch {
		case file != "" && len(args) > 0:
			return fmt.Errorf("give a dataset name or --file, not both")
		case file != "":
			name = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		case len(args) == 1:
			name = args[0]
		default:
			return fmt.Errorf("a dataset name or --file is required")
		}

		ctx := cmd.Context()
		querier, err := newQuerier(ctx, name, file, dateFields)
		if err != nil {
			return err
		}
		defer querier.Close()

		res, err := querier.Query(ctx, name, q)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(os.Stdout, res)
		}
		return printResultTable(os.Stdout, res, columns)
	},
}

// newQuerier returns a remote client for the selected transport, or loads
// the one dataset the query needs into a local catalog.
func newQuerier(ctx context.Context, name, file string, dateFields []string) (client.Querier, error) {
	if file == "" {
		remote, err := newRemoteClient()
		if err != nil || remote != nil {
			return remote, err
		}
	}

	var cat *catalog.Catalog
	if file != "" {
		cat = catalog.New(catalog.WithLogger(logger))
		if err := cat.Register(name, &dataset.FileSource{Path: file, DateFields: dateFields}); err != nil {
			return nil, err
		}
	} else {
		var err error
		if cat, err = openCatalog(ctx, datasetsFile, []string{name}); err != nil {
			return nil, err
		}
	}
	if _, err := cat.Load(ctx, name); err != nil {
		return nil, err
	}
	return &localQuerier{cat: cat}, nil
}

// queryFromFlags builds a Query from the query command's flags. --sort
// takes precedence over --sort-by and --desc.
func queryFromFlags(cmd *cobra.Command) (model.Query, error) {
	filter, _ := cmd.Flags().GetString("filter")
	page, _ := cmd.Flags().GetInt("page")
	pageSize, _ := cmd.Flags().GetInt("page-size")
	sortBy, _ := cmd.Flags().GetString("sort-by")
	desc, _ := cmd.Flags().GetBool("desc")
	sortKey, _ := cmd.Flags().GetString("sort")

	if sortKey != "" && (sortBy != "" || desc) {
		return model.Query{}, fmt.Errorf("--sort cannot be combined with --sort-by or --desc")
	}

	q := model.Query{
		Filter:   filter,
		Page:     page,
		PageSize: pageSize,
		SortBy:   sortBy,
	}
	if desc {
		q.SortDirection = model.Descending
	}
	if sortKey != "" {
		q = q.WithSort(sortKey)
	}
	return q, nil
}

// addQueryFlags registers the query flags on fs.
func addQueryFlags(fs *pflag.FlagSet) {
	fs.String("file", "", "query a JSON or JSON Lines file instead of a configured dataset")
	fs.StringP("filter", "f", "", "case-insensitive substring to match against every field")
	fs.IntP("page", "p", 1, "1-based page number")
	fs.IntP("page-size", "n", model.DefaultPageSize, "rows per page")
	fs.String("sort-by", "", "field to sort by")
	fs.Bool("desc", false, "sort descending")
	fs.StringP("sort", "s", "", `sort key, "-field" for descending`)
	fs.StringSlice("date-field", nil, "with --file, fields to parse as timestamps (repeatable)")
	fs.StringSlice("columns", nil, "columns to print, in order (default: all)")
}

func init() {
	addQueryFlags(queryCmd.Flags())
}
