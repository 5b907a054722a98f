package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/gridq/internal/client"
	"github.com/alfredjeanlab/gridq/internal/model"
)

var datasetsCmd = &cobra.Command{
	Use:     "datasets",
	Short:   "List datasets",
	GroupID: "data",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		load, _ := cmd.Flags().GetBool("load")
		ctx := cmd.Context()

		var infos []model.DatasetInfo
		remote, err := newRemoteClient()
		if err != nil {
			return err
		}
		if remote != nil {
			defer remote.Close()
			gc, ok := remote.(client.GridClient)
			if !ok {
				return fmt.Errorf("the %s transport cannot list datasets", transport)
			}
			if infos, err = gc.ListDatasets(ctx); err != nil {
				return err
			}
		} else {
			cat, err := openCatalog(ctx, datasetsFile, nil)
			if err != nil {
				return err
			}
			if load {
				// Failures show up in the ERROR column.
				_ = cat.LoadAll(ctx)
			}
			infos = cat.List()
		}

		if jsonOutput {
			return printJSON(os.Stdout, infos)
		}
		return printDatasetsTable(os.Stdout, infos)
	},
}

var reloadCmd = &cobra.Command{
	Use:     "reload <dataset>",
	Short:   "Ask a running server to reload a dataset",
	GroupID: "data",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.NewHTTPClient(httpURL, authToken)
		di, err := c.Reload(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(os.Stdout, di)
		}
		return printDatasetsTable(os.Stdout, []model.DatasetInfo{di})
	},
}

func init() {
	datasetsCmd.Flags().Bool("load", false, "load each local dataset to report row counts")
}
