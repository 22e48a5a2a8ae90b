package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/erazemk/lotbook/internal/category"
)

func newImportCmd(g *globalFlags) *cobra.Command {
	var cat string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a CSV or XLSX spreadsheet into a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := category.Parse(cat)
			if err != nil {
				return err
			}

			a, err := setup(g)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := a.importer.ImportFile(cmd.Context(), f, filepath.Base(args[0]), key)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "batch %s: %d imported, %d skipped\n", res.BatchID, res.Imported, res.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&cat, "category", "", "trailers, trucks or classic_cars")
	cmd.MarkFlagRequired("category")
	return cmd
}
