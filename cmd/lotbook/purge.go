package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newPurgeCmd(g *globalFlags) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "purge-archive",
		Short: "Delete archived photo folders past the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(g)
			if err != nil {
				return err
			}
			defer a.Close()

			retention := a.cfg.Media.ArchiveRetention
			if olderThan > 0 {
				retention = olderThan
			}
			n, err := a.media.PurgeArchive(cmd.Context(), retention)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d archived folder(s) older than %v\n", n, retention)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "retention override, e.g. 336h")
	return cmd
}
