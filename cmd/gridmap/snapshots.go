package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"gridmap/internal/db"
)

var snapshotsLimit int

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List stored network snapshots",
	RunE:  runSnapshots,
}

func init() {
	snapshotsCmd.Flags().IntVar(&snapshotsLimit, "limit", 20, "number of snapshots to show")
	rootCmd.AddCommand(snapshotsCmd)
}

func runSnapshots(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pool, err := db.Open(cmd.Context(), cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer pool.Close()

	rows, err := pool.Queries().ListSnapshots(cmd.Context(), int32(snapshotsLimit))
	if err != nil {
		return fmt.Errorf("listing snapshots: %w", err)
	}

	w := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(w, "No snapshots stored")
		return nil
	}
	fmt.Fprintln(w, "--------------------------------------------------------------------------------------")
	fmt.Fprintf(w, "%-36s  %-16s  %-10s  %11s  %7s  %7s\n", "ID", "Created", "Reason", "Substations", "Lines", "Dropped")
	fmt.Fprintln(w, "--------------------------------------------------------------------------------------")
	for _, r := range rows {
		fmt.Fprintf(w, "%-36s  %-16s  %-10s  %11s  %7s  %7s\n", r.ID, humanize.Time(r.CreatedAt), r.Reason,
			humanize.Comma(int64(r.Substations)), humanize.Comma(int64(r.Lines)), humanize.Comma(int64(r.Dropped)))
	}
	return nil
}
