package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"gridmap/internal/httpapi"
	"gridmap/internal/ingest"
	"gridmap/internal/network"
	"gridmap/internal/topology"
)

var (
	exportOut      string
	exportOperator string
)

var exportCmd = &cobra.Command{
	Use:   "export-substations",
	Short: "Write one JSON file per substation with its connected lines",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output directory (default is <data_dir>/Transpower/substations)")
	exportCmd.Flags().StringVar(&exportOperator, "operator", string(network.Transpower), "operator to export (transpower or vector)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := httpapi.NewConsoleLogger(cfg.LogLevel)

	op := network.Operator(exportOperator)
	switch op {
	case network.Transpower, network.Vector:
	default:
		return fmt.Errorf("unknown operator %q", exportOperator)
	}

	out := exportOut
	if out == "" {
		out = filepath.Join(cfg.DataDir, "Transpower", "substations")
	}

	ds, err := ingest.NewBuilder(logger).Build(cmd.Context(), cfg.ResolvedSources())
	if err != nil {
		return fmt.Errorf("building network: %w", err)
	}
	if ds.Partitioned.Section(op) == nil {
		return fmt.Errorf("no %s data in the configured sources", op)
	}

	n, err := topology.WriteSubstationFiles(out, topology.Build(ds.Partitioned).SubstationFiles(op))
	if err != nil {
		return err
	}
	logger.Info().Int("files", n).Str("dir", out).Str("operator", string(op)).Msg("created substation files")
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d substation files to %s\n", n, out)
	return nil
}
