package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"gridmap/internal/httpapi"
	"gridmap/internal/loader"
	"gridmap/internal/mapview"
	"gridmap/internal/network"
)

var (
	renderURL     string
	renderVariant string
	renderHide    []string
	renderFocus   string
	renderTimeout time.Duration
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Load a running server's network data into a map view and summarise it",
	Long: `Fetches /network_data from a running gridmap server, builds the map view
exactly as the web page does, applies the requested checkbox toggles and
prints what each layer holds.`,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVar(&renderURL, "url", "http://localhost:8081", "base URL of the gridmap server")
	renderCmd.Flags().StringVar(&renderVariant, "variant", "", "map layout: partitioned or flat (default from config)")
	renderCmd.Flags().StringSliceVar(&renderHide, "hide", nil, "layer keys to switch off, e.g. vector/lines,110kV")
	renderCmd.Flags().StringVar(&renderFocus, "focus", "", "substation to click, showing the info panel")
	renderCmd.Flags().DurationVar(&renderTimeout, "timeout", 30*time.Second, "fetch timeout")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := httpapi.NewConsoleLogger(cfg.LogLevel)

	raw := renderVariant
	if raw == "" {
		raw = cfg.Variant
	}
	variant, err := network.ParseVariant(raw)
	if err != nil {
		return err
	}
	view, err := mapview.New(variant, logger, cfg.MapOptions())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), renderTimeout)
	defer cancel()
	summary := loader.New(logger, &http.Client{}, strings.TrimRight(renderURL, "/")).Load(ctx, view)
	if summary.Err != nil {
		return fmt.Errorf("loading network data: %w", summary.Err)
	}

	for _, key := range renderHide {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if !view.HideLayer(mapview.LayerKey(key)) {
			return fmt.Errorf("unknown layer %q (layers: %v)", key, view.Layers.Keys())
		}
	}
	if renderFocus != "" {
		m, ok := view.FindMarker(renderFocus)
		if !ok {
			return fmt.Errorf("substation %q not on the map", renderFocus)
		}
		view.Click(m)
	}

	printView(cmd.OutOrStdout(), view, summary)
	return nil
}

func printView(w io.Writer, view *mapview.MapView, summary mapview.LoadSummary) {
	fmt.Fprintf(w, "\n%s map\n", view.Variant)
	fmt.Fprintln(w, "----------------------------------------------------")
	fmt.Fprintf(w, "%-24s  %-7s  %8s  %8s\n", "Layer", "Visible", "Markers", "Lines")
	fmt.Fprintln(w, "----------------------------------------------------")
	for _, l := range view.Projection().Layers {
		visible := "no"
		if l.Visible {
			visible = "yes"
		}
		fmt.Fprintf(w, "%-24s  %-7s  %8s  %8s\n", l.Key, visible,
			humanize.Comma(int64(len(l.Markers))), humanize.Comma(int64(len(l.Lines))))
	}
	fmt.Fprintln(w, "----------------------------------------------------")
	fmt.Fprintf(w, "Total: %s markers, %s lines, %s dropped\n",
		humanize.Comma(int64(summary.Markers)), humanize.Comma(int64(summary.Lines)), humanize.Comma(int64(summary.Dropped)))
	if summary.Skipped > 0 {
		fmt.Fprintf(w, "Skipped records: %s\n", humanize.Comma(int64(summary.Skipped)))
	}
	if len(summary.Missing) > 0 {
		fmt.Fprintf(w, "Missing sections: %s\n", strings.Join(summary.Missing, ", "))
	}
	if s, ok := view.Panel.Current(); ok {
		fmt.Fprintf(w, "Info panel #%s: %s (%s)\n", view.Panel.ElementID(), s.Name, s.Type)
	}
}
