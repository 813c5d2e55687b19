package main

import (
	"fmt"
	"time"

	"driftwatch/internal/baseline"
	"driftwatch/internal/config"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var flagReportDate string

// reportCmd renders a stored intelligence report
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render a stored intelligence report",
	Long: `Renders the most recent stored report to the terminal. Use --date to
render the report from a specific run instead.`,
	RunE: showReport,
}

func init() {
	reportCmd.Flags().StringVar(&flagReportDate, "date", "", "render the report for this run date (YYYY-MM-DD)")
}

func showReport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	store := baseline.NewStore(cfg.Store.Root)

	snap, err := pickSnapshot(store, flagReportDate)
	if err != nil {
		return err
	}

	content, err := store.Read(*snap)
	if err != nil {
		return err
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		// Fall back to raw markdown if the terminal renderer cannot start.
		fmt.Println(content)
		return nil
	}

	out, err := renderer.Render(content)
	if err != nil {
		fmt.Println(content)
		return nil
	}
	fmt.Print(out)
	return nil
}

// pickSnapshot selects the requested report: the newest one by default, or
// the exact run date when --date is given.
func pickSnapshot(store *baseline.Store, date string) (*baseline.Snapshot, error) {
	snaps, err := store.List("")
	if err != nil {
		return nil, fmt.Errorf("failed to list reports in %s: %w", store.Root(), err)
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("no reports found in %s; run `driftwatch run` first", store.Root())
	}

	if date == "" {
		return &snaps[len(snaps)-1], nil
	}

	want, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", date, err)
	}
	for i := range snaps {
		if snaps[i].Date.Equal(want) {
			return &snaps[i], nil
		}
	}
	return nil, fmt.Errorf("no report for %s in %s", date, store.Root())
}
