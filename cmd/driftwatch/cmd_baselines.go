package main

import (
	"fmt"

	"driftwatch/internal/baseline"
	"driftwatch/internal/config"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var flagBaselinesEntity string

// baselinesCmd lists stored snapshots
var baselinesCmd = &cobra.Command{
	Use:   "baselines",
	Short: "List stored baseline snapshots",
	Long: `Lists every dated snapshot in the store, newest last. These are the
candidates for the "nearest prior baseline" lookup on the next run.`,
	RunE: listBaselines,
}

func init() {
	baselinesCmd.Flags().StringVar(&flagBaselinesEntity, "entity", "", "list an entity's own snapshot namespace instead of the shared store")
}

var (
	baselineDateStyle = lipgloss.NewStyle().Bold(true)
	baselinePathStyle = lipgloss.NewStyle().Faint(true)
)

func listBaselines(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	store := baseline.NewStore(cfg.Store.Root)

	snaps, err := store.List(flagBaselinesEntity)
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}
	if len(snaps) == 0 {
		fmt.Printf("No snapshots in %s\n", store.Root())
		return nil
	}

	for _, snap := range snaps {
		fmt.Printf("%s  %s\n",
			baselineDateStyle.Render(snap.Date.Format("2006-01-02")),
			baselinePathStyle.Render(snap.Path))
	}
	fmt.Printf("\n%d snapshot(s)\n", len(snaps))
	return nil
}
