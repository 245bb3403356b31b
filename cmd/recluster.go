package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phantomlab/facetriage/internal/config"
	"github.com/phantomlab/facetriage/internal/model"
)

var reclusterCmd = &cobra.Command{
	Use:   "recluster",
	Short: "Recalculate face groups from scratch",
	Long: `Discard the current grouping and re-cluster every face in the
project. Manual renames, merge rejections and main-face picks on the old
groups are lost, which is why this never happens implicitly.`,
	RunE: runRecluster,
}

func init() {
	rootCmd.AddCommand(reclusterCmd)
}

func runRecluster(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	project, err := requireProject(projectPath)
	if err != nil {
		return err
	}

	ws := newWorkspace(cfg, project, nil)
	defer ws.Stop()

	if err := ws.RecalculateGroups(); err != nil {
		return err
	}
	if err := ws.SaveProject(projectPath); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}

	return ws.View(func(p *model.Project) {
		printGroupSummary(p)
	})
}
