package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/phantomlab/facetriage/internal/config"
	"github.com/phantomlab/facetriage/internal/extraction"
	"github.com/phantomlab/facetriage/internal/extractor"
	"github.com/phantomlab/facetriage/internal/model"
	"github.com/phantomlab/facetriage/internal/projectfile"
	"github.com/phantomlab/facetriage/internal/workspace"
)

// openProject reads the project file, or starts a fresh project when the
// file does not exist yet.
func openProject(path string) (*model.Project, error) {
	p, err := projectfile.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return model.NewProject(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load project %s: %w", path, err)
	}
	return p, nil
}

// requireProject reads the project file and fails when it does not exist.
func requireProject(path string) (*model.Project, error) {
	p, err := projectfile.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load project %s: %w", path, err)
	}
	return p, nil
}

// newWorkspace wires the extraction service and workspace from config.
func newWorkspace(cfg *config.Config, p *model.Project, notify func(workspace.Notification)) *workspace.Workspace {
	svc := extraction.NewService(
		extractor.Factory(cfg.Extractor.URL),
		extraction.Options{
			MaxWorkers:  cfg.Extraction.MaxWorkers,
			IdleTimeout: cfg.Extraction.IdleTimeout,
		},
	)
	return workspace.NewWithOptions(p, svc, notify, workspace.Options{
		ClusterEpsilon:   cfg.Thresholds.ClusterEpsilon,
		MergeMaxDistance: cfg.Thresholds.MergeMaxDistance,
		IndexPath:        cfg.Web.HNSWIndexPath,
	})
}

// printGroupSummary lists the current groups, largest first.
func printGroupSummary(p *model.Project) {
	groups := p.Groups()
	if len(groups) == 0 {
		fmt.Println("No groups yet - run 'facetriage recluster' to group faces")
		return
	}
	fmt.Printf("Groups: %d\n", len(groups))
	for _, g := range groups {
		name := g.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("  %-36s %-20s %d faces across %d images\n", g.ID, name, len(g.Faces()), g.ImageCount())
	}
}
