package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phantomlab/facetriage/internal/clustering"
	"github.com/phantomlab/facetriage/internal/config"
	"github.com/phantomlab/facetriage/internal/workspace"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Interactively merge groups that likely show the same person",
	Long: `Walk through pairs of groups whose centroids are close enough that
they probably show the same person, closest pair first.

For each pair:
  y - merge the two groups
  n - never propose this pair again
  s - skip for now (proposed again next run)
  q - quit and save`,
	RunE: runMerge,
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}

func describeGroup(g *clustering.Opportunity) (string, string) {
	a := g.A.Name
	if a == "" {
		a = g.A.ID.String()
	}
	b := g.B.Name
	if b == "" {
		b = g.B.ID.String()
	}
	return a, b
}

func runMerge(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	project, err := requireProject(projectPath)
	if err != nil {
		return err
	}

	ws := newWorkspace(cfg, project, nil)
	defer ws.Stop()

	reader := bufio.NewReader(os.Stdin)
	merged, rejected := 0, 0

wizard:
	for {
		candidates, err := ws.FindMergeCandidates()
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			fmt.Println("No more merge candidates")
			break
		}

		cur := candidates[0]
		a, b := describeGroup(&cur)
		fmt.Printf("\nMerge candidate (%d remaining):\n", len(candidates))
		fmt.Printf("  A: %s (%d faces)\n", a, cur.A.Size())
		fmt.Printf("  B: %s (%d faces)\n", b, cur.B.Size())
		fmt.Printf("  Distance: %.3f\n", cur.Distance)
		fmt.Print("Merge? [y/n/s/q]: ")

		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		var outcome workspace.Outcome
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y":
			outcome = workspace.OutcomeMerge
		case "n":
			outcome = workspace.OutcomeReject
		case "s":
			outcome = workspace.OutcomeSkip
		case "q":
			break wizard
		default:
			fmt.Println("Please answer y, n, s or q")
			continue
		}

		if err := ws.Decide(cur.A.ID, cur.B.ID, outcome); err != nil {
			return err
		}
		switch outcome {
		case workspace.OutcomeMerge:
			merged++
		case workspace.OutcomeReject:
			rejected++
		}
	}

	if err := ws.SaveProject(projectPath); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	fmt.Printf("\nMerged %d pairs, rejected %d. Project saved to %s\n", merged, rejected, projectPath)
	return nil
}
