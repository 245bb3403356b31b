package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show a summary of the project",
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := requireProject(projectPath)
		if err != nil {
			return err
		}

		images := project.Images()
		processed := 0
		for _, img := range images {
			if img.Processed() {
				processed++
			}
		}

		fmt.Printf("Project: %s\n", projectPath)
		fmt.Printf("Images:  %d (%d processed)\n", len(images), processed)
		fmt.Printf("Faces:   %d\n", len(project.Faces()))
		printGroupSummary(project)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
