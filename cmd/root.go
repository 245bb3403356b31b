package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var projectPath string

var rootCmd = &cobra.Command{
	Use:   "facetriage",
	Short: "A CLI tool for triaging large photo sets by the people in them",
	Long: `Facetriage imports photo collections, detects faces through an
external embedding service, clusters them into per-person groups and
walks you through merging groups that likely show the same person.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&projectPath, "project", "project.json", "Path to the project file")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
