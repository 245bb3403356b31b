package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phantomlab/facetriage/internal/archive"
	"github.com/phantomlab/facetriage/internal/config"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Push finished projects to the PostgreSQL archive",
	Long: `The archive keeps faces and groups of finished projects in
PostgreSQL with pgvector, so they stay searchable after the working
project file is retired. Requires DATABASE_URL.`,
}

var archivePushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push the project's faces and groups to the archive",
	RunE:  runArchivePush,
}

var archiveStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show archive totals",
	RunE:  runArchiveStats,
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.AddCommand(archivePushCmd)
	archiveCmd.AddCommand(archiveStatsCmd)

	archivePushCmd.Flags().String("name", "", "Archive name for the project (defaults to the project file name)")
}

func openArchive(cfg *config.Config) (*archive.Pool, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	fmt.Println("Connecting to PostgreSQL...")
	pool, err := archive.Open(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return pool, nil
}

func runArchivePush(cmd *cobra.Command, args []string) error {
	name := mustGetString(cmd, "name")
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(projectPath), filepath.Ext(projectPath))
	}

	cfg := config.Load()

	project, err := requireProject(projectPath)
	if err != nil {
		return err
	}

	pool, err := openArchive(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx := context.Background()
	repo := archive.NewRepository(pool)

	fmt.Printf("Pushing project '%s' (%d faces, %d groups)...\n",
		name, len(project.Faces()), len(project.Groups()))
	if err := repo.PushProject(ctx, name, project); err != nil {
		return fmt.Errorf("failed to push project: %w", err)
	}

	faceCount, _ := repo.CountFaces(ctx)
	groupCount, _ := repo.CountGroups(ctx)
	fmt.Printf("Done. Archive now holds %d faces in %d groups\n", faceCount, groupCount)
	return nil
}

func runArchiveStats(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	pool, err := openArchive(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx := context.Background()
	repo := archive.NewRepository(pool)

	faceCount, err := repo.CountFaces(ctx)
	if err != nil {
		return err
	}
	groupCount, err := repo.CountGroups(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Archived faces:  %d\n", faceCount)
	fmt.Printf("Archived groups: %d\n", groupCount)
	return nil
}
