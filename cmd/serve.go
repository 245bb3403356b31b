package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/phantomlab/facetriage/internal/config"
	"github.com/phantomlab/facetriage/internal/projectfile"
	"github.com/phantomlab/facetriage/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web API server",
	Long: `Start the facetriage web API around the project file. The API
exposes image upload, group management and the merge wizard over JSON,
for use by a frontend or scripts. The project file is saved on shutdown
when it has unsaved changes.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	project, err := openProject(projectPath)
	if err != nil {
		return err
	}
	fmt.Printf("Project %s: %d images, %d faces, %d groups\n",
		projectPath, len(project.Images()), len(project.Faces()), len(project.Groups()))

	ws := newWorkspace(cfg, project, nil)
	server := web.NewServer(cfg, ws)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting facetriage API on http://%s\n", cfg.Web.Addr)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		ws.Terminate()
		return fmt.Errorf("starting server: %w", err)
	}

	if cfg.Web.HNSWIndexPath != "" {
		if err := ws.SaveFaceIndex(cfg.Web.HNSWIndexPath); err != nil {
			fmt.Printf("Warning: failed to save face index: %v\n", err)
		} else {
			fmt.Printf("Face index saved to %s\n", cfg.Web.HNSWIndexPath)
		}
	}

	// Let in-flight extractions land, then persist the final state. The
	// run loop is gone after Stop, so write the file directly.
	ws.Stop()
	if err := projectfile.WriteFile(projectPath, project); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	fmt.Printf("Project saved to %s\n", projectPath)
	return nil
}
