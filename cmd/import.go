package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/phantomlab/facetriage/internal/config"
	"github.com/phantomlab/facetriage/internal/imaging"
	"github.com/phantomlab/facetriage/internal/model"
	"github.com/phantomlab/facetriage/internal/workspace"
)

var importCmd = &cobra.Command{
	Use:   "import [path...]",
	Short: "Import photos and detect their faces",
	Long: `Import photos from files or directories into the project and run
face detection on each of them. Directories are walked recursively;
non-image files are skipped.

Detection runs asynchronously against the embedding service configured
via EXTRACTOR_URL, scaling workers up to MAX_WORKERS.

Examples:
  # Import a directory of photos
  facetriage import ~/photos/holiday

  # Skip photos that look like near-duplicates of already imported ones
  facetriage import --skip-duplicates ~/photos/holiday`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().Bool("skip-duplicates", false, "Skip near-duplicate photos (perceptual hash)")
	importCmd.Flags().Bool("recluster", false, "Recalculate groups after the import finishes")
}

// imageExtensions are the file extensions considered for import.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

// collectImageFiles expands the given paths into a flat list of image file
// candidates.
func collectImageFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && imageExtensions[strings.ToLower(filepath.Ext(p))] {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", path, err)
		}
	}
	return files, nil
}

// notificationDrain consumes workspace notifications on its own goroutine
// from the moment it is started, so the workspace run loop never blocks on a
// full notification channel while photos are still being submitted.
type notificationDrain struct {
	processed int
	failed    int
	total     chan int
	done      chan struct{}
}

// startNotificationDrain begins draining. onEvent runs on the drain
// goroutine for every processed or failed image.
func startNotificationDrain(notifications <-chan workspace.Notification, onEvent func(workspace.Notification)) *notificationDrain {
	d := &notificationDrain{
		total: make(chan int, 1),
		done:  make(chan struct{}),
	}
	go func() {
		defer close(d.done)
		want := -1
		for want < 0 || d.processed+d.failed < want {
			select {
			case n := <-notifications:
				switch n.Kind {
				case workspace.ImageProcessed:
					d.processed++
				case workspace.ImageFailed:
					d.failed++
				default:
					continue
				}
				if onEvent != nil {
					onEvent(n)
				}
			case want = <-d.total:
			}
		}
	}()
	return d
}

// wait blocks until every one of the submitted photos has completed and
// returns the final counts.
func (d *notificationDrain) wait(submitted int) (processed, failed int) {
	d.total <- submitted
	<-d.done
	return d.processed, d.failed
}

func runImport(cmd *cobra.Command, args []string) error {
	skipDuplicates := mustGetBool(cmd, "skip-duplicates")
	recluster := mustGetBool(cmd, "recluster")

	cfg := config.Load()

	files, err := collectImageFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No image files found")
		return nil
	}
	fmt.Printf("Found %d candidate files\n", len(files))

	project, err := openProject(projectPath)
	if err != nil {
		return err
	}

	notifications := make(chan workspace.Notification, 256)
	ws := newWorkspace(cfg, project, func(n workspace.Notification) {
		notifications <- n
	})
	defer ws.Stop()

	var (
		submitted  int
		skipped    int
		seenHashes []uint64
	)

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Detecting faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	// Drain completions while still submitting: fast extractions can
	// otherwise fill the notification channel mid-loop and stall the
	// workspace, leaving the next AddImage waiting forever.
	drain := startNotificationDrain(notifications, func(n workspace.Notification) {
		bar.Add(1)
		if n.Kind == workspace.ImageFailed {
			fmt.Printf("\nFailed %s: %v\n", n.Image.Path, n.Err)
		}
	})

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			fmt.Printf("\nSkipping %s: %v\n", file, err)
			skipped++
			bar.Add(1)
			continue
		}
		if _, err := imaging.Probe(data); err != nil {
			fmt.Printf("\nSkipping %s: not a supported image\n", file)
			skipped++
			bar.Add(1)
			continue
		}
		if skipDuplicates {
			hash, err := imaging.DHash(data)
			if err == nil {
				duplicate := false
				for _, seen := range seenHashes {
					if imaging.Similar(hash, seen, 10) {
						duplicate = true
						break
					}
				}
				if duplicate {
					fmt.Printf("\nSkipping %s: near-duplicate of an imported photo\n", file)
					skipped++
					bar.Add(1)
					continue
				}
				seenHashes = append(seenHashes, hash)
			}
		}

		if _, err := ws.AddImage(file, data); err != nil {
			fmt.Printf("\nSkipping %s: %v\n", file, err)
			skipped++
			bar.Add(1)
			continue
		}
		submitted++
	}

	// Wait for every submitted photo to finish extraction.
	processed, failed := drain.wait(submitted)
	fmt.Println()

	if recluster {
		fmt.Println("Recalculating groups...")
		if err := ws.RecalculateGroups(); err != nil {
			return err
		}
	}

	if err := ws.SaveProject(projectPath); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}

	var faceCount, groupCount int
	ws.View(func(p *model.Project) {
		faceCount = len(p.Faces())
		groupCount = len(p.Groups())
	})
	fmt.Printf("\nCompleted: %d photos processed, %d failed, %d skipped\n", processed, failed, skipped)
	fmt.Printf("Faces in project: %d across %d groups\n", faceCount, groupCount)
	fmt.Printf("Project saved to %s\n", projectPath)

	return nil
}
