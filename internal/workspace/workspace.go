// Package workspace coordinates the project, the extraction service and the
// clustering engine. All domain mutation happens on a single run-loop
// goroutine; extraction callbacks arriving on the draining goroutine are
// handed off here instead of mutating state directly.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/phantomlab/facetriage/internal/clustering"
	"github.com/phantomlab/facetriage/internal/extraction"
	"github.com/phantomlab/facetriage/internal/faceindex"
	"github.com/phantomlab/facetriage/internal/model"
)

// NotificationKind tells the presentation layer what changed.
type NotificationKind int

const (
	ImageProcessed NotificationKind = iota
	ImageFailed
	GroupsChanged
)

// Notification is delivered to the listener on the run-loop goroutine;
// listeners must not call back into the workspace synchronously.
type Notification struct {
	Kind  NotificationKind
	Image *model.Image
	Err   error
}

// ErrClosed is returned for operations on a stopped workspace.
var ErrClosed = errors.New("workspace is closed")

type op struct {
	fn   func()
	done chan struct{}
}

// Workspace owns a Project and an extraction Service. It is constructed
// explicitly and passed by reference; there is no global instance.
type Workspace struct {
	project *model.Project
	service *extraction.Service
	index   *faceindex.Index
	session *clustering.MergeSession
	notify  func(Notification)

	clusterEps  float64
	mergeWithin float64

	dirty      bool
	batchTotal int
	batchDone  int

	ops     chan op
	stopped chan struct{}
}

// Options tunes the distance thresholds. Zero values pick the defaults.
type Options struct {
	ClusterEpsilon   float64 // default clustering.ClusterEpsilon
	MergeMaxDistance float64 // default clustering.MergeCandidateMaxDistance

	// IndexPath points to a persisted face index. When the on-disk index
	// matches the project's face count it is loaded instead of rebuilt;
	// SaveFaceIndex writes it back.
	IndexPath string
}

// New starts the workspace run loop with default thresholds. notify may be
// nil. The face index is built from any faces already present (e.g. a
// loaded project file).
func New(project *model.Project, service *extraction.Service, notify func(Notification)) *Workspace {
	return NewWithOptions(project, service, notify, Options{})
}

// NewWithOptions is New with explicit thresholds.
func NewWithOptions(project *model.Project, service *extraction.Service, notify func(Notification), opts Options) *Workspace {
	if opts.ClusterEpsilon <= 0 {
		opts.ClusterEpsilon = clustering.ClusterEpsilon
	}
	if opts.MergeMaxDistance <= 0 {
		opts.MergeMaxDistance = clustering.MergeCandidateMaxDistance
	}
	w := &Workspace{
		project:     project,
		service:     service,
		index:       faceindex.New(),
		notify:      notify,
		clusterEps:  opts.ClusterEpsilon,
		mergeWithin: opts.MergeMaxDistance,
		ops:         make(chan op, 64),
		stopped:     make(chan struct{}),
	}
	if faces := project.Faces(); len(faces) > 0 {
		if !w.loadIndex(opts.IndexPath, faces) {
			w.index.Build(faces)
		}
	}
	go w.run()
	return w
}

// loadIndex tries the persisted face index, rejecting it when the sidecar
// metadata disagrees with the project's face count.
func (w *Workspace) loadIndex(path string, faces []*model.Face) bool {
	if path == "" {
		return false
	}
	meta, err := faceindex.LoadMetadata(path)
	if err != nil || meta.FaceCount != len(faces) {
		return false
	}
	return w.index.Load(path, faces) == nil
}

// SaveFaceIndex persists the face index with its metadata sidecar.
func (w *Workspace) SaveFaceIndex(path string) error {
	var opErr error
	err := w.do(func() { opErr = w.index.Save(path) })
	if err != nil {
		return err
	}
	return opErr
}

func (w *Workspace) run() {
	defer close(w.stopped)
	for o := range w.ops {
		o.fn()
		if o.done != nil {
			close(o.done)
		}
	}
}

// do runs fn on the run-loop goroutine and waits for it.
func (w *Workspace) do(fn func()) error {
	o := op{fn: fn, done: make(chan struct{})}
	select {
	case w.ops <- o:
	case <-w.stopped:
		return ErrClosed
	}
	select {
	case <-o.done:
		return nil
	case <-w.stopped:
		return ErrClosed
	}
}

// enqueue runs fn on the run-loop goroutine without waiting. Used by the
// extraction callbacks to marshal results off the draining goroutine.
func (w *Workspace) enqueue(fn func()) {
	select {
	case w.ops <- op{fn: fn}:
	case <-w.stopped:
	}
}

// Stop shuts down gracefully: pending extractions complete and their results
// are applied, then the run loop drains and exits.
func (w *Workspace) Stop() {
	w.service.Stop()
	close(w.ops)
	<-w.stopped
}

// Terminate abandons pending extractions and stops immediately.
func (w *Workspace) Terminate() {
	w.service.Terminate()
	close(w.ops)
	<-w.stopped
}

// View runs fn on the run-loop goroutine with read access to the project.
// The project must not escape fn.
func (w *Workspace) View(fn func(p *model.Project)) error {
	return w.do(func() { fn(w.project) })
}

// Dirty reports whether the project changed since the last MarkSaved.
func (w *Workspace) Dirty() bool {
	var dirty bool
	_ = w.do(func() { dirty = w.dirty })
	return dirty
}

func (w *Workspace) MarkSaved() {
	_ = w.do(func() { w.dirty = false })
}

// Progress returns how many images of the current import batch completed.
// Both counters reset when the batch finishes.
func (w *Workspace) Progress() (done, total int) {
	_ = w.do(func() { done, total = w.batchDone, w.batchTotal })
	return done, total
}

func (w *Workspace) emit(n Notification) {
	if w.notify != nil {
		w.notify(n)
	}
}

// AddImage registers the image file with the project and submits its bytes
// for asynchronous extraction. Fire-and-forget: the outcome arrives as an
// ImageProcessed or ImageFailed notification.
func (w *Workspace) AddImage(path string, data []byte) (*model.Image, error) {
	img := model.NewImage(path)

	var addErr error
	err := w.do(func() {
		if addErr = w.project.AddImage(img); addErr != nil {
			return
		}
		w.dirty = true
		w.batchTotal++
	})
	if err != nil {
		return nil, err
	}
	if addErr != nil {
		return nil, addErr
	}

	err = w.service.Process(img, data, w.onExtracted, w.onExtractFailed)
	if err != nil {
		return nil, fmt.Errorf("submit image %s: %w", img.ID, err)
	}
	return img, nil
}

// AddImageFile reads path from disk and calls AddImage.
func (w *Workspace) AddImageFile(path string) (*model.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", path, err)
	}
	return w.AddImage(path, data)
}

// onExtracted runs on the extraction draining goroutine and hands the result
// to the run loop.
func (w *Workspace) onExtracted(img *model.Image, detections []extraction.Detection, _ time.Duration) {
	w.enqueue(func() {
		var added []*model.Face
		for _, d := range detections {
			f := model.NewFace(d.Box, d.Confidence, d.Embedding)
			if err := img.AddFace(f); err != nil {
				w.emit(Notification{Kind: ImageFailed, Image: img, Err: err})
				return
			}
			w.index.Add(f)
			added = append(added, f)
		}
		img.MarkProcessed()
		w.dirty = true
		w.batchDone++
		w.finishBatchIfDone()
		w.emit(Notification{Kind: ImageProcessed, Image: img})

		// new faces join the nearest existing group without a full
		// re-cluster; with no groups yet they stay ungrouped until the
		// user recalculates
		if len(w.project.Groups()) == 0 || len(added) == 0 {
			return
		}
		for _, f := range added {
			g, created, err := clustering.AssignToBestGroup(f, w.project.Groups())
			if err != nil {
				w.emit(Notification{Kind: ImageFailed, Image: img, Err: err})
				return
			}
			if created {
				if err := w.project.AddGroup(g); err != nil {
					w.emit(Notification{Kind: ImageFailed, Image: img, Err: err})
					return
				}
			}
		}
		w.emit(Notification{Kind: GroupsChanged})
	})
}

// onExtractFailed mirrors onExtracted for the failure path.
func (w *Workspace) onExtractFailed(img *model.Image, err error) {
	w.enqueue(func() {
		w.batchDone++
		w.finishBatchIfDone()
		w.emit(Notification{Kind: ImageFailed, Image: img, Err: err})
	})
}

func (w *Workspace) finishBatchIfDone() {
	if w.batchDone >= w.batchTotal {
		w.batchDone = 0
		w.batchTotal = 0
	}
}
