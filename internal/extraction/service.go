package extraction

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phantomlab/facetriage/internal/model"
)

// ErrDuplicateSubmission means the image already has a pending extraction
// request. This is a caller bug, not a recoverable condition.
var ErrDuplicateSubmission = errors.New("image already has a pending extraction request")

// ErrServiceStopped means the service no longer accepts submissions.
var ErrServiceStopped = errors.New("extraction service is stopped")

// SuccessFunc receives the detections for a successfully processed image.
// Invoked on the draining goroutine; implementations hand domain mutation
// off to their own owner goroutine.
type SuccessFunc func(img *model.Image, detections []Detection, elapsed time.Duration)

// FailureFunc receives the error for a failed extraction.
type FailureFunc func(img *model.Image, err error)

// ViolationFunc handles protocol violations such as a completion event for
// an unknown request id. These are programming-invariant breaches; the
// default handler panics.
type ViolationFunc func(err error)

// Options configures a Service. Zero values pick the defaults.
type Options struct {
	MaxWorkers  int           // default: logical CPU count
	IdleTimeout time.Duration // default: DefaultIdleTimeout
	OnViolation ViolationFunc // default: panic
}

type pendingRequest struct {
	img       *model.Image
	onSuccess SuccessFunc
	onFailure FailureFunc
}

// Service coordinates asynchronous extraction. Process is non-blocking;
// results arrive out of submission order via the callbacks, each request id
// completing at most once. The correlation table is inserted into by the
// submitting goroutine before the task is queued and removed from by the
// draining goroutine after it dequeues the event; the two never interleave
// on the same id.
type Service struct {
	pool        *Pool
	events      chan Event
	onViolation ViolationFunc

	mu       sync.Mutex
	requests map[uuid.UUID]pendingRequest
	byImage  map[uuid.UUID]uuid.UUID
	stopped  bool

	quit      chan struct{}
	drainDone chan struct{}
}

// NewService constructs a running service. There is no hidden global
// instance; callers own the returned value and must Stop or Terminate it.
func NewService(factory Factory, opts Options) *Service {
	maxWorkers := opts.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	onViolation := opts.OnViolation
	if onViolation == nil {
		onViolation = func(err error) { panic(err) }
	}

	s := &Service{
		events:      make(chan Event, 16),
		onViolation: onViolation,
		requests:    make(map[uuid.UUID]pendingRequest),
		byImage:     make(map[uuid.UUID]uuid.UUID),
		quit:        make(chan struct{}),
		drainDone:   make(chan struct{}),
	}
	s.pool = NewPool(maxWorkers, opts.IdleTimeout, factory, s.events)
	go s.drain()
	return s
}

// Process submits an image for extraction. Returns immediately; the outcome
// arrives later through exactly one of the callbacks. An image that is
// already processed short-circuits: onSuccess fires synchronously with no
// detections and nothing is dispatched. A second submission while the first
// is still pending returns ErrDuplicateSubmission.
func (s *Service) Process(img *model.Image, data []byte, onSuccess SuccessFunc, onFailure FailureFunc) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrServiceStopped
	}
	if img.Processed() {
		s.mu.Unlock()
		onSuccess(img, nil, 0)
		return nil
	}
	if reqID, ok := s.byImage[img.ID]; ok {
		s.mu.Unlock()
		return fmt.Errorf("image %s (request %s): %w", img.ID, reqID, ErrDuplicateSubmission)
	}

	reqID := uuid.New()
	s.requests[reqID] = pendingRequest{img: img, onSuccess: onSuccess, onFailure: onFailure}
	s.byImage[img.ID] = reqID
	s.mu.Unlock()

	s.pool.Submit(reqID, data)
	return nil
}

// Pending returns the number of requests awaiting completion.
func (s *Service) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// LiveWorkers returns the current worker count of the underlying pool.
func (s *Service) LiveWorkers() int {
	return s.pool.Live()
}

// QueuedTasks returns the number of tasks waiting for a worker.
func (s *Service) QueuedTasks() int {
	return s.pool.Queued()
}

// Stop shuts down gracefully: submissions already queued complete and their
// callbacks fire, workers drain out on poison pills, then the event drainer
// is joined.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.pool.Stop()
	close(s.events)
	<-s.drainDone
}

// Terminate kills workers immediately without draining. In-flight requests
// are lost and their callbacks never fire. Only for process exit.
func (s *Service) Terminate() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.pool.Terminate()
	close(s.quit)
	<-s.drainDone
}

// drain continuously consumes completion events, resolves each request id
// and invokes the matching callback. An event for an unknown id is reported
// to the violation handler, never silently dropped.
func (s *Service) drain() {
	defer close(s.drainDone)
	for {
		select {
		case ev, ok := <-s.events:
			if !ok {
				return
			}
			s.handleEvent(ev)
		case <-s.quit:
			return
		}
	}
}

func (s *Service) handleEvent(ev Event) {
	s.mu.Lock()
	req, ok := s.requests[ev.RequestID]
	if !ok {
		s.mu.Unlock()
		s.onViolation(fmt.Errorf("completion event for unknown request id %s", ev.RequestID))
		return
	}
	delete(s.requests, ev.RequestID)
	delete(s.byImage, req.img.ID)
	s.mu.Unlock()

	if ev.Err != nil {
		req.onFailure(req.img, ev.Err)
		return
	}
	req.onSuccess(req.img, ev.Detections, ev.Elapsed)
}
