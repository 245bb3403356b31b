// Package extraction runs face-feature extraction asynchronously: callers
// fire-and-forget images into a Service, a lazily-grown pool of workers runs
// the extractor, and results come back through per-request callbacks invoked
// on a dedicated draining goroutine.
package extraction

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/phantomlab/facetriage/internal/model"
)

// Detection is one face found in an image: bounding box, detection
// confidence and the embedding vector used as the identity signature.
type Detection struct {
	Box        model.Rect
	Confidence float64
	Embedding  []float32
}

// Extractor wraps the face-detection/embedding capability. Implementations
// are stateful and expensive to initialize, and are not safe to share across
// concurrent callers; every worker owns its own instance.
type Extractor interface {
	Extract(ctx context.Context, image []byte) ([]Detection, error)
}

// Factory creates one Extractor per worker.
type Factory func() (Extractor, error)

// task travels from the submission queue to a worker. A poison task carries
// no payload and tells the receiving worker to exit.
type task struct {
	id     uuid.UUID
	data   []byte
	poison bool
}

// Event is the completion message for one request: either the detections or
// an error, never both. Correlation-keyed by request id.
type Event struct {
	RequestID  uuid.UUID
	Detections []Detection
	Elapsed    time.Duration
	Err        error
}
