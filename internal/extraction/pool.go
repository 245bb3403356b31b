package extraction

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultIdleTimeout is how long a worker waits for a task before
	// exiting on its own, releasing idle capacity.
	DefaultIdleTimeout = 10 * time.Second
)

// Pool owns the extraction workers. Tasks enter an unbounded submission
// queue; a pump goroutine hands them to workers over an unbuffered channel.
// Workers are never pre-spawned: capacity grows one worker per submission
// while below the cap, and shrinks by idle timeout.
type Pool struct {
	maxWorkers  int
	idleTimeout time.Duration
	factory     Factory
	events      chan<- Event

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	queue   []task
	pending int // queued or handed to the pump, not yet picked up by a worker
	live    int

	wg       sync.WaitGroup
	dispatch chan task
	wake     chan struct{}
	pumpQuit chan struct{}
	quitOnce sync.Once
}

// NewPool creates a worker pool delivering completion events to events.
// maxWorkers must be positive; idleTimeout falls back to DefaultIdleTimeout
// when zero.
func NewPool(maxWorkers int, idleTimeout time.Duration, factory Factory, events chan<- Event) *Pool {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		maxWorkers:  maxWorkers,
		idleTimeout: idleTimeout,
		factory:     factory,
		events:      events,
		ctx:         ctx,
		cancel:      cancel,
		dispatch:    make(chan task),
		wake:        make(chan struct{}, 1),
		pumpQuit:    make(chan struct{}),
	}
	go p.pump()
	return p
}

// Submit enqueues a task. The queue is unbounded, so submission never
// blocks; the worker cap is the only throttle. A worker is added lazily
// while the pool is below the cap and work is waiting.
func (p *Pool) Submit(id uuid.UUID, data []byte) {
	p.mu.Lock()
	p.queue = append(p.queue, task{id: id, data: data})
	p.pending++
	p.addWorkerIfNeeded()
	p.mu.Unlock()
	p.wakePump()
}

// Live returns the number of running workers.
func (p *Pool) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

// Queued returns the number of tasks not yet picked up by a worker.
func (p *Pool) Queued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

// Stop shuts the pool down gracefully: one poison pill per live worker is
// enqueued behind any waiting tasks, then all workers are joined. Queued
// work submitted before Stop still completes.
func (p *Pool) Stop() {
	p.mu.Lock()
	for i := 0; i < p.live; i++ {
		p.queue = append(p.queue, task{poison: true})
	}
	p.mu.Unlock()
	p.wakePump()
	p.wg.Wait()
	p.quitOnce.Do(func() { close(p.pumpQuit) })
}

// Terminate kills the pool immediately: in-flight extractions are cancelled
// and queued tasks are abandoned without completion events. Only for use
// when the process itself is exiting and a graceful join could hang.
func (p *Pool) Terminate() {
	p.cancel()
	p.quitOnce.Do(func() { close(p.pumpQuit) })
	p.wg.Wait()
}

// addWorkerIfNeeded starts a worker while below the cap and at least one
// task is pending. Callers hold p.mu.
func (p *Pool) addWorkerIfNeeded() {
	if p.live >= p.maxWorkers || p.pending == 0 {
		return
	}
	p.live++
	p.wg.Add(1)
	go p.worker()
}

func (p *Pool) wakePump() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// pump moves tasks from the unbounded queue to the dispatch channel.
func (p *Pool) pump() {
	for {
		p.mu.Lock()
		for len(p.queue) == 0 {
			p.mu.Unlock()
			select {
			case <-p.wake:
			case <-p.pumpQuit:
				return
			}
			p.mu.Lock()
		}
		t := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		select {
		case p.dispatch <- t:
		case <-p.pumpQuit:
			return
		}
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	defer func() {
		p.mu.Lock()
		p.live--
		p.mu.Unlock()
	}()

	ext, err := p.factory()
	if err != nil {
		// the worker cannot start; queued tasks stay put until the next
		// submission spawns a replacement
		log.Printf("extraction worker failed to initialize: %v", err)
		return
	}

	for {
		select {
		case t := <-p.dispatch:
			if t.poison {
				return
			}
			p.runTask(ext, t)
		case <-p.ctx.Done():
			return
		case <-time.After(p.idleTimeout):
			// the timer can race a task the pump already popped but not yet
			// handed over; take it if it is waiting, and never exit while
			// work is still pending, or the last worker could strand it
			select {
			case t := <-p.dispatch:
				if t.poison {
					return
				}
				p.runTask(ext, t)
				continue
			default:
			}
			p.mu.Lock()
			pending := p.pending
			p.mu.Unlock()
			if pending == 0 {
				return
			}
		}
	}
}

// runTask executes one extraction and reports the outcome as an Event.
// A panic inside the extractor is converted into a failure event so the
// worker keeps running and the rest of the batch continues.
func (p *Pool) runTask(ext Extractor, t task) {
	p.mu.Lock()
	p.pending--
	p.mu.Unlock()

	start := time.Now()
	detections, err := func() (detections []Detection, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("extraction panicked: %v", r)
			}
		}()
		return ext.Extract(p.ctx, t.data)
	}()

	ev := Event{RequestID: t.id, Elapsed: time.Since(start)}
	if err != nil {
		ev.Err = err
	} else {
		ev.Detections = detections
	}

	select {
	case p.events <- ev:
	case <-p.ctx.Done():
	}
}
