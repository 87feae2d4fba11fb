package build

import (
	"context"
	"sync"

	"github.com/conneroisu/sitepack/internal/logging"
)

// Runner runs one pass.
type Runner interface {
	Run(ctx context.Context) (*Report, error)
}

// PassFunc observes the outcome of each pass.
type PassFunc func(report *Report, err error)

// Rebuilder serializes passes triggered by file changes.
//
// A trigger that arrives while a pass runs marks the rebuilder pending.
// When the pass ends exactly one trailing pass runs, however many triggers
// arrived in between. A running pass is never cancelled: cancelling the
// context passed to Trigger only stops further passes from starting.
type Rebuilder struct {
	runner Runner
	logger logging.Logger

	mu       sync.Mutex
	idle     *sync.Cond
	running  bool
	pending  bool
	handlers []PassFunc
}

// NewRebuilder creates a rebuilder around runner.
func NewRebuilder(runner Runner, logger logging.Logger) *Rebuilder {
	if logger == nil {
		logger = logging.Nop()
	}
	rb := &Rebuilder{
		runner: runner,
		logger: logger.WithComponent("rebuilder"),
	}
	rb.idle = sync.NewCond(&rb.mu)
	return rb
}

// OnPass registers fn to run after every pass.
func (rb *Rebuilder) OnPass(fn PassFunc) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.handlers = append(rb.handlers, fn)
}

// Trigger requests a pass. It does not block.
func (rb *Rebuilder) Trigger(ctx context.Context) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	if rb.running {
		rb.pending = true
		return
	}
	rb.running = true
	go rb.loop(ctx)
}

// Wait blocks until no pass is running or pending.
func (rb *Rebuilder) Wait() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	for rb.running {
		rb.idle.Wait()
	}
}

// Busy reports whether a pass is running.
func (rb *Rebuilder) Busy() bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.running
}

func (rb *Rebuilder) loop(ctx context.Context) {
	for {
		report, err := rb.runner.Run(context.WithoutCancel(ctx))
		if err != nil {
			rb.logger.Error(ctx, err, "pass failed; keeping previous output")
		}

		rb.mu.Lock()
		handlers := append([]PassFunc(nil), rb.handlers...)
		rb.mu.Unlock()
		for _, fn := range handlers {
			fn(report, err)
		}

		rb.mu.Lock()
		if rb.pending && ctx.Err() == nil {
			rb.pending = false
			rb.mu.Unlock()
			continue
		}
		rb.pending = false
		rb.running = false
		rb.idle.Broadcast()
		rb.mu.Unlock()
		return
	}
}
