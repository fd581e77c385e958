package app

import (
	"context"
	"log"
	"os"
	"sync"
	"sync/atomic"

	"github.com/sonoviz/sonoviz/internal/analyzer"
	"github.com/sonoviz/sonoviz/internal/audio"
)

// Config configures the processing task.
type Config struct {
	Analyzer analyzer.Config
	Log      *log.Logger
}

// App owns the processing task: it pulls frames off a source channel, runs
// the analyzer, and publishes immutable Features snapshots. It is the only
// writer of analyzer state; consumers see results through the latest-value
// cell or a subscription channel, never through a shared lock.
type App struct {
	analyzer *analyzer.Analyzer
	log      *log.Logger

	latest atomic.Pointer[analyzer.Features]

	mu   sync.Mutex
	subs map[chan analyzer.Features]struct{}

	processed atomic.Uint64
	skipped   atomic.Uint64
}

// New validates the analyzer configuration and constructs the app.
func New(cfg Config) (*App, error) {
	an, err := analyzer.New(cfg.Analyzer)
	if err != nil {
		return nil, err
	}
	logger := cfg.Log
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &App{
		analyzer: an,
		log:      logger,
		subs:     make(map[chan analyzer.Features]struct{}),
	}, nil
}

// Run processes frames until the source channel closes or ctx is
// cancelled. The in-flight frame always completes; cancellation never
// preempts a transform.
func (a *App) Run(ctx context.Context, frames <-chan audio.Frame) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			features, err := a.analyzer.Process(frame)
			if err != nil {
				a.skipped.Add(1)
				a.log.Printf("analysis: frame skipped: %v", err)
				continue
			}
			a.publish(features)
		}
	}
}

func (a *App) publish(f analyzer.Features) {
	a.processed.Add(1)
	a.latest.Store(&f)

	a.mu.Lock()
	for ch := range a.subs {
		select {
		case ch <- f:
		default:
			// Subscriber is behind; it only ever needs the freshest frame.
		}
	}
	a.mu.Unlock()
}

// Latest returns the most recent feature record, or the zero value before
// the first frame completes.
func (a *App) Latest() analyzer.Features {
	if p := a.latest.Load(); p != nil {
		return *p
	}
	return analyzer.Features{}
}

// Subscribe registers a feature channel of the given depth. Sends are
// non-blocking: a full channel drops the new frame rather than stalling the
// processing task. The returned cancel func unregisters the channel.
func (a *App) Subscribe(depth int) (<-chan analyzer.Features, func()) {
	if depth <= 0 {
		depth = 1
	}
	ch := make(chan analyzer.Features, depth)

	a.mu.Lock()
	a.subs[ch] = struct{}{}
	a.mu.Unlock()

	cancel := func() {
		a.mu.Lock()
		delete(a.subs, ch)
		a.mu.Unlock()
	}
	return ch, cancel
}

// Processed reports frames analyzed successfully.
func (a *App) Processed() uint64 { return a.processed.Load() }

// Skipped reports frames dropped because the transform failed.
func (a *App) Skipped() uint64 { return a.skipped.Load() }
