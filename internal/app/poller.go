package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/five82/carrel/internal/seat"
	"github.com/five82/carrel/internal/state"
)

const defaultPollInterval = 3 * time.Second

// StateFetcher is the part of session.Client the poller needs.
type StateFetcher interface {
	FetchState(ctx context.Context) ([]byte, error)
	Username() string
}

// Poller keeps a state.Store in sync with the server. Ticks are sequential:
// the next one is armed only after the previous refresh completes, and
// RefreshNow shares the same lock, so at most one state request is in flight.
type Poller struct {
	fetcher StateFetcher
	store   *state.Store
	logger  *slog.Logger

	refreshMu sync.Mutex // held for the whole fetch+reconcile+replace

	mu      sync.Mutex
	gen     uint64 // bumped on every Start and Stop
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewPoller builds a stopped Poller.
func NewPoller(fetcher StateFetcher, store *state.Store, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Poller{fetcher: fetcher, store: store, logger: logger}
}

// Running reports whether the loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Start launches the polling loop: one refresh immediately, then one every
// interval measured from the end of the previous refresh. Starting a running
// poller is a no-op. The loop exits when Stop is called or ctx is done.
func (p *Poller) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.gen++
	gen := p.gen
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.running = true
	p.cancel = cancel
	p.done = done

	go func() {
		defer close(done)
		defer p.finish(gen)

		timer := time.NewTimer(0)
		defer timer.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-timer.C:
			}
			// The request runs under the caller's ctx, not loopCtx, so Stop
			// lets it finish and the generation check drops the result.
			p.refresh(ctx, gen)
			timer.Reset(interval)
		}
	}()
	p.logger.Info("polling started", "interval", interval)
}

// Stop cancels the pending tick. A request that is already in flight runs to
// completion but its result is discarded. Stop does not wait for the loop
// goroutine; use Wait for that.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.gen++
	p.running = false
	p.cancel()
	p.logger.Info("polling stopped")
}

// Wait blocks until the most recently started loop goroutine has exited.
func (p *Poller) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// RefreshNow fetches and applies state immediately, outside the schedule.
// It works whether or not the loop is running.
func (p *Poller) RefreshNow(ctx context.Context) error {
	return p.refresh(ctx, 0)
}

func (p *Poller) finish(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen == gen {
		p.running = false
	}
}

// currentLocked reports whether a result produced under gen may still be
// applied. gen 0 marks an out-of-band refresh, which always applies.
func (p *Poller) currentLocked(gen uint64) bool {
	return gen == 0 || (p.running && p.gen == gen)
}

func (p *Poller) refresh(ctx context.Context, gen uint64) error {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	// A tick that queued behind RefreshNow may have been stopped meanwhile.
	p.mu.Lock()
	stale := !p.currentLocked(gen)
	p.mu.Unlock()
	if stale {
		return nil
	}

	body, err := p.fetcher.FetchState(ctx)
	var res seat.Result
	if err == nil {
		res, err = seat.Reconcile(body, p.fetcher.Username())
	}

	// Applying under mu means a Stop that has returned can never be
	// followed by a write from its loop.
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.currentLocked(gen) || (gen != 0 && ctx.Err() != nil) {
		p.logger.Debug("discarding refresh from stopped loop")
		return nil
	}
	if err != nil {
		p.store.RecordFailure(err)
		p.logger.Warn("state poll failed", "error", err)
		return err
	}
	p.store.Replace(res)
	p.logger.Debug("state refreshed", "seats", len(res.Seats), "mine_active", res.HasMineActive)
	return nil
}
