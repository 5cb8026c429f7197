package application

import (
	"context"
	"sync"
	"time"

	"github.com/dfryer1193/dailycomic/comic/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// DefaultRefreshInterval is used when no interval is configured.
const DefaultRefreshInterval = 3 * time.Hour

const refreshKey = "refresh"

// Refresher runs one refresh cycle. *RefreshPipeline is the production implementation.
type Refresher interface {
	Execute(ctx context.Context) *domain.FetchResult
}

// Listener is notified after every cycle with that cycle's result, nil when nothing changed.
type Listener func(result *domain.FetchResult)

// Coordinator schedules refresh cycles on a timer and on demand, and keeps the latest successful result.
type Coordinator struct {
	refresher Refresher
	group     singleflight.Group

	mu        sync.RWMutex
	interval  time.Duration
	latest    *domain.FetchResult
	listeners map[int]Listener
	nextID    int
	started   bool
	closed    bool
	reset     chan struct{}

	// Coordinator lifecycle context - cancelled when Close() is called
	ctx    context.Context
	cancel context.CancelFunc
	wg     *sync.WaitGroup
}

func NewCoordinator(refresher Refresher, interval time.Duration) *Coordinator {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		refresher: refresher,
		interval:  interval,
		listeners: make(map[int]Listener),
		reset:     make(chan struct{}, 1),
		ctx:       ctx,
		cancel:    cancel,
		wg:        &sync.WaitGroup{},
	}
}

// Start triggers a first refresh and then refreshes every interval until Close is called.
func (c *Coordinator) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.closed {
		return
	}
	c.started = true

	c.wg.Go(c.loop)
}

// Close stops the timer and waits for any running cycle to finish.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()

	return nil
}

func (c *Coordinator) loop() {
	c.Refresh(c.ctx)

	for {
		ticker := time.NewTicker(c.Interval())
		select {
		case <-c.ctx.Done():
			ticker.Stop()
			return
		case <-c.reset:
			ticker.Stop()
			continue
		case <-ticker.C:
			ticker.Stop()
		}

		c.Refresh(c.ctx)
	}
}

// Refresh runs a cycle, or joins the one already in flight, and returns its result.
// The cycle runs on the coordinator's lifecycle context, so a caller giving up via ctx
// does not abort a download other triggers are waiting on.
func (c *Coordinator) Refresh(ctx context.Context) *domain.FetchResult {
	ch := c.group.DoChan(refreshKey, func() (any, error) {
		var result *domain.FetchResult
		if !c.track(func() { result = c.runCycle() }) {
			return nil, nil
		}
		return result, nil
	})

	select {
	case res := <-ch:
		result, _ := res.Val.(*domain.FetchResult)
		return result
	case <-ctx.Done():
		return nil
	}
}

// RequestRefresh triggers a refresh in the background and returns immediately.
func (c *Coordinator) RequestRefresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.wg.Go(func() {
		c.Refresh(c.ctx)
	})
}

// track runs fn synchronously as work Close waits for. It reports false without running fn
// once Close has been called.
func (c *Coordinator) track(fn func()) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.wg.Add(1)
	c.mu.Unlock()

	defer c.wg.Done()
	fn()
	return true
}

func (c *Coordinator) runCycle() *domain.FetchResult {
	start := time.Now()
	result := c.refresher.Execute(c.ctx)

	c.mu.Lock()
	if result != nil {
		c.latest = result
	}
	listeners := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	log.Debug().Bool("updated", result != nil).Dur("took", time.Since(start)).Msg("Refresh cycle finished")

	for _, l := range listeners {
		notify(l, result)
	}

	return result
}

func notify(l Listener, result *domain.FetchResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Refresh listener panicked")
		}
	}()
	l(result)
}

// Latest returns the result of the last cycle that committed a new image, or nil.
func (c *Coordinator) Latest() *domain.FetchResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest
}

// Subscribe registers l to be called after every cycle. The returned func removes it.
func (c *Coordinator) Subscribe(l Listener) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = l

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Coordinator) Interval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.interval
}

// SetInterval changes the refresh interval. A running timer restarts with the new interval.
func (c *Coordinator) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}

	c.mu.Lock()
	changed := c.interval != d
	c.interval = d
	c.mu.Unlock()

	if !changed {
		return
	}

	log.Info().Dur("interval", d).Msg("Refresh interval updated")
	select {
	case c.reset <- struct{}{}:
	default:
	}
}
