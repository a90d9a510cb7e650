// Package orders keeps a customer's order history fresh and requests
// status transitions from the backend.
package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/niloyhakimai/medistore-client/internal/domain"
	"github.com/niloyhakimai/medistore-client/internal/notify"
	"github.com/niloyhakimai/medistore-client/pkg/logger"
	"github.com/niloyhakimai/medistore-client/pkg/metrics"
)

// ErrPollerRunning is returned when Start is called on a running poller
var ErrPollerRunning = errors.New("order poller already running")

// Lister fetches the current user's orders
type Lister interface {
	ListOrders(ctx context.Context) ([]domain.Order, error)
}

// Sink receives the latest order list, newest first
type Sink func([]domain.Order)

// State of the poller
type State int

const (
	Idle State = iota
	Fetching
)

func (s State) String() string {
	if s == Fetching {
		return "fetching"
	}
	return "idle"
}

// Poll triggers
const (
	TriggerMount   = "mount"
	TriggerTimer   = "timer"
	TriggerRefresh = "refresh"
	TriggerEvent   = "event"
)

// PollerConfig contains configuration for the order poller
type PollerConfig struct {
	// Interval between silent re-fetches
	Interval time.Duration
}

// DefaultPollerConfig returns default configuration
func DefaultPollerConfig() *PollerConfig {
	return &PollerConfig{Interval: 5 * time.Second}
}

// Poller re-fetches the order list on a fixed interval while started.
// Results that resolve after Stop are discarded.
type Poller struct {
	lister   Lister
	config   *PollerConfig
	notifier notify.Notifier
	log      *logger.Logger
	metrics  *metrics.Metrics

	mu       sync.Mutex
	deliver  sync.Mutex // held while the sink runs
	running  bool
	gen      uint64
	sink     Sink
	stopCh   chan struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	inFlight int

	// Stats
	totalCycles   int64
	totalFailures int64
	lastPollTime  time.Time
	lastCount     int
}

// NewPoller creates a new order poller
func NewPoller(lister Lister, n notify.Notifier, config *PollerConfig) *Poller {
	if config == nil {
		config = DefaultPollerConfig()
	}
	return &Poller{
		lister:   lister,
		config:   config,
		notifier: n,
		log:      logger.Get(),
		metrics:  metrics.Default(),
	}
}

// Start fetches immediately and then every interval until Stop or ctx is done
func (p *Poller) Start(ctx context.Context, sink Sink) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return ErrPollerRunning
	}
	p.running = true
	p.gen++
	gen := p.gen
	p.sink = sink
	p.stopCh = make(chan struct{})
	stopCh := p.stopCh
	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wg.Add(1)
	p.mu.Unlock()

	p.log.Debug("Starting order poller", "interval", p.config.Interval)
	go p.loop(loopCtx, gen, stopCh)
	return nil
}

// Stop cancels the timer and any in-flight fetch and waits for the loop.
// No sink call happens after Stop returns. Safe to call on a stopped
// poller, but not from inside the sink.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.gen++
	p.sink = nil
	close(p.stopCh)
	p.cancel()
	p.mu.Unlock()

	// wait out a sink call already in progress
	p.deliver.Lock()
	p.deliver.Unlock()
	p.wg.Wait()
	p.log.Debug("Order poller stopped")
}

// Refresh fetches out of band and acknowledges the result. While started,
// the list also goes to the sink.
func (p *Poller) Refresh(ctx context.Context) ([]domain.Order, error) {
	p.mu.Lock()
	gen := p.gen
	p.mu.Unlock()

	orders, err := p.fetch(ctx, gen, TriggerRefresh)
	if err != nil {
		p.notifier.Error("Failed to refresh orders")
		return nil, err
	}
	p.notifier.Success("Orders updated")
	return orders, nil
}

// State reports whether a fetch is in flight
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inFlight > 0 {
		return Fetching
	}
	return Idle
}

// Running reports whether the poller is started
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Poller) loop(ctx context.Context, gen uint64, stopCh chan struct{}) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	// Run immediately on start
	_, _ = p.fetch(ctx, gen, TriggerMount)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			_, _ = p.fetch(ctx, gen, TriggerTimer)
		}
	}
}

// fetch lists orders and hands them to the sink if gen is still current
func (p *Poller) fetch(ctx context.Context, gen uint64, trigger string) ([]domain.Order, error) {
	p.mu.Lock()
	p.inFlight++
	p.mu.Unlock()

	orders, err := p.lister.ListOrders(ctx)

	p.mu.Lock()
	p.inFlight--
	p.totalCycles++
	p.lastPollTime = time.Now()
	if err != nil {
		p.totalFailures++
		p.mu.Unlock()
		p.metrics.PollCycles.WithLabelValues(trigger, "error").Inc()
		if ctx.Err() == nil {
			p.log.Warn(fmt.Sprintf("Failed to fetch orders (%s): %v", trigger, err))
		}
		return nil, err
	}
	SortNewestFirst(orders)
	p.lastCount = len(orders)
	p.mu.Unlock()

	p.deliver.Lock()
	defer p.deliver.Unlock()

	p.mu.Lock()
	sink := p.sink
	current := p.running && p.gen == gen
	p.mu.Unlock()

	if !current || sink == nil {
		p.metrics.PollCycles.WithLabelValues(trigger, "discarded").Inc()
		return orders, nil
	}
	p.metrics.PollCycles.WithLabelValues(trigger, "ok").Inc()
	sink(orders)
	return orders, nil
}

// SortNewestFirst orders by CreatedAt descending
func SortNewestFirst(orders []domain.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

// PollerStats contains poller statistics
type PollerStats struct {
	IsRunning     bool
	TotalCycles   int64
	TotalFailures int64
	LastPollTime  time.Time
	LastCount     int
}

// GetStats returns poller statistics
func (p *Poller) GetStats() *PollerStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return &PollerStats{
		IsRunning:     p.running,
		TotalCycles:   p.totalCycles,
		TotalFailures: p.totalFailures,
		LastPollTime:  p.lastPollTime,
		LastCount:     p.lastCount,
	}
}
