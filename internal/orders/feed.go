package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/niloyhakimai/medistore-client/internal/domain"
	"github.com/niloyhakimai/medistore-client/internal/notify"
	"github.com/niloyhakimai/medistore-client/pkg/kafka"
	"github.com/niloyhakimai/medistore-client/pkg/logger"
	"github.com/niloyhakimai/medistore-client/pkg/metrics"
)

// Feed keeps a view supplied with the latest order list until ctx is done.
// Views depend on Feed so polling can be swapped for push delivery.
type Feed interface {
	Run(ctx context.Context, sink Sink) error
	Refresh(ctx context.Context) ([]domain.Order, error)
}

// PollingFeed is a Feed backed by a Poller
type PollingFeed struct {
	poller *Poller
}

// NewPollingFeed creates a Feed from p
func NewPollingFeed(p *Poller) *PollingFeed {
	return &PollingFeed{poller: p}
}

// Run starts the poller and stops it when ctx is done
func (f *PollingFeed) Run(ctx context.Context, sink Sink) error {
	if err := f.poller.Start(ctx, sink); err != nil {
		return err
	}
	<-ctx.Done()
	f.poller.Stop()
	return nil
}

// Refresh fetches out of band
func (f *PollingFeed) Refresh(ctx context.Context) ([]domain.Order, error) {
	return f.poller.Refresh(ctx)
}

// EventSource yields batches of order status records
type EventSource interface {
	Poll(ctx context.Context) ([]*kafka.Record, error)
	CommitRecords(ctx context.Context, records []*kafka.Record) error
}

// KafkaFeed re-fetches the order list whenever a status event for the
// current user arrives
type KafkaFeed struct {
	lister   Lister
	events   EventSource
	userID   string
	notifier notify.Notifier
	log      *logger.Logger
	metrics  *metrics.Metrics

	// errorBackoff is the pause after a failed poll that returned nothing
	errorBackoff time.Duration

	mu   sync.Mutex
	sink Sink
}

// NewKafkaFeed creates a push feed. An empty userID reacts to every event.
func NewKafkaFeed(lister Lister, events EventSource, userID string, n notify.Notifier) *KafkaFeed {
	return &KafkaFeed{
		lister:   lister,
		events:   events,
		userID:   userID,
		notifier: n,
		log:      logger.Get(),
		metrics:  metrics.Default(),

		errorBackoff: time.Second,
	}
}

// Run fetches once, then once per batch containing a relevant event
func (f *KafkaFeed) Run(ctx context.Context, sink Sink) error {
	f.mu.Lock()
	f.sink = sink
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.sink = nil
		f.mu.Unlock()
	}()

	_, _ = f.fetch(ctx, TriggerMount)

	for {
		records, err := f.events.Poll(ctx)
		if ctx.Err() != nil || errors.Is(err, kafka.ErrClientClosed) {
			return nil
		}
		if err != nil {
			f.log.Warn("Failed to poll order events", "error", err)
		}
		if len(records) == 0 {
			if err != nil {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(f.errorBackoff):
				}
			}
			continue
		}

		if f.relevant(records) {
			_, _ = f.fetch(ctx, TriggerEvent)
		}
		if err := f.events.CommitRecords(ctx, records); err != nil {
			f.log.Warn("Failed to commit order events", "error", err)
		}
	}
}

// Refresh fetches out of band and acknowledges the result
func (f *KafkaFeed) Refresh(ctx context.Context) ([]domain.Order, error) {
	orders, err := f.fetch(ctx, TriggerRefresh)
	if err != nil {
		f.notifier.Error("Failed to refresh orders")
		return nil, err
	}
	f.notifier.Success("Orders updated")
	return orders, nil
}

func (f *KafkaFeed) relevant(records []*kafka.Record) bool {
	for _, r := range records {
		var ev domain.OrderStatusEvent
		if err := json.Unmarshal(r.Value, &ev); err != nil {
			f.log.Debug("Ignoring malformed order event", "offset", r.Offset, "error", err)
			continue
		}
		if f.userID == "" || ev.UserID == f.userID {
			return true
		}
	}
	return false
}

func (f *KafkaFeed) fetch(ctx context.Context, trigger string) ([]domain.Order, error) {
	orders, err := f.lister.ListOrders(ctx)
	if err != nil {
		f.metrics.PollCycles.WithLabelValues(trigger, "error").Inc()
		if ctx.Err() == nil {
			f.log.Warn(fmt.Sprintf("Failed to fetch orders (%s): %v", trigger, err))
		}
		return nil, err
	}
	SortNewestFirst(orders)

	f.mu.Lock()
	sink := f.sink
	f.mu.Unlock()
	if sink == nil {
		f.metrics.PollCycles.WithLabelValues(trigger, "discarded").Inc()
		return orders, nil
	}
	f.metrics.PollCycles.WithLabelValues(trigger, "ok").Inc()
	sink(orders)
	return orders, nil
}
