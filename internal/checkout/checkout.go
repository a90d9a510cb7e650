// Package checkout turns the cart into an order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/niloyhakimai/medistore-client/internal/apiclient"
	"github.com/niloyhakimai/medistore-client/internal/cart"
	"github.com/niloyhakimai/medistore-client/internal/domain"
	"github.com/niloyhakimai/medistore-client/internal/dto"
	"github.com/niloyhakimai/medistore-client/internal/notify"
	"github.com/niloyhakimai/medistore-client/internal/routing"
	"github.com/niloyhakimai/medistore-client/internal/session"
	"github.com/niloyhakimai/medistore-client/pkg/logger"
	"github.com/niloyhakimai/medistore-client/pkg/metrics"
)

var (
	ErrNotAuthenticated     = errors.New("no session")
	ErrAddressRequired      = errors.New("shipping address is required")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrSubmissionInProgress = errors.New("an order submission is already in progress")
	ErrCartRepriced         = errors.New("cart prices changed since items were added")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrProductUnavailable   = errors.New("product is no longer available")
)

// Backend is the order side of the storefront API
type Backend interface {
	CreateOrder(ctx context.Context, req dto.CreateOrderRequest, idempotencyKey string) (*domain.Order, error)
	GetMedicine(ctx context.Context, id string) (*domain.Medicine, error)
}

// Sessions reports the current session
type Sessions interface {
	Current(ctx context.Context) (session.Session, bool)
}

// Config controls submission
type Config struct {
	RedirectDelay    time.Duration
	RevalidatePrices bool
}

// DefaultConfig returns the storefront defaults
func DefaultConfig() *Config {
	return &Config{RedirectDelay: 2 * time.Second, RevalidatePrices: true}
}

// Result is the outcome of PlaceOrder. Navigation is set on success and
// when the user must log in first.
type Result struct {
	Order      *domain.Order
	Navigation routing.Navigation
}

// Service submits orders. At most one submission runs at a time.
type Service struct {
	backend  Backend
	sessions Sessions
	cart     *cart.Service
	notifier notify.Notifier
	config   *Config
	log      *logger.Logger
	metrics  *metrics.Metrics

	submitting atomic.Bool
}

// NewService creates a checkout Service
func NewService(backend Backend, sessions Sessions, c *cart.Service, n notify.Notifier, cfg *Config) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Service{
		backend:  backend,
		sessions: sessions,
		cart:     c,
		notifier: n,
		config:   cfg,
		log:      logger.Get(),
		metrics:  metrics.Default(),
	}
}

// Submitting reports whether a submission is in flight
func (s *Service) Submitting() bool {
	return s.submitting.Load()
}

// PlaceOrder submits the cart with the shipping address. Preconditions are
// checked before any request is sent; on failure the cart is left untouched.
func (s *Service) PlaceOrder(ctx context.Context, address string) (*Result, error) {
	if _, ok := s.sessions.Current(ctx); !ok {
		s.notifier.Error("Please login to place an order!")
		return &Result{Navigation: routing.To(routing.Login)}, ErrNotAuthenticated
	}

	address = strings.TrimSpace(address)
	if address == "" {
		s.notifier.Error("Please enter a shipping address!")
		return &Result{}, ErrAddressRequired
	}

	c := s.cart.Load(ctx)
	if c.IsEmpty() {
		s.notifier.Error("Your cart is empty")
		return &Result{}, ErrEmptyCart
	}

	if !s.submitting.CompareAndSwap(false, true) {
		return &Result{}, ErrSubmissionInProgress
	}
	defer s.submitting.Store(false)

	if s.config.RevalidatePrices {
		if err := s.revalidate(ctx, c); err != nil {
			s.metrics.OrdersSubmitted.WithLabelValues("rejected").Inc()
			return &Result{}, err
		}
	}

	req := dto.CreateOrderRequest{Address: address, Items: make([]dto.OrderItemRequest, 0, len(c.Lines))}
	for _, l := range c.Lines {
		req.Items = append(req.Items, dto.OrderItemRequest{MedicineID: l.ProductID, Quantity: l.Quantity})
	}

	key := uuid.NewString()
	order, err := s.backend.CreateOrder(ctx, req, key)
	if err != nil {
		s.metrics.OrdersSubmitted.WithLabelValues("failed").Inc()
		s.log.Warn("Order submission failed", "idempotency_key", key, "error", err)
		s.notifier.Error(apiclient.Message(err, "Failed to place order. Try again."))
		return &Result{}, fmt.Errorf("failed to place order: %w", err)
	}
	s.metrics.OrdersSubmitted.WithLabelValues("placed").Inc()
	s.log.Info("Order placed", "order_id", order.ID, "items", len(req.Items), "total", order.TotalAmount)

	s.notifier.Success("Order Placed Successfully! 🎉 Redirecting...")
	if err := s.cart.Clear(ctx); err != nil {
		s.log.Error("Failed to clear cart after order", "order_id", order.ID, "error", err)
	}

	return &Result{
		Order:      order,
		Navigation: routing.Navigation{Route: routing.CustomerDashboard, After: s.config.RedirectDelay},
	}, nil
}

// revalidate compares every line against the live catalog. Drifted
// snapshots are written back so the user can confirm the new total.
func (s *Service) revalidate(ctx context.Context, c cart.Cart) error {
	updated := make([]cart.Line, 0, len(c.Lines))
	drifted := 0

	for _, l := range c.Lines {
		m, err := s.backend.GetMedicine(ctx, l.ProductID)
		if err != nil {
			if apiclient.IsNotFound(err) {
				s.notifier.Error(fmt.Sprintf("%s is no longer available", l.Name))
				return fmt.Errorf("%w: %s", ErrProductUnavailable, l.ProductID)
			}
			s.notifier.Error(apiclient.Message(err, "Failed to place order. Try again."))
			return fmt.Errorf("failed to revalidate %s: %w", l.ProductID, err)
		}

		if m.Stock < l.Quantity {
			s.notifier.Error(fmt.Sprintf("Only %d left of %s", m.Stock, m.Name))
			return fmt.Errorf("%w: %s has %d, cart wants %d", ErrInsufficientStock, l.ProductID, m.Stock, l.Quantity)
		}

		if m.Price != l.UnitPrice || m.Name != l.Name {
			drifted++
		}
		updated = append(updated, cart.Line{ProductID: l.ProductID, Name: m.Name, UnitPrice: m.Price, Quantity: l.Quantity})
	}

	if drifted == 0 {
		return nil
	}
	if err := s.cart.Replace(ctx, updated); err != nil {
		return err
	}
	s.log.Info("Cart repriced before checkout", "lines", drifted)
	s.notifier.Info("Prices changed since you added these items. Please review your cart.")
	return fmt.Errorf("%w: %d line(s)", ErrCartRepriced, drifted)
}
