// Package cart manages the persisted shopping cart.
package cart

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/niloyhakimai/medistore-client/internal/bus"
	"github.com/niloyhakimai/medistore-client/internal/domain"
	"github.com/niloyhakimai/medistore-client/internal/store"
	"github.com/niloyhakimai/medistore-client/pkg/logger"
	"github.com/niloyhakimai/medistore-client/pkg/metrics"
)

// Line is one product in the cart. Name and UnitPrice are snapshots taken
// when the product was first added.
type Line struct {
	ProductID string  `json:"medicineId"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// Subtotal returns UnitPrice x Quantity
func (l Line) Subtotal() float64 {
	return l.UnitPrice * float64(l.Quantity)
}

// Cart is an ordered set of lines, unique by product id
type Cart struct {
	Lines []Line
}

// Total returns the sum of every line subtotal
func (c Cart) Total() float64 {
	var total float64
	for _, l := range c.Lines {
		total += l.Subtotal()
	}
	return total
}

// Count returns the sum of quantities
func (c Cart) Count() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines
func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Find returns the line for productID
func (c Cart) Find(productID string) (Line, bool) {
	for _, l := range c.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return Line{}, false
}

// normalize drops lines with quantity < 1 and merges duplicate product ids,
// keeping the first occurrence's position and snapshot
func normalize(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, l := range lines {
		if l.ProductID == "" || l.Quantity < 1 {
			continue
		}
		if i, ok := index[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}

// AddResult tells whether Add created a line or bumped an existing one
type AddResult int

const (
	Added AddResult = iota
	QuantityUpdated
)

func (r AddResult) String() string {
	if r == QuantityUpdated {
		return "quantity_updated"
	}
	return "added"
}

// Service reads and mutates the cart in a store and announces every change
type Service struct {
	store   store.Store
	bus     *bus.Bus
	log     *logger.Logger
	metrics *metrics.Metrics

	// mu serializes read-modify-write cycles within this process
	mu sync.Mutex
}

// NewService creates a cart Service
func NewService(s store.Store, b *bus.Bus) *Service {
	return &Service{
		store:   s,
		bus:     b,
		log:     logger.Get(),
		metrics: metrics.Default(),
	}
}

// Load returns the stored cart. Missing or unreadable data is an empty cart.
func (s *Service) Load(ctx context.Context) Cart {
	var lines []Line
	if !store.GetJSON(ctx, s.store, store.KeyCart, &lines) {
		return Cart{}
	}
	return Cart{Lines: normalize(lines)}
}

// Add puts one unit of the product in the cart
func (s *Service) Add(ctx context.Context, productID, name string, unitPrice float64) (AddResult, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Added, domain.ErrInvalidProductID
	}
	if unitPrice < 0 {
		return Added, domain.ErrInvalidUnitPrice
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.Load(ctx)
	result := Added
	found := false
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines[i].Quantity++
			result = QuantityUpdated
			found = true
			break
		}
	}
	if !found {
		c.Lines = append(c.Lines, Line{ProductID: productID, Name: name, UnitPrice: unitPrice, Quantity: 1})
	}

	if err := s.save(ctx, c, "add"); err != nil {
		return result, err
	}
	return result, nil
}

// Remove drops the product's line. Removing an absent product is a no-op.
func (s *Service) Remove(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.Load(ctx)
	kept := c.Lines[:0]
	for _, l := range c.Lines {
		if l.ProductID != productID {
			kept = append(kept, l)
		}
	}
	c.Lines = kept
	return s.save(ctx, c, "remove")
}

// Replace overwrites the snapshots of lines already in the cart. Lines for
// products not in the cart are ignored; quantities below 1 remove the line.
func (s *Service) Replace(ctx context.Context, updated []Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := make(map[string]Line, len(updated))
	for _, l := range updated {
		byID[l.ProductID] = l
	}

	c := s.Load(ctx)
	for i, l := range c.Lines {
		if u, ok := byID[l.ProductID]; ok {
			c.Lines[i] = Line{ProductID: l.ProductID, Name: u.Name, UnitPrice: u.UnitPrice, Quantity: u.Quantity}
		}
	}
	c.Lines = normalize(c.Lines)
	return s.save(ctx, c, "reprice")
}

// Clear deletes the cart
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(ctx, store.KeyCart); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	s.metrics.CartMutations.WithLabelValues("clear").Inc()
	s.bus.Publish(ctx, store.KeyCart)
	return nil
}

func (s *Service) save(ctx context.Context, c Cart, op string) error {
	lines := c.Lines
	if lines == nil {
		lines = []Line{}
	}
	if err := store.SetJSON(ctx, s.store, store.KeyCart, lines); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	s.metrics.CartMutations.WithLabelValues(op).Inc()
	s.log.Debug("Cart updated", "operation", op, "lines", len(lines), "count", c.Count())
	s.bus.Publish(ctx, store.KeyCart)
	return nil
}
