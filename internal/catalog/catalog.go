// Package catalog browses medicines and puts them in the cart.
package catalog

import (
	"context"
	"sort"

	"github.com/niloyhakimai/medistore-client/internal/cart"
	"github.com/niloyhakimai/medistore-client/internal/domain"
	"github.com/niloyhakimai/medistore-client/internal/notify"
	"github.com/niloyhakimai/medistore-client/internal/routing"
	"github.com/niloyhakimai/medistore-client/pkg/logger"
)

// Source is the backend side of the catalog
type Source interface {
	ListMedicines(ctx context.Context) ([]domain.Medicine, error)
	GetMedicine(ctx context.Context, id string) (*domain.Medicine, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

// Surface is where an add-to-cart action started
type Surface int

const (
	// SurfaceCard is a product card in a listing
	SurfaceCard Surface = iota
	// SurfaceDetail is the product detail page
	SurfaceDetail
)

// Service serves the shop views
type Service struct {
	src      Source
	cart     *cart.Service
	notifier notify.Notifier
	log      *logger.Logger
}

// NewService creates a catalog Service
func NewService(src Source, c *cart.Service, n notify.Notifier) *Service {
	return &Service{src: src, cart: c, notifier: n, log: logger.Get()}
}

// Search lists the catalog filtered by query. Listing failures are logged
// and the empty catalog shown.
func (s *Service) Search(ctx context.Context, query string) ([]domain.Medicine, error) {
	meds, err := s.src.ListMedicines(ctx)
	if err != nil {
		s.log.Warn("Failed to load medicines", "error", err)
		return nil, err
	}
	return Filter(meds, query), nil
}

// Filter keeps medicines whose name or category name contains query,
// ignoring case. Order is preserved.
func Filter(meds []domain.Medicine, query string) []domain.Medicine {
	out := make([]domain.Medicine, 0, len(meds))
	for i := range meds {
		if meds[i].Matches(query) {
			out = append(out, meds[i])
		}
	}
	return out
}

// DetailResult is the product detail view state
type DetailResult struct {
	Medicine   *domain.Medicine
	Navigation routing.Navigation
}

// Detail loads one medicine. On failure the user is sent back to the shop.
func (s *Service) Detail(ctx context.Context, id string) (*DetailResult, error) {
	m, err := s.src.GetMedicine(ctx, id)
	if err != nil {
		s.notifier.Error("Failed to load medicine details")
		return &DetailResult{Navigation: routing.To(routing.Shop)}, err
	}
	return &DetailResult{Medicine: m}, nil
}

// Categories lists the taxonomy sorted by name
func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	cats, err := s.src.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(cats, func(i, j int) bool { return cats[i].Name < cats[j].Name })
	return cats, nil
}

// AddToCart adds one unit of m and acknowledges it the way surface does
func (s *Service) AddToCart(ctx context.Context, m *domain.Medicine, surface Surface) (cart.AddResult, error) {
	result, err := s.cart.Add(ctx, m.ID, m.Name, m.Price)
	if err != nil {
		s.notifier.Error("Failed to add to cart")
		return result, err
	}

	switch {
	case result == cart.Added:
		s.notifier.Success("Added to Cart!")
	case surface == SurfaceDetail:
		s.notifier.Success("Added more to cart!")
	default:
		s.notifier.Success("Quantity updated!")
	}
	return result, nil
}
