package mockapi

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/niloyhakimai/medistore-client/internal/domain"
	"github.com/niloyhakimai/medistore-client/internal/dto"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserBanned         = errors.New("user is banned")
	ErrUserNotFound       = errors.New("user not found")
	ErrMedicineNotFound   = errors.New("medicine not found")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrNotOwner           = errors.New("resource belongs to another account")
)

// account is a user plus its credential
type account struct {
	domain.User
	PasswordHash string
}

// Data is the backend's in-memory state
type Data struct {
	mu         sync.RWMutex
	bcryptCost int
	users      map[string]*account
	emails     map[string]string
	categories map[string]domain.Category
	medicines  map[string]*domain.Medicine
	orders     map[string]*domain.Order
	now        func() time.Time
}

// NewData creates empty state. cost 0 uses bcrypt.DefaultCost.
func NewData(cost int) *Data {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Data{
		bcryptCost: cost,
		users:      make(map[string]*account),
		emails:     make(map[string]string),
		categories: make(map[string]domain.Category),
		medicines:  make(map[string]*domain.Medicine),
		orders:     make(map[string]*domain.Order),
		now:        time.Now,
	}
}

// Register creates an account
func (d *Data) Register(req dto.RegisterRequest) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), d.bcryptCost)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.emails[email]; exists {
		return nil, ErrUserAlreadyExists
	}

	a := &account{
		User: domain.User{
			ID:    uuid.New().String(),
			Name:  req.Name,
			Email: email,
			Role:  domain.ParseRole(string(req.Role)),
		},
		PasswordHash: string(hash),
	}
	d.users[a.ID] = a
	d.emails[email] = a.ID
	u := a.User
	return &u, nil
}

// Authenticate checks credentials
func (d *Data) Authenticate(email, password string) (*domain.User, error) {
	d.mu.RLock()
	id, ok := d.emails[strings.ToLower(strings.TrimSpace(email))]
	var a account
	if ok {
		a = *d.users[id]
	}
	d.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if a.IsBanned {
		return nil, ErrUserBanned
	}
	return &a.User, nil
}

// User returns an account by id
func (d *Data) User(id string) (*domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := a.User
	return &u, nil
}

// Users lists every account by name
func (d *Data) Users() []domain.User {
	d.mu.RLock()
	out := make([]domain.User, 0, len(d.users))
	for _, a := range d.users {
		out = append(out, a.User)
	}
	d.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SetBanned toggles an account's ban flag
func (d *Data) SetBanned(id string, banned bool) (*domain.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	a.IsBanned = banned
	u := a.User
	return &u, nil
}

// AddCategory creates a category
func (d *Data) AddCategory(name string) domain.Category {
	c := domain.Category{ID: uuid.New().String(), Name: name}
	d.mu.Lock()
	d.categories[c.ID] = c
	d.mu.Unlock()
	return c
}

// Categories lists categories by name
func (d *Data) Categories() []domain.Category {
	d.mu.RLock()
	out := make([]domain.Category, 0, len(d.categories))
	for _, c := range d.categories {
		out = append(out, c)
	}
	d.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// withCategory returns a copy of m with its category embedded. Callers hold mu.
func (d *Data) withCategory(m *domain.Medicine) domain.Medicine {
	out := *m
	if c, ok := d.categories[m.CategoryID]; ok {
		out.Category = &c
	}
	return out
}

// Medicines lists the catalog, optionally restricted to one seller
func (d *Data) Medicines(sellerID string) []domain.Medicine {
	d.mu.RLock()
	out := make([]domain.Medicine, 0, len(d.medicines))
	for _, m := range d.medicines {
		if sellerID != "" && m.SellerID != sellerID {
			continue
		}
		out = append(out, d.withCategory(m))
	}
	d.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Medicine returns one catalog entry
func (d *Data) Medicine(id string) (*domain.Medicine, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.medicines[id]
	if !ok {
		return nil, ErrMedicineNotFound
	}
	out := d.withCategory(m)
	return &out, nil
}

// SaveMedicine creates (empty id) or replaces a seller's medicine
func (d *Data) SaveMedicine(sellerID, id string, req dto.MedicineRequest) (*domain.Medicine, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if req.CategoryID != "" {
		if _, ok := d.categories[req.CategoryID]; !ok {
			return nil, ErrCategoryNotFound
		}
	}

	if id == "" {
		id = uuid.New().String()
	} else {
		existing, ok := d.medicines[id]
		if !ok {
			return nil, ErrMedicineNotFound
		}
		if existing.SellerID != sellerID {
			return nil, ErrNotOwner
		}
	}

	m := &domain.Medicine{
		ID:           id,
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		Price:        req.Price,
		Stock:        req.Stock,
		Manufacturer: req.Manufacturer,
		ExpiryDate:   req.ExpiryDate,
		CategoryID:   req.CategoryID,
		SellerID:     sellerID,
	}
	d.medicines[id] = m
	out := d.withCategory(m)
	return &out, nil
}

// DeleteMedicine removes a seller's medicine
func (d *Data) DeleteMedicine(sellerID, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.medicines[id]
	if !ok {
		return ErrMedicineNotFound
	}
	if m.SellerID != sellerID {
		return ErrNotOwner
	}
	delete(d.medicines, id)
	return nil
}

// PlaceOrder reserves stock and records an order
func (d *Data) PlaceOrder(userID string, req dto.CreateOrderRequest) (*domain.Order, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Check everything before touching stock
	wanted := make(map[string]int)
	for _, item := range req.Items {
		if _, ok := d.medicines[item.MedicineID]; !ok {
			return nil, ErrMedicineNotFound
		}
		wanted[item.MedicineID] += item.Quantity
	}
	for id, qty := range wanted {
		if d.medicines[id].Stock < qty {
			return nil, ErrInsufficientStock
		}
	}

	order := &domain.Order{
		ID:        uuid.New().String(),
		UserID:    userID,
		Status:    domain.OrderStatusPlaced,
		Address:   strings.TrimSpace(req.Address),
		CreatedAt: d.now(),
		Items:     make([]domain.OrderItem, 0, len(req.Items)),
	}
	for _, item := range req.Items {
		m := d.medicines[item.MedicineID]
		m.Stock -= item.Quantity
		order.Items = append(order.Items, domain.OrderItem{
			ID:         uuid.New().String(),
			MedicineID: m.ID,
			Quantity:   item.Quantity,
			Price:      m.Price,
		})
		order.TotalAmount += m.Price * float64(item.Quantity)
	}

	d.orders[order.ID] = order
	out := d.view(order)
	return &out, nil
}

// view returns a copy of o with item medicines and the buyer embedded. Callers hold mu.
func (d *Data) view(o *domain.Order) domain.Order {
	out := *o
	out.Items = make([]domain.OrderItem, len(o.Items))
	for i, item := range o.Items {
		if m, ok := d.medicines[item.MedicineID]; ok {
			snap := d.withCategory(m)
			item.Medicine = &snap
		}
		out.Items[i] = item
	}
	if a, ok := d.users[o.UserID]; ok {
		u := a.User
		out.User = &u
	}
	return out
}

// Orders lists orders newest first. filter may be nil.
func (d *Data) Orders(filter func(*domain.Order) bool) []domain.Order {
	d.mu.RLock()
	out := make([]domain.Order, 0, len(d.orders))
	for _, o := range d.orders {
		if filter != nil && !filter(o) {
			continue
		}
		out = append(out, d.view(o))
	}
	d.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// OwnedBy matches orders placed by userID
func OwnedBy(userID string) func(*domain.Order) bool {
	return func(o *domain.Order) bool { return o.UserID == userID }
}

// SoldBy returns a filter matching orders with an item from sellerID.
// Callers hold mu, which Orders does.
func (d *Data) SoldBy(sellerID string) func(*domain.Order) bool {
	return func(o *domain.Order) bool {
		for _, item := range o.Items {
			if m, ok := d.medicines[item.MedicineID]; ok && m.SellerID == sellerID {
				return true
			}
		}
		return false
	}
}

// Transition moves an order to next. allowed decides whether the caller
// may act on the order at all. Cancelling returns reserved stock.
func (d *Data) Transition(id string, next domain.OrderStatus, allowed func(*domain.Order) bool) (*domain.Order, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	o, ok := d.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if allowed != nil && !allowed(o) {
		return nil, ErrNotOwner
	}

	next = next.Normalize()
	if !next.IsValid() {
		return nil, domain.ErrInvalidStatus
	}
	if !o.Status.CanTransitionTo(next) {
		return nil, domain.ErrInvalidTransition
	}

	o.Status = next
	if next == domain.OrderStatusCancelled {
		for _, item := range o.Items {
			if m, ok := d.medicines[item.MedicineID]; ok {
				m.Stock += item.Quantity
			}
		}
	}
	out := d.view(o)
	return &out, nil
}

// Stats summarizes sales. Cancelled orders do not count as sales.
func (d *Data) Stats(recent int) domain.Stats {
	all := d.Orders(nil)

	d.mu.RLock()
	stats := domain.Stats{TotalOrders: len(all), TotalUsers: len(d.users)}
	d.mu.RUnlock()

	for _, o := range all {
		if o.Status != domain.OrderStatusCancelled {
			stats.TotalSales += o.TotalAmount
		}
	}
	if len(all) > recent {
		all = all[:recent]
	}
	stats.RecentOrders = all
	return stats
}
