package domain

import "strings"

// Category represents a catalog taxonomy entry
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Medicine represents a catalog product
type Medicine struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Price        float64   `json:"price"`
	Stock        int       `json:"stock"`
	Manufacturer string    `json:"manufacturer,omitempty"`
	ExpiryDate   string    `json:"expiryDate,omitempty"`
	CategoryID   string    `json:"categoryId,omitempty"`
	Category     *Category `json:"category,omitempty"`
	SellerID     string    `json:"sellerId,omitempty"`
}

// CategoryName returns the embedded category name, if any
func (m *Medicine) CategoryName() string {
	if m.Category == nil {
		return ""
	}
	return m.Category.Name
}

// Matches reports whether query is a case-insensitive substring of the
// medicine name or its category name. An empty query matches everything.
func (m *Medicine) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(m.Name), q) ||
		strings.Contains(strings.ToLower(m.CategoryName()), q)
}
