package view

import (
	"context"

	"github.com/niloyhakimai/medistore-client/internal/apiclient"
	"github.com/niloyhakimai/medistore-client/internal/domain"
	"github.com/niloyhakimai/medistore-client/internal/notify"
	"github.com/niloyhakimai/medistore-client/internal/routing"
)

// AdminBackend is the admin side of the storefront API
type AdminBackend interface {
	AdminStats(ctx context.Context) (*domain.Stats, error)
	AdminUsers(ctx context.Context) ([]domain.User, error)
	SetUserBanned(ctx context.Context, id string, banned bool) (*domain.User, error)
}

// AdminDashboard shows store statistics and moderates accounts
type AdminDashboard struct {
	sessions Sessions
	backend  AdminBackend
	notifier notify.Notifier
}

// NewAdminDashboard creates an AdminDashboard
func NewAdminDashboard(sessions Sessions, backend AdminBackend, n notify.Notifier) *AdminDashboard {
	return &AdminDashboard{sessions: sessions, backend: backend, notifier: n}
}

// Mount checks the session belongs to an admin
func (d *AdminDashboard) Mount(ctx context.Context) (routing.Navigation, bool) {
	_, nav, ok := guard(ctx, d.sessions, domain.RoleAdmin)
	return nav, ok
}

// Stats loads the summary cards and recent orders
func (d *AdminDashboard) Stats(ctx context.Context) (*domain.Stats, error) {
	stats, err := d.backend.AdminStats(ctx)
	if err != nil {
		d.notifier.Error("Failed to load dashboard data")
		return nil, err
	}
	if stats.RecentOrders == nil {
		stats.RecentOrders = []domain.Order{}
	}
	return stats, nil
}

// Users lists every account
func (d *AdminDashboard) Users(ctx context.Context) ([]domain.User, error) {
	users, err := d.backend.AdminUsers(ctx)
	if err != nil {
		d.notifier.Error(apiclient.Message(err, "Failed to load users"))
		return nil, err
	}
	return users, nil
}

// SetBanned bans or unbans an account
func (d *AdminDashboard) SetBanned(ctx context.Context, id string, banned bool) (*domain.User, error) {
	user, err := d.backend.SetUserBanned(ctx, id, banned)
	if err != nil {
		d.notifier.Error(apiclient.Message(err, "Failed to update user"))
		return nil, err
	}
	if banned {
		d.notifier.Success("User banned")
	} else {
		d.notifier.Success("User unbanned")
	}
	return user, nil
}
