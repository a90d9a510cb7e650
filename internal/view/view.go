// Package view derives screen state from the stores and the backend.
//
// Components that show persisted state subscribe to the bus on Mount and
// re-read the store whenever a change is announced. Their own mutations
// re-run Sync explicitly instead of relying on hearing the notification.
package view

import (
	"context"

	"github.com/niloyhakimai/medistore-client/internal/domain"
	"github.com/niloyhakimai/medistore-client/internal/routing"
	"github.com/niloyhakimai/medistore-client/internal/session"
)

// Sessions reports the current session
type Sessions interface {
	Current(ctx context.Context) (session.Session, bool)
}

// guard returns where to send the user instead of a dashboard restricted to
// role, or ok when the session may stay
func guard(ctx context.Context, sessions Sessions, role domain.Role) (session.Session, routing.Navigation, bool) {
	s, ok := sessions.Current(ctx)
	if !ok {
		return session.Session{}, routing.To(routing.Login), false
	}
	if s.User.Role != role {
		return s, routing.To(routing.DashboardRouteFor(s.User.Role)), false
	}
	return s, routing.Navigation{}, true
}
