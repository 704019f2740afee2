package repository

import "github.com/spec-kit/helpdesk-service/internal/domain"

// ScopedFilter builds the role-scoped ticket filter shared by list queries
// and live subscriptions: admins see everything and may narrow by
// status/priority, workers see their assignments, users their own tickets.
// Filters are ignored for non-admins.
func ScopedFilter(viewer *domain.Profile, statuses []domain.TicketStatus, priorities []domain.TicketPriority) TicketFilter {
	switch viewer.Role {
	case domain.RoleAdmin:
		return TicketFilter{Statuses: statuses, Priorities: priorities}
	case domain.RoleWorker:
		uid := viewer.UID
		return TicketFilter{AssignedTo: &uid}
	default:
		uid := viewer.UID
		return TicketFilter{CreatedBy: &uid}
	}
}
