// Package authz is the single place role capabilities are decided. All
// functions are pure; callers translate a false CanView into a not-found
// response so unauthorized viewers cannot distinguish denial from
// non-existence.
package authz

import "github.com/spec-kit/helpdesk-service/internal/domain"

// CanView reports whether uid may read the ticket at all.
func CanView(role domain.Role, uid string, ticket *domain.Ticket) bool {
	if ticket == nil {
		return false
	}
	switch role {
	case domain.RoleAdmin:
		return true
	case domain.RoleWorker:
		return ticket.AssignedTo != nil && *ticket.AssignedTo == uid
	case domain.RoleUser:
		return ticket.CreatedBy == uid
	}
	return false
}

// CanManage reports whether uid may change status or assignment. Closed
// tickets are immutable to management actions for everyone; admin deletion
// is covered separately by CanDelete.
func CanManage(role domain.Role, uid string, ticket *domain.Ticket) bool {
	if ticket == nil {
		return false
	}
	switch role {
	case domain.RoleAdmin:
		return true
	case domain.RoleWorker:
		return ticket.AssignedTo != nil && *ticket.AssignedTo == uid &&
			ticket.Status != domain.TicketStatusClosed
	}
	return false
}

// CanCreate reports whether the role may open new tickets.
func CanCreate(role domain.Role) bool {
	return role == domain.RoleUser || role == domain.RoleAdmin
}

// CanDelete reports whether the role may delete tickets.
func CanDelete(role domain.Role) bool {
	return role == domain.RoleAdmin
}

// CanAssign reports whether the role may assign tickets to workers.
func CanAssign(role domain.Role) bool {
	return role == domain.RoleAdmin
}

// CanChangeRole reports whether the actor may change the target's role.
// Self role changes are blocked unconditionally, admin or not.
func CanChangeRole(actorRole domain.Role, actorUID, targetUID string) bool {
	if actorUID == targetUID {
		return false
	}
	return actorRole == domain.RoleAdmin
}
