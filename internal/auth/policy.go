package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/edusupport/helpdesk-service/internal/domain"
	apperrors "github.com/edusupport/helpdesk-service/pkg/util"
)

// RequireRole gates a route on the principal holding the given role.
func RequireRole(role domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if principal.Role != role {
			return apperrors.NewInsufficientRole()
		}
		return c.Next()
	}
}

// HasRole reports whether the principal holds the role.
func HasRole(principal *Principal, role domain.Role) bool {
	return principal != nil && principal.Role == role
}

// CanAccessTicket reports whether the principal may read or write the
// ticket: support sees every ticket, requesters only their own.
func CanAccessTicket(principal *Principal, ticket *domain.Ticket) bool {
	if principal == nil || ticket == nil {
		return false
	}
	if principal.Role == domain.RoleSupport {
		return true
	}
	return ticket.RequesterID == principal.ID
}

// RequireTicketAccess returns a Forbidden error unless CanAccessTicket holds.
func RequireTicketAccess(principal *Principal, ticket *domain.Ticket) error {
	if !CanAccessTicket(principal, ticket) {
		return apperrors.NewForbidden("access denied")
	}
	return nil
}
