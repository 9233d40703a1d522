package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
	apperrors "github.com/spec-kit/campus-helpdesk/pkg/util"
)

// RequireRole lets the request through only for the listed roles. With no
// roles it only requires an authenticated caller.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[identity.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// StaffRoles are the roles acting on behalf of the university.
var StaffRoles = []domain.Role{domain.RoleManager, domain.RoleDepartment, domain.RoleLeadership}

// SupervisorRoles may route tickets and see every ticket.
var SupervisorRoles = []domain.Role{domain.RoleManager, domain.RoleLeadership}
