package ledger

import (
	"github.com/google/uuid"
	"github.com/tinoosan/schoolfin/internal/errs"
)

// Role is the tenant role of an authenticated user.
type Role string

const (
	RoleOwner Role = "owner"
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// Role sets consulted by the services for gating.
var (
	Managers = []Role{RoleOwner, RoleAdmin}
	Members  = []Role{RoleOwner, RoleAdmin, RoleStaff}
)

// Principal is the already-authenticated caller. Every operation is scoped to its TenantID.
type Principal struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	Role     Role
}

// Require returns errs.ErrForbidden unless the principal holds one of roles.
func (p Principal) Require(roles ...Role) error {
	if p.TenantID == uuid.Nil {
		return errs.Forbidden("missing tenant")
	}
	for _, r := range roles {
		if p.Role == r {
			return nil
		}
	}
	return errs.Forbidden("role not allowed")
}
