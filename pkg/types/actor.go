package types

import (
	"github.com/angelmondragon/maillot-backend/pkg/enums"
	"github.com/google/uuid"
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	UserID uuid.UUID
	Email  string
	Role   enums.UserRole
}

// IsStaff reports whether the actor holds the staff role.
func (a Actor) IsStaff() bool {
	return a.Role == enums.UserRoleStaff
}
