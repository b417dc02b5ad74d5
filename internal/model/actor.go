package model

import "github.com/google/uuid"

// Roles supplied by the identity provider.
const (
	RoleAdmin  = "admin"
	RoleSeller = "seller"
)

// Actor is the authenticated identity stamped on created_by/actor fields.
// The core only consumes it; how it was authenticated is not its concern.
type Actor struct {
	ID   uuid.UUID
	Role string
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// CanMutateSale enforces "only admin, or the sale's own creator while in
// draft, may mutate a sale".
func (a Actor) CanMutateSale(s *Sale) bool {
	if a.IsAdmin() {
		return true
	}
	return s.CreatedBy == a.ID && s.Status == SaleDraft
}
