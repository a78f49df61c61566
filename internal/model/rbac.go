package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is a named capability gating specific operations. An actor may hold
// several; revocation is always explicit.
type Role string

const (
	RolePrescriber       Role = "prescriber"
	RoleVerifier         Role = "verifier"
	RoleDispenser        Role = "dispenser"
	RoleInventoryManager Role = "inventory_manager"
	RoleAdministrator    Role = "administrator"
)

// ValidRole reports whether r names a known role.
func ValidRole(r Role) bool {
	switch r {
	case RolePrescriber, RoleVerifier, RoleDispenser, RoleInventoryManager, RoleAdministrator:
		return true
	}
	return false
}

// RoleAssignment records one actor holding one role.
type RoleAssignment struct {
	ActorID   uuid.UUID `json:"actor_id" db:"actor_id"`
	Role      Role      `json:"role" db:"role"`
	GrantedBy uuid.UUID `json:"granted_by" db:"granted_by"`
	GrantedAt time.Time `json:"granted_at" db:"granted_at"`
}
