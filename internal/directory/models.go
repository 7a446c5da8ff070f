package directory

import "time"

// Profile is the read-only slice of the identity provider's user record that
// call orchestration needs: existence checks and the contact card attached to
// presence listings.
type Profile struct {
	ID       string `json:"id" db:"id"`
	FullName string `json:"full_name" db:"full_name"`
	Email    string `json:"email" db:"email"`
	Role     string `json:"role" db:"role"`

	CreatedAt time.Time `json:"created_at,omitempty" db:"created_at"`
}

const (
	RoleAdmin      = "admin"
	RoleDispatcher = "dispatcher"
	RoleFieldUnit  = "field_unit"
	RoleSupervisor = "supervisor"
)
