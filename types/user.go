package types

import "time"

// Supported user roles.
const (
	RoleClient = "client"
	RoleAdmin  = "admin"
)

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name of the user. Clients are
	// identified by it when they request appointments.
	Username string `json:"username" db:"username"`

	// Role indicates the user's authorization level within the
	// system ("client" or "admin").
	Role string `json:"role" db:"role"`

	// Phone is the optional WhatsApp destination of the user in E.164
	// form. Confirmation messages are only sent when it is set.
	Phone string `json:"phone,omitempty" db:"phone"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
