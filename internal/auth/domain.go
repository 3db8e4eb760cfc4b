package auth

import (
	"errors"
	"time"
)

// Built-in identity used when the default PIN is entered.
const (
	DefaultStaffID   = "demo-staff-1"
	DefaultStaffName = "Workshop Staff"
)

// Staff roles.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// Login page messages.
const (
	MessageInvalidPIN   = "Invalid PIN. Please try again."
	MessagePINFormat    = "PIN must be exactly 4 digits"
	MessageLoginFailed  = "Login failed. Please try again."
	MessageDefaultLogin = "Login successful!"
	MessageLoggedOut    = "Logged out successfully"
)

// ErrInvalidPIN is returned when the PIN is not four digits.
var ErrInvalidPIN = errors.New("pin must be 4 digits")

// Staff is a workshop employee allowed to sign in.
type Staff struct {
	ID        string
	Name      string
	Role      string
	PINHash   string
	IsActive  bool
	CreatedAt time.Time
}

// IsAdmin reports whether the staff member has the admin role.
func (s Staff) IsAdmin() bool {
	return s.Role == RoleAdmin
}
