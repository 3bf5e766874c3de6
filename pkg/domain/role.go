package domain

// Role identifies the caller class an operation runs under. Transport
// middleware resolves it; services only compare against the constants.
type Role string

const (
	// RoleKiosk is the unauthenticated guest-facing terminal.
	RoleKiosk Role = "kiosk"
	// RoleStaff covers facility staff; required for destructive
	// administrative actions such as deleting activity entries.
	RoleStaff Role = "staff"
	// RoleAdmin is the console operator; implies every staff capability.
	RoleAdmin Role = "admin"
)

// Elevated reports whether the role may perform privileged deletions.
func (r Role) Elevated() bool {
	return r == RoleStaff || r == RoleAdmin
}
