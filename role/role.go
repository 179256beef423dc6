package role

import "strings"

// Role is one of the closed set of portal roles. The zero value is [Unknown].
type Role uint8

const (
	// Unknown is any role string the portal does not recognise. It routes
	// like [User].
	Unknown Role = iota
	Admin
	Manager
	Accountant
	FieldStaff
	DeliveryStaff
	Lab
	LabManager
	User

	roleCount
)

var names = [roleCount]string{
	Unknown:       "unknown",
	Admin:         "admin",
	Manager:       "manager",
	Accountant:    "accountant",
	FieldStaff:    "field_staff",
	DeliveryStaff: "delivery_staff",
	Lab:           "lab",
	LabManager:    "lab_manager",
	User:          "user",
}

// Parse maps a wire role string to a Role. Matching is exact after trimming
// surrounding whitespace; anything else yields [Unknown].
func Parse(s string) Role {
	s = strings.TrimSpace(s)
	for r := Admin; r < roleCount; r++ {
		if names[r] == s {
			return r
		}
	}
	return Unknown
}

// String returns the wire name of r.
func (r Role) String() string {
	if r >= roleCount {
		return names[Unknown]
	}
	return names[r]
}

// Known reports whether r is one of the recognised roles.
func (r Role) Known() bool {
	return r > Unknown && r < roleCount
}

// Effective returns the role used for routing and guard membership:
// [Unknown] behaves as [User].
func (r Role) Effective() Role {
	if !r.Known() {
		return User
	}
	return r
}

// IsLab reports whether r belongs to the lab module.
func (r Role) IsLab() bool {
	return r == Lab || r == LabManager
}

// CSSClass returns the body class UI adapters attach for the signed-in role,
// e.g. "role-field_staff". Unknown roles have no class.
func (r Role) CSSClass() string {
	if !r.Known() {
		return ""
	}
	return "role-" + r.String()
}

// All returns every known role in declaration order.
func All() []Role {
	out := make([]Role, 0, roleCount-1)
	for r := Admin; r < roleCount; r++ {
		out = append(out, r)
	}
	return out
}
