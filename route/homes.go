package route

import (
	"errors"
	"strings"

	"github.com/MrEthical07/portalAuth/role"
)

// Homes is the landing path of every role module plus the login page.
type Homes struct {
	Admin      string `yaml:"admin"`
	Manager    string `yaml:"manager"`
	Accountant string `yaml:"accountant"`
	Delivery   string `yaml:"delivery"`
	Staff      string `yaml:"staff"`
	Lab        string `yaml:"lab"`
	User       string `yaml:"user"`
	Login      string `yaml:"login"`
}

// DefaultHomes returns the portal's standard module routes.
func DefaultHomes() Homes {
	return Homes{
		Admin:      "/admin/home",
		Manager:    "/manager/home",
		Accountant: "/accountant/latex",
		Delivery:   "/delivery",
		Staff:      "/staff/operations",
		Lab:        "/lab/dashboard",
		User:       "/user",
		Login:      "/login",
	}
}

// For returns the home of r. Unknown roles land on the user home.
func (h Homes) For(r role.Role) string {
	switch r.Effective() {
	case role.Admin:
		return h.Admin
	case role.Manager:
		return h.Manager
	case role.Accountant:
		return h.Accountant
	case role.DeliveryStaff:
		return h.Delivery
	case role.FieldStaff:
		return h.Staff
	case role.Lab, role.LabManager:
		return h.Lab
	default:
		return h.User
	}
}

// Validate checks that every route is an absolute local path.
func (h Homes) Validate() error {
	for name, p := range map[string]string{
		"admin": h.Admin, "manager": h.Manager, "accountant": h.Accountant,
		"delivery": h.Delivery, "staff": h.Staff, "lab": h.Lab,
		"user": h.User, "login": h.Login,
	} {
		if !isLocalPath(p) {
			return errors.New("route home " + name + " must be an absolute local path")
		}
	}
	return nil
}

func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.Contains(p, `\`)
}
