package route

import "github.com/MrEthical07/portalAuth/role"

// Table is the set of guards protecting the portal's areas.
type Table struct {
	Authenticated        Guard
	AdminOnly            Guard
	ManagerOrAdmin       Guard
	AccountantOrAdmin    Guard
	StaffOrAdmin         Guard
	DeliveryOrAdminOrLab Guard
	LabOnly              Guard
}

// NewTable builds the standard guards over homes.
//
// The generic area admits every role but turns lab users back to the lab
// module; managers and accountants landing outside their area are returned
// to their own dashboards.
func NewTable(h Homes) Table {
	return Table{
		Authenticated: NewGuard("authenticated", role.AnyKnown(), h,
			WithPredicate(DenyRoles(h.Lab, role.Lab))),
		AdminOnly: NewGuard("admin", role.NewSet(role.Admin), h),
		ManagerOrAdmin: NewGuard("manager", role.NewSet(role.Manager, role.Admin), h,
			WithRoleHomeFallback()),
		AccountantOrAdmin: NewGuard("accountant", role.NewSet(role.Accountant, role.Admin), h,
			WithRoleHomeFallback()),
		StaffOrAdmin: NewGuard("staff", role.NewSet(role.FieldStaff, role.Admin), h),
		DeliveryOrAdminOrLab: NewGuard("delivery", role.NewSet(role.DeliveryStaff, role.Admin, role.Lab), h),
		LabOnly: NewGuard("lab", role.NewSet(role.Lab, role.LabManager), h,
			WithRoleHomeFallback()),
	}
}

// All returns the guards in a stable order.
func (t Table) All() []Guard {
	return []Guard{
		t.Authenticated,
		t.AdminOnly,
		t.ManagerOrAdmin,
		t.AccountantOrAdmin,
		t.StaffOrAdmin,
		t.DeliveryOrAdminOrLab,
		t.LabOnly,
	}
}

// ByName looks a guard up by its name.
func (t Table) ByName(name string) (Guard, bool) {
	for _, g := range t.All() {
		if g.name == name {
			return g, true
		}
	}
	return Guard{}, false
}
