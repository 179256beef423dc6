package role

import "strings"

// Set is a bitmask of roles. The zero value is the empty set.
type Set uint16

// NewSet returns a set containing roles. [Unknown] is never added.
func NewSet(roles ...Role) Set {
	var s Set
	for _, r := range roles {
		s.Add(r)
	}
	return s
}

// AnyKnown is the set of every recognised role.
func AnyKnown() Set {
	return NewSet(All()...)
}

func (s *Set) Add(r Role) {
	if !r.Known() {
		return
	}
	*s |= 1 << r
}

func (s *Set) Remove(r Role) {
	if r >= roleCount {
		return
	}
	*s &^= 1 << r
}

// Has reports whether r is in the set. [Unknown] is never a member.
func (s Set) Has(r Role) bool {
	if !r.Known() {
		return false
	}
	return s&(1<<r) != 0
}

func (s Set) Empty() bool {
	return s == 0
}

// Roles returns the members in declaration order.
func (s Set) Roles() []Role {
	var out []Role
	for r := Admin; r < roleCount; r++ {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s Set) String() string {
	roles := s.Roles()
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = r.String()
	}
	return "{" + strings.Join(parts, ",") + "}"
}
