package session

import (
	"encoding/json"

	"github.com/MrEthical07/portalAuth/role"
)

// Profile is the cached user profile returned by the remote authority.
//
// The authority emits the identifier as "_id"; Profile accepts either "_id"
// or "id" on input and always writes "id".
type Profile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	StaffID string `json:"staffId,omitempty"`
}

// RoleKind parses the wire role into the closed role enumeration.
func (p Profile) RoleKind() role.Role {
	return role.Parse(p.Role)
}

func (p *Profile) UnmarshalJSON(data []byte) error {
	type plain Profile
	var aux struct {
		plain
		LegacyID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = Profile(aux.plain)
	if p.ID == "" {
		p.ID = aux.LegacyID
	}
	return nil
}

// Record is the unit persisted by a [Store]: the raw credential and the
// profile it was issued for.
type Record struct {
	Credential string
	User       Profile
}
