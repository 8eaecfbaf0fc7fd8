package auth

import "fmt"

// Role is the closed set of actor roles. Role checks throughout the system
// compare Role values, never raw strings.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleDoctor       Role = "doctor"
	RolePatient      Role = "patient"
	RoleReceptionist Role = "receptionist"
	RoleNurse        Role = "nurse"
	RolePharmacist   Role = "pharmacist"
	RoleAccountant   Role = "accountant"
	RoleLabTech      Role = "lab_tech"
)

var validRoles = map[Role]bool{
	RoleAdmin: true, RoleDoctor: true, RolePatient: true,
	RoleReceptionist: true, RoleNurse: true, RolePharmacist: true,
	RoleAccountant: true, RoleLabTech: true,
}

// ParseRole converts a string claim into a Role, rejecting anything outside
// the closed set.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !validRoles[r] {
		return "", fmt.Errorf("unknown role: %q", s)
	}
	return r, nil
}

// IsStaff reports whether the role belongs to clinic staff (everyone except
// patients).
func (r Role) IsStaff() bool {
	return validRoles[r] && r != RolePatient
}

// String returns the wire representation of the role.
func (r Role) String() string { return string(r) }
