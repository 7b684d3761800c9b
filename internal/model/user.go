package model

import "strings"

// Role of a directory user. Scheduling only interprets DOCTOR and PATIENT;
// the rest participate in the administrative permission matrix.
type Role string

const (
	RoleSuperAdmin   Role = "SUPER_ADMIN"
	RoleAdmin        Role = "ADMIN"
	RoleDoctor       Role = "DOCTOR"
	RoleNurse        Role = "NURSE"
	RoleReceptionist Role = "RECEPTIONIST"
	RoleBillingClerk Role = "BILLING_CLERK"
	RolePharmacist   Role = "PHARMACIST"
	RoleHRManager    Role = "HR_MANAGER"
	RolePatient      Role = "PATIENT"
)

// User is the minimal directory profile the scheduler needs: identity,
// display name and role. Demographics live with the identity collaborator.
type User struct {
	Base
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	Email     string `db:"email" json:"email"`
	Role      Role   `db:"role" json:"role"`
	Active    bool   `db:"active" json:"active"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) IsDoctor() bool {
	return u.Role == RoleDoctor
}
