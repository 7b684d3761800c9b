package model

// PermissionMatrix maps a role to the set of roles it may administer. It is
// static configuration handed to the services at construction, not shared
// mutable state.
type PermissionMatrix map[Role][]Role

// DefaultPermissionMatrix mirrors the hospital's standing role hierarchy.
func DefaultPermissionMatrix() PermissionMatrix {
	return PermissionMatrix{
		RoleSuperAdmin: {
			RoleAdmin, RoleDoctor, RoleNurse,
			RoleReceptionist, RoleBillingClerk,
			RolePharmacist, RoleHRManager,
		},
		RoleAdmin: {
			RoleDoctor, RoleNurse, RoleReceptionist,
			RoleBillingClerk, RolePharmacist,
		},
		RoleHRManager: {
			RoleNurse, RoleReceptionist, RoleBillingClerk,
		},
	}
}

// CanActOn reports whether actors of role `actor` may administer users of
// role `target`.
func (m PermissionMatrix) CanActOn(actor, target Role) bool {
	for _, r := range m[actor] {
		if r == target {
			return true
		}
	}
	return false
}

// CanManageAvailability gates availability-definition operations: doctors
// manage their own schedule, and any role that may administer doctors may
// manage it on their behalf.
func (m PermissionMatrix) CanManageAvailability(actor Role) bool {
	return actor == RoleDoctor || m.CanActOn(actor, RoleDoctor)
}
