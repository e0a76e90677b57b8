package rbac

type Role string

const (
	RoleGeneralUser      Role = "GENERAL_USER"
	RoleAgent            Role = "AGENT"
	RoleBroker           Role = "BROKER"
	RoleInsuranceCompany Role = "INSURANCE_COMPANY"
	RoleStudent          Role = "STUDENT"
	RoleRegulator        Role = "REGULATOR"
	RoleAdmin            Role = "ADMIN"
)

// IsProvider reports whether a role belongs to the provider class:
// actors permitted to post proposals on the concerns marketplace.
func IsProvider(role Role) bool {
	switch role {
	case RoleAgent, RoleBroker, RoleInsuranceCompany:
		return true
	default:
		return false
	}
}

func IsAdmin(role Role) bool {
	return role == RoleAdmin
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleGeneralUser, RoleAgent, RoleBroker, RoleInsuranceCompany,
		RoleStudent, RoleRegulator, RoleAdmin:
		return Role(role)
	default:
		return RoleGeneralUser
	}
}
