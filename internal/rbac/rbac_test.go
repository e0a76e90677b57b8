package rbac

import "testing"

func TestIsProvider(t *testing.T) {
	cases := []struct {
		name     string
		role     Role
		provider bool
	}{
		{name: "agent", role: RoleAgent, provider: true},
		{name: "broker", role: RoleBroker, provider: true},
		{name: "insurance company", role: RoleInsuranceCompany, provider: true},
		{name: "general user", role: RoleGeneralUser, provider: false},
		{name: "student", role: RoleStudent, provider: false},
		{name: "regulator", role: RoleRegulator, provider: false},
		{name: "admin", role: RoleAdmin, provider: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsProvider(tc.role); got != tc.provider {
				t.Fatalf("IsProvider(%q) = %v, want %v", tc.role, got, tc.provider)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("BROKER"); got != RoleBroker {
		t.Fatalf("Normalize(BROKER) = %q", got)
	}
	if got := Normalize("superuser"); got != RoleGeneralUser {
		t.Fatalf("Normalize of unknown role = %q, want GENERAL_USER", got)
	}
	if got := Normalize(""); got != RoleGeneralUser {
		t.Fatalf("Normalize of empty role = %q, want GENERAL_USER", got)
	}
}
