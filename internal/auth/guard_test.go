package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/mitra-marketplace/internal/domain"
)

var sari = &domain.Identity{ID: "u-1", Email: "sari@example.com"}

func signedIn(role domain.RoleResolution) domain.SessionState {
	return domain.SessionState{Identity: sari, Role: role}
}

func TestDecideWaitsWhileLoading(t *testing.T) {
	for _, state := range []domain.SessionState{
		{Loading: true},
		{Loading: true, Identity: sari, Role: domain.ResolvedRole(domain.RoleAdmin)},
	} {
		d := Decide(state, []domain.Role{domain.RoleAdmin}, "/admin")
		assert.Equal(t, DecisionWait, d.Kind)
		assert.False(t, d.Redirect())
		assert.Empty(t, d.Location)
	}
}

func TestDecideRedirectsAnonymousToLogin(t *testing.T) {
	d := Decide(domain.SessionState{}, []domain.Role{domain.RoleAdmin}, "/admin/users?role=mitra")
	assert.Equal(t, DecisionRedirectLogin, d.Kind)
	assert.Equal(t, "/login?from=%2Fadmin%2Fusers%3Frole%3Dmitra", d.Location)

	d = Decide(domain.SessionState{}, nil, "/dashboard")
	assert.Equal(t, DecisionRedirectLogin, d.Kind)
	assert.Equal(t, "/login?from=%2Fdashboard", d.Location)
}

func TestDecideRedirectsDisallowedRoleHome(t *testing.T) {
	adminOnly := []domain.Role{domain.RoleAdmin}
	cases := map[domain.Role]string{
		domain.RoleMitra:    "/mitra",
		domain.RoleCustomer: "/dashboard",
		domain.Role("guru"): "/dashboard",
	}
	for role, home := range cases {
		d := Decide(signedIn(domain.ResolvedRole(role)), adminOnly, "/admin")
		assert.Equal(t, DecisionRedirectHome, d.Kind, role)
		assert.Equal(t, home, d.Location, role)
	}

	d := Decide(signedIn(domain.ResolvedRole(domain.RoleAdmin)), []domain.Role{domain.RoleMitra}, "/mitra")
	assert.Equal(t, "/admin", d.Location)
}

func TestDecideNeverAllowsOutsideAllowList(t *testing.T) {
	for _, route := range [][]domain.Role{
		{domain.RoleAdmin},
		{domain.RoleMitra},
		{domain.RoleCustomer},
		{domain.RoleAdmin, domain.RoleMitra},
	} {
		for _, role := range domain.Roles() {
			d := Decide(signedIn(domain.ResolvedRole(role)), route, "/x")
			member := false
			for _, r := range route {
				member = member || r == role
			}
			if member {
				assert.Equal(t, DecisionAllow, d.Kind)
			} else {
				assert.Equal(t, DecisionRedirectHome, d.Kind)
				assert.Equal(t, role.HomePath(), d.Location)
			}
		}
	}
}

func TestDecideUnresolvedRole(t *testing.T) {
	adminOnly := []domain.Role{domain.RoleAdmin}

	pending := Decide(signedIn(domain.PendingRole()), adminOnly, "/admin")
	assert.Equal(t, DecisionWait, pending.Kind)

	missing := Decide(signedIn(domain.MissingRole()), adminOnly, "/admin")
	assert.Equal(t, DecisionRedirectHome, missing.Kind)
	assert.Equal(t, LandingPath, missing.Location)
}

func TestDecideWithoutAllowList(t *testing.T) {
	assert.Equal(t, DecisionAllow, Decide(signedIn(domain.MissingRole()), nil, "/profile").Kind)
	assert.Equal(t, DecisionAllow, Decide(signedIn(domain.PendingRole()), nil, "/profile").Kind)
}
