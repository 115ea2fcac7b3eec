package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/lostfound-api/internal/models"
)

func TestEvaluateOrder(t *testing.T) {
	owner := &Caller{ID: "u1", Role: models.RoleMember}
	other := &Caller{ID: "u2", Role: models.RoleMember}
	admin := &Caller{ID: "u1", Role: models.RoleAdmin}

	assert.Equal(t, Public, Evaluate(nil, "u1"))
	assert.Equal(t, Owner, Evaluate(owner, "u1"))
	assert.Equal(t, Denied, Evaluate(other, "u1"))
	// admin wins even over ownership
	assert.Equal(t, Admin, Evaluate(admin, "u1"))
	assert.Equal(t, Denied, Evaluate(&Caller{Role: models.RoleMember}, ""))
}

func TestLevelPermissions(t *testing.T) {
	cases := []struct {
		level  Level
		manage bool
		view   bool
	}{
		{Public, false, true},
		{Owner, true, true},
		{Admin, true, true},
		{Denied, false, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.manage, tc.level.CanManage(), tc.level.String())
		assert.Equal(t, tc.view, tc.level.CanView(), tc.level.String())
	}
}

func TestFromClaims(t *testing.T) {
	assert.Nil(t, FromClaims(nil))
	c := FromClaims(&models.JWTClaims{UserID: "u1", Role: models.RoleAdmin})
	assert.Equal(t, &Caller{ID: "u1", Role: models.RoleAdmin}, c)
	assert.True(t, c.IsAdmin())

	var anon *Caller
	assert.False(t, anon.IsAdmin())
}
