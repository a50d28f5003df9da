package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelOrdering(t *testing.T) {
	assert.True(t, Write.Index() > Read.Index())
	assert.True(t, Read.Index() > View.Index())
	assert.True(t, View.Index() > None.Index())
	assert.True(t, Owner.Index() > Write.Index())
}

func TestParseUnknownFallsBackToNone(t *testing.T) {
	assert.Equal(t, None, Parse("bogus"))
	assert.Equal(t, Write, Parse("write"))
}

func TestEffectiveTakesMaxOfNoAuthAndUser(t *testing.T) {
	grants := Grants{NoAuthPermission: View, ByUser: map[string]Level{"u1": Write}}
	assert.Equal(t, Write, Effective(grants, "u1"))
	assert.Equal(t, View, Effective(grants, "u2"))
	assert.Equal(t, View, Effective(grants, ""))
}

func TestHasVesselPermissionRejectsAnonymousWithoutNoAuthGrant(t *testing.T) {
	grants := Grants{NoAuthPermission: None, ByUser: map[string]Level{"u1": Owner}}
	assert.False(t, HasVesselPermission(grants, "", Read))
	assert.True(t, HasVesselPermission(grants, "u1", Read))
}

func TestHasFlightPermissionFallsBackToVessel(t *testing.T) {
	flightGrants := Grants{NoAuthPermission: None}
	vesselGrants := Grants{NoAuthPermission: None, ByUser: map[string]Level{"u1": Write}}
	assert.True(t, HasFlightPermission(flightGrants, vesselGrants, "u1", Write))
	assert.False(t, HasFlightPermission(flightGrants, vesselGrants, "u2", Write))
}

func TestEnsureOwnerInvariantPromotesNoAuthWhenNoOwnerRemains(t *testing.T) {
	grants := Grants{NoAuthPermission: None, ByUser: map[string]Level{"u1": Write}}
	EnsureOwnerInvariant(&grants)
	assert.Equal(t, Owner, grants.NoAuthPermission)
}

func TestEnsureOwnerInvariantLeavesNoAuthAloneWhenOwnerExists(t *testing.T) {
	grants := Grants{NoAuthPermission: None, ByUser: map[string]Level{"u1": Owner}}
	EnsureOwnerInvariant(&grants)
	assert.Equal(t, None, grants.NoAuthPermission)
}

func TestSetUserPermissionNoneRemovesEntry(t *testing.T) {
	grants := Grants{ByUser: map[string]Level{"u1": Owner, "u2": Write}}
	SetUserPermission(&grants, "u2", None)
	_, ok := grants.ByUser["u2"]
	assert.False(t, ok)
	assert.Contains(t, grants.ByUser, "u1")
}

func TestSetUserPermissionPromotesNoAuthWhenLastOwnerRemoved(t *testing.T) {
	grants := Grants{ByUser: map[string]Level{"u1": Owner}}
	SetUserPermission(&grants, "u1", Write)
	assert.Equal(t, Owner, grants.NoAuthPermission)
	assert.Equal(t, Write, grants.ByUser["u1"])
}
