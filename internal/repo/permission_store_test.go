package repo

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otec/internal/models"
)

func TestPermissionStore_CreateDefaults(t *testing.T) {
	_, rs, ps := seededStores(t)
	ctx := context.Background()

	role := mustRole(t, rs, models.RoleManager)
	perms, err := ps.CreateDefaults(ctx, role.ID)
	require.NoError(t, err)
	require.Len(t, perms, len(defaultPermissions))
	for _, p := range perms {
		assert.True(t, p.CanView && p.CanAdd && p.CanEdit && p.CanDelete, "%s/%s", p.ModuleName, p.Feature)
		assert.Equal(t, role.ID, p.RoleID)
	}

	// повторный вызов не плодит дубли
	again, err := ps.CreateDefaults(ctx, role.ID)
	require.NoError(t, err)
	assert.Len(t, again, len(defaultPermissions))
}

func TestPermissionStore_FindByRoleID_Ordered(t *testing.T) {
	_, rs, ps := seededStores(t)
	ctx := context.Background()

	role := mustRole(t, rs, models.RoleEmployee)
	_, err := ps.BulkReplace(ctx, role.ID, []models.Permission{
		{ModuleName: "Orders", Feature: "Cancel order"},
		{ModuleName: "Customers", Feature: "Edit customer"},
		{ModuleName: "Orders", Feature: "Approve order"},
	})
	require.NoError(t, err)

	perms, err := ps.FindByRoleID(ctx, role.ID)
	require.NoError(t, err)
	require.Len(t, perms, 3)

	isSorted := sort.SliceIsSorted(perms, func(i, j int) bool {
		if perms[i].ModuleName != perms[j].ModuleName {
			return perms[i].ModuleName < perms[j].ModuleName
		}
		return perms[i].Feature < perms[j].Feature
	})
	assert.True(t, isSorted, "must be ordered by module then feature")
}

func TestPermissionStore_BulkReplace_IsTotal(t *testing.T) {
	_, rs, ps := seededStores(t)
	ctx := context.Background()

	role := mustRole(t, rs, models.RoleDriver)
	_, err := ps.CreateDefaults(ctx, role.ID)
	require.NoError(t, err)

	// пустой список — полный сброс, а не no-op
	out, err := ps.BulkReplace(ctx, role.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, out)

	perms, err := ps.FindByRoleID(ctx, role.ID)
	require.NoError(t, err)
	assert.Empty(t, perms)
}

func TestPermissionStore_BulkReplace_DropsOmitted(t *testing.T) {
	_, rs, ps := seededStores(t)
	ctx := context.Background()

	role := mustRole(t, rs, models.RoleUser)
	_, err := ps.BulkReplace(ctx, role.ID, []models.Permission{
		{ModuleName: "Orders", Feature: "View orders", CanView: true},
		{ModuleName: "Orders", Feature: "Edit orders", CanView: true, CanEdit: true},
	})
	require.NoError(t, err)

	out, err := ps.BulkReplace(ctx, role.ID, []models.Permission{
		{ModuleName: "Orders", Feature: "View orders", CanView: true},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "View orders", out[0].Feature)
}

func TestPermissionStore_BulkReplace_ScopedToRole(t *testing.T) {
	_, rs, ps := seededStores(t)
	ctx := context.Background()

	a := mustRole(t, rs, models.RoleAdmin)
	b := mustRole(t, rs, models.RoleManager)
	_, err := ps.CreateDefaults(ctx, a.ID)
	require.NoError(t, err)
	_, err = ps.BulkReplace(ctx, b.ID, nil)
	require.NoError(t, err)

	perms, err := ps.FindByRoleID(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, perms, len(defaultPermissions), "replace on one role must not touch another")
}

func TestPermissionStore_UpdateOne(t *testing.T) {
	_, rs, ps := seededStores(t)
	ctx := context.Background()

	role := mustRole(t, rs, models.RoleVendor)
	out, err := ps.BulkReplace(ctx, role.ID, []models.Permission{
		{ModuleName: "Inventory", Feature: "Adjust stock", CanView: true},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)

	off := false
	on := true
	got, err := ps.UpdateOne(ctx, out[0].ID, FlagPatch{CanView: &off, CanDelete: &on})
	require.NoError(t, err)
	assert.False(t, got.CanView)
	assert.True(t, got.CanDelete)
	assert.False(t, got.CanAdd, "untouched flag stays")
}
