package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func group(id uint, perms ...Permission) *PermissionGroup {
	return &PermissionGroup{ID: id, Name: "group", Permissions: perms}
}

func TestResolvePermissions_NilEmployee(t *testing.T) {
	set := ResolvePermissions(nil)
	assert.Empty(t, set)
	assert.False(t, set.Has(PermAssetsView))
}

func TestResolvePermissions_NoAssignments(t *testing.T) {
	set := ResolvePermissions(&Employee{ID: 1})
	assert.Empty(t, set)
}

func TestResolvePermissions_UnionOfAllPaths(t *testing.T) {
	view := Permission{ID: 1, Name: PermAssetsView, Category: CategoryAssets}
	admin := Permission{ID: 2, Name: PermAssetsAdmin, Category: CategoryAssets}
	logs := Permission{ID: 3, Name: PermActivityLogView, Category: CategoryActivityLog}
	docs := Permission{ID: 4, Name: PermDocumentsOwner, Category: CategoryDocuments}

	e := &Employee{
		ID: 1,
		Positions: []Position{
			{ID: 10, PermissionAssignments: []PositionPermission{{PermissionGroup: group(100, view)}}},
			{ID: 11, PermissionAssignments: []PositionPermission{{PermissionGroup: group(101, docs, view)}}},
		},
		Department: &Department{
			ID:                    20,
			PermissionAssignments: []DepartmentPermission{{PermissionGroup: group(200, admin)}},
		},
		PermissionGroupAssignments: []EmployeePermissionGroup{{PermissionGroup: group(300, logs)}},
	}

	set := ResolvePermissions(e)
	assert.Len(t, set, 4)
	assert.Equal(t, []string{PermAssetsAdmin, PermActivityLogView, PermAssetsView, PermDocumentsOwner}, set.Names())
	assert.True(t, set.HasAll(PermAssetsView, PermAssetsAdmin, PermActivityLogView, PermDocumentsOwner))
	assert.True(t, set.HasCategory(CategoryActivityLog))
	assert.False(t, set.HasCategory(CategoryDictionary))
}

func TestResolvePermissions_PositionAndDepartmentScenario(t *testing.T) {
	g1 := group(1, Permission{ID: 1, Name: "Przeglądanie rejestru aktywów"})
	g2 := group(2, Permission{ID: 2, Name: "Administrator rejestru aktywów"})

	e := &Employee{
		Positions:  []Position{{Name: "P", PermissionAssignments: []PositionPermission{{PermissionGroup: g1}}}},
		Department: &Department{Name: "D", PermissionAssignments: []DepartmentPermission{{PermissionGroup: g2}}},
	}

	set := ResolvePermissions(e)
	assert.True(t, set.Has("Przeglądanie rejestru aktywów"))
	assert.True(t, set.Has("Administrator rejestru aktywów"))
	assert.Len(t, set, 2)
}

func TestResolvePermissions_OrderIndependent(t *testing.T) {
	a := Permission{ID: 1, Name: "a"}
	b := Permission{ID: 2, Name: "b"}
	first := &Employee{
		Positions:                  []Position{{PermissionAssignments: []PositionPermission{{PermissionGroup: group(1, a)}}}},
		PermissionGroupAssignments: []EmployeePermissionGroup{{PermissionGroup: group(2, b)}},
	}
	second := &Employee{
		Positions:                  []Position{{PermissionAssignments: []PositionPermission{{PermissionGroup: group(2, b)}}}},
		PermissionGroupAssignments: []EmployeePermissionGroup{{PermissionGroup: group(1, a)}},
	}
	assert.Equal(t, ResolvePermissions(first).Names(), ResolvePermissions(second).Names())
}

func TestPermissionSet_HasAnyHasAll(t *testing.T) {
	set := PermissionSet{1: {ID: 1, Name: "x"}}
	assert.True(t, set.HasAny("y", "x"))
	assert.False(t, set.HasAny("y", "z"))
	assert.False(t, set.HasAny())
	assert.True(t, set.HasAll("x"))
	assert.False(t, set.HasAll("x", "y"))
}

func TestResolveGroups_SkipsMissingGroups(t *testing.T) {
	e := &Employee{PermissionGroupAssignments: []EmployeePermissionGroup{{PermissionGroupID: 5}}}
	assert.Empty(t, ResolveGroups(e))
}
