package matrix

import (
	"fmt"
	"testing"

	"github.com/goconsole/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	menuDefects = Menu{AppKey: "defects", Label: "缺陷跟踪", Permissions: []string{"read:a", "write:b"}}
	menuReports = Menu{AppKey: "reports", Label: "周报", Permissions: []string{"manage:c"}}
	menuEmpty   = Menu{AppKey: "empty", Label: "空菜单"}
)

func TestComputeCellStatus(t *testing.T) {
	tests := []struct {
		name  string
		perms []string
		menu  Menu
		want  CellStatus
	}{
		{"full", []string{"read:a", "write:b"}, menuDefects, StatusFull},
		{"full with duplicates and other menus", []string{"write:b", "manage:c", "read:a", "write:b"}, menuDefects, StatusFull},
		{"partial", []string{"read:a"}, menuDefects, StatusPartial},
		{"none", []string{"manage:c"}, menuDefects, StatusNone},
		{"empty role", nil, menuDefects, StatusNone},
		{"empty menu", []string{"read:a", "write:b", "manage:c"}, menuEmpty, StatusNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeCellStatus(Role{Key: "r", Permissions: tt.perms}, tt.menu))
		})
	}
}

func TestMergeMenuPermissionsIsolatesOtherMenus(t *testing.T) {
	role := Role{Key: "ops", Permissions: []string{"read:a", "write:b", "manage:c"}}

	merged, err := MergeMenuPermissions(role, menuDefects, []string{"write:b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"manage:c", "write:b"}, merged)
}

func TestMergeMenuPermissionsSortsAndDedupes(t *testing.T) {
	role := Role{Key: "ops", Permissions: []string{"manage:c", "manage:c"}}

	merged, err := MergeMenuPermissions(role, menuDefects, []string{"write:b", "read:a", "write:b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"manage:c", "read:a", "write:b"}, merged)
}

func TestMergeMenuPermissionsClearsMenu(t *testing.T) {
	role := Role{Key: "ops", Permissions: []string{"read:a", "manage:c"}}

	merged, err := MergeMenuPermissions(role, menuDefects, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"manage:c"}, merged)
}

func TestMergeMenuPermissionsRejectsBuiltIn(t *testing.T) {
	role := Role{Key: "super_admin", BuiltIn: true, Permissions: []string{"write:b", "read:a"}}

	merged, err := MergeMenuPermissions(role, menuDefects, []string{})
	assert.ErrorIs(t, err, errors.ErrBuiltInRole)
	assert.Equal(t, []string{"write:b", "read:a"}, merged)
}

func TestMergeMenuPermissionsRejectsForeignKeys(t *testing.T) {
	role := Role{Key: "ops", Permissions: []string{"manage:c"}}

	merged, err := MergeMenuPermissions(role, menuDefects, []string{"manage:c"})
	assert.ErrorIs(t, err, errors.ErrValidation)
	assert.Equal(t, []string{"manage:c"}, merged)
}

func TestMergeTwiceHasNoChanges(t *testing.T) {
	role := Role{Key: "ops", Permissions: []string{"read:a", "manage:c"}}
	selection := []string{"write:b"}

	merged, err := MergeMenuPermissions(role, menuDefects, selection)
	require.NoError(t, err)
	role.Permissions = merged

	assert.False(t, HasChanges(selection, SelectionFor(role, menuDefects)))

	again, err := MergeMenuPermissions(role, menuDefects, selection)
	require.NoError(t, err)
	assert.Equal(t, merged, again)
}

func TestToggleSelection(t *testing.T) {
	assert.Equal(t, []string{"read:a", "write:b"}, ToggleSelection([]string{"write:b"}, "read:a", false))
	assert.Equal(t, []string{"write:b"}, ToggleSelection([]string{"write:b", "read:a"}, "read:a", false))
	assert.Equal(t, []string{"write:b"}, ToggleSelection([]string{"write:b"}, "read:a", true))
	assert.Equal(t, []string{"read:a"}, ToggleSelection(nil, "read:a", false))
}

func TestHasChanges(t *testing.T) {
	assert.False(t, HasChanges([]string{"a", "b"}, []string{"b", "a", "a"}))
	assert.True(t, HasChanges([]string{"a", "c"}, []string{"a", "b"}), "same size, different members")
	assert.True(t, HasChanges([]string{"a"}, nil))
	assert.False(t, HasChanges(nil, []string{}))
}

func TestSelectionFor(t *testing.T) {
	role := Role{Permissions: []string{"write:b", "manage:c"}}
	assert.Equal(t, []string{"write:b"}, SelectionFor(role, menuDefects))
	assert.Empty(t, SelectionFor(role, menuEmpty))
}

func TestBuildMatrix(t *testing.T) {
	catalog := Catalog{
		Roles: []Role{
			{Key: "super_admin", BuiltIn: true, Permissions: []string{"read:a", "write:b", "manage:c"}},
			{Key: "ops", Permissions: []string{"read:a"}},
		},
		Menus: []Menu{menuDefects, menuReports, menuEmpty},
	}

	rows := BuildMatrix(catalog)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].BuiltIn)
	assert.Equal(t, map[string]CellStatus{"defects": StatusFull, "reports": StatusFull, "empty": StatusNone}, rows[0].Cells)
	assert.Equal(t, map[string]CellStatus{"defects": StatusPartial, "reports": StatusNone, "empty": StatusNone}, rows[1].Cells)
}

func TestCatalogLookups(t *testing.T) {
	catalog := Catalog{
		Roles: []Role{{Key: "ops"}},
		Menus: []Menu{menuDefects, menuReports},
	}

	_, ok := catalog.FindRole("ops")
	assert.True(t, ok)
	_, ok = catalog.FindMenu("missing")
	assert.False(t, ok)

	appKey, ok := catalog.MenuOf("manage:c")
	assert.True(t, ok)
	assert.Equal(t, "reports", appKey)
}

func TestCategoryValid(t *testing.T) {
	assert.True(t, CategorySuper.Valid())
	assert.False(t, Category("admin").Valid())
}

func ExampleMergeMenuPermissions() {
	role := Role{Key: "ops", Permissions: []string{"read:a", "write:b", "manage:c"}}
	menu := Menu{AppKey: "defects", Permissions: []string{"read:a", "write:b"}}

	merged, _ := MergeMenuPermissions(role, menu, []string{"write:b"})
	fmt.Println(merged)
	// Output: [manage:c write:b]
}
