package models

import "sort"

// EmployeePermissionPreloads lists the associations ResolvePermissions walks.
// Callers load an Employee with these before resolving.
var EmployeePermissionPreloads = []string{
	"Positions.PermissionAssignments.PermissionGroup.Permissions",
	"Department.PermissionAssignments.PermissionGroup.Permissions",
	"PermissionGroupAssignments.PermissionGroup.Permissions",
}

// PermissionSet is a set of permissions keyed by permission ID.
type PermissionSet map[uint]Permission

// ResolvePermissions returns the union of permissions reachable from e
// through its positions' groups, its department's groups and its directly
// assigned groups. A nil employee resolves to the empty set.
func ResolvePermissions(e *Employee) PermissionSet {
	set := PermissionSet{}
	if e == nil {
		return set
	}
	for _, g := range ResolveGroups(e) {
		for _, p := range g.Permissions {
			set[p.ID] = p
		}
	}
	return set
}

// ResolveGroups returns every permission group reachable from e, keyed by ID.
func ResolveGroups(e *Employee) map[uint]*PermissionGroup {
	groups := map[uint]*PermissionGroup{}
	if e == nil {
		return groups
	}
	add := func(g *PermissionGroup) {
		if g != nil {
			groups[g.ID] = g
		}
	}
	for i := range e.Positions {
		for j := range e.Positions[i].PermissionAssignments {
			add(e.Positions[i].PermissionAssignments[j].PermissionGroup)
		}
	}
	if e.Department != nil {
		for j := range e.Department.PermissionAssignments {
			add(e.Department.PermissionAssignments[j].PermissionGroup)
		}
	}
	for j := range e.PermissionGroupAssignments {
		add(e.PermissionGroupAssignments[j].PermissionGroup)
	}
	return groups
}

// Names returns the permission names in sorted order.
func (s PermissionSet) Names() []string {
	names := make([]string, 0, len(s))
	for _, p := range s {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a permission with the given name is in the set.
func (s PermissionSet) Has(name string) bool {
	for _, p := range s {
		if p.Name == name {
			return true
		}
	}
	return false
}

// HasAny reports whether at least one of names is held.
func (s PermissionSet) HasAny(names ...string) bool {
	for _, n := range names {
		if s.Has(n) {
			return true
		}
	}
	return false
}

// HasAll reports whether every one of names is held.
func (s PermissionSet) HasAll(names ...string) bool {
	for _, n := range names {
		if !s.Has(n) {
			return false
		}
	}
	return true
}

// HasCategory reports whether any held permission belongs to c.
func (s PermissionSet) HasCategory(c PermissionCategory) bool {
	for _, p := range s {
		if p.Category == c {
			return true
		}
	}
	return false
}
