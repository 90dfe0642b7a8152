package models

import "time"

// PermissionCategory groups permissions by module.
type PermissionCategory string

const (
	CategoryDocuments   PermissionCategory = "documents"
	CategoryAssets      PermissionCategory = "assets"
	CategoryIncidents   PermissionCategory = "incidents"
	CategoryCompliance  PermissionCategory = "compliance"
	CategoryDictionary  PermissionCategory = "dictionary"
	CategoryActivityLog PermissionCategory = "activity_log"
	CategorySystem      PermissionCategory = "system"
)

// PermissionCategoryLabels holds the display names shown next to categories.
var PermissionCategoryLabels = map[PermissionCategory]string{
	CategoryCompliance:  "Deklaracje zgodności",
	CategoryDocuments:   "Dokumenty",
	CategoryActivityLog: "Dziennik zdarzeń",
	CategoryIncidents:   "Incydenty bezpieczeństwa",
	CategoryAssets:      "Rejestr aktywów",
	CategoryDictionary:  "Wymagania standardów i przepisów",
	CategorySystem:      "System",
}

// Valid reports whether c is a known category.
func (c PermissionCategory) Valid() bool {
	_, ok := PermissionCategoryLabels[c]
	return ok
}

// Permission is a single named capability. Handlers refer to permissions by
// name, so names are unique.
type Permission struct {
	ID          uint               `json:"id" gorm:"primaryKey"`
	Name        string             `json:"name" gorm:"uniqueIndex;not null"`
	Description string             `json:"description"`
	Category    PermissionCategory `json:"category" gorm:"not null;default:'system'"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Permission) String() string { return p.Name }

// PermissionGroup bundles permissions and is the unit of assignment.
type PermissionGroup struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	Name        string       `json:"name" gorm:"uniqueIndex;not null"`
	Description string       `json:"description"`
	Permissions []Permission `json:"permissions,omitempty" gorm:"many2many:permission_group_permissions;"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (g *PermissionGroup) String() string { return g.Name }

// PositionPermission assigns a group to a position.
type PositionPermission struct {
	ID                uint             `json:"id" gorm:"primaryKey"`
	PositionID        uint             `json:"position_id" gorm:"not null;uniqueIndex:idx_position_group"`
	PermissionGroupID uint             `json:"permission_group_id" gorm:"not null;uniqueIndex:idx_position_group"`
	PermissionGroup   *PermissionGroup `json:"permission_group,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
}

// DepartmentPermission assigns a group to a department; every employee of
// the department inherits it.
type DepartmentPermission struct {
	ID                uint             `json:"id" gorm:"primaryKey"`
	DepartmentID      uint             `json:"department_id" gorm:"not null;uniqueIndex:idx_department_group"`
	PermissionGroupID uint             `json:"permission_group_id" gorm:"not null;uniqueIndex:idx_department_group"`
	PermissionGroup   *PermissionGroup `json:"permission_group,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
}

// EmployeePermissionGroup assigns a group directly to an employee.
type EmployeePermissionGroup struct {
	ID                uint             `json:"id" gorm:"primaryKey"`
	EmployeeID        uint             `json:"employee_id" gorm:"not null;uniqueIndex:idx_employee_group"`
	PermissionGroupID uint             `json:"permission_group_id" gorm:"not null;uniqueIndex:idx_employee_group"`
	PermissionGroup   *PermissionGroup `json:"permission_group,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
}
