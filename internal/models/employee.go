package models

import (
	"strings"
	"time"
)

// Employee links a login account to the organization directory. Every
// permission check for non-superusers goes through an Employee.
type Employee struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	UserID         uint       `json:"user_id" gorm:"uniqueIndex;not null"`
	OrganizationID uint       `json:"organization_id" gorm:"not null;index"`
	DepartmentID   *uint      `json:"department_id" gorm:"index"`
	FirstName      string     `json:"first_name" gorm:"not null"`
	LastName       string     `json:"last_name" gorm:"not null"`
	HireDate       *time.Time `json:"hire_date,omitempty"`
	IsActive       bool       `json:"is_active"`

	User                       *User                     `json:"user,omitempty"`
	Organization               *Organization             `json:"-"`
	Department                 *Department               `json:"department,omitempty"`
	Positions                  []Position                `json:"positions,omitempty" gorm:"many2many:employee_positions;"`
	PermissionGroupAssignments []EmployeePermissionGroup `json:"permission_group_assignments,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName joins first and last name.
func (e *Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

func (e *Employee) String() string {
	if e == nil {
		return ""
	}
	return e.FullName()
}
