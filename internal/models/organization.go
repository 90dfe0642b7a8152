package models

import "time"

// Organization is the root tenant. A deployment normally has a single main
// organization; Parent allows modelling subsidiaries.
type Organization struct {
	ID          uint          `json:"id" gorm:"primaryKey"`
	Name        string        `json:"name" gorm:"not null"`
	ShortName   string        `json:"short_name"`
	Description string        `json:"description"`
	Address     string        `json:"address"`
	Phone       string        `json:"phone"`
	Email       string        `json:"email"`
	Website     string        `json:"website"`
	NIP         string        `json:"nip"`
	REGON       string        `json:"regon"`
	ParentID    *uint         `json:"parent_id" gorm:"index"`
	Parent      *Organization `json:"-"`
	CreatedByID *uint         `json:"created_by_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (o *Organization) String() string { return o.Name }

// Department belongs to one organization and may be nested under another
// department of the same organization.
type Department struct {
	ID             uint   `json:"id" gorm:"primaryKey"`
	OrganizationID uint   `json:"organization_id" gorm:"not null;index"`
	ParentID       *uint  `json:"parent_id" gorm:"index"`
	Name           string `json:"name" gorm:"not null"`
	Description    string `json:"description"`

	Parent                *Department            `json:"-"`
	Children              []Department           `json:"children,omitempty" gorm:"foreignKey:ParentID"`
	Positions             []Position             `json:"positions,omitempty"`
	PermissionAssignments []DepartmentPermission `json:"permission_assignments,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d *Department) String() string { return d.Name }

// Position is a job role. The department link is optional.
type Position struct {
	ID             uint   `json:"id" gorm:"primaryKey"`
	OrganizationID uint   `json:"organization_id" gorm:"not null;index"`
	DepartmentID   *uint  `json:"department_id" gorm:"index"`
	Name           string `json:"name" gorm:"not null"`
	Description    string `json:"description"`

	Department            *Department          `json:"department,omitempty"`
	PermissionAssignments []PositionPermission `json:"permission_assignments,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Position) String() string { return p.Name }
