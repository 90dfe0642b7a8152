package models

import (
	"fmt"
	"time"
)

// ISODomain is a top-level chapter of the control catalog, e.g. A.5.
type ISODomain struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	Code       string         `json:"code" gorm:"uniqueIndex;not null"`
	Name       string         `json:"name" gorm:"not null"`
	Objectives []ISOObjective `json:"objectives,omitempty" gorm:"foreignKey:DomainID"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (ISODomain) TableName() string { return "iso_domains" }

func (d *ISODomain) String() string { return fmt.Sprintf("%s %s", d.Code, d.Name) }

// ISOObjective is a control objective inside a domain.
type ISOObjective struct {
	ID            uint             `json:"id" gorm:"primaryKey"`
	DomainID      uint             `json:"domain_id" gorm:"not null;uniqueIndex:idx_objective_code"`
	Code          string           `json:"code" gorm:"not null;uniqueIndex:idx_objective_code"`
	Name          string           `json:"name" gorm:"not null"`
	ObjectiveText string           `json:"objective_text"`
	Domain        *ISODomain       `json:"domain,omitempty" gorm:"foreignKey:DomainID"`
	Requirements  []ISORequirement `json:"requirements,omitempty" gorm:"foreignKey:ObjectiveID"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func (ISOObjective) TableName() string { return "iso_objectives" }

func (o *ISOObjective) String() string { return fmt.Sprintf("%s %s", o.Code, o.Name) }

// AppliedStatus says whether a requirement is implemented.
type AppliedStatus string

const (
	AppliedYes           AppliedStatus = "yes"
	AppliedNo            AppliedStatus = "no"
	AppliedPartial       AppliedStatus = "partial"
	AppliedNotApplicable AppliedStatus = "not_applicable"
)

var AppliedStatusLabels = map[AppliedStatus]string{
	AppliedYes:           "Tak",
	AppliedNo:            "Nie",
	AppliedPartial:       "Częściowo",
	AppliedNotApplicable: "Nie dotyczy",
}

func (s AppliedStatus) Valid() bool {
	_, ok := AppliedStatusLabels[s]
	return ok
}

// ISORequirement is a single control of the catalog.
type ISORequirement struct {
	ID                   uint          `json:"id" gorm:"primaryKey"`
	ObjectiveID          uint          `json:"objective_id" gorm:"not null;index"`
	ISOID                string        `json:"iso_id" gorm:"column:iso_id;uniqueIndex;not null"`
	Name                 string        `json:"name" gorm:"not null"`
	Description          string        `json:"description"`
	IsApplied            AppliedStatus `json:"is_applied" gorm:"not null;default:'no'"`
	ImplementationMethod string        `json:"implementation_method"`
	Notes                string        `json:"notes"`
	CreatedByID          *uint         `json:"created_by_id"`
	UpdatedByID          *uint         `json:"updated_by_id"`
	Objective            *ISOObjective `json:"objective,omitempty" gorm:"foreignKey:ObjectiveID"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

func (ISORequirement) TableName() string { return "iso_requirements" }

func (r *ISORequirement) String() string { return fmt.Sprintf("%s %s", r.ISOID, r.Name) }
