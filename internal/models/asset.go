package models

import (
	"fmt"
	"time"
)

// AssetCategory groups assets, e.g. HW, SW, DATA.
type AssetCategory struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"not null"`
	Code        string `json:"code" gorm:"uniqueIndex;not null"`
	Description string `json:"description"`
	ParentID    *uint  `json:"parent_id" gorm:"index"`

	Parent        *AssetCategory  `json:"-"`
	Subcategories []AssetCategory `json:"subcategories,omitempty" gorm:"foreignKey:ParentID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *AssetCategory) String() string { return fmt.Sprintf("[%s] %s", c.Code, c.Name) }

type AssetStatus string

const (
	AssetActive   AssetStatus = "active"
	AssetInactive AssetStatus = "inactive"
	AssetInRepair AssetStatus = "in_repair"
	AssetDisposed AssetStatus = "disposed"
	AssetPlanned  AssetStatus = "planned"
)

var AssetStatusLabels = map[AssetStatus]string{
	AssetActive:   "Aktywny",
	AssetInactive: "Nieaktywny",
	AssetInRepair: "W naprawie",
	AssetDisposed: "Zlikwidowany",
	AssetPlanned:  "Planowany",
}

func (s AssetStatus) Valid() bool {
	_, ok := AssetStatusLabels[s]
	return ok
}

// Criticality is shared by assets and incident severity.
type Criticality string

const (
	CriticalityLow      Criticality = "low"
	CriticalityMedium   Criticality = "medium"
	CriticalityHigh     Criticality = "high"
	CriticalityCritical Criticality = "critical"
)

var CriticalityLabels = map[Criticality]string{
	CriticalityLow:      "Niska",
	CriticalityMedium:   "Średnia",
	CriticalityHigh:     "Wysoka",
	CriticalityCritical: "Krytyczna",
}

func (c Criticality) Valid() bool {
	_, ok := CriticalityLabels[c]
	return ok
}

// Asset is a single entry of the asset registry.
type Asset struct {
	ID              uint        `json:"id" gorm:"primaryKey"`
	Designation     string      `json:"designation" gorm:"uniqueIndex;not null"`
	Name            string      `json:"name" gorm:"not null"`
	Description     string      `json:"description"`
	CategoryID      uint        `json:"category_id" gorm:"not null;index"`
	Status          AssetStatus `json:"status" gorm:"not null;default:'active'"`
	Criticality     Criticality `json:"criticality" gorm:"not null;default:'medium'"`
	OwnerID         uint        `json:"owner_id" gorm:"not null;index"`
	DepartmentID    *uint       `json:"department_id" gorm:"index"`
	Location        string      `json:"location"`
	AcquisitionDate *time.Time  `json:"acquisition_date,omitempty"`
	WarrantyExpiry  *time.Time  `json:"warranty_expiry,omitempty"`
	Value           *float64    `json:"value,omitempty" gorm:"type:decimal(12,2)"`
	CreatedByID     *uint       `json:"created_by_id"`

	Category   *AssetCategory `json:"category,omitempty"`
	Owner      *Employee      `json:"owner,omitempty"`
	Department *Department    `json:"department,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Asset) String() string { return fmt.Sprintf("[%s] %s", a.Designation, a.Name) }

type AssetLogAction string

const (
	AssetLogCreated       AssetLogAction = "created"
	AssetLogUpdated       AssetLogAction = "updated"
	AssetLogStatusChanged AssetLogAction = "status_changed"
	AssetLogOwnerChanged  AssetLogAction = "owner_changed"
	AssetLogDisposed      AssetLogAction = "disposed"
)

// AssetLog is the append-only history of a single asset.
type AssetLog struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	AssetID     uint           `json:"asset_id" gorm:"not null;index"`
	UserID      *uint          `json:"user_id" gorm:"index"`
	Action      AssetLogAction `json:"action" gorm:"not null"`
	Description string         `json:"description"`
	User        *User          `json:"user,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
