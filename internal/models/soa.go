package models

import (
	"fmt"
	"time"
)

// SoAStatus is advisory: any status may be set from any other.
type SoAStatus string

const (
	SoADraft    SoAStatus = "draft"
	SoAReview   SoAStatus = "review"
	SoAApproved SoAStatus = "approved"
	SoACurrent  SoAStatus = "current"
	SoAArchived SoAStatus = "archived"
)

var SoAStatusLabels = map[SoAStatus]string{
	SoADraft:    "Szkic",
	SoAReview:   "W przeglądzie",
	SoAApproved: "Zatwierdzona",
	SoACurrent:  "Obowiązująca",
	SoAArchived: "Archiwalna",
}

func (s SoAStatus) Valid() bool {
	_, ok := SoAStatusLabels[s]
	return ok
}

// SoADeclaration is a Statement of Applicability.
type SoADeclaration struct {
	ID            uint       `json:"id" gorm:"primaryKey"`
	Designation   string     `json:"designation" gorm:"uniqueIndex;not null"`
	Name          string     `json:"name" gorm:"not null"`
	Description   string     `json:"description"`
	Version       string     `json:"version" gorm:"not null;default:'1.0'"`
	Status        SoAStatus  `json:"status" gorm:"not null;default:'draft'"`
	OwnerID       uint       `json:"owner_id" gorm:"not null;index"`
	EffectiveDate *time.Time `json:"effective_date,omitempty"`
	CreatedByID   *uint      `json:"created_by_id"`

	Owner   *Employee  `json:"owner,omitempty"`
	Entries []SoAEntry `json:"entries,omitempty" gorm:"foreignKey:DeclarationID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SoADeclaration) TableName() string { return "soa_declarations" }

func (d *SoADeclaration) String() string { return fmt.Sprintf("[%s] %s", d.Designation, d.Name) }

type Applicability string

var ApplicabilityLabels = map[Applicability]string{
	"applicable":     "Stosowane",
	"not_applicable": "Niestosowane",
	"partial":        "Częściowo stosowane",
}

func (a Applicability) Valid() bool {
	_, ok := ApplicabilityLabels[a]
	return ok
}

// SoAEntry declares the applicability of one requirement within a
// declaration. A requirement appears at most once per declaration.
type SoAEntry struct {
	ID                    uint          `json:"id" gorm:"primaryKey"`
	DeclarationID         uint          `json:"declaration_id" gorm:"not null;uniqueIndex:idx_soa_entry"`
	RequirementID         uint          `json:"requirement_id" gorm:"not null;uniqueIndex:idx_soa_entry"`
	Applicability         Applicability `json:"applicability" gorm:"not null;default:'applicable'"`
	ResponsiblePersonID   *uint         `json:"responsible_person_id" gorm:"index"`
	Justification         string        `json:"justification"`
	AdditionalDescription string        `json:"additional_description"`

	Requirement       *ISORequirement `json:"requirement,omitempty" gorm:"foreignKey:RequirementID"`
	ResponsiblePerson *Employee       `json:"responsible_person,omitempty" gorm:"foreignKey:ResponsiblePersonID"`
	RelatedDocuments  []Document      `json:"related_documents,omitempty" gorm:"many2many:soa_entry_documents;joinForeignKey:EntryID;joinReferences:DocumentID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SoAEntry) TableName() string { return "soa_entries" }

func (e *SoAEntry) String() string {
	if e.Requirement != nil {
		return e.Requirement.String()
	}
	return fmt.Sprintf("Wpis #%d", e.ID)
}

type SoALogAction string

const (
	SoALogCreated       SoALogAction = "created"
	SoALogUpdated       SoALogAction = "updated"
	SoALogStatusChanged SoALogAction = "status_changed"
	SoALogEntryAdded    SoALogAction = "entry_added"
	SoALogEntryUpdated  SoALogAction = "entry_updated"
	SoALogEntryRemoved  SoALogAction = "entry_removed"
)

// SoALog is the append-only history of a declaration.
type SoALog struct {
	ID            uint         `json:"id" gorm:"primaryKey"`
	DeclarationID uint         `json:"declaration_id" gorm:"not null;index"`
	UserID        *uint        `json:"user_id" gorm:"index"`
	Action        SoALogAction `json:"action" gorm:"not null"`
	Description   string       `json:"description"`
	User          *User        `json:"user,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

func (SoALog) TableName() string { return "soa_logs" }
