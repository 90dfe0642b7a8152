package models

import (
	"fmt"
	"time"
)

// DocumentStatus is a state of the document workflow.
type DocumentStatus string

const (
	DocumentDraft     DocumentStatus = "draft"
	DocumentReview    DocumentStatus = "review"
	DocumentApproval  DocumentStatus = "approval"
	DocumentPublished DocumentStatus = "published"
	DocumentArchived  DocumentStatus = "archived"
)

var DocumentStatusLabels = map[DocumentStatus]string{
	DocumentDraft:     "Szkic",
	DocumentReview:    "W przeglądzie",
	DocumentApproval:  "Oczekuje na zatwierdzenie",
	DocumentPublished: "Opublikowany",
	DocumentArchived:  "Zarchiwizowany",
}

// documentTransitions is the fixed workflow table.
var documentTransitions = map[DocumentStatus][]DocumentStatus{
	DocumentDraft:     {DocumentReview},
	DocumentReview:    {DocumentDraft, DocumentApproval},
	DocumentApproval:  {DocumentReview, DocumentPublished},
	DocumentPublished: {DocumentArchived},
	DocumentArchived:  {DocumentDraft},
}

func (s DocumentStatus) Valid() bool {
	_, ok := DocumentStatusLabels[s]
	return ok
}

// AllowedTransitions returns the statuses reachable from s. Unknown statuses
// have none.
func (s DocumentStatus) AllowedTransitions() []DocumentStatus {
	row := documentTransitions[s]
	out := make([]DocumentStatus, len(row))
	copy(out, row)
	return out
}

// CanTransitionTo reports whether target appears in the table row for s.
func (s DocumentStatus) CanTransitionTo(target DocumentStatus) bool {
	for _, t := range documentTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

type DocumentType string

var DocumentTypeLabels = map[DocumentType]string{
	"policy":      "Polityka",
	"procedure":   "Procedura",
	"instruction": "Instrukcja",
	"regulation":  "Regulamin",
	"plan":        "Plan",
	"report":      "Raport",
	"record":      "Zapis",
	"other":       "Inny",
}

func (t DocumentType) Valid() bool {
	_, ok := DocumentTypeLabels[t]
	return ok
}

// Document is a controlled ISMS document.
type Document struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	Designation  string         `json:"designation" gorm:"uniqueIndex;not null"`
	Title        string         `json:"title" gorm:"not null"`
	DocumentType DocumentType   `json:"document_type" gorm:"not null;default:'other'"`
	Description  string         `json:"description"`
	OwnerID      uint           `json:"owner_id" gorm:"not null;index"`
	Status       DocumentStatus `json:"status" gorm:"not null;default:'draft';index"`

	Owner            *Employee                 `json:"owner,omitempty"`
	Versions         []DocumentVersion         `json:"versions,omitempty"`
	AccessEntries    []DocumentAccess          `json:"access_entries,omitempty"`
	ISOMappings      []DocumentISOMapping      `json:"iso_mappings,omitempty"`
	Acknowledgements []DocumentAcknowledgement `json:"acknowledgements,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d *Document) String() string { return fmt.Sprintf("[%s] %s", d.Designation, d.Title) }

// DocumentVersion records version metadata. At most one version per document
// is current.
type DocumentVersion struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	DocumentID        uint      `json:"document_id" gorm:"not null;index"`
	VersionNumber     string    `json:"version_number" gorm:"not null"`
	FileName          string    `json:"file_name"`
	IsCurrent         bool      `json:"is_current"`
	CreatedByID       uint      `json:"created_by_id" gorm:"not null;index"`
	ChangeDescription string    `json:"change_description"`
	CreatedBy         *User     `json:"created_by,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

type DocumentLogAction string

const (
	DocumentLogCreated           DocumentLogAction = "created"
	DocumentLogUpdated           DocumentLogAction = "updated"
	DocumentLogStatusChanged     DocumentLogAction = "status_changed"
	DocumentLogVersionAdded      DocumentLogAction = "version_added"
	DocumentLogVersionSetCurrent DocumentLogAction = "version_set_current"
	DocumentLogAccessGranted     DocumentLogAction = "access_granted"
	DocumentLogAccessRevoked     DocumentLogAction = "access_revoked"
	DocumentLogISOLinked         DocumentLogAction = "iso_linked"
	DocumentLogISOUnlinked       DocumentLogAction = "iso_unlinked"
	DocumentLogAcknowledged      DocumentLogAction = "acknowledged"
)

// DocumentLog is the append-only history of a single document. Status
// changes carry the old and new status.
type DocumentLog struct {
	ID          uint              `json:"id" gorm:"primaryKey"`
	DocumentID  uint              `json:"document_id" gorm:"not null;index"`
	UserID      uint              `json:"user_id" gorm:"not null;index"`
	Action      DocumentLogAction `json:"action" gorm:"not null"`
	OldStatus   DocumentStatus    `json:"old_status,omitempty"`
	NewStatus   DocumentStatus    `json:"new_status,omitempty"`
	Description string            `json:"description"`
	User        *User             `json:"user,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

type AccessLevel string

const (
	AccessView   AccessLevel = "view"
	AccessEdit   AccessLevel = "edit"
	AccessManage AccessLevel = "manage"
)

var AccessLevelLabels = map[AccessLevel]string{
	AccessView:   "Podgląd",
	AccessEdit:   "Edycja",
	AccessManage: "Zarządzanie",
}

func (l AccessLevel) Valid() bool {
	_, ok := AccessLevelLabels[l]
	return ok
}

// DocumentAccess shares a document with a permission group.
type DocumentAccess struct {
	ID                uint             `json:"id" gorm:"primaryKey"`
	DocumentID        uint             `json:"document_id" gorm:"not null;uniqueIndex:idx_document_access"`
	PermissionGroupID uint             `json:"permission_group_id" gorm:"not null;uniqueIndex:idx_document_access"`
	AccessLevel       AccessLevel      `json:"access_level" gorm:"not null;default:'view'"`
	GrantedByID       *uint            `json:"granted_by_id"`
	PermissionGroup   *PermissionGroup `json:"permission_group,omitempty"`
	Document          *Document        `json:"document,omitempty"`
	CreatedAt         time.Time        `json:"granted_at"`
}

// DocumentAcknowledgement records that a user has read a document version.
type DocumentAcknowledgement struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	DocumentID uint      `json:"document_id" gorm:"not null;uniqueIndex:idx_document_ack"`
	UserID     uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_document_ack"`
	VersionID  *uint     `json:"version_id" gorm:"uniqueIndex:idx_document_ack"`
	Notes      string    `json:"notes"`
	User       *User     `json:"user,omitempty"`
	CreatedAt  time.Time `json:"acknowledged_at"`
}

type MappingType string

var MappingTypeLabels = map[MappingType]string{
	"primary":  "Główne",
	"supports": "Wspierające",
	"related":  "Powiązane",
}

func (t MappingType) Valid() bool {
	_, ok := MappingTypeLabels[t]
	return ok
}

// DocumentISOMapping links a document to an ISO requirement it implements.
type DocumentISOMapping struct {
	ID               uint            `json:"id" gorm:"primaryKey"`
	DocumentID       uint            `json:"document_id" gorm:"not null;uniqueIndex:idx_document_iso"`
	ISORequirementID uint            `json:"iso_requirement_id" gorm:"column:iso_requirement_id;not null;uniqueIndex:idx_document_iso"`
	MappingType      MappingType     `json:"mapping_type" gorm:"not null;default:'primary'"`
	SectionReference string          `json:"section_reference"`
	Notes            string          `json:"notes"`
	CreatedByID      *uint           `json:"created_by_id"`
	ISORequirement   *ISORequirement `json:"iso_requirement,omitempty" gorm:"foreignKey:ISORequirementID"`
	Document         *Document       `json:"document,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

func (DocumentISOMapping) TableName() string { return "document_iso_mappings" }
