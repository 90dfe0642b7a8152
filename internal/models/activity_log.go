package models

import (
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrActivityLogImmutable is returned when code tries to change a stored entry.
var ErrActivityLogImmutable = errors.New("activity log entries are immutable")

type ActivityAction string

const (
	ActionCreate   ActivityAction = "create"
	ActionUpdate   ActivityAction = "update"
	ActionDelete   ActivityAction = "delete"
	ActionAssign   ActivityAction = "assign"
	ActionUnassign ActivityAction = "unassign"
	ActionLogin    ActivityAction = "login"
	ActionLogout   ActivityAction = "logout"
	ActionView     ActivityAction = "view"
	ActionExport   ActivityAction = "export"
	ActionImport   ActivityAction = "import"
	ActionOther    ActivityAction = "other"
)

var ActivityActionLabels = map[ActivityAction]string{
	ActionCreate:   "Utworzenie",
	ActionUpdate:   "Aktualizacja",
	ActionDelete:   "Usunięcie",
	ActionAssign:   "Przypisanie",
	ActionUnassign: "Odebranie przypisania",
	ActionLogin:    "Logowanie",
	ActionLogout:   "Wylogowanie",
	ActionView:     "Wyświetlenie",
	ActionExport:   "Eksport",
	ActionImport:   "Import",
	ActionOther:    "Inne",
}

func (a ActivityAction) Valid() bool {
	_, ok := ActivityActionLabels[a]
	return ok
}

// ActivityCategory names the area of the system an entry belongs to.
type ActivityCategory string

const (
	ActivityOrganization    ActivityCategory = "organization"
	ActivityDepartment      ActivityCategory = "department"
	ActivityPosition        ActivityCategory = "position"
	ActivityEmployee        ActivityCategory = "employee"
	ActivityPermission      ActivityCategory = "permission"
	ActivityPermissionGroup ActivityCategory = "permission_group"
	ActivityAsset           ActivityCategory = "asset"
	ActivityIncident        ActivityCategory = "incident"
	ActivityDocument        ActivityCategory = "document"
	ActivityDictionary      ActivityCategory = "dictionary"
	ActivitySoA             ActivityCategory = "soa"
	ActivityAuth            ActivityCategory = "auth"
	ActivitySystem          ActivityCategory = "system"
)

var ActivityCategoryLabels = map[ActivityCategory]string{
	ActivityOrganization:    "Organizacja",
	ActivityDepartment:      "Dział",
	ActivityPosition:        "Stanowisko",
	ActivityEmployee:        "Pracownik",
	ActivityPermission:      "Uprawnienie",
	ActivityPermissionGroup: "Grupa uprawnień",
	ActivityAsset:           "Aktywa",
	ActivityIncident:        "Incydenty",
	ActivityDocument:        "Dokumenty",
	ActivityDictionary:      "Słownik ISO",
	ActivitySoA:             "Deklaracje zgodności",
	ActivityAuth:            "Uwierzytelnianie",
	ActivitySystem:          "System",
}

func (c ActivityCategory) Valid() bool {
	_, ok := ActivityCategoryLabels[c]
	return ok
}

// ActivityLog is one row of the process-wide audit trail. UserID is kept as
// a plain historical reference and UserName snapshots the actor, so entries
// survive deletion of the account.
type ActivityLog struct {
	ID          uint              `json:"id" gorm:"primaryKey"`
	UserID      *uint             `json:"user_id" gorm:"index"`
	UserName    string            `json:"user_name"`
	Action      ActivityAction    `json:"action" gorm:"not null;index"`
	Category    ActivityCategory  `json:"category" gorm:"not null;index"`
	ObjectType  string            `json:"object_type"`
	ObjectID    *uint             `json:"object_id"`
	ObjectRepr  string            `json:"object_repr" gorm:"size:200"`
	Description string            `json:"description"`
	Details     datatypes.JSONMap `json:"details,omitempty"`
	IPAddress   string            `json:"ip_address"`
	UserAgent   string            `json:"user_agent"`
	CreatedAt   time.Time         `json:"created_at" gorm:"index"`
}

func (l *ActivityLog) BeforeUpdate(tx *gorm.DB) error {
	return ErrActivityLogImmutable
}

func (l *ActivityLog) BeforeDelete(tx *gorm.DB) error {
	return ErrActivityLogImmutable
}
