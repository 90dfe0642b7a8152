package models

import "time"

// IncidentStatus is a step of the linear incident workflow.
type IncidentStatus string

const (
	IncidentReported IncidentStatus = "reported"
	IncidentAnalysis IncidentStatus = "analysis"
	IncidentResponse IncidentStatus = "response"
	IncidentAction   IncidentStatus = "action"
	IncidentClosed   IncidentStatus = "closed"
)

// incidentSequence is the only order an incident may move through.
var incidentSequence = []IncidentStatus{
	IncidentReported,
	IncidentAnalysis,
	IncidentResponse,
	IncidentAction,
	IncidentClosed,
}

var IncidentStatusLabels = map[IncidentStatus]string{
	IncidentReported: "Zgłoszony",
	IncidentAnalysis: "Analiza",
	IncidentResponse: "Reakcja",
	IncidentAction:   "Działanie",
	IncidentClosed:   "Zakończony",
}

func (s IncidentStatus) Valid() bool {
	_, ok := IncidentStatusLabels[s]
	return ok
}

// Next returns the status following s. The second result is false when s is
// terminal or unknown.
func (s IncidentStatus) Next() (IncidentStatus, bool) {
	for i, st := range incidentSequence {
		if st == s && i < len(incidentSequence)-1 {
			return incidentSequence[i+1], true
		}
	}
	return "", false
}

type IncidentCategory string

var IncidentCategoryLabels = map[IncidentCategory]string{
	"malware":             "Złośliwe oprogramowanie",
	"phishing":            "Phishing",
	"unauthorized_access": "Nieautoryzowany dostęp",
	"data_leak":           "Wyciek danych",
	"hardware_failure":    "Awaria sprzętu",
	"software_failure":    "Awaria oprogramowania",
	"human_error":         "Błąd ludzki",
	"physical_security":   "Bezpieczeństwo fizyczne",
	"other":               "Inny",
}

func (c IncidentCategory) Valid() bool {
	_, ok := IncidentCategoryLabels[c]
	return ok
}

// Incident is a reported security incident.
type Incident struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	Title         string         `json:"title" gorm:"not null"`
	Description   string         `json:"description" gorm:"not null"`
	OccurredAt    time.Time      `json:"occurred_at"`
	Circumstances string         `json:"circumstances"`
	Status        IncidentStatus `json:"status" gorm:"not null;default:'reported';index"`

	IsSerious            bool              `json:"is_serious"`
	InvolvesPersonalData bool              `json:"involves_personal_data"`
	Severity             *Criticality      `json:"severity"`
	Category             *IncidentCategory `json:"category"`
	AnalysisNotes        string            `json:"analysis_notes"`

	ResponseActions string `json:"response_actions"`
	ResponseNotes   string `json:"response_notes"`

	PostIncidentActions string `json:"post_incident_actions"`
	Conclusions         string `json:"conclusions"`

	ReporterID   uint       `json:"reporter_id" gorm:"not null;index"`
	AssignedToID *uint      `json:"assigned_to_id" gorm:"index"`
	ReportedAt   time.Time  `json:"reported_at"`
	ClosedAt     *time.Time `json:"closed_at"`

	Reporter       *User          `json:"reporter,omitempty"`
	AssignedTo     *Employee      `json:"assigned_to,omitempty"`
	AffectedAssets []Asset        `json:"affected_assets,omitempty" gorm:"many2many:incident_assets;"`
	Notes          []IncidentNote `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (i *Incident) String() string { return i.Title }

// IsClosed reports whether the incident reached the terminal status.
func (i *Incident) IsClosed() bool { return i.Status == IncidentClosed }

type IncidentNoteType string

var IncidentNoteTypeLabels = map[IncidentNoteType]string{
	"comment":  "Komentarz",
	"analysis": "Analiza",
	"response": "Reakcja",
	"action":   "Działanie",
	"info":     "Informacja",
}

func (t IncidentNoteType) Valid() bool {
	_, ok := IncidentNoteTypeLabels[t]
	return ok
}

// IncidentNote is a free-form note attached to an incident.
type IncidentNote struct {
	ID         uint             `json:"id" gorm:"primaryKey"`
	IncidentID uint             `json:"incident_id" gorm:"not null;index"`
	AuthorID   *uint            `json:"author_id" gorm:"index"`
	NoteType   IncidentNoteType `json:"note_type" gorm:"not null;default:'comment'"`
	Content    string           `json:"content" gorm:"not null"`
	Author     *User            `json:"author,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

type IncidentLogAction string

const (
	IncidentLogCreated       IncidentLogAction = "created"
	IncidentLogUpdated       IncidentLogAction = "updated"
	IncidentLogStatusChanged IncidentLogAction = "status_changed"
	IncidentLogAssigned      IncidentLogAction = "assigned"
	IncidentLogNoteAdded     IncidentLogAction = "note_added"
	IncidentLogClosed        IncidentLogAction = "closed"
)

// IncidentLog is the append-only history of a single incident.
type IncidentLog struct {
	ID          uint              `json:"id" gorm:"primaryKey"`
	IncidentID  uint              `json:"incident_id" gorm:"not null;index"`
	UserID      *uint             `json:"user_id" gorm:"index"`
	Action      IncidentLogAction `json:"action" gorm:"not null"`
	Description string            `json:"description"`
	User        *User             `json:"user,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}
