package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Czechuuuu/szbi/internal/logger"
	"github.com/Czechuuuu/szbi/internal/metrics"
	"github.com/Czechuuuu/szbi/internal/models"
)

// IncidentReportInput is the reporting form. OccurredAt accepts RFC 3339 or
// YYYY-MM-DD.
type IncidentReportInput struct {
	Title            string `json:"title" binding:"required,max=255"`
	Description      string `json:"description" binding:"required"`
	OccurredAt       string `json:"occurred_at" binding:"required"`
	Circumstances    string `json:"circumstances"`
	AffectedAssetIDs []uint `json:"affected_asset_ids"`
}

type IncidentAnalysisInput struct {
	IsSerious            bool                     `json:"is_serious"`
	InvolvesPersonalData bool                     `json:"involves_personal_data"`
	Severity             *models.Criticality      `json:"severity"`
	Category             *models.IncidentCategory `json:"category"`
	AnalysisNotes        string                   `json:"analysis_notes"`
}

type IncidentResponseInput struct {
	ResponseActions string `json:"response_actions"`
	ResponseNotes   string `json:"response_notes"`
}

type IncidentActionInput struct {
	PostIncidentActions string `json:"post_incident_actions"`
	Conclusions         string `json:"conclusions"`
}

type IncidentCloseInput struct {
	Conclusions string `json:"conclusions"`
}

type IncidentFilter struct {
	Status   models.IncidentStatus
	Severity models.Criticality
	Category models.IncidentCategory
	Query    string
}

type IncidentService struct {
	db       *gorm.DB
	activity *ActivityService
	notifier Notifier
}

func NewIncidentService(db *gorm.DB, activity *ActivityService, notifier Notifier) *IncidentService {
	return &IncidentService{db: db, activity: activity, notifier: notifier}
}

// CanViewIncident reports whether the actor may open the incident: its reporter, its
// assignee, or a holder of a view-all permission.
func CanViewIncident(a Actor, inc *models.Incident) bool {
	if a.Can(models.IncidentViewAllPermissions...) {
		return true
	}
	if a.User != nil && inc.ReporterID == a.User.ID {
		return true
	}
	return a.Employee != nil && inc.AssignedToID != nil && *inc.AssignedToID == a.Employee.ID
}

// CanManageIncident reports whether the actor may fill phase forms and move
// the incident forward.
func CanManageIncident(a Actor, inc *models.Incident) bool {
	if a.Can(models.PermIncidentsAdmin) {
		return true
	}
	if !a.Permissions.Has(models.PermIncidentsManage) {
		return false
	}
	return a.Employee != nil && inc.AssignedToID != nil && *inc.AssignedToID == a.Employee.ID
}

func parseMoment(v *ValidationError, field, value string) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04", dateLayout} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t
		}
	}
	v.Add(field, "Nieprawidłowa data.")
	return time.Time{}
}

func (s *IncidentService) notify(nType models.NotificationType, title, message string) {
	if s.notifier != nil {
		s.notifier.Notify(EventIncident, nType, title, message)
	}
}

func (s *IncidentService) assetsByID(ids []uint) ([]models.Asset, error) {
	if len(ids) == 0 {
		return []models.Asset{}, nil
	}
	var assets []models.Asset
	if err := s.db.Where("id IN ?", ids).Find(&assets).Error; err != nil {
		return nil, err
	}
	if len(assets) != len(uniqueIDs(ids)) {
		return nil, fieldError("affected_asset_ids", "Wybrano nieistniejące aktywo.")
	}
	return assets, nil
}

func (s *IncidentService) Report(actor Actor, in IncidentReportInput) (*models.Incident, error) {
	if actor.User == nil {
		return nil, ErrPermissionDenied
	}
	v := &ValidationError{}
	if strings.TrimSpace(in.Title) == "" {
		v.Add("title", "To pole jest wymagane.")
	}
	if strings.TrimSpace(in.Description) == "" {
		v.Add("description", "To pole jest wymagane.")
	}
	occurred := parseMoment(v, "occurred_at", in.OccurredAt)
	if err := v.Err(); err != nil {
		return nil, err
	}
	assets, err := s.assetsByID(in.AffectedAssetIDs)
	if err != nil {
		return nil, err
	}

	inc := &models.Incident{
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		OccurredAt:    occurred,
		Circumstances: in.Circumstances,
		Status:        models.IncidentReported,
		ReporterID:    actor.User.ID,
		ReportedAt:    time.Now(),
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("AffectedAssets").Create(inc).Error; err != nil {
			return err
		}
		if len(assets) > 0 {
			if err := tx.Model(inc).Association("AffectedAssets").Replace(assets); err != nil {
				return err
			}
		}
		return tx.Create(&models.IncidentLog{
			IncidentID: inc.ID, UserID: actor.UserID(), Action: models.IncidentLogCreated,
			Description: "Zgłoszono incydent",
		}).Error
	})
	if err != nil {
		return nil, err
	}
	inc.AffectedAssets = assets

	s.activity.Record(actor, ActivityEntry{
		Action: models.ActionCreate, Category: models.ActivityIncident,
		ObjectType: "incident", ObjectID: inc.ID, ObjectRepr: inc.String(),
		Description: fmt.Sprintf("Zgłoszono incydent: %s", inc.Title),
	})
	s.notify(models.NotificationTypeWarning, "Nowy incydent bezpieczeństwa", fmt.Sprintf("%s (zgłosił: %s)", inc.Title, actor.User.String()))
	return inc, nil
}

func (s *IncidentService) load(id uint) (*models.Incident, error) {
	var inc models.Incident
	err := s.db.Preload("Reporter").Preload("AssignedTo").Preload("AffectedAssets").
		Preload("Notes", func(db *gorm.DB) *gorm.DB { return db.Order("created_at desc, id desc") }).
		Preload("Notes.Author").
		First(&inc, id).Error
	if err != nil {
		return nil, translate(err, ErrIncidentNotFound)
	}
	return &inc, nil
}

// Get returns the incident when the actor may see it.
func (s *IncidentService) Get(actor Actor, id uint) (*models.Incident, error) {
	inc, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !CanViewIncident(actor, inc) {
		return nil, ErrPermissionDenied
	}
	return inc, nil
}

func (s *IncidentService) listQuery(f IncidentFilter) *gorm.DB {
	q := s.db.Preload("Reporter").Preload("AssignedTo").Order("reported_at desc, id desc")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Severity != "" {
		q = q.Where("severity = ?", f.Severity)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		like := containsPattern(term)
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	return q
}

// ListMine returns incidents reported by or assigned to the actor.
func (s *IncidentService) ListMine(actor Actor, f IncidentFilter) ([]models.Incident, error) {
	var out []models.Incident
	if actor.User == nil {
		return out, nil
	}
	q := s.listQuery(f)
	if eid := actor.EmployeeID(); eid != nil {
		q = q.Where("reporter_id = ? OR assigned_to_id = ?", actor.User.ID, *eid)
	} else {
		q = q.Where("reporter_id = ?", actor.User.ID)
	}
	return out, q.Find(&out).Error
}

// ListAll returns every incident; callers gate it on a view-all permission.
func (s *IncidentService) ListAll(f IncidentFilter) ([]models.Incident, error) {
	var out []models.Incident
	return out, s.listQuery(f).Find(&out).Error
}

func (s *IncidentService) Logs(id uint) ([]models.IncidentLog, error) {
	var logs []models.IncidentLog
	return logs, s.db.Preload("User").Where("incident_id = ?", id).Order("created_at desc, id desc").Find(&logs).Error
}

// Update edits the reported facts. The reporter may edit while the incident
// is still reported; managers at any time before closing.
func (s *IncidentService) Update(actor Actor, id uint, in IncidentReportInput) (*models.Incident, error) {
	inc, err := s.load(id)
	if err != nil {
		return nil, err
	}
	isReporter := actor.User != nil && actor.User.ID == inc.ReporterID && inc.Status == models.IncidentReported
	if !isReporter && !CanManageIncident(actor, inc) {
		return nil, ErrPermissionDenied
	}
	v := &ValidationError{}
	if strings.TrimSpace(in.Title) == "" {
		v.Add("title", "To pole jest wymagane.")
	}
	if strings.TrimSpace(in.Description) == "" {
		v.Add("description", "To pole jest wymagane.")
	}
	occurred := parseMoment(v, "occurred_at", in.OccurredAt)
	if err := v.Err(); err != nil {
		return nil, err
	}
	assets, err := s.assetsByID(in.AffectedAssetIDs)
	if err != nil {
		return nil, err
	}

	inc.Title = strings.TrimSpace(in.Title)
	inc.Description = in.Description
	inc.OccurredAt = occurred
	inc.Circumstances = in.Circumstances
	return s.save(actor, inc, func(tx *gorm.DB) error {
		return tx.Model(inc).Association("AffectedAssets").Replace(assets)
	}, models.IncidentLogUpdated, "Zaktualizowano zgłoszenie")
}

// SaveAnalysis stores the analysis phase form without touching the status.
func (s *IncidentService) SaveAnalysis(actor Actor, id uint, in IncidentAnalysisInput) (*models.Incident, error) {
	inc, err := s.manageable(actor, id)
	if err != nil {
		return nil, err
	}
	v := &ValidationError{}
	if in.Severity != nil && !in.Severity.Valid() {
		v.Add("severity", "Nieprawidłowa waga.")
	}
	if in.Category != nil && !in.Category.Valid() {
		v.Add("category", "Nieprawidłowa kategoria.")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	inc.IsSerious = in.IsSerious
	inc.InvolvesPersonalData = in.InvolvesPersonalData
	inc.Severity = in.Severity
	inc.Category = in.Category
	inc.AnalysisNotes = in.AnalysisNotes
	return s.save(actor, inc, nil, models.IncidentLogUpdated, "Zapisano analizę incydentu")
}

// SaveResponse stores the response phase form without touching the status.
func (s *IncidentService) SaveResponse(actor Actor, id uint, in IncidentResponseInput) (*models.Incident, error) {
	inc, err := s.manageable(actor, id)
	if err != nil {
		return nil, err
	}
	inc.ResponseActions = in.ResponseActions
	inc.ResponseNotes = in.ResponseNotes
	return s.save(actor, inc, nil, models.IncidentLogUpdated, "Zapisano reakcję na incydent")
}

// SaveAction stores the post-incident action form without touching the status.
func (s *IncidentService) SaveAction(actor Actor, id uint, in IncidentActionInput) (*models.Incident, error) {
	inc, err := s.manageable(actor, id)
	if err != nil {
		return nil, err
	}
	inc.PostIncidentActions = in.PostIncidentActions
	inc.Conclusions = in.Conclusions
	return s.save(actor, inc, nil, models.IncidentLogUpdated, "Zapisano działania poincydentalne")
}

// Close stores the conclusions and moves the incident to closed. closed_at is
// stamped only the first time.
func (s *IncidentService) Close(actor Actor, id uint, in IncidentCloseInput) (*models.Incident, error) {
	inc, err := s.manageable(actor, id)
	if err != nil {
		return nil, err
	}
	old := inc.Status
	if strings.TrimSpace(in.Conclusions) != "" {
		inc.Conclusions = in.Conclusions
	}
	inc.Status = models.IncidentClosed
	stampClosed(inc)

	inc, err = s.save(actor, inc, nil, models.IncidentLogClosed,
		fmt.Sprintf("Zamknięto incydent (%s → %s)", models.IncidentStatusLabels[old], models.IncidentStatusLabels[models.IncidentClosed]))
	if err != nil {
		return nil, err
	}
	metrics.IncWorkflowTransition("incident", "ok")
	if old != models.IncidentClosed {
		s.notify(models.NotificationTypeSuccess, "Incydent zamknięty", inc.Title)
	}
	return inc, nil
}

// Advance moves the incident to the next status of the fixed sequence.
func (s *IncidentService) Advance(actor Actor, id uint) (*models.Incident, error) {
	inc, err := s.manageable(actor, id)
	if err != nil {
		return nil, err
	}
	next, ok := inc.Status.Next()
	if !ok {
		metrics.IncWorkflowTransition("incident", "rejected")
		logger.WithFields(logrus.Fields{"incident_id": inc.ID, "status": inc.Status}).Warn("incident transition rejected")
		return nil, fmt.Errorf("%w: incident is already %s", ErrInvalidTransition, inc.Status)
	}

	old := inc.Status
	inc.Status = next
	action := models.IncidentLogStatusChanged
	if next == models.IncidentClosed {
		stampClosed(inc)
		action = models.IncidentLogClosed
	}
	inc, err = s.save(actor, inc, nil, action,
		fmt.Sprintf("Zmiana statusu: %s → %s", models.IncidentStatusLabels[old], models.IncidentStatusLabels[next]))
	if err != nil {
		return nil, err
	}
	metrics.IncWorkflowTransition("incident", "ok")
	if next == models.IncidentClosed {
		s.notify(models.NotificationTypeSuccess, "Incydent zamknięty", inc.Title)
	}
	return inc, nil
}

func stampClosed(inc *models.Incident) {
	if inc.ClosedAt == nil {
		now := time.Now()
		inc.ClosedAt = &now
	}
}

// Assign sets or clears the responsible employee. Only incident admins may
// reassign.
func (s *IncidentService) Assign(actor Actor, id uint, employeeID *uint) (*models.Incident, error) {
	if !actor.Can(models.PermIncidentsAdmin) {
		return nil, ErrPermissionDenied
	}
	inc, err := s.load(id)
	if err != nil {
		return nil, err
	}
	desc := "Usunięto przypisanie"
	if employeeID != nil {
		var e models.Employee
		if err := s.db.First(&e, *employeeID).Error; err != nil {
			return nil, fieldError("assigned_to_id", "Wybrany pracownik nie istnieje.")
		}
		desc = fmt.Sprintf("Przypisano do: %s", e.FullName())
	}
	inc.AssignedToID = employeeID
	inc.AssignedTo = nil
	return s.save(actor, inc, nil, models.IncidentLogAssigned, desc)
}

// AddNote attaches a note. Anyone who can view the incident may comment.
func (s *IncidentService) AddNote(actor Actor, id uint, noteType models.IncidentNoteType, content string) (*models.IncidentNote, error) {
	inc, err := s.Get(actor, id)
	if err != nil {
		return nil, err
	}
	if noteType == "" {
		noteType = "comment"
	}
	v := &ValidationError{}
	if !noteType.Valid() {
		v.Add("note_type", "Nieprawidłowy typ notatki.")
	}
	if strings.TrimSpace(content) == "" {
		v.Add("content", "To pole jest wymagane.")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	note := &models.IncidentNote{IncidentID: inc.ID, AuthorID: actor.UserID(), NoteType: noteType, Content: content}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(note).Error; err != nil {
			return err
		}
		return tx.Create(&models.IncidentLog{
			IncidentID: inc.ID, UserID: actor.UserID(), Action: models.IncidentLogNoteAdded,
			Description: fmt.Sprintf("Dodano notatkę (%s)", models.IncidentNoteTypeLabels[noteType]),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	s.activity.Record(actor, ActivityEntry{
		Action: models.ActionUpdate, Category: models.ActivityIncident,
		ObjectType: "incident", ObjectID: inc.ID, ObjectRepr: inc.String(),
		Description: fmt.Sprintf("Dodano notatkę do incydentu: %s", inc.Title),
	})
	return note, nil
}

// Counts returns the number of incidents per status.
func (s *IncidentService) Counts() (map[models.IncidentStatus]int64, error) {
	type row struct {
		Status models.IncidentStatus
		N      int64
	}
	var rows []row
	if err := s.db.Model(&models.Incident{}).Select("status, COUNT(*) AS n").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := map[models.IncidentStatus]int64{}
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

func (s *IncidentService) manageable(actor Actor, id uint) (*models.Incident, error) {
	inc, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !CanManageIncident(actor, inc) {
		return nil, ErrPermissionDenied
	}
	return inc, nil
}

func (s *IncidentService) save(actor Actor, inc *models.Incident, extra func(tx *gorm.DB) error, action models.IncidentLogAction, desc string) (*models.Incident, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Reporter", "AssignedTo", "AffectedAssets", "Notes").Save(inc).Error; err != nil {
			return err
		}
		if extra != nil {
			if err := extra(tx); err != nil {
				return err
			}
		}
		return tx.Create(&models.IncidentLog{IncidentID: inc.ID, UserID: actor.UserID(), Action: action, Description: desc}).Error
	})
	if err != nil {
		return nil, err
	}
	activity := models.ActionUpdate
	if action == models.IncidentLogAssigned {
		activity = models.ActionAssign
	}
	s.activity.Record(actor, ActivityEntry{
		Action: activity, Category: models.ActivityIncident,
		ObjectType: "incident", ObjectID: inc.ID, ObjectRepr: inc.String(),
		Description: fmt.Sprintf("%s: %s", desc, inc.Title),
	})
	return s.load(inc.ID)
}
