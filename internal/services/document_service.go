package services

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Czechuuuu/szbi/internal/logger"
	"github.com/Czechuuuu/szbi/internal/metrics"
	"github.com/Czechuuuu/szbi/internal/models"
)

type DocumentInput struct {
	Designation  string              `json:"designation" binding:"required,max=50"`
	Title        string              `json:"title" binding:"required,max=255"`
	DocumentType models.DocumentType `json:"document_type"`
	Description  string              `json:"description"`
	OwnerID      uint                `json:"owner_id" binding:"required"`
}

type VersionInput struct {
	VersionNumber     string `json:"version_number" binding:"required,max=20"`
	FileName          string `json:"file_name"`
	ChangeDescription string `json:"change_description"`
	IsCurrent         bool   `json:"is_current"`
}

type MappingInput struct {
	RequirementID    uint               `json:"iso_requirement_id" binding:"required"`
	MappingType      models.MappingType `json:"mapping_type"`
	SectionReference string             `json:"section_reference"`
	Notes            string             `json:"notes"`
}

type DocumentFilter struct {
	Status  models.DocumentStatus
	Type    models.DocumentType
	OwnerID *uint
	Query   string
}

type DocumentService struct {
	db       *gorm.DB
	activity *ActivityService
	notifier Notifier
}

func NewDocumentService(db *gorm.DB, activity *ActivityService, notifier Notifier) *DocumentService {
	return &DocumentService{db: db, activity: activity, notifier: notifier}
}

func (s *DocumentService) List(f DocumentFilter) ([]models.Document, error) {
	var docs []models.Document
	q := s.db.Preload("Owner").Order("designation")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Type != "" {
		q = q.Where("document_type = ?", f.Type)
	}
	if f.OwnerID != nil {
		q = q.Where("owner_id = ?", *f.OwnerID)
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		like := containsPattern(term)
		q = q.Where("LOWER(designation) LIKE ? OR LOWER(title) LIKE ?", like, like)
	}
	return docs, q.Find(&docs).Error
}

func (s *DocumentService) Get(id uint) (*models.Document, error) {
	var d models.Document
	err := s.db.Preload("Owner").
		Preload("Versions", func(db *gorm.DB) *gorm.DB { return db.Order("created_at desc, id desc") }).
		Preload("Versions.CreatedBy").
		Preload("AccessEntries.PermissionGroup").
		Preload("ISOMappings.ISORequirement").
		Preload("Acknowledgements.User").
		First(&d, id).Error
	if err != nil {
		return nil, translate(err, ErrDocumentNotFound)
	}
	return &d, nil
}

func (s *DocumentService) Logs(id uint) ([]models.DocumentLog, error) {
	var logs []models.DocumentLog
	return logs, s.db.Preload("User").Where("document_id = ?", id).Order("created_at desc, id desc").Find(&logs).Error
}

func (s *DocumentService) validate(in *DocumentInput) error {
	v := &ValidationError{}
	if strings.TrimSpace(in.Designation) == "" {
		v.Add("designation", "To pole jest wymagane.")
	}
	if strings.TrimSpace(in.Title) == "" {
		v.Add("title", "To pole jest wymagane.")
	}
	if in.DocumentType == "" {
		in.DocumentType = "other"
	}
	if !in.DocumentType.Valid() {
		v.Add("document_type", "Nieprawidłowy typ dokumentu.")
	}
	if err := s.db.First(&models.Employee{}, in.OwnerID).Error; err != nil {
		v.Add("owner_id", "Wybrany pracownik nie istnieje.")
	}
	return v.Err()
}

func (s *DocumentService) Create(actor Actor, in DocumentInput) (*models.Document, error) {
	if actor.User == nil {
		return nil, ErrPermissionDenied
	}
	if err := s.validate(&in); err != nil {
		return nil, err
	}
	d := &models.Document{
		Designation:  strings.TrimSpace(in.Designation),
		Title:        strings.TrimSpace(in.Title),
		DocumentType: in.DocumentType,
		Description:  in.Description,
		OwnerID:      in.OwnerID,
		Status:       models.DocumentDraft,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(d).Error; err != nil {
			return err
		}
		return tx.Create(&models.DocumentLog{
			DocumentID: d.ID, UserID: actor.User.ID, Action: models.DocumentLogCreated,
			NewStatus: d.Status, Description: "Utworzono dokument",
		}).Error
	})
	if err != nil {
		return nil, translate(err, ErrDocumentNotFound)
	}
	s.record(actor, models.ActionCreate, d, fmt.Sprintf("Utworzono dokument: %s", d.String()))
	return d, nil
}

// Update edits document metadata. Only document admins may hand the document
// to another owner.
func (s *DocumentService) Update(actor Actor, id uint, in DocumentInput) (*models.Document, error) {
	if actor.User == nil {
		return nil, ErrPermissionDenied
	}
	if err := s.validate(&in); err != nil {
		return nil, err
	}
	var d models.Document
	if err := s.db.First(&d, id).Error; err != nil {
		return nil, translate(err, ErrDocumentNotFound)
	}
	if in.OwnerID != d.OwnerID && !actor.Can(models.PermDocumentsAdmin) {
		return nil, ErrPermissionDenied
	}
	d.Designation = strings.TrimSpace(in.Designation)
	d.Title = strings.TrimSpace(in.Title)
	d.DocumentType = in.DocumentType
	d.Description = in.Description
	d.OwnerID = in.OwnerID
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&d).Error; err != nil {
			return err
		}
		return tx.Create(&models.DocumentLog{
			DocumentID: d.ID, UserID: actor.User.ID, Action: models.DocumentLogUpdated,
			Description: "Zaktualizowano dane dokumentu",
		}).Error
	})
	if err != nil {
		return nil, translate(err, ErrDocumentNotFound)
	}
	s.record(actor, models.ActionUpdate, &d, fmt.Sprintf("Zaktualizowano dokument: %s", d.String()))
	return &d, nil
}

// AllowedTransitions returns the statuses the document may move to next.
func (s *DocumentService) AllowedTransitions(id uint) ([]models.DocumentStatus, error) {
	var d models.Document
	if err := s.db.Select("id", "status").First(&d, id).Error; err != nil {
		return nil, translate(err, ErrDocumentNotFound)
	}
	return d.Status.AllowedTransitions(), nil
}

// Transition moves the document to target when the workflow table allows
// it. A rejected request leaves the document and its log untouched.
func (s *DocumentService) Transition(actor Actor, id uint, target models.DocumentStatus, comment string) (*models.Document, error) {
	if actor.User == nil {
		return nil, ErrPermissionDenied
	}
	var d models.Document
	if err := s.db.First(&d, id).Error; err != nil {
		return nil, translate(err, ErrDocumentNotFound)
	}

	old := d.Status
	if !old.CanTransitionTo(target) {
		metrics.IncWorkflowTransition("document", "rejected")
		logger.WithFields(logrus.Fields{
			"document_id": d.ID,
			"from":        old,
			"to":          target,
			"user_id":     actor.User.ID,
		}).Warn("document transition rejected")
		return nil, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, old, target)
	}

	desc := fmt.Sprintf("Zmiana statusu: %s → %s", models.DocumentStatusLabels[old], models.DocumentStatusLabels[target])
	if c := strings.TrimSpace(comment); c != "" {
		desc += ". " + c
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Document{}).Where("id = ? AND status = ?", d.ID, old).Update("status", target)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: status changed concurrently", ErrInvalidTransition)
		}
		return tx.Create(&models.DocumentLog{
			DocumentID: d.ID, UserID: actor.User.ID, Action: models.DocumentLogStatusChanged,
			OldStatus: old, NewStatus: target, Description: desc,
		}).Error
	})
	if err != nil {
		metrics.IncWorkflowTransition("document", "rejected")
		return nil, err
	}
	metrics.IncWorkflowTransition("document", "ok")
	d.Status = target
	s.record(actor, models.ActionUpdate, &d, fmt.Sprintf("%s: %s", desc, d.String()))
	return &d, nil
}

// Versions

func (s *DocumentService) AddVersion(actor Actor, id uint, in VersionInput) (*models.DocumentVersion, error) {
	if actor.User == nil {
		return nil, ErrPermissionDenied
	}
	if strings.TrimSpace(in.VersionNumber) == "" {
		return nil, fieldError("version_number", "To pole jest wymagane.")
	}
	var d models.Document
	if err := s.db.First(&d, id).Error; err != nil {
		return nil, translate(err, ErrDocumentNotFound)
	}
	var existing int64
	if err := s.db.Model(&models.DocumentVersion{}).Where("document_id = ?", d.ID).Count(&existing).Error; err != nil {
		return nil, err
	}

	v := &models.DocumentVersion{
		DocumentID:        d.ID,
		VersionNumber:     strings.TrimSpace(in.VersionNumber),
		FileName:          in.FileName,
		ChangeDescription: in.ChangeDescription,
		IsCurrent:         in.IsCurrent || existing == 0,
		CreatedByID:       actor.User.ID,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if v.IsCurrent {
			if err := tx.Model(&models.DocumentVersion{}).Where("document_id = ?", d.ID).Update("is_current", false).Error; err != nil {
				return err
			}
		}
		if err := tx.Create(v).Error; err != nil {
			return err
		}
		return tx.Create(&models.DocumentLog{
			DocumentID: d.ID, UserID: actor.User.ID, Action: models.DocumentLogVersionAdded,
			Description: fmt.Sprintf("Dodano wersję %s", v.VersionNumber),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	s.record(actor, models.ActionUpdate, &d, fmt.Sprintf("Dodano wersję %s dokumentu %s", v.VersionNumber, d.String()))
	if v.IsCurrent && s.notifier != nil {
		s.notifier.Notify(EventDocument, models.NotificationTypeInfo, "Nowa wersja dokumentu",
			fmt.Sprintf("%s: obowiązuje wersja %s", d.String(), v.VersionNumber))
	}
	return v, nil
}

// SetCurrentVersion marks one version current and clears the flag on the
// others.
func (s *DocumentService) SetCurrentVersion(actor Actor, id, versionID uint) (*models.DocumentVersion, error) {
	if actor.User == nil {
		return nil, ErrPermissionDenied
	}
	var d models.Document
	if err := s.db.First(&d, id).Error; err != nil {
		return nil, translate(err, ErrDocumentNotFound)
	}
	var v models.DocumentVersion
	if err := s.db.Where("document_id = ?", d.ID).First(&v, versionID).Error; err != nil {
		return nil, translate(err, ErrVersionNotFound)
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.DocumentVersion{}).Where("document_id = ?", d.ID).Update("is_current", false).Error; err != nil {
			return err
		}
		if err := tx.Model(&v).Update("is_current", true).Error; err != nil {
			return err
		}
		return tx.Create(&models.DocumentLog{
			DocumentID: d.ID, UserID: actor.User.ID, Action: models.DocumentLogVersionSetCurrent,
			Description: fmt.Sprintf("Ustawiono wersję %s jako obowiązującą", v.VersionNumber),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	v.IsCurrent = true
	s.record(actor, models.ActionUpdate, &d, fmt.Sprintf("Ustawiono wersję %s dokumentu %s jako obowiązującą", v.VersionNumber, d.String()))
	return &v, nil
}

// Access

func (s *DocumentService) GrantAccess(actor Actor, id, groupID uint, level models.AccessLevel) (*models.DocumentAccess, error) {
	if actor.User == nil {
		return nil, ErrPermissionDenied
	}
	if level == "" {
		level = models.AccessView
	}
	if !level.Valid() {
		return nil, fieldError("access_level", "Nieprawidłowy poziom dostępu.")
	}
	var d models.Document
	if err := s.db.First(&d, id).Error; err != nil {
		return nil, translate(err, ErrDocumentNotFound)
	}
	var g models.PermissionGroup
	if err := s.db.First(&g, groupID).Error; err != nil {
		return nil, translate(err, ErrPermissionGroupNotFound)
	}
	var n int64
	if err := s.db.Model(&models.DocumentAccess{}).Where("document_id = ? AND permission_group_id = ?", d.ID, g.ID).Count(&n).Error; err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, fmt.Errorf("%w: group %q already has access", ErrDuplicate, g.Name)
	}

	access := &models.DocumentAccess{DocumentID: d.ID, PermissionGroupID: g.ID, AccessLevel: level, GrantedByID: actor.UserID()}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(access).Error; err != nil {
			return err
		}
		return tx.Create(&models.DocumentLog{
			DocumentID: d.ID, UserID: actor.User.ID, Action: models.DocumentLogAccessGranted,
			Description: fmt.Sprintf("Udostępniono grupie %s (%s)", g.Name, models.AccessLevelLabels[level]),
		}).Error
	})
	if err != nil {
		return nil, translate(err, ErrAccessNotFound)
	}
	access.PermissionGroup = &g
	s.record(actor, models.ActionAssign, &d, fmt.Sprintf("Udostępniono dokument %s grupie %s", d.String(), g.Name))
	return access, nil
}

func (s *DocumentService) RevokeAccess(actor Actor, id, groupID uint) error {
	if actor.User == nil {
		return ErrPermissionDenied
	}
	var d models.Document
	if err := s.db.First(&d, id).Error; err != nil {
		return translate(err, ErrDocumentNotFound)
	}
	var access models.DocumentAccess
	if err := s.db.Preload("PermissionGroup").Where("document_id = ? AND permission_group_id = ?", d.ID, groupID).First(&access).Error; err != nil {
		return translate(err, ErrAccessNotFound)
	}
	groupName := fmt.Sprintf("#%d", groupID)
	if access.PermissionGroup != nil {
		groupName = access.PermissionGroup.Name
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&access).Error; err != nil {
			return err
		}
		return tx.Create(&models.DocumentLog{
			DocumentID: d.ID, UserID: actor.User.ID, Action: models.DocumentLogAccessRevoked,
			Description: fmt.Sprintf("Odebrano dostęp grupie %s", groupName),
		}).Error
	})
	if err != nil {
		return err
	}
	s.record(actor, models.ActionUnassign, &d, fmt.Sprintf("Odebrano dostęp do dokumentu %s grupie %s", d.String(), groupName))
	return nil
}

// SharedWithMe lists access entries granted to any group the actor holds.
func (s *DocumentService) SharedWithMe(actor Actor) ([]models.DocumentAccess, error) {
	out := []models.DocumentAccess{}
	ids := GroupIDs(actor)
	if len(ids) == 0 {
		return out, nil
	}
	err := s.db.Preload("Document.Owner").Preload("PermissionGroup").
		Where("permission_group_id IN ?", ids).
		Order("created_at desc").Find(&out).Error
	return out, err
}

// Acknowledgements

// Acknowledge records that the actor has read the current version.
func (s *DocumentService) Acknowledge(actor Actor, id uint, notes string) (*models.DocumentAcknowledgement, error) {
	if actor.User == nil {
		return nil, ErrPermissionDenied
	}
	var d models.Document
	if err := s.db.First(&d, id).Error; err != nil {
		return nil, translate(err, ErrDocumentNotFound)
	}
	var current models.DocumentVersion
	if err := s.db.Where("document_id = ? AND is_current = ?", d.ID, true).Limit(1).Find(&current).Error; err != nil {
		return nil, err
	}
	var versionID *uint
	q := s.db.Model(&models.DocumentAcknowledgement{}).Where("document_id = ? AND user_id = ?", d.ID, actor.User.ID)
	if current.ID != 0 {
		vid := current.ID
		versionID = &vid
		q = q.Where("version_id = ?", vid)
	} else {
		q = q.Where("version_id IS NULL")
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, fmt.Errorf("%w: already acknowledged", ErrDuplicate)
	}

	ack := &models.DocumentAcknowledgement{DocumentID: d.ID, UserID: actor.User.ID, VersionID: versionID, Notes: notes}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ack).Error; err != nil {
			return err
		}
		desc := "Potwierdzono zapoznanie się z dokumentem"
		if current.ID != 0 {
			desc += fmt.Sprintf(" (wersja %s)", current.VersionNumber)
		}
		return tx.Create(&models.DocumentLog{
			DocumentID: d.ID, UserID: actor.User.ID, Action: models.DocumentLogAcknowledged, Description: desc,
		}).Error
	})
	if err != nil {
		return nil, translate(err, ErrDocumentNotFound)
	}
	s.record(actor, models.ActionOther, &d, fmt.Sprintf("Potwierdzono zapoznanie z dokumentem %s", d.String()))
	return ack, nil
}

// ISO mappings

func (s *DocumentService) LinkISO(actor Actor, id uint, in MappingInput) (*models.DocumentISOMapping, error) {
	if actor.User == nil {
		return nil, ErrPermissionDenied
	}
	if in.MappingType == "" {
		in.MappingType = "primary"
	}
	if !in.MappingType.Valid() {
		return nil, fieldError("mapping_type", "Nieprawidłowy typ powiązania.")
	}
	var d models.Document
	if err := s.db.First(&d, id).Error; err != nil {
		return nil, translate(err, ErrDocumentNotFound)
	}
	var req models.ISORequirement
	if err := s.db.First(&req, in.RequirementID).Error; err != nil {
		return nil, fieldError("iso_requirement_id", "Wybrane wymaganie nie istnieje.")
	}
	var n int64
	if err := s.db.Model(&models.DocumentISOMapping{}).Where("document_id = ? AND iso_requirement_id = ?", d.ID, req.ID).Count(&n).Error; err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, fmt.Errorf("%w: requirement %s is already linked", ErrDuplicate, req.ISOID)
	}

	m := &models.DocumentISOMapping{
		DocumentID: d.ID, ISORequirementID: req.ID, MappingType: in.MappingType,
		SectionReference: in.SectionReference, Notes: in.Notes, CreatedByID: actor.UserID(),
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		return tx.Create(&models.DocumentLog{
			DocumentID: d.ID, UserID: actor.User.ID, Action: models.DocumentLogISOLinked,
			Description: fmt.Sprintf("Powiązano z wymaganiem %s", req.String()),
		}).Error
	})
	if err != nil {
		return nil, translate(err, ErrMappingNotFound)
	}
	m.ISORequirement = &req
	s.record(actor, models.ActionAssign, &d, fmt.Sprintf("Powiązano dokument %s z wymaganiem %s", d.String(), req.ISOID))
	return m, nil
}

func (s *DocumentService) UnlinkISO(actor Actor, id, mappingID uint) error {
	if actor.User == nil {
		return ErrPermissionDenied
	}
	var d models.Document
	if err := s.db.First(&d, id).Error; err != nil {
		return translate(err, ErrDocumentNotFound)
	}
	var m models.DocumentISOMapping
	if err := s.db.Preload("ISORequirement").Where("document_id = ?", d.ID).First(&m, mappingID).Error; err != nil {
		return translate(err, ErrMappingNotFound)
	}
	label := fmt.Sprintf("#%d", m.ISORequirementID)
	if m.ISORequirement != nil {
		label = m.ISORequirement.ISOID
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&m).Error; err != nil {
			return err
		}
		return tx.Create(&models.DocumentLog{
			DocumentID: d.ID, UserID: actor.User.ID, Action: models.DocumentLogISOUnlinked,
			Description: fmt.Sprintf("Usunięto powiązanie z wymaganiem %s", label),
		}).Error
	})
	if err != nil {
		return err
	}
	s.record(actor, models.ActionUnassign, &d, fmt.Sprintf("Usunięto powiązanie dokumentu %s z wymaganiem %s", d.String(), label))
	return nil
}

// Counts returns the number of documents per status.
func (s *DocumentService) Counts() (map[models.DocumentStatus]int64, error) {
	type row struct {
		Status models.DocumentStatus
		N      int64
	}
	var rows []row
	if err := s.db.Model(&models.Document{}).Select("status, COUNT(*) AS n").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := map[models.DocumentStatus]int64{}
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

func (s *DocumentService) record(actor Actor, action models.ActivityAction, d *models.Document, desc string) {
	s.activity.Record(actor, ActivityEntry{
		Action: action, Category: models.ActivityDocument,
		ObjectType: "document", ObjectID: d.ID, ObjectRepr: d.String(),
		Description: desc,
	})
}
