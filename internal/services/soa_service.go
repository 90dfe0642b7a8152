package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/Czechuuuu/szbi/internal/models"
)

type DeclarationInput struct {
	Designation   string `json:"designation" binding:"required,max=50"`
	Name          string `json:"name" binding:"required,max=255"`
	Description   string `json:"description"`
	Version       string `json:"version" binding:"max=20"`
	OwnerID       uint   `json:"owner_id" binding:"required"`
	EffectiveDate string `json:"effective_date"`
}

type EntryInput struct {
	RequirementID         uint                 `json:"requirement_id" binding:"required"`
	Applicability         models.Applicability `json:"applicability"`
	ResponsiblePersonID   *uint                `json:"responsible_person_id"`
	Justification         string               `json:"justification"`
	AdditionalDescription string               `json:"additional_description"`
	RelatedDocumentIDs    []uint               `json:"related_document_ids"`
}

type DeclarationFilter struct {
	Status models.SoAStatus
	Query  string
}

// DeclarationSummary is a list row with its entry count.
type DeclarationSummary struct {
	models.SoADeclaration
	EntriesCount int64 `json:"entries_count"`
}

// DomainEntries groups the entries of a declaration by ISO domain.
type DomainEntries struct {
	Domain  *models.ISODomain `json:"domain"`
	Entries []models.SoAEntry `json:"entries"`
}

// SoAService manages Statements of Applicability. Status is advisory and may
// be set to any valid value from any other.
type SoAService struct {
	db       *gorm.DB
	activity *ActivityService
}

func NewSoAService(db *gorm.DB, activity *ActivityService) *SoAService {
	return &SoAService{db: db, activity: activity}
}

func (s *SoAService) List(f DeclarationFilter) ([]DeclarationSummary, error) {
	var decls []models.SoADeclaration
	q := s.db.Preload("Owner").Order("designation")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		like := containsPattern(term)
		q = q.Where("LOWER(name) LIKE ? OR LOWER(designation) LIKE ? OR LOWER(description) LIKE ?", like, like, like)
	}
	if err := q.Find(&decls).Error; err != nil {
		return nil, err
	}

	type count struct {
		DeclarationID uint
		N             int64
	}
	var counts []count
	if err := s.db.Model(&models.SoAEntry{}).Select("declaration_id, COUNT(*) AS n").Group("declaration_id").Scan(&counts).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byID[c.DeclarationID] = c.N
	}

	out := make([]DeclarationSummary, 0, len(decls))
	for _, d := range decls {
		out = append(out, DeclarationSummary{SoADeclaration: d, EntriesCount: byID[d.ID]})
	}
	return out, nil
}

func (s *SoAService) Get(id uint) (*models.SoADeclaration, error) {
	var d models.SoADeclaration
	err := s.db.Preload("Owner").
		Preload("Entries", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Entries.Requirement.Objective.Domain").
		Preload("Entries.ResponsiblePerson").
		Preload("Entries.RelatedDocuments").
		First(&d, id).Error
	if err != nil {
		return nil, translate(err, ErrDeclarationNotFound)
	}
	return &d, nil
}

// EntriesByDomain groups the declaration's entries by domain code in
// ascending order.
func EntriesByDomain(d *models.SoADeclaration) []DomainEntries {
	groups := map[string]*DomainEntries{}
	var keys []string
	for _, e := range d.Entries {
		var dom *models.ISODomain
		if e.Requirement != nil && e.Requirement.Objective != nil {
			dom = e.Requirement.Objective.Domain
		}
		key := "Inne"
		if dom != nil {
			key = dom.Code
		}
		g, ok := groups[key]
		if !ok {
			g = &DomainEntries{Domain: dom}
			groups[key] = g
			keys = append(keys, key)
		}
		g.Entries = append(g.Entries, e)
	}
	sort.Strings(keys)
	out := make([]DomainEntries, 0, len(keys))
	for _, k := range keys {
		out = append(out, *groups[k])
	}
	return out
}

// Logs returns the most recent history entries, newest first.
func (s *SoAService) Logs(id uint, limit int) ([]models.SoALog, error) {
	var logs []models.SoALog
	q := s.db.Preload("User").Where("declaration_id = ?", id).Order("created_at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return logs, q.Find(&logs).Error
}

func (s *SoAService) apply(d *models.SoADeclaration, in DeclarationInput) error {
	v := &ValidationError{}
	if strings.TrimSpace(in.Designation) == "" {
		v.Add("designation", "To pole jest wymagane.")
	}
	if strings.TrimSpace(in.Name) == "" {
		v.Add("name", "To pole jest wymagane.")
	}
	if err := s.db.First(&models.Employee{}, in.OwnerID).Error; err != nil {
		v.Add("owner_id", "Wybrany pracownik nie istnieje.")
	}
	effective := parseOptionalDate(v, "effective_date", in.EffectiveDate)
	if err := v.Err(); err != nil {
		return err
	}
	d.Designation = strings.TrimSpace(in.Designation)
	d.Name = strings.TrimSpace(in.Name)
	d.Description = in.Description
	d.Version = strings.TrimSpace(in.Version)
	if d.Version == "" {
		d.Version = "1.0"
	}
	d.OwnerID = in.OwnerID
	d.EffectiveDate = effective
	d.Owner = nil
	return nil
}

func (s *SoAService) Create(actor Actor, in DeclarationInput) (*models.SoADeclaration, error) {
	d := &models.SoADeclaration{Status: models.SoADraft, CreatedByID: actor.UserID()}
	if err := s.apply(d, in); err != nil {
		return nil, err
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(d).Error; err != nil {
			return err
		}
		return s.log(tx, actor, d.ID, models.SoALogCreated, fmt.Sprintf("Utworzono deklarację %s", d.Designation))
	})
	if err != nil {
		return nil, translate(err, ErrDeclarationNotFound)
	}
	s.record(actor, models.ActionCreate, d, "Utworzono deklarację zgodności")
	return d, nil
}

func (s *SoAService) Update(actor Actor, id uint, in DeclarationInput) (*models.SoADeclaration, error) {
	var d models.SoADeclaration
	if err := s.db.First(&d, id).Error; err != nil {
		return nil, translate(err, ErrDeclarationNotFound)
	}
	if err := s.apply(&d, in); err != nil {
		return nil, err
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Entries").Save(&d).Error; err != nil {
			return err
		}
		return s.log(tx, actor, d.ID, models.SoALogUpdated, "Zaktualizowano dane deklaracji")
	})
	if err != nil {
		return nil, translate(err, ErrDeclarationNotFound)
	}
	s.record(actor, models.ActionUpdate, &d, "Zaktualizowano deklarację zgodności")
	return &d, nil
}

// SetStatus changes the declaration status. Only the value itself is
// validated.
func (s *SoAService) SetStatus(actor Actor, id uint, status models.SoAStatus) (*models.SoADeclaration, error) {
	if !status.Valid() {
		return nil, fieldError("new_status", "Nieprawidłowy status.")
	}
	var d models.SoADeclaration
	if err := s.db.First(&d, id).Error; err != nil {
		return nil, translate(err, ErrDeclarationNotFound)
	}
	old := d.Status
	desc := fmt.Sprintf("Zmieniono status z %q na %q", models.SoAStatusLabels[old], models.SoAStatusLabels[status])
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&d).Update("status", status).Error; err != nil {
			return err
		}
		return s.log(tx, actor, d.ID, models.SoALogStatusChanged, desc)
	})
	if err != nil {
		return nil, err
	}
	d.Status = status
	s.record(actor, models.ActionUpdate, &d, desc)
	return &d, nil
}

// Entries

func (s *SoAService) applyEntry(e *models.SoAEntry, in EntryInput) ([]models.Document, error) {
	v := &ValidationError{}
	if in.Applicability == "" {
		in.Applicability = "applicable"
	}
	if !in.Applicability.Valid() {
		v.Add("applicability", "Nieprawidłowa wartość.")
	}
	var req models.ISORequirement
	if err := s.db.First(&req, in.RequirementID).Error; err != nil {
		v.Add("requirement_id", "Wybrane wymaganie nie istnieje.")
	}
	if in.ResponsiblePersonID != nil {
		if err := s.db.First(&models.Employee{}, *in.ResponsiblePersonID).Error; err != nil {
			v.Add("responsible_person_id", "Wybrany pracownik nie istnieje.")
		}
	}
	var docs []models.Document
	if ids := uniqueIDs(in.RelatedDocumentIDs); len(ids) > 0 {
		if err := s.db.Where("id IN ?", ids).Find(&docs).Error; err != nil {
			return nil, err
		}
		if len(docs) != len(ids) {
			v.Add("related_document_ids", "Wybrany dokument nie istnieje.")
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	e.RequirementID = req.ID
	e.Requirement = &req
	e.Applicability = in.Applicability
	e.ResponsiblePersonID = in.ResponsiblePersonID
	e.Justification = in.Justification
	e.AdditionalDescription = in.AdditionalDescription
	return docs, nil
}

func (s *SoAService) entryTaken(declarationID, requirementID, exceptID uint) (bool, error) {
	var n int64
	err := s.db.Model(&models.SoAEntry{}).
		Where("declaration_id = ? AND requirement_id = ? AND id <> ?", declarationID, requirementID, exceptID).
		Count(&n).Error
	return n > 0, err
}

// AddEntry declares the applicability of one requirement. A requirement may
// appear only once per declaration.
func (s *SoAService) AddEntry(actor Actor, id uint, in EntryInput) (*models.SoAEntry, error) {
	var d models.SoADeclaration
	if err := s.db.First(&d, id).Error; err != nil {
		return nil, translate(err, ErrDeclarationNotFound)
	}
	e := &models.SoAEntry{DeclarationID: d.ID}
	docs, err := s.applyEntry(e, in)
	if err != nil {
		return nil, err
	}
	taken, err := s.entryTaken(d.ID, e.RequirementID, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: requirement already declared", ErrDuplicate)
	}

	isoID := e.Requirement.ISOID
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Requirement", "ResponsiblePerson", "RelatedDocuments").Create(e).Error; err != nil {
			return err
		}
		if len(docs) > 0 {
			if err := tx.Model(e).Association("RelatedDocuments").Replace(docs); err != nil {
				return err
			}
		}
		return s.log(tx, actor, d.ID, models.SoALogEntryAdded, fmt.Sprintf("Dodano pozycję: %s", isoID))
	})
	if err != nil {
		return nil, translate(err, ErrEntryNotFound)
	}
	e.RelatedDocuments = docs
	s.record(actor, models.ActionUpdate, &d, fmt.Sprintf("Dodano pozycję %s", isoID))
	return e, nil
}

func (s *SoAService) loadEntry(declarationID, entryID uint) (*models.SoADeclaration, *models.SoAEntry, error) {
	var d models.SoADeclaration
	if err := s.db.First(&d, declarationID).Error; err != nil {
		return nil, nil, translate(err, ErrDeclarationNotFound)
	}
	var e models.SoAEntry
	if err := s.db.Preload("Requirement").Where("declaration_id = ?", d.ID).First(&e, entryID).Error; err != nil {
		return nil, nil, translate(err, ErrEntryNotFound)
	}
	return &d, &e, nil
}

func (s *SoAService) UpdateEntry(actor Actor, id, entryID uint, in EntryInput) (*models.SoAEntry, error) {
	d, e, err := s.loadEntry(id, entryID)
	if err != nil {
		return nil, err
	}
	docs, err := s.applyEntry(e, in)
	if err != nil {
		return nil, err
	}
	taken, err := s.entryTaken(d.ID, e.RequirementID, e.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: requirement already declared", ErrDuplicate)
	}

	isoID := e.Requirement.ISOID
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Requirement", "ResponsiblePerson", "RelatedDocuments").Save(e).Error; err != nil {
			return err
		}
		if err := tx.Model(e).Association("RelatedDocuments").Replace(docs); err != nil {
			return err
		}
		return s.log(tx, actor, d.ID, models.SoALogEntryUpdated, fmt.Sprintf("Zaktualizowano pozycję: %s", isoID))
	})
	if err != nil {
		return nil, translate(err, ErrEntryNotFound)
	}
	e.RelatedDocuments = docs
	s.record(actor, models.ActionUpdate, d, fmt.Sprintf("Zaktualizowano pozycję %s", isoID))
	return e, nil
}

// RemoveEntry drops one entry from the declaration. The requirement itself is
// untouched.
func (s *SoAService) RemoveEntry(actor Actor, id, entryID uint) error {
	d, e, err := s.loadEntry(id, entryID)
	if err != nil {
		return err
	}
	isoID := e.String()
	if e.Requirement != nil {
		isoID = e.Requirement.ISOID
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(e).Association("RelatedDocuments").Clear(); err != nil {
			return err
		}
		if err := tx.Delete(&models.SoAEntry{}, e.ID).Error; err != nil {
			return err
		}
		return s.log(tx, actor, d.ID, models.SoALogEntryRemoved, fmt.Sprintf("Usunięto pozycję: %s", isoID))
	})
	if err != nil {
		return err
	}
	s.record(actor, models.ActionUpdate, d, fmt.Sprintf("Usunięto pozycję %s", isoID))
	return nil
}

// ExportXLSX writes the declaration and its entries as a spreadsheet.
func (s *SoAService) ExportXLSX(actor Actor, id uint, w io.Writer) error {
	d, err := s.Get(id)
	if err != nil {
		return err
	}

	owner := ""
	if d.Owner != nil {
		owner = d.Owner.String()
	}
	effective := ""
	if d.EffectiveDate != nil {
		effective = d.EffectiveDate.Format(dateLayout)
	}
	summary := sheet{
		name:    "Deklaracja",
		headers: []string{"Oznaczenie", "Nazwa", "Wersja", "Status", "Właściciel", "Data obowiązywania", "Opis"},
		rows: [][]interface{}{{
			d.Designation, d.Name, d.Version, models.SoAStatusLabels[d.Status], owner, effective, d.Description,
		}},
	}

	rows := make([][]interface{}, 0, len(d.Entries))
	for _, group := range EntriesByDomain(d) {
		domain := "Inne"
		if group.Domain != nil {
			domain = group.Domain.String()
		}
		for _, e := range group.Entries {
			isoID, name := "", ""
			if e.Requirement != nil {
				isoID, name = e.Requirement.ISOID, e.Requirement.Name
			}
			responsible := ""
			if e.ResponsiblePerson != nil {
				responsible = e.ResponsiblePerson.String()
			}
			docs := make([]string, 0, len(e.RelatedDocuments))
			for i := range e.RelatedDocuments {
				docs = append(docs, e.RelatedDocuments[i].Designation)
			}
			rows = append(rows, []interface{}{
				domain, isoID, name, models.ApplicabilityLabels[e.Applicability],
				e.Justification, responsible, strings.Join(docs, ", "), e.AdditionalDescription,
			})
		}
	}
	entries := sheet{
		name:    "Pozycje",
		headers: []string{"Domena", "Wymaganie", "Nazwa", "Stosowalność", "Uzasadnienie", "Osoba odpowiedzialna", "Dokumenty", "Opis dodatkowy"},
		rows:    rows,
	}

	if err := writeWorkbook(w, summary, entries); err != nil {
		return fmt.Errorf("render soa export: %w", err)
	}
	s.activity.Record(actor, ActivityEntry{
		Action: models.ActionExport, Category: models.ActivitySoA,
		ObjectType: "soa_declaration", ObjectID: d.ID, ObjectRepr: d.String(),
		Description: fmt.Sprintf("Eksport deklaracji %s (%d pozycji)", d.Designation, len(rows)),
	})
	return nil
}

func (s *SoAService) Counts() (map[models.SoAStatus]int64, error) {
	type row struct {
		Status models.SoAStatus
		N      int64
	}
	var rows []row
	if err := s.db.Model(&models.SoADeclaration{}).Select("status, COUNT(*) AS n").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[models.SoAStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

func (s *SoAService) log(tx *gorm.DB, actor Actor, declarationID uint, action models.SoALogAction, desc string) error {
	return tx.Create(&models.SoALog{
		DeclarationID: declarationID, UserID: actor.UserID(), Action: action, Description: desc,
	}).Error
}

func (s *SoAService) record(actor Actor, action models.ActivityAction, d *models.SoADeclaration, desc string) {
	s.activity.Record(actor, ActivityEntry{
		Action: action, Category: models.ActivitySoA,
		ObjectType: "soa_declaration", ObjectID: d.ID, ObjectRepr: d.String(),
		Description: fmt.Sprintf("%s: %s", desc, d.String()),
	})
}
