package services

import (
	"fmt"
	"math"
	"strings"

	"gorm.io/gorm"

	"github.com/Czechuuuu/szbi/internal/models"
)

const requirementPageSize = 20

type DomainInput struct {
	Code string `json:"code" binding:"required,max=20"`
	Name string `json:"name" binding:"required,max=255"`
}

type ObjectiveInput struct {
	DomainID      uint   `json:"domain_id" binding:"required"`
	Code          string `json:"code" binding:"required,max=20"`
	Name          string `json:"name" binding:"required,max=255"`
	ObjectiveText string `json:"objective_text"`
}

type RequirementInput struct {
	ObjectiveID          uint                 `json:"objective_id" binding:"required"`
	ISOID                string               `json:"iso_id" binding:"required,max=20"`
	Name                 string               `json:"name" binding:"required,max=255"`
	Description          string               `json:"description"`
	IsApplied            models.AppliedStatus `json:"is_applied"`
	ImplementationMethod string               `json:"implementation_method"`
	Notes                string               `json:"notes"`
}

type RequirementFilter struct {
	Query       string
	IsApplied   models.AppliedStatus
	ObjectiveID *uint
	DomainID    *uint
	Page        int
}

// RequirementStats counts requirements per implementation status.
type RequirementStats struct {
	Total         int64 `json:"total"`
	Applied       int64 `json:"applied"`
	NotApplied    int64 `json:"not_applied"`
	Partial       int64 `json:"partial"`
	NotApplicable int64 `json:"not_applicable"`
}

type RequirementPage struct {
	Items    []models.ISORequirement `json:"items"`
	Page     int                     `json:"page"`
	Pages    int                     `json:"pages"`
	PageSize int                     `json:"page_size"`
	Total    int64                   `json:"total"`
	Stats    RequirementStats        `json:"stats"`
}

// Option is the {id, code, name} triple used by cascading selects.
type Option struct {
	ID   uint   `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// MatrixCell is the mapping between one requirement and one published
// document; MappingType is empty when they are not linked.
type MatrixCell struct {
	DocumentID  uint               `json:"document_id"`
	MappingType models.MappingType `json:"mapping_type,omitempty"`
}

type MatrixRow struct {
	Requirement models.ISORequirement `json:"requirement"`
	Documents   []MatrixCell          `json:"documents"`
}

type MatrixStats struct {
	TotalRequirements     int64   `json:"total_requirements"`
	CoveredRequirements   int64   `json:"covered_requirements"`
	UncoveredRequirements int64   `json:"uncovered_requirements"`
	TotalDocuments        int64   `json:"total_documents"`
	TotalMappings         int64   `json:"total_mappings"`
	CoveragePercent       float64 `json:"coverage_percent"`
}

type ComplianceMatrix struct {
	Documents []models.Document `json:"documents"`
	Rows      []MatrixRow       `json:"rows"`
	Stats     MatrixStats       `json:"stats"`
}

// DictionaryService manages the ISO control catalog.
type DictionaryService struct {
	db       *gorm.DB
	activity *ActivityService
}

func NewDictionaryService(db *gorm.DB, activity *ActivityService) *DictionaryService {
	return &DictionaryService{db: db, activity: activity}
}

// Tree returns every domain with its objectives and their requirements.
func (s *DictionaryService) Tree() ([]models.ISODomain, error) {
	var domains []models.ISODomain
	err := s.db.
		Preload("Objectives", func(db *gorm.DB) *gorm.DB { return db.Order("code") }).
		Preload("Objectives.Requirements", func(db *gorm.DB) *gorm.DB { return db.Order("iso_id") }).
		Order("code").Find(&domains).Error
	return domains, err
}

// Domains

func (s *DictionaryService) ListDomains() ([]models.ISODomain, error) {
	var domains []models.ISODomain
	return domains, s.db.Order("code").Find(&domains).Error
}

func (s *DictionaryService) GetDomain(id uint) (*models.ISODomain, error) {
	var d models.ISODomain
	if err := s.db.Preload("Objectives", func(db *gorm.DB) *gorm.DB { return db.Order("code") }).First(&d, id).Error; err != nil {
		return nil, translate(err, ErrDomainNotFound)
	}
	return &d, nil
}

func (s *DictionaryService) CreateDomain(actor Actor, in DomainInput) (*models.ISODomain, error) {
	if err := requireFields(map[string]string{"code": in.Code, "name": in.Name}); err != nil {
		return nil, err
	}
	d := &models.ISODomain{Code: strings.TrimSpace(in.Code), Name: strings.TrimSpace(in.Name)}
	if err := s.db.Create(d).Error; err != nil {
		return nil, translate(err, ErrDomainNotFound)
	}
	s.record(actor, models.ActionCreate, "iso_domain", d.ID, d.String(), "Utworzono domenę")
	return d, nil
}

func (s *DictionaryService) UpdateDomain(actor Actor, id uint, in DomainInput) (*models.ISODomain, error) {
	if err := requireFields(map[string]string{"code": in.Code, "name": in.Name}); err != nil {
		return nil, err
	}
	var d models.ISODomain
	if err := s.db.First(&d, id).Error; err != nil {
		return nil, translate(err, ErrDomainNotFound)
	}
	d.Code = strings.TrimSpace(in.Code)
	d.Name = strings.TrimSpace(in.Name)
	if err := s.db.Save(&d).Error; err != nil {
		return nil, translate(err, ErrDomainNotFound)
	}
	s.record(actor, models.ActionUpdate, "iso_domain", d.ID, d.String(), "Zaktualizowano domenę")
	return &d, nil
}

// Objectives

func (s *DictionaryService) ListObjectives(domainID *uint) ([]models.ISOObjective, error) {
	var objs []models.ISOObjective
	q := s.db.Preload("Domain").Order("code")
	if domainID != nil {
		q = q.Where("domain_id = ?", *domainID)
	}
	return objs, q.Find(&objs).Error
}

func (s *DictionaryService) GetObjective(id uint) (*models.ISOObjective, error) {
	var o models.ISOObjective
	err := s.db.Preload("Domain").
		Preload("Requirements", func(db *gorm.DB) *gorm.DB { return db.Order("iso_id") }).
		First(&o, id).Error
	if err != nil {
		return nil, translate(err, ErrObjectiveNotFound)
	}
	return &o, nil
}

func (s *DictionaryService) CreateObjective(actor Actor, in ObjectiveInput) (*models.ISOObjective, error) {
	if err := requireFields(map[string]string{"code": in.Code, "name": in.Name}); err != nil {
		return nil, err
	}
	if err := s.db.First(&models.ISODomain{}, in.DomainID).Error; err != nil {
		return nil, fieldError("domain_id", "Wybrana domena nie istnieje.")
	}
	o := &models.ISOObjective{DomainID: in.DomainID, Code: strings.TrimSpace(in.Code), Name: strings.TrimSpace(in.Name), ObjectiveText: in.ObjectiveText}
	if err := s.db.Create(o).Error; err != nil {
		return nil, translate(err, ErrObjectiveNotFound)
	}
	s.record(actor, models.ActionCreate, "iso_objective", o.ID, o.String(), "Utworzono cel stosowania zabezpieczeń")
	return o, nil
}

func (s *DictionaryService) UpdateObjective(actor Actor, id uint, in ObjectiveInput) (*models.ISOObjective, error) {
	if err := requireFields(map[string]string{"code": in.Code, "name": in.Name}); err != nil {
		return nil, err
	}
	var o models.ISOObjective
	if err := s.db.First(&o, id).Error; err != nil {
		return nil, translate(err, ErrObjectiveNotFound)
	}
	if err := s.db.First(&models.ISODomain{}, in.DomainID).Error; err != nil {
		return nil, fieldError("domain_id", "Wybrana domena nie istnieje.")
	}
	o.DomainID = in.DomainID
	o.Code = strings.TrimSpace(in.Code)
	o.Name = strings.TrimSpace(in.Name)
	o.ObjectiveText = in.ObjectiveText
	if err := s.db.Save(&o).Error; err != nil {
		return nil, translate(err, ErrObjectiveNotFound)
	}
	s.record(actor, models.ActionUpdate, "iso_objective", o.ID, o.String(), "Zaktualizowano cel stosowania zabezpieczeń")
	return &o, nil
}

// ObjectiveOptions lists the objectives of a domain for a cascading select.
func (s *DictionaryService) ObjectiveOptions(domainID uint) ([]Option, error) {
	out := []Option{}
	err := s.db.Model(&models.ISOObjective{}).
		Select("id, code, name").
		Where("domain_id = ?", domainID).
		Order("code").Scan(&out).Error
	return out, err
}

// RequirementOptions lists the requirements of an objective; the code is the
// requirement's ISO identifier.
func (s *DictionaryService) RequirementOptions(objectiveID uint) ([]Option, error) {
	out := []Option{}
	err := s.db.Model(&models.ISORequirement{}).
		Select("id, iso_id AS code, name").
		Where("objective_id = ?", objectiveID).
		Order("iso_id").Scan(&out).Error
	return out, err
}

// Requirements

func (s *DictionaryService) requirementQuery(f RequirementFilter) *gorm.DB {
	q := s.db.Model(&models.ISORequirement{})
	if term := strings.TrimSpace(f.Query); term != "" {
		like := containsPattern(term)
		q = q.Where("LOWER(iso_id) LIKE ? OR LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(implementation_method) LIKE ?", like, like, like, like)
	}
	if f.IsApplied != "" {
		q = q.Where("is_applied = ?", f.IsApplied)
	}
	if f.ObjectiveID != nil {
		q = q.Where("objective_id = ?", *f.ObjectiveID)
	}
	if f.DomainID != nil {
		q = q.Where("objective_id IN (?)", s.db.Model(&models.ISOObjective{}).Select("id").Where("domain_id = ?", *f.DomainID))
	}
	return q
}

// ListRequirements returns one page of requirements with catalog-wide stats.
func (s *DictionaryService) ListRequirements(f RequirementFilter) (*RequirementPage, error) {
	var total int64
	if err := s.requirementQuery(f).Count(&total).Error; err != nil {
		return nil, err
	}
	pages := int(math.Ceil(float64(total) / float64(requirementPageSize)))
	if pages < 1 {
		pages = 1
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	items := []models.ISORequirement{}
	err := s.requirementQuery(f).Preload("Objective.Domain").
		Order("iso_id").Limit(requirementPageSize).Offset((page - 1) * requirementPageSize).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	stats, err := s.Stats()
	if err != nil {
		return nil, err
	}
	return &RequirementPage{Items: items, Page: page, Pages: pages, PageSize: requirementPageSize, Total: total, Stats: *stats}, nil
}

// Stats counts every requirement by implementation status.
func (s *DictionaryService) Stats() (*RequirementStats, error) {
	type row struct {
		IsApplied models.AppliedStatus
		N         int64
	}
	var rows []row
	if err := s.db.Model(&models.ISORequirement{}).Select("is_applied, COUNT(*) AS n").Group("is_applied").Scan(&rows).Error; err != nil {
		return nil, err
	}
	st := &RequirementStats{}
	for _, r := range rows {
		st.Total += r.N
		switch r.IsApplied {
		case models.AppliedYes:
			st.Applied = r.N
		case models.AppliedNo:
			st.NotApplied = r.N
		case models.AppliedPartial:
			st.Partial = r.N
		case models.AppliedNotApplicable:
			st.NotApplicable = r.N
		}
	}
	return st, nil
}

func (s *DictionaryService) GetRequirement(id uint) (*models.ISORequirement, error) {
	var r models.ISORequirement
	if err := s.db.Preload("Objective.Domain").First(&r, id).Error; err != nil {
		return nil, translate(err, ErrRequirementNotFound)
	}
	return &r, nil
}

// RequirementMappings lists the documents linked to a requirement.
func (s *DictionaryService) RequirementMappings(id uint) ([]models.DocumentISOMapping, error) {
	var out []models.DocumentISOMapping
	return out, s.db.Preload("Document").Where("iso_requirement_id = ?", id).Order("id").Find(&out).Error
}

func (s *DictionaryService) applyRequirement(r *models.ISORequirement, in RequirementInput) error {
	v := &ValidationError{}
	if strings.TrimSpace(in.ISOID) == "" {
		v.Add("iso_id", "To pole jest wymagane.")
	}
	if strings.TrimSpace(in.Name) == "" {
		v.Add("name", "To pole jest wymagane.")
	}
	if in.IsApplied == "" {
		in.IsApplied = models.AppliedNo
	}
	if !in.IsApplied.Valid() {
		v.Add("is_applied", "Nieprawidłowy status.")
	}
	if err := s.db.First(&models.ISOObjective{}, in.ObjectiveID).Error; err != nil {
		v.Add("objective_id", "Wybrany cel nie istnieje.")
	}
	if err := v.Err(); err != nil {
		return err
	}
	r.ObjectiveID = in.ObjectiveID
	r.ISOID = strings.TrimSpace(in.ISOID)
	r.Name = strings.TrimSpace(in.Name)
	r.Description = in.Description
	r.IsApplied = in.IsApplied
	r.ImplementationMethod = in.ImplementationMethod
	r.Notes = in.Notes
	r.Objective = nil
	return nil
}

func (s *DictionaryService) CreateRequirement(actor Actor, in RequirementInput) (*models.ISORequirement, error) {
	r := &models.ISORequirement{CreatedByID: actor.UserID()}
	if err := s.applyRequirement(r, in); err != nil {
		return nil, err
	}
	if err := s.db.Create(r).Error; err != nil {
		return nil, translate(err, ErrRequirementNotFound)
	}
	s.record(actor, models.ActionCreate, "iso_requirement", r.ID, r.String(), fmt.Sprintf("Utworzono wymaganie ISO %q", r.ISOID))
	return r, nil
}

func (s *DictionaryService) UpdateRequirement(actor Actor, id uint, in RequirementInput) (*models.ISORequirement, error) {
	var r models.ISORequirement
	if err := s.db.First(&r, id).Error; err != nil {
		return nil, translate(err, ErrRequirementNotFound)
	}
	if err := s.applyRequirement(&r, in); err != nil {
		return nil, err
	}
	r.UpdatedByID = actor.UserID()
	if err := s.db.Save(&r).Error; err != nil {
		return nil, translate(err, ErrRequirementNotFound)
	}
	s.record(actor, models.ActionUpdate, "iso_requirement", r.ID, r.String(), fmt.Sprintf("Zaktualizowano wymaganie ISO %q", r.ISOID))
	return &r, nil
}

// Matrix maps every requirement against every published document.
func (s *DictionaryService) Matrix() (*ComplianceMatrix, error) {
	var reqs []models.ISORequirement
	if err := s.db.Order("iso_id").Find(&reqs).Error; err != nil {
		return nil, err
	}
	var docs []models.Document
	if err := s.db.Where("status = ?", models.DocumentPublished).Order("title").Find(&docs).Error; err != nil {
		return nil, err
	}
	var mappings []models.DocumentISOMapping
	if err := s.db.Find(&mappings).Error; err != nil {
		return nil, err
	}

	type key struct{ doc, req uint }
	byPair := make(map[key]models.MappingType, len(mappings))
	covered := map[uint]bool{}
	for _, m := range mappings {
		byPair[key{m.DocumentID, m.ISORequirementID}] = m.MappingType
		covered[m.ISORequirementID] = true
	}

	out := &ComplianceMatrix{Documents: docs, Rows: make([]MatrixRow, 0, len(reqs))}
	for _, r := range reqs {
		row := MatrixRow{Requirement: r, Documents: make([]MatrixCell, 0, len(docs))}
		for _, d := range docs {
			row.Documents = append(row.Documents, MatrixCell{DocumentID: d.ID, MappingType: byPair[key{d.ID, r.ID}]})
		}
		out.Rows = append(out.Rows, row)
	}

	st := MatrixStats{
		TotalRequirements:   int64(len(reqs)),
		CoveredRequirements: int64(len(covered)),
		TotalDocuments:      int64(len(docs)),
		TotalMappings:       int64(len(mappings)),
	}
	st.UncoveredRequirements = st.TotalRequirements - st.CoveredRequirements
	if st.TotalRequirements > 0 {
		st.CoveragePercent = math.Round(float64(st.CoveredRequirements)/float64(st.TotalRequirements)*1000) / 10
	}
	out.Stats = st
	return out, nil
}

func (s *DictionaryService) record(actor Actor, action models.ActivityAction, objectType string, id uint, repr, desc string) {
	s.activity.Record(actor, ActivityEntry{
		Action: action, Category: models.ActivityDictionary,
		ObjectType: objectType, ObjectID: id, ObjectRepr: repr,
		Description: fmt.Sprintf("%s: %s", desc, repr),
	})
}

func requireFields(fields map[string]string) error {
	v := &ValidationError{}
	for name, val := range fields {
		if strings.TrimSpace(val) == "" {
			v.Add(name, "To pole jest wymagane.")
		}
	}
	return v.Err()
}
