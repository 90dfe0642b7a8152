package services

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Czechuuuu/szbi/internal/models"
)

type AssetCategoryInput struct {
	Name        string `json:"name" binding:"required,max=100"`
	Code        string `json:"code" binding:"required,max=20"`
	Description string `json:"description"`
	ParentID    *uint  `json:"parent_id"`
}

// AssetInput is the full asset form. Dates use YYYY-MM-DD.
type AssetInput struct {
	Designation     string             `json:"designation" binding:"required,max=50"`
	Name            string             `json:"name" binding:"required,max=255"`
	Description     string             `json:"description"`
	CategoryID      uint               `json:"category_id" binding:"required"`
	Status          models.AssetStatus `json:"status"`
	Criticality     models.Criticality `json:"criticality"`
	OwnerID         uint               `json:"owner_id" binding:"required"`
	DepartmentID    *uint              `json:"department_id"`
	Location        string             `json:"location"`
	AcquisitionDate string             `json:"acquisition_date"`
	WarrantyExpiry  string             `json:"warranty_expiry"`
	Value           *float64           `json:"value" binding:"omitempty,gte=0"`
}

type AssetFilter struct {
	CategoryID  *uint
	Status      models.AssetStatus
	Criticality models.Criticality
	Query       string
}

type AssetService struct {
	db       *gorm.DB
	activity *ActivityService
}

func NewAssetService(db *gorm.DB, activity *ActivityService) *AssetService {
	return &AssetService{db: db, activity: activity}
}

// Categories

func (s *AssetService) ListCategories() ([]models.AssetCategory, error) {
	var cats []models.AssetCategory
	return cats, s.db.Order("code").Find(&cats).Error
}

func (s *AssetService) GetCategory(id uint) (*models.AssetCategory, error) {
	var c models.AssetCategory
	if err := s.db.Preload("Subcategories").First(&c, id).Error; err != nil {
		return nil, translate(err, ErrAssetCategoryNotFound)
	}
	return &c, nil
}

func (s *AssetService) validateCategory(id uint, in AssetCategoryInput) error {
	v := &ValidationError{}
	if strings.TrimSpace(in.Name) == "" {
		v.Add("name", "To pole jest wymagane.")
	}
	if strings.TrimSpace(in.Code) == "" {
		v.Add("code", "To pole jest wymagane.")
	}
	if in.ParentID != nil {
		if id != 0 && *in.ParentID == id {
			v.Add("parent_id", "Kategoria nie może być swoją własną kategorią nadrzędną.")
		} else if err := s.db.First(&models.AssetCategory{}, *in.ParentID).Error; err != nil {
			v.Add("parent_id", "Wybrana kategoria nadrzędna nie istnieje.")
		}
	}
	return v.Err()
}

func (s *AssetService) CreateCategory(actor Actor, in AssetCategoryInput) (*models.AssetCategory, error) {
	if err := s.validateCategory(0, in); err != nil {
		return nil, err
	}
	c := &models.AssetCategory{Name: strings.TrimSpace(in.Name), Code: strings.ToUpper(strings.TrimSpace(in.Code)), Description: in.Description, ParentID: in.ParentID}
	if err := s.db.Create(c).Error; err != nil {
		return nil, translate(err, ErrAssetCategoryNotFound)
	}
	s.activity.Record(actor, ActivityEntry{
		Action: models.ActionCreate, Category: models.ActivityAsset,
		ObjectType: "asset_category", ObjectID: c.ID, ObjectRepr: c.String(),
		Description: fmt.Sprintf("Utworzono kategorię aktywów: %s", c.String()),
	})
	return c, nil
}

func (s *AssetService) UpdateCategory(actor Actor, id uint, in AssetCategoryInput) (*models.AssetCategory, error) {
	if err := s.validateCategory(id, in); err != nil {
		return nil, err
	}
	var c models.AssetCategory
	if err := s.db.First(&c, id).Error; err != nil {
		return nil, translate(err, ErrAssetCategoryNotFound)
	}
	c.Name = strings.TrimSpace(in.Name)
	c.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	c.Description = in.Description
	c.ParentID = in.ParentID
	if err := s.db.Save(&c).Error; err != nil {
		return nil, translate(err, ErrAssetCategoryNotFound)
	}
	s.activity.Record(actor, ActivityEntry{
		Action: models.ActionUpdate, Category: models.ActivityAsset,
		ObjectType: "asset_category", ObjectID: c.ID, ObjectRepr: c.String(),
		Description: fmt.Sprintf("Zaktualizowano kategorię aktywów: %s", c.String()),
	})
	return &c, nil
}

// Assets

func (s *AssetService) List(f AssetFilter) ([]models.Asset, error) {
	var assets []models.Asset
	q := s.db.Preload("Category").Preload("Owner").Preload("Department").Order("designation")
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Criticality != "" {
		q = q.Where("criticality = ?", f.Criticality)
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		like := containsPattern(term)
		q = q.Where("LOWER(designation) LIKE ? OR LOWER(name) LIKE ? OR LOWER(location) LIKE ?", like, like, like)
	}
	return assets, q.Find(&assets).Error
}

func (s *AssetService) Get(id uint) (*models.Asset, error) {
	var a models.Asset
	if err := s.db.Preload("Category").Preload("Owner").Preload("Department").First(&a, id).Error; err != nil {
		return nil, translate(err, ErrAssetNotFound)
	}
	return &a, nil
}

func (s *AssetService) Logs(id uint) ([]models.AssetLog, error) {
	var logs []models.AssetLog
	return logs, s.db.Preload("User").Where("asset_id = ?", id).Order("created_at desc, id desc").Find(&logs).Error
}

func (s *AssetService) apply(a *models.Asset, in AssetInput) error {
	v := &ValidationError{}
	if strings.TrimSpace(in.Designation) == "" {
		v.Add("designation", "To pole jest wymagane.")
	}
	if strings.TrimSpace(in.Name) == "" {
		v.Add("name", "To pole jest wymagane.")
	}
	if in.Status == "" {
		in.Status = models.AssetActive
	}
	if !in.Status.Valid() {
		v.Add("status", "Nieprawidłowy status.")
	}
	if in.Criticality == "" {
		in.Criticality = models.CriticalityMedium
	}
	if !in.Criticality.Valid() {
		v.Add("criticality", "Nieprawidłowa krytyczność.")
	}
	if in.Value != nil && *in.Value < 0 {
		v.Add("value", "Wartość nie może być ujemna.")
	}
	if err := s.db.First(&models.AssetCategory{}, in.CategoryID).Error; err != nil {
		v.Add("category_id", "Wybrana kategoria nie istnieje.")
	}
	if err := s.db.First(&models.Employee{}, in.OwnerID).Error; err != nil {
		v.Add("owner_id", "Wybrany pracownik nie istnieje.")
	}
	if in.DepartmentID != nil {
		if err := s.db.First(&models.Department{}, *in.DepartmentID).Error; err != nil {
			v.Add("department_id", "Wybrany dział nie istnieje.")
		}
	}
	acquired := parseOptionalDate(v, "acquisition_date", in.AcquisitionDate)
	warranty := parseOptionalDate(v, "warranty_expiry", in.WarrantyExpiry)
	if err := v.Err(); err != nil {
		return err
	}

	a.Designation = strings.TrimSpace(in.Designation)
	a.Name = strings.TrimSpace(in.Name)
	a.Description = in.Description
	a.CategoryID = in.CategoryID
	a.Status = in.Status
	a.Criticality = in.Criticality
	a.OwnerID = in.OwnerID
	a.DepartmentID = in.DepartmentID
	a.Location = in.Location
	a.AcquisitionDate = acquired
	a.WarrantyExpiry = warranty
	a.Value = in.Value
	a.Category, a.Owner, a.Department = nil, nil, nil
	return nil
}

func (s *AssetService) Create(actor Actor, in AssetInput) (*models.Asset, error) {
	a := &models.Asset{CreatedByID: actor.UserID()}
	if err := s.apply(a, in); err != nil {
		return nil, err
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(a).Error; err != nil {
			return err
		}
		return tx.Create(&models.AssetLog{
			AssetID: a.ID, UserID: actor.UserID(), Action: models.AssetLogCreated,
			Description: fmt.Sprintf("Utworzono aktywo %s", a.String()),
		}).Error
	})
	if err != nil {
		return nil, translate(err, ErrAssetNotFound)
	}
	s.activity.Record(actor, ActivityEntry{
		Action: models.ActionCreate, Category: models.ActivityAsset,
		ObjectType: "asset", ObjectID: a.ID, ObjectRepr: a.String(),
		Description: fmt.Sprintf("Utworzono aktywo: %s", a.String()),
	})
	return a, nil
}

func (s *AssetService) Update(actor Actor, id uint, in AssetInput) (*models.Asset, error) {
	var a models.Asset
	if err := s.db.First(&a, id).Error; err != nil {
		return nil, translate(err, ErrAssetNotFound)
	}
	oldStatus, oldOwner := a.Status, a.OwnerID
	if err := s.apply(&a, in); err != nil {
		return nil, err
	}

	var entries []models.AssetLog
	if a.Status != oldStatus {
		action := models.AssetLogStatusChanged
		if a.Status == models.AssetDisposed {
			action = models.AssetLogDisposed
		}
		entries = append(entries, models.AssetLog{Action: action, Description: fmt.Sprintf(
			"Status: %s → %s", models.AssetStatusLabels[oldStatus], models.AssetStatusLabels[a.Status])})
	}
	if a.OwnerID != oldOwner {
		entries = append(entries, models.AssetLog{Action: models.AssetLogOwnerChanged, Description: fmt.Sprintf(
			"Zmieniono właściciela (pracownik #%d → #%d)", oldOwner, a.OwnerID)})
	}
	if len(entries) == 0 {
		entries = append(entries, models.AssetLog{Action: models.AssetLogUpdated, Description: "Zaktualizowano dane aktywa"})
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&a).Error; err != nil {
			return err
		}
		for i := range entries {
			entries[i].AssetID = a.ID
			entries[i].UserID = actor.UserID()
			if err := tx.Create(&entries[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, ErrAssetNotFound)
	}
	s.activity.Record(actor, ActivityEntry{
		Action: models.ActionUpdate, Category: models.ActivityAsset,
		ObjectType: "asset", ObjectID: a.ID, ObjectRepr: a.String(),
		Description: fmt.Sprintf("Zaktualizowano aktywo: %s", a.String()),
	})
	return &a, nil
}

// Counts returns the number of assets per status.
func (s *AssetService) Counts() (map[models.AssetStatus]int64, error) {
	type row struct {
		Status models.AssetStatus
		N      int64
	}
	var rows []row
	if err := s.db.Model(&models.Asset{}).Select("status, COUNT(*) AS n").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := map[models.AssetStatus]int64{}
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}
