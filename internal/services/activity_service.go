package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Czechuuuu/szbi/internal/logger"
	"github.com/Czechuuuu/szbi/internal/metrics"
	"github.com/Czechuuuu/szbi/internal/models"
	"github.com/Czechuuuu/szbi/internal/util"
)

const maxExportRows = 10000

// ActivityEntry describes one audited action.
type ActivityEntry struct {
	Action      models.ActivityAction
	Category    models.ActivityCategory
	ObjectType  string
	ObjectID    uint
	ObjectRepr  string
	Description string
	Details     map[string]interface{}
}

// ActivityFilter narrows the activity log listing. DateTo is inclusive.
type ActivityFilter struct {
	Category models.ActivityCategory
	Action   models.ActivityAction
	UserID   *uint
	DateFrom *time.Time
	DateTo   *time.Time
	Query    string
	Page     int
}

// ActivityPage is one page of the activity log.
type ActivityPage struct {
	Items    []models.ActivityLog `json:"items"`
	Page     int                  `json:"page"`
	Pages    int                  `json:"pages"`
	PageSize int                  `json:"page_size"`
	Total    int64                `json:"total"`
}

type ActivityService struct {
	db       *gorm.DB
	pageSize int
}

func NewActivityService(db *gorm.DB, pageSize int) *ActivityService {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &ActivityService{db: db, pageSize: pageSize}
}

// Record writes an entry outside any caller transaction. A failed write is
// logged and counted but never surfaced; the returned entry is nil then.
func (s *ActivityService) Record(actor Actor, e ActivityEntry) *models.ActivityLog {
	entry := &models.ActivityLog{
		UserID:      actor.UserID(),
		UserName:    actor.User.String(),
		Action:      e.Action,
		Category:    e.Category,
		ObjectType:  e.ObjectType,
		ObjectRepr:  util.Truncate(e.ObjectRepr, 200),
		Description: e.Description,
		IPAddress:   actor.IPAddress,
		UserAgent:   actor.UserAgent,
	}
	if e.ObjectID != 0 {
		id := e.ObjectID
		entry.ObjectID = &id
	}
	if len(e.Details) > 0 {
		entry.Details = datatypes.JSONMap(e.Details)
	}

	if err := s.db.Create(entry).Error; err != nil {
		metrics.IncActivityLogWrite("error")
		logger.WithFields(logrus.Fields{
			"action":   e.Action,
			"category": e.Category,
			"object":   util.SanitizeForLog(e.ObjectRepr),
			"error":    err.Error(),
		}).Warn("activity log write failed")
		return nil
	}
	metrics.IncActivityLogWrite("ok")
	return entry
}

func (s *ActivityService) PageSize() int { return s.pageSize }

// List returns one page of entries, newest first. Out-of-range pages are
// clamped to the nearest valid page.
func (s *ActivityService) List(f ActivityFilter) (*ActivityPage, error) {
	var total int64
	if err := s.filtered(f).Model(&models.ActivityLog{}).Count(&total).Error; err != nil {
		return nil, err
	}

	pages := int(math.Ceil(float64(total) / float64(s.pageSize)))
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

	items := []models.ActivityLog{}
	err := s.filtered(f).
		Order("created_at desc, id desc").
		Limit(s.pageSize).
		Offset((page - 1) * s.pageSize).
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	return &ActivityPage{Items: items, Page: page, Pages: pages, PageSize: s.pageSize, Total: total}, nil
}

// All returns every matching entry, newest first, capped for exports.
func (s *ActivityService) All(f ActivityFilter) ([]models.ActivityLog, error) {
	var items []models.ActivityLog
	err := s.filtered(f).Order("created_at desc, id desc").Limit(maxExportRows).Find(&items).Error
	return items, err
}

// Get returns a single entry.
func (s *ActivityService) Get(id uint) (*models.ActivityLog, error) {
	var entry models.ActivityLog
	if err := s.db.First(&entry, id).Error; err != nil {
		return nil, translate(err, fmt.Errorf("activity log entry %w", ErrNotFound))
	}
	return &entry, nil
}

// ForObject returns the entries that target a single record.
func (s *ActivityService) ForObject(category models.ActivityCategory, objectID uint) ([]models.ActivityLog, error) {
	var items []models.ActivityLog
	err := s.db.Where("category = ? AND object_id = ?", category, objectID).
		Order("created_at desc, id desc").Find(&items).Error
	return items, err
}

func (s *ActivityService) filtered(f ActivityFilter) *gorm.DB {
	q := s.db.Model(&models.ActivityLog{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.DateFrom != nil {
		q = q.Where("created_at >= ?", startOfDay(*f.DateFrom))
	}
	if f.DateTo != nil {
		q = q.Where("created_at < ?", startOfDay(*f.DateTo).AddDate(0, 0, 1))
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		like := containsPattern(term)
		q = q.Where("LOWER(object_repr) LIKE ? OR LOWER(description) LIKE ? OR LOWER(user_name) LIKE ?", like, like, like)
	}
	return q
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
