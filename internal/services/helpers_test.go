package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Czechuuuu/szbi/internal/database"
	"github.com/Czechuuuu/szbi/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func seedOrganization(t *testing.T, db *gorm.DB) *models.Organization {
	t.Helper()
	org := &models.Organization{Name: "Test Org"}
	require.NoError(t, db.Create(org).Error)
	return org
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Name: email, IsActive: true}
	require.NoError(t, u.SetPassword("password123"))
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedSuperuser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	u := seedUser(t, db, "root@example.com")
	u.IsSuperuser = true
	u.IsStaff = true
	require.NoError(t, db.Save(u).Error)
	return u
}

func seedEmployee(t *testing.T, db *gorm.DB, orgID uint, email string) *models.Employee {
	t.Helper()
	u := seedUser(t, db, email)
	e := &models.Employee{UserID: u.ID, OrganizationID: orgID, FirstName: "Jan", LastName: email, IsActive: true}
	require.NoError(t, db.Create(e).Error)
	e.User = u
	return e
}

func seedGroup(t *testing.T, db *gorm.DB, name string, perms ...string) *models.PermissionGroup {
	t.Helper()
	g := &models.PermissionGroup{Name: name}
	for _, p := range perms {
		perm := models.Permission{Name: p, Category: categoryOf(p)}
		require.NoError(t, db.Where(models.Permission{Name: p}).FirstOrCreate(&perm).Error)
		g.Permissions = append(g.Permissions, perm)
	}
	require.NoError(t, db.Create(g).Error)
	return g
}

func categoryOf(name string) models.PermissionCategory {
	for _, p := range models.SystemPermissions {
		if p.Name == name {
			return p.Category
		}
	}
	return models.CategorySystem
}

func actorFor(t *testing.T, db *gorm.DB, u *models.User) Actor {
	t.Helper()
	a, err := NewPermissionService(db, NewActivityService(db, 50)).ActorFor(u)
	require.NoError(t, err)
	a.IPAddress = "203.0.113.7"
	a.UserAgent = "go-test"
	return a
}

func countActivity(t *testing.T, db *gorm.DB, action models.ActivityAction, category models.ActivityCategory) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.ActivityLog{}).Where("action = ? AND category = ?", action, category).Count(&n).Error)
	return n
}

func day(s string) time.Time {
	d, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		panic(err)
	}
	return d
}

func seedRequirement(t *testing.T, db *gorm.DB, isoID string) *models.ISORequirement {
	t.Helper()
	dom := models.ISODomain{Code: isoID[:3], Name: "Domena " + isoID[:3]}
	require.NoError(t, db.Where(models.ISODomain{Code: dom.Code}).FirstOrCreate(&dom).Error)
	obj := models.ISOObjective{DomainID: dom.ID, Code: isoID, Name: "Cel " + isoID}
	require.NoError(t, db.Where(models.ISOObjective{DomainID: dom.ID, Code: isoID}).FirstOrCreate(&obj).Error)
	req := &models.ISORequirement{ObjectiveID: obj.ID, ISOID: isoID, Name: "Wymaganie " + isoID, IsApplied: models.AppliedNo}
	require.NoError(t, db.Create(req).Error)
	return req
}
