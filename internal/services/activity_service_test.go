package services

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Czechuuuu/szbi/internal/models"
)

func TestActivityService_RecordCapturesActor(t *testing.T) {
	db := setupTestDB(t)
	svc := NewActivityService(db, 50)
	u := seedUser(t, db, "auditor@example.com")
	a := actorFor(t, db, u)

	entry := svc.Record(a, ActivityEntry{
		Action: models.ActionCreate, Category: models.ActivityAsset,
		ObjectType: "asset", ObjectID: 7, ObjectRepr: "[HW-1] Laptop",
		Description: "Utworzono aktywo", Details: map[string]interface{}{"status": "active"},
	})
	require.NotNil(t, entry)

	got, err := svc.Get(entry.ID)
	require.NoError(t, err)
	require.NotNil(t, got.UserID)
	assert.Equal(t, u.ID, *got.UserID)
	assert.Equal(t, "auditor@example.com", got.UserName)
	assert.Equal(t, "203.0.113.7", got.IPAddress)
	assert.Equal(t, "go-test", got.UserAgent)
	assert.Equal(t, "active", got.Details["status"])
	require.NotNil(t, got.ObjectID)
	assert.EqualValues(t, 7, *got.ObjectID)
}

func TestActivityService_SystemActorHasNoUser(t *testing.T) {
	db := setupTestDB(t)
	svc := NewActivityService(db, 50)

	entry := svc.Record(SystemActor(), ActivityEntry{Action: models.ActionImport, Category: models.ActivitySystem})
	require.NotNil(t, entry)
	assert.Nil(t, entry.UserID)
	assert.Empty(t, entry.UserName)
	assert.Nil(t, entry.ObjectID)
}

func TestActivityService_RecordTruncatesRepr(t *testing.T) {
	db := setupTestDB(t)
	svc := NewActivityService(db, 50)

	long := make([]rune, 300)
	for i := range long {
		long[i] = 'ż'
	}
	entry := svc.Record(SystemActor(), ActivityEntry{Action: models.ActionOther, Category: models.ActivitySystem, ObjectRepr: string(long)})
	require.NotNil(t, entry)
	assert.LessOrEqual(t, len([]rune(entry.ObjectRepr)), 200)
}

func TestActivityService_WriteFailureIsSwallowed(t *testing.T) {
	db := setupTestDB(t)
	svc := NewActivityService(db, 50)
	require.NoError(t, db.Migrator().DropTable(&models.ActivityLog{}))

	assert.NotPanics(t, func() {
		assert.Nil(t, svc.Record(SystemActor(), ActivityEntry{Action: models.ActionOther, Category: models.ActivitySystem}))
	})
}

func TestActivityService_EntriesAreImmutable(t *testing.T) {
	db := setupTestDB(t)
	svc := NewActivityService(db, 50)
	entry := svc.Record(SystemActor(), ActivityEntry{Action: models.ActionOther, Category: models.ActivitySystem, Description: "before"})
	require.NotNil(t, entry)

	entry.Description = "after"
	assert.ErrorIs(t, db.Save(entry).Error, models.ErrActivityLogImmutable)
	assert.ErrorIs(t, db.Delete(entry).Error, models.ErrActivityLogImmutable)
}

func TestActivityService_ListPaginatesNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	svc := NewActivityService(db, 10)

	for i := 0; i < 25; i++ {
		svc.Record(SystemActor(), ActivityEntry{Action: models.ActionOther, Category: models.ActivitySystem, Description: fmt.Sprintf("entry %d", i)})
	}

	page, err := svc.List(ActivityFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 25, page.Total)
	assert.Equal(t, 3, page.Pages)
	assert.Equal(t, 1, page.Page)
	require.Len(t, page.Items, 10)
	assert.Equal(t, "entry 24", page.Items[0].Description)

	last, err := svc.List(ActivityFilter{Page: 99})
	require.NoError(t, err)
	assert.Equal(t, 3, last.Page)
	assert.Len(t, last.Items, 5)

	first, err := svc.List(ActivityFilter{Page: -1})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Page)
}

func TestActivityService_EmptyLogHasOnePage(t *testing.T) {
	db := setupTestDB(t)
	page, err := NewActivityService(db, 50).List(ActivityFilter{Page: 4})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 1, page.Pages)
	assert.Empty(t, page.Items)
}

func TestActivityService_Filters(t *testing.T) {
	db := setupTestDB(t)
	svc := NewActivityService(db, 50)
	u := seedUser(t, db, "kowalski@example.com")

	rows := []models.ActivityLog{
		{UserID: &u.ID, UserName: "kowalski", Action: models.ActionCreate, Category: models.ActivityAsset, ObjectRepr: "Serwer", CreatedAt: day("2025-03-01").Add(10 * time.Hour)},
		{UserID: &u.ID, UserName: "kowalski", Action: models.ActionDelete, Category: models.ActivityAsset, ObjectRepr: "Drukarka", CreatedAt: day("2025-03-05").Add(23 * time.Hour)},
		{UserName: "system", Action: models.ActionCreate, Category: models.ActivityDocument, ObjectRepr: "Polityka haseł", CreatedAt: day("2025-03-10")},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	count := func(f ActivityFilter) int64 {
		p, err := svc.List(f)
		require.NoError(t, err)
		return p.Total
	}

	assert.EqualValues(t, 2, count(ActivityFilter{Category: models.ActivityAsset}))
	assert.EqualValues(t, 2, count(ActivityFilter{Action: models.ActionCreate}))
	assert.EqualValues(t, 2, count(ActivityFilter{UserID: &u.ID}))
	assert.EqualValues(t, 1, count(ActivityFilter{Query: "haseł"}))
	assert.EqualValues(t, 2, count(ActivityFilter{Query: "KOWALSKI"}))

	from, to := day("2025-03-02"), day("2025-03-05")
	assert.EqualValues(t, 1, count(ActivityFilter{DateFrom: &from, DateTo: &to}), "date_to is inclusive")
	assert.EqualValues(t, 2, count(ActivityFilter{DateFrom: &from}))
}

func TestActivityService_ForObject(t *testing.T) {
	db := setupTestDB(t)
	svc := NewActivityService(db, 50)
	svc.Record(SystemActor(), ActivityEntry{Action: models.ActionCreate, Category: models.ActivityAsset, ObjectID: 1})
	svc.Record(SystemActor(), ActivityEntry{Action: models.ActionUpdate, Category: models.ActivityAsset, ObjectID: 1})
	svc.Record(SystemActor(), ActivityEntry{Action: models.ActionUpdate, Category: models.ActivityDocument, ObjectID: 1})

	items, err := svc.ForObject(models.ActivityAsset, 1)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestActivityService_ExportXLSX(t *testing.T) {
	db := setupTestDB(t)
	svc := NewActivityService(db, 50)
	a := actorFor(t, db, seedUser(t, db, "exporter@example.com"))
	svc.Record(a, ActivityEntry{Action: models.ActionCreate, Category: models.ActivityAsset, ObjectRepr: "Laptop"})
	svc.Record(a, ActivityEntry{Action: models.ActionLogin, Category: models.ActivityAuth})

	var buf bytes.Buffer
	require.NoError(t, svc.ExportXLSX(a, ActivityFilter{Category: models.ActivityAsset}, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Dziennik zdarzeń")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Data", rows[0][0])
	assert.Equal(t, "Utworzenie", rows[1][2])
	assert.Equal(t, "Laptop", rows[1][6])

	assert.EqualValues(t, 1, countActivity(t, db, models.ActionExport, models.ActivitySystem))
}
