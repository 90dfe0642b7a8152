package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestActivityLog_Immutable(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&ActivityLog{}))

	entry := &ActivityLog{
		Action:     ActionCreate,
		Category:   ActivityDepartment,
		ObjectType: "Department",
		ObjectRepr: "IT",
		Details:    datatypes.JSONMap{"name": "IT"},
	}
	require.NoError(t, db.Create(entry).Error)

	err = db.Model(entry).Update("description", "changed").Error
	assert.ErrorIs(t, err, ErrActivityLogImmutable)

	err = db.Delete(entry).Error
	assert.ErrorIs(t, err, ErrActivityLogImmutable)

	var stored ActivityLog
	require.NoError(t, db.First(&stored, entry.ID).Error)
	assert.Equal(t, "", stored.Description)
	assert.Equal(t, "IT", stored.Details["name"])
}
