package services

import (
	"context"
	"testing"

	"github.com/acadarchive/archive-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAuditService_Record_CategoryDispatch(t *testing.T) {
	db := newTestDB(t)
	account, program, department := seedReferenceData(t, db)
	svc := NewAuditService(db)

	abstract := models.Abstract{
		Title: "t", Description: "d", Researchers: "r", Citation: "c",
		Kind: models.KindThesis,
	}
	require.NoError(t, db.Create(&abstract).Error)

	cases := []struct {
		action   string
		category string
		targetID uint
	}{
		{models.ActionCreateAbstract, models.CategoryAbstract, abstract.ID},
		{models.ActionUpdateProgram, models.CategoryProgram, program.ID},
		{models.ActionDeleteDepartment, models.CategoryDepartment, department.ID},
		{models.ActionUpdateAccount, models.CategoryAccount, account.ID},
	}

	for _, tc := range cases {
		err := db.Transaction(func(tx *gorm.DB) error {
			_, err := svc.Record(context.Background(), tx, account.ID, tc.action, tc.category, tc.targetID)
			return err
		})
		require.NoError(t, err, tc.category)
	}

	var logCount, abstractDetails, programDetails, departmentDetails, accountDetails int64
	require.NoError(t, db.Model(&models.LogEntry{}).Count(&logCount).Error)
	require.NoError(t, db.Model(&models.LogAbstract{}).Count(&abstractDetails).Error)
	require.NoError(t, db.Model(&models.LogProgram{}).Count(&programDetails).Error)
	require.NoError(t, db.Model(&models.LogDepartment{}).Count(&departmentDetails).Error)
	require.NoError(t, db.Model(&models.LogAccount{}).Count(&accountDetails).Error)

	assert.EqualValues(t, 4, logCount)
	assert.EqualValues(t, 1, abstractDetails)
	assert.EqualValues(t, 1, programDetails)
	assert.EqualValues(t, 1, departmentDetails)
	assert.EqualValues(t, 1, accountDetails)
}

func TestAuditService_Record_UnknownCategoryAborts(t *testing.T) {
	db := newTestDB(t)
	account, _, _ := seedReferenceData(t, db)
	svc := NewAuditService(db)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Record(context.Background(), tx, account.ID, "CREATE_WIDGET", "WIDGET", 1)
		return err
	})

	var le *LoggingError
	require.ErrorAs(t, err, &le)

	// The base entry rolled back with the transaction
	var logCount int64
	require.NoError(t, db.Model(&models.LogEntry{}).Count(&logCount).Error)
	assert.Zero(t, logCount)
}

func TestAuditService_List(t *testing.T) {
	db := newTestDB(t)
	account, program, _ := seedReferenceData(t, db)
	svc := NewAuditService(db)

	for i := 0; i < 3; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			_, err := svc.Record(context.Background(), tx, account.ID, models.ActionUpdateProgram, models.CategoryProgram, program.ID)
			return err
		})
		require.NoError(t, err)
	}

	logs, total, err := svc.List(context.Background(), 2, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, logs, 2)
	assert.Equal(t, account.Email, logs[0].Actor.Email)
}
