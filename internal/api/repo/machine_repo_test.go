package repo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"planning/internal/api/apperr"
	"planning/internal/api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func setupMachineRepo(t *testing.T) *MachineRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "machines.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
	})
	require.NoError(t, err, "Failed to open test database")
	require.NoError(t, db.AutoMigrate(&models.Machine{}))
	return NewMachineRepository(db)
}

func TestMachineRepo_FindByID(t *testing.T) {
	r := setupMachineRepo(t)
	m := models.Machine{MachineCode: "CORR-01", MachineType: "corrugation", Unit: "U1", Active: true}
	require.NoError(t, r.Db.Create(&m).Error)

	got, err := r.FindByID(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, "CORR-01", got.MachineCode)

	_, err = r.FindByID(context.Background(), 999)
	require.Error(t, err)
	var notFound *apperr.NotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestMachineRepo_ExpiredDeadline(t *testing.T) {
	r := setupMachineRepo(t)
	m := models.Machine{MachineCode: "CORR-01", MachineType: "corrugation", Unit: "U1", Active: true}
	require.NoError(t, r.Db.Create(&m).Error)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := r.FindByID(ctx, m.ID)
	require.Error(t, err)
	var timeout *apperr.TimeoutError
	require.True(t, errors.As(err, &timeout), "deadline overrun must surface as a timeout failure")
	assert.Equal(t, "machine registry lookup", timeout.Op)

	_, err = r.List(ctx)
	require.Error(t, err)
	assert.True(t, errors.As(err, &timeout))
}
