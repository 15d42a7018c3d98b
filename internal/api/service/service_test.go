package service

import (
	"path/filepath"
	"testing"

	"planning/internal/api/events"
	"planning/internal/api/models"
	"planning/pkg"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "planning.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
	})
	require.NoError(t, err, "Failed to open test database")

	err = db.AutoMigrate(
		&models.Machine{},
		&models.JobPlanning{},
		&models.JobStep{},
		&models.MachineAssignment{},
		&models.IntegrityAudit{},
	)
	require.NoError(t, err, "Failed to migrate test database")

	return db
}

type testStack struct {
	db          *gorm.DB
	plannings   *PlanningService
	steps       *StepService
	assignments *AssignmentService
	reconciler  *ReconcileService
	views       *ViewService
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	db := setupTestDB(t)
	log := zerolog.Nop()
	pub := events.NewNoopPublisher()
	cache := pkg.NewCache(nil, MachineCacheTTL)

	return &testStack{
		db:          db,
		plannings:   NewPlanningService(db, log),
		steps:       NewStepService(db, pub, log),
		assignments: NewAssignmentService(db, cache, pub, log),
		reconciler:  NewReconcileService(db, pub, log),
		views:       NewViewService(db, pub, log),
	}
}

func seedMachine(t *testing.T, db *gorm.DB, code, machineType, unit string) models.Machine {
	t.Helper()

	m := models.Machine{
		MachineCode: code,
		MachineType: machineType,
		Unit:        unit,
		Active:      true,
	}
	require.NoError(t, db.Create(&m).Error)
	return m
}

func twoStepPlanning(t *testing.T, s *testStack, jobID string) *models.JobPlanning {
	t.Helper()

	p, err := s.plannings.Create(jobID, models.DemandNormal, models.SequencingStrict, []models.StepDef{
		{StepNo: 1, StepName: "PaperStore"},
		{StepNo: 2, StepName: "Printing"},
	})
	require.NoError(t, err)
	return p
}
