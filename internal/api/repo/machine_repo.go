package repo

import (
	"context"
	"errors"

	"planning/internal/api/apperr"
	"planning/internal/api/models"

	"gorm.io/gorm"
)

// MachineRepository reads the machine registry. The registry is external to
// the planning core and is never written here.
type MachineRepository struct {
	Db *gorm.DB
}

func NewMachineRepository(db *gorm.DB) *MachineRepository {
	return &MachineRepository{Db: db}
}

// FindByID looks a machine up within the deadline carried by ctx. A deadline
// overrun surfaces as a Timeout failure for the caller to handle.
func (slf *MachineRepository) FindByID(ctx context.Context, machineID uint) (models.Machine, error) {
	var m models.Machine
	err := slf.Db.WithContext(ctx).First(&m, machineID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return m, &apperr.NotFoundError{Entity: "machine", Key: uintKey(machineID)}
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return m, &apperr.TimeoutError{Op: "machine registry lookup", Err: err}
		}
		return m, err
	}
	return m, nil
}

// List returns all registry machines ordered by code.
func (slf *MachineRepository) List(ctx context.Context) ([]models.Machine, error) {
	var machines []models.Machine
	err := slf.Db.WithContext(ctx).Order("machine_code ASC").Find(&machines).Error
	if err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		return nil, &apperr.TimeoutError{Op: "machine registry list", Err: err}
	}
	return machines, err
}
