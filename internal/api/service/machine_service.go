package service

import (
	"context"
	"fmt"
	"time"

	"planning/internal/api/models"
	"planning/internal/api/repo"
	"planning/pkg"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const registryLookupTimeout = 2 * time.Second

// MachineCacheTTL bounds how long a registry lookup may be served from cache.
const MachineCacheTTL = 5 * time.Minute

// MachineService is the read-only view of the machine registry. Lookups are
// cached: registry data only changes through inventory imports, and the
// denormalized copy on each assignment keeps history stable regardless.
type MachineService struct {
	machineRepo *repo.MachineRepository
	cache       *pkg.Cache
	logger      zerolog.Logger
}

func NewMachineService(db *gorm.DB, cache *pkg.Cache, logger zerolog.Logger) *MachineService {
	return &MachineService{
		machineRepo: repo.NewMachineRepository(db),
		cache:       cache,
		logger:      logger,
	}
}

// Lookup resolves a machine by id, serving from cache when possible. Registry
// reads are bounded; an overrun surfaces as a Timeout failure.
func (slf *MachineService) Lookup(machineID uint) (models.Machine, error) {
	key := fmt.Sprintf("machine:%d", machineID)

	var cached models.Machine
	if err := slf.cache.GetJSON(key, &cached); err == nil {
		return cached, nil
	} else if !pkg.IsCacheMiss(err) {
		slf.logger.Warn().Err(err).Uint("machineId", machineID).Msg("Machine cache read failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), registryLookupTimeout)
	defer cancel()

	m, err := slf.machineRepo.FindByID(ctx, machineID)
	if err != nil {
		return models.Machine{}, err
	}

	if err := slf.cache.SetJSON(key, m); err != nil {
		slf.logger.Warn().Err(err).Uint("machineId", machineID).Msg("Machine cache write failed")
	}
	return m, nil
}

// List returns the full registry.
func (slf *MachineService) List() ([]models.Machine, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return slf.machineRepo.List(ctx)
}
