package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/aeroline/flightcore/internal/logger"
	"github.com/aeroline/flightcore/pkg/models"
)

// UpsertVessel implements optimistic vessel versioning: server-managed
// fields (version, name, permissions) are carried over from the stored
// record to defeat client tampering, and the version only advances when the
// remaining content differs from what is stored. The first registration of
// a vessel id writes version 1.
func (s *Store) UpsertVessel(ctx context.Context, vessel *models.Vessel) (*models.Vessel, error) {
	var old models.Vessel
	err := s.db.WithContext(ctx).First(&old, "id = ?", vessel.ID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		vessel.Version = 1
		if err := s.db.WithContext(ctx).Create(vessel).Error; err != nil {
			return nil, fmt.Errorf("creating vessel: %w", err)
		}
		return vessel, nil
	case err != nil:
		return nil, fmt.Errorf("loading existing vessel: %w", err)
	}

	vessel.Version = old.Version
	vessel.Name = old.Name
	vessel.Permissions = old.Permissions

	oldJSON, err := json.Marshal(&old)
	if err != nil {
		return nil, fmt.Errorf("comparing vessel snapshots: %w", err)
	}
	newJSON, err := json.Marshal(vessel)
	if err != nil {
		return nil, fmt.Errorf("comparing vessel snapshots: %w", err)
	}
	if string(oldJSON) == string(newJSON) {
		return &old, nil
	}

	vessel.Version = old.Version + 1
	historic := &models.VesselHistoric{
		VesselID:         old.ID,
		Version:          old.Version,
		Name:             old.Name,
		Parts:            old.Parts,
		Permissions:      old.Permissions,
		NoAuthPermission: old.NoAuthPermission,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(historic).Error; err != nil {
			return fmt.Errorf("snapshotting prior vessel version: %w", err)
		}
		if err := tx.Save(vessel).Error; err != nil {
			return fmt.Errorf("saving new vessel version: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vessel, nil
}

// UpdateVesselWithoutVersionChange persists vessel's current fields without
// touching Version or snapshotting a historic record, used by the rename
// endpoint.
func (s *Store) UpdateVesselWithoutVersionChange(ctx context.Context, vessel *models.Vessel) error {
	return s.db.WithContext(ctx).Save(vessel).Error
}

// GetVessel loads the current version of a vessel.
func (s *Store) GetVessel(ctx context.Context, id string) (*models.Vessel, error) {
	var vessel models.Vessel
	if err := s.db.WithContext(ctx).First(&vessel, "id = ?", id).Error; err != nil {
		return nil, convertNotFoundError(err, models.ErrVesselNotFound)
	}
	return &vessel, nil
}

// GetVesselByName returns all current vessels with the given display name.
func (s *Store) GetVesselByName(ctx context.Context, name string) ([]*models.Vessel, error) {
	var vessels []*models.Vessel
	if err := s.db.WithContext(ctx).Where("name = ?", name).Find(&vessels).Error; err != nil {
		return nil, err
	}
	return vessels, nil
}

// ListVessels returns every current vessel. Permission filtering is applied
// by the caller via pkg/permission.
func (s *Store) ListVessels(ctx context.Context) ([]*models.Vessel, error) {
	var vessels []*models.Vessel
	if err := s.db.WithContext(ctx).Find(&vessels).Error; err != nil {
		return nil, err
	}
	return vessels, nil
}

// GetVesselHistoric loads a specific historic snapshot of a vessel.
func (s *Store) GetVesselHistoric(ctx context.Context, id string, version int) (*models.VesselHistoric, error) {
	var historic models.VesselHistoric
	if err := s.db.WithContext(ctx).First(&historic, "vessel_id = ? AND version = ?", id, version).Error; err != nil {
		return nil, convertNotFoundError(err, models.ErrVesselNotFound)
	}
	return &historic, nil
}

// DeleteVesselCascade deletes a vessel along with its historic snapshots,
// flights, flight measurements, and commands, in parallel per §4.4. The
// caller observes success only once the vessel row itself is confirmed
// removed.
func (s *Store) DeleteVesselCascade(ctx context.Context, vesselID string) error {
	flightIDs, err := s.flightIDsForVessel(ctx, vesselID)
	if err != nil {
		return fmt.Errorf("listing vessel flights: %w", err)
	}

	var wg sync.WaitGroup
	var historicsErr, flightDataErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		historicsErr = s.deleteHistoricsForVessel(ctx, vesselID)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		flightDataErr = s.deleteFlightDataByIDs(ctx, flightIDs)
	}()

	var vesselDeleteErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		vesselDeleteErr = s.db.WithContext(ctx).Delete(&models.Vessel{}, "id = ?", vesselID).Error
	}()

	wg.Wait()

	if vesselDeleteErr != nil {
		return fmt.Errorf("cascading vessel delete: %w", vesselDeleteErr)
	}

	// The vessel row itself is gone; leftover historics/flight-data rows are
	// orphaned but no longer reachable through the vessel, so they are
	// logged rather than turned into a caller-facing failure.
	if historicsErr != nil {
		logger.Warn("vessel cascade delete: historics cleanup failed", "vessel_id", vesselID, "error", historicsErr)
	}
	if flightDataErr != nil {
		logger.Warn("vessel cascade delete: flight data cleanup failed", "vessel_id", vesselID, "error", flightDataErr)
	}
	return nil
}

func (s *Store) deleteHistoricsForVessel(ctx context.Context, vesselID string) error {
	return s.db.WithContext(ctx).Delete(&models.VesselHistoric{}, "vessel_id = ?", vesselID).Error
}
