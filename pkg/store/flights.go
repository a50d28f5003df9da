package store

import (
	"context"
	"time"

	"github.com/aeroline/flightcore/pkg/models"
)

// CreateFlight inserts a new flight, replacing any existing row with the
// same id.
func (s *Store) CreateFlight(ctx context.Context, flight *models.Flight) error {
	return s.db.WithContext(ctx).Save(flight).Error
}

// GetFlight loads a flight by id.
func (s *Store) GetFlight(ctx context.Context, id string) (*models.Flight, error) {
	var flight models.Flight
	if err := s.db.WithContext(ctx).First(&flight, "id = ?", id).Error; err != nil {
		return nil, convertNotFoundError(err, models.ErrFlightNotFound)
	}
	return &flight, nil
}

// ListFlightsForVessel returns every flight belonging to vesselID.
func (s *Store) ListFlightsForVessel(ctx context.Context, vesselID string) ([]*models.Flight, error) {
	var flights []*models.Flight
	if err := s.db.WithContext(ctx).Where("vessel_id = ?", vesselID).Find(&flights).Error; err != nil {
		return nil, err
	}
	return flights, nil
}

// ExtendFlightEnd persists a new End time for a flight, used by the
// ingestion buffer's flush task to keep long-running flights alive.
func (s *Store) ExtendFlightEnd(ctx context.Context, flightID string, end time.Time) error {
	return s.db.WithContext(ctx).Model(&models.Flight{}).Where("id = ?", flightID).Update("end", end).Error
}

func (s *Store) flightIDsForVessel(ctx context.Context, vesselID string) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&models.Flight{}).Where("vessel_id = ?", vesselID).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// deleteFlightDataByIDs removes flights, their measurement records, and
// their commands, for the given flight ids.
func (s *Store) deleteFlightDataByIDs(ctx context.Context, flightIDs []string) error {
	if len(flightIDs) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Delete(&models.MeasurementRecord{}, "flight_id IN ?", flightIDs).Error; err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&models.Command{}, "flight_id IN ?", flightIDs).Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(&models.Flight{}, "id IN ?", flightIDs).Error
}
