package store

import (
	"context"
	"time"

	"github.com/aeroline/flightcore/pkg/models"
)

// CreateCommand inserts a new operator-originated command. Inserts never
// overwrite an existing row.
func (s *Store) CreateCommand(ctx context.Context, cmd *models.Command) error {
	return s.db.WithContext(ctx).Create(cmd).Error
}

// UpsertCommand replaces any existing row with the same id, used for
// vessel-originated commands and confirmation updates.
func (s *Store) UpsertCommand(ctx context.Context, cmd *models.Command) error {
	return s.db.WithContext(ctx).Save(cmd).Error
}

// GetCommand loads a command by id.
func (s *Store) GetCommand(ctx context.Context, id string) (*models.Command, error) {
	var cmd models.Command
	if err := s.db.WithContext(ctx).First(&cmd, "id = ?", id).Error; err != nil {
		return nil, convertNotFoundError(err, models.ErrCommandNotFound)
	}
	return &cmd, nil
}

// QueryCommands returns commands for flightID with CreateTime in
// [start, end), optionally filtered by partID and commandType, capped at
// MaxQueryRows and ordered oldest first.
func (s *Store) QueryCommands(ctx context.Context, flightID string, start, end time.Time, partID, commandType string) ([]*models.Command, error) {
	query := s.db.WithContext(ctx).
		Where("flight_id = ? AND create_time >= ? AND create_time < ?", flightID, start, end)
	if partID != "" {
		query = query.Where("part_id = ?", partID)
	}
	if commandType != "" {
		query = query.Where("command_type = ?", commandType)
	}

	var commands []*models.Command
	if err := query.Order("create_time ASC").Limit(MaxQueryRows).Find(&commands).Error; err != nil {
		return nil, err
	}
	return commands, nil
}
