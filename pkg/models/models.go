// Package models provides shared domain types for flightcore.
//
// This package contains all data models persisted by the control plane:
// users, authorization codes, vessels and their historic snapshots,
// flights, and commands. It provides a single source of truth for domain
// types, with GORM annotations for persistence.
package models

// AllModels returns all GORM models for auto-migration.
func AllModels() []any {
	return []any{
		&User{},
		&AuthorizationCode{},
		&Vessel{},
		&VesselHistoric{},
		&Flight{},
		&Command{},
		&MeasurementRecord{},
	}
}
