package models

import "github.com/google/uuid"

// VesselPart is one physical or virtual component of a vessel.
type VesselPart struct {
	ID       uuid.UUID  `json:"id"`
	Name     string     `json:"name"`
	PartType string     `json:"part_type"`
	Virtual  bool       `json:"virtual"`
	Parent   *uuid.UUID `json:"parent,omitempty"`
}

// Vessel is the current, mutable definition of a vehicle: its parts and the
// permission grants governing who may read or command it.
//
// Registration is versioned (see VesselHistoric): a registration that
// changes anything but the server-managed version, name, and permissions
// fields bumps Version and snapshots the prior record.
type Vessel struct {
	ID               string            `gorm:"primaryKey;size:36" json:"id"`
	Version          int               `gorm:"not null" json:"version"`
	Name             string            `gorm:"size:255" json:"name"`
	Parts            []VesselPart      `gorm:"serializer:json" json:"parts"`
	Permissions      map[string]string `gorm:"serializer:json" json:"permissions"`
	NoAuthPermission string            `gorm:"size:20" json:"no_auth_permission"`
}

// TableName returns the table name for Vessel.
func (Vessel) TableName() string {
	return "vessels"
}

// VesselHistoric is an immutable snapshot of a vessel at a prior version,
// kept so that flights created under that version remain interpretable.
type VesselHistoric struct {
	VesselID         string            `gorm:"primaryKey;size:36" json:"vessel_id"`
	Version          int               `gorm:"primaryKey" json:"version"`
	Name             string            `gorm:"size:255" json:"name"`
	Parts            []VesselPart      `gorm:"serializer:json" json:"parts"`
	Permissions      map[string]string `gorm:"serializer:json" json:"permissions"`
	NoAuthPermission string            `gorm:"size:20" json:"no_auth_permission"`
}

// TableName returns the table name for VesselHistoric.
func (VesselHistoric) TableName() string {
	return "vessel_historics"
}
