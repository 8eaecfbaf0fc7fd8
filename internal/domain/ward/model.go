package ward

import (
	"time"

	"github.com/google/uuid"
)

// BedStatus is the bed occupancy state.
type BedStatus string

const (
	BedAvailable   BedStatus = "available"
	BedOccupied    BedStatus = "occupied"
	BedMaintenance BedStatus = "maintenance"
)

// Bed maps to the bed table.
type Bed struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	WardName  string     `db:"ward_name" json:"ward_name"`
	BedNumber string     `db:"bed_number" json:"bed_number"`
	Status    BedStatus  `db:"status" json:"status"`
	PatientID *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}
