package identity

import (
	"time"

	"github.com/google/uuid"
)

// Doctor maps to the doctor table. One row per user holding the doctor role.
type Doctor struct {
	ID              uuid.UUID `db:"id" json:"id"`
	UserID          uuid.UUID `db:"user_id" json:"user_id"`
	Specialization  string    `db:"specialization" json:"specialization"`
	Bio             *string   `db:"bio" json:"bio,omitempty"`
	Department      *string   `db:"department" json:"department,omitempty"`
	ConsultationFee float64   `db:"consultation_fee" json:"consultation_fee"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// Patient maps to the patient table. One row per user holding the patient role.
type Patient struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	DateOfBirth *string   `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender      *string   `db:"gender" json:"gender,omitempty"`
	BloodGroup  *string   `db:"blood_group" json:"blood_group,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
