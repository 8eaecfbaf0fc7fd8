package encounter

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus is the appointment lifecycle state.
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed from the status.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentCompleted || s == AppointmentCancelled
}

// AppointmentType distinguishes online and in-clinic visits.
type AppointmentType string

const (
	AppointmentOnline  AppointmentType = "online"
	AppointmentOffline AppointmentType = "offline"
)

// CommunicationPreference applies to online appointments.
type CommunicationPreference string

const (
	CommInAppChat     CommunicationPreference = "in_app_chat"
	CommVideoWhatsapp CommunicationPreference = "video_whatsapp"
)

// ReferralStatus is the referral lifecycle state. Accepted and rejected are
// terminal.
type ReferralStatus string

const (
	ReferralPending  ReferralStatus = "pending"
	ReferralAccepted ReferralStatus = "accepted"
	ReferralRejected ReferralStatus = "rejected"
)

// ReferralUrgency grades how fast the receiving doctor should act.
type ReferralUrgency string

const (
	UrgencyRoutine   ReferralUrgency = "routine"
	UrgencyUrgent    ReferralUrgency = "urgent"
	UrgencyEmergency ReferralUrgency = "emergency"
)

// Appointment maps to the appointment table.
type Appointment struct {
	ID              uuid.UUID               `db:"id" json:"id"`
	DoctorID        uuid.UUID               `db:"doctor_id" json:"doctor_id"`
	PatientID       uuid.UUID               `db:"patient_id" json:"patient_id"`
	AppointmentTime time.Time               `db:"appointment_time" json:"appointment_time"`
	Type            AppointmentType         `db:"type" json:"type"`
	Status          AppointmentStatus       `db:"status" json:"status"`
	CommPreference  CommunicationPreference `db:"communication_preference" json:"communication_preference"`
	Reason          *string                 `db:"reason" json:"reason,omitempty"`
	MeetingLink     *string                 `db:"meeting_link" json:"meeting_link,omitempty"`
	Notes           *string                 `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time               `db:"updated_at" json:"updated_at"`
}

// Consultation maps to the consultation table. At most one per appointment;
// creating one completes the appointment in the same transaction.
type Consultation struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	AppointmentID uuid.UUID  `db:"appointment_id" json:"appointment_id"`
	DoctorID      uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	Symptoms      string     `db:"symptoms" json:"symptoms"`
	Diagnosis     string     `db:"diagnosis" json:"diagnosis"`
	Notes         *string    `db:"notes" json:"notes,omitempty"`
	FollowUpDate  *time.Time `db:"follow_up_date" json:"follow_up_date,omitempty"`
	IsAdmitted    bool       `db:"is_admitted" json:"is_admitted"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// Prescription maps to the prescription table. Creatable ad hoc or linked to a
// consultation.
type Prescription struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID       uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	ConsultationID *uuid.UUID `db:"consultation_id" json:"consultation_id,omitempty"`
	Medication     string     `db:"medication" json:"medication"`
	Dosage         string     `db:"dosage" json:"dosage"`
	Frequency      string     `db:"frequency" json:"frequency"`
	Duration       string     `db:"duration" json:"duration"`
	Instructions   *string    `db:"instructions" json:"instructions,omitempty"`
	Status         string     `db:"status" json:"status"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// LabResult maps to the lab_result table.
type LabResult struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID       *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`
	ConsultationID *uuid.UUID `db:"consultation_id" json:"consultation_id,omitempty"`
	TestName       string     `db:"test_name" json:"test_name"`
	Result         string     `db:"result" json:"result"`
	Units          *string    `db:"units" json:"units,omitempty"`
	ReferenceRange *string    `db:"reference_range" json:"reference_range,omitempty"`
	Notes          *string    `db:"notes" json:"notes,omitempty"`
	Status         string     `db:"status" json:"status"`
	RecordedAt     time.Time  `db:"recorded_at" json:"recorded_at"`
}

// Referral maps to the referral table. FromDoctorID is always the creating
// doctor's own profile.
type Referral struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	FromDoctorID uuid.UUID       `db:"from_doctor_id" json:"from_doctor_id"`
	ToDoctorID   uuid.UUID       `db:"to_doctor_id" json:"to_doctor_id"`
	PatientID    uuid.UUID       `db:"patient_id" json:"patient_id"`
	Reason       string          `db:"reason" json:"reason"`
	Urgency      ReferralUrgency `db:"urgency" json:"urgency"`
	Status       ReferralStatus  `db:"status" json:"status"`
	Notes        *string         `db:"notes" json:"notes,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}
