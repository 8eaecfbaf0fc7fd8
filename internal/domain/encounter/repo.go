package encounter

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Appointments
	CreateAppointment(ctx context.Context, a *Appointment) error
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	UpdateAppointment(ctx context.Context, a *Appointment) error
	ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)

	// Consultations
	CreateConsultation(ctx context.Context, c *Consultation) error
	GetConsultation(ctx context.Context, id uuid.UUID) (*Consultation, error)
	GetConsultationByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Consultation, error)
	ListConsultationsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Consultation, int, error)

	// Prescriptions
	CreatePrescription(ctx context.Context, p *Prescription) error
	ListPrescriptionsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error)

	// Lab results
	CreateLabResult(ctx context.Context, lr *LabResult) error
	ListLabResultsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*LabResult, int, error)

	// Referrals
	CreateReferral(ctx context.Context, r *Referral) error
	GetReferral(ctx context.Context, id uuid.UUID) (*Referral, error)
	UpdateReferral(ctx context.Context, r *Referral) error
	ListReferralsToDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Referral, int, error)
}
