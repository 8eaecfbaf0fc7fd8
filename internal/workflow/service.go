// Package workflow binds the encounter state machine, the billing ledger and
// the event hub into the clinic's end-to-end flows. Every operation commits
// its business mutation first and fans events out after; a failed fan-out is
// logged, never surfaced.
package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/domain/encounter"
	"github.com/clinicore/clinicore/internal/domain/identity"
	"github.com/clinicore/clinicore/internal/domain/ledger"
	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/internal/platform/websocket"
)

// Broadcaster is the event fan-out surface. Satisfied by *websocket.Hub.
type Broadcaster interface {
	Publish(room string, event websocket.Event)
	BroadcastAll(event websocket.Event)
}

// Directory resolves profile ids to the user ids that name notification
// rooms. Satisfied by *identity.Service.
type Directory interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (*identity.Doctor, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
}

type Service struct {
	encounters *encounter.Service
	billing    *ledger.Service
	dir        Directory
	hub        Broadcaster
	logger     zerolog.Logger
}

func NewService(encounters *encounter.Service, billing *ledger.Service, dir Directory, hub Broadcaster, logger zerolog.Logger) *Service {
	return &Service{
		encounters: encounters,
		billing:    billing,
		dir:        dir,
		hub:        hub,
		logger:     logger,
	}
}

// BookAppointment books and announces the new appointment to all connected
// staff dashboards.
func (s *Service) BookAppointment(ctx context.Context, actor auth.Actor, params encounter.BookAppointmentParams) (*encounter.Appointment, error) {
	appt, err := s.encounters.BookAppointment(ctx, actor, params)
	if err != nil {
		return nil, err
	}
	s.hub.BroadcastAll(websocket.Event{
		Type:         "appointment.booked",
		ResourceType: "appointment",
		ResourceID:   appt.ID.String(),
		Message:      fmt.Sprintf("appointment booked for %s", appt.AppointmentTime.Format("2006-01-02 15:04")),
	})
	return appt, nil
}

// CompleteConsultation records the consultation, completes the appointment
// and notifies the appointment room.
func (s *Service) CompleteConsultation(ctx context.Context, actor auth.Actor, params encounter.CreateConsultationParams) (*encounter.Consultation, error) {
	consult, err := s.encounters.CreateConsultation(ctx, actor, params)
	if err != nil {
		return nil, err
	}
	s.hub.Publish(websocket.AppointmentRoom(consult.AppointmentID), websocket.Event{
		Type:         "encounter.updated",
		ResourceType: "consultation",
		ResourceID:   consult.ID.String(),
		Message:      "consultation recorded, appointment completed",
	})
	return consult, nil
}

// CreateReferral creates the referral and notifies the target doctor's room
// only. Nobody else is told.
func (s *Service) CreateReferral(ctx context.Context, actor auth.Actor, params encounter.CreateReferralParams) (*encounter.Referral, error) {
	ref, err := s.encounters.CreateReferral(ctx, actor, params)
	if err != nil {
		return nil, err
	}
	s.notifyDoctor(ctx, ref.ToDoctorID, websocket.Event{
		Type:         "referral.created",
		ResourceType: "referral",
		ResourceID:   ref.ID.String(),
		Message:      fmt.Sprintf("new %s referral", ref.Urgency),
	})
	return ref, nil
}

// AcceptReferral transitions the referral and notifies the sending doctor.
func (s *Service) AcceptReferral(ctx context.Context, actor auth.Actor, id uuid.UUID) (*encounter.Referral, error) {
	ref, err := s.encounters.AcceptReferral(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	s.notifyDoctor(ctx, ref.FromDoctorID, websocket.Event{
		Type:         "referral.accepted",
		ResourceType: "referral",
		ResourceID:   ref.ID.String(),
		Message:      "your referral was accepted",
	})
	return ref, nil
}

// RejectReferral transitions the referral and notifies the sending doctor.
func (s *Service) RejectReferral(ctx context.Context, actor auth.Actor, id uuid.UUID) (*encounter.Referral, error) {
	ref, err := s.encounters.RejectReferral(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	s.notifyDoctor(ctx, ref.FromDoctorID, websocket.Event{
		Type:         "referral.rejected",
		ResourceType: "referral",
		ResourceID:   ref.ID.String(),
		Message:      "your referral was rejected",
	})
	return ref, nil
}

// InvoiceConsultation issues an invoice for a recorded consultation, priced
// at the treating doctor's consultation fee. Billing after a consultation is
// an explicit follow-up step, not an automatic side effect.
func (s *Service) InvoiceConsultation(ctx context.Context, consultationID uuid.UUID) (*ledger.Invoice, error) {
	consult, err := s.encounters.GetConsultation(ctx, consultationID)
	if err != nil {
		return nil, err
	}
	doctor, err := s.dir.GetDoctor(ctx, consult.DoctorID)
	if err != nil {
		return nil, err
	}
	inv, err := s.billing.CreateInvoice(ctx, ledger.CreateInvoiceParams{
		PatientID: consult.PatientID,
		Amount:    doctor.ConsultationFee,
		Items: []ledger.InvoiceItemParams{
			{Description: "Consultation (" + doctor.Specialization + ")", Amount: doctor.ConsultationFee},
		},
	})
	if err != nil {
		return nil, err
	}
	s.notifyPatient(ctx, inv.PatientID, websocket.Event{
		Type:         "billing.invoice_created",
		ResourceType: "invoice",
		ResourceID:   inv.ID.String(),
		Message:      fmt.Sprintf("invoice %s issued for %.2f", inv.InvoiceNumber, inv.Amount),
	})
	return inv, nil
}

// TopUp credits the wallet and notifies the patient's room.
func (s *Service) TopUp(ctx context.Context, actor auth.Actor, params ledger.TopUpParams) (*ledger.Transaction, error) {
	txn, err := s.billing.TopUp(ctx, actor, params)
	if err != nil {
		return nil, err
	}
	s.notifyPatient(ctx, txn.PatientID, websocket.Event{
		Type:         "billing.topup",
		ResourceType: "transaction",
		ResourceID:   txn.ID.String(),
		Message:      fmt.Sprintf("wallet credited %.2f", txn.Amount),
	})
	return txn, nil
}

// PayInvoice settles the invoice and notifies the patient's room.
func (s *Service) PayInvoice(ctx context.Context, actor auth.Actor, params ledger.PayInvoiceParams) (*ledger.Transaction, error) {
	txn, err := s.billing.PayInvoice(ctx, actor, params)
	if err != nil {
		return nil, err
	}
	s.notifyPatient(ctx, txn.PatientID, websocket.Event{
		Type:         "billing.payment",
		ResourceType: "transaction",
		ResourceID:   txn.ID.String(),
		Message:      fmt.Sprintf("payment of %.2f recorded (%s)", txn.Amount, txn.Reference),
	})
	return txn, nil
}

// notifyDoctor publishes to the doctor's personal room. Room resolution
// failures are logged; the committed operation stands.
func (s *Service) notifyDoctor(ctx context.Context, doctorID uuid.UUID, event websocket.Event) {
	doctor, err := s.dir.GetDoctor(ctx, doctorID)
	if err != nil {
		s.logger.Warn().Err(err).Str("doctor_id", doctorID.String()).Msg("skipping doctor notification")
		return
	}
	s.hub.Publish(websocket.DoctorRoom(doctor.UserID), event)
}

func (s *Service) notifyPatient(ctx context.Context, patientID uuid.UUID, event websocket.Event) {
	patient, err := s.dir.GetPatient(ctx, patientID)
	if err != nil {
		s.logger.Warn().Err(err).Str("patient_id", patientID.String()).Msg("skipping patient notification")
		return
	}
	s.hub.Publish(websocket.PatientRoom(patient.UserID), event)
}
