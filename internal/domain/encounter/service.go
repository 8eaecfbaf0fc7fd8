package encounter

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/identity"
	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/internal/platform/clinicerr"
	"github.com/clinicore/clinicore/internal/platform/db"
)

// Directory resolves authenticated actors to their doctor/patient profiles and
// verifies referenced entities exist. Satisfied by *identity.Service.
type Directory interface {
	ResolveDoctor(ctx context.Context, userID uuid.UUID) (*identity.Doctor, error)
	ResolvePatient(ctx context.Context, userID uuid.UUID) (*identity.Patient, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*identity.Doctor, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
}

// Service implements the encounter state machine: appointment lifecycle,
// consultation creation, prescriptions, lab results and referral routing.
type Service struct {
	repo Repository
	dir  Directory
	tx   db.TxRunner
}

func NewService(repo Repository, dir Directory, tx db.TxRunner) *Service {
	return &Service{repo: repo, dir: dir, tx: tx}
}

// -- Appointments --

type BookAppointmentParams struct {
	DoctorID        uuid.UUID               `json:"doctor_id"`
	AppointmentTime time.Time               `json:"appointment_time"`
	Type            AppointmentType         `json:"type"`
	CommPreference  CommunicationPreference `json:"communication_preference"`
	Reason          *string                 `json:"reason,omitempty"`
}

// BookAppointment creates a pending appointment for the calling patient.
func (s *Service) BookAppointment(ctx context.Context, actor auth.Actor, params BookAppointmentParams) (*Appointment, error) {
	if !actor.IsPatient() {
		return nil, clinicerr.PermissionDenied("only patients book appointments")
	}
	patient, err := s.dir.ResolvePatient(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if _, err := s.dir.GetDoctor(ctx, params.DoctorID); err != nil {
		return nil, err
	}
	if params.AppointmentTime.IsZero() {
		return nil, clinicerr.InvalidArgument("appointment_time is required")
	}
	if params.Type == "" {
		params.Type = AppointmentOffline
	}
	if params.CommPreference == "" {
		params.CommPreference = CommInAppChat
	}

	appt := &Appointment{
		DoctorID:        params.DoctorID,
		PatientID:       patient.ID,
		AppointmentTime: params.AppointmentTime,
		Type:            params.Type,
		Status:          AppointmentPending,
		CommPreference:  params.CommPreference,
		Reason:          params.Reason,
	}
	if err := s.repo.CreateAppointment(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

// ConfirmAppointment moves a pending appointment to confirmed. Only the owning
// doctor may confirm.
func (s *Service) ConfirmAppointment(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Appointment, error) {
	appt, err := s.appointmentForDoctor(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != AppointmentPending {
		return nil, clinicerr.InvalidState("cannot confirm appointment in status %s", appt.Status)
	}
	appt.Status = AppointmentConfirmed
	if err := s.repo.UpdateAppointment(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

// CancelAppointment moves a pending or confirmed appointment to cancelled.
// The owning doctor or the owning patient may cancel.
func (s *Service) CancelAppointment(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Appointment, error) {
	appt, err := s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireParty(ctx, actor, appt); err != nil {
		return nil, err
	}
	if appt.Status.Terminal() {
		return nil, clinicerr.InvalidState("cannot cancel appointment in status %s", appt.Status)
	}
	appt.Status = AppointmentCancelled
	if err := s.repo.UpdateAppointment(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

// SetMeetingLink attaches a meeting link for an online appointment. Owning
// doctor only.
func (s *Service) SetMeetingLink(ctx context.Context, actor auth.Actor, id uuid.UUID, link string) (*Appointment, error) {
	appt, err := s.appointmentForDoctor(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	appt.MeetingLink = &link
	if err := s.repo.UpdateAppointment(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

// UpdateNotes replaces the appointment notes. Owning doctor or patient.
func (s *Service) UpdateNotes(ctx context.Context, actor auth.Actor, id uuid.UUID, notes string) (*Appointment, error) {
	appt, err := s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireParty(ctx, actor, appt); err != nil {
		return nil, err
	}
	appt.Notes = &notes
	if err := s.repo.UpdateAppointment(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.getAppointment(ctx, id)
}

func (s *Service) ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListAppointmentsByDoctor(ctx, doctorID, limit, offset)
}

func (s *Service) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListAppointmentsByPatient(ctx, patientID, limit, offset)
}

// -- Consultations --

type CreateConsultationParams struct {
	AppointmentID uuid.UUID  `json:"appointment_id"`
	Symptoms      string     `json:"symptoms"`
	Diagnosis     string     `json:"diagnosis"`
	Notes         *string    `json:"notes,omitempty"`
	FollowUpDate  *time.Time `json:"follow_up_date,omitempty"`
	IsAdmitted    bool       `json:"is_admitted"`
}

// CreateConsultation records the clinical outcome of an appointment and
// completes the appointment. The acting doctor must be the appointment's
// doctor; a mismatch is rejected, never silently corrected. Consultation
// insert and appointment transition commit in one transaction.
func (s *Service) CreateConsultation(ctx context.Context, actor auth.Actor, params CreateConsultationParams) (*Consultation, error) {
	doctor, err := s.dir.ResolveDoctor(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if params.Symptoms == "" {
		return nil, clinicerr.InvalidArgument("symptoms is required")
	}
	if params.Diagnosis == "" {
		return nil, clinicerr.InvalidArgument("diagnosis is required")
	}

	appt, err := s.getAppointment(ctx, params.AppointmentID)
	if err != nil {
		return nil, err
	}
	if appt.DoctorID != doctor.ID {
		return nil, clinicerr.PermissionDenied("appointment belongs to another doctor")
	}
	if appt.Status.Terminal() {
		return nil, clinicerr.InvalidState("appointment is %s", appt.Status)
	}
	if _, err := s.repo.GetConsultationByAppointment(ctx, params.AppointmentID); err == nil {
		return nil, clinicerr.Conflict("appointment %s already has a consultation", params.AppointmentID)
	}

	consult := &Consultation{
		AppointmentID: appt.ID,
		DoctorID:      doctor.ID,
		PatientID:     appt.PatientID,
		Symptoms:      params.Symptoms,
		Diagnosis:     params.Diagnosis,
		Notes:         params.Notes,
		FollowUpDate:  params.FollowUpDate,
		IsAdmitted:    params.IsAdmitted,
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateConsultation(ctx, consult); err != nil {
			if db.IsUniqueViolation(err) {
				return clinicerr.Wrap(clinicerr.KindConflict, err,
					"appointment %s already has a consultation", appt.ID)
			}
			return err
		}
		appt.Status = AppointmentCompleted
		return s.repo.UpdateAppointment(ctx, appt)
	})
	if err != nil {
		return nil, err
	}
	return consult, nil
}

func (s *Service) GetConsultation(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	c, err := s.repo.GetConsultation(ctx, id)
	if err != nil {
		return nil, clinicerr.NotFound("consultation %s not found", id)
	}
	return c, nil
}

func (s *Service) GetConsultationByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Consultation, error) {
	c, err := s.repo.GetConsultationByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, clinicerr.NotFound("no consultation for appointment %s", appointmentID)
	}
	return c, nil
}

func (s *Service) ListConsultationsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Consultation, int, error) {
	return s.repo.ListConsultationsByPatient(ctx, patientID, limit, offset)
}

// -- Prescriptions --

type CreatePrescriptionParams struct {
	PatientID      uuid.UUID  `json:"patient_id"`
	ConsultationID *uuid.UUID `json:"consultation_id,omitempty"`
	Medication     string     `json:"medication"`
	Dosage         string     `json:"dosage"`
	Frequency      string     `json:"frequency"`
	Duration       string     `json:"duration"`
	Instructions   *string    `json:"instructions,omitempty"`
}

// CreatePrescription records a prescription, ad hoc or linked to a
// consultation.
func (s *Service) CreatePrescription(ctx context.Context, actor auth.Actor, params CreatePrescriptionParams) (*Prescription, error) {
	doctor, err := s.dir.ResolveDoctor(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if _, err := s.dir.GetPatient(ctx, params.PatientID); err != nil {
		return nil, err
	}
	if params.Medication == "" || params.Dosage == "" || params.Frequency == "" || params.Duration == "" {
		return nil, clinicerr.InvalidArgument("medication, dosage, frequency and duration are required")
	}

	script := &Prescription{
		PatientID:      params.PatientID,
		DoctorID:       doctor.ID,
		ConsultationID: params.ConsultationID,
		Medication:     params.Medication,
		Dosage:         params.Dosage,
		Frequency:      params.Frequency,
		Duration:       params.Duration,
		Instructions:   params.Instructions,
		Status:         "active",
	}
	if err := s.repo.CreatePrescription(ctx, script); err != nil {
		return nil, err
	}
	return script, nil
}

func (s *Service) ListPrescriptionsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	return s.repo.ListPrescriptionsByPatient(ctx, patientID, limit, offset)
}

// -- Lab results --

type CreateLabResultParams struct {
	PatientID      uuid.UUID  `json:"patient_id"`
	ConsultationID *uuid.UUID `json:"consultation_id,omitempty"`
	TestName       string     `json:"test_name"`
	Result         string     `json:"result"`
	Units          *string    `json:"units,omitempty"`
	ReferenceRange *string    `json:"reference_range,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
}

// CreateLabResult records a lab result. Doctors attach their own profile; lab
// techs and admins record without one.
func (s *Service) CreateLabResult(ctx context.Context, actor auth.Actor, params CreateLabResultParams) (*LabResult, error) {
	var doctorID *uuid.UUID
	switch actor.Role {
	case auth.RoleDoctor:
		doctor, err := s.dir.ResolveDoctor(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		doctorID = &doctor.ID
	case auth.RoleLabTech, auth.RoleAdmin:
	default:
		return nil, clinicerr.PermissionDenied("role %s cannot record lab results", actor.Role)
	}
	if _, err := s.dir.GetPatient(ctx, params.PatientID); err != nil {
		return nil, err
	}
	if params.TestName == "" || params.Result == "" {
		return nil, clinicerr.InvalidArgument("test_name and result are required")
	}

	lr := &LabResult{
		PatientID:      params.PatientID,
		DoctorID:       doctorID,
		ConsultationID: params.ConsultationID,
		TestName:       params.TestName,
		Result:         params.Result,
		Units:          params.Units,
		ReferenceRange: params.ReferenceRange,
		Notes:          params.Notes,
		Status:         "completed",
		RecordedAt:     time.Now().UTC(),
	}
	if err := s.repo.CreateLabResult(ctx, lr); err != nil {
		return nil, err
	}
	return lr, nil
}

func (s *Service) ListLabResultsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*LabResult, int, error) {
	return s.repo.ListLabResultsByPatient(ctx, patientID, limit, offset)
}

// -- Referrals --

type CreateReferralParams struct {
	ToDoctorID uuid.UUID       `json:"to_doctor_id"`
	PatientID  uuid.UUID       `json:"patient_id"`
	Reason     string          `json:"reason"`
	Urgency    ReferralUrgency `json:"urgency"`
	Notes      *string         `json:"notes,omitempty"`
}

// CreateReferral refers a patient to another doctor. The sender is always the
// caller's own profile.
func (s *Service) CreateReferral(ctx context.Context, actor auth.Actor, params CreateReferralParams) (*Referral, error) {
	from, err := s.dir.ResolveDoctor(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if _, err := s.dir.GetDoctor(ctx, params.ToDoctorID); err != nil {
		return nil, err
	}
	if _, err := s.dir.GetPatient(ctx, params.PatientID); err != nil {
		return nil, err
	}
	if params.Reason == "" {
		return nil, clinicerr.InvalidArgument("reason is required")
	}
	if params.Urgency == "" {
		params.Urgency = UrgencyRoutine
	}

	ref := &Referral{
		FromDoctorID: from.ID,
		ToDoctorID:   params.ToDoctorID,
		PatientID:    params.PatientID,
		Reason:       params.Reason,
		Urgency:      params.Urgency,
		Status:       ReferralPending,
		Notes:        params.Notes,
	}
	if err := s.repo.CreateReferral(ctx, ref); err != nil {
		return nil, err
	}
	return ref, nil
}

// AcceptReferral transitions a pending referral to accepted. Only the target
// doctor may act; accepted and rejected are terminal.
func (s *Service) AcceptReferral(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Referral, error) {
	return s.resolveReferral(ctx, actor, id, ReferralAccepted)
}

// RejectReferral transitions a pending referral to rejected.
func (s *Service) RejectReferral(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Referral, error) {
	return s.resolveReferral(ctx, actor, id, ReferralRejected)
}

func (s *Service) resolveReferral(ctx context.Context, actor auth.Actor, id uuid.UUID, target ReferralStatus) (*Referral, error) {
	doctor, err := s.dir.ResolveDoctor(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	ref, err := s.repo.GetReferral(ctx, id)
	if err != nil {
		return nil, clinicerr.NotFound("referral %s not found", id)
	}
	if ref.ToDoctorID != doctor.ID {
		return nil, clinicerr.PermissionDenied("referral is addressed to another doctor")
	}
	if ref.Status != ReferralPending {
		return nil, clinicerr.InvalidState("referral is already %s", ref.Status)
	}
	ref.Status = target
	if err := s.repo.UpdateReferral(ctx, ref); err != nil {
		return nil, err
	}
	return ref, nil
}

func (s *Service) GetReferral(ctx context.Context, id uuid.UUID) (*Referral, error) {
	ref, err := s.repo.GetReferral(ctx, id)
	if err != nil {
		return nil, clinicerr.NotFound("referral %s not found", id)
	}
	return ref, nil
}

func (s *Service) ListReferralsToDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Referral, int, error) {
	return s.repo.ListReferralsToDoctor(ctx, doctorID, limit, offset)
}

// -- helpers --

func (s *Service) getAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, clinicerr.NotFound("appointment %s not found", id)
	}
	return appt, nil
}

// appointmentForDoctor loads the appointment and verifies the actor is its
// owning doctor.
func (s *Service) appointmentForDoctor(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Appointment, error) {
	doctor, err := s.dir.ResolveDoctor(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	appt, err := s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.DoctorID != doctor.ID {
		return nil, clinicerr.PermissionDenied("appointment belongs to another doctor")
	}
	return appt, nil
}

// requireParty verifies the actor is the appointment's doctor or patient.
func (s *Service) requireParty(ctx context.Context, actor auth.Actor, appt *Appointment) error {
	switch actor.Role {
	case auth.RoleDoctor:
		doctor, err := s.dir.ResolveDoctor(ctx, actor.UserID)
		if err != nil {
			return err
		}
		if appt.DoctorID != doctor.ID {
			return clinicerr.PermissionDenied("appointment belongs to another doctor")
		}
	case auth.RolePatient:
		patient, err := s.dir.ResolvePatient(ctx, actor.UserID)
		if err != nil {
			return err
		}
		if appt.PatientID != patient.ID {
			return clinicerr.PermissionDenied("appointment belongs to another patient")
		}
	default:
		return clinicerr.PermissionDenied("role %s is not a party to this appointment", actor.Role)
	}
	return nil
}
