package encounter

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/identity"
	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/internal/platform/clinicerr"
)

// -- Mock Repository --

type mockRepo struct {
	appointments  map[uuid.UUID]*Appointment
	consultations map[uuid.UUID]*Consultation
	prescriptions map[uuid.UUID]*Prescription
	labResults    map[uuid.UUID]*LabResult
	referrals     map[uuid.UUID]*Referral
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		appointments:  make(map[uuid.UUID]*Appointment),
		consultations: make(map[uuid.UUID]*Consultation),
		prescriptions: make(map[uuid.UUID]*Prescription),
		labResults:    make(map[uuid.UUID]*LabResult),
		referrals:     make(map[uuid.UUID]*Referral),
	}
}

func (m *mockRepo) CreateAppointment(_ context.Context, a *Appointment) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()
	m.appointments[a.ID] = a
	return nil
}

func (m *mockRepo) GetAppointment(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appointments[id]
	if !ok {
		return nil, fmt.Errorf("no rows")
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) UpdateAppointment(_ context.Context, a *Appointment) error {
	if _, ok := m.appointments[a.ID]; !ok {
		return fmt.Errorf("no rows")
	}
	cp := *a
	m.appointments[a.ID] = &cp
	return nil
}

func (m *mockRepo) ListAppointmentsByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var result []*Appointment
	for _, a := range m.appointments {
		if a.DoctorID == doctorID {
			result = append(result, a)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) ListAppointmentsByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var result []*Appointment
	for _, a := range m.appointments {
		if a.PatientID == patientID {
			result = append(result, a)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) CreateConsultation(_ context.Context, c *Consultation) error {
	for _, existing := range m.consultations {
		if existing.AppointmentID == c.AppointmentID {
			return fmt.Errorf("duplicate key")
		}
	}
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	m.consultations[c.ID] = c
	return nil
}

func (m *mockRepo) GetConsultation(_ context.Context, id uuid.UUID) (*Consultation, error) {
	c, ok := m.consultations[id]
	if !ok {
		return nil, fmt.Errorf("no rows")
	}
	return c, nil
}

func (m *mockRepo) GetConsultationByAppointment(_ context.Context, appointmentID uuid.UUID) (*Consultation, error) {
	for _, c := range m.consultations {
		if c.AppointmentID == appointmentID {
			return c, nil
		}
	}
	return nil, fmt.Errorf("no rows")
}

func (m *mockRepo) ListConsultationsByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Consultation, int, error) {
	var result []*Consultation
	for _, c := range m.consultations {
		if c.PatientID == patientID {
			result = append(result, c)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) CreatePrescription(_ context.Context, p *Prescription) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.prescriptions[p.ID] = p
	return nil
}

func (m *mockRepo) ListPrescriptionsByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	var result []*Prescription
	for _, p := range m.prescriptions {
		if p.PatientID == patientID {
			result = append(result, p)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) CreateLabResult(_ context.Context, lr *LabResult) error {
	lr.ID = uuid.New()
	m.labResults[lr.ID] = lr
	return nil
}

func (m *mockRepo) ListLabResultsByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*LabResult, int, error) {
	var result []*LabResult
	for _, lr := range m.labResults {
		if lr.PatientID == patientID {
			result = append(result, lr)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) CreateReferral(_ context.Context, r *Referral) error {
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	r.UpdatedAt = time.Now()
	m.referrals[r.ID] = r
	return nil
}

func (m *mockRepo) GetReferral(_ context.Context, id uuid.UUID) (*Referral, error) {
	r, ok := m.referrals[id]
	if !ok {
		return nil, fmt.Errorf("no rows")
	}
	cp := *r
	return &cp, nil
}

func (m *mockRepo) UpdateReferral(_ context.Context, r *Referral) error {
	if _, ok := m.referrals[r.ID]; !ok {
		return fmt.Errorf("no rows")
	}
	cp := *r
	m.referrals[r.ID] = &cp
	return nil
}

func (m *mockRepo) ListReferralsToDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]*Referral, int, error) {
	var result []*Referral
	for _, r := range m.referrals {
		if r.ToDoctorID == doctorID {
			result = append(result, r)
		}
	}
	return result, len(result), nil
}

// -- Mock Directory --

type mockDirectory struct {
	doctors  map[uuid.UUID]*identity.Doctor
	patients map[uuid.UUID]*identity.Patient
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{
		doctors:  make(map[uuid.UUID]*identity.Doctor),
		patients: make(map[uuid.UUID]*identity.Patient),
	}
}

func (m *mockDirectory) addDoctor(fee float64) *identity.Doctor {
	d := &identity.Doctor{ID: uuid.New(), UserID: uuid.New(), Specialization: "General", ConsultationFee: fee}
	m.doctors[d.ID] = d
	return d
}

func (m *mockDirectory) addPatient() *identity.Patient {
	p := &identity.Patient{ID: uuid.New(), UserID: uuid.New()}
	m.patients[p.ID] = p
	return p
}

func (m *mockDirectory) ResolveDoctor(_ context.Context, userID uuid.UUID) (*identity.Doctor, error) {
	for _, d := range m.doctors {
		if d.UserID == userID {
			return d, nil
		}
	}
	return nil, clinicerr.NotFound("no doctor profile for user %s", userID)
}

func (m *mockDirectory) ResolvePatient(_ context.Context, userID uuid.UUID) (*identity.Patient, error) {
	for _, p := range m.patients {
		if p.UserID == userID {
			return p, nil
		}
	}
	return nil, clinicerr.NotFound("no patient profile for user %s", userID)
}

func (m *mockDirectory) GetDoctor(_ context.Context, id uuid.UUID) (*identity.Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, clinicerr.NotFound("doctor %s not found", id)
	}
	return d, nil
}

func (m *mockDirectory) GetPatient(_ context.Context, id uuid.UUID) (*identity.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, clinicerr.NotFound("patient %s not found", id)
	}
	return p, nil
}

// passRunner executes the callback directly; mock repos have no real
// transactions to join.
type passRunner struct{}

func (passRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (passRunner) RunInSavepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// -- fixtures --

type fixture struct {
	svc     *Service
	repo    *mockRepo
	dir     *mockDirectory
	doctor  *identity.Doctor
	patient *identity.Patient
}

func newFixture() *fixture {
	repo := newMockRepo()
	dir := newMockDirectory()
	doctor := dir.addDoctor(5000)
	patient := dir.addPatient()
	return &fixture{
		svc:     NewService(repo, dir, passRunner{}),
		repo:    repo,
		dir:     dir,
		doctor:  doctor,
		patient: patient,
	}
}

func (f *fixture) doctorActor() auth.Actor {
	return auth.Actor{UserID: f.doctor.UserID, Role: auth.RoleDoctor}
}

func (f *fixture) patientActor() auth.Actor {
	return auth.Actor{UserID: f.patient.UserID, Role: auth.RolePatient}
}

func (f *fixture) book(t *testing.T) *Appointment {
	t.Helper()
	appt, err := f.svc.BookAppointment(context.Background(), f.patientActor(), BookAppointmentParams{
		DoctorID:        f.doctor.ID,
		AppointmentTime: time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("book appointment: %v", err)
	}
	return appt
}

// -- Appointment tests --

func TestBookAppointment(t *testing.T) {
	f := newFixture()

	appt := f.book(t)
	if appt.Status != AppointmentPending {
		t.Errorf("expected pending, got %s", appt.Status)
	}
	if appt.Type != AppointmentOffline {
		t.Errorf("expected offline default, got %s", appt.Type)
	}
	if appt.PatientID != f.patient.ID {
		t.Error("appointment not bound to caller's patient profile")
	}
}

func TestBookAppointment_DoctorMustExist(t *testing.T) {
	f := newFixture()

	_, err := f.svc.BookAppointment(context.Background(), f.patientActor(), BookAppointmentParams{
		DoctorID:        uuid.New(),
		AppointmentTime: time.Now(),
	})
	if !clinicerr.IsKind(err, clinicerr.KindNotFound) {
		t.Errorf("expected not_found, got %v", err)
	}
}

func TestBookAppointment_NonPatientDenied(t *testing.T) {
	f := newFixture()

	_, err := f.svc.BookAppointment(context.Background(), f.doctorActor(), BookAppointmentParams{
		DoctorID:        f.doctor.ID,
		AppointmentTime: time.Now(),
	})
	if !clinicerr.IsKind(err, clinicerr.KindPermissionDenied) {
		t.Errorf("expected permission_denied, got %v", err)
	}
}

func TestConfirmAppointment(t *testing.T) {
	f := newFixture()
	appt := f.book(t)

	got, err := f.svc.ConfirmAppointment(context.Background(), f.doctorActor(), appt.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != AppointmentConfirmed {
		t.Errorf("expected confirmed, got %s", got.Status)
	}
}

func TestConfirmAppointment_WrongDoctor(t *testing.T) {
	f := newFixture()
	appt := f.book(t)
	other := f.dir.addDoctor(3000)

	_, err := f.svc.ConfirmAppointment(context.Background(),
		auth.Actor{UserID: other.UserID, Role: auth.RoleDoctor}, appt.ID)
	if !clinicerr.IsKind(err, clinicerr.KindPermissionDenied) {
		t.Errorf("expected permission_denied, got %v", err)
	}
}

func TestConfirmAppointment_OnlyFromPending(t *testing.T) {
	f := newFixture()
	appt := f.book(t)

	if _, err := f.svc.ConfirmAppointment(context.Background(), f.doctorActor(), appt.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := f.svc.ConfirmAppointment(context.Background(), f.doctorActor(), appt.ID)
	if !clinicerr.IsKind(err, clinicerr.KindInvalidState) {
		t.Errorf("expected invalid_state, got %v", err)
	}
}

func TestCancelAppointment_ByPatient(t *testing.T) {
	f := newFixture()
	appt := f.book(t)

	got, err := f.svc.CancelAppointment(context.Background(), f.patientActor(), appt.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != AppointmentCancelled {
		t.Errorf("expected cancelled, got %s", got.Status)
	}
}

func TestCancelAppointment_Terminal(t *testing.T) {
	f := newFixture()
	appt := f.book(t)

	if _, err := f.svc.CancelAppointment(context.Background(), f.patientActor(), appt.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := f.svc.CancelAppointment(context.Background(), f.patientActor(), appt.ID)
	if !clinicerr.IsKind(err, clinicerr.KindInvalidState) {
		t.Errorf("expected invalid_state, got %v", err)
	}
}

func TestCancelAppointment_StrangerDenied(t *testing.T) {
	f := newFixture()
	appt := f.book(t)
	stranger := f.dir.addPatient()

	_, err := f.svc.CancelAppointment(context.Background(),
		auth.Actor{UserID: stranger.UserID, Role: auth.RolePatient}, appt.ID)
	if !clinicerr.IsKind(err, clinicerr.KindPermissionDenied) {
		t.Errorf("expected permission_denied, got %v", err)
	}
}

func TestSetMeetingLink_DoctorOnly(t *testing.T) {
	f := newFixture()
	appt := f.book(t)

	got, err := f.svc.SetMeetingLink(context.Background(), f.doctorActor(), appt.ID, "https://meet.example/abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.MeetingLink == nil || *got.MeetingLink != "https://meet.example/abc" {
		t.Error("meeting link not set")
	}
}

// -- Consultation tests --

func TestCreateConsultation_CompletesAppointment(t *testing.T) {
	f := newFixture()
	appt := f.book(t)

	consult, err := f.svc.CreateConsultation(context.Background(), f.doctorActor(), CreateConsultationParams{
		AppointmentID: appt.ID,
		Symptoms:      "fever",
		Diagnosis:     "flu",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if consult.PatientID != f.patient.ID {
		t.Error("consultation not bound to appointment's patient")
	}

	updated, err := f.svc.GetAppointment(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != AppointmentCompleted {
		t.Errorf("expected completed, got %s", updated.Status)
	}
}

func TestCreateConsultation_DoctorMismatchDenied(t *testing.T) {
	f := newFixture()
	appt := f.book(t)
	other := f.dir.addDoctor(3000)

	_, err := f.svc.CreateConsultation(context.Background(),
		auth.Actor{UserID: other.UserID, Role: auth.RoleDoctor}, CreateConsultationParams{
			AppointmentID: appt.ID,
			Symptoms:      "fever",
			Diagnosis:     "flu",
		})
	if !clinicerr.IsKind(err, clinicerr.KindPermissionDenied) {
		t.Errorf("expected permission_denied, got %v", err)
	}

	// Rejected, not silently reassigned: no consultation and no transition.
	if len(f.repo.consultations) != 0 {
		t.Error("consultation must not be created on doctor mismatch")
	}
	updated, _ := f.svc.GetAppointment(context.Background(), appt.ID)
	if updated.Status != AppointmentPending {
		t.Errorf("appointment must stay pending, got %s", updated.Status)
	}
}

func TestCreateConsultation_TerminalAppointment(t *testing.T) {
	f := newFixture()
	appt := f.book(t)

	if _, err := f.svc.CancelAppointment(context.Background(), f.patientActor(), appt.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := f.svc.CreateConsultation(context.Background(), f.doctorActor(), CreateConsultationParams{
		AppointmentID: appt.ID,
		Symptoms:      "fever",
		Diagnosis:     "flu",
	})
	if !clinicerr.IsKind(err, clinicerr.KindInvalidState) {
		t.Errorf("expected invalid_state, got %v", err)
	}
	updated, _ := f.svc.GetAppointment(context.Background(), appt.ID)
	if updated.Status != AppointmentCancelled {
		t.Errorf("appointment must stay cancelled, got %s", updated.Status)
	}
}

func TestCreateConsultation_OnePerAppointment(t *testing.T) {
	f := newFixture()
	appt := f.book(t)

	params := CreateConsultationParams{AppointmentID: appt.ID, Symptoms: "fever", Diagnosis: "flu"}
	if _, err := f.svc.CreateConsultation(context.Background(), f.doctorActor(), params); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := f.svc.CreateConsultation(context.Background(), f.doctorActor(), params)
	// Second attempt hits the completed appointment before the duplicate check.
	if !clinicerr.IsKind(err, clinicerr.KindInvalidState) && !clinicerr.IsKind(err, clinicerr.KindConflict) {
		t.Errorf("expected invalid_state or conflict, got %v", err)
	}
	if len(f.repo.consultations) != 1 {
		t.Errorf("expected exactly one consultation, got %d", len(f.repo.consultations))
	}
}

// -- Prescription and lab result tests --

func TestCreatePrescription(t *testing.T) {
	f := newFixture()

	script, err := f.svc.CreatePrescription(context.Background(), f.doctorActor(), CreatePrescriptionParams{
		PatientID:  f.patient.ID,
		Medication: "Amoxicillin",
		Dosage:     "500mg",
		Frequency:  "3x daily",
		Duration:   "7 days",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if script.DoctorID != f.doctor.ID {
		t.Error("prescription not bound to caller's doctor profile")
	}
	if script.Status != "active" {
		t.Errorf("expected active, got %s", script.Status)
	}
}

func TestCreatePrescription_PatientMustExist(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreatePrescription(context.Background(), f.doctorActor(), CreatePrescriptionParams{
		PatientID:  uuid.New(),
		Medication: "Amoxicillin",
		Dosage:     "500mg",
		Frequency:  "3x daily",
		Duration:   "7 days",
	})
	if !clinicerr.IsKind(err, clinicerr.KindNotFound) {
		t.Errorf("expected not_found, got %v", err)
	}
}

func TestCreateLabResult_ByLabTech(t *testing.T) {
	f := newFixture()

	lr, err := f.svc.CreateLabResult(context.Background(),
		auth.Actor{UserID: uuid.New(), Role: auth.RoleLabTech}, CreateLabResultParams{
			PatientID: f.patient.ID,
			TestName:  "CBC",
			Result:    "normal",
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lr.DoctorID != nil {
		t.Error("lab tech results carry no doctor profile")
	}
	if lr.RecordedAt.IsZero() {
		t.Error("expected recorded_at to be set")
	}
}

func TestCreateLabResult_PatientDenied(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateLabResult(context.Background(), f.patientActor(), CreateLabResultParams{
		PatientID: f.patient.ID,
		TestName:  "CBC",
		Result:    "normal",
	})
	if !clinicerr.IsKind(err, clinicerr.KindPermissionDenied) {
		t.Errorf("expected permission_denied, got %v", err)
	}
}

// -- Referral tests --

func TestCreateReferral(t *testing.T) {
	f := newFixture()
	target := f.dir.addDoctor(8000)

	ref, err := f.svc.CreateReferral(context.Background(), f.doctorActor(), CreateReferralParams{
		ToDoctorID: target.ID,
		PatientID:  f.patient.ID,
		Reason:     "needs specialist",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.FromDoctorID != f.doctor.ID {
		t.Error("from_doctor must be the caller's own profile")
	}
	if ref.Status != ReferralPending {
		t.Errorf("expected pending, got %s", ref.Status)
	}
	if ref.Urgency != UrgencyRoutine {
		t.Errorf("expected routine default, got %s", ref.Urgency)
	}
}

func TestCreateReferral_TargetMustExist(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateReferral(context.Background(), f.doctorActor(), CreateReferralParams{
		ToDoctorID: uuid.New(),
		PatientID:  f.patient.ID,
		Reason:     "needs specialist",
	})
	if !clinicerr.IsKind(err, clinicerr.KindNotFound) {
		t.Errorf("expected not_found, got %v", err)
	}
}

func TestAcceptReferral(t *testing.T) {
	f := newFixture()
	target := f.dir.addDoctor(8000)

	ref, err := f.svc.CreateReferral(context.Background(), f.doctorActor(), CreateReferralParams{
		ToDoctorID: target.ID,
		PatientID:  f.patient.ID,
		Reason:     "needs specialist",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	targetActor := auth.Actor{UserID: target.UserID, Role: auth.RoleDoctor}
	got, err := f.svc.AcceptReferral(context.Background(), targetActor, ref.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != ReferralAccepted {
		t.Errorf("expected accepted, got %s", got.Status)
	}

	// Terminal: second accept fails and the state stays.
	_, err = f.svc.AcceptReferral(context.Background(), targetActor, ref.ID)
	if !clinicerr.IsKind(err, clinicerr.KindInvalidState) {
		t.Errorf("expected invalid_state, got %v", err)
	}
	_, err = f.svc.RejectReferral(context.Background(), targetActor, ref.ID)
	if !clinicerr.IsKind(err, clinicerr.KindInvalidState) {
		t.Errorf("expected invalid_state, got %v", err)
	}
	final, _ := f.svc.GetReferral(context.Background(), ref.ID)
	if final.Status != ReferralAccepted {
		t.Errorf("referral must stay accepted, got %s", final.Status)
	}
}

func TestAcceptReferral_OnlyTargetDoctor(t *testing.T) {
	f := newFixture()
	target := f.dir.addDoctor(8000)

	ref, err := f.svc.CreateReferral(context.Background(), f.doctorActor(), CreateReferralParams{
		ToDoctorID: target.ID,
		PatientID:  f.patient.ID,
		Reason:     "needs specialist",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The sender cannot accept their own referral.
	_, err = f.svc.AcceptReferral(context.Background(), f.doctorActor(), ref.ID)
	if !clinicerr.IsKind(err, clinicerr.KindPermissionDenied) {
		t.Errorf("expected permission_denied, got %v", err)
	}
	got, _ := f.svc.GetReferral(context.Background(), ref.ID)
	if got.Status != ReferralPending {
		t.Errorf("referral must stay pending, got %s", got.Status)
	}
}

func TestRejectReferral(t *testing.T) {
	f := newFixture()
	target := f.dir.addDoctor(8000)

	ref, err := f.svc.CreateReferral(context.Background(), f.doctorActor(), CreateReferralParams{
		ToDoctorID: target.ID,
		PatientID:  f.patient.ID,
		Reason:     "needs specialist",
		Urgency:    UrgencyUrgent,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := f.svc.RejectReferral(context.Background(),
		auth.Actor{UserID: target.UserID, Role: auth.RoleDoctor}, ref.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != ReferralRejected {
		t.Errorf("expected rejected, got %s", got.Status)
	}
}
