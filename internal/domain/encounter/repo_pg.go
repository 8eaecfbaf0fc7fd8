package encounter

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// -- Appointments --

const apptCols = `id, doctor_id, patient_id, appointment_time, type, status,
	communication_preference, reason, meeting_link, notes, created_at, updated_at`

func (r *repoPG) CreateAppointment(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment (
			id, doctor_id, patient_id, appointment_time, type, status,
			communication_preference, reason, meeting_link, notes
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.DoctorID, a.PatientID, a.AppointmentTime, a.Type, a.Status,
		a.CommPreference, a.Reason, a.MeetingLink, a.Notes,
	)
	return err
}

func (r *repoPG) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppt(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
}

func (r *repoPG) UpdateAppointment(ctx context.Context, a *Appointment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET
			appointment_time=$2, type=$3, status=$4, communication_preference=$5,
			reason=$6, meeting_link=$7, notes=$8, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.AppointmentTime, a.Type, a.Status, a.CommPreference,
		a.Reason, a.MeetingLink, a.Notes,
	)
	return err
}

func (r *repoPG) ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return r.listAppointments(ctx, `doctor_id`, doctorID, limit, offset)
}

func (r *repoPG) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return r.listAppointments(ctx, `patient_id`, patientID, limit, offset)
}

func (r *repoPG) listAppointments(ctx context.Context, col string, id uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointment WHERE `+col+` = $1`, id).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+apptCols+` FROM appointment WHERE `+col+` = $1 ORDER BY appointment_time DESC LIMIT $2 OFFSET $3`,
		id, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var appts []*Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(
			&a.ID, &a.DoctorID, &a.PatientID, &a.AppointmentTime, &a.Type, &a.Status,
			&a.CommPreference, &a.Reason, &a.MeetingLink, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		appts = append(appts, &a)
	}
	return appts, total, nil
}

func scanAppt(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID, &a.DoctorID, &a.PatientID, &a.AppointmentTime, &a.Type, &a.Status,
		&a.CommPreference, &a.Reason, &a.MeetingLink, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// -- Consultations --

const consultCols = `id, appointment_id, doctor_id, patient_id, symptoms, diagnosis,
	notes, follow_up_date, is_admitted, created_at`

func (r *repoPG) CreateConsultation(ctx context.Context, c *Consultation) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO consultation (
			id, appointment_id, doctor_id, patient_id, symptoms, diagnosis,
			notes, follow_up_date, is_admitted
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		c.ID, c.AppointmentID, c.DoctorID, c.PatientID, c.Symptoms, c.Diagnosis,
		c.Notes, c.FollowUpDate, c.IsAdmitted,
	)
	return err
}

func (r *repoPG) GetConsultation(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return scanConsult(r.conn(ctx).QueryRow(ctx, `SELECT `+consultCols+` FROM consultation WHERE id = $1`, id))
}

func (r *repoPG) GetConsultationByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Consultation, error) {
	return scanConsult(r.conn(ctx).QueryRow(ctx,
		`SELECT `+consultCols+` FROM consultation WHERE appointment_id = $1`, appointmentID))
}

func (r *repoPG) ListConsultationsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Consultation, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM consultation WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+consultCols+` FROM consultation WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var consults []*Consultation
	for rows.Next() {
		var c Consultation
		if err := rows.Scan(
			&c.ID, &c.AppointmentID, &c.DoctorID, &c.PatientID, &c.Symptoms, &c.Diagnosis,
			&c.Notes, &c.FollowUpDate, &c.IsAdmitted, &c.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		consults = append(consults, &c)
	}
	return consults, total, nil
}

func scanConsult(row pgx.Row) (*Consultation, error) {
	var c Consultation
	err := row.Scan(
		&c.ID, &c.AppointmentID, &c.DoctorID, &c.PatientID, &c.Symptoms, &c.Diagnosis,
		&c.Notes, &c.FollowUpDate, &c.IsAdmitted, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// -- Prescriptions --

func (r *repoPG) CreatePrescription(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO prescription (
			id, patient_id, doctor_id, consultation_id, medication, dosage,
			frequency, duration, instructions, status
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.PatientID, p.DoctorID, p.ConsultationID, p.Medication, p.Dosage,
		p.Frequency, p.Duration, p.Instructions, p.Status,
	)
	return err
}

func (r *repoPG) ListPrescriptionsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM prescription WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, doctor_id, consultation_id, medication, dosage,
			frequency, duration, instructions, status, created_at
		FROM prescription WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var scripts []*Prescription
	for rows.Next() {
		var p Prescription
		if err := rows.Scan(
			&p.ID, &p.PatientID, &p.DoctorID, &p.ConsultationID, &p.Medication, &p.Dosage,
			&p.Frequency, &p.Duration, &p.Instructions, &p.Status, &p.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		scripts = append(scripts, &p)
	}
	return scripts, total, nil
}

// -- Lab results --

func (r *repoPG) CreateLabResult(ctx context.Context, lr *LabResult) error {
	lr.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO lab_result (
			id, patient_id, doctor_id, consultation_id, test_name, result,
			units, reference_range, notes, status, recorded_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		lr.ID, lr.PatientID, lr.DoctorID, lr.ConsultationID, lr.TestName, lr.Result,
		lr.Units, lr.ReferenceRange, lr.Notes, lr.Status, lr.RecordedAt,
	)
	return err
}

func (r *repoPG) ListLabResultsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*LabResult, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM lab_result WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, doctor_id, consultation_id, test_name, result,
			units, reference_range, notes, status, recorded_at
		FROM lab_result WHERE patient_id = $1 ORDER BY recorded_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []*LabResult
	for rows.Next() {
		var lr LabResult
		if err := rows.Scan(
			&lr.ID, &lr.PatientID, &lr.DoctorID, &lr.ConsultationID, &lr.TestName, &lr.Result,
			&lr.Units, &lr.ReferenceRange, &lr.Notes, &lr.Status, &lr.RecordedAt,
		); err != nil {
			return nil, 0, err
		}
		results = append(results, &lr)
	}
	return results, total, nil
}

// -- Referrals --

const referralCols = `id, from_doctor_id, to_doctor_id, patient_id, reason, urgency,
	status, notes, created_at, updated_at`

func (r *repoPG) CreateReferral(ctx context.Context, ref *Referral) error {
	ref.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO referral (
			id, from_doctor_id, to_doctor_id, patient_id, reason, urgency, status, notes
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		ref.ID, ref.FromDoctorID, ref.ToDoctorID, ref.PatientID, ref.Reason, ref.Urgency,
		ref.Status, ref.Notes,
	)
	return err
}

func (r *repoPG) GetReferral(ctx context.Context, id uuid.UUID) (*Referral, error) {
	return scanReferral(r.conn(ctx).QueryRow(ctx, `SELECT `+referralCols+` FROM referral WHERE id = $1`, id))
}

func (r *repoPG) UpdateReferral(ctx context.Context, ref *Referral) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE referral SET status=$2, notes=$3, updated_at=NOW() WHERE id = $1`,
		ref.ID, ref.Status, ref.Notes,
	)
	return err
}

func (r *repoPG) ListReferralsToDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Referral, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM referral WHERE to_doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+referralCols+` FROM referral WHERE to_doctor_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var refs []*Referral
	for rows.Next() {
		var ref Referral
		if err := rows.Scan(
			&ref.ID, &ref.FromDoctorID, &ref.ToDoctorID, &ref.PatientID, &ref.Reason, &ref.Urgency,
			&ref.Status, &ref.Notes, &ref.CreatedAt, &ref.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		refs = append(refs, &ref)
	}
	return refs, total, nil
}

func scanReferral(row pgx.Row) (*Referral, error) {
	var ref Referral
	err := row.Scan(
		&ref.ID, &ref.FromDoctorID, &ref.ToDoctorID, &ref.PatientID, &ref.Reason, &ref.Urgency,
		&ref.Status, &ref.Notes, &ref.CreatedAt, &ref.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}
