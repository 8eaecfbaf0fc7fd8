package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/platform/clinicerr"
)

// Service exposes doctor and patient profile lookups. Business rules live in
// the encounter and ledger layers; this package only resolves identities.
type Service struct {
	doctors  DoctorRepository
	patients PatientRepository
}

func NewService(doctors DoctorRepository, patients PatientRepository) *Service {
	return &Service{doctors: doctors, patients: patients}
}

func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	if d.UserID == uuid.Nil {
		return clinicerr.InvalidArgument("user_id is required")
	}
	if d.Specialization == "" {
		return clinicerr.InvalidArgument("specialization is required")
	}
	if d.ConsultationFee < 0 {
		return clinicerr.InvalidArgument("consultation_fee must not be negative")
	}
	return s.doctors.Create(ctx, d)
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if p.UserID == uuid.Nil {
		return clinicerr.InvalidArgument("user_id is required")
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, clinicerr.NotFound("doctor %s not found", id)
	}
	return d, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, clinicerr.NotFound("patient %s not found", id)
	}
	return p, nil
}

// ResolveDoctor maps an authenticated user id to its doctor profile.
func (s *Service) ResolveDoctor(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	d, err := s.doctors.GetByUserID(ctx, userID)
	if err != nil {
		return nil, clinicerr.NotFound("no doctor profile for user %s", userID)
	}
	return d, nil
}

// ResolvePatient maps an authenticated user id to its patient profile.
func (s *Service) ResolvePatient(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByUserID(ctx, userID)
	if err != nil {
		return nil, clinicerr.NotFound("no patient profile for user %s", userID)
	}
	return p, nil
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, limit, offset)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}
