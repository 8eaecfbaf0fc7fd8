package ward

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/identity"
	"github.com/clinicore/clinicore/internal/platform/clinicerr"
)

// Directory verifies that admitted patients exist. Satisfied by
// *identity.Service.
type Directory interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
}

// Service manages ward beds: admission onto an available bed and discharge.
type Service struct {
	repo Repository
	dir  Directory
}

func NewService(repo Repository, dir Directory) *Service {
	return &Service{repo: repo, dir: dir}
}

func (s *Service) CreateBed(ctx context.Context, b *Bed) error {
	if b.WardName == "" || b.BedNumber == "" {
		return clinicerr.InvalidArgument("ward_name and bed_number are required")
	}
	if b.Status == "" {
		b.Status = BedAvailable
	}
	return s.repo.Create(ctx, b)
}

// AdmitPatient puts a patient on an available bed.
func (s *Service) AdmitPatient(ctx context.Context, bedID, patientID uuid.UUID) (*Bed, error) {
	bed, err := s.repo.GetByID(ctx, bedID)
	if err != nil {
		return nil, clinicerr.NotFound("bed %s not found", bedID)
	}
	if bed.Status != BedAvailable {
		return nil, clinicerr.InvalidState("bed %s/%s is %s", bed.WardName, bed.BedNumber, bed.Status)
	}
	if _, err := s.dir.GetPatient(ctx, patientID); err != nil {
		return nil, err
	}
	bed.PatientID = &patientID
	bed.Status = BedOccupied
	if err := s.repo.Update(ctx, bed); err != nil {
		return nil, err
	}
	return bed, nil
}

// DischargePatient clears the bed's occupant and marks it available.
func (s *Service) DischargePatient(ctx context.Context, bedID uuid.UUID) (*Bed, error) {
	bed, err := s.repo.GetByID(ctx, bedID)
	if err != nil {
		return nil, clinicerr.NotFound("bed %s not found", bedID)
	}
	bed.PatientID = nil
	bed.Status = BedAvailable
	if err := s.repo.Update(ctx, bed); err != nil {
		return nil, err
	}
	return bed, nil
}

func (s *Service) ListBeds(ctx context.Context, limit, offset int) ([]*Bed, int, error) {
	return s.repo.List(ctx, limit, offset)
}
