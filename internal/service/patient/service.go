package patient

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/session"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

type PatientServicer interface {
	Upsert(ctx context.Context, p *session.Principal, req *model.UpsertPatientRequest) (*model.PatientView, error)
	Get(ctx context.Context, p *session.Principal, id uuid.UUID) (*model.PatientView, error)
	List(ctx context.Context, p *session.Principal) ([]*model.PatientView, error)
	Delete(ctx context.Context, p *session.Principal, id uuid.UUID) error
}

type Service struct {
	repo     repository.PatientRepository
	validate *validator.Validator
	logger   *logger.Logger
}

func NewService(repo repository.PatientRepository, v *validator.Validator, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, validate: v, logger: log}
}

// Upsert creates the patient when req.ID is nil and replaces the clinic's
// patient with that id otherwise. Phone numbers are stored as digits only.
func (s *Service) Upsert(ctx context.Context, p *session.Principal, req *model.UpsertPatientRequest) (*model.PatientView, error) {
	clinic, err := session.RequireClinic(p)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	patient := &model.Patient{
		ClinicID:    clinic.ID,
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		PhoneNumber: model.NormalizePhone(req.PhoneNumber),
		Sex:         req.Sex,
	}
	if req.ID != nil {
		patient.ID = *req.ID
	} else {
		patient.ID = uuid.New()
	}

	if err := s.repo.Upsert(ctx, patient); err != nil {
		return nil, s.mapError(ctx, err, "failed to upsert patient")
	}

	s.logger.WithContext(ctx).Info("patient saved",
		"patient_id", patient.ID.String(),
		"clinic_id", clinic.ID.String())

	return view(patient), nil
}

func (s *Service) Get(ctx context.Context, p *session.Principal, id uuid.UUID) (*model.PatientView, error) {
	clinic, err := session.RequireClinic(p)
	if err != nil {
		return nil, err
	}
	patient, err := s.repo.Get(ctx, clinic.ID, id)
	if err != nil {
		return nil, s.mapError(ctx, err, "failed to get patient")
	}
	return view(patient), nil
}

func (s *Service) List(ctx context.Context, p *session.Principal) ([]*model.PatientView, error) {
	clinic, err := session.RequireClinic(p)
	if err != nil {
		return nil, err
	}
	patients, err := s.repo.List(ctx, clinic.ID)
	if err != nil {
		return nil, s.mapError(ctx, err, "failed to list patients")
	}

	views := make([]*model.PatientView, 0, len(patients))
	for _, pt := range patients {
		views = append(views, view(pt))
	}
	return views, nil
}

func (s *Service) Delete(ctx context.Context, p *session.Principal, id uuid.UUID) error {
	clinic, err := session.RequireClinic(p)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, clinic.ID, id); err != nil {
		return s.mapError(ctx, err, "failed to delete patient")
	}
	return nil
}

func view(p *model.Patient) *model.PatientView {
	return &model.PatientView{Patient: p, PhoneDisplay: model.FormatPhone(p.PhoneNumber)}
}

func (s *Service) mapError(ctx context.Context, err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("patient", err)
	}
	s.logger.WithContext(ctx).Error(err, msg)
	return apperrors.Internal(err)
}
