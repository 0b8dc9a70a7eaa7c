package clinic

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

type ClinicServicer interface {
	Create(ctx context.Context, p *session.Principal, req *model.CreateClinicRequest) (*model.Clinic, error)
	Current(ctx context.Context, p *session.Principal) (*model.Clinic, error)
}

type Service struct {
	repo     repository.ClinicRepository
	validate *validator.Validator
	logger   *logger.Logger
}

func NewService(repo repository.ClinicRepository, v *validator.Validator, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, validate: v, logger: log}
}

// Create inserts a clinic and makes the caller a member of it. Users that
// already belong to a clinic may create more; their session keeps resolving
// to the earliest one.
func (s *Service) Create(ctx context.Context, p *session.Principal, req *model.CreateClinicRequest) (*model.Clinic, error) {
	if err := session.RequireUser(p); err != nil {
		return nil, err
	}
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	clinic := &model.Clinic{
		Base:     model.Base{ID: uuid.New()},
		Name:     strings.TrimSpace(req.Name),
		Timezone: req.Timezone,
	}
	if err := s.repo.CreateWithMember(ctx, clinic, p.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// The session outlived its user.
			return nil, apperrors.Unauthorized(err)
		}
		s.logger.WithContext(ctx).Error(err, "failed to create clinic")
		return nil, apperrors.Internal(err)
	}

	s.logger.WithContext(ctx).Info("clinic created",
		"clinic_id", clinic.ID.String(),
		"user_id", p.UserID.String())
	return clinic, nil
}

func (s *Service) Current(ctx context.Context, p *session.Principal) (*model.Clinic, error) {
	c, err := session.RequireClinic(p)
	if err != nil {
		return nil, err
	}
	clinic, err := s.repo.Get(ctx, c.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.TenantRequired(err)
		}
		s.logger.WithContext(ctx).Error(err, "failed to get clinic")
		return nil, apperrors.Internal(err)
	}
	return clinic, nil
}
