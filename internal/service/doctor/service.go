package doctor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/availability"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/session"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/money"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

type DoctorServicer interface {
	Validate(req *model.UpsertDoctorRequest) (*model.Doctor, error)
	Upsert(ctx context.Context, p *session.Principal, req *model.UpsertDoctorRequest) (*model.DoctorView, error)
	Get(ctx context.Context, p *session.Principal, id uuid.UUID) (*model.DoctorView, error)
	List(ctx context.Context, p *session.Principal) ([]*model.DoctorView, error)
	Delete(ctx context.Context, p *session.Principal, id uuid.UUID) error
	Availability(ctx context.Context, p *session.Principal, id uuid.UUID) (*availability.Display, error)
}

// Options controls how doctors are rendered.
type Options struct {
	// Location is used for clinics without a time zone of their own.
	Location *time.Location
	Locale   string
	Money    money.Format
	Now      func() time.Time
}

type Service struct {
	repo     repository.DoctorRepository
	validate *validator.Validator
	opts     Options
	logger   *logger.Logger
}

func NewService(repo repository.DoctorRepository, v *validator.Validator, opts Options, log *logger.Logger) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Money == (money.Format{}) {
		opts.Money = money.BRL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, validate: v, opts: opts, logger: log}
}

// Validate checks a doctor payload and returns the canonical record, without
// clinic or id. Every failing field is reported.
func (s *Service) Validate(req *model.UpsertDoctorRequest) (*model.Doctor, error) {
	fields, err := s.validate.Fields(req)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	fromDay, toDay := -1, -1
	if req.AvailableFromWeekday != nil {
		fromDay = *req.AvailableFromWeekday
	}
	if req.AvailableToWeekday != nil {
		toDay = *req.AvailableToWeekday
	}
	window, werr := availability.ParseWindow(fromDay, toDay, req.AvailableFromTime, req.AvailableToTime)
	if werr != nil {
		fields.Merge(apperrors.FieldsOf(werr))
	}

	if err := fields.Err(); err != nil {
		return nil, err
	}

	return &model.Doctor{
		Name:                    strings.TrimSpace(req.Name),
		Specialty:               strings.TrimSpace(req.Specialty),
		AvatarImageURL:          strings.TrimSpace(req.AvatarImageURL),
		AppointmentPriceInCents: req.AppointmentPriceInCents,
		AvailableFromWeekday:    int(window.FromWeekday),
		AvailableToWeekday:      int(window.ToWeekday),
		AvailableFromTime:       window.FromTime,
		AvailableToTime:         window.ToTime,
	}, nil
}

func (s *Service) Upsert(ctx context.Context, p *session.Principal, req *model.UpsertDoctorRequest) (*model.DoctorView, error) {
	clinic, err := session.RequireClinic(p)
	if err != nil {
		return nil, err
	}

	doctor, err := s.Validate(req)
	if err != nil {
		return nil, err
	}
	doctor.ClinicID = clinic.ID
	if req.ID != nil {
		doctor.ID = *req.ID
	} else {
		doctor.ID = uuid.New()
	}

	evt, err := model.NewOutboxEvent(clinic.ID, model.EventDoctorUpserted, model.DoctorEvent{
		DoctorID: doctor.ID,
		ClinicID: clinic.ID,
		Name:     doctor.Name,
	})
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	if err := s.repo.Upsert(ctx, doctor, evt); err != nil {
		return nil, s.mapError(ctx, err, "failed to upsert doctor")
	}

	s.logger.WithContext(ctx).Info("doctor saved",
		"doctor_id", doctor.ID.String(),
		"clinic_id", clinic.ID.String())

	return s.view(clinic, doctor), nil
}

func (s *Service) Get(ctx context.Context, p *session.Principal, id uuid.UUID) (*model.DoctorView, error) {
	clinic, err := session.RequireClinic(p)
	if err != nil {
		return nil, err
	}
	doctor, err := s.repo.Get(ctx, clinic.ID, id)
	if err != nil {
		return nil, s.mapError(ctx, err, "failed to get doctor")
	}
	return s.view(clinic, doctor), nil
}

func (s *Service) List(ctx context.Context, p *session.Principal) ([]*model.DoctorView, error) {
	clinic, err := session.RequireClinic(p)
	if err != nil {
		return nil, err
	}
	doctors, err := s.repo.List(ctx, clinic.ID)
	if err != nil {
		return nil, s.mapError(ctx, err, "failed to list doctors")
	}

	views := make([]*model.DoctorView, 0, len(doctors))
	for _, d := range doctors {
		views = append(views, s.view(clinic, d))
	}
	return views, nil
}

func (s *Service) Delete(ctx context.Context, p *session.Principal, id uuid.UUID) error {
	clinic, err := session.RequireClinic(p)
	if err != nil {
		return err
	}

	evt, err := model.NewOutboxEvent(clinic.ID, model.EventDoctorDeleted, model.DoctorEvent{
		DoctorID: id,
		ClinicID: clinic.ID,
	})
	if err != nil {
		return apperrors.Internal(err)
	}

	if err := s.repo.Delete(ctx, clinic.ID, id, evt); err != nil {
		return s.mapError(ctx, err, "failed to delete doctor")
	}
	return nil
}

func (s *Service) Availability(ctx context.Context, p *session.Principal, id uuid.UUID) (*availability.Display, error) {
	view, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return &view.Availability, nil
}

func (s *Service) view(clinic *session.Clinic, d *model.Doctor) *model.DoctorView {
	loc := availability.ResolveLocation(clinic.Timezone, s.opts.Location)
	return &model.DoctorView{
		Doctor:       d,
		Price:        s.opts.Money.Cents(d.AppointmentPriceInCents),
		Availability: availability.Describe(d.Window(), s.opts.Now(), loc, s.opts.Locale),
	}
}

func (s *Service) mapError(ctx context.Context, err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("doctor", err)
	}
	s.logger.WithContext(ctx).Error(err, msg)
	return apperrors.Internal(err)
}
