package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/availability"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/session"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/money"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

const fieldDate = "date"

type AppointmentServicer interface {
	Check(ctx context.Context, p *session.Principal, req *model.BookAppointmentRequest) (*model.CheckResult, error)
	Book(ctx context.Context, p *session.Principal, req *model.BookAppointmentRequest) (*model.AppointmentDetail, error)
	Get(ctx context.Context, p *session.Principal, id uuid.UUID) (*model.AppointmentDetail, error)
	List(ctx context.Context, p *session.Principal, filter model.AppointmentFilter) ([]*model.AppointmentDetail, error)
	Delete(ctx context.Context, p *session.Principal, id uuid.UUID) error
}

type Options struct {
	// Location is used for clinics without a time zone of their own.
	Location               *time.Location
	DefaultDurationMinutes int
	Money                  money.Format
	Now                    func() time.Time
}

type Service struct {
	repos    *repository.Repositories
	validate *validator.Validator
	opts     Options
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

func NewService(repos *repository.Repositories, v *validator.Validator, opts Options, m *metrics.Metrics, log *logger.Logger) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.DefaultDurationMinutes <= 0 {
		opts.DefaultDurationMinutes = 30
	}
	if opts.Money == (money.Format{}) {
		opts.Money = money.BRL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repos: repos, validate: v, opts: opts, metrics: m, logger: log}
}

// slot is a validated booking request.
type slot struct {
	clinic   *session.Clinic
	loc      *time.Location
	start    time.Time
	duration time.Duration
	doctor   *model.Doctor
	patient  *model.Patient
}

func (sl *slot) dayBounds() (time.Time, time.Time) {
	return availability.DayBounds(sl.start, sl.loc)
}

// resolve validates req and loads the doctor and patient it refers to.
func (s *Service) resolve(ctx context.Context, p *session.Principal, req *model.BookAppointmentRequest) (*slot, error) {
	clinic, err := session.RequireClinic(p)
	if err != nil {
		return nil, err
	}

	fields, err := s.validate.Fields(req)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	loc := availability.ResolveLocation(clinic.Timezone, s.opts.Location)

	var start time.Time
	if _, failed := fields[fieldDate]; !failed {
		start, err = availability.ParseInstant(req.Date, loc)
		if err != nil {
			fields.Add(fieldDate, "must be a date-time like 2006-01-02T15:04:05")
		} else if !start.After(s.opts.Now()) {
			fields.Add(fieldDate, "must be in the future")
		}
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	minutes := req.DurationMinutes
	if minutes == 0 {
		minutes = s.opts.DefaultDurationMinutes
	}

	doctor, err := s.repos.Doctors.Get(ctx, clinic.ID, req.DoctorID)
	if err != nil {
		return nil, s.mapError(ctx, err, "doctor", "failed to get doctor")
	}
	patient, err := s.repos.Patients.Get(ctx, clinic.ID, req.PatientID)
	if err != nil {
		return nil, s.mapError(ctx, err, "patient", "failed to get patient")
	}

	return &slot{
		clinic:   clinic,
		loc:      loc,
		start:    start.UTC(),
		duration: time.Duration(minutes) * time.Minute,
		doctor:   doctor,
		patient:  patient,
	}, nil
}

func intervals(apts []*model.Appointment) []availability.Interval {
	out := make([]availability.Interval, 0, len(apts))
	for _, a := range apts {
		out = append(out, a.Interval())
	}
	return out
}

// Check reports whether req could be booked right now without booking it.
func (s *Service) Check(ctx context.Context, p *session.Principal, req *model.BookAppointmentRequest) (*model.CheckResult, error) {
	sl, err := s.resolve(ctx, p, req)
	if err != nil {
		return nil, err
	}

	dayStart, dayEnd := sl.dayBounds()
	booked, err := s.repos.Appointments.ListForDoctor(ctx, sl.clinic.ID, sl.doctor.ID, dayStart, dayEnd)
	if err != nil {
		return nil, s.mapError(ctx, err, "doctor", "failed to list appointments")
	}

	return &model.CheckResult{
		Decision: availability.Check(sl.doctor.Window(), sl.loc, sl.start, sl.duration, intervals(booked)),
		Start:    sl.start,
		End:      sl.start.Add(sl.duration),
	}, nil
}

// Book places the appointment. The availability check runs again inside the
// booking transaction against the locked doctor row, so of two concurrent
// requests for the same slot exactly one succeeds.
func (s *Service) Book(ctx context.Context, p *session.Principal, req *model.BookAppointmentRequest) (*model.AppointmentDetail, error) {
	sl, err := s.resolve(ctx, p, req)
	if err != nil {
		s.observe(err)
		return nil, err
	}

	apt := &model.Appointment{
		Base:            model.Base{ID: uuid.New()},
		ClinicID:        sl.clinic.ID,
		PatientID:       sl.patient.ID,
		DoctorID:        sl.doctor.ID,
		Date:            sl.start,
		DurationMinutes: int(sl.duration / time.Minute),
	}

	dayStart, dayEnd := sl.dayBounds()
	err = s.repos.Appointments.Book(ctx, apt, dayStart, dayEnd, func(b *repository.Booking) (*model.OutboxEvent, error) {
		decision := availability.Check(b.Doctor.Window(), sl.loc, apt.Date, apt.Duration(), intervals(b.Booked))
		if !decision.Bookable {
			return nil, apperrors.Conflict(decision.Reason, nil)
		}
		return model.NewOutboxEvent(b.Clinic.ID, model.EventAppointmentBooked, model.AppointmentEvent{
			AppointmentID:   apt.ID,
			ClinicID:        b.Clinic.ID,
			ClinicName:      b.Clinic.Name,
			Timezone:        sl.loc.String(),
			DoctorID:        b.Doctor.ID,
			DoctorName:      b.Doctor.Name,
			PatientID:       b.Patient.ID,
			PatientName:     b.Patient.Name,
			PatientEmail:    b.Patient.Email,
			Date:            apt.Date,
			DurationMinutes: apt.DurationMinutes,
		})
	})
	if err != nil {
		err = s.mapBookingError(ctx, err)
		s.observe(err)
		return nil, err
	}
	s.observe(nil)

	s.logger.WithContext(ctx).Info("appointment booked",
		"appointment_id", apt.ID.String(),
		"doctor_id", apt.DoctorID.String(),
		"clinic_id", apt.ClinicID.String(),
		"date", apt.Date.Format(time.RFC3339))

	return s.detail(&model.AppointmentDetail{
		Appointment:             *apt,
		PatientName:             sl.patient.Name,
		PatientEmail:            sl.patient.Email,
		DoctorName:              sl.doctor.Name,
		DoctorSpecialty:         sl.doctor.Specialty,
		AppointmentPriceInCents: sl.doctor.AppointmentPriceInCents,
	}), nil
}

func (s *Service) Get(ctx context.Context, p *session.Principal, id uuid.UUID) (*model.AppointmentDetail, error) {
	clinic, err := session.RequireClinic(p)
	if err != nil {
		return nil, err
	}
	d, err := s.repos.Appointments.Get(ctx, clinic.ID, id)
	if err != nil {
		return nil, s.mapError(ctx, err, "appointment", "failed to get appointment")
	}
	return s.detail(d), nil
}

func (s *Service) List(ctx context.Context, p *session.Principal, filter model.AppointmentFilter) ([]*model.AppointmentDetail, error) {
	clinic, err := session.RequireClinic(p)
	if err != nil {
		return nil, err
	}
	details, err := s.repos.Appointments.List(ctx, clinic.ID, filter)
	if err != nil {
		return nil, s.mapError(ctx, err, "appointment", "failed to list appointments")
	}
	for _, d := range details {
		s.detail(d)
	}
	return details, nil
}

func (s *Service) Delete(ctx context.Context, p *session.Principal, id uuid.UUID) error {
	clinic, err := session.RequireClinic(p)
	if err != nil {
		return err
	}

	d, err := s.repos.Appointments.Get(ctx, clinic.ID, id)
	if err != nil {
		return s.mapError(ctx, err, "appointment", "failed to get appointment")
	}

	evt, err := model.NewOutboxEvent(clinic.ID, model.EventAppointmentCancelled, model.AppointmentEvent{
		AppointmentID:   d.ID,
		ClinicID:        clinic.ID,
		ClinicName:      clinic.Name,
		Timezone:        availability.ResolveLocation(clinic.Timezone, s.opts.Location).String(),
		DoctorID:        d.DoctorID,
		DoctorName:      d.DoctorName,
		PatientID:       d.PatientID,
		PatientName:     d.PatientName,
		PatientEmail:    d.PatientEmail,
		Date:            d.Date,
		DurationMinutes: d.DurationMinutes,
	})
	if err != nil {
		return apperrors.Internal(err)
	}

	if err := s.repos.Appointments.Delete(ctx, clinic.ID, id, evt); err != nil {
		return s.mapError(ctx, err, "appointment", "failed to delete appointment")
	}
	return nil
}

func (s *Service) detail(d *model.AppointmentDetail) *model.AppointmentDetail {
	d.Price = s.opts.Money.Cents(d.AppointmentPriceInCents)
	return d
}

func (s *Service) observe(err error) {
	switch {
	case err == nil:
		s.metrics.ObserveBooking(metrics.BookingBooked)
	case apperrors.IsConflict(err):
		s.metrics.ObserveBooking(metrics.BookingConflict)
	case apperrors.CodeOf(err) == apperrors.ErrInternal:
		s.metrics.ObserveBooking(metrics.BookingError)
	default:
		s.metrics.ObserveBooking(metrics.BookingRejected)
	}
}

func (s *Service) mapBookingError(ctx context.Context, err error) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	if errors.Is(err, repository.ErrDuplicate) {
		return apperrors.Conflict("", err)
	}
	return s.mapError(ctx, err, "doctor", "failed to book appointment")
}

func (s *Service) mapError(ctx context.Context, err error, resource, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(resource, err)
	}
	s.logger.WithContext(ctx).Error(err, msg)
	return apperrors.Internal(err)
}
