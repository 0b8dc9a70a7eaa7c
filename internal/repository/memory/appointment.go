package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type appointmentRepo Store

func (r *appointmentRepo) Book(ctx context.Context, apt *model.Appointment, dayStart, dayEnd time.Time, check repository.BookingCheck) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	doctor, ok := s.doctors[apt.DoctorID]
	if !ok || doctor.ClinicID != apt.ClinicID {
		return repository.ErrNotFound
	}
	patient, ok := s.patients[apt.PatientID]
	if !ok || patient.ClinicID != apt.ClinicID {
		return repository.ErrNotFound
	}
	clinic, ok := s.clinics[apt.ClinicID]
	if !ok {
		return repository.ErrNotFound
	}

	evt, err := check(&repository.Booking{
		Clinic:  &clinic,
		Doctor:  &doctor,
		Patient: &patient,
		Booked:  s.forDoctor(apt.ClinicID, apt.DoctorID, dayStart, dayEnd),
	})
	if err != nil {
		return err
	}

	for _, a := range s.appointments {
		if a.DoctorID == apt.DoctorID && a.Date.Equal(apt.Date) {
			return repository.ErrDuplicate
		}
	}

	apt.Touch(s.now())
	s.appointments[apt.ID] = *apt
	s.addEvent(evt)
	return nil
}

func (s *Store) forDoctor(clinicID, doctorID uuid.UUID, from, to time.Time) []*model.Appointment {
	out := []*model.Appointment{}
	for _, a := range s.appointments {
		if a.ClinicID != clinicID || a.DoctorID != doctorID {
			continue
		}
		if a.Date.Before(to) && a.End().After(from) {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (s *Store) detail(a model.Appointment) *model.AppointmentDetail {
	d := s.doctors[a.DoctorID]
	p := s.patients[a.PatientID]
	return &model.AppointmentDetail{
		Appointment:             a,
		PatientName:             p.Name,
		PatientEmail:            p.Email,
		DoctorName:              d.Name,
		DoctorSpecialty:         d.Specialty,
		AppointmentPriceInCents: d.AppointmentPriceInCents,
	}
}

func (r *appointmentRepo) Get(ctx context.Context, clinicID, id uuid.UUID) (*model.AppointmentDetail, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok || a.ClinicID != clinicID {
		return nil, repository.ErrNotFound
	}
	return s.detail(a), nil
}

func (r *appointmentRepo) List(ctx context.Context, clinicID uuid.UUID, filter model.AppointmentFilter) ([]*model.AppointmentDetail, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*model.AppointmentDetail{}
	for _, a := range s.appointments {
		if a.ClinicID != clinicID {
			continue
		}
		if filter.DoctorID != nil && a.DoctorID != *filter.DoctorID {
			continue
		}
		if filter.From != nil && a.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !a.Date.Before(*filter.To) {
			continue
		}
		out = append(out, s.detail(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *appointmentRepo) ListForDoctor(ctx context.Context, clinicID, doctorID uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.forDoctor(clinicID, doctorID, from, to), nil
}

func (r *appointmentRepo) Delete(ctx context.Context, clinicID, id uuid.UUID, evt *model.OutboxEvent) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok || a.ClinicID != clinicID {
		return repository.ErrNotFound
	}
	delete(s.appointments, id)
	s.addEvent(evt)
	return nil
}

type outboxRepo Store

// ProcessPending claims due events under the store lock, then calls fn
// without holding it so that slow publishers do not stall other requests.
// Claimed events are skipped by concurrent callers until their outcome is
// recorded.
func (r *outboxRepo) ProcessPending(ctx context.Context, limit, maxRetries int, backoff time.Duration,
	fn func(ctx context.Context, evt *model.OutboxEvent) error) (int, int, error) {
	s := (*Store)(r)

	s.mu.Lock()
	now := s.now()
	var due []model.OutboxEvent
	for _, evt := range s.outbox {
		if len(due) >= limit {
			break
		}
		if evt.Status != model.OutboxStatusPending || s.relaying[evt.ID] ||
			(evt.RetryAt != nil && evt.RetryAt.After(now)) {
			continue
		}
		s.relaying[evt.ID] = true
		due = append(due, *evt)
	}
	s.mu.Unlock()

	outcomes := make(map[uuid.UUID]error, len(due))
	for i := range due {
		outcomes[due[i].ID] = fn(ctx, &due[i])
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now = s.now()
	var processed, failed int
	for _, evt := range s.outbox {
		err, ok := outcomes[evt.ID]
		if !ok {
			continue
		}
		delete(s.relaying, evt.ID)
		evt.UpdatedAt = now
		if err != nil {
			failed++
			msg := err.Error()
			evt.ErrorMessage = &msg
			evt.RetryCount++
			retryAt := now.Add(backoff * time.Duration(evt.RetryCount))
			evt.RetryAt = &retryAt
			if evt.RetryCount >= maxRetries {
				evt.Status = model.OutboxStatusFailed
			}
			continue
		}
		processed++
		evt.Status = model.OutboxStatusProcessed
		evt.ErrorMessage = nil
		processedAt := now
		evt.ProcessedAt = &processedAt
	}
	return processed, failed, nil
}

func (r *outboxRepo) PendingCount(ctx context.Context) (int, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, evt := range s.outbox {
		if evt.Status == model.OutboxStatusPending {
			n++
		}
	}
	return n, nil
}

func (r *outboxRepo) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.outbox[:0]
	var n int64
	for _, evt := range s.outbox {
		if evt.Status == model.OutboxStatusProcessed && evt.ProcessedAt != nil && evt.ProcessedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, evt)
	}
	s.outbox = kept
	return n, nil
}
