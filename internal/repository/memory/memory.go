// Package memory is an in-process implementation of the repositories. A
// single mutex plays the role of the database's transactions and row locks.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

// Store holds every table.
type Store struct {
	mu           sync.Mutex
	clinics      map[uuid.UUID]model.Clinic
	users        map[uuid.UUID]model.User
	memberships  []model.Membership
	doctors      map[uuid.UUID]model.Doctor
	patients     map[uuid.UUID]model.Patient
	appointments map[uuid.UUID]model.Appointment
	outbox       []*model.OutboxEvent
	relaying     map[uuid.UUID]bool
	now          func() time.Time
}

func NewStore() *Store {
	return &Store{
		clinics:      map[uuid.UUID]model.Clinic{},
		users:        map[uuid.UUID]model.User{},
		doctors:      map[uuid.UUID]model.Doctor{},
		patients:     map[uuid.UUID]model.Patient{},
		appointments: map[uuid.UUID]model.Appointment{},
		relaying:     map[uuid.UUID]bool{},
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Repositories exposes the store through the repository interfaces.
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Clinics:      (*clinicRepo)(s),
		Users:        (*userRepo)(s),
		Doctors:      (*doctorRepo)(s),
		Patients:     (*patientRepo)(s),
		Appointments: (*appointmentRepo)(s),
		Outbox:       (*outboxRepo)(s),
	}
}

// Events returns a copy of the outbox rows.
func (s *Store) Events() []model.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.OutboxEvent, 0, len(s.outbox))
	for _, e := range s.outbox {
		out = append(out, *e)
	}
	return out
}

func (s *Store) addEvent(evt *model.OutboxEvent) {
	if evt != nil {
		cp := *evt
		s.outbox = append(s.outbox, &cp)
	}
}

type clinicRepo Store

func (r *clinicRepo) CreateWithMember(ctx context.Context, clinic *model.Clinic, userID uuid.UUID) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return repository.ErrNotFound
	}
	clinic.Touch(s.now())
	if _, ok := s.clinics[clinic.ID]; ok {
		return repository.ErrDuplicate
	}
	s.clinics[clinic.ID] = *clinic
	s.memberships = append(s.memberships, model.Membership{
		UserID:    userID,
		ClinicID:  clinic.ID,
		CreatedAt: clinic.CreatedAt,
	})
	return nil
}

func (r *clinicRepo) Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clinics[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

type userRepo Store

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, u := range s.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.Touch(s.now())
	s.users[user.ID] = *user
	return nil
}

func (r *userRepo) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) FirstMembership(ctx context.Context, userID uuid.UUID) (*model.Clinic, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	// memberships is append-only, so the first match is the earliest.
	for _, m := range s.memberships {
		if m.UserID == userID {
			c := s.clinics[m.ClinicID]
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

type doctorRepo Store

func (r *doctorRepo) Upsert(ctx context.Context, doctor *model.Doctor, evt *model.OutboxEvent) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.doctors[doctor.ID]; ok && doctor.ID != uuid.Nil {
		if existing.ClinicID != doctor.ClinicID {
			return repository.ErrNotFound
		}
		doctor.CreatedAt = existing.CreatedAt
	}
	doctor.Touch(s.now())
	s.doctors[doctor.ID] = *doctor
	s.addEvent(evt)
	return nil
}

func (r *doctorRepo) Get(ctx context.Context, clinicID, id uuid.UUID) (*model.Doctor, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.doctors[id]
	if !ok || d.ClinicID != clinicID {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (r *doctorRepo) List(ctx context.Context, clinicID uuid.UUID) ([]*model.Doctor, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*model.Doctor{}
	for _, d := range s.doctors {
		if d.ClinicID == clinicID {
			d := d
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *doctorRepo) Delete(ctx context.Context, clinicID, id uuid.UUID, evt *model.OutboxEvent) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.doctors[id]
	if !ok || d.ClinicID != clinicID {
		return repository.ErrNotFound
	}
	delete(s.doctors, id)
	for aid, a := range s.appointments {
		if a.DoctorID == id {
			delete(s.appointments, aid)
		}
	}
	s.addEvent(evt)
	return nil
}

type patientRepo Store

func (r *patientRepo) Upsert(ctx context.Context, patient *model.Patient) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.patients[patient.ID]; ok && patient.ID != uuid.Nil {
		if existing.ClinicID != patient.ClinicID {
			return repository.ErrNotFound
		}
		patient.CreatedAt = existing.CreatedAt
	}
	patient.Touch(s.now())
	s.patients[patient.ID] = *patient
	return nil
}

func (r *patientRepo) Get(ctx context.Context, clinicID, id uuid.UUID) (*model.Patient, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.patients[id]
	if !ok || p.ClinicID != clinicID {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *patientRepo) List(ctx context.Context, clinicID uuid.UUID) ([]*model.Patient, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*model.Patient{}
	for _, p := range s.patients {
		if p.ClinicID == clinicID {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *patientRepo) Delete(ctx context.Context, clinicID, id uuid.UUID) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.patients[id]
	if !ok || p.ClinicID != clinicID {
		return repository.ErrNotFound
	}
	delete(s.patients, id)
	for aid, a := range s.appointments {
		if a.PatientID == id {
			delete(s.appointments, aid)
		}
	}
	return nil
}
