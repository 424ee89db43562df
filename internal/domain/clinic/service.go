package clinic

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/domain/account"
	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/validation"
)

// AccountGateway is the part of the identity gateway the clinic needs.
type AccountGateway interface {
	Create(ctx context.Context, email, password string, roles ...string) (*account.Account, error)
	EmailInUse(ctx context.Context, email string) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Authenticate(ctx context.Context, email, password string) (string, error)
	MinPasswordLength() int
}

type Service struct {
	doctors      DoctorRepository
	patients     PatientRepository
	appointments AppointmentRepository
	accounts     AccountGateway
	authz        *Authorizer
	tx           db.TxRunner
	validator    *validation.Validator
	logger       zerolog.Logger
}

func NewService(doctors DoctorRepository, patients PatientRepository, appts AppointmentRepository,
	accounts AccountGateway, tx db.TxRunner, v *validation.Validator, logger zerolog.Logger) *Service {
	return &Service{
		doctors:      doctors,
		patients:     patients,
		appointments: appts,
		accounts:     accounts,
		authz:        NewAuthorizer(appts, patients, doctors),
		tx:           tx,
		validator:    v,
		logger:       logger.With().Str("component", "clinic").Logger(),
	}
}

func requireAdmin(p auth.Principal, action string) error {
	if !p.IsAdmin() {
		return apperr.Forbidden("only administrators can %s", action)
	}
	return nil
}

// -- Appointment --

type CreateAppointmentInput struct {
	DoctorID uuid.UUID `json:"doctor_id" validate:"required"`
	// PatientID is accepted for compatibility and ignored: the patient is
	// always the caller.
	PatientID *uuid.UUID `json:"patient_id,omitempty"`
	Start     time.Time  `json:"start" validate:"required,future"`
	End       time.Time  `json:"end" validate:"required,gtfield=Start"`
}

type UpdateAppointmentInput struct {
	DoctorID  uuid.UUID `json:"doctor_id" validate:"required"`
	PatientID uuid.UUID `json:"patient_id"`
	Start     time.Time `json:"start" validate:"required,future"`
	End       time.Time `json:"end" validate:"required,gtfield=Start"`
	Status    string    `json:"status" validate:"required"`
}

// CreateAppointment books an appointment for the calling patient.
func (s *Service) CreateAppointment(ctx context.Context, p auth.Principal, in CreateAppointmentInput) (uuid.UUID, error) {
	if err := s.validator.Validate(ctx, in); err != nil {
		return uuid.Nil, err
	}

	patient, err := s.patients.FindByAccountID(ctx, p.ID)
	if err != nil {
		return uuid.Nil, err
	}
	if patient == nil {
		return uuid.Nil, apperr.Forbidden("only patients can book appointments")
	}
	if _, err := s.doctors.GetByID(ctx, in.DoctorID); err != nil {
		return uuid.Nil, err
	}

	overlapping, err := s.appointments.IsOverlapping(ctx, in.DoctorID, in.Start, in.End, nil)
	if err != nil {
		return uuid.Nil, err
	}
	if overlapping {
		return uuid.Nil, apperr.Conflict("the doctor is already booked for this time slot")
	}

	appt := &Appointment{
		DoctorID:  in.DoctorID,
		PatientID: patient.ID,
		Start:     in.Start,
		End:       in.End,
		Status:    StatusScheduled,
	}
	if err := s.appointments.Create(ctx, appt); err != nil {
		return uuid.Nil, err
	}
	return appt.ID, nil
}

func (s *Service) GetAppointment(ctx context.Context, p auth.Principal, id uuid.UUID) (*Appointment, error) {
	ok, err := s.authz.CanView(ctx, id, p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Forbidden("you are not allowed to view this appointment")
	}
	return s.appointments.GetByID(ctx, id)
}

// ListAppointmentsByDoctor returns the doctor's appointments ordered by
// start. Only admins and the doctor themself may list them.
func (s *Service) ListAppointmentsByDoctor(ctx context.Context, p auth.Principal, doctorID uuid.UUID) ([]*Appointment, error) {
	if !p.IsAdmin() {
		own, err := s.doctors.FindByAccountID(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if own == nil {
			return nil, apperr.Forbidden("current user is not a doctor")
		}
		if own.ID != doctorID {
			return nil, apperr.Forbidden("you can only view your own appointments")
		}
	}
	return s.appointments.ListByDoctor(ctx, doctorID)
}

// ListAppointmentsByPatient returns the patient's appointments ordered by
// start. Only admins and the patient themself may list them.
func (s *Service) ListAppointmentsByPatient(ctx context.Context, p auth.Principal, patientID uuid.UUID) ([]*Appointment, error) {
	if !p.IsAdmin() {
		own, err := s.patients.FindByAccountID(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if own == nil {
			return nil, apperr.Forbidden("current user is not a patient")
		}
		if own.ID != patientID {
			return nil, apperr.Forbidden("you can only view your own appointments")
		}
	}
	return s.appointments.ListByPatient(ctx, patientID)
}

// UpdateAppointment reschedules an appointment and sets its status. The
// patient of an appointment never changes.
func (s *Service) UpdateAppointment(ctx context.Context, p auth.Principal, id uuid.UUID, in UpdateAppointmentInput) error {
	if err := s.validator.Validate(ctx, in); err != nil {
		return err
	}

	ok, err := s.authz.CanModify(ctx, id, p)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden("you are not allowed to modify this appointment")
	}

	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return err
	}

	overlapping, err := s.appointments.IsOverlapping(ctx, in.DoctorID, in.Start, in.End, &id)
	if err != nil {
		return err
	}
	if overlapping {
		return apperr.Conflict("the doctor is already booked for this time slot")
	}

	status, err := ParseStatus(in.Status)
	if err != nil {
		return err
	}

	appt.DoctorID = in.DoctorID
	appt.Start = in.Start
	appt.End = in.End
	appt.Status = status
	return s.appointments.Update(ctx, appt)
}

func (s *Service) DeleteAppointment(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	ok, err := s.authz.CanModify(ctx, id, p)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden("you are not allowed to delete this appointment")
	}
	return s.appointments.Delete(ctx, id)
}

// -- Doctor --

type CreateDoctorInput struct {
	FirstName      string `json:"first_name" validate:"required,max=50"`
	LastName       string `json:"last_name" validate:"required,max=50"`
	Specialization string `json:"specialization" validate:"required,min=3,max=50"`
	Email          string `json:"email" validate:"required,email,max=100"`
	Password       string `json:"password" validate:"required"`
}

type UpdateDoctorInput struct {
	FirstName      string `json:"first_name" validate:"required,max=50"`
	LastName       string `json:"last_name" validate:"required,max=50"`
	Specialization string `json:"specialization" validate:"required,min=3,max=50"`
}

// CreateDoctor provisions a Doctor account and the doctor linked to it.
// Both are written in one transaction.
func (s *Service) CreateDoctor(ctx context.Context, p auth.Principal, in CreateDoctorInput) (uuid.UUID, error) {
	if err := requireAdmin(p, "create doctors"); err != nil {
		return uuid.Nil, err
	}
	if err := s.validator.Validate(ctx, in,
		validation.MinLength("password", in.Password, s.accounts.MinPasswordLength())); err != nil {
		return uuid.Nil, err
	}

	inUse, err := s.accounts.EmailInUse(ctx, in.Email)
	if err != nil {
		return uuid.Nil, err
	}
	if inUse {
		return uuid.Nil, apperr.Conflict("user with email %s already exists", account.NormalizeEmail(in.Email))
	}

	doc := &Doctor{FirstName: in.FirstName, LastName: in.LastName, Specialization: in.Specialization}
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		acct, err := s.accounts.Create(ctx, in.Email, in.Password, auth.RoleDoctor)
		if err != nil {
			return err
		}
		doc.AccountID = &acct.ID
		return s.doctors.Create(ctx, doc)
	})
	if err != nil {
		return uuid.Nil, err
	}

	s.logger.Info().Str("doctor_id", doc.ID.String()).Str("actor", p.ID.String()).Msg("doctor created")
	return doc.ID, nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, limit, offset)
}

func (s *Service) ListDoctorsBySpecialization(ctx context.Context, specialization string) ([]*Doctor, error) {
	return s.doctors.ListBySpecialization(ctx, specialization)
}

func (s *Service) UpdateDoctor(ctx context.Context, p auth.Principal, id uuid.UUID, in UpdateDoctorInput) error {
	if err := requireAdmin(p, "update doctors"); err != nil {
		return err
	}
	if err := s.validator.Validate(ctx, in); err != nil {
		return err
	}

	doc, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return err
	}
	doc.FirstName = in.FirstName
	doc.LastName = in.LastName
	doc.Specialization = in.Specialization
	return s.doctors.Update(ctx, doc)
}

// DeleteDoctor removes the doctor's appointments one by one, then the
// linked account, then the doctor. A failed step stops the sequence and
// leaves the doctor in place; appointments deleted before the failure stay
// deleted.
func (s *Service) DeleteDoctor(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	if err := requireAdmin(p, "delete doctors"); err != nil {
		return err
	}

	doc, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return err
	}
	log := s.logger.With().Str("doctor_id", id.String()).Str("actor", p.ID.String()).Logger()

	appts, err := s.appointments.ListByDoctor(ctx, id)
	if err != nil {
		return err
	}
	for i, a := range appts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.appointments.Delete(ctx, a.ID); err != nil {
			log.Error().Err(err).Str("appointment_id", a.ID.String()).
				Int("deleted", i).Int("total", len(appts)).
				Msg("doctor deletion stopped: appointment delete failed")
			return err
		}
	}
	log.Debug().Int("appointments", len(appts)).Msg("doctor appointments deleted")

	if doc.AccountID != nil {
		if err := s.accounts.Delete(ctx, *doc.AccountID); err != nil {
			log.Error().Err(err).Str("account_id", doc.AccountID.String()).
				Msg("doctor deletion stopped: account delete failed")
			return apperr.Wrap(apperr.KindConflict, err, "failed to delete doctor account: %v", err)
		}
	}

	if err := s.doctors.Delete(ctx, id); err != nil {
		return err
	}
	log.Info().Int("appointments", len(appts)).Msg("doctor deleted")
	return nil
}

// -- Patient --

type PatientInput struct {
	FirstName  string `json:"first_name" validate:"required,max=50"`
	LastName   string `json:"last_name" validate:"required,max=50"`
	NationalID string `json:"national_id" validate:"required,len=13,digits"`
}

// CreatePatient adds a patient without a login account.
func (s *Service) CreatePatient(ctx context.Context, p auth.Principal, in PatientInput) (uuid.UUID, error) {
	if err := requireAdmin(p, "create patients"); err != nil {
		return uuid.Nil, err
	}
	if err := s.validator.Validate(ctx, in); err != nil {
		return uuid.Nil, err
	}
	if err := s.ensureNationalIDFree(ctx, in.NationalID, uuid.Nil); err != nil {
		return uuid.Nil, err
	}

	patient := &Patient{FirstName: in.FirstName, LastName: in.LastName, NationalID: in.NationalID}
	if err := s.patients.Create(ctx, patient); err != nil {
		return uuid.Nil, err
	}
	return patient.ID, nil
}

// GetPatient is open to admins, doctors and the patient themself.
func (s *Service) GetPatient(ctx context.Context, p auth.Principal, id uuid.UUID) (*Patient, error) {
	patient, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.HasRole(auth.RoleDoctor) {
		if err := requireOwnPatient(p, patient, "view"); err != nil {
			return nil, err
		}
	}
	return patient, nil
}

func (s *Service) GetPatientByNationalID(ctx context.Context, nationalID string) (*Patient, error) {
	patient, err := s.patients.FindByNationalID(ctx, nationalID)
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return nil, apperr.NotFound("patient with national id %s not found", nationalID)
	}
	return patient, nil
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

func (s *Service) UpdatePatient(ctx context.Context, p auth.Principal, id uuid.UUID, in PatientInput) error {
	if err := s.validator.Validate(ctx, in); err != nil {
		return err
	}
	patient, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := requireOwnPatient(p, patient, "update"); err != nil {
		return err
	}
	if err := s.ensureNationalIDFree(ctx, in.NationalID, id); err != nil {
		return err
	}

	patient.FirstName = in.FirstName
	patient.LastName = in.LastName
	patient.NationalID = in.NationalID
	return s.patients.Update(ctx, patient)
}

// DeletePatient removes the linked account, if any, and the patient in one
// transaction. The store cascades the delete to their appointments.
func (s *Service) DeletePatient(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	patient, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := requireOwnPatient(p, patient, "delete"); err != nil {
		return err
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if patient.AccountID != nil {
			if err := s.accounts.Delete(ctx, *patient.AccountID); err != nil {
				return apperr.Wrap(apperr.KindConflict, err, "failed to delete patient account: %v", err)
			}
		}
		return s.patients.Delete(ctx, id)
	})
}

// requireOwnPatient lets admins through and otherwise requires patient to be
// linked to the caller's account.
func requireOwnPatient(p auth.Principal, patient *Patient, action string) error {
	if p.IsAdmin() {
		return nil
	}
	if patient.AccountID == nil || *patient.AccountID != p.ID {
		return apperr.Forbidden("you can only %s your own patient record", action)
	}
	return nil
}

// ensureNationalIDFree fails with a conflict when another patient than self
// already has nationalID.
func (s *Service) ensureNationalIDFree(ctx context.Context, nationalID string, self uuid.UUID) error {
	other, err := s.patients.FindByNationalID(ctx, nationalID)
	if err != nil {
		return err
	}
	if other != nil && other.ID != self {
		return apperr.Conflict("a patient with national id %s already exists", nationalID)
	}
	return nil
}

// -- Registration --

type RegisterInput struct {
	Email      string `json:"email" validate:"required,email,max=100"`
	Password   string `json:"password" validate:"required"`
	FirstName  string `json:"first_name" validate:"required,max=50"`
	LastName   string `json:"last_name" validate:"required,max=50"`
	NationalID string `json:"national_id" validate:"required,len=13,digits"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Register creates a Patient account and its patient record atomically.
func (s *Service) Register(ctx context.Context, in RegisterInput) (uuid.UUID, error) {
	if err := s.validator.Validate(ctx, in,
		validation.MinLength("password", in.Password, s.accounts.MinPasswordLength())); err != nil {
		return uuid.Nil, err
	}

	inUse, err := s.accounts.EmailInUse(ctx, in.Email)
	if err != nil {
		return uuid.Nil, err
	}
	if inUse {
		return uuid.Nil, apperr.Conflict("user with email %s already exists", account.NormalizeEmail(in.Email))
	}
	if err := s.ensureNationalIDFree(ctx, in.NationalID, uuid.Nil); err != nil {
		return uuid.Nil, err
	}

	patient := &Patient{FirstName: in.FirstName, LastName: in.LastName, NationalID: in.NationalID}
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		acct, err := s.accounts.Create(ctx, in.Email, in.Password, auth.RolePatient)
		if err != nil {
			return err
		}
		patient.AccountID = &acct.ID
		return s.patients.Create(ctx, patient)
	})
	if err != nil {
		return uuid.Nil, err
	}

	s.logger.Info().Str("patient_id", patient.ID.String()).Msg("patient registered")
	return patient.ID, nil
}

// Login returns a bearer token for valid credentials.
func (s *Service) Login(ctx context.Context, in LoginInput) (string, error) {
	if err := s.validator.Validate(ctx, in); err != nil {
		return "", err
	}
	return s.accounts.Authenticate(ctx, in.Email, in.Password)
}
