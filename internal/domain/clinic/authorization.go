package clinic

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/auth"
)

// Authorizer decides whether a principal may act on an appointment.
type Authorizer struct {
	appointments AppointmentRepository
	patients     PatientRepository
	doctors      DoctorRepository
}

func NewAuthorizer(appts AppointmentRepository, patients PatientRepository, doctors DoctorRepository) *Authorizer {
	return &Authorizer{appointments: appts, patients: patients, doctors: doctors}
}

// CanModify grants admins, the appointment's patient and its doctor. It
// returns the repository's not-found error when the appointment is absent
// and false, nil for any other principal.
func (a *Authorizer) CanModify(ctx context.Context, appointmentID uuid.UUID, p auth.Principal) (bool, error) {
	appt, err := a.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return false, err
	}
	if p.IsAdmin() {
		return true, nil
	}

	patient, err := a.patients.FindByAccountID(ctx, p.ID)
	if err != nil {
		return false, err
	}
	if patient != nil && patient.ID == appt.PatientID {
		return true, nil
	}

	doctor, err := a.doctors.FindByAccountID(ctx, p.ID)
	if err != nil {
		return false, err
	}
	if doctor != nil && doctor.ID == appt.DoctorID {
		return true, nil
	}
	return false, nil
}

// CanView applies the same rule as CanModify.
func (a *Authorizer) CanView(ctx context.Context, appointmentID uuid.UUID, p auth.Principal) (bool, error) {
	return a.CanModify(ctx, appointmentID, p)
}
