package clinic

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/apperr"
)

// Doctor maps to the doctor table.
type Doctor struct {
	ID             uuid.UUID  `db:"id"`
	FirstName      string     `db:"first_name"`
	LastName       string     `db:"last_name"`
	Specialization string     `db:"specialization"`
	AccountID      *uuid.UUID `db:"account_id"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

func (d *Doctor) FullName() string { return d.FirstName + " " + d.LastName }

// Patient maps to the patient table. NationalID is the 13-digit personal
// numeric code and is unique across patients.
type Patient struct {
	ID         uuid.UUID  `db:"id"`
	FirstName  string     `db:"first_name"`
	LastName   string     `db:"last_name"`
	NationalID string     `db:"national_id"`
	AccountID  *uuid.UUID `db:"account_id"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

func (p *Patient) FullName() string { return p.FirstName + " " + p.LastName }

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled Status = "Scheduled"
	StatusCompleted Status = "Completed"
	StatusCanceled  Status = "Canceled"
)

var validStatuses = []Status{StatusScheduled, StatusCompleted, StatusCanceled}

// ParseStatus matches s case-insensitively against the known statuses.
func ParseStatus(s string) (Status, error) {
	for _, st := range validStatuses {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	names := make([]string, len(validStatuses))
	for i, st := range validStatuses {
		names[i] = string(st)
	}
	return "", apperr.InvalidArgument("invalid status %q, valid values are: %s", s, strings.Join(names, ", "))
}

// Appointment maps to the appointment table. DoctorName and PatientName are
// filled on reads from the joined rows.
type Appointment struct {
	ID          uuid.UUID `db:"id"`
	DoctorID    uuid.UUID `db:"doctor_id"`
	PatientID   uuid.UUID `db:"patient_id"`
	Start       time.Time `db:"start_time"`
	End         time.Time `db:"end_time"`
	Status      Status    `db:"status"`
	DoctorName  string    `db:"-"`
	PatientName string    `db:"-"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Overlaps reports whether a [start,end) interval intersects the
// appointment's. Canceled appointments never overlap anything.
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.Status != StatusCanceled && a.Start.Before(end) && a.End.After(start)
}

// -- Response bodies --

type DoctorDTO struct {
	ID             uuid.UUID `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Specialization string    `json:"specialization"`
}

func (d *Doctor) ToDTO() DoctorDTO {
	return DoctorDTO{ID: d.ID, FirstName: d.FirstName, LastName: d.LastName, Specialization: d.Specialization}
}

type PatientDTO struct {
	ID         uuid.UUID `json:"id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	NationalID string    `json:"national_id"`
}

func (p *Patient) ToDTO() PatientDTO {
	return PatientDTO{ID: p.ID, FirstName: p.FirstName, LastName: p.LastName, NationalID: p.NationalID}
}

type AppointmentDTO struct {
	ID          uuid.UUID `json:"id"`
	DoctorID    uuid.UUID `json:"doctor_id"`
	DoctorName  string    `json:"doctor_name"`
	PatientID   uuid.UUID `json:"patient_id"`
	PatientName string    `json:"patient_name"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Status      Status    `json:"status"`
}

func (a *Appointment) ToDTO() AppointmentDTO {
	return AppointmentDTO{
		ID:          a.ID,
		DoctorID:    a.DoctorID,
		DoctorName:  a.DoctorName,
		PatientID:   a.PatientID,
		PatientName: a.PatientName,
		Start:       a.Start,
		End:         a.End,
		Status:      a.Status,
	}
}

func doctorDTOs(ds []*Doctor) []DoctorDTO {
	out := make([]DoctorDTO, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.ToDTO())
	}
	return out
}

func patientDTOs(ps []*Patient) []PatientDTO {
	out := make([]PatientDTO, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ToDTO())
	}
	return out
}

func appointmentDTOs(as []*Appointment) []AppointmentDTO {
	out := make([]AppointmentDTO, 0, len(as))
	for _, a := range as {
		out = append(out, a.ToDTO())
	}
	return out
}
