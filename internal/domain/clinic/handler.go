package clinic

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/domain/account"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/pkg/pagination"
)

// Revoker signs tokens out before they expire.
type Revoker interface {
	Revoke(jti string, expiresAt time.Time)
}

type Handler struct {
	svc     *Service
	revoker Revoker
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// WithRevoker enables POST /auth/logout.
func (h *Handler) WithRevoker(r Revoker) *Handler {
	h.revoker = r
	return h
}

// RegisterRoutes mounts the clinic API on api. Role checks are attached per
// route; unmatched paths answer 404 whatever the caller's role.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Public endpoints; JWTMiddleware skips them by path.
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)

	// Any authenticated caller. Ownership is checked by the service.
	authed := auth.RequireAuthenticated()
	if h.revoker != nil {
		api.POST("/auth/logout", h.Logout, authed)
	}
	api.POST("/appointments", h.CreateAppointment, authed)
	api.GET("/appointments/:id", h.GetAppointment, authed)
	api.GET("/appointments/doctor/:id", h.ListAppointmentsByDoctor, authed)
	api.GET("/appointments/patient/:id", h.ListAppointmentsByPatient, authed)
	api.PUT("/appointments/:id", h.UpdateAppointment, authed)
	api.DELETE("/appointments/:id", h.DeleteAppointment, authed)
	api.GET("/doctors", h.ListDoctors, authed)
	api.GET("/doctors/:id", h.GetDoctor, authed)
	api.GET("/doctors/specialization/:specialization", h.ListDoctorsBySpecialization, authed)
	api.GET("/patients/:id", h.GetPatient, authed)
	api.PUT("/patients/:id", h.UpdatePatient, authed)
	api.DELETE("/patients/:id", h.DeletePatient, authed)

	// Clinical staff. Admin passes every role check.
	staff := auth.RequireRole(auth.RoleDoctor)
	api.GET("/patients", h.ListPatients, staff)
	api.GET("/patients/nid/:code", h.GetPatientByNationalID, staff)

	// Admin only
	admin := auth.RequireRole(auth.RoleAdmin)
	api.POST("/doctors", h.CreateDoctor, admin)
	api.PUT("/doctors/:id", h.UpdateDoctor, admin)
	api.DELETE("/doctors/:id", h.DeleteDoctor, admin)
	api.POST("/patients", h.CreatePatient, admin)
}

type createdResponse struct {
	ID uuid.UUID `json:"id"`
}

func created(c echo.Context, location string, id uuid.UUID) error {
	c.Response().Header().Set(echo.HeaderLocation, location+"/"+id.String())
	return c.JSON(http.StatusCreated, createdResponse{ID: id})
}

func principal(c echo.Context) auth.Principal {
	return auth.PrincipalFromContext(c.Request().Context())
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func bind(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

// -- Auth Handlers --

func (h *Handler) Register(c echo.Context) error {
	var in RegisterInput
	if err := bind(c, &in); err != nil {
		return err
	}
	if _, err := h.svc.Register(c.Request().Context(), in); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Registration successful"})
}

func (h *Handler) Login(c echo.Context) error {
	var in LoginInput
	if err := bind(c, &in); err != nil {
		return err
	}
	token, err := h.svc.Login(c.Request().Context(), in)
	if account.IsInvalidCredentials(err) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"token": token})
}

// Logout revokes the caller's bearer token.
func (h *Handler) Logout(c echo.Context) error {
	p := principal(c)
	if p.TokenID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token has no id")
	}
	h.revoker.Revoke(p.TokenID, p.ExpiresAt)
	return c.NoContent(http.StatusNoContent)
}

// -- Appointment Handlers --

func (h *Handler) CreateAppointment(c echo.Context) error {
	var in CreateAppointmentInput
	if err := bind(c, &in); err != nil {
		return err
	}
	id, err := h.svc.CreateAppointment(c.Request().Context(), principal(c), in)
	if err != nil {
		return err
	}
	return created(c, "/api/appointments", id)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	appt, err := h.svc.GetAppointment(c.Request().Context(), principal(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, appt.ToDTO())
}

func (h *Handler) ListAppointmentsByDoctor(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListAppointmentsByDoctor(c.Request().Context(), principal(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, appointmentDTOs(items))
}

func (h *Handler) ListAppointmentsByPatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListAppointmentsByPatient(c.Request().Context(), principal(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, appointmentDTOs(items))
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in UpdateAppointmentInput
	if err := bind(c, &in); err != nil {
		return err
	}
	if err := h.svc.UpdateAppointment(c.Request().Context(), principal(c), id, in); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteAppointment(c.Request().Context(), principal(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Doctor Handlers --

func (h *Handler) CreateDoctor(c echo.Context) error {
	var in CreateDoctorInput
	if err := bind(c, &in); err != nil {
		return err
	}
	id, err := h.svc.CreateDoctor(c.Request().Context(), principal(c), in)
	if err != nil {
		return err
	}
	return created(c, "/api/doctors", id)
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	doc, err := h.svc.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc.ToDTO())
}

func (h *Handler) ListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDoctors(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return pg.Respond(c, http.StatusOK, doctorDTOs(items), total)
}

func (h *Handler) ListDoctorsBySpecialization(c echo.Context) error {
	items, err := h.svc.ListDoctorsBySpecialization(c.Request().Context(), c.Param("specialization"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doctorDTOs(items))
}

func (h *Handler) UpdateDoctor(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in UpdateDoctorInput
	if err := bind(c, &in); err != nil {
		return err
	}
	if err := h.svc.UpdateDoctor(c.Request().Context(), principal(c), id, in); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeleteDoctor(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteDoctor(c.Request().Context(), principal(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Patient Handlers --

func (h *Handler) CreatePatient(c echo.Context) error {
	var in PatientInput
	if err := bind(c, &in); err != nil {
		return err
	}
	id, err := h.svc.CreatePatient(c.Request().Context(), principal(c), in)
	if err != nil {
		return err
	}
	return created(c, "/api/patients", id)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	patient, err := h.svc.GetPatient(c.Request().Context(), principal(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, patient.ToDTO())
}

func (h *Handler) GetPatientByNationalID(c echo.Context) error {
	patient, err := h.svc.GetPatientByNationalID(c.Request().Context(), c.Param("code"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, patient.ToDTO())
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPatients(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return pg.Respond(c, http.StatusOK, patientDTOs(items), total)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in PatientInput
	if err := bind(c, &in); err != nil {
		return err
	}
	if err := h.svc.UpdatePatient(c.Request().Context(), principal(c), id, in); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeletePatient(c.Request().Context(), principal(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
