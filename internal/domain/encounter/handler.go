package encounter

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/internal/platform/clinicerr"
	"github.com/clinicore/clinicore/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/appointments/:id", h.GetAppointment)
	api.GET("/appointments", h.ListAppointments)
	api.PATCH("/appointments/:id/confirm", h.ConfirmAppointment, auth.RequireRole(auth.RoleDoctor))
	api.PATCH("/appointments/:id/cancel", h.CancelAppointment, auth.RequireRole(auth.RoleDoctor, auth.RolePatient))
	api.PATCH("/appointments/:id/meeting-link", h.SetMeetingLink, auth.RequireRole(auth.RoleDoctor))
	api.PATCH("/appointments/:id/notes", h.UpdateNotes, auth.RequireRole(auth.RoleDoctor, auth.RolePatient))

	api.GET("/consultations/:id", h.GetConsultation)
	api.GET("/appointments/:id/consultation", h.GetConsultationByAppointment)
	api.GET("/patients/:id/consultations", h.ListConsultationsByPatient, auth.RequireStaff())

	api.POST("/prescriptions", h.CreatePrescription, auth.RequireRole(auth.RoleDoctor))
	api.GET("/patients/:id/prescriptions", h.ListPrescriptionsByPatient)

	api.POST("/lab-results", h.CreateLabResult, auth.RequireRole(auth.RoleDoctor, auth.RoleLabTech))
	api.GET("/patients/:id/lab-results", h.ListLabResultsByPatient)

	api.GET("/referrals/:id", h.GetReferral, auth.RequireRole(auth.RoleDoctor))
	api.GET("/referrals", h.ListReferrals, auth.RequireRole(auth.RoleDoctor))
}

func actor(c echo.Context) (auth.Actor, error) {
	a, ok := auth.ActorFromContext(c.Request().Context())
	if !ok {
		return auth.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "no authenticated actor")
	}
	return a, nil
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	appt, err := h.svc.GetAppointment(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(clinicerr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()

	if doctorID := c.QueryParam("doctor_id"); doctorID != "" {
		did, err := uuid.Parse(doctorID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
		}
		appts, total, err := h.svc.ListAppointmentsByDoctor(ctx, did, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(appts, total, pg))
	}

	patientID := c.QueryParam("patient_id")
	if patientID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "doctor_id or patient_id is required")
	}
	pid, err := uuid.Parse(patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	appts, total, err := h.svc.ListAppointmentsByPatient(ctx, pid, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(appts, total, pg))
}

func (h *Handler) ConfirmAppointment(c echo.Context) error {
	return h.transition(c, h.svc.ConfirmAppointment)
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	return h.transition(c, h.svc.CancelAppointment)
}

func (h *Handler) transition(c echo.Context, fn func(context.Context, auth.Actor, uuid.UUID) (*Appointment, error)) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	appt, err := fn(c.Request().Context(), a, id)
	if err != nil {
		return echo.NewHTTPError(clinicerr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) SetMeetingLink(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		MeetingLink string `json:"meeting_link"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	appt, err := h.svc.SetMeetingLink(c.Request().Context(), a, id, body.MeetingLink)
	if err != nil {
		return echo.NewHTTPError(clinicerr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) UpdateNotes(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Notes string `json:"notes"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	appt, err := h.svc.UpdateNotes(c.Request().Context(), a, id, body.Notes)
	if err != nil {
		return echo.NewHTTPError(clinicerr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) GetConsultation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	consult, err := h.svc.GetConsultation(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(clinicerr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, consult)
}

func (h *Handler) GetConsultationByAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	consult, err := h.svc.GetConsultationByAppointment(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(clinicerr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, consult)
}

func (h *Handler) ListConsultationsByPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	consults, total, err := h.svc.ListConsultationsByPatient(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(consults, total, pg))
}

func (h *Handler) CreatePrescription(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var params CreatePrescriptionParams
	if err := c.Bind(&params); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	script, err := h.svc.CreatePrescription(c.Request().Context(), a, params)
	if err != nil {
		return echo.NewHTTPError(clinicerr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, script)
}

func (h *Handler) ListPrescriptionsByPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	scripts, total, err := h.svc.ListPrescriptionsByPatient(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(scripts, total, pg))
}

func (h *Handler) CreateLabResult(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var params CreateLabResultParams
	if err := c.Bind(&params); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	lr, err := h.svc.CreateLabResult(c.Request().Context(), a, params)
	if err != nil {
		return echo.NewHTTPError(clinicerr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, lr)
}

func (h *Handler) ListLabResultsByPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	results, total, err := h.svc.ListLabResultsByPatient(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(results, total, pg))
}

func (h *Handler) GetReferral(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ref, err := h.svc.GetReferral(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(clinicerr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, ref)
}

func (h *Handler) ListReferrals(c echo.Context) error {
	doctorID, err := uuid.Parse(c.QueryParam("to_doctor_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid to_doctor_id")
	}
	pg := pagination.FromContext(c)
	refs, total, err := h.svc.ListReferralsToDoctor(c.Request().Context(), doctorID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(refs, total, pg))
}
