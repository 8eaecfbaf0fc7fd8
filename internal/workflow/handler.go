package workflow

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/domain/encounter"
	"github.com/clinicore/clinicore/internal/domain/ledger"
	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/internal/platform/clinicerr"
)

// Handler exposes the orchestrated flows. Plain reads and list endpoints live
// with their own domains; everything registered here mutates state and fans
// events out.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/appointments", h.BookAppointment, auth.RequireRole(auth.RolePatient))
	api.POST("/consultations", h.CompleteConsultation, auth.RequireRole(auth.RoleDoctor))
	api.POST("/consultations/:id/invoice", h.InvoiceConsultation, auth.RequireRole(auth.RoleDoctor, auth.RoleAccountant, auth.RoleReceptionist))

	api.POST("/referrals", h.CreateReferral, auth.RequireRole(auth.RoleDoctor))
	api.PATCH("/referrals/:id/accept", h.AcceptReferral, auth.RequireRole(auth.RoleDoctor))
	api.PATCH("/referrals/:id/reject", h.RejectReferral, auth.RequireRole(auth.RoleDoctor))

	api.POST("/wallet/topup", h.TopUp)
	api.POST("/invoices/:id/pay", h.PayInvoice)
}

func actor(c echo.Context) (auth.Actor, error) {
	a, ok := auth.ActorFromContext(c.Request().Context())
	if !ok {
		return auth.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "no authenticated actor")
	}
	return a, nil
}

func (h *Handler) BookAppointment(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var params encounter.BookAppointmentParams
	if err := c.Bind(&params); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	appt, err := h.svc.BookAppointment(c.Request().Context(), a, params)
	if err != nil {
		return echo.NewHTTPError(clinicerr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, appt)
}

func (h *Handler) CompleteConsultation(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var params encounter.CreateConsultationParams
	if err := c.Bind(&params); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	consult, err := h.svc.CompleteConsultation(c.Request().Context(), a, params)
	if err != nil {
		return echo.NewHTTPError(clinicerr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, consult)
}

func (h *Handler) InvoiceConsultation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	inv, err := h.svc.InvoiceConsultation(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(clinicerr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, inv)
}

func (h *Handler) CreateReferral(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var params encounter.CreateReferralParams
	if err := c.Bind(&params); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ref, err := h.svc.CreateReferral(c.Request().Context(), a, params)
	if err != nil {
		return echo.NewHTTPError(clinicerr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, ref)
}

func (h *Handler) AcceptReferral(c echo.Context) error {
	return h.referralTransition(c, h.svc.AcceptReferral)
}

func (h *Handler) RejectReferral(c echo.Context) error {
	return h.referralTransition(c, h.svc.RejectReferral)
}

func (h *Handler) referralTransition(c echo.Context, fn func(context.Context, auth.Actor, uuid.UUID) (*encounter.Referral, error)) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ref, err := fn(c.Request().Context(), a, id)
	if err != nil {
		return echo.NewHTTPError(clinicerr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, ref)
}

func (h *Handler) TopUp(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var params ledger.TopUpParams
	if err := c.Bind(&params); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	txn, err := h.svc.TopUp(c.Request().Context(), a, params)
	if err != nil {
		return echo.NewHTTPError(clinicerr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, txn)
}

func (h *Handler) PayInvoice(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var params ledger.PayInvoiceParams
	if err := c.Bind(&params); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	params.InvoiceID = id
	txn, err := h.svc.PayInvoice(c.Request().Context(), a, params)
	if err != nil {
		return echo.NewHTTPError(clinicerr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, txn)
}
