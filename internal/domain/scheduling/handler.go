package scheduling

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/healup/healup/internal/platform/auth"
	"github.com/healup/healup/pkg/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	appts := api.Group("/appointments")
	appts.GET("", h.ListAll, auth.RequireRole(auth.RoleAdmin))
	appts.GET("/me", h.ListMine, auth.RequireAuth())
	appts.GET("/patient/:id", h.ListByPatient, auth.RequireAuth())
	appts.GET("/doctor/:id", h.ListByDoctor, auth.RequireAuth())
	appts.GET("/:id", h.Get, auth.RequireAuth())
	// Book validates the body before authentication, so it has no guard here.
	appts.POST("", h.Book)
	appts.PUT("/:id/cancel", h.Cancel, auth.RequireAuth())
	appts.PUT("/:id/complete", h.Complete, auth.RequireRole(auth.RoleDoctor, auth.RoleAdmin))

	api.GET("/doctors/:id/availability", h.GetAvailability)
	api.POST("/doctors/:id/availability", h.SetAvailability, auth.RequireRole(auth.RoleDoctor))
	api.GET("/doctors/:id/slots", h.Slots)
}

type successResponse struct {
	Success bool `json:"success"`
}

// -- Appointment Handlers --

func (h *Handler) ListAll(c echo.Context) error {
	items, err := h.svc.ListAll(c.Request().Context(), auth.PrincipalOf(c))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListMine(c echo.Context) error {
	items, err := h.svc.ListMine(c.Request().Context(), auth.PrincipalOf(c))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	items, err := h.svc.ListByPatient(c.Request().Context(), auth.PrincipalOf(c), c.Param("id"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListByDoctor(c echo.Context) error {
	items, err := h.svc.ListByDoctor(c.Request().Context(), auth.PrincipalOf(c), c.Param("id"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Get(c echo.Context) error {
	a, err := h.svc.Get(c.Request().Context(), auth.PrincipalOf(c), c.Param("id"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Book(c echo.Context) error {
	var in BookInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing fields")
	}
	a, err := h.svc.Book(c.Request().Context(), auth.PrincipalOf(c), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, struct {
		Success     bool         `json:"success"`
		Appointment *Appointment `json:"appointment"`
	}{true, a})
}

func (h *Handler) Cancel(c echo.Context) error {
	if err := h.svc.Cancel(c.Request().Context(), auth.PrincipalOf(c), c.Param("id")); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

func (h *Handler) Complete(c echo.Context) error {
	if err := h.svc.Complete(c.Request().Context(), auth.PrincipalOf(c), c.Param("id")); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

// -- Availability Handlers --

func (h *Handler) GetAvailability(c echo.Context) error {
	items, err := h.svc.GetAvailability(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

type availabilityRequest struct {
	Date  string   `json:"date"`
	Slots []string `json:"slots"`
}

func (h *Handler) SetAvailability(c echo.Context) error {
	var req availabilityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if _, err := h.svc.SetAvailability(c.Request().Context(), auth.PrincipalOf(c), c.Param("id"), req.Date, req.Slots); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

func (h *Handler) Slots(c echo.Context) error {
	slots, err := h.svc.Slots(c.Request().Context(), c.Param("id"), c.QueryParam("date"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, slots)
}
