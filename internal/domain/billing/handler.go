package billing

import (
	"fmt"
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
	g := api.Group("/payments", auth.RequireAuth())
	g.POST("/create-order", h.CreateOrder)
	g.POST("/confirm", h.Confirm)
	g.GET("/:id", h.Get)
}

func (h *Handler) CreateOrder(c echo.Context) error {
	var in OrderInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return apperr.HTTP(errMissingOrder)
	}
	order, err := h.svc.OpenOrder(c.Request().Context(), auth.PrincipalOf(c), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, struct {
		Success bool    `json:"success"`
		OrderID string  `json:"orderId"`
		Amount  float64 `json:"amount"`
		Message string  `json:"message"`
	}{true, order.OrderID, order.Amount, "Payment order created (mock)"})
}

func (h *Handler) Confirm(c echo.Context) error {
	var in ConfirmInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return apperr.HTTP(errInvalidConfirm)
	}
	pay, err := h.svc.Confirm(c.Request().Context(), auth.PrincipalOf(c), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}{true, fmt.Sprintf("Payment marked as %s", pay.Status)})
}

func (h *Handler) Get(c echo.Context) error {
	pay, err := h.svc.Get(c.Request().Context(), auth.PrincipalOf(c), c.Param("id"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pay)
}
