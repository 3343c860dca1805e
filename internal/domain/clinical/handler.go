package clinical

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
	rx := api.Group("/prescriptions", auth.RequireAuth())
	rx.POST("", h.CreatePrescription, auth.RequireRole(auth.RoleDoctor))
	rx.GET("/:id", h.GetPrescription)
	rx.GET("/:id/download", h.DownloadPrescription)
	rx.POST("/reports", h.CreateReport, auth.RequireRole(auth.RoleDoctor, auth.RoleAdmin))
	rx.GET("/reports/:id", h.GetReport)
	rx.GET("/reports/:id/download", h.DownloadReport)

	api.GET("/patients/:id/prescriptions", h.ListPrescriptions, auth.RequireAuth())
	api.GET("/patients/:id/reports", h.ListReports, auth.RequireAuth())
}

type fileResponse struct {
	Success bool   `json:"success"`
	FileURL string `json:"fileUrl"`
}

// -- Prescription Handlers --

func (h *Handler) CreatePrescription(c echo.Context) error {
	var in PrescriptionInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return apperr.HTTP(errMissingFields)
	}
	rx, err := h.svc.CreatePrescription(c.Request().Context(), auth.PrincipalOf(c), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, struct {
		Success      bool          `json:"success"`
		Prescription *Prescription `json:"prescription"`
	}{true, rx})
}

func (h *Handler) GetPrescription(c echo.Context) error {
	rx, err := h.svc.GetPrescription(c.Request().Context(), auth.PrincipalOf(c), c.Param("id"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, rx)
}

func (h *Handler) DownloadPrescription(c echo.Context) error {
	url, err := h.svc.PrescriptionFile(c.Request().Context(), auth.PrincipalOf(c), c.Param("id"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, fileResponse{Success: true, FileURL: url})
}

func (h *Handler) ListPrescriptions(c echo.Context) error {
	items, err := h.svc.ListPrescriptions(c.Request().Context(), auth.PrincipalOf(c), c.Param("id"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

// -- Report Handlers --

func (h *Handler) CreateReport(c echo.Context) error {
	var in ReportInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return apperr.HTTP(errMissingFields)
	}
	r, err := h.svc.CreateReport(c.Request().Context(), auth.PrincipalOf(c), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, struct {
		Success bool    `json:"success"`
		Report  *Report `json:"report"`
	}{true, r})
}

func (h *Handler) GetReport(c echo.Context) error {
	r, err := h.svc.GetReport(c.Request().Context(), auth.PrincipalOf(c), c.Param("id"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) DownloadReport(c echo.Context) error {
	url, err := h.svc.ReportFile(c.Request().Context(), auth.PrincipalOf(c), c.Param("id"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, fileResponse{Success: true, FileURL: url})
}

func (h *Handler) ListReports(c echo.Context) error {
	items, err := h.svc.ListReports(c.Request().Context(), auth.PrincipalOf(c), c.Param("id"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}
