package identity

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

// RegisterRoutes mounts account, doctor directory and patient routes.
// credentialMW wraps signup and login only.
func (h *Handler) RegisterRoutes(api *echo.Group, credentialMW ...echo.MiddlewareFunc) {
	authGroup := api.Group("/auth")
	authGroup.POST("/signup", h.Signup, credentialMW...)
	authGroup.POST("/login", h.Login, credentialMW...)
	authGroup.GET("/me", h.Me, auth.RequireAuth())

	api.GET("/doctors", h.ListDoctors)
	api.GET("/doctors/me", h.GetMyDoctorProfile, auth.RequireRole(auth.RoleDoctor))
	api.PUT("/doctors/me", h.UpdateMyDoctorProfile, auth.RequireRole(auth.RoleDoctor))
	api.GET("/doctors/:id", h.GetDoctor)

	api.GET("/patients", h.ListPatients, auth.RequireRole(auth.RoleDoctor, auth.RoleAdmin))
	api.GET("/patients/:id", h.GetPatient, auth.RequireAuth())
	api.PUT("/patients/:id", h.UpdatePatient, auth.RequireAuth())
}

type sessionResponse struct {
	Success bool        `json:"success"`
	User    UserSummary `json:"user"`
	Token   string      `json:"token"`
}

// -- Account Handlers --

func (h *Handler) Signup(c echo.Context) error {
	var in SignupInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing fields")
	}
	sess, err := h.svc.Signup(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, sessionResponse{Success: true, User: sess.User, Token: sess.Token})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing email or password")
	}
	sess, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, sessionResponse{Success: true, User: sess.User, Token: sess.Token})
}

func (h *Handler) Me(c echo.Context) error {
	me, err := h.svc.Me(c.Request().Context(), auth.PrincipalOf(c))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, struct {
		Success        bool            `json:"success"`
		User           UserSummary     `json:"user"`
		DoctorProfile  *DoctorProfile  `json:"doctorProfile,omitempty"`
		PatientProfile *PatientProfile `json:"patientProfile,omitempty"`
	}{true, me.User, me.DoctorProfile, me.PatientProfile})
}

// -- Doctor Handlers --

func (h *Handler) ListDoctors(c echo.Context) error {
	items, err := h.svc.ListDoctors(c.Request().Context(), DoctorFilter{
		Specialty: c.QueryParam("specialty"),
		Query:     c.QueryParam("q"),
	})
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetDoctor(c echo.Context) error {
	d, err := h.svc.GetDoctor(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) GetMyDoctorProfile(c echo.Context) error {
	d, err := h.svc.MyDoctorProfile(c.Request().Context(), auth.PrincipalOf(c))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) UpdateMyDoctorProfile(c echo.Context) error {
	var upd DoctorUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	d, err := h.svc.UpdateMyDoctorProfile(c.Request().Context(), auth.PrincipalOf(c), upd)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "doctor": d})
}

// -- Patient Handlers --

func (h *Handler) ListPatients(c echo.Context) error {
	items, err := h.svc.ListPatients(c.Request().Context(), auth.PrincipalOf(c))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, err := h.svc.GetPatient(c.Request().Context(), auth.PrincipalOf(c), c.Param("id"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	var upd PatientUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	p, err := h.svc.UpdatePatient(c.Request().Context(), auth.PrincipalOf(c), c.Param("id"), upd)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "patient": p})
}
