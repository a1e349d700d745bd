package schedule

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lablog/lablog/internal/domain/results"
	"github.com/lablog/lablog/internal/platform/auth"
)

// RowSource supplies a user's flattened result rows for trigger runs.
type RowSource interface {
	Rows(ctx context.Context, userID string) ([]results.LabResult, error)
}

type Handler struct {
	svc  *Service
	rows RowSource
}

func NewHandler(svc *Service, rows RowSource) *Handler {
	return &Handler{svc: svc, rows: rows}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/schedule", h.List)
	api.POST("/schedule", h.Add)
	api.POST("/schedule/sync", h.Sync)
	api.POST("/schedule/:name/toggle", h.Toggle)
	api.DELETE("/schedule/:name", h.Remove)
}

func userID(c echo.Context) (string, error) {
	uid := auth.UserIDFromContext(c.Request().Context())
	if uid == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "no authenticated user")
	}
	return uid, nil
}

func scheduleJSON(c echo.Context, code int, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	return c.JSON(code, map[string]any{"schedule": items})
}

func (h *Handler) List(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.List(c.Request().Context(), uid)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return scheduleJSON(c, http.StatusOK, items)
}

type addRequest struct {
	TestName string  `json:"test_name"`
	Category string  `json:"category"`
	Doctor   *string `json:"doctor"`
}

func (h *Handler) Add(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req addRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	items, err := h.svc.AddManual(c.Request().Context(), uid, req.TestName, req.Category, req.Doctor)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return scheduleJSON(c, http.StatusCreated, items)
}

// Sync re-runs the follow-up triggers over the user's current results.
func (h *Handler) Sync(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	rows, err := h.rows.Rows(c.Request().Context(), uid)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	items, err := h.svc.Sync(c.Request().Context(), uid, rows)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return scheduleJSON(c, http.StatusOK, items)
}

func (h *Handler) Toggle(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	items, found, err := h.svc.Toggle(c.Request().Context(), uid, c.Param("name"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "schedule entry not found")
	}
	return scheduleJSON(c, http.StatusOK, items)
}

func (h *Handler) Remove(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	items, found, err := h.svc.Remove(c.Request().Context(), uid, c.Param("name"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "schedule entry not found")
	}
	return scheduleJSON(c, http.StatusOK, items)
}
