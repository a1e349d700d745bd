package results

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/lablog/lablog/internal/platform/auth"
	"github.com/lablog/lablog/pkg/pagination"
)

// OCRClient turns an uploaded report file into plain text.
type OCRClient interface {
	ParseFile(ctx context.Context, filename string, file io.Reader) (string, error)
}

type Handler struct {
	svc *Service
	ocr OCRClient
}

func NewHandler(svc *Service, ocr OCRClient) *Handler {
	return &Handler{svc: svc, ocr: ocr}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/ocr", h.OCR)
	api.POST("/extract", h.Extract)
	api.POST("/reports", h.CreateReport)
	api.GET("/reports", h.ListReports)
	api.DELETE("/reports/:id", h.DeleteReport)
	api.GET("/results", h.ListResults)
	api.DELETE("/results", h.ClearResults)
	api.GET("/dashboard", h.Dashboard)
	api.GET("/dashboard/:category", h.Category)
}

func userID(c echo.Context) (string, error) {
	uid := auth.UserIDFromContext(c.Request().Context())
	if uid == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "no authenticated user")
	}
	return uid, nil
}

// OCR accepts an uploaded report file and returns its extracted text.
func (h *Handler) OCR(c echo.Context) error {
	if _, err := userID(c); err != nil {
		return err
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot open uploaded file")
	}
	defer file.Close()

	text, err := h.ocr.ParseFile(c.Request().Context(), fileHeader.Filename, file)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"text": text})
}

type extractRequest struct {
	Text string `json:"text"`
}

// Extract runs report text through the model and returns normalized rows
// for review. A reply the normalizer cannot use comes back as 422 with
// the raw model text for diagnostics.
func (h *Handler) Extract(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req extractRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	extraction, err := h.svc.Extract(c.Request().Context(), uid, req.Text)
	if err != nil {
		var exErr *ExtractionError
		if errors.As(err, &exErr) {
			return c.JSON(http.StatusUnprocessableEntity, map[string]string{
				"error":    exErr.Error(),
				"raw_text": exErr.RawText,
			})
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, extraction)
}

func (h *Handler) CreateReport(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var extraction Extraction
	if err := c.Bind(&extraction); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	report, err := h.svc.SaveReport(c.Request().Context(), uid, &extraction)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, report)
}

func (h *Handler) ListReports(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	reports, total, err := h.svc.ListReportsPaged(c.Request().Context(), uid, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(reports, total, pg.Limit, pg.Offset))
}

func (h *Handler) DeleteReport(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteReport(c.Request().Context(), uid, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "report not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// ListResults returns the user's flattened result rows.
func (h *Handler) ListResults(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	rows, err := h.svc.Rows(c.Request().Context(), uid)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if rows == nil {
		rows = []LabResult{}
	}
	return c.JSON(http.StatusOK, map[string]any{"results": rows, "total": len(rows)})
}

func (h *Handler) ClearResults(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	deleted, err := h.svc.ClearResults(c.Request().Context(), uid)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int64{"deleted_reports": deleted})
}

func (h *Handler) Dashboard(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	ov, err := h.svc.Dashboard(c.Request().Context(), uid)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, ov)
}

func (h *Handler) Category(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	view, err := h.svc.Category(c.Request().Context(), uid, c.Param("category"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if view == nil {
		return echo.NewHTTPError(http.StatusNotFound, "category not found")
	}
	return c.JSON(http.StatusOK, view)
}
