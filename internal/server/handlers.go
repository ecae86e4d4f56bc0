// Package server provides HTTP handlers and server setup for the cost API.
package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"costwatch/internal/core"
	"costwatch/internal/costs"
)

// Handler holds the HTTP handlers
type Handler struct {
	service *costs.Service
}

// NewHandler creates a new handler backed by the cost service
func NewHandler(service *costs.Service) *Handler {
	return &Handler{service: service}
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// ListProviders handles GET /v1/providers
func (h *Handler) ListProviders(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"providers": h.service.Providers(),
	})
}

// ListWorkspaces handles GET /v1/providers/:id/workspaces
func (h *Handler) ListWorkspaces(c echo.Context) error {
	workspaces, err := h.service.ListWorkspaces(c.Request().Context(), c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"workspaces": workspaces,
	})
}

// ListProjects handles GET /v1/providers/:id/projects
func (h *Handler) ListProjects(c echo.Context) error {
	projects, err := h.service.ListProjects(c.Request().Context(),
		c.Param("id"), c.QueryParam("workspace_id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"projects": projects,
	})
}

// GetCosts handles GET /v1/costs
func (h *Handler) GetCosts(c echo.Context) error {
	query := core.CostQuery{
		Provider:    c.QueryParam("provider"),
		WorkspaceID: c.QueryParam("workspace_id"),
		ProjectID:   c.QueryParam("project_id"),
	}

	var err error
	if query.Start, err = parseDate(c.QueryParam("start")); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid start date, expected YYYY-MM-DD", err))
	}
	if query.End, err = parseDate(c.QueryParam("end")); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid end date, expected YYYY-MM-DD", err))
	}

	result, cached, err := h.service.ComputeCosts(c.Request().Context(), query)
	if err != nil {
		return handleError(c, err)
	}

	if cached {
		c.Response().Header().Set("X-Cache", "HIT")
	} else {
		c.Response().Header().Set("X-Cache", "MISS")
	}
	return c.JSON(http.StatusOK, result)
}

// ListReports handles GET /v1/reports
func (h *Handler) ListReports(c echo.Context) error {
	limit := int64(0)
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 {
			return handleError(c, core.NewInvalidRequestError("invalid limit", err))
		}
		limit = parsed
	}

	records, err := h.service.RecentReports(c.Request().Context(), c.QueryParam("provider"), limit)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"reports": records,
	})
}

// ClearCache handles DELETE /v1/cache
func (h *Handler) ClearCache(c echo.Context) error {
	if err := h.service.ClearCache(c.Request().Context()); err != nil {
		return handleError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// parseDate parses a calendar-date query parameter; empty means unset.
func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(core.DateLayout, raw)
}

// handleError converts upstream errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	var upstreamErr *core.UpstreamError
	if errors.As(err, &upstreamErr) {
		return c.JSON(upstreamErr.HTTPStatusCode(), upstreamErr.ToJSON())
	}

	// Fallback for unexpected errors
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]interface{}{
			"type":    "internal_error",
			"message": "an unexpected error occurred",
		},
	})
}
