package handlers

import (
	"regexp"

	"github.com/gofiber/fiber/v2"

	"github.com/driftwatch/driftwatch/internal/models"
)

// Series names allow dots so hierarchical names like cpu.host-a work
var seriesNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// CreateSeries creates a new series in a dataset
// POST /v1/datasets/:dataset/series
func (h *Handler) CreateSeries(c *fiber.Ctx) error {
	dataset := c.Params("dataset")
	if dataset == "" {
		return badRequest(c, "INVALID_REQUEST", "Dataset name is required")
	}

	var req models.CreateSeriesRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "INVALID_REQUEST", "Invalid request body: "+err.Error())
	}

	if !seriesNameRegex.MatchString(req.Name) {
		return badRequest(c, "INVALID_NAME",
			"Series name must contain only alphanumeric characters, dots, underscores, and hyphens")
	}
	if len(req.Name) > 128 {
		return badRequest(c, "INVALID_NAME", "Series name must not exceed 128 characters")
	}
	if req.Direction != "" && req.Direction != "falling" && req.Direction != "rising" {
		return badRequest(c, "INVALID_DIRECTION", "Direction must be 'falling' or 'rising'")
	}
	if req.BaselineWindow < 0 || req.BaselineWindow == 1 {
		return badRequest(c, "INVALID_BASELINE_WINDOW", "Baseline window must be at least 2")
	}

	resp, err := h.seriesService.CreateSeries(c.Context(), dataset, &req)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// ListSeries lists all series of a dataset
// GET /v1/datasets/:dataset/series
func (h *Handler) ListSeries(c *fiber.Ctx) error {
	dataset := c.Params("dataset")
	if dataset == "" {
		return badRequest(c, "INVALID_REQUEST", "Dataset name is required")
	}

	resp, err := h.seriesService.ListSeries(c.Context(), dataset)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(resp)
}

// GetSeries gets series metadata
// GET /v1/datasets/:dataset/series/:series
func (h *Handler) GetSeries(c *fiber.Ctx) error {
	dataset := c.Params("dataset")
	series := c.Params("series")
	if dataset == "" || series == "" {
		return badRequest(c, "INVALID_REQUEST", "Dataset and series names are required")
	}

	resp, err := h.seriesService.GetSeries(c.Context(), dataset, series)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(resp)
}

// DeleteSeries deletes a series and its observations
// DELETE /v1/datasets/:dataset/series/:series
func (h *Handler) DeleteSeries(c *fiber.Ctx) error {
	dataset := c.Params("dataset")
	series := c.Params("series")
	if dataset == "" || series == "" {
		return badRequest(c, "INVALID_REQUEST", "Dataset and series names are required")
	}

	if err := h.seriesService.DeleteSeries(c.Context(), dataset, series); err != nil {
		return h.serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
