package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/driftwatch/driftwatch/internal/models"
)

// Pair counts above this are rejected before any work is scheduled
const maxSweepPairs = 1000

// Detect runs a change-point detection over a stored series
// POST /v1/datasets/:dataset/series/:series/detect
func (h *Handler) Detect(c *fiber.Ctx) error {
	dataset := c.Params("dataset")
	series := c.Params("series")
	if dataset == "" || series == "" {
		return badRequest(c, "INVALID_REQUEST", "Dataset and series names are required")
	}

	// An empty body runs with catalog and config defaults
	var req models.DetectRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "INVALID_REQUEST", "Invalid request body: "+err.Error())
		}
	}

	resp, err := h.detectionService.Detect(c.Context(), dataset, series, &req)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(resp)
}

// Sweep runs one detection per parameter pair over the same series
// POST /v1/datasets/:dataset/series/:series/sweep
func (h *Handler) Sweep(c *fiber.Ctx) error {
	dataset := c.Params("dataset")
	series := c.Params("series")
	if dataset == "" || series == "" {
		return badRequest(c, "INVALID_REQUEST", "Dataset and series names are required")
	}

	var req models.SweepRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "INVALID_REQUEST", "Invalid request body: "+err.Error())
	}

	if len(req.Pairs) == 0 {
		return badRequest(c, "INVALID_REQUEST", "At least one parameter pair is required")
	}
	if len(req.Pairs) > maxSweepPairs {
		return badRequest(c, "SWEEP_TOO_LARGE", "Parameter sweep exceeds the maximum pair count")
	}

	resp, err := h.detectionService.Sweep(c.Context(), dataset, series, &req)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(resp)
}

// DetectDataset runs one detection per series of a dataset
// POST /v1/datasets/:dataset/detect
func (h *Handler) DetectDataset(c *fiber.Ctx) error {
	dataset := c.Params("dataset")
	if dataset == "" {
		return badRequest(c, "INVALID_REQUEST", "Dataset name is required")
	}

	var req models.DatasetDetectRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "INVALID_REQUEST", "Invalid request body: "+err.Error())
		}
	}

	resp, err := h.detectionService.DetectDataset(c.Context(), dataset, &req)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(resp)
}
