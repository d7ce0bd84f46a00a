package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/driftwatch/driftwatch/internal/models"
)

// Batches above this size are rejected before parsing starts
const maxObservationBatch = 10000

// AppendObservations appends a batch of observations to a series
// POST /v1/datasets/:dataset/series/:series/observations
func (h *Handler) AppendObservations(c *fiber.Ctx) error {
	dataset := c.Params("dataset")
	series := c.Params("series")
	if dataset == "" || series == "" {
		return badRequest(c, "INVALID_REQUEST", "Dataset and series names are required")
	}

	var req models.AppendObservationsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "INVALID_REQUEST", "Invalid request body: "+err.Error())
	}

	if len(req.Observations) == 0 {
		return badRequest(c, "INVALID_REQUEST", "At least one observation is required")
	}
	if len(req.Observations) > maxObservationBatch {
		return badRequest(c, "BATCH_TOO_LARGE", "Observation batch exceeds the maximum size")
	}

	resp, err := h.seriesService.AppendObservations(c.Context(), dataset, series, &req)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(resp)
}
