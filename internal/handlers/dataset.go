package handlers

import (
	"regexp"

	"github.com/gofiber/fiber/v2"

	"github.com/driftwatch/driftwatch/internal/models"
)

var (
	datasetNameRegex  = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	reservedDatasets  = map[string]bool{"system": true, "admin": true, "internal": true}
	maxDatasetNameLen = 64
)

// CreateDataset creates a new dataset
// POST /v1/datasets
func (h *Handler) CreateDataset(c *fiber.Ctx) error {
	var req models.CreateDatasetRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "INVALID_REQUEST", "Invalid request body: "+err.Error())
	}

	if !datasetNameRegex.MatchString(req.Name) {
		return badRequest(c, "INVALID_NAME",
			"Dataset name must contain only alphanumeric characters, underscores, and hyphens")
	}
	if len(req.Name) > maxDatasetNameLen {
		return badRequest(c, "INVALID_NAME", "Dataset name must not exceed 64 characters")
	}
	if reservedDatasets[req.Name] {
		return badRequest(c, "INVALID_NAME", "Dataset name is reserved")
	}

	resp, err := h.seriesService.CreateDataset(c.Context(), &req)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// ListDatasets lists all datasets
// GET /v1/datasets
func (h *Handler) ListDatasets(c *fiber.Ctx) error {
	resp, err := h.seriesService.ListDatasets(c.Context())
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(resp)
}

// GetDataset gets dataset information including its series
// GET /v1/datasets/:dataset
func (h *Handler) GetDataset(c *fiber.Ctx) error {
	dataset := c.Params("dataset")
	if dataset == "" {
		return badRequest(c, "INVALID_REQUEST", "Dataset name is required")
	}

	resp, err := h.seriesService.GetDataset(c.Context(), dataset)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(resp)
}

// DeleteDataset deletes a dataset with its series and observations
// DELETE /v1/datasets/:dataset
func (h *Handler) DeleteDataset(c *fiber.Ctx) error {
	dataset := c.Params("dataset")
	if dataset == "" {
		return badRequest(c, "INVALID_REQUEST", "Dataset name is required")
	}

	if err := h.seriesService.DeleteDataset(c.Context(), dataset); err != nil {
		return h.serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
