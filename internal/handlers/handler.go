package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/driftwatch/driftwatch/internal/cache"
	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/logging"
	"github.com/driftwatch/driftwatch/internal/metadata"
	"github.com/driftwatch/driftwatch/internal/models"
	"github.com/driftwatch/driftwatch/internal/queue"
	"github.com/driftwatch/driftwatch/internal/services"
	"github.com/driftwatch/driftwatch/internal/storage"
)

// Handler contains all HTTP handlers
type Handler struct {
	logger          *logging.Logger
	metadataManager metadata.Manager
	store           *storage.SeriesStore
	startedAt       time.Time
	// Services
	seriesService    *services.SeriesService
	detectionService *services.DetectionService
}

// New creates a new handler instance
func New(logger *logging.Logger, metadataManager metadata.Manager,
	store *storage.SeriesStore, resultCache cache.ResultCache,
	publisher queue.Publisher, detectionCfg config.DetectionConfig,
) *Handler {
	return &Handler{
		logger:           logger,
		metadataManager:  metadataManager,
		store:            store,
		startedAt:        time.Now(),
		seriesService:    services.NewSeriesService(logger, metadataManager, store),
		detectionService: services.NewDetectionService(logger, metadataManager, store, resultCache, publisher, detectionCfg),
	}
}

// RelayObservations forwards accepted HTTP append batches to the dataset's
// observation subject
func (h *Handler) RelayObservations(publisher queue.Publisher) {
	h.seriesService.RelayObservations(publisher)
}

// serviceError converts a service layer error into an HTTP error response.
// Error codes carry the status: not-found codes map to 404, conflicts to
// 409, client mistakes to 400, everything else to 500.
func (h *Handler) serviceError(c *fiber.Ctx, err error) error {
	if svcErr, ok := err.(*services.ServiceError); ok {
		return c.Status(serviceErrorStatus(svcErr.Code)).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    svcErr.Code,
				Message: svcErr.Message,
				Path:    c.Path(),
				Details: svcErr.Details,
			},
		})
	}

	h.logger.Error("Unexpected service error", "error", err, "path", c.Path())
	return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "INTERNAL_ERROR",
			Message: "Internal Server Error",
			Path:    c.Path(),
		},
	})
}

func serviceErrorStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "_NOT_FOUND"):
		return fiber.StatusNotFound
	case strings.HasSuffix(code, "_EXISTS"):
		return fiber.StatusConflict
	case strings.HasPrefix(code, "INVALID_"),
		code == "OUT_OF_ORDER",
		code == "SERIES_EMPTY":
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// badRequest builds a 400 response with the given code and message
func badRequest(c *fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
			Path:    c.Path(),
		},
	})
}
