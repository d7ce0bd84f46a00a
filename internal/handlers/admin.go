package handlers

import (
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/driftwatch/driftwatch/internal/analytics/changepoint"
	"github.com/driftwatch/driftwatch/internal/models"
)

// Stats reports store-wide totals and the available detectors
// GET /admin/stats
func (h *Handler) Stats(c *fiber.Ctx) error {
	storeStats := h.store.Stats()

	datasets, err := h.metadataManager.ListDatasets(c.Context())
	if err != nil {
		h.logger.Error("Failed to list datasets for stats", "error", err)
		return h.serviceError(c, err)
	}

	detectors := changepoint.ListDetectors()
	sort.Strings(detectors)

	return c.JSON(models.StatsResponse{
		Datasets:        len(datasets),
		Series:          storeStats.SeriesCount,
		Observations:    int64(storeStats.ObservationCount),
		FrozenSegments:  storeStats.FrozenSegments,
		CompressedBytes: storeStats.CompressedBytes,
		Uptime:          time.Since(h.startedAt).Round(time.Second).String(),
		Detectors:       detectors,
	})
}
