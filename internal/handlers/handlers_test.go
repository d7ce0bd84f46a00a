package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/driftwatch/driftwatch/internal/cache"
	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/logging"
	"github.com/driftwatch/driftwatch/internal/metadata"
	"github.com/driftwatch/driftwatch/internal/middleware"
	"github.com/driftwatch/driftwatch/internal/models"
	"github.com/driftwatch/driftwatch/internal/storage"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	logger := logging.NewDevelopment()
	manager := metadata.NewMemoryManager()
	store := storage.NewSeriesStore(128, logger)
	resultCache := cache.NewMemoryCache(0)

	h := New(logger, manager, store, resultCache, nil, config.DetectionConfig{
		Algorithm:      "cusum",
		BaselineWindow: 4,
		SweepWorkers:   2,
	})

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	app.Get("/health", h.Health)
	v1 := app.Group("/v1")
	v1.Post("/datasets", h.CreateDataset)
	v1.Get("/datasets", h.ListDatasets)
	v1.Get("/datasets/:dataset", h.GetDataset)
	v1.Delete("/datasets/:dataset", h.DeleteDataset)
	v1.Post("/datasets/:dataset/series", h.CreateSeries)
	v1.Get("/datasets/:dataset/series", h.ListSeries)
	v1.Get("/datasets/:dataset/series/:series", h.GetSeries)
	v1.Delete("/datasets/:dataset/series/:series", h.DeleteSeries)
	v1.Post("/datasets/:dataset/series/:series/observations", h.AppendObservations)
	v1.Post("/datasets/:dataset/series/:series/detect", h.Detect)
	v1.Post("/datasets/:dataset/series/:series/sweep", h.Sweep)
	v1.Post("/datasets/:dataset/detect", h.DetectDataset)
	app.Get("/admin/stats", h.Stats)
	app.Use(h.NotFound)

	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("Failed to test request: %v", err)
	}
	respBody, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, respBody
}

func decodeJSON(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("Failed to unmarshal response %s: %v", data, err)
	}
}

func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	var errResp models.ErrorResponse
	decodeJSON(t, data, &errResp)
	return errResp.Error.Code
}

// seedScenario creates metrics/cpu.host-a with a clear downward shift
func seedScenario(t *testing.T, app *fiber.App) {
	t.Helper()

	resp, _ := doJSON(t, app, "POST", "/v1/datasets", models.CreateDatasetRequest{Name: "metrics"})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("Failed to create dataset: status %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, app, "POST", "/v1/datasets/metrics/series", models.CreateSeriesRequest{
		Name:      "cpu.host-a",
		Direction: "falling",
	})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("Failed to create series: status %d", resp.StatusCode)
	}

	values := []float64{90, 91, 89, 90, 70, 65, 60}
	req := models.AppendObservationsRequest{}
	for i, v := range values {
		req.Observations = append(req.Observations, models.ObservationRequest{
			Time:  timeAt(i),
			Value: v,
		})
	}
	resp, body := doJSON(t, app, "POST", "/v1/datasets/metrics/series/cpu.host-a/observations", req)
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("Failed to append observations: status %d, body %s", resp.StatusCode, body)
	}
}

func timeAt(minute int) string {
	return "2026-08-27T10:" + twoDigits(minute) + ":00Z"
}

func twoDigits(n int) string {
	return string([]byte{'0' + byte(n/10), '0' + byte(n%10)})
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, "GET", "/health", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var health models.HealthResponse
	decodeJSON(t, body, &health)
	if health.Status != "healthy" {
		t.Errorf("Expected status 'healthy', got %q", health.Status)
	}
}

func TestNotFoundRoute(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, "GET", "/no/such/route", nil)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", resp.StatusCode)
	}
	if code := errorCode(t, body); code != "NOT_FOUND" {
		t.Errorf("Expected code NOT_FOUND, got %q", code)
	}
}

func TestCreateDataset_Validation(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name         string
		req          models.CreateDatasetRequest
		expectedCode string
	}{
		{"invalid_chars", models.CreateDatasetRequest{Name: "bad name!"}, "INVALID_NAME"},
		{"empty_name", models.CreateDatasetRequest{Name: ""}, "INVALID_NAME"},
		{"reserved", models.CreateDatasetRequest{Name: "system"}, "INVALID_NAME"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, app, "POST", "/v1/datasets", tt.req)
			if resp.StatusCode != fiber.StatusBadRequest {
				t.Fatalf("Expected status 400, got %d", resp.StatusCode)
			}
			if code := errorCode(t, body); code != tt.expectedCode {
				t.Errorf("Expected code %q, got %q", tt.expectedCode, code)
			}
		})
	}
}

func TestDatasetLifecycle(t *testing.T) {
	app := newTestApp(t)

	resp, body := doJSON(t, app, "POST", "/v1/datasets", models.CreateDatasetRequest{
		Name:        "metrics",
		Description: "Host metrics",
	})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, app, "POST", "/v1/datasets", models.CreateDatasetRequest{Name: "metrics"})
	if resp.StatusCode != fiber.StatusConflict {
		t.Errorf("Expected status 409 for duplicate, got %d", resp.StatusCode)
	}
	if code := errorCode(t, body); code != "DATASET_EXISTS" {
		t.Errorf("Expected code DATASET_EXISTS, got %q", code)
	}

	resp, body = doJSON(t, app, "GET", "/v1/datasets/metrics", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	var ds models.DatasetResponse
	decodeJSON(t, body, &ds)
	if ds.Description != "Host metrics" {
		t.Errorf("Expected description 'Host metrics', got %q", ds.Description)
	}

	resp, _ = doJSON(t, app, "DELETE", "/v1/datasets/metrics", nil)
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", resp.StatusCode)
	}

	resp, body = doJSON(t, app, "GET", "/v1/datasets/metrics", nil)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", resp.StatusCode)
	}
	if code := errorCode(t, body); code != "DATASET_NOT_FOUND" {
		t.Errorf("Expected code DATASET_NOT_FOUND, got %q", code)
	}
}

func TestSeriesLifecycle(t *testing.T) {
	app := newTestApp(t)
	doJSON(t, app, "POST", "/v1/datasets", models.CreateDatasetRequest{Name: "metrics"})

	resp, body := doJSON(t, app, "POST", "/v1/datasets/metrics/series", models.CreateSeriesRequest{
		Name:           "cpu.host-a",
		Direction:      "falling",
		BaselineWindow: 4,
	})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.StatusCode, body)
	}

	resp, _ = doJSON(t, app, "POST", "/v1/datasets/metrics/series", models.CreateSeriesRequest{Name: "cpu.host-a"})
	if resp.StatusCode != fiber.StatusConflict {
		t.Errorf("Expected status 409 for duplicate, got %d", resp.StatusCode)
	}

	resp, body = doJSON(t, app, "POST", "/v1/datasets/metrics/series", models.CreateSeriesRequest{
		Name:      "cpu.host-b",
		Direction: "sideways",
	})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("Expected status 400 for bad direction, got %d", resp.StatusCode)
	}
	if code := errorCode(t, body); code != "INVALID_DIRECTION" {
		t.Errorf("Expected code INVALID_DIRECTION, got %q", code)
	}

	resp, body = doJSON(t, app, "GET", "/v1/datasets/metrics/series/cpu.host-a", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	var series models.SeriesResponse
	decodeJSON(t, body, &series)
	if series.Direction != "falling" || series.BaselineWindow != 4 {
		t.Errorf("Unexpected series view: %+v", series)
	}

	resp, _ = doJSON(t, app, "DELETE", "/v1/datasets/metrics/series/cpu.host-a", nil)
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, app, "GET", "/v1/datasets/metrics/series/cpu.host-a", nil)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", resp.StatusCode)
	}
}

func TestAppendObservationsEndpoint(t *testing.T) {
	app := newTestApp(t)
	seedScenario(t, app)

	// Empty batch
	resp, _ := doJSON(t, app, "POST", "/v1/datasets/metrics/series/cpu.host-a/observations",
		models.AppendObservationsRequest{})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("Expected status 400 for empty batch, got %d", resp.StatusCode)
	}

	// Out of order
	resp, body := doJSON(t, app, "POST", "/v1/datasets/metrics/series/cpu.host-a/observations",
		models.AppendObservationsRequest{
			Observations: []models.ObservationRequest{{Time: timeAt(0), Value: 50.0}},
		})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("Expected status 400 for out-of-order batch, got %d", resp.StatusCode)
	}
	if code := errorCode(t, body); code != "OUT_OF_ORDER" {
		t.Errorf("Expected code OUT_OF_ORDER, got %q", code)
	}

	// Unknown series
	resp, _ = doJSON(t, app, "POST", "/v1/datasets/metrics/series/missing/observations",
		models.AppendObservationsRequest{
			Observations: []models.ObservationRequest{{Time: timeAt(0), Value: 50.0}},
		})
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("Expected status 404 for unknown series, got %d", resp.StatusCode)
	}
}

func TestDetectEndpoint(t *testing.T) {
	app := newTestApp(t)
	seedScenario(t, app)

	resp, body := doJSON(t, app, "POST", "/v1/datasets/metrics/series/cpu.host-a/detect",
		models.DetectRequest{
			Baseline: &models.BaselineRequest{Mu: 90, Sigma: 1},
		})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, body)
	}

	var detect models.DetectResponse
	decodeJSON(t, body, &detect)
	if !detect.Result.Triggered {
		t.Fatal("Expected a trigger")
	}
	if detect.Result.TriggerIndex != 4 {
		t.Errorf("Expected trigger index 4, got %d", detect.Result.TriggerIndex)
	}
	if detect.Result.TriggerValue == nil || *detect.Result.TriggerValue != 70 {
		t.Errorf("Expected trigger value 70, got %v", detect.Result.TriggerValue)
	}
	if detect.Result.FinalStatistic != 73.5 {
		t.Errorf("Expected final statistic 73.5, got %g", detect.Result.FinalStatistic)
	}
}

func TestDetectEndpoint_EmptyBody(t *testing.T) {
	app := newTestApp(t)
	seedScenario(t, app)

	// No body at all: catalog direction and estimated baseline apply
	req := httptest.NewRequest("POST", "/v1/datasets/metrics/series/cpu.host-a/detect", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("Failed to test request: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, body)
	}
	var detect models.DetectResponse
	decodeJSON(t, body, &detect)
	if !detect.Result.Triggered {
		t.Error("Expected a trigger with defaults")
	}
	if detect.Result.Direction != "falling" {
		t.Errorf("Expected catalog direction 'falling', got %q", detect.Result.Direction)
	}
}

func TestDetectEndpoint_Errors(t *testing.T) {
	app := newTestApp(t)
	seedScenario(t, app)

	resp, _ := doJSON(t, app, "POST", "/v1/datasets/metrics/series/missing/detect",
		models.DetectRequest{})
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("Expected status 404 for unknown series, got %d", resp.StatusCode)
	}

	slack := -1.0
	resp, body := doJSON(t, app, "POST", "/v1/datasets/metrics/series/cpu.host-a/detect",
		models.DetectRequest{
			Baseline:    &models.BaselineRequest{Mu: 90, Sigma: 1},
			SlackFactor: &slack,
		})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("Expected status 400 for invalid slack, got %d", resp.StatusCode)
	}
	if code := errorCode(t, body); code != "INVALID_PARAMETER" {
		t.Errorf("Expected code INVALID_PARAMETER, got %q", code)
	}
}

func TestSweepEndpoint(t *testing.T) {
	app := newTestApp(t)
	seedScenario(t, app)

	resp, body := doJSON(t, app, "POST", "/v1/datasets/metrics/series/cpu.host-a/sweep",
		models.SweepRequest{
			Baseline: &models.BaselineRequest{Mu: 90, Sigma: 1},
			Pairs: []models.SweepPairRequest{
				{SlackFactor: 0.5, ThresholdFactor: 5},
				{SlackFactor: 0.5, ThresholdFactor: 100},
			},
		})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, body)
	}

	var sweep models.SweepResponse
	decodeJSON(t, body, &sweep)
	if len(sweep.Results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(sweep.Results))
	}
	if !sweep.Results[0].Triggered || sweep.Results[1].Triggered {
		t.Errorf("Unexpected trigger pattern: %+v", sweep.Results)
	}

	// Missing pairs
	resp, _ = doJSON(t, app, "POST", "/v1/datasets/metrics/series/cpu.host-a/sweep",
		models.SweepRequest{})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("Expected status 400 for missing pairs, got %d", resp.StatusCode)
	}
}

func TestDatasetDetectEndpoint(t *testing.T) {
	app := newTestApp(t)
	seedScenario(t, app)
	doJSON(t, app, "POST", "/v1/datasets/metrics/series", models.CreateSeriesRequest{Name: "empty.series"})

	resp, body := doJSON(t, app, "POST", "/v1/datasets/metrics/detect",
		models.DatasetDetectRequest{
			DetectRequest: models.DetectRequest{
				Baseline: &models.BaselineRequest{Mu: 90, Sigma: 1},
			},
		})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, body)
	}

	var result models.DatasetDetectResponse
	decodeJSON(t, body, &result)
	if len(result.Results) != 2 {
		t.Fatalf("Expected 2 series results, got %d", len(result.Results))
	}
	for _, r := range result.Results {
		switch r.Series {
		case "cpu.host-a":
			if r.Result == nil || !r.Result.Triggered {
				t.Error("Expected cpu.host-a to trigger")
			}
		case "empty.series":
			if r.Error == nil || r.Error.Code != "SERIES_EMPTY" {
				t.Errorf("Expected SERIES_EMPTY error, got %+v", r.Error)
			}
		default:
			t.Errorf("Unexpected series %q", r.Series)
		}
	}
}

func TestStatsEndpoint(t *testing.T) {
	app := newTestApp(t)
	seedScenario(t, app)

	resp, body := doJSON(t, app, "GET", "/admin/stats", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var stats models.StatsResponse
	decodeJSON(t, body, &stats)
	if stats.Datasets != 1 {
		t.Errorf("Expected 1 dataset, got %d", stats.Datasets)
	}
	if stats.Series != 1 {
		t.Errorf("Expected 1 series, got %d", stats.Series)
	}
	if stats.Observations != 7 {
		t.Errorf("Expected 7 observations, got %d", stats.Observations)
	}
	found := false
	for _, name := range stats.Detectors {
		if name == "cusum" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected 'cusum' in detectors, got %v", stats.Detectors)
	}
}
