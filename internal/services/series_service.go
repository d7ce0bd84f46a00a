package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/driftwatch/driftwatch/internal/analytics"
	"github.com/driftwatch/driftwatch/internal/logging"
	"github.com/driftwatch/driftwatch/internal/metadata"
	"github.com/driftwatch/driftwatch/internal/models"
	"github.com/driftwatch/driftwatch/internal/queue"
	"github.com/driftwatch/driftwatch/internal/storage"
	"github.com/driftwatch/driftwatch/internal/utils"
)

// SeriesService handles the dataset/series catalog and observation ingest
type SeriesService struct {
	logger          *logging.Logger
	metadataManager metadata.Manager
	store           *storage.SeriesStore
	publisher       queue.Publisher
}

// NewSeriesService creates a new SeriesService
func NewSeriesService(logger *logging.Logger, metadataManager metadata.Manager, store *storage.SeriesStore) *SeriesService {
	return &SeriesService{
		logger:          logger,
		metadataManager: metadataManager,
		store:           store,
	}
}

// RelayObservations makes AppendObservations publish every accepted batch to
// the dataset's observation subject for downstream consumers
func (s *SeriesService) RelayObservations(publisher queue.Publisher) {
	s.publisher = publisher
}

// CreateDataset registers a new dataset
func (s *SeriesService) CreateDataset(ctx context.Context, req *models.CreateDatasetRequest) (*models.DatasetResponse, error) {
	ds := &metadata.Dataset{
		Name:        req.Name,
		Description: req.Description,
		Metadata:    req.Metadata,
	}

	if err := s.metadataManager.CreateDataset(ctx, ds); err != nil {
		if errors.Is(err, metadata.ErrDatasetExists) {
			return nil, NewServiceError("DATASET_EXISTS", err.Error())
		}
		return nil, NewServiceErrorWithDetails("METADATA_FAILED", "Failed to create dataset",
			map[string]interface{}{"error": err.Error()})
	}

	s.logger.Info("Dataset created", "dataset", ds.Name)
	return datasetView(ds, nil), nil
}

// GetDataset returns a dataset with its series
func (s *SeriesService) GetDataset(ctx context.Context, name string) (*models.DatasetResponse, error) {
	ds, err := s.metadataManager.GetDataset(ctx, name)
	if err != nil {
		if errors.Is(err, metadata.ErrDatasetNotFound) {
			return nil, NewServiceError("DATASET_NOT_FOUND", err.Error())
		}
		return nil, NewServiceErrorWithDetails("METADATA_FAILED", "Failed to load dataset",
			map[string]interface{}{"error": err.Error()})
	}

	series, err := s.metadataManager.ListSeries(ctx, name)
	if err != nil {
		return nil, NewServiceErrorWithDetails("METADATA_FAILED", "Failed to list series",
			map[string]interface{}{"error": err.Error()})
	}

	return datasetView(ds, series), nil
}

// ListDatasets returns every registered dataset
func (s *SeriesService) ListDatasets(ctx context.Context) (*models.DatasetListResponse, error) {
	datasets, err := s.metadataManager.ListDatasets(ctx)
	if err != nil {
		return nil, NewServiceErrorWithDetails("METADATA_FAILED", "Failed to list datasets",
			map[string]interface{}{"error": err.Error()})
	}

	resp := &models.DatasetListResponse{Datasets: make([]models.DatasetResponse, 0, len(datasets))}
	for _, ds := range datasets {
		resp.Datasets = append(resp.Datasets, *datasetView(ds, nil))
	}
	return resp, nil
}

// DeleteDataset removes a dataset, its series metadata and stored observations
func (s *SeriesService) DeleteDataset(ctx context.Context, name string) error {
	exists, err := s.metadataManager.DatasetExists(ctx, name)
	if err != nil {
		return NewServiceErrorWithDetails("METADATA_FAILED", "Failed to check dataset",
			map[string]interface{}{"error": err.Error()})
	}
	if !exists {
		return NewServiceError("DATASET_NOT_FOUND", "dataset not found: "+name)
	}

	if err := s.metadataManager.DeleteDataset(ctx, name); err != nil {
		return NewServiceErrorWithDetails("METADATA_FAILED", "Failed to delete dataset",
			map[string]interface{}{"error": err.Error()})
	}
	s.store.DeleteDataset(name)

	s.logger.Info("Dataset deleted", "dataset", name)
	return nil
}

// CreateSeries registers a new series in a dataset
func (s *SeriesService) CreateSeries(ctx context.Context, dataset string, req *models.CreateSeriesRequest) (*models.SeriesResponse, error) {
	info := &metadata.SeriesInfo{
		Name:           req.Name,
		Description:    req.Description,
		Unit:           req.Unit,
		Labels:         req.Labels,
		Direction:      req.Direction,
		BaselineWindow: req.BaselineWindow,
	}

	if err := s.metadataManager.CreateSeries(ctx, dataset, info); err != nil {
		switch {
		case errors.Is(err, metadata.ErrDatasetNotFound):
			return nil, NewServiceError("DATASET_NOT_FOUND", err.Error())
		case errors.Is(err, metadata.ErrSeriesExists):
			return nil, NewServiceError("SERIES_EXISTS", err.Error())
		default:
			return nil, NewServiceErrorWithDetails("METADATA_FAILED", "Failed to create series",
				map[string]interface{}{"error": err.Error()})
		}
	}

	s.logger.Info("Series created", "dataset", dataset, "series", info.Name)
	view := seriesView(info)
	return &view, nil
}

// GetSeries returns series metadata
func (s *SeriesService) GetSeries(ctx context.Context, dataset, series string) (*models.SeriesResponse, error) {
	info, err := s.metadataManager.GetSeries(ctx, dataset, series)
	if err != nil {
		if errors.Is(err, metadata.ErrSeriesNotFound) {
			return nil, NewServiceError("SERIES_NOT_FOUND", err.Error())
		}
		return nil, NewServiceErrorWithDetails("METADATA_FAILED", "Failed to load series",
			map[string]interface{}{"error": err.Error()})
	}
	view := seriesView(info)
	return &view, nil
}

// ListSeries returns every series of a dataset
func (s *SeriesService) ListSeries(ctx context.Context, dataset string) (*models.SeriesListResponse, error) {
	list, err := s.metadataManager.ListSeries(ctx, dataset)
	if err != nil {
		if errors.Is(err, metadata.ErrDatasetNotFound) {
			return nil, NewServiceError("DATASET_NOT_FOUND", err.Error())
		}
		return nil, NewServiceErrorWithDetails("METADATA_FAILED", "Failed to list series",
			map[string]interface{}{"error": err.Error()})
	}

	resp := &models.SeriesListResponse{Series: make([]models.SeriesResponse, 0, len(list))}
	for _, info := range list {
		resp.Series = append(resp.Series, seriesView(info))
	}
	return resp, nil
}

// DeleteSeries removes a series and its stored observations
func (s *SeriesService) DeleteSeries(ctx context.Context, dataset, series string) error {
	if err := s.metadataManager.ValidateSeries(ctx, dataset, series); err != nil {
		if errors.Is(err, metadata.ErrSeriesNotFound) {
			return NewServiceError("SERIES_NOT_FOUND", err.Error())
		}
		return NewServiceErrorWithDetails("METADATA_FAILED", "Failed to check series",
			map[string]interface{}{"error": err.Error()})
	}

	if err := s.metadataManager.DeleteSeries(ctx, dataset, series); err != nil {
		return NewServiceErrorWithDetails("METADATA_FAILED", "Failed to delete series",
			map[string]interface{}{"error": err.Error()})
	}
	s.store.Delete(dataset, series)

	s.logger.Info("Series deleted", "dataset", dataset, "series", series)
	return nil
}

// AppendObservations validates and stores a batch of observations. The whole
// batch is parsed before anything is written, so a malformed entry rejects
// the batch without partial state.
func (s *SeriesService) AppendObservations(ctx context.Context, dataset, series string, req *models.AppendObservationsRequest) (*models.AppendObservationsResponse, error) {
	if err := s.metadataManager.ValidateSeries(ctx, dataset, series); err != nil {
		switch {
		case errors.Is(err, metadata.ErrSeriesNotFound):
			return nil, NewServiceError("SERIES_NOT_FOUND", err.Error())
		case errors.Is(err, metadata.ErrDatasetNotFound):
			return nil, NewServiceError("DATASET_NOT_FOUND", err.Error())
		default:
			return nil, NewServiceErrorWithDetails("METADATA_FAILED", "Failed to check series",
				map[string]interface{}{"error": err.Error()})
		}
	}

	obs, err := parseObservations(req.Observations)
	if err != nil {
		return nil, NewServiceError("INVALID_OBSERVATION", err.Error())
	}

	if err := s.store.Append(dataset, series, obs); err != nil {
		if errors.Is(err, storage.ErrOutOfOrder) {
			return nil, NewServiceError("OUT_OF_ORDER", err.Error())
		}
		return nil, NewServiceErrorWithDetails("STORE_FAILED", "Failed to store observations",
			map[string]interface{}{"error": err.Error()})
	}

	last := obs[len(obs)-1].Time
	if err := s.metadataManager.TrackObservations(ctx, dataset, series, len(obs), last); err != nil {
		// Counting drift is tolerable, the observations are stored
		s.logger.Warn("Failed to track observations",
			"dataset", dataset,
			"series", series,
			"error", err)
	}

	if s.publisher != nil {
		s.relayBatch(ctx, dataset, series, obs)
	}

	s.logger.Debug("Observations appended",
		"dataset", dataset,
		"series", series,
		"count", len(obs))

	return &models.AppendObservationsResponse{
		Accepted:  len(obs),
		RequestID: uuid.New().String(),
	}, nil
}

// relayBatch publishes a stored batch to the observation subject. Relay
// failures are logged, never surfaced: the observations are already stored.
func (s *SeriesService) relayBatch(ctx context.Context, dataset, series string, obs analytics.Series) {
	msg := models.ObservationMessage{
		Dataset:      dataset,
		Series:       series,
		Observations: make([]models.ObservationEntry, len(obs)),
	}
	for i, o := range obs {
		msg.Observations[i] = models.ObservationEntry{
			Time:  o.Time.Format(time.RFC3339),
			Value: o.Value,
		}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := s.publisher.Publish(ctx, queue.ObservationSubject(dataset), data); err != nil {
		s.logger.Warn("Failed to relay observation batch",
			"dataset", dataset,
			"series", series,
			"error", err)
	}
}

// parseObservations converts request entries into typed observations
func parseObservations(entries []models.ObservationRequest) (analytics.Series, error) {
	obs := make(analytics.Series, 0, len(entries))
	for i, entry := range entries {
		ts, err := time.Parse(time.RFC3339, entry.Time)
		if err != nil {
			return nil, &ParseError{Index: i, Field: "time", Err: err}
		}
		value, ok := utils.ToFloat64(entry.Value)
		if !ok {
			return nil, &ParseError{Index: i, Field: "value", Err: fmt.Errorf("not a number: %v", entry.Value)}
		}
		obs = append(obs, analytics.Observation{Time: ts, Value: value})
	}
	return obs, nil
}

// ParseError reports which batch entry failed to parse
type ParseError struct {
	Index int
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("observation %d: invalid %s: %v", e.Index, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func datasetView(ds *metadata.Dataset, series []*metadata.SeriesInfo) *models.DatasetResponse {
	resp := &models.DatasetResponse{
		Name:        ds.Name,
		Description: ds.Description,
		Metadata:    ds.Metadata,
		CreatedAt:   ds.CreatedAt.Format(time.RFC3339),
	}
	for _, info := range series {
		resp.Series = append(resp.Series, seriesView(info))
	}
	return resp
}

func seriesView(info *metadata.SeriesInfo) models.SeriesResponse {
	view := models.SeriesResponse{
		Name:             info.Name,
		Description:      info.Description,
		Unit:             info.Unit,
		Labels:           info.Labels,
		Direction:        info.Direction,
		BaselineWindow:   info.BaselineWindow,
		ObservationCount: info.ObservationCount,
		CreatedAt:        info.CreatedAt.Format(time.RFC3339),
	}
	if info.LastObservedAt != nil {
		last := info.LastObservedAt.Format(time.RFC3339)
		view.LastObservedAt = &last
	}
	return view
}
