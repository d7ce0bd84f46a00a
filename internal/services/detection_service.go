package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/driftwatch/driftwatch/internal/analytics"
	"github.com/driftwatch/driftwatch/internal/analytics/changepoint"
	"github.com/driftwatch/driftwatch/internal/cache"
	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/logging"
	"github.com/driftwatch/driftwatch/internal/metadata"
	"github.com/driftwatch/driftwatch/internal/models"
	"github.com/driftwatch/driftwatch/internal/queue"
	"github.com/driftwatch/driftwatch/internal/storage"
)

// DetectionService runs change-point detections over stored series
type DetectionService struct {
	logger          *logging.Logger
	metadataManager metadata.Manager
	store           *storage.SeriesStore
	resultCache     cache.ResultCache
	publisher       queue.Publisher
	cfg             config.DetectionConfig
}

// NewDetectionService creates a new DetectionService. The publisher may be
// nil when trigger events are not published.
func NewDetectionService(
	logger *logging.Logger,
	metadataManager metadata.Manager,
	store *storage.SeriesStore,
	resultCache cache.ResultCache,
	publisher queue.Publisher,
	cfg config.DetectionConfig,
) *DetectionService {
	return &DetectionService{
		logger:          logger,
		metadataManager: metadataManager,
		store:           store,
		resultCache:     resultCache,
		publisher:       publisher,
		cfg:             cfg,
	}
}

// detectionInput is a resolved detection: series data plus effective settings
type detectionInput struct {
	values    []float64
	series    analytics.Series
	algorithm string
	baseline  changepoint.Baseline
	direction changepoint.Direction
	revision  int64
}

// Detect runs one detection over a stored series
func (s *DetectionService) Detect(ctx context.Context, dataset, series string, req *models.DetectRequest) (*models.DetectResponse, error) {
	start := time.Now()

	input, err := s.resolveInput(ctx, dataset, series, req.Algorithm, req.Direction, req.Baseline, req.BaselineWindow)
	if err != nil {
		return nil, err
	}

	params := changepoint.DefaultParams()
	params.Direction = input.direction
	if req.SlackFactor != nil {
		params.SlackFactor = *req.SlackFactor
	}
	if req.ThresholdFactor != nil {
		params.ThresholdFactor = *req.ThresholdFactor
	}

	result, err := changepoint.Detect(input.algorithm, input.values, input.baseline, params)
	if err != nil {
		return nil, detectionError(err)
	}

	if result.Triggered {
		s.publishTrigger(ctx, dataset, series, input, result)
	}

	s.logger.Info("Detection completed",
		"dataset", dataset,
		"series", series,
		"algorithm", input.algorithm,
		"triggered", result.Triggered,
		"trigger_index", result.TriggerIndex,
		"observations", len(input.values),
		"latency_ms", time.Since(start).Milliseconds())

	return &models.DetectResponse{
		Dataset:      dataset,
		Series:       series,
		Algorithm:    input.algorithm,
		Baseline:     models.BaselineView{Mu: input.baseline.Mu, Sigma: input.baseline.Sigma},
		Observations: len(input.values),
		Result:       resultView(result, params, req.IncludeStatistic),
	}, nil
}

// Sweep runs the algorithm once per parameter pair over the same series.
// Results keep the request pair order; previously computed pairs are served
// from the result cache.
func (s *DetectionService) Sweep(ctx context.Context, dataset, series string, req *models.SweepRequest) (*models.SweepResponse, error) {
	start := time.Now()

	input, err := s.resolveInput(ctx, dataset, series, req.Algorithm, req.Direction, req.Baseline, req.BaselineWindow)
	if err != nil {
		return nil, err
	}

	pairs := make([]changepoint.ParamPair, len(req.Pairs))
	for i, p := range req.Pairs {
		pairs[i] = changepoint.ParamPair{SlackFactor: p.SlackFactor, ThresholdFactor: p.ThresholdFactor}
	}

	results := make([]*changepoint.Result, len(pairs))
	cacheHits := 0

	// Only explicit-baseline sweeps skip the cache: an estimated baseline is
	// a pure function of the stored series, so its results are cacheable too.
	useCache := s.resultCache != nil && !req.NoCache && req.Baseline == nil

	missing := make([]int, 0, len(pairs))
	if useCache {
		for i, pair := range pairs {
			key := s.resultKey(dataset, series, input, pair)
			data, ok, err := s.resultCache.Get(ctx, key)
			if err != nil {
				s.logger.Warn("Result cache read failed", "key", key, "error", err)
			}
			if ok {
				var cached changepoint.Result
				if err := json.Unmarshal(data, &cached); err == nil {
					results[i] = &cached
					cacheHits++
					continue
				}
			}
			missing = append(missing, i)
		}
	} else {
		for i := range pairs {
			missing = append(missing, i)
		}
	}

	if len(missing) > 0 {
		missingPairs := make([]changepoint.ParamPair, len(missing))
		for j, i := range missing {
			missingPairs[j] = pairs[i]
		}

		workers := req.Workers
		if workers <= 0 {
			workers = s.cfg.SweepWorkers
		}

		computed, err := changepoint.Sweep(input.algorithm, input.values, input.baseline, input.direction, missingPairs, workers)
		if err != nil {
			return nil, detectionError(err)
		}

		for j, i := range missing {
			results[i] = computed[j]
			if useCache {
				s.storeResult(ctx, dataset, series, input, pairs[i], computed[j])
			}
		}
	}

	resp := &models.SweepResponse{
		Dataset:      dataset,
		Series:       series,
		Algorithm:    input.algorithm,
		Baseline:     models.BaselineView{Mu: input.baseline.Mu, Sigma: input.baseline.Sigma},
		Observations: len(input.values),
		Results:      make([]models.DetectionResultView, len(results)),
		CacheHits:    cacheHits,
	}
	for i, result := range results {
		params := changepoint.Params{
			SlackFactor:     pairs[i].SlackFactor,
			ThresholdFactor: pairs[i].ThresholdFactor,
			Direction:       input.direction,
		}
		resp.Results[i] = resultView(result, params, false)
	}

	s.logger.Info("Sweep completed",
		"dataset", dataset,
		"series", series,
		"algorithm", input.algorithm,
		"pairs", len(pairs),
		"cache_hits", cacheHits,
		"latency_ms", time.Since(start).Milliseconds())

	return resp, nil
}

// DetectDataset runs one detection per series. Series run independently:
// a failed series reports its error in place and the others still complete.
// Results keep the request order, or the catalog order when no series are
// named.
func (s *DetectionService) DetectDataset(ctx context.Context, dataset string, req *models.DatasetDetectRequest) (*models.DatasetDetectResponse, error) {
	names := req.Series
	if len(names) == 0 {
		list, err := s.metadataManager.ListSeries(ctx, dataset)
		if err != nil {
			if errors.Is(err, metadata.ErrDatasetNotFound) {
				return nil, NewServiceError("DATASET_NOT_FOUND", err.Error())
			}
			return nil, NewServiceErrorWithDetails("METADATA_FAILED", "Failed to list series",
				map[string]interface{}{"error": err.Error()})
		}
		for _, info := range list {
			names = append(names, info.Name)
		}
	}

	algorithm := req.Algorithm
	if algorithm == "" {
		algorithm = s.cfg.Algorithm
	}

	resp := &models.DatasetDetectResponse{
		Dataset:   dataset,
		Algorithm: algorithm,
		Results:   make([]models.SeriesDetectResult, len(names)),
	}

	// Resolve every series first; resolution failures land in place and the
	// remaining series still run.
	runs := make([]changepoint.Run, 0, len(names))
	runIndex := make([]int, 0, len(names))
	inputs := make(map[int]*detectionInput, len(names))

	for i, name := range names {
		resp.Results[i].Series = name

		input, err := s.resolveInput(ctx, dataset, name, req.Algorithm, req.Direction, req.Baseline, req.BaselineWindow)
		if err != nil {
			resp.Results[i].Error = errorDetail(err)
			continue
		}

		params := changepoint.DefaultParams()
		params.Direction = input.direction
		if req.SlackFactor != nil {
			params.SlackFactor = *req.SlackFactor
		}
		if req.ThresholdFactor != nil {
			params.ThresholdFactor = *req.ThresholdFactor
		}

		runs = append(runs, changepoint.Run{
			ID:       name,
			Values:   input.values,
			Baseline: input.baseline,
			Params:   params,
		})
		runIndex = append(runIndex, i)
		inputs[i] = input
	}

	if len(runs) > 0 {
		runResults, err := changepoint.DetectEach(algorithm, runs)
		if err != nil {
			return nil, detectionError(err)
		}

		for j, rr := range runResults {
			i := runIndex[j]
			if rr.Err != nil {
				resp.Results[i].Error = errorDetail(detectionError(rr.Err))
				continue
			}
			if rr.Result.Triggered {
				s.publishTrigger(ctx, dataset, rr.ID, inputs[i], rr.Result)
			}
			view := resultView(rr.Result, runs[j].Params, req.IncludeStatistic)
			resp.Results[i].Result = &view
		}
	}

	s.logger.Info("Dataset detection completed",
		"dataset", dataset,
		"algorithm", algorithm,
		"series", len(names),
		"runs", len(runs))

	return resp, nil
}

// resolveInput loads the series and resolves the effective algorithm,
// direction and baseline. Per-request settings win over per-series catalog
// defaults, which win over the service configuration.
func (s *DetectionService) resolveInput(ctx context.Context, dataset, series, algorithm, direction string, explicit *models.BaselineRequest, window int) (*detectionInput, error) {
	info, err := s.metadataManager.GetSeries(ctx, dataset, series)
	if err != nil {
		switch {
		case errors.Is(err, metadata.ErrSeriesNotFound):
			return nil, NewServiceError("SERIES_NOT_FOUND", err.Error())
		case errors.Is(err, metadata.ErrDatasetNotFound):
			return nil, NewServiceError("DATASET_NOT_FOUND", err.Error())
		default:
			return nil, NewServiceErrorWithDetails("METADATA_FAILED", "Failed to load series",
				map[string]interface{}{"error": err.Error()})
		}
	}

	snapshot, err := s.store.Snapshot(dataset, series)
	if err != nil {
		if errors.Is(err, storage.ErrSeriesNotFound) {
			return nil, NewServiceError("SERIES_EMPTY", "series has no observations: "+dataset+"/"+series)
		}
		return nil, NewServiceErrorWithDetails("STORE_FAILED", "Failed to read observations",
			map[string]interface{}{"error": err.Error()})
	}
	if len(snapshot) == 0 {
		return nil, NewServiceError("SERIES_EMPTY", "series has no observations: "+dataset+"/"+series)
	}

	input := &detectionInput{
		values:   snapshot.Values(),
		series:   snapshot,
		revision: int64(len(snapshot)),
	}

	input.algorithm = algorithm
	if input.algorithm == "" {
		input.algorithm = s.cfg.Algorithm
	}

	dirStr := direction
	if dirStr == "" {
		dirStr = info.Direction
	}
	if dirStr == "" {
		input.direction = changepoint.DefaultParams().Direction
	} else {
		dir, err := changepoint.ParseDirection(dirStr)
		if err != nil {
			return nil, detectionError(err)
		}
		input.direction = dir
	}

	if explicit != nil {
		input.baseline = changepoint.Baseline{Mu: explicit.Mu, Sigma: explicit.Sigma}
		if err := input.baseline.Validate(); err != nil {
			return nil, detectionError(err)
		}
		return input, nil
	}

	if window == 0 {
		window = info.BaselineWindow
	}
	if window == 0 {
		window = s.cfg.BaselineWindow
	}
	baseline, err := changepoint.BaselineFromSeries(snapshot, window)
	if err != nil {
		return nil, detectionError(err)
	}
	input.baseline = baseline
	return input, nil
}

func (s *DetectionService) resultKey(dataset, series string, input *detectionInput, pair changepoint.ParamPair) string {
	return cache.ResultKey(dataset, series, input.revision, input.algorithm,
		string(input.direction), pair.SlackFactor, pair.ThresholdFactor)
}

// storeResult caches a computed result. The cache is write-once, so a
// concurrent sweep that got there first simply wins.
func (s *DetectionService) storeResult(ctx context.Context, dataset, series string, input *detectionInput, pair changepoint.ParamPair, result *changepoint.Result) {
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	key := s.resultKey(dataset, series, input, pair)
	if _, err := s.resultCache.PutIfAbsent(ctx, key, data); err != nil {
		s.logger.Warn("Result cache write failed", "key", key, "error", err)
	}
}

// publishTrigger emits a change event. Publish failures are logged, never
// surfaced: the detection result stands on its own.
func (s *DetectionService) publishTrigger(ctx context.Context, dataset, series string, input *detectionInput, result *changepoint.Result) {
	if s.publisher == nil || !s.cfg.PublishTriggers {
		return
	}

	event := models.ChangeEvent{
		Dataset:        dataset,
		Series:         series,
		Algorithm:      input.algorithm,
		Direction:      string(result.Direction),
		TriggerIndex:   result.TriggerIndex,
		TriggerValue:   result.TriggerValue,
		FinalStatistic: result.FinalStatistic,
		Threshold:      result.Threshold,
		DetectedAt:     time.Now().UTC().Format(time.RFC3339),
	}
	if result.TriggerIndex >= 0 && result.TriggerIndex < input.series.Len() {
		event.TriggerTime = input.series[result.TriggerIndex].Time.Format(time.RFC3339)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := s.publisher.Publish(ctx, queue.SubjectChanges, data); err != nil {
		s.logger.Warn("Failed to publish change event",
			"dataset", dataset,
			"series", series,
			"error", err)
	}
}

// detectionError maps core errors onto service error codes
func detectionError(err error) *ServiceError {
	if errors.Is(err, changepoint.ErrInvalidParameter) {
		return NewServiceError("INVALID_PARAMETER", err.Error())
	}
	return NewServiceError("DETECTION_FAILED", err.Error())
}

// errorDetail converts a service error into a response error detail
func errorDetail(err error) *models.ErrorDetail {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return &models.ErrorDetail{
			Code:    svcErr.Code,
			Message: svcErr.Message,
			Details: svcErr.Details,
		}
	}
	return &models.ErrorDetail{Code: "ERROR", Message: err.Error()}
}

// resultView converts a core result into the response shape
func resultView(result *changepoint.Result, params changepoint.Params, includeStatistic bool) models.DetectionResultView {
	view := models.DetectionResultView{
		Triggered:       result.Triggered,
		TriggerIndex:    result.TriggerIndex,
		FinalStatistic:  result.FinalStatistic,
		Threshold:       result.Threshold,
		Slack:           result.Slack,
		Direction:       string(result.Direction),
		SlackFactor:     params.SlackFactor,
		ThresholdFactor: params.ThresholdFactor,
	}
	if result.Triggered {
		value := result.TriggerValue
		view.TriggerValue = &value
	}
	if includeStatistic {
		view.Statistic = result.Statistic
	}
	return view
}
