// Package ingest consumes observation messages from the queue and appends
// them to the series store. The HTTP append path and the queue path share
// the same service layer, so both enforce the same ordering and validation
// rules.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/driftwatch/driftwatch/internal/logging"
	"github.com/driftwatch/driftwatch/internal/metadata"
	"github.com/driftwatch/driftwatch/internal/models"
	"github.com/driftwatch/driftwatch/internal/queue"
	"github.com/driftwatch/driftwatch/internal/services"
)

// Consumer subscribes to observation subjects and stores what arrives.
// When detection-on-ingest is enabled every stored batch is followed by a
// detection run, which publishes a change event if it triggers.
type Consumer struct {
	logger          *logging.Logger
	subscriber      queue.Subscriber
	metadataManager metadata.Manager
	series          *services.SeriesService
	detection       *services.DetectionService
	detectOnIngest  bool

	mu         sync.Mutex
	subscribed map[string]bool
}

// NewConsumer creates a new ingest consumer. The detection service may be
// nil when detection-on-ingest is disabled.
func NewConsumer(logger *logging.Logger, subscriber queue.Subscriber,
	metadataManager metadata.Manager, series *services.SeriesService,
	detection *services.DetectionService, detectOnIngest bool,
) *Consumer {
	return &Consumer{
		logger:          logger,
		subscriber:      subscriber,
		metadataManager: metadataManager,
		series:          series,
		detection:       detection,
		detectOnIngest:  detectOnIngest && detection != nil,
		subscribed:      make(map[string]bool),
	}
}

// Start subscribes to the observation subject of every registered dataset
func (c *Consumer) Start(ctx context.Context) error {
	datasets, err := c.metadataManager.ListDatasets(ctx)
	if err != nil {
		return err
	}

	for _, ds := range datasets {
		if err := c.SubscribeDataset(ds.Name); err != nil {
			return err
		}
	}

	c.logger.Info("Ingest consumer started", "datasets", len(datasets))
	return nil
}

// SubscribeDataset subscribes to one dataset's observation subject.
// Subscribing twice is a no-op.
func (c *Consumer) SubscribeDataset(dataset string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.subscribed[dataset] {
		return nil
	}

	subject := queue.ObservationSubject(dataset)
	if err := c.subscriber.Subscribe(subject, c.handleMessage); err != nil {
		return err
	}
	c.subscribed[dataset] = true

	c.logger.Debug("Subscribed to observation subject", "subject", subject)
	return nil
}

// Stop unsubscribes from every observation subject
func (c *Consumer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for dataset := range c.subscribed {
		subject := queue.ObservationSubject(dataset)
		if err := c.subscriber.Unsubscribe(subject); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.subscribed, dataset)
	}
	return firstErr
}

// handleMessage stores one observation batch. Returning an error requests a
// redelivery, so only transient failures propagate; a message that can never
// succeed is logged and dropped.
func (c *Consumer) handleMessage(data []byte) error {
	var msg models.ObservationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Warn("Dropping malformed observation message", "error", err)
		return nil
	}
	if msg.Dataset == "" || msg.Series == "" || len(msg.Observations) == 0 {
		c.logger.Warn("Dropping incomplete observation message",
			"dataset", msg.Dataset,
			"series", msg.Series,
			"observations", len(msg.Observations))
		return nil
	}

	req := &models.AppendObservationsRequest{
		Observations: make([]models.ObservationRequest, len(msg.Observations)),
	}
	for i, entry := range msg.Observations {
		req.Observations[i] = models.ObservationRequest{Time: entry.Time, Value: entry.Value}
	}

	ctx := context.Background()
	if _, err := c.series.AppendObservations(ctx, msg.Dataset, msg.Series, req); err != nil {
		if isPermanent(err) {
			c.logger.Warn("Dropping unstorable observation message",
				"dataset", msg.Dataset,
				"series", msg.Series,
				"error", err)
			return nil
		}
		return err
	}

	if c.detectOnIngest {
		c.runDetection(ctx, msg.Dataset, msg.Series)
	}
	return nil
}

// runDetection runs a detection with catalog defaults after a stored batch.
// The detection service publishes the change event itself when it triggers.
func (c *Consumer) runDetection(ctx context.Context, dataset, series string) {
	resp, err := c.detection.Detect(ctx, dataset, series, &models.DetectRequest{})
	if err != nil {
		// Short series cannot produce a baseline yet, that is routine
		c.logger.Debug("Ingest detection skipped",
			"dataset", dataset,
			"series", series,
			"error", err)
		return
	}
	if resp.Result.Triggered {
		c.logger.Info("Ingest detection triggered",
			"dataset", dataset,
			"series", series,
			"trigger_index", resp.Result.TriggerIndex)
	}
}

// isPermanent reports whether a store attempt can never succeed on retry
func isPermanent(err error) bool {
	var svcErr *services.ServiceError
	if !errors.As(err, &svcErr) {
		return false
	}
	switch svcErr.Code {
	case "DATASET_NOT_FOUND", "SERIES_NOT_FOUND", "INVALID_OBSERVATION", "OUT_OF_ORDER":
		return true
	default:
		return false
	}
}
