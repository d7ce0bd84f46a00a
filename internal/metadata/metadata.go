// Package metadata manages dataset and series registration. The registry is
// the source of truth for which series exist and for their per-series
// detection defaults; observations for unregistered series are rejected.
package metadata

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDatasetNotFound is returned when a dataset is not registered
	ErrDatasetNotFound = errors.New("dataset not found")

	// ErrDatasetExists is returned when creating a dataset that already exists
	ErrDatasetExists = errors.New("dataset already exists")

	// ErrSeriesNotFound is returned when a series is not registered
	ErrSeriesNotFound = errors.New("series not found")

	// ErrSeriesExists is returned when creating a series that already exists
	ErrSeriesExists = errors.New("series already exists")
)

// Manager manages dataset and series metadata
type Manager interface {
	// Dataset operations
	CreateDataset(ctx context.Context, ds *Dataset) error
	GetDataset(ctx context.Context, name string) (*Dataset, error)
	ListDatasets(ctx context.Context) ([]*Dataset, error)
	DeleteDataset(ctx context.Context, name string) error
	DatasetExists(ctx context.Context, name string) (bool, error)

	// Series operations
	CreateSeries(ctx context.Context, dataset string, info *SeriesInfo) error
	GetSeries(ctx context.Context, dataset, series string) (*SeriesInfo, error)
	ListSeries(ctx context.Context, dataset string) ([]*SeriesInfo, error)
	DeleteSeries(ctx context.Context, dataset, series string) error
	SeriesExists(ctx context.Context, dataset, series string) (bool, error)
	ValidateSeries(ctx context.Context, dataset, series string) error

	// Runtime tracking (with caching)
	TrackObservations(ctx context.Context, dataset, series string, count int, last time.Time) error

	// Generic key-value operations
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	GetPrefix(ctx context.Context, prefix string) (map[string]string, error)

	// Lifecycle
	Close() error
}

// Dataset groups related observation series
type Dataset struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// SeriesInfo describes one registered observation series, including the
// detection defaults applied when a request leaves them unset.
type SeriesInfo struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Unit        string            `json:"unit,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`

	// Detection defaults
	Direction      string `json:"direction,omitempty"`       // falling or rising
	BaselineWindow int    `json:"baseline_window,omitempty"` // leading observations for baseline estimation

	// Runtime tracking (populated from ingested data)
	ObservationCount int64      `json:"observation_count,omitempty"`
	LastObservedAt   *time.Time `json:"last_observed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
