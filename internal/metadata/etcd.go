package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const (
	datasetPrefix = "/driftwatch/datasets"
	seriesSuffix  = "series"
)

// EtcdManager implements Manager using etcd
type EtcdManager struct {
	client *clientv3.Client
	cache  *catalogCache
}

// NewEtcdManager creates a new etcd-based metadata manager
func NewEtcdManager(endpoints []string) (*EtcdManager, error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	return &EtcdManager{
		client: client,
		cache:  newCatalogCache(30 * time.Second),
	}, nil
}

// ============================================================================
// Dataset Operations
// ============================================================================

func (m *EtcdManager) CreateDataset(ctx context.Context, ds *Dataset) error {
	key := path.Join(datasetPrefix, ds.Name, "metadata")

	exists, err := m.DatasetExists(ctx, ds.Name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrDatasetExists, ds.Name)
	}

	if ds.CreatedAt.IsZero() {
		ds.CreatedAt = time.Now()
	}

	data, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("failed to marshal dataset: %w", err)
	}

	_, err = m.client.Put(ctx, key, string(data))
	if err != nil {
		return fmt.Errorf("failed to store dataset in etcd: %w", err)
	}

	return nil
}

func (m *EtcdManager) GetDataset(ctx context.Context, name string) (*Dataset, error) {
	key := path.Join(datasetPrefix, name, "metadata")

	resp, err := m.client.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset from etcd: %w", err)
	}

	if len(resp.Kvs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, name)
	}

	var ds Dataset
	if err := json.Unmarshal(resp.Kvs[0].Value, &ds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dataset: %w", err)
	}

	return &ds, nil
}

func (m *EtcdManager) ListDatasets(ctx context.Context) ([]*Dataset, error) {
	resp, err := m.client.Get(ctx, datasetPrefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets from etcd: %w", err)
	}

	datasets := make([]*Dataset, 0)
	for _, kv := range resp.Kvs {
		// Only process metadata keys, skip series keys
		if !strings.HasSuffix(string(kv.Key), "/metadata") {
			continue
		}

		var ds Dataset
		if err := json.Unmarshal(kv.Value, &ds); err != nil {
			continue
		}
		datasets = append(datasets, &ds)
	}

	return datasets, nil
}

func (m *EtcdManager) DeleteDataset(ctx context.Context, name string) error {
	// Delete the entire dataset tree (metadata + series)
	key := path.Join(datasetPrefix, name)

	_, err := m.client.Delete(ctx, key, clientv3.WithPrefix())
	if err != nil {
		return fmt.Errorf("failed to delete dataset from etcd: %w", err)
	}

	m.cache.DeletePrefix(key)
	return nil
}

func (m *EtcdManager) DatasetExists(ctx context.Context, name string) (bool, error) {
	key := path.Join(datasetPrefix, name, "metadata")

	resp, err := m.client.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to check dataset existence: %w", err)
	}

	return len(resp.Kvs) > 0, nil
}

// ============================================================================
// Series Operations
// ============================================================================

func (m *EtcdManager) CreateSeries(ctx context.Context, dataset string, info *SeriesInfo) error {
	exists, err := m.DatasetExists(ctx, dataset)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrDatasetNotFound, dataset)
	}

	exists, err = m.SeriesExists(ctx, dataset, info.Name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s/%s", ErrSeriesExists, dataset, info.Name)
	}

	key := path.Join(datasetPrefix, dataset, seriesSuffix, info.Name)

	if info.CreatedAt.IsZero() {
		info.CreatedAt = time.Now()
	}

	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal series: %w", err)
	}

	_, err = m.client.Put(ctx, key, string(data))
	if err != nil {
		return fmt.Errorf("failed to store series in etcd: %w", err)
	}

	m.cache.Set(key, string(data))
	return nil
}

func (m *EtcdManager) GetSeries(ctx context.Context, dataset, series string) (*SeriesInfo, error) {
	key := path.Join(datasetPrefix, dataset, seriesSuffix, series)

	// Check cache first
	if cached, ok := m.cache.Get(key); ok && cached != "" {
		var info SeriesInfo
		if err := json.Unmarshal([]byte(cached), &info); err == nil {
			return &info, nil
		}
	}

	resp, err := m.client.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get series from etcd: %w", err)
	}

	if len(resp.Kvs) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrSeriesNotFound, dataset, series)
	}

	var info SeriesInfo
	if err := json.Unmarshal(resp.Kvs[0].Value, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal series: %w", err)
	}

	m.cache.Set(key, string(resp.Kvs[0].Value))
	return &info, nil
}

func (m *EtcdManager) ListSeries(ctx context.Context, dataset string) ([]*SeriesInfo, error) {
	exists, err := m.DatasetExists(ctx, dataset)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, dataset)
	}

	prefix := path.Join(datasetPrefix, dataset, seriesSuffix) + "/"

	resp, err := m.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to list series from etcd: %w", err)
	}

	result := make([]*SeriesInfo, 0)
	for _, kv := range resp.Kvs {
		var info SeriesInfo
		if err := json.Unmarshal(kv.Value, &info); err != nil {
			continue
		}
		result = append(result, &info)
	}

	return result, nil
}

func (m *EtcdManager) DeleteSeries(ctx context.Context, dataset, series string) error {
	key := path.Join(datasetPrefix, dataset, seriesSuffix, series)

	_, err := m.client.Delete(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to delete series from etcd: %w", err)
	}

	m.cache.Delete(key)
	return nil
}

func (m *EtcdManager) SeriesExists(ctx context.Context, dataset, series string) (bool, error) {
	key := path.Join(datasetPrefix, dataset, seriesSuffix, series)

	resp, err := m.client.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to check series existence: %w", err)
	}

	exists := len(resp.Kvs) > 0
	if exists {
		m.cache.Set(key, string(resp.Kvs[0].Value))
	} else {
		m.cache.Delete(key)
	}

	return exists, nil
}

// ValidateSeries checks that a series is registered and returns an error if not
func (m *EtcdManager) ValidateSeries(ctx context.Context, dataset, series string) error {
	key := path.Join(datasetPrefix, dataset, seriesSuffix, series)
	if cached, ok := m.cache.Get(key); ok {
		if len(cached) == 0 {
			return fmt.Errorf("%w: %s/%s", ErrSeriesNotFound, dataset, series)
		}
		return nil
	}

	exists, err := m.SeriesExists(ctx, dataset, series)
	if err != nil {
		return fmt.Errorf("failed to check series: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s/%s", ErrSeriesNotFound, dataset, series)
	}
	return nil
}

// ============================================================================
// Runtime Tracking
// ============================================================================

// TrackObservations bumps the series' ingest counters after an append.
func (m *EtcdManager) TrackObservations(ctx context.Context, dataset, series string, count int, last time.Time) error {
	if count <= 0 {
		return nil
	}

	key := path.Join(datasetPrefix, dataset, seriesSuffix, series)

	info, err := m.GetSeries(ctx, dataset, series)
	if err != nil {
		return fmt.Errorf("failed to get series: %w", err)
	}

	info.ObservationCount += int64(count)
	if info.LastObservedAt == nil || last.After(*info.LastObservedAt) {
		info.LastObservedAt = &last
	}

	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal series: %w", err)
	}

	_, err = m.client.Put(ctx, key, string(data))
	if err != nil {
		return fmt.Errorf("failed to update series: %w", err)
	}

	m.cache.Set(key, string(data))
	return nil
}

// ============================================================================
// Generic Key-Value Operations
// ============================================================================

// Get retrieves a value by key
func (m *EtcdManager) Get(ctx context.Context, key string) (string, error) {
	if cached, ok := m.cache.Get(key); ok {
		return cached, nil
	}

	resp, err := m.client.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to get key: %w", err)
	}

	if len(resp.Kvs) == 0 {
		return "", nil
	}

	value := string(resp.Kvs[0].Value)
	m.cache.Set(key, value)
	return value, nil
}

// Put stores a key-value pair
func (m *EtcdManager) Put(ctx context.Context, key, value string) error {
	_, err := m.client.Put(ctx, key, value)
	if err != nil {
		return fmt.Errorf("failed to put key: %w", err)
	}
	m.cache.Set(key, value)
	return nil
}

// Delete removes a key from etcd
func (m *EtcdManager) Delete(ctx context.Context, key string) error {
	_, err := m.client.Delete(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	m.cache.Delete(key)
	return nil
}

// GetPrefix retrieves all keys with a given prefix
func (m *EtcdManager) GetPrefix(ctx context.Context, prefix string) (map[string]string, error) {
	resp, err := m.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to get prefix: %w", err)
	}

	result := make(map[string]string)
	for _, kv := range resp.Kvs {
		result[string(kv.Key)] = string(kv.Value)
	}

	return result, nil
}

// ============================================================================
// Lifecycle
// ============================================================================

func (m *EtcdManager) Close() error {
	if m.cache != nil {
		m.cache.Stop()
	}
	return m.client.Close()
}
