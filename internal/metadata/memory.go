package metadata

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemoryManager implements Manager entirely in memory. It backs tests and
// single-process development runs where no etcd cluster is available.
type MemoryManager struct {
	mu       sync.RWMutex
	datasets map[string]*Dataset
	series   map[string]map[string]*SeriesInfo // dataset -> series name -> info
	kv       map[string]string
}

// NewMemoryManager creates a new in-memory metadata manager
func NewMemoryManager() *MemoryManager {
	return &MemoryManager{
		datasets: make(map[string]*Dataset),
		series:   make(map[string]map[string]*SeriesInfo),
		kv:       make(map[string]string),
	}
}

func (m *MemoryManager) CreateDataset(ctx context.Context, ds *Dataset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.datasets[ds.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDatasetExists, ds.Name)
	}

	if ds.CreatedAt.IsZero() {
		ds.CreatedAt = time.Now()
	}

	copied := *ds
	m.datasets[ds.Name] = &copied
	m.series[ds.Name] = make(map[string]*SeriesInfo)
	return nil
}

func (m *MemoryManager) GetDataset(ctx context.Context, name string) (*Dataset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ds, exists := m.datasets[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, name)
	}
	copied := *ds
	return &copied, nil
}

func (m *MemoryManager) ListDatasets(ctx context.Context) ([]*Dataset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Dataset, 0, len(m.datasets))
	for _, ds := range m.datasets {
		copied := *ds
		result = append(result, &copied)
	}
	return result, nil
}

func (m *MemoryManager) DeleteDataset(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.datasets, name)
	delete(m.series, name)
	return nil
}

func (m *MemoryManager) DatasetExists(ctx context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.datasets[name]
	return exists, nil
}

func (m *MemoryManager) CreateSeries(ctx context.Context, dataset string, info *SeriesInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byName, exists := m.series[dataset]
	if !exists {
		return fmt.Errorf("%w: %s", ErrDatasetNotFound, dataset)
	}
	if _, exists := byName[info.Name]; exists {
		return fmt.Errorf("%w: %s/%s", ErrSeriesExists, dataset, info.Name)
	}

	if info.CreatedAt.IsZero() {
		info.CreatedAt = time.Now()
	}

	copied := *info
	byName[info.Name] = &copied
	return nil
}

func (m *MemoryManager) GetSeries(ctx context.Context, dataset, series string) (*SeriesInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info, exists := m.series[dataset][series]
	if !exists {
		return nil, fmt.Errorf("%w: %s/%s", ErrSeriesNotFound, dataset, series)
	}
	copied := *info
	return &copied, nil
}

func (m *MemoryManager) ListSeries(ctx context.Context, dataset string) ([]*SeriesInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byName, exists := m.series[dataset]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, dataset)
	}

	result := make([]*SeriesInfo, 0, len(byName))
	for _, info := range byName {
		copied := *info
		result = append(result, &copied)
	}
	return result, nil
}

func (m *MemoryManager) DeleteSeries(ctx context.Context, dataset, series string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if byName, exists := m.series[dataset]; exists {
		delete(byName, series)
	}
	return nil
}

func (m *MemoryManager) SeriesExists(ctx context.Context, dataset, series string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.series[dataset][series]
	return exists, nil
}

func (m *MemoryManager) ValidateSeries(ctx context.Context, dataset, series string) error {
	exists, err := m.SeriesExists(ctx, dataset, series)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s/%s", ErrSeriesNotFound, dataset, series)
	}
	return nil
}

func (m *MemoryManager) TrackObservations(ctx context.Context, dataset, series string, count int, last time.Time) error {
	if count <= 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	info, exists := m.series[dataset][series]
	if !exists {
		return fmt.Errorf("%w: %s/%s", ErrSeriesNotFound, dataset, series)
	}

	info.ObservationCount += int64(count)
	if info.LastObservedAt == nil || last.After(*info.LastObservedAt) {
		t := last
		info.LastObservedAt = &t
	}
	return nil
}

func (m *MemoryManager) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.kv[key], nil
}

func (m *MemoryManager) Put(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.kv[key] = value
	return nil
}

func (m *MemoryManager) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.kv, key)
	return nil
}

func (m *MemoryManager) GetPrefix(ctx context.Context, prefix string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]string)
	for key, value := range m.kv {
		if strings.HasPrefix(key, prefix) {
			result[key] = value
		}
	}
	return result, nil
}

func (m *MemoryManager) Close() error {
	return nil
}
