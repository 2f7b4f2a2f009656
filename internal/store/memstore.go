package store

import (
	"errors"
	"sort"
	"sync"
)

// MemStore implements Store in memory, for tests and dry runs.
type MemStore struct {
	mu      sync.Mutex
	nextID  int64
	runs    map[int64]*Run
	freqs   map[int64][]TermFrequency
	metrics map[int64][]Metric
}

// OpenMemory returns an empty in-memory store.
func OpenMemory() *MemStore {
	return &MemStore{
		nextID:  1,
		runs:    make(map[int64]*Run),
		freqs:   make(map[int64][]TermFrequency),
		metrics: make(map[int64][]Metric),
	}
}

func (m *MemStore) SaveRun(run *Run, freqs []TermFrequency, metrics []Metric) (int64, error) {
	if run == nil {
		return 0, errors.New("run is nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++

	cp := *run
	cp.ID = id
	cp.CreatedAt = nowUTC()
	m.runs[id] = &cp

	fs := make([]TermFrequency, len(freqs))
	copy(fs, freqs)
	for i := range fs {
		fs[i].RunID = id
	}
	sort.Slice(fs, func(i, j int) bool {
		if fs[i].Frequency != fs[j].Frequency {
			return fs[i].Frequency > fs[j].Frequency
		}
		return fs[i].Term < fs[j].Term
	})
	m.freqs[id] = fs

	ms := make([]Metric, len(metrics))
	copy(ms, metrics)
	for i := range ms {
		ms[i].RunID = id
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i].Name < ms[j].Name })
	m.metrics[id] = ms

	return id, nil
}

func (m *MemStore) GetRun(runID int64) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[runID]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *MemStore) ListRuns() ([]*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]*Run, 0, len(m.runs))
	for _, r := range m.runs {
		cp := *r
		list = append(list, &cp)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list, nil
}

func (m *MemStore) FrequenciesForRun(runID int64) ([]TermFrequency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fs := m.freqs[runID]
	out := make([]TermFrequency, len(fs))
	copy(out, fs)
	return out, nil
}

func (m *MemStore) MetricsForRun(runID int64) ([]Metric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms := m.metrics[runID]
	out := make([]Metric, len(ms))
	copy(out, ms)
	return out, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error { return nil }
