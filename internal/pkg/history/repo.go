package history

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/wire"
	"gorm.io/gorm"
)

// ProviderSet provides the run repository
var ProviderSet = wire.NewSet(ProvideRunRepository)

// DefaultListLimit caps List when the filter sets no limit
const DefaultListLimit = 50

// ErrRunNotFound is returned for unknown run ids
var ErrRunNotFound = errors.New("run not found")

// RunFilter narrows List
type RunFilter struct {
	Pipeline string
	Status   string
	Limit    int
}

func (f RunFilter) match(r *Run) bool {
	return (f.Pipeline == "" || r.Pipeline == f.Pipeline) &&
		(f.Status == "" || string(r.Status) == f.Status)
}

func (f RunFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// IRunRepository persists run records. Save upserts by run id.
type IRunRepository interface {
	Save(ctx context.Context, run *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	List(ctx context.Context, f RunFilter) ([]*Run, error)
}

// ProvideRunRepository keeps history in MySQL when a database is configured
// and in memory otherwise.
func ProvideRunRepository(db *gorm.DB) (IRunRepository, error) {
	if db == nil {
		return NewMemoryRunRepo(), nil
	}
	return NewRunRepo(db)
}

// MemoryRunRepo keeps runs for the lifetime of the process
type MemoryRunRepo struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

func NewMemoryRunRepo() *MemoryRunRepo {
	return &MemoryRunRepo{runs: make(map[string]*Run)}
}

func (m *MemoryRunRepo) Save(_ context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run.Clone()
	return nil
}

func (m *MemoryRunRepo) Get(_ context.Context, id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return r.Clone(), nil
}

// List returns matching runs, newest first
func (m *MemoryRunRepo) List(_ context.Context, f RunFilter) ([]*Run, error) {
	m.mu.RLock()
	var result []*Run
	for _, r := range m.runs {
		if f.match(r) {
			result = append(result, r.Clone())
		}
	}
	m.mu.RUnlock()

	// ULIDs sort by creation time
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	if len(result) > f.limit() {
		result = result[:f.limit()]
	}
	return result, nil
}
