package leads

import (
	"context"
	"slices"
	"sync"
)

// DefaultCapacity is how many leads a store keeps before dropping the oldest.
const DefaultCapacity = 100

// Repository is the append-only store of finished leads. List is newest
// first; Get returns ErrLeadNotFound for an unknown id.
type Repository interface {
	Save(ctx context.Context, rec *LeadRecord) (string, error)
	List(ctx context.Context, limit int) ([]*LeadRecord, error)
	Get(ctx context.Context, id string) (*LeadRecord, error)
	Delete(ctx context.Context, id string) (bool, error)
	Clear(ctx context.Context) error
}

// InMemoryRepository keeps the newest leads in process memory.
type InMemoryRepository struct {
	validator *Validator
	capacity  int

	mu    sync.RWMutex
	leads []*LeadRecord
}

// NewInMemoryRepository creates a store capped at capacity records; zero or
// less means DefaultCapacity.
func NewInMemoryRepository(capacity int) *InMemoryRepository {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &InMemoryRepository{
		validator: NewValidator(),
		capacity:  capacity,
	}
}

func (r *InMemoryRepository) Save(ctx context.Context, rec *LeadRecord) (string, error) {
	if err := r.validator.Validate(rec); err != nil {
		return "", err
	}
	stored := clone(rec)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.leads = slices.Insert(r.leads, 0, stored)
	if len(r.leads) > r.capacity {
		r.leads = r.leads[:r.capacity]
	}
	return stored.ID, nil
}

func (r *InMemoryRepository) List(ctx context.Context, limit int) ([]*LeadRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.leads)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*LeadRecord, 0, n)
	for _, rec := range r.leads[:n] {
		out = append(out, clone(rec))
	}
	return out, nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*LeadRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.leads {
		if rec.ID == id {
			return clone(rec), nil
		}
	}
	return nil, ErrLeadNotFound
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.IndexFunc(r.leads, func(rec *LeadRecord) bool { return rec.ID == id })
	if i < 0 {
		return false, nil
	}
	r.leads = slices.Delete(r.leads, i, i+1)
	return true, nil
}

func (r *InMemoryRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	r.leads = nil
	r.mu.Unlock()
	return nil
}

// clone copies the slices a caller could otherwise mutate in place.
func clone(rec *LeadRecord) *LeadRecord {
	c := *rec
	c.Reasons = slices.Clone(rec.Reasons)
	c.Transcript = slices.Clone(rec.Transcript)
	return &c
}
