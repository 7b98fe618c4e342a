package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/wangyingjie930/orderflow/internal/pkg/pagination"
	"github.com/wangyingjie930/orderflow/internal/service/order/internal/domain"
	"github.com/wangyingjie930/orderflow/internal/service/order/internal/domain/port"
)

// memoryRepo is an in-memory OrderRepository with a real compare-and-swap.
type memoryRepo struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]domain.Order

	findCalls int
	failWith  error
	// beforeUpdate runs inside UpdateStatus before the compare, without the lock held.
	beforeUpdate func()
	// beforeFind runs at the start of FindByID, without the lock held; an error aborts the read.
	beforeFind func(ctx context.Context) error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: map[uint64]domain.Order{}}
}

func (r *memoryRepo) Create(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	r.nextID++
	o.ID = r.nextID
	r.rows[o.ID] = *o
	return nil
}

func (r *memoryRepo) FindByID(ctx context.Context, id uint64) (*domain.Order, error) {
	if r.beforeFind != nil {
		if err := r.beforeFind(ctx); err != nil {
			return nil, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findCalls++
	if r.failWith != nil {
		return nil, r.failWith
	}
	row, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return &row, nil
}

func (r *memoryRepo) FindPage(_ context.Context, req pagination.Request) ([]*domain.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, 0, r.failWith
	}
	ids := make([]uint64, 0, len(r.rows))
	for id := range r.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := []*domain.Order{}
	for i := req.Offset(); i < len(ids) && len(out) < req.Size; i++ {
		row := r.rows[ids[i]]
		out = append(out, &row)
	}
	return out, int64(len(ids)), nil
}

func (r *memoryRepo) UpdateStatus(_ context.Context, id uint64, from, to domain.Status, at time.Time) (bool, error) {
	if r.beforeUpdate != nil {
		r.beforeUpdate()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return false, r.failWith
	}
	row, ok := r.rows[id]
	if !ok || row.Status != from {
		return false, nil
	}
	row.Status = to
	row.UpdatedAt = &at
	r.rows[id] = row
	return true, nil
}

func (r *memoryRepo) set(id uint64, status domain.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := r.rows[id]
	row.Status = status
	r.rows[id] = row
}

func (r *memoryRepo) finds() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findCalls
}

type memoryCache struct {
	mu          sync.Mutex
	items       map[uint64]domain.Order
	invalidated []uint64
	broken      bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[uint64]domain.Order{}}
}

var errCacheDown = errors.New("cache unavailable")

func (c *memoryCache) Get(_ context.Context, id uint64) (*domain.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return nil, errCacheDown
	}
	o, ok := c.items[id]
	if !ok {
		return nil, port.ErrCacheMiss
	}
	return &o, nil
}

func (c *memoryCache) Set(_ context.Context, o *domain.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return errCacheDown
	}
	c.items[o.ID] = *o
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, id uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, id)
	if c.broken {
		return errCacheDown
	}
	delete(c.items, id)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.OrderStatusChanged
	err    error
}

func (p *recordingPublisher) PublishStatusChanged(_ context.Context, e domain.OrderStatusChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}
