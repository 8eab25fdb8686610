package repository

import (
	"context"
	"sync"
	"time"

	"officemap-data/internal/domain"
)

// MemoryPrototypesRepository 内存实现（DB 未就绪时的降级，也用于单元测试）
type MemoryPrototypesRepository struct {
	mu         sync.Mutex
	prototypes map[string][]*domain.Prototype // tenantID -> prototypes
	colors     map[string][]*domain.Color     // tenantID -> colors
}

// NewMemoryPrototypesRepository 创建内存模板/调色板Repository
func NewMemoryPrototypesRepository() *MemoryPrototypesRepository {
	return &MemoryPrototypesRepository{
		prototypes: make(map[string][]*domain.Prototype),
		colors:     make(map[string][]*domain.Color),
	}
}

var _ PrototypesRepository = (*MemoryPrototypesRepository)(nil)

func (r *MemoryPrototypesRepository) ListPrototypes(ctx context.Context, tenantID string) ([]*domain.Prototype, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Prototype, 0, len(r.prototypes[tenantID]))
	for _, p := range r.prototypes[tenantID] {
		c := *p
		out = append(out, &c)
	}
	return out, nil
}

func (r *MemoryPrototypesRepository) ReplacePrototypes(ctx context.Context, tenantID string, prototypes []*domain.Prototype) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	stored := make([]*domain.Prototype, 0, len(prototypes))
	for _, p := range prototypes {
		c := *p
		c.TenantID = tenantID
		c.UpdateAt = now
		stored = append(stored, &c)
	}
	r.prototypes[tenantID] = stored
	return nil
}

func (r *MemoryPrototypesRepository) ListColors(ctx context.Context, tenantID string) ([]*domain.Color, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Color, 0, len(r.colors[tenantID]))
	for _, c := range r.colors[tenantID] {
		cc := *c
		out = append(out, &cc)
	}
	return out, nil
}

func (r *MemoryPrototypesRepository) ReplaceColors(ctx context.Context, tenantID string, colors []*domain.Color) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	stored := make([]*domain.Color, 0, len(colors))
	for _, c := range colors {
		cc := *c
		cc.TenantID = tenantID
		cc.UpdateAt = now
		stored = append(stored, &cc)
	}
	r.colors[tenantID] = stored
	return nil
}
