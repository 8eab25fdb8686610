package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"officemap-data/internal/domain"
)

// MemoryFloorsRepository 内存实现（DB 未就绪时的降级，也用于单元测试）
// 语义与 PostgresFloorsRepository 保持一致：保存/发布整体生效或整体不生效
type MemoryFloorsRepository struct {
	mu      sync.Mutex
	floors  []*domain.Floor
	objects map[string][]*domain.PlacedObject // key: floorID:version
}

// NewMemoryFloorsRepository 创建内存楼层Repository
func NewMemoryFloorsRepository() *MemoryFloorsRepository {
	return &MemoryFloorsRepository{
		objects: make(map[string][]*domain.PlacedObject),
	}
}

var _ FloorsRepository = (*MemoryFloorsRepository)(nil)

func objectsKey(floorID string, version int) string {
	return fmt.Sprintf("%s:%d", floorID, version)
}

func (r *MemoryFloorsRepository) GetLatestFloor(ctx context.Context, tenantID, floorID string, withPrivate bool) (*domain.Floor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	floor := r.latestLocked(tenantID, floorID, withPrivate)
	if floor == nil {
		return nil, fmt.Errorf("floor %s: %w", floorID, domain.ErrNotFound)
	}
	return floor.Clone(), nil
}

func (r *MemoryFloorsRepository) GetFloorAtVersion(ctx context.Context, tenantID, floorID string, version int) (*domain.Floor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.floors {
		if f.TenantID == tenantID && f.ID == floorID && f.Version == version {
			return f.Clone(), nil
		}
	}
	return nil, fmt.Errorf("floor %s version %d: %w", floorID, version, domain.ErrNotFound)
}

func (r *MemoryFloorsRepository) ListLatestFloors(ctx context.Context, tenantID string, withPrivate bool) ([]*domain.Floor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	latest := make(map[string]*domain.Floor)
	var order []string
	for _, f := range r.floors {
		if f.TenantID != tenantID {
			continue
		}
		if !f.Public && !withPrivate {
			continue
		}
		cur, ok := latest[f.ID]
		if !ok {
			order = append(order, f.ID)
		}
		if !ok || f.Version > cur.Version {
			latest[f.ID] = f
		}
	}
	floors := make([]*domain.Floor, 0, len(order))
	for _, id := range order {
		floors = append(floors, latest[id].Clone())
	}
	return floors, nil
}

func (r *MemoryFloorsRepository) GetObjects(ctx context.Context, floorID string, floorVersion int) ([]*domain.PlacedObject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneObjects(r.objects[objectsKey(floorID, floorVersion)]), nil
}

func (r *MemoryFloorsRepository) SaveFloorWithObjects(ctx context.Context, tenantID string, meta *domain.Floor, baseVersion int, delta domain.ObjectsDelta, editor string) (*domain.Floor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	oldVersion, lastPublic := r.versionsLocked(tenantID, meta.ID)
	newVersion := oldVersion + 1

	var oldObjects []*domain.PlacedObject
	if oldVersion >= 0 {
		oldObjects = r.objects[objectsKey(meta.ID, oldVersion)]
	}

	// 冲突先检测：内存实现没有回滚，出错前不得改动状态
	next, err := domain.ReconcileObjects(baseVersion, oldObjects, delta, newVersion)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	floor := meta.Clone()
	floor.TenantID = tenantID
	floor.Version = newVersion
	floor.Public = false
	floor.UpdateBy = editor
	floor.UpdateAt = now
	for _, obj := range next {
		obj.FloorID = meta.ID
		obj.UpdateAt = now
	}

	r.floors = append(r.floors, floor)
	r.objects[objectsKey(meta.ID, newVersion)] = next

	// 清理被取代的私有版本
	kept := r.floors[:0]
	for _, f := range r.floors {
		if f.TenantID == tenantID && f.ID == meta.ID && !f.Public &&
			f.Version > lastPublic && f.Version < newVersion {
			delete(r.objects, objectsKey(f.ID, f.Version))
			continue
		}
		kept = append(kept, f)
	}
	r.floors = kept
	for v := lastPublic + 1; v < newVersion; v++ {
		delete(r.objects, objectsKey(meta.ID, v))
	}

	result := floor.Clone()
	result.Objects = cloneObjects(next)
	return result, nil
}

func (r *MemoryFloorsRepository) PublishFloor(ctx context.Context, tenantID, floorID, editor string) (*domain.Floor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.latestLocked(tenantID, floorID, true)
	if cur == nil {
		return nil, fmt.Errorf("floor %s: %w", floorID, domain.ErrNotFound)
	}

	newVersion := cur.Version + 1
	now := time.Now().UTC()
	oldObjects := r.objects[objectsKey(floorID, cur.Version)]
	next, err := domain.ReconcileObjects(cur.Version, oldObjects, domain.ObjectsDelta{}, newVersion)
	if err != nil {
		return nil, err
	}
	for _, obj := range next {
		obj.UpdateAt = now
	}

	floor := cur.Clone()
	floor.Version = newVersion
	floor.Public = true
	floor.UpdateBy = editor
	floor.UpdateAt = now

	// 其余所有版本行被取代
	kept := r.floors[:0]
	for _, f := range r.floors {
		if f.TenantID == tenantID && f.ID == floorID {
			continue
		}
		kept = append(kept, f)
	}
	r.floors = append(kept, floor)
	r.objects[objectsKey(floorID, newVersion)] = next

	r.collectOrphansLocked()

	result := floor.Clone()
	result.Objects = cloneObjects(next)
	return result, nil
}

func (r *MemoryFloorsRepository) DeleteFloor(ctx context.Context, tenantID, floorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	found := false
	kept := r.floors[:0]
	for _, f := range r.floors {
		if f.TenantID == tenantID && f.ID == floorID {
			found = true
			delete(r.objects, objectsKey(f.ID, f.Version))
			continue
		}
		kept = append(kept, f)
	}
	r.floors = kept
	if !found {
		return fmt.Errorf("floor %s: %w", floorID, domain.ErrNotFound)
	}
	return nil
}

func (r *MemoryFloorsRepository) DeleteOrphanObjects(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.collectOrphansLocked(), nil
}

func (r *MemoryFloorsRepository) latestLocked(tenantID, floorID string, withPrivate bool) *domain.Floor {
	var latest *domain.Floor
	for _, f := range r.floors {
		if f.TenantID != tenantID || f.ID != floorID {
			continue
		}
		if !f.Public && !withPrivate {
			continue
		}
		if latest == nil || f.Version > latest.Version {
			latest = f
		}
	}
	return latest
}

func (r *MemoryFloorsRepository) versionsLocked(tenantID, floorID string) (latest, lastPublic int) {
	latest, lastPublic = -1, -1
	for _, f := range r.floors {
		if f.TenantID != tenantID || f.ID != floorID {
			continue
		}
		if f.Version > latest {
			latest = f.Version
		}
		if f.Public && f.Version > lastPublic {
			lastPublic = f.Version
		}
	}
	return latest, lastPublic
}

func (r *MemoryFloorsRepository) collectOrphansLocked() int64 {
	live := make(map[string]bool, len(r.floors))
	for _, f := range r.floors {
		live[objectsKey(f.ID, f.Version)] = true
	}
	var removed int64
	for key, objs := range r.objects {
		if !live[key] {
			removed += int64(len(objs))
			delete(r.objects, key)
		}
	}
	return removed
}

func cloneObjects(objects []*domain.PlacedObject) []*domain.PlacedObject {
	out := make([]*domain.PlacedObject, 0, len(objects))
	for _, obj := range objects {
		c := *obj
		out = append(out, &c)
	}
	return out
}
