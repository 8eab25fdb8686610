package repository

import (
	"context"

	"officemap-data/internal/domain"
)

// FloorsRepository 楼层版本Repository接口
// 使用强类型领域模型，不使用map[string]any
// 写路径每个方法一个事务：要么整体生效、要么整体回滚，绝不留下部分版本
type FloorsRepository interface {
	// ========== 查询 ==========
	// GetLatestFloor 返回该楼层可见范围内的最高版本行（不含对象快照）
	// withPrivate=false 时只看 public=true 的行（访客视角）
	// 无任何版本时返回 domain.ErrNotFound
	GetLatestFloor(ctx context.Context, tenantID, floorID string, withPrivate bool) (*domain.Floor, error)

	// GetFloorAtVersion 精确版本查询（用于给查看者提供某个历史/已发布快照）
	GetFloorAtVersion(ctx context.Context, tenantID, floorID string, version int) (*domain.Floor, error)

	// ListLatestFloors 每个楼层取可见范围内的最高版本（楼层列表页）
	ListLatestFloors(ctx context.Context, tenantID string, withPrivate bool) ([]*domain.Floor, error)

	// GetObjects 读取 (floor_id, floor_version) 的完整对象快照
	GetObjects(ctx context.Context, floorID string, floorVersion int) ([]*domain.PlacedObject, error)

	// ========== 保存/发布（单事务）==========
	// SaveFloorWithObjects 写入一个新的草稿版本：
	// 插入 version = 最新版本+1 的 floors 行（public=false），用
	// domain.ReconcileObjects 把增量套到旧快照上得到新快照并整体写入，
	// 清理上个发布版本与新版本之间被取代的私有版本。
	// 冲突时返回 domain.ErrVersionConflict，事务整体回滚。
	SaveFloorWithObjects(ctx context.Context, tenantID string, meta *domain.Floor, baseVersion int, delta domain.ObjectsDelta, editor string) (*domain.Floor, error)

	// PublishFloor 把当前最新版本的内容以 public=true 重写到下一个版本号，
	// 删除该楼层的其余所有版本行（旧草稿与旧发布版本都被取代），
	// 随后在同一事务内做孤儿对象回收。
	// 楼层不存在时返回 domain.ErrNotFound。
	PublishFloor(ctx context.Context, tenantID, floorID, editor string) (*domain.Floor, error)

	// ========== 删除/维护 ==========
	// DeleteFloor 删除一个逻辑楼层的全部版本及其对象
	DeleteFloor(ctx context.Context, tenantID, floorID string) error

	// DeleteOrphanObjects 删除所属 (floor_id, floor_version) 已不存在的对象行，
	// 返回删除行数。发布事务内部会执行同样的回收，这里供维护任务随时调用。
	DeleteOrphanObjects(ctx context.Context) (int64, error)
}
