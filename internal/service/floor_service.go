package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"officemap-data/internal/domain"
	"officemap-data/internal/repository"
	"officemap-data/internal/store"

	"go.uber.org/zap"
)

// PublishNotifier 发布事件通知（大厅展示屏等订阅方），可选
type PublishNotifier interface {
	FloorPublished(ctx context.Context, floor *domain.Floor) error
}

// FloorService 楼层版本服务
// 版本号与 public 标志只在这条路径上被决定；访客读走已发布缓存
type FloorService struct {
	floorRepo repository.FloorsRepository
	cache     store.KV
	cacheTTL  time.Duration
	notifier  PublishNotifier // 可为 nil
	logger    *zap.Logger
}

// NewFloorService 创建楼层版本服务
func NewFloorService(floorRepo repository.FloorsRepository, cache store.KV, cacheTTL time.Duration, notifier PublishNotifier, logger *zap.Logger) *FloorService {
	return &FloorService{
		floorRepo: floorRepo,
		cache:     cache,
		cacheTTL:  cacheTTL,
		notifier:  notifier,
		logger:    logger,
	}
}

// SaveDraftRequest 保存草稿请求
type SaveDraftRequest struct {
	TenantID string
	Editor   string
	// Floor 楼层元数据；Floor.ID 为楼层稳定ID
	Floor *domain.Floor
	// BaseVersion 客户端开始编辑时看到的楼层版本（首次保存为 -1）
	// 必须由客户端显式回传，服务端不做推断
	BaseVersion int
	Delta       domain.ObjectsDelta
}

// SaveDraft 保存草稿：写入一个新的私有版本
// 冲突返回 domain.ErrVersionConflict，调用方重新拉取最新版本后重试
func (s *FloorService) SaveDraft(ctx context.Context, req SaveDraftRequest) (*domain.Floor, error) {
	if req.TenantID == "" {
		return nil, fmt.Errorf("tenant_id is required: %w", domain.ErrValidation)
	}
	if req.Floor == nil || req.Floor.ID == "" {
		return nil, fmt.Errorf("floor id is required: %w", domain.ErrValidation)
	}
	if strings.TrimSpace(req.Floor.Name) == "" {
		return nil, fmt.Errorf("floor name must not be blank: %w", domain.ErrValidation)
	}

	floor, err := s.floorRepo.SaveFloorWithObjects(ctx, req.TenantID, req.Floor, req.BaseVersion, req.Delta, req.Editor)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Saved floor draft",
		zap.String("tenant_id", req.TenantID),
		zap.String("floor_id", floor.ID),
		zap.Int("version", floor.Version),
		zap.Int("base_version", req.BaseVersion),
		zap.Int("objects", len(floor.Objects)),
		zap.String("editor", req.Editor),
	)
	return floor, nil
}

// Publish 发布：把当前最新版本提升为访客可见的已发布版本
func (s *FloorService) Publish(ctx context.Context, tenantID, floorID, editor string) (*domain.Floor, error) {
	if tenantID == "" || floorID == "" {
		return nil, fmt.Errorf("tenant_id and floor_id are required: %w", domain.ErrValidation)
	}

	floor, err := s.floorRepo.PublishFloor(ctx, tenantID, floorID, editor)
	if err != nil {
		return nil, err
	}

	// 旧的已发布缓存失效；下次访客读取时重建
	if err := s.cache.Del(ctx, publicFloorKey(tenantID, floorID)); err != nil {
		s.logger.Warn("Failed to invalidate floor cache", zap.String("floor_id", floorID), zap.Error(err))
	}

	if s.notifier != nil {
		if err := s.notifier.FloorPublished(ctx, floor); err != nil {
			// 通知失败不影响发布结果
			s.logger.Warn("Failed to notify floor published", zap.String("floor_id", floorID), zap.Error(err))
		}
	}

	s.logger.Info("Published floor",
		zap.String("tenant_id", tenantID),
		zap.String("floor_id", floor.ID),
		zap.Int("version", floor.Version),
		zap.String("editor", editor),
	)
	return floor, nil
}

// GetFloor 读取楼层最新版本（含对象快照）
// withPrivate=false 走已发布缓存（访客视角）
func (s *FloorService) GetFloor(ctx context.Context, tenantID, floorID string, withPrivate bool) (*domain.Floor, error) {
	if tenantID == "" || floorID == "" {
		return nil, fmt.Errorf("tenant_id and floor_id are required: %w", domain.ErrValidation)
	}

	if !withPrivate {
		if cached, err := s.cache.Get(ctx, publicFloorKey(tenantID, floorID)); err == nil {
			var floor domain.Floor
			if err := json.Unmarshal([]byte(cached), &floor); err == nil {
				return &floor, nil
			}
			// 缓存内容损坏：当作miss，走存储重建
			s.logger.Warn("Dropping corrupted floor cache entry", zap.String("floor_id", floorID))
			_ = s.cache.Del(ctx, publicFloorKey(tenantID, floorID))
		}
	}

	floor, err := s.floorRepo.GetLatestFloor(ctx, tenantID, floorID, withPrivate)
	if err != nil {
		return nil, err
	}
	floor.Objects, err = s.floorRepo.GetObjects(ctx, floor.ID, floor.Version)
	if err != nil {
		return nil, err
	}

	if !withPrivate {
		if data, err := json.Marshal(floor); err == nil {
			if err := s.cache.Set(ctx, publicFloorKey(tenantID, floorID), string(data), s.cacheTTL); err != nil {
				s.logger.Warn("Failed to cache published floor", zap.String("floor_id", floorID), zap.Error(err))
			}
		}
	}
	return floor, nil
}

// GetFloorAtVersion 读取楼层指定版本（含对象快照）
// withPrivate=false 时只允许访问已发布版本
func (s *FloorService) GetFloorAtVersion(ctx context.Context, tenantID, floorID string, version int, withPrivate bool) (*domain.Floor, error) {
	if tenantID == "" || floorID == "" {
		return nil, fmt.Errorf("tenant_id and floor_id are required: %w", domain.ErrValidation)
	}

	floor, err := s.floorRepo.GetFloorAtVersion(ctx, tenantID, floorID, version)
	if err != nil {
		return nil, err
	}
	if !floor.Public && !withPrivate {
		return nil, fmt.Errorf("floor %s version %d: %w", floorID, version, domain.ErrNotFound)
	}
	floor.Objects, err = s.floorRepo.GetObjects(ctx, floor.ID, floor.Version)
	if err != nil {
		return nil, err
	}
	return floor, nil
}

// ListFloors 楼层列表（仅元数据，不带对象快照）
func (s *FloorService) ListFloors(ctx context.Context, tenantID string, withPrivate bool) ([]*domain.Floor, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required: %w", domain.ErrValidation)
	}
	return s.floorRepo.ListLatestFloors(ctx, tenantID, withPrivate)
}

// DeleteFloor 删除整个逻辑楼层（全部版本及对象）
func (s *FloorService) DeleteFloor(ctx context.Context, tenantID, floorID string) error {
	if tenantID == "" || floorID == "" {
		return fmt.Errorf("tenant_id and floor_id are required: %w", domain.ErrValidation)
	}
	if err := s.floorRepo.DeleteFloor(ctx, tenantID, floorID); err != nil {
		return err
	}
	if err := s.cache.Del(ctx, publicFloorKey(tenantID, floorID)); err != nil {
		s.logger.Warn("Failed to invalidate floor cache", zap.String("floor_id", floorID), zap.Error(err))
	}
	s.logger.Info("Deleted floor", zap.String("tenant_id", tenantID), zap.String("floor_id", floorID))
	return nil
}

// CollectGarbage 孤儿对象回收（维护任务）
func (s *FloorService) CollectGarbage(ctx context.Context) (int64, error) {
	removed, err := s.floorRepo.DeleteOrphanObjects(ctx)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("Collected orphan objects", zap.Int64("removed", removed))
	}
	return removed, nil
}

func publicFloorKey(tenantID, floorID string) string {
	return fmt.Sprintf("officemap:floor:public:%s:%s", tenantID, floorID)
}
