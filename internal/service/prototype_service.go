package service

import (
	"context"
	"fmt"
	"strings"

	"officemap-data/internal/domain"
	"officemap-data/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PrototypeService 模板/调色板服务
// 编辑器整体保存模板集与调色板；新建项缺少ID时由服务端补发UUID
type PrototypeService struct {
	protoRepo repository.PrototypesRepository
	logger    *zap.Logger
}

// NewPrototypeService 创建模板/调色板服务
func NewPrototypeService(protoRepo repository.PrototypesRepository, logger *zap.Logger) *PrototypeService {
	return &PrototypeService{
		protoRepo: protoRepo,
		logger:    logger,
	}
}

// ListPrototypes 查询租户的全部模板
func (s *PrototypeService) ListPrototypes(ctx context.Context, tenantID string) ([]*domain.Prototype, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required: %w", domain.ErrValidation)
	}
	return s.protoRepo.ListPrototypes(ctx, tenantID)
}

// SavePrototypes 全量保存租户的模板集
func (s *PrototypeService) SavePrototypes(ctx context.Context, tenantID string, prototypes []*domain.Prototype) ([]*domain.Prototype, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required: %w", domain.ErrValidation)
	}
	for _, p := range prototypes {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("prototype name must not be blank: %w", domain.ErrValidation)
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
	}
	if err := s.protoRepo.ReplacePrototypes(ctx, tenantID, prototypes); err != nil {
		return nil, err
	}
	s.logger.Info("Saved prototypes", zap.String("tenant_id", tenantID), zap.Int("count", len(prototypes)))
	return prototypes, nil
}

// ListColors 查询租户的调色板
func (s *PrototypeService) ListColors(ctx context.Context, tenantID string) ([]*domain.Color, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required: %w", domain.ErrValidation)
	}
	return s.protoRepo.ListColors(ctx, tenantID)
}

// SaveColors 全量保存租户的调色板
func (s *PrototypeService) SaveColors(ctx context.Context, tenantID string, colors []*domain.Color) ([]*domain.Color, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required: %w", domain.ErrValidation)
	}
	for _, c := range colors {
		if c.Type != "color" && c.Type != "backgroundColor" {
			return nil, fmt.Errorf("color type %q is not supported: %w", c.Type, domain.ErrValidation)
		}
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
	}
	if err := s.protoRepo.ReplaceColors(ctx, tenantID, colors); err != nil {
		return nil, err
	}
	s.logger.Info("Saved colors", zap.String("tenant_id", tenantID), zap.Int("count", len(colors)))
	return colors, nil
}
