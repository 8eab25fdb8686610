package repository

import (
	"context"

	"officemap-data/internal/domain"
)

// PrototypesRepository 模板/调色板Repository接口
// 编辑器按租户全量保存：Replace 语义是一个事务内先删后插
type PrototypesRepository interface {
	ListPrototypes(ctx context.Context, tenantID string) ([]*domain.Prototype, error)
	ReplacePrototypes(ctx context.Context, tenantID string, prototypes []*domain.Prototype) error

	ListColors(ctx context.Context, tenantID string) ([]*domain.Color, error)
	ReplaceColors(ctx context.Context, tenantID string, colors []*domain.Color) error
}
