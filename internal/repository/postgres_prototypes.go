package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"officemap-data/internal/domain"
)

// PostgresPrototypesRepository 模板/调色板Repository实现
type PostgresPrototypesRepository struct {
	db *sql.DB
}

// NewPostgresPrototypesRepository 创建模板/调色板Repository
func NewPostgresPrototypesRepository(db *sql.DB) *PostgresPrototypesRepository {
	return &PostgresPrototypesRepository{db: db}
}

var _ PrototypesRepository = (*PostgresPrototypesRepository)(nil)

// ListPrototypes 查询租户的全部模板
func (r *PostgresPrototypesRepository) ListPrototypes(ctx context.Context, tenantID string) ([]*domain.Prototype, error) {
	if tenantID == "" {
		return []*domain.Prototype{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT prototype_id, tenant_id, prototype_name, width, height,
			background_color, color, font_size, shape, ord, update_at
		FROM prototypes
		WHERE tenant_id = $1
		ORDER BY ord, prototype_id`,
		tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prototypes: %w", err)
	}
	defer rows.Close()

	var prototypes []*domain.Prototype
	for rows.Next() {
		var p domain.Prototype
		if err := rows.Scan(
			&p.ID, &p.TenantID, &p.Name, &p.Width, &p.Height,
			&p.BackgroundColor, &p.Color, &p.FontSize, &p.Shape, &p.Ord, &p.UpdateAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan prototype: %w", err)
		}
		prototypes = append(prototypes, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate prototypes: %w", err)
	}
	return prototypes, nil
}

// ReplacePrototypes 全量替换租户的模板（单事务）
func (r *PostgresPrototypesRepository) ReplacePrototypes(ctx context.Context, tenantID string, prototypes []*domain.Prototype) error {
	if tenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM prototypes WHERE tenant_id = $1`, tenantID); err != nil {
		return fmt.Errorf("failed to clear prototypes: %w", err)
	}

	now := time.Now().UTC()
	for _, p := range prototypes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO prototypes (prototype_id, tenant_id, prototype_name, width, height,
				background_color, color, font_size, shape, ord, update_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			p.ID, tenantID, p.Name, p.Width, p.Height,
			p.BackgroundColor, p.Color, p.FontSize, p.Shape, p.Ord, now)
		if err != nil {
			return fmt.Errorf("failed to insert prototype %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListColors 查询租户的调色板
func (r *PostgresPrototypesRepository) ListColors(ctx context.Context, tenantID string) ([]*domain.Color, error) {
	if tenantID == "" {
		return []*domain.Color{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT color_id, tenant_id, ord, color_type, color, update_at
		FROM colors
		WHERE tenant_id = $1
		ORDER BY color_type, ord`,
		tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list colors: %w", err)
	}
	defer rows.Close()

	var colors []*domain.Color
	for rows.Next() {
		var c domain.Color
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Ord, &c.Type, &c.Color, &c.UpdateAt); err != nil {
			return nil, fmt.Errorf("failed to scan color: %w", err)
		}
		colors = append(colors, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate colors: %w", err)
	}
	return colors, nil
}

// ReplaceColors 全量替换租户的调色板（单事务）
func (r *PostgresPrototypesRepository) ReplaceColors(ctx context.Context, tenantID string, colors []*domain.Color) error {
	if tenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM colors WHERE tenant_id = $1`, tenantID); err != nil {
		return fmt.Errorf("failed to clear colors: %w", err)
	}

	now := time.Now().UTC()
	for _, c := range colors {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO colors (color_id, tenant_id, ord, color_type, color, update_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			c.ID, tenantID, c.Ord, c.Type, c.Color, now)
		if err != nil {
			return fmt.Errorf("failed to insert color %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
