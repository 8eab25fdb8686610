package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"officemap-data/internal/domain"
)

// PostgresFloorsRepository 楼层版本Repository实现（强类型版本）
type PostgresFloorsRepository struct {
	db *sql.DB
}

// NewPostgresFloorsRepository 创建楼层版本Repository
func NewPostgresFloorsRepository(db *sql.DB) *PostgresFloorsRepository {
	return &PostgresFloorsRepository{db: db}
}

// 确保实现了接口
var _ FloorsRepository = (*PostgresFloorsRepository)(nil)

const floorColumns = `tenant_id, floor_id, version, floor_name, ord, image,
	width, height, real_width, real_height, public, update_by, update_at`

const objectColumns = `floor_id, floor_version, object_id, object_name, object_type,
	x, y, width, height, background_color, font_size, color, bold, url, shape,
	person_id, modified_version, update_at`

// GetLatestFloor 获取楼层最新版本（withPrivate=false 时仅已发布版本）
func (r *PostgresFloorsRepository) GetLatestFloor(ctx context.Context, tenantID, floorID string, withPrivate bool) (*domain.Floor, error) {
	if tenantID == "" || floorID == "" {
		return nil, fmt.Errorf("tenant_id and floor_id are required: %w", domain.ErrNotFound)
	}

	query := `
		SELECT ` + floorColumns + `
		FROM floors
		WHERE tenant_id = $1 AND floor_id = $2 AND (public = true OR $3)
		ORDER BY version DESC
		LIMIT 1
	`

	floor, err := scanFloor(r.db.QueryRowContext(ctx, query, tenantID, floorID, withPrivate))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("floor %s: %w", floorID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get latest floor: %w", err)
	}
	return floor, nil
}

// GetFloorAtVersion 获取楼层指定版本
func (r *PostgresFloorsRepository) GetFloorAtVersion(ctx context.Context, tenantID, floorID string, version int) (*domain.Floor, error) {
	query := `
		SELECT ` + floorColumns + `
		FROM floors
		WHERE tenant_id = $1 AND floor_id = $2 AND version = $3
	`

	floor, err := scanFloor(r.db.QueryRowContext(ctx, query, tenantID, floorID, version))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("floor %s version %d: %w", floorID, version, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get floor at version: %w", err)
	}
	return floor, nil
}

// ListLatestFloors 每个楼层取可见范围内的最高版本
func (r *PostgresFloorsRepository) ListLatestFloors(ctx context.Context, tenantID string, withPrivate bool) ([]*domain.Floor, error) {
	if tenantID == "" {
		return []*domain.Floor{}, nil
	}

	query := `
		SELECT DISTINCT ON (floor_id) ` + floorColumns + `
		FROM floors
		WHERE tenant_id = $1 AND (public = true OR $2)
		ORDER BY floor_id, version DESC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, withPrivate)
	if err != nil {
		return nil, fmt.Errorf("failed to list floors: %w", err)
	}
	defer rows.Close()

	var floors []*domain.Floor
	for rows.Next() {
		floor, err := scanFloor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan floor: %w", err)
		}
		floors = append(floors, floor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate floors: %w", err)
	}
	return floors, nil
}

// GetObjects 读取完整对象快照
func (r *PostgresFloorsRepository) GetObjects(ctx context.Context, floorID string, floorVersion int) ([]*domain.PlacedObject, error) {
	return queryObjects(ctx, r.db, floorID, floorVersion)
}

// SaveFloorWithObjects 写入新草稿版本（单事务）
func (r *PostgresFloorsRepository) SaveFloorWithObjects(ctx context.Context, tenantID string, meta *domain.Floor, baseVersion int, delta domain.ObjectsDelta, editor string) (*domain.Floor, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 锁定该楼层现有版本行，同一楼层的并发写入在这里串行化
	oldVersion, lastPublic, err := lockFloorVersions(ctx, tx, tenantID, meta.ID)
	if err != nil {
		return nil, err
	}
	newVersion := oldVersion + 1
	now := time.Now().UTC()

	// 先插入新版本行；若后续冲突，随事务一起回滚
	floor := meta.Clone()
	floor.TenantID = tenantID
	floor.Version = newVersion
	floor.Public = false
	floor.UpdateBy = editor
	floor.UpdateAt = now
	if err := insertFloor(ctx, tx, floor); err != nil {
		return nil, err
	}

	var oldObjects []*domain.PlacedObject
	if oldVersion >= 0 {
		oldObjects, err = queryObjects(ctx, tx, meta.ID, oldVersion)
		if err != nil {
			return nil, err
		}
	}

	next, err := domain.ReconcileObjects(baseVersion, oldObjects, delta, newVersion)
	if err != nil {
		return nil, err
	}
	for _, obj := range next {
		obj.FloorID = meta.ID
		obj.UpdateAt = now
	}
	if err := insertObjects(ctx, tx, next); err != nil {
		return nil, err
	}

	// 清理被取代的私有版本：发布边界以内只保留最新草稿
	_, err = tx.ExecContext(ctx, `
		DELETE FROM floors
		WHERE tenant_id = $1 AND floor_id = $2 AND public = false
			AND version > $3 AND version < $4`,
		tenantID, meta.ID, lastPublic, newVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to delete superseded drafts: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		DELETE FROM objects
		WHERE floor_id = $1 AND floor_version > $2 AND floor_version < $3`,
		meta.ID, lastPublic, newVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to delete superseded objects: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	floor.Objects = next
	return floor, nil
}

// PublishFloor 发布当前最新版本（单事务，含孤儿对象回收）
func (r *PostgresFloorsRepository) PublishFloor(ctx context.Context, tenantID, floorID, editor string) (*domain.Floor, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		SELECT ` + floorColumns + `
		FROM floors
		WHERE tenant_id = $1 AND floor_id = $2
		ORDER BY version DESC
		LIMIT 1
		FOR UPDATE
	`
	cur, err := scanFloor(tx.QueryRowContext(ctx, query, tenantID, floorID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("floor %s: %w", floorID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get floor for publish: %w", err)
	}

	newVersion := cur.Version + 1
	now := time.Now().UTC()

	floor := cur.Clone()
	floor.Version = newVersion
	floor.Public = true
	floor.UpdateBy = editor
	floor.UpdateAt = now
	if err := insertFloor(ctx, tx, floor); err != nil {
		return nil, err
	}

	// 旧草稿与旧发布版本一并移除：每个楼层任何时刻只有一行 public=true
	_, err = tx.ExecContext(ctx, `
		DELETE FROM floors
		WHERE tenant_id = $1 AND floor_id = $2 AND version <> $3`,
		tenantID, floorID, newVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to delete superseded revisions: %w", err)
	}

	oldObjects, err := queryObjects(ctx, tx, floorID, cur.Version)
	if err != nil {
		return nil, err
	}
	// 空增量把快照原样前移，不会冲突
	next, err := domain.ReconcileObjects(cur.Version, oldObjects, domain.ObjectsDelta{}, newVersion)
	if err != nil {
		return nil, err
	}
	if err := insertObjects(ctx, tx, next); err != nil {
		return nil, err
	}

	if _, err := deleteOrphanObjects(ctx, tx); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	floor.Objects = next
	return floor, nil
}

// DeleteFloor 删除楼层全部版本及其对象
func (r *PostgresFloorsRepository) DeleteFloor(ctx context.Context, tenantID, floorID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM floors WHERE tenant_id = $1 AND floor_id = $2`,
		tenantID, floorID)
	if err != nil {
		return fmt.Errorf("failed to delete floor: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("floor %s: %w", floorID, domain.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM objects WHERE floor_id = $1`, floorID); err != nil {
		return fmt.Errorf("failed to delete floor objects: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteOrphanObjects 全表集合差回收
func (r *PostgresFloorsRepository) DeleteOrphanObjects(ctx context.Context) (int64, error) {
	return deleteOrphanObjects(ctx, r.db)
}

// ============================================
// 内部helper（*sql.DB 与 *sql.Tx 共用）
// ============================================

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFloor(row rowScanner) (*domain.Floor, error) {
	var floor domain.Floor
	var image sql.NullString
	var updateBy sql.NullString

	err := row.Scan(
		&floor.TenantID,
		&floor.ID,
		&floor.Version,
		&floor.Name,
		&floor.Ord,
		&image,
		&floor.Width,
		&floor.Height,
		&floor.RealWidth,
		&floor.RealHeight,
		&floor.Public,
		&updateBy,
		&floor.UpdateAt,
	)
	if err != nil {
		return nil, err
	}
	if image.Valid {
		floor.Image = image.String
	}
	if updateBy.Valid {
		floor.UpdateBy = updateBy.String
	}
	return &floor, nil
}

func insertFloor(ctx context.Context, q queryer, f *domain.Floor) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO floors (`+floorColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		f.TenantID, f.ID, f.Version, f.Name, f.Ord, nullIfEmpty(f.Image),
		f.Width, f.Height, f.RealWidth, f.RealHeight, f.Public, f.UpdateBy, f.UpdateAt)
	if err != nil {
		return fmt.Errorf("failed to insert floor revision: %w", err)
	}
	return nil
}

func queryObjects(ctx context.Context, q queryer, floorID string, floorVersion int) ([]*domain.PlacedObject, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+objectColumns+`
		FROM objects
		WHERE floor_id = $1 AND floor_version = $2
		ORDER BY object_id`,
		floorID, floorVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to query objects: %w", err)
	}
	defer rows.Close()

	objects := []*domain.PlacedObject{}
	for rows.Next() {
		var obj domain.PlacedObject
		var url, personID sql.NullString
		if err := rows.Scan(
			&obj.FloorID,
			&obj.FloorVersion,
			&obj.ID,
			&obj.Name,
			&obj.Type,
			&obj.X,
			&obj.Y,
			&obj.Width,
			&obj.Height,
			&obj.BackgroundColor,
			&obj.FontSize,
			&obj.Color,
			&obj.Bold,
			&url,
			&obj.Shape,
			&personID,
			&obj.ModifiedVersion,
			&obj.UpdateAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan object: %w", err)
		}
		if url.Valid {
			obj.URL = url.String
		}
		if personID.Valid {
			obj.PersonID = personID.String
		}
		objects = append(objects, &obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate objects: %w", err)
	}
	return objects, nil
}

func insertObjects(ctx context.Context, q queryer, objects []*domain.PlacedObject) error {
	for _, obj := range objects {
		_, err := q.ExecContext(ctx, `
			INSERT INTO objects (`+objectColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
			obj.FloorID, obj.FloorVersion, obj.ID, obj.Name, obj.Type,
			obj.X, obj.Y, obj.Width, obj.Height, obj.BackgroundColor,
			obj.FontSize, obj.Color, obj.Bold, nullIfEmpty(obj.URL), obj.Shape,
			nullIfEmpty(obj.PersonID), obj.ModifiedVersion, obj.UpdateAt)
		if err != nil {
			return fmt.Errorf("failed to insert object %s: %w", obj.ID, err)
		}
	}
	return nil
}

// lockFloorVersions 锁定楼层的全部版本行并返回 (最新版本, 最近发布版本)，均无时为 -1
func lockFloorVersions(ctx context.Context, tx *sql.Tx, tenantID, floorID string) (int, int, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT version, public
		FROM floors
		WHERE tenant_id = $1 AND floor_id = $2
		ORDER BY version
		FOR UPDATE`,
		tenantID, floorID)
	if err != nil {
		return -1, -1, fmt.Errorf("failed to lock floor versions: %w", err)
	}
	defer rows.Close()

	latest, lastPublic := -1, -1
	for rows.Next() {
		var version int
		var public bool
		if err := rows.Scan(&version, &public); err != nil {
			return -1, -1, fmt.Errorf("failed to scan floor version: %w", err)
		}
		if version > latest {
			latest = version
		}
		if public && version > lastPublic {
			lastPublic = version
		}
	}
	if err := rows.Err(); err != nil {
		return -1, -1, fmt.Errorf("failed to iterate floor versions: %w", err)
	}
	return latest, lastPublic, nil
}

func deleteOrphanObjects(ctx context.Context, q queryer) (int64, error) {
	result, err := q.ExecContext(ctx, `
		DELETE FROM objects o
		WHERE NOT EXISTS (
			SELECT 1 FROM floors f
			WHERE f.floor_id = o.floor_id AND f.version = o.floor_version
		)`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphan objects: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
