// +build integration

package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strconv"
	"testing"

	"officemap-data/internal/config"
	"officemap-data/internal/database"
	"officemap-data/internal/domain"

	"github.com/google/uuid"
)

// 获取测试数据库连接
func getTestDBForFloors(t *testing.T) *sql.DB {
	cfg := &config.DatabaseConfig{
		Host:     getEnv("TEST_DB_HOST", "localhost"),
		Port:     getEnvInt("TEST_DB_PORT", 5432),
		User:     getEnv("TEST_DB_USER", "postgres"),
		Password: getEnv("TEST_DB_PASSWORD", "postgres"),
		Database: getEnv("TEST_DB_NAME", "officemap"),
		SSLMode:  getEnv("TEST_DB_SSLMODE", "disable"),
	}

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
		return nil
	}

	if err := db.Ping(); err != nil {
		t.Skipf("Skipping integration test: cannot ping database: %v", err)
		return nil
	}

	return db
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// 清理测试数据（objects 没有租户列，经由楼层行删除）
func cleanupTestFloors(t *testing.T, db *sql.DB, tenantID string) {
	db.Exec(`DELETE FROM objects WHERE floor_id IN (SELECT floor_id FROM floors WHERE tenant_id = $1)`, tenantID)
	db.Exec(`DELETE FROM floors WHERE tenant_id = $1`, tenantID)
}

func TestPostgresFloorsRepository_SaveAndPublish(t *testing.T) {
	db := getTestDBForFloors(t)
	if db == nil {
		return
	}
	defer db.Close()

	repo := NewPostgresFloorsRepository(db)
	ctx := context.Background()
	tenantID := uuid.NewString()
	floorID := "floor-" + uuid.NewString()
	defer cleanupTestFloors(t, db, tenantID)

	meta := &domain.Floor{ID: floorID, Name: "Integration Floor", Ord: 1, Width: 1200, Height: 800}

	// 首存
	floor, err := repo.SaveFloorWithObjects(ctx, tenantID, meta, -1, domain.ObjectsDelta{}, "tester")
	if err != nil {
		t.Fatalf("SaveFloorWithObjects failed: %v", err)
	}
	if floor.Version != 0 || floor.Public {
		t.Fatalf("Expected private version 0, got version=%d public=%v", floor.Version, floor.Public)
	}

	// 加对象
	floor, err = repo.SaveFloorWithObjects(ctx, tenantID, meta, 0, domain.ObjectsDelta{
		Added: []*domain.PlacedObject{{ID: "o1", Name: "Desk 1", Type: "desk", X: 10, Y: 20, Width: 120, Height: 60, Shape: "rectangle"}},
	}, "tester")
	if err != nil {
		t.Fatalf("SaveFloorWithObjects (add) failed: %v", err)
	}
	if floor.Version != 1 {
		t.Fatalf("Expected version 1, got %d", floor.Version)
	}
	if len(floor.Objects) != 1 || floor.Objects[0].ModifiedVersion != 1 {
		t.Fatalf("Expected 1 object stamped at version 1, got %+v", floor.Objects)
	}

	// 发布
	published, err := repo.PublishFloor(ctx, tenantID, floorID, "tester")
	if err != nil {
		t.Fatalf("PublishFloor failed: %v", err)
	}
	if published.Version != 2 || !published.Public {
		t.Fatalf("Expected public version 2, got version=%d public=%v", published.Version, published.Public)
	}
	if len(published.Objects) != 1 || published.Objects[0].ModifiedVersion != 1 {
		t.Fatalf("Expected object carried forward with modified_version 1, got %+v", published.Objects)
	}

	// 发布后只剩一行
	var rows int
	if err := db.QueryRow(`SELECT COUNT(*) FROM floors WHERE tenant_id = $1 AND floor_id = $2`, tenantID, floorID).Scan(&rows); err != nil {
		t.Fatalf("Count floors failed: %v", err)
	}
	if rows != 1 {
		t.Errorf("Expected exactly 1 floor row after publish, got %d", rows)
	}
	var drafts int
	if err := db.QueryRow(`SELECT COUNT(*) FROM floors WHERE tenant_id = $1 AND floor_id = $2 AND public = false`, tenantID, floorID).Scan(&drafts); err != nil {
		t.Fatalf("Count drafts failed: %v", err)
	}
	if drafts != 0 {
		t.Errorf("Expected 0 draft rows after publish, got %d", drafts)
	}

	t.Logf("✅ SaveAndPublish test passed: floorID=%s", floorID)
}

func TestPostgresFloorsRepository_VersionConflict(t *testing.T) {
	db := getTestDBForFloors(t)
	if db == nil {
		return
	}
	defer db.Close()

	repo := NewPostgresFloorsRepository(db)
	ctx := context.Background()
	tenantID := uuid.NewString()
	floorID := "floor-" + uuid.NewString()
	defer cleanupTestFloors(t, db, tenantID)

	meta := &domain.Floor{ID: floorID, Name: "Conflict Floor"}
	if _, err := repo.SaveFloorWithObjects(ctx, tenantID, meta, -1, domain.ObjectsDelta{}, "tester"); err != nil {
		t.Fatalf("SaveFloorWithObjects failed: %v", err)
	}
	if _, err := repo.SaveFloorWithObjects(ctx, tenantID, meta, 0, domain.ObjectsDelta{
		Added: []*domain.PlacedObject{{ID: "o1", Name: "Desk 1", Type: "desk"}},
	}, "tester"); err != nil {
		t.Fatalf("SaveFloorWithObjects (add) failed: %v", err)
	}

	// 过期的 base 上删除 o1 必须整体拒绝
	_, err := repo.SaveFloorWithObjects(ctx, tenantID, meta, 0, domain.ObjectsDelta{
		Deleted: []string{"o1"},
	}, "tester")
	if !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("Expected ErrVersionConflict, got %v", err)
	}

	// 冲突不推进版本
	latest, err := repo.GetLatestFloor(ctx, tenantID, floorID, true)
	if err != nil {
		t.Fatalf("GetLatestFloor failed: %v", err)
	}
	if latest.Version != 1 {
		t.Errorf("Expected version to stay at 1 after conflict, got %d", latest.Version)
	}

	t.Logf("✅ VersionConflict test passed: floorID=%s", floorID)
}

func TestPostgresFloorsRepository_GuestVisibility(t *testing.T) {
	db := getTestDBForFloors(t)
	if db == nil {
		return
	}
	defer db.Close()

	repo := NewPostgresFloorsRepository(db)
	ctx := context.Background()
	tenantID := uuid.NewString()
	floorID := "floor-" + uuid.NewString()
	defer cleanupTestFloors(t, db, tenantID)

	meta := &domain.Floor{ID: floorID, Name: "Guest Floor"}
	if _, err := repo.SaveFloorWithObjects(ctx, tenantID, meta, -1, domain.ObjectsDelta{}, "tester"); err != nil {
		t.Fatalf("SaveFloorWithObjects failed: %v", err)
	}

	// 草稿对访客不可见
	if _, err := repo.GetLatestFloor(ctx, tenantID, floorID, false); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for guest before publish, got %v", err)
	}
	floors, err := repo.ListLatestFloors(ctx, tenantID, false)
	if err != nil {
		t.Fatalf("ListLatestFloors failed: %v", err)
	}
	if len(floors) != 0 {
		t.Errorf("Expected empty guest list before publish, got %d floors", len(floors))
	}

	if _, err := repo.PublishFloor(ctx, tenantID, floorID, "tester"); err != nil {
		t.Fatalf("PublishFloor failed: %v", err)
	}
	pub, err := repo.GetLatestFloor(ctx, tenantID, floorID, false)
	if err != nil {
		t.Fatalf("GetLatestFloor after publish failed: %v", err)
	}
	if !pub.Public || pub.Version != 1 {
		t.Errorf("Expected public version 1, got version=%d public=%v", pub.Version, pub.Public)
	}

	t.Logf("✅ GuestVisibility test passed: floorID=%s", floorID)
}

func TestPostgresFloorsRepository_DeleteOrphanObjects(t *testing.T) {
	db := getTestDBForFloors(t)
	if db == nil {
		return
	}
	defer db.Close()

	repo := NewPostgresFloorsRepository(db)
	ctx := context.Background()
	orphanFloorID := "orphan-" + uuid.NewString()

	// 人为制造没有楼层行的对象
	_, err := db.Exec(`
		INSERT INTO objects (floor_id, floor_version, object_id, object_name, object_type,
			x, y, width, height, background_color, font_size, color, bold, url, shape,
			person_id, modified_version, update_at)
		VALUES ($1, 0, 'g1', 'Ghost', 'desk', 0, 0, 10, 10, '', 12, '', false, NULL, 'rectangle', NULL, 0, NOW())`,
		orphanFloorID)
	if err != nil {
		t.Fatalf("Insert orphan object failed: %v", err)
	}
	defer db.Exec(`DELETE FROM objects WHERE floor_id = $1`, orphanFloorID)

	removed, err := repo.DeleteOrphanObjects(ctx)
	if err != nil {
		t.Fatalf("DeleteOrphanObjects failed: %v", err)
	}
	if removed < 1 {
		t.Errorf("Expected at least 1 orphan removed, got %d", removed)
	}

	var left int
	if err := db.QueryRow(`SELECT COUNT(*) FROM objects WHERE floor_id = $1`, orphanFloorID).Scan(&left); err != nil {
		t.Fatalf("Count orphans failed: %v", err)
	}
	if left != 0 {
		t.Errorf("Expected orphan rows removed, %d left", left)
	}

	t.Logf("✅ DeleteOrphanObjects test passed: removed=%d", removed)
}

func TestPostgresFloorsRepository_DeleteFloor(t *testing.T) {
	db := getTestDBForFloors(t)
	if db == nil {
		return
	}
	defer db.Close()

	repo := NewPostgresFloorsRepository(db)
	ctx := context.Background()
	tenantID := uuid.NewString()
	floorID := "floor-" + uuid.NewString()
	defer cleanupTestFloors(t, db, tenantID)

	meta := &domain.Floor{ID: floorID, Name: "Doomed Floor"}
	if _, err := repo.SaveFloorWithObjects(ctx, tenantID, meta, -1, domain.ObjectsDelta{
		Added: []*domain.PlacedObject{{ID: "o1", Name: "Desk 1", Type: "desk"}},
	}, "tester"); err != nil {
		t.Fatalf("SaveFloorWithObjects failed: %v", err)
	}

	if err := repo.DeleteFloor(ctx, tenantID, floorID); err != nil {
		t.Fatalf("DeleteFloor failed: %v", err)
	}
	if _, err := repo.GetLatestFloor(ctx, tenantID, floorID, true); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.DeleteFloor(ctx, tenantID, floorID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound on second delete, got %v", err)
	}

	t.Logf("✅ DeleteFloor test passed: floorID=%s", floorID)
}
