package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"officemap-data/internal/domain"
	"officemap-data/internal/repository"
	"officemap-data/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeNotifier struct {
	published []string
	err       error
}

func (n *fakeNotifier) FloorPublished(ctx context.Context, floor *domain.Floor) error {
	if n.err != nil {
		return n.err
	}
	n.published = append(n.published, fmt.Sprintf("%s@%d", floor.ID, floor.Version))
	return nil
}

func newTestFloorService() (*FloorService, *fakeNotifier, store.KV) {
	notifier := &fakeNotifier{}
	cache := store.NewMemoryKV()
	svc := NewFloorService(repository.NewMemoryFloorsRepository(), cache, time.Minute, notifier, zap.NewNop())
	return svc, notifier, cache
}

func floorMeta(id, name string) *domain.Floor {
	return &domain.Floor{ID: id, Name: name, Ord: 1, Width: 1200, Height: 800}
}

func deskObject(id string) *domain.PlacedObject {
	return &domain.PlacedObject{
		ID:     id,
		Name:   "Desk " + id,
		Type:   "desk",
		X:      10,
		Y:      20,
		Width:  120,
		Height: 60,
		Shape:  "rectangle",
	}
}

func TestFloorService_SaveDraft_Validation(t *testing.T) {
	svc, _, _ := newTestFloorService()
	ctx := context.Background()

	cases := []struct {
		name string
		req  SaveDraftRequest
	}{
		{"missing tenant", SaveDraftRequest{Floor: floorMeta("f1", "Floor 1"), BaseVersion: -1}},
		{"nil floor", SaveDraftRequest{TenantID: "t1", BaseVersion: -1}},
		{"missing floor id", SaveDraftRequest{TenantID: "t1", Floor: floorMeta("", "Floor 1"), BaseVersion: -1}},
		{"blank name", SaveDraftRequest{TenantID: "t1", Floor: floorMeta("f1", "   "), BaseVersion: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SaveDraft(ctx, tc.req)
			require.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	// 校验失败不得留下任何版本
	_, err := svc.GetFloor(ctx, "t1", "f1", true)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFloorService_SaveDraft_VersionSequence(t *testing.T) {
	svc, _, _ := newTestFloorService()
	ctx := context.Background()

	base := -1
	for want := 0; want < 5; want++ {
		floor, err := svc.SaveDraft(ctx, SaveDraftRequest{
			TenantID:    "t1",
			Editor:      "alice",
			Floor:       floorMeta("f1", "Floor 1"),
			BaseVersion: base,
		})
		require.NoError(t, err)
		require.Equal(t, want, floor.Version)
		require.False(t, floor.Public)
		require.Equal(t, "alice", floor.UpdateBy)
		base = floor.Version
	}
}

// 编辑主流程：首存 → 加对象 → 发布 → 过期增量被拒
func TestFloorService_EditorWorkflow(t *testing.T) {
	svc, _, _ := newTestFloorService()
	ctx := context.Background()

	draft, err := svc.SaveDraft(ctx, SaveDraftRequest{
		TenantID:    "t1",
		Editor:      "alice",
		Floor:       floorMeta("f1", "Room A"),
		BaseVersion: -1,
	})
	require.NoError(t, err)
	require.Equal(t, 0, draft.Version)
	require.False(t, draft.Public)
	require.Empty(t, draft.Objects)

	draft, err = svc.SaveDraft(ctx, SaveDraftRequest{
		TenantID:    "t1",
		Editor:      "alice",
		Floor:       floorMeta("f1", "Room A"),
		BaseVersion: 0,
		Delta:       domain.ObjectsDelta{Added: []*domain.PlacedObject{deskObject("o1")}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, draft.Version)
	require.Len(t, draft.Objects, 1)
	require.Equal(t, "o1", draft.Objects[0].ID)
	require.Equal(t, 1, draft.Objects[0].ModifiedVersion)

	published, err := svc.Publish(ctx, "t1", "f1", "alice")
	require.NoError(t, err)
	require.Equal(t, 2, published.Version)
	require.True(t, published.Public)
	require.Len(t, published.Objects, 1)
	require.Equal(t, "o1", published.Objects[0].ID)
	// 发布原样前移快照，对象的 modified_version 不变
	require.Equal(t, 1, published.Objects[0].ModifiedVersion)
	require.Equal(t, 2, published.Objects[0].FloorVersion)

	// 另一个客户端仍持有版本0的视图，删除 o1 必须冲突
	_, err = svc.SaveDraft(ctx, SaveDraftRequest{
		TenantID:    "t1",
		Editor:      "bob",
		Floor:       floorMeta("f1", "Room A"),
		BaseVersion: 0,
		Delta:       domain.ObjectsDelta{Deleted: []string{"o1"}},
	})
	require.ErrorIs(t, err, domain.ErrVersionConflict)

	// 冲突不改变任何状态
	latest, err := svc.GetFloor(ctx, "t1", "f1", true)
	require.NoError(t, err)
	require.Equal(t, 2, latest.Version)
	require.Len(t, latest.Objects, 1)

	// 基于已发布版本重试则成功
	draft, err = svc.SaveDraft(ctx, SaveDraftRequest{
		TenantID:    "t1",
		Editor:      "bob",
		Floor:       floorMeta("f1", "Room A"),
		BaseVersion: 2,
		Delta:       domain.ObjectsDelta{Deleted: []string{"o1"}},
	})
	require.NoError(t, err)
	require.Equal(t, 3, draft.Version)
	require.Empty(t, draft.Objects)
}

func TestFloorService_PublishLeavesSinglePublicRevision(t *testing.T) {
	svc, _, _ := newTestFloorService()
	ctx := context.Background()

	base := -1
	for i := 0; i < 3; i++ {
		floor, err := svc.SaveDraft(ctx, SaveDraftRequest{
			TenantID:    "t1",
			Editor:      "alice",
			Floor:       floorMeta("f1", "Floor 1"),
			BaseVersion: base,
			Delta:       domain.ObjectsDelta{Added: []*domain.PlacedObject{deskObject(fmt.Sprintf("o%d", i))}},
		})
		require.NoError(t, err)
		base = floor.Version
	}

	published, err := svc.Publish(ctx, "t1", "f1", "alice")
	require.NoError(t, err)
	require.Equal(t, 3, published.Version)
	require.True(t, published.Public)
	require.Len(t, published.Objects, 3)

	// 发布后仅剩已发布行：历史版本全部不可见
	for v := 0; v < 3; v++ {
		_, err := svc.GetFloorAtVersion(ctx, "t1", "f1", v, true)
		require.ErrorIs(t, err, domain.ErrNotFound, "version %d should be gone", v)
	}
	floors, err := svc.ListFloors(ctx, "t1", true)
	require.NoError(t, err)
	require.Len(t, floors, 1)
	require.True(t, floors[0].Public)

	// 重复发布幂等地前移版本
	again, err := svc.Publish(ctx, "t1", "f1", "alice")
	require.NoError(t, err)
	require.Equal(t, 4, again.Version)
	require.Len(t, again.Objects, 3)
}

func TestFloorService_GuestVisibility(t *testing.T) {
	svc, _, _ := newTestFloorService()
	ctx := context.Background()

	_, err := svc.SaveDraft(ctx, SaveDraftRequest{
		TenantID:    "t1",
		Editor:      "alice",
		Floor:       floorMeta("f1", "Floor 1"),
		BaseVersion: -1,
	})
	require.NoError(t, err)

	// 未发布的楼层对访客不存在
	_, err = svc.GetFloor(ctx, "t1", "f1", false)
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.GetFloorAtVersion(ctx, "t1", "f1", 0, false)
	require.ErrorIs(t, err, domain.ErrNotFound)

	floors, err := svc.ListFloors(ctx, "t1", false)
	require.NoError(t, err)
	require.Empty(t, floors)

	_, err = svc.Publish(ctx, "t1", "f1", "alice")
	require.NoError(t, err)

	floor, err := svc.GetFloor(ctx, "t1", "f1", false)
	require.NoError(t, err)
	require.Equal(t, 1, floor.Version)
	require.True(t, floor.Public)
}

func TestFloorService_GuestReadsAreCached(t *testing.T) {
	svc, _, cache := newTestFloorService()
	ctx := context.Background()

	_, err := svc.SaveDraft(ctx, SaveDraftRequest{
		TenantID:    "t1",
		Editor:      "alice",
		Floor:       floorMeta("f1", "Floor 1"),
		BaseVersion: -1,
	})
	require.NoError(t, err)
	_, err = svc.Publish(ctx, "t1", "f1", "alice")
	require.NoError(t, err)

	floor, err := svc.GetFloor(ctx, "t1", "f1", false)
	require.NoError(t, err)
	require.Equal(t, 1, floor.Version)

	_, err = cache.Get(ctx, publicFloorKey("t1", "f1"))
	require.NoError(t, err, "guest read should populate the cache")

	// 再次发布使缓存失效，访客看到新版本
	_, err = svc.SaveDraft(ctx, SaveDraftRequest{
		TenantID:    "t1",
		Editor:      "alice",
		Floor:       floorMeta("f1", "Floor 1 renamed"),
		BaseVersion: 1,
	})
	require.NoError(t, err)
	_, err = svc.Publish(ctx, "t1", "f1", "alice")
	require.NoError(t, err)

	_, err = cache.Get(ctx, publicFloorKey("t1", "f1"))
	require.ErrorIs(t, err, store.ErrMiss)

	floor, err = svc.GetFloor(ctx, "t1", "f1", false)
	require.NoError(t, err)
	require.Equal(t, 3, floor.Version)
	require.Equal(t, "Floor 1 renamed", floor.Name)
}

func TestFloorService_CorruptedCacheEntryIsDropped(t *testing.T) {
	svc, _, cache := newTestFloorService()
	ctx := context.Background()

	_, err := svc.SaveDraft(ctx, SaveDraftRequest{
		TenantID:    "t1",
		Editor:      "alice",
		Floor:       floorMeta("f1", "Floor 1"),
		BaseVersion: -1,
	})
	require.NoError(t, err)
	_, err = svc.Publish(ctx, "t1", "f1", "alice")
	require.NoError(t, err)

	require.NoError(t, cache.Set(ctx, publicFloorKey("t1", "f1"), "{not json", time.Minute))

	floor, err := svc.GetFloor(ctx, "t1", "f1", false)
	require.NoError(t, err)
	require.Equal(t, 1, floor.Version)
}

func TestFloorService_PublishNotifies(t *testing.T) {
	svc, notifier, _ := newTestFloorService()
	ctx := context.Background()

	_, err := svc.SaveDraft(ctx, SaveDraftRequest{
		TenantID:    "t1",
		Editor:      "alice",
		Floor:       floorMeta("f1", "Floor 1"),
		BaseVersion: -1,
	})
	require.NoError(t, err)
	_, err = svc.Publish(ctx, "t1", "f1", "alice")
	require.NoError(t, err)
	require.Equal(t, []string{"f1@1"}, notifier.published)

	// 通知失败不影响发布
	notifier.err = fmt.Errorf("broker unreachable")
	published, err := svc.Publish(ctx, "t1", "f1", "alice")
	require.NoError(t, err)
	require.Equal(t, 2, published.Version)
}

func TestFloorService_PublishMissingFloor(t *testing.T) {
	svc, _, _ := newTestFloorService()
	_, err := svc.Publish(context.Background(), "t1", "no-such-floor", "alice")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFloorService_DeleteFloor(t *testing.T) {
	svc, _, _ := newTestFloorService()
	ctx := context.Background()

	_, err := svc.SaveDraft(ctx, SaveDraftRequest{
		TenantID:    "t1",
		Editor:      "alice",
		Floor:       floorMeta("f1", "Floor 1"),
		BaseVersion: -1,
	})
	require.NoError(t, err)
	_, err = svc.Publish(ctx, "t1", "f1", "alice")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteFloor(ctx, "t1", "f1"))

	_, err = svc.GetFloor(ctx, "t1", "f1", true)
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.GetFloor(ctx, "t1", "f1", false)
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.ErrorIs(t, svc.DeleteFloor(ctx, "t1", "f1"), domain.ErrNotFound)
}

func TestFloorService_TenantsAreIsolated(t *testing.T) {
	svc, _, _ := newTestFloorService()
	ctx := context.Background()

	_, err := svc.SaveDraft(ctx, SaveDraftRequest{
		TenantID:    "t1",
		Editor:      "alice",
		Floor:       floorMeta("f1", "Tenant 1 Floor"),
		BaseVersion: -1,
	})
	require.NoError(t, err)

	_, err = svc.GetFloor(ctx, "t2", "f1", true)
	require.ErrorIs(t, err, domain.ErrNotFound)

	floors, err := svc.ListFloors(ctx, "t2", true)
	require.NoError(t, err)
	require.Empty(t, floors)
}

func TestFloorService_CollectGarbage(t *testing.T) {
	svc, _, _ := newTestFloorService()
	ctx := context.Background()

	_, err := svc.SaveDraft(ctx, SaveDraftRequest{
		TenantID:    "t1",
		Editor:      "alice",
		Floor:       floorMeta("f1", "Floor 1"),
		BaseVersion: -1,
		Delta:       domain.ObjectsDelta{Added: []*domain.PlacedObject{deskObject("o1")}},
	})
	require.NoError(t, err)

	// 正常路径下不应存在孤儿
	removed, err := svc.CollectGarbage(ctx)
	require.NoError(t, err)
	require.Zero(t, removed)
}
