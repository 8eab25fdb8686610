package domain

import "fmt"

// ReconcileObjects 由旧快照加增量计算新版本的完整对象快照（纯函数，不落库）
//
// baseVersion 是客户端开始编辑时看到的楼层版本；oldObjects 是当前最新版本
// 的完整快照；newVersion 是即将写入的楼层版本号。
//
// 冲突规则：旧快照中凡是被 deleted 或 modified 引用的对象，只要其
// modified_version 严格大于 baseVersion（说明别人已经改过、或服务端版本
// 已越过客户端所见），整个操作拒绝，返回 ErrVersionConflict。
// 增量要么全部生效、要么全不生效。
//
// 成功时：新快照 = (旧快照 ∪ added) − deleted，modified 的对象替换为新值；
// 本轮新增/修改的行 modified_version = newVersion，未触碰的行保持原值，
// 仅 floor_version 前移。
func ReconcileObjects(baseVersion int, oldObjects []*PlacedObject, delta ObjectsDelta, newVersion int) ([]*PlacedObject, error) {
	deleted := make(map[string]bool, len(delta.Deleted))
	for _, id := range delta.Deleted {
		deleted[id] = true
	}
	modified := make(map[string]*PlacedObject, len(delta.Modified))
	for _, ch := range delta.Modified {
		if ch.New == nil {
			continue
		}
		modified[ch.New.ID] = ch.New
	}

	// 冲突检测先于任何构造
	for _, old := range oldObjects {
		if !deleted[old.ID] && modified[old.ID] == nil {
			continue
		}
		if old.ModifiedVersion > baseVersion {
			return nil, fmt.Errorf("object %s modified at version %d, client base version %d: %w",
				old.ID, old.ModifiedVersion, baseVersion, ErrVersionConflict)
		}
	}

	next := make([]*PlacedObject, 0, len(oldObjects)+len(delta.Added))
	seen := make(map[string]bool, len(oldObjects)+len(delta.Added))
	for _, old := range oldObjects {
		if deleted[old.ID] {
			continue
		}
		if repl := modified[old.ID]; repl != nil {
			obj := repl.CopyForVersion(newVersion)
			obj.FloorID = old.FloorID
			obj.ModifiedVersion = newVersion
			next = append(next, obj)
		} else {
			next = append(next, old.CopyForVersion(newVersion))
		}
		seen[old.ID] = true
	}
	for _, added := range delta.Added {
		if deleted[added.ID] || seen[added.ID] {
			continue
		}
		obj := added.CopyForVersion(newVersion)
		obj.ModifiedVersion = newVersion
		next = append(next, obj)
		seen[added.ID] = true
	}

	return next, nil
}
