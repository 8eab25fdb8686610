package domain

import "time"

// Floor 楼层版本领域模型（对应 floors 表）
// 同一楼层的每个版本是一行，行只插入、不原地修改（append-only）
// 约束：同一 (tenant_id, floor_id) 最多只有一行 public=true（最近一次发布），
// 以及最多一行更新的私有草稿
type Floor struct {
	// 复合主键
	TenantID string `db:"tenant_id"` // UUID, NOT NULL
	ID       string `db:"floor_id"`  // 楼层稳定ID（同一楼层所有版本共享）
	Version  int    `db:"version"`   // 单调递增，0 起

	// 楼层元数据
	Name       string `db:"floor_name"`  // VARCHAR(128), NOT NULL
	Ord        int    `db:"ord"`         // 楼层排序
	Image      string `db:"image"`       // 底图引用（文件存储由外部负责），nullable
	Width      int    `db:"width"`       // 栅格宽度
	Height     int    `db:"height"`      // 栅格高度
	RealWidth  int    `db:"real_width"`  // 物理宽度（米）
	RealHeight int    `db:"real_height"` // 物理高度（米）

	// 发布状态
	Public bool `db:"public"` // true = 访客可见的已发布版本

	// 编辑信息
	UpdateBy string    `db:"update_by"` // 编辑者ID（由上游认证层提供）
	UpdateAt time.Time `db:"update_at"`

	// 该版本的完整对象快照（单独加载，不属于 floors 表）
	Objects []*PlacedObject `db:"-"`
}

// Clone 返回楼层行的副本（不含对象快照）
func (f *Floor) Clone() *Floor {
	c := *f
	c.Objects = nil
	return &c
}
