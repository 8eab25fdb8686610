package domain

import "time"

// PlacedObject 放置对象领域模型（对应 objects 表）
// 桌位/房间/标签在某个楼层版本上的一次摆放
// 一个 (floor_id, floor_version) 下的全部行构成该版本的完整快照，不是增量
type PlacedObject struct {
	// 复合主键
	FloorID      string `db:"floor_id"`      // 所属楼层
	FloorVersion int    `db:"floor_version"` // 所属楼层版本
	ID           string `db:"object_id"`     // 逻辑对象稳定ID（跨版本不变）

	// 展示属性
	Name            string  `db:"object_name"`      // VARCHAR(128)
	Type            string  `db:"object_type"`      // "desk" | "label"
	X               int     `db:"x"`
	Y               int     `db:"y"`
	Width           int     `db:"width"`
	Height          int     `db:"height"`
	BackgroundColor string  `db:"background_color"` // VARCHAR(32)
	FontSize        float64 `db:"font_size"`
	Color           string  `db:"color"`
	Bold            bool    `db:"bold"`
	URL             string  `db:"url"`              // nullable
	Shape           string  `db:"shape"`            // "rectangle" | "ellipse"

	// 座位分配
	PersonID string `db:"person_id"` // nullable，指向外部人员服务的ID

	// 版本追踪
	// ModifiedVersion 记录该对象最后一次被改动时的楼层版本，用于冲突检测；
	// 未被本轮增量触碰的行在新版本下重新物化时保持原值
	ModifiedVersion int       `db:"modified_version"`
	UpdateAt        time.Time `db:"update_at"`
}

// CopyForVersion 返回对象在指定楼层版本下的副本（ModifiedVersion 不变）
func (o *PlacedObject) CopyForVersion(floorVersion int) *PlacedObject {
	c := *o
	c.FloorVersion = floorVersion
	return &c
}

// ObjectChange 修改增量中的一对新旧值
type ObjectChange struct {
	Old *PlacedObject `json:"old"`
	New *PlacedObject `json:"new"`
}

// ObjectsDelta 客户端相对 baseVersion 的编辑增量
type ObjectsDelta struct {
	Added    []*PlacedObject `json:"added"`
	Modified []ObjectChange  `json:"modified"`
	Deleted  []string        `json:"deleted"` // 逻辑对象ID
}

// Empty 增量是否为空（发布时以空增量把快照原样前移）
func (d ObjectsDelta) Empty() bool {
	return len(d.Added) == 0 && len(d.Modified) == 0 && len(d.Deleted) == 0
}
