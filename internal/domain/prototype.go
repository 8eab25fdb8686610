package domain

import "time"

// Prototype 对象模板领域模型（对应 prototypes 表）
// 编辑器侧边栏里的桌位/标签模板，租户内全量保存，与楼层版本无关
type Prototype struct {
	ID              string    `db:"prototype_id"` // UUID
	TenantID        string    `db:"tenant_id"`
	Name            string    `db:"prototype_name"`
	Width           int       `db:"width"`
	Height          int       `db:"height"`
	BackgroundColor string    `db:"background_color"`
	Color           string    `db:"color"`
	FontSize        float64   `db:"font_size"`
	Shape           string    `db:"shape"`
	Ord             int       `db:"ord"`
	UpdateAt        time.Time `db:"update_at"`
}

// Color 调色板领域模型（对应 colors 表）
type Color struct {
	ID       string    `db:"color_id"` // UUID
	TenantID string    `db:"tenant_id"`
	Ord      int       `db:"ord"`
	Type     string    `db:"color_type"` // "color" | "backgroundColor"
	Color    string    `db:"color"`
	UpdateAt time.Time `db:"update_at"`
}
