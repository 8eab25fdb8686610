package domain

import "errors"

// 引擎的错误分类，HTTP 层用 errors.Is 判别后映射状态码
var (
	// ErrValidation 楼层元数据不合法（如空名称），未发生任何写入 -> 400
	ErrValidation = errors.New("validation failed")

	// ErrNotFound 目标楼层不存在任何版本 -> 404
	ErrNotFound = errors.New("floor not found")

	// ErrVersionConflict 客户端的 baseVersion 已过期，整个操作回滚 -> 409
	// 调用方重新读取最新版本后可重试
	ErrVersionConflict = errors.New("floor version conflict")
)
