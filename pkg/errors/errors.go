package errors

import "errors"

// ── 错误分类 ──
// 业务层的具体错误通过 fmt.Errorf("%w") 包装这些分类，
// Handler 层用 errors.Is 判定 HTTP 状态码。

var (
	// ErrNotFound 员工 / 站点 / 日历不存在
	ErrNotFound = errors.New("资源不存在")
	// ErrBadRequest 缺失或格式错误的必填参数（日期范围、ID 等）
	ErrBadRequest = errors.New("请求参数无效")
	// ErrDateParse 单条日期或时间戳无法解析；只在局部降级，不中断整份报表
	ErrDateParse = errors.New("日期解析失败")
	// ErrConflict 资源正被其他操作占用
	ErrConflict = errors.New("资源正被其他操作占用")
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")
