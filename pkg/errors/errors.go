package errors

import "errors"

// ErrOptimisticLock 并发写冲突：记录已被其他操作修改
// 签退与申诉处理的守护式 UPDATE 在影响行数为 0 时返回该错误，
// 用于保证"一条记录只被关闭/裁决一次"。
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")
