package task

import (
	"errors"
	"fmt"
)

// ============================================================================
// 任务结果
// ============================================================================

var (
	// ErrTimeout 同步等待超时
	ErrTimeout = errors.New("task: sync wait timed out")

	// ErrCancelled 任务在完成前被取消
	ErrCancelled = errors.New("task: cancelled")
)

// Kind 结果终态
//
// 数值是线上编码的一部分，两端必须一致。
type Kind byte

const (
	// KindSuccess 正常完成，携带返回值
	KindSuccess Kind = 0
	// KindFault 处理函数出错，携带错误描述
	KindFault Kind = 1
	// KindCancelled 任务被取消
	KindCancelled Kind = 2
)

// String 返回终态名称
func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindFault:
		return "fault"
	case KindCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("kind(%d)", byte(k))
	}
}

// FaultError 对端处理函数的错误描述
//
// 错误跨进程只保留文本：对端的错误值不在线上还原。
type FaultError struct {
	Message string
}

// Error 实现 error 接口
func (e *FaultError) Error() string {
	return "task: remote fault: " + e.Message
}

// Result 任务的终态结果
type Result[T any] struct {
	kind  Kind
	value T
	fault string
}

// Succeeded 构造成功结果
func Succeeded[T any](value T) Result[T] {
	return Result[T]{kind: KindSuccess, value: value}
}

// Faulted 构造出错结果
func Faulted[T any](message string) Result[T] {
	return Result[T]{kind: KindFault, fault: message}
}

// Cancelled 构造取消结果
func Cancelled[T any]() Result[T] {
	return Result[T]{kind: KindCancelled}
}

// Kind 返回终态
func (r Result[T]) Kind() Kind {
	return r.kind
}

// IsSucceeded 判断是否成功
func (r Result[T]) IsSucceeded() bool {
	return r.kind == KindSuccess
}

// Unwrap 展开结果
//
// 成功返回值；出错返回 *FaultError；取消返回 ErrCancelled。
func (r Result[T]) Unwrap() (T, error) {
	var zero T
	switch r.kind {
	case KindSuccess:
		return r.value, nil
	case KindFault:
		return zero, &FaultError{Message: r.fault}
	default:
		return zero, ErrCancelled
	}
}
