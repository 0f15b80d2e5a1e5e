// Package transport 实现带背压的缓冲异步字节处理器
package transport

import "errors"

var (
	// ErrNotAccepting 处理器已停止，不再接收字节
	ErrNotAccepting = errors.New("async processor not accepting data")

	// ErrJoinTimeout 等待发送 goroutine 退出超时
	//
	// 处理器仍会进入 Terminated 状态；该错误仅告知调用方
	// 发送方未在期限内退出。
	ErrJoinTimeout = errors.New("async processor join timed out")

	// ErrDuplicatePauseReason 暂停原因已存在
	ErrDuplicatePauseReason = errors.New("pause reason already active")

	// ErrInvalidConfig 非法的处理器配置
	ErrInvalidConfig = errors.New("invalid async processor config")
)
