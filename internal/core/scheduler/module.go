// Package scheduler 实现协议分发队列
package scheduler

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-rd/pkg/interfaces"
	"github.com/dep2p/go-rd/pkg/lifetime"
)

// ============================================================================
// Fx 模块
// ============================================================================

// Params Fx 模块输入参数
type Params struct {
	fx.In

	Lifetime *lifetime.Lifetime
}

// Result Fx 模块输出结果
type Result struct {
	fx.Out

	Scheduler interfaces.Scheduler
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("scheduler",
		fx.Provide(ProvideScheduler),
	)
}

// ProvideScheduler 提供 Scheduler 实例
//
// 调度器随协议 Lifetime 终止而停止，无需单独的 fx 停止钩子。
func ProvideScheduler(p Params) Result {
	return Result{
		Scheduler: NewSingleThread(p.Lifetime, "protocol"),
	}
}

// ============================================================================
// 模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "scheduler"
	// Description 模块描述
	Description = "协议分发队列模块，保证同一协议的事件按到达顺序串行应用"
)
