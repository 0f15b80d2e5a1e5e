package wire

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-rd/pkg/interfaces"
	"github.com/dep2p/go-rd/pkg/types"
)

// ============================================================================
// Fx 模块
// ============================================================================

// Params Fx 模块输入参数
type Params struct {
	fx.In

	Scheduler interfaces.Scheduler
	Policy    types.OutOfSyncPolicy `optional:"true"`

	// BacklogSize 积压容量；0 取 DefaultBacklogSize
	BacklogSize int `optional:"true"`
}

// Result Fx 模块输出结果
type Result struct {
	fx.Out

	Broker *Broker
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("wire",
		fx.Provide(ProvideBroker),
	)
}

// ProvideBroker 提供入站路由表
//
// 失同步回调由 Protocol 构造后经 SetOutOfSyncHandler 注入。
func ProvideBroker(p Params) Result {
	return Result{
		Broker: NewBroker(p.Scheduler, p.Policy, p.BacklogSize, func(types.RdID) {}),
	}
}

// ============================================================================
// 模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "wire"
	// Description 模块描述
	Description = "物理通道模块，含帧编解码、入站路由与进程内/套接字通道"
)
