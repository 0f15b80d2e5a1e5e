package rd

import (
	"context"
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-rd/internal/core/scheduler"
	corewire "github.com/dep2p/go-rd/internal/core/wire"
	"github.com/dep2p/go-rd/pkg/interfaces"
	"github.com/dep2p/go-rd/pkg/lib/log"
	"github.com/dep2p/go-rd/pkg/lifetime"
	"github.com/dep2p/go-rd/pkg/protocol"
)

var fxLogger = log.Logger("rd/fx")

// startTimeout fx 应用启动/停止的宽限
const startTimeout = 10 * time.Second

// wireFactory 为端点创建物理通道
type wireFactory func(lt *lifetime.Lifetime, b *corewire.Broker) (interfaces.Wire, error)

// buildFxApp 组装端点的 Fx 应用
//
// 模块顺序按依赖：调度器 → 路由表 → 通道 → 协议。全部组件随
// 端点 Lifetime 终止清理，fx 钩子只负责装配期错误暴露。
func buildFxApp(p *Peer, kind protocol.IdentityKind, factory wireFactory) *fx.App {
	lt := p.def.Lifetime()
	cfg := p.cfg

	return fx.New(
		fx.Supply(lt),
		fx.Supply(cfg.OutOfSyncPolicy),
		fx.Supply(cfg.BacklogSize),

		scheduler.Module(),
		corewire.Module(),

		fx.Provide(func(b *corewire.Broker) (interfaces.Wire, error) {
			return factory(lt, b)
		}),
		fx.Provide(func(s interfaces.Scheduler, w interfaces.Wire) *protocol.Protocol {
			return protocol.NewProtocol(lt, p.name, kind, s, w,
				protocol.WithOutOfSyncPolicy(cfg.OutOfSyncPolicy),
				protocol.WithClock(cfg.Clock),
			)
		}),

		fx.Populate(&p.proto, &p.broker),
		fx.NopLogger,
	)
}

// startApp 启动 Fx 应用并暴露装配错误
func startApp(app *fx.App) error {
	if err := app.Err(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		fxLogger.Error("端点启动失败", "err", err)
		return err
	}
	return nil
}
