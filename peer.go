package rd

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/fx"

	corewire "github.com/dep2p/go-rd/internal/core/wire"
	"github.com/dep2p/go-rd/pkg/interfaces"
	"github.com/dep2p/go-rd/pkg/lib/log"
	"github.com/dep2p/go-rd/pkg/lifetime"
	"github.com/dep2p/go-rd/pkg/protocol"
	"github.com/dep2p/go-rd/pkg/reactive"
)

var logger = log.Logger("rd")

// ============================================================================
// Peer 实现
// ============================================================================

// Peer 一个协议端点
//
// 持有端点 Lifetime、协议树与物理通道。Close 终止 Lifetime：
// 实体解绑、订阅退订、传输停机按逆序完成。
type Peer struct {
	name string
	cfg  Config
	def  *lifetime.Definition
	app  *fx.App

	proto  *protocol.Protocol
	broker *corewire.Broker
	socket *corewire.SocketWire

	closeOnce sync.Once
	closeErr  error
}

// newPeer 组装并启动端点
func newPeer(name string, kind protocol.IdentityKind, cfg Config, factory wireFactory) (*Peer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Peer{
		name: name,
		cfg:  cfg,
		def:  lifetime.NewDefinition(lifetime.Eternal()),
	}
	app := buildFxApp(p, kind, factory)
	if err := startApp(app); err != nil {
		_ = p.def.Terminate()
		return nil, err
	}
	p.app = app
	if sw, ok := p.proto.Wire().(*corewire.SocketWire); ok {
		p.socket = sw
	}
	logger.Info("端点就绪", "name", name, "side", kind)
	return p, nil
}

// NewServer 创建监听端点
//
// 在 addr 上监听（":0" 取随机端口，实际地址见 Addr）。
// 动态 id 取偶数。
func NewServer(name, addr string, opts ...Option) (*Peer, error) {
	cfg := applyOptions(opts)
	return newPeer(name, protocol.ServerSide, cfg, func(lt *lifetime.Lifetime, b *corewire.Broker) (interfaces.Wire, error) {
		return corewire.NewSocketServer(lt, b, addr, cfg.transportOptions()...)
	})
}

// NewClient 创建拨号端点
//
// 持续向 addr 拨号，断线自动重连。动态 id 取奇数。
func NewClient(name, addr string, opts ...Option) (*Peer, error) {
	cfg := applyOptions(opts)
	return newPeer(name, protocol.ClientSide, cfg, func(lt *lifetime.Lifetime, b *corewire.Broker) (interfaces.Wire, error) {
		return corewire.NewSocketClient(lt, b, addr, cfg.transportOptions()...)
	})
}

// NewLoopbackPair 创建一对进程内互联端点
//
// 不经套接字，消息直接投递到对端路由表。测试与同进程宿主使用。
// 返回顺序：服务端、客户端。
func NewLoopbackPair(name string, opts ...Option) (*Peer, *Peer, error) {
	cfg := applyOptions(opts)
	stubFactory := func(lt *lifetime.Lifetime, b *corewire.Broker) (interfaces.Wire, error) {
		return corewire.NewStub(b), nil
	}

	server, err := newPeer(name, protocol.ServerSide, cfg, stubFactory)
	if err != nil {
		return nil, nil, err
	}
	client, err := newPeer(name, protocol.ClientSide, cfg, stubFactory)
	if err != nil {
		_ = server.Close()
		return nil, nil, err
	}
	server.proto.Wire().(*corewire.StubWire).ConnectTo(client.proto.Wire().(*corewire.StubWire))
	return server, client, nil
}

func applyOptions(opts []Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// ════════════════════════════════════════════════════════════════════════════
//                              访问器
// ════════════════════════════════════════════════════════════════════════════

// Name 返回协议名
func (p *Peer) Name() string { return p.name }

// Protocol 返回协议树组合根
func (p *Peer) Protocol() *protocol.Protocol { return p.proto }

// Lifetime 返回端点生存期
func (p *Peer) Lifetime() *lifetime.Lifetime { return p.def.Lifetime() }

// SyncTimeout 返回同步调用的默认等待上限
func (p *Peer) SyncTimeout() time.Duration { return p.cfg.SyncTimeout }

// Addr 返回监听端实际地址（非套接字端点返回空）
func (p *Peer) Addr() string {
	if p.socket == nil {
		return ""
	}
	return p.socket.Addr()
}

// Connected 返回连接状态属性（进程内端点恒为已连接）
func (p *Peer) Connected() *reactive.Property[bool] {
	if p.socket == nil {
		return reactive.NewProperty(true)
	}
	return p.socket.Connected()
}

// Token 返回本端连接令牌（非套接字端点为 uuid.Nil）
func (p *Peer) Token() uuid.UUID {
	if p.socket == nil {
		return uuid.Nil
	}
	return p.socket.Token()
}

// Close 关闭端点
//
// 终止端点 Lifetime 并停止 Fx 应用。幂等。
func (p *Peer) Close() error {
	p.closeOnce.Do(func() {
		logger.Info("端点关闭", "name", p.name)
		p.closeErr = p.def.Terminate()
		if p.app != nil {
			ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
			defer cancel()
			if err := p.app.Stop(ctx); err != nil && p.closeErr == nil {
				p.closeErr = err
			}
		}
	})
	return p.closeErr
}
