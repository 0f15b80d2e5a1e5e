package protocol

import (
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-rd/pkg/interfaces"
	"github.com/dep2p/go-rd/pkg/lib/buffer"
	"github.com/dep2p/go-rd/pkg/lib/log"
	"github.com/dep2p/go-rd/pkg/lifetime"
	"github.com/dep2p/go-rd/pkg/reactive"
	"github.com/dep2p/go-rd/pkg/types"
)

var logger = log.Logger("protocol")

// ============================================================================
// 协议选项
// ============================================================================

// Option Protocol 构造选项
type Option func(*Protocol)

// WithOutOfSyncPolicy 设置失同步处理策略
func WithOutOfSyncPolicy(p types.OutOfSyncPolicy) Option {
	return func(proto *Protocol) { proto.policy = p }
}

// WithClock 注入时钟（测试用）
//
// 任务的同步等待超时依赖该时钟。
func WithClock(clk clock.Clock) Option {
	return func(proto *Protocol) { proto.clk = clk }
}

// ============================================================================
// Protocol 实现
// ============================================================================

// Protocol 协议树的组合根
//
// 把 Wire、序列化注册表、动态 id 分配器、调度器、驻留根与上下文
// 处理器组合为一个端点。两端以同一名字构造的 Protocol 互为对端：
// 根 id 由名字确定性导出，实体在其下按名字逐级混合。
type Protocol struct {
	name        string
	lt          *lifetime.Lifetime
	wire        interfaces.Wire
	scheduler   interfaces.Scheduler
	serializers *Serializers
	identities  *Identities
	interns     *InternRoot
	contexts    *ContextHandler
	policy      types.OutOfSyncPolicy
	clk         clock.Clock

	// outOfSync 失同步 RdID 的可观察集合
	outOfSync *reactive.ViewableSet[types.RdID]

	mu    sync.Mutex
	bound map[types.RdID]string
}

// NewProtocol 创建协议端点
//
// lt 终止时整棵协议树解除绑定。OutOfSyncSource 接口（如 Broker）
// 的失同步回调在此接入可观察集合。
func NewProtocol(lt *lifetime.Lifetime, name string, kind IdentityKind, scheduler interfaces.Scheduler, w interfaces.Wire, opts ...Option) *Protocol {
	p := &Protocol{
		name:        name,
		lt:          lt,
		wire:        w,
		scheduler:   scheduler,
		serializers: NewSerializers(),
		identities:  NewIdentities(kind),
		interns:     NewInternRoot(),
		contexts:    NewContextHandler(),
		clk:         clock.New(),
		outOfSync:   reactive.NewViewableSet[types.RdID](),
		bound:       make(map[types.RdID]string),
	}
	for _, opt := range opts {
		opt(p)
	}
	if src, ok := w.(OutOfSyncSource); ok {
		src.SetOutOfSyncHandler(p.MarkOutOfSync)
	}
	logger.Info("协议端点创建", "name", name, "side", kind, "root", p.RootID())
	return p
}

// OutOfSyncSource 可注入失同步回调的通道
//
// SocketWire 与 StubWire 背后的 Broker 实现该接口。
type OutOfSyncSource interface {
	SetOutOfSyncHandler(fn func(id types.RdID))
}

// Name 返回协议名
func (p *Protocol) Name() string { return p.name }

// Lifetime 返回协议生存期
func (p *Protocol) Lifetime() *lifetime.Lifetime { return p.lt }

// Wire 返回物理通道
func (p *Protocol) Wire() interfaces.Wire { return p.wire }

// Scheduler 返回协议调度器
func (p *Protocol) Scheduler() interfaces.Scheduler { return p.scheduler }

// Serializers 返回序列化注册表
func (p *Protocol) Serializers() *Serializers { return p.serializers }

// Identities 返回动态 id 分配器
func (p *Protocol) Identities() *Identities { return p.identities }

// Contexts 返回上下文处理器
func (p *Protocol) Contexts() *ContextHandler { return p.contexts }

// Clock 返回协议时钟
func (p *Protocol) Clock() clock.Clock { return p.clk }

// OutOfSync 返回失同步 id 的可观察集合
func (p *Protocol) OutOfSync() *reactive.ViewableSet[types.RdID] { return p.outOfSync }

// RootID 返回协议根 id
//
// 由协议名确定性导出，两端一致。
func (p *Protocol) RootID() types.RdID {
	return types.Nil.Mix(p.name)
}

// SerializationCtx 返回当前序列化环境
func (p *Protocol) SerializationCtx() SerializationCtx {
	return SerializationCtx{Serializers: p.serializers, Interns: p.interns}
}

// MarkOutOfSync 记录一个失同步 id
//
// 集合带锁，可从任意 goroutine 调用。
func (p *Protocol) MarkOutOfSync(id types.RdID) {
	p.outOfSync.Add(id)
}

// ════════════════════════════════════════════════════════════════════════════
//                              实体登记
// ════════════════════════════════════════════════════════════════════════════

// registerEntity 登记一个已绑定实体的 id
//
// 同一 id 重复登记违反协议不变式：记入失同步集合，PolicyFail
// 下 panic，否则返回 ErrDuplicateBind 给后来者。
func (p *Protocol) registerEntity(id types.RdID, name string) error {
	p.mu.Lock()
	prev, exists := p.bound[id]
	if !exists {
		p.bound[id] = name
	}
	p.mu.Unlock()

	if exists {
		p.MarkOutOfSync(id)
		if p.policy == types.PolicyFail {
			panic(fmt.Sprintf("protocol: rdid %v already bound to %q, rejected %q", id, prev, name))
		}
		return fmt.Errorf("%w: %v held by %q", ErrDuplicateBind, id, prev)
	}
	return nil
}

// unregisterEntity 注销实体 id
func (p *Protocol) unregisterEntity(id types.RdID) {
	p.mu.Lock()
	delete(p.bound, id)
	p.mu.Unlock()
}

// BoundCount 返回当前已绑定实体数（测试与诊断用）
func (p *Protocol) BoundCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.bound)
}

// ════════════════════════════════════════════════════════════════════════════
//                              消息收发
// ════════════════════════════════════════════════════════════════════════════

// Send 发送一条实体消息
//
// 先编入当前上下文快照，再由 body 写入实体负载。
func (p *Protocol) Send(id types.RdID, body func(ctx SerializationCtx, buf *buffer.Buffer) error) {
	sctx := p.SerializationCtx()
	p.wire.Send(id, func(buf *buffer.Buffer) {
		if err := p.contexts.WriteBundle(sctx, buf); err != nil {
			logger.Error("上下文快照编码失败", "rdid", id, "err", err)
			return
		}
		if err := body(sctx, buf); err != nil {
			logger.Error("实体负载编码失败", "rdid", id, "err", err)
		}
	})
}

// ReadMessage 解出一条实体消息
//
// 先恢复发送方的上下文快照，在其生效期间调用 body，返回前弹出。
func (p *Protocol) ReadMessage(buf *buffer.Buffer, body func(ctx SerializationCtx, buf *buffer.Buffer) error) error {
	sctx := p.SerializationCtx()
	release, err := p.contexts.ReadAndRestore(sctx, buf)
	if err != nil {
		return err
	}
	defer release()
	return body(sctx, buf)
}
