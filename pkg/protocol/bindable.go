package protocol

import (
	"sync"

	"github.com/dep2p/go-rd/pkg/interfaces"
	"github.com/dep2p/go-rd/pkg/lib/buffer"
	"github.com/dep2p/go-rd/pkg/lifetime"
	"github.com/dep2p/go-rd/pkg/types"
)

// ============================================================================
// 实体绑定基座
// ============================================================================

// EntityBase 可绑定实体的公共部分
//
// 实体嵌入 EntityBase，以自身为接收者调用 BindReceiver。绑定把
// 实体挂入协议树：id 由父 id 与名字确定性混合，Wire 订阅随绑定
// 生存期自动注销，实体退化回纯本地原语。
type EntityBase struct {
	mu    sync.Mutex
	id    types.RdID
	name  string
	proto *Protocol
	lt    *lifetime.Lifetime
}

// RdID 返回实体 id（未绑定为 Nil）
func (b *EntityBase) RdID() types.RdID {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.id
}

// Name 返回绑定名（未绑定为空）
func (b *EntityBase) Name() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.name
}

// IsBound 判断实体当前是否已绑定
func (b *EntityBase) IsBound() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.proto != nil && b.lt.IsAlive()
}

// Proto 返回所属协议（未绑定为 nil）
func (b *EntityBase) Proto() *Protocol {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.proto
}

// BindLifetime 返回绑定生存期（未绑定为 nil）
func (b *EntityBase) BindLifetime() *lifetime.Lifetime {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lt
}

// BindReceiver 在 parentID 之下以 name 绑定实体
//
// 实体自身作为 receiver 订阅 Wire。重复绑定返回 ErrAlreadyBound；
// id 冲突按协议失同步策略处理。lt 终止时自动解绑。
func (b *EntityBase) BindReceiver(lt *lifetime.Lifetime, p *Protocol, parentID types.RdID, name string, receiver interfaces.WireReceiver) error {
	if !lt.IsAlive() {
		return lifetime.ErrAlreadyTerminated
	}

	b.mu.Lock()
	if b.proto != nil && b.lt.IsAlive() {
		b.mu.Unlock()
		return ErrAlreadyBound
	}
	id := parentID.Mix(name)
	b.id = id
	b.name = name
	b.proto = p
	b.lt = lt
	b.mu.Unlock()

	if err := p.registerEntity(id, name); err != nil {
		b.mu.Lock()
		b.id = types.Nil
		b.name = ""
		b.proto = nil
		b.lt = nil
		b.mu.Unlock()
		return err
	}

	p.Wire().Advise(lt, receiver)
	_, _ = lt.OnTermination(func() {
		p.unregisterEntity(id)
		b.mu.Lock()
		b.proto = nil
		b.mu.Unlock()
	})
	logger.Debug("实体绑定", "name", name, "rdid", id)
	return nil
}

// send 发送实体负载（仅在已绑定时）
func (b *EntityBase) send(body func(ctx SerializationCtx, buf *buffer.Buffer) error) {
	b.mu.Lock()
	p, id := b.proto, b.id
	b.mu.Unlock()
	if p == nil {
		return
	}
	p.Send(id, body)
}
