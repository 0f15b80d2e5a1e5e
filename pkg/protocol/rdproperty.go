package protocol

import (
	"github.com/dep2p/go-rd/pkg/interfaces"
	"github.com/dep2p/go-rd/pkg/lib/buffer"
	"github.com/dep2p/go-rd/pkg/lifetime"
	"github.com/dep2p/go-rd/pkg/reactive"
	"github.com/dep2p/go-rd/pkg/types"
)

// ============================================================================
// RdProperty 实现
// ============================================================================

// RdProperty 可绑定的可观察值
//
// 未绑定时是纯本地 Property；绑定后 Set 把新值发往对端，对端的
// Set 在本端调度器上应用并触发本地订阅者。主控端（master）绑定
// 时立即发送当前值，使后连入的对端收敛到主控端状态。
type RdProperty[T any] struct {
	EntityBase
	codec  Codec[T]
	master bool
	local  *reactive.Property[T]
}

// 确保实现 WireReceiver 接口
var _ interfaces.WireReceiver = (*RdProperty[int])(nil)

// NewRdProperty 创建未绑定属性
func NewRdProperty[T any](initial T, codec Codec[T]) *RdProperty[T] {
	return &RdProperty[T]{codec: codec, local: reactive.NewProperty(initial)}
}

// NewMasterProperty 创建主控端属性
//
// 绑定时主动发送当前值。一对属性中只应有一端为主控。
func NewMasterProperty[T any](initial T, codec Codec[T]) *RdProperty[T] {
	p := NewRdProperty(initial, codec)
	p.master = true
	return p
}

// Bind 在协议根下绑定
func (p *RdProperty[T]) Bind(lt *lifetime.Lifetime, proto *Protocol, name string) error {
	return p.BindUnder(lt, proto, proto.RootID(), name)
}

// BindUnder 在指定父 id 下绑定
func (p *RdProperty[T]) BindUnder(lt *lifetime.Lifetime, proto *Protocol, parentID types.RdID, name string) error {
	if err := p.BindReceiver(lt, proto, parentID, name, p); err != nil {
		return err
	}
	if p.master {
		p.sendValue(p.local.Value())
	}
	return nil
}

// Value 读取当前值
func (p *RdProperty[T]) Value() T {
	return p.local.Value()
}

// Set 写入新值
//
// 本地订阅者同步收到；已绑定时新值同时发往对端。
func (p *RdProperty[T]) Set(value T) {
	p.sendValue(value)
	p.local.Set(value)
}

// Advise 订阅值变化：立即回放当前值，之后每次变化触发
func (p *RdProperty[T]) Advise(lt *lifetime.Lifetime, handler func(T)) {
	p.local.Advise(lt, handler)
}

// Change 返回仅后续变化的信号（不回放当前值）
func (p *RdProperty[T]) Change() *reactive.Signal[T] {
	return p.local.Change()
}

// View 为每个值派生子生存期
func (p *RdProperty[T]) View(lt *lifetime.Lifetime, handler func(valueLt *lifetime.Lifetime, value T)) {
	p.local.View(lt, handler)
}

func (p *RdProperty[T]) sendValue(value T) {
	p.send(func(ctx SerializationCtx, buf *buffer.Buffer) error {
		return p.codec.Write(ctx, buf, value)
	})
}

// OnWireReceived 应用对端的 Set
func (p *RdProperty[T]) OnWireReceived(buf *buffer.Buffer) {
	proto := p.Proto()
	if proto == nil {
		return
	}
	err := proto.ReadMessage(buf, func(ctx SerializationCtx, buf *buffer.Buffer) error {
		v, err := p.codec.Read(ctx, buf)
		if err != nil {
			return err
		}
		p.local.Set(v)
		return nil
	})
	if err != nil {
		logger.Error("属性消息解码失败", "rdid", p.RdID(), "err", err)
	}
}
