package protocol

import (
	"github.com/dep2p/go-rd/pkg/interfaces"
	"github.com/dep2p/go-rd/pkg/lib/buffer"
	"github.com/dep2p/go-rd/pkg/lifetime"
	"github.com/dep2p/go-rd/pkg/reactive"
	"github.com/dep2p/go-rd/pkg/types"
)

// ============================================================================
// RdSignal 实现
// ============================================================================

// RdSignal 可绑定事件流
//
// 未绑定时是纯本地 Signal；绑定后 Fire 同时把值发往对端，
// 对端的 Fire 在本端调度器上触发本地订阅者。
type RdSignal[T any] struct {
	EntityBase
	codec Codec[T]
	local *reactive.Signal[T]
}

// 确保实现 WireReceiver 接口
var _ interfaces.WireReceiver = (*RdSignal[int])(nil)

// NewRdSignal 创建未绑定的信号
func NewRdSignal[T any](codec Codec[T]) *RdSignal[T] {
	return &RdSignal[T]{codec: codec, local: reactive.NewSignal[T]()}
}

// Bind 在协议根下绑定
func (s *RdSignal[T]) Bind(lt *lifetime.Lifetime, p *Protocol, name string) error {
	return s.BindUnder(lt, p, p.RootID(), name)
}

// BindUnder 在指定父 id 下绑定
func (s *RdSignal[T]) BindUnder(lt *lifetime.Lifetime, p *Protocol, parentID types.RdID, name string) error {
	return s.BindReceiver(lt, p, parentID, name, s)
}

// Advise 订阅事件，订阅随 lt 终止移除
func (s *RdSignal[T]) Advise(lt *lifetime.Lifetime, handler func(T)) {
	s.local.Advise(lt, handler)
}

// Fire 触发事件
//
// 本地订阅者同步收到；已绑定时值同时发往对端。
func (s *RdSignal[T]) Fire(value T) {
	s.send(func(ctx SerializationCtx, buf *buffer.Buffer) error {
		return s.codec.Write(ctx, buf, value)
	})
	s.local.Fire(value)
}

// OnWireReceived 应用对端的 Fire
func (s *RdSignal[T]) OnWireReceived(buf *buffer.Buffer) {
	p := s.Proto()
	if p == nil {
		return
	}
	err := p.ReadMessage(buf, func(ctx SerializationCtx, buf *buffer.Buffer) error {
		v, err := s.codec.Read(ctx, buf)
		if err != nil {
			return err
		}
		s.local.Fire(v)
		return nil
	})
	if err != nil {
		logger.Error("信号消息解码失败", "rdid", s.RdID(), "err", err)
	}
}
