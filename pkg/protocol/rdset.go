package protocol

import (
	"fmt"

	"github.com/dep2p/go-rd/pkg/interfaces"
	"github.com/dep2p/go-rd/pkg/lib/buffer"
	"github.com/dep2p/go-rd/pkg/lifetime"
	"github.com/dep2p/go-rd/pkg/reactive"
	"github.com/dep2p/go-rd/pkg/types"
)

// ============================================================================
// RdSet 实现
// ============================================================================

// RdSet 可绑定的可观察集合
//
// 差量只有 Add 与 Remove，各携带元素值。重复 Add 与缺失 Remove
// 在两端都是无事件的空操作，差量因此天然幂等。
type RdSet[V comparable] struct {
	EntityBase
	codec Codec[V]
	local *reactive.ViewableSet[V]
}

// 确保实现 WireReceiver 接口
var _ interfaces.WireReceiver = (*RdSet[int])(nil)

// NewRdSet 创建未绑定集合
func NewRdSet[V comparable](codec Codec[V]) *RdSet[V] {
	return &RdSet[V]{codec: codec, local: reactive.NewViewableSet[V]()}
}

// Bind 在协议根下绑定
func (s *RdSet[V]) Bind(lt *lifetime.Lifetime, p *Protocol, name string) error {
	return s.BindUnder(lt, p, p.RootID(), name)
}

// BindUnder 在指定父 id 下绑定
func (s *RdSet[V]) BindUnder(lt *lifetime.Lifetime, p *Protocol, parentID types.RdID, name string) error {
	return s.BindReceiver(lt, p, parentID, name, s)
}

// Len 返回元素个数
func (s *RdSet[V]) Len() int {
	return s.local.Len()
}

// Contains 判断元素是否存在
func (s *RdSet[V]) Contains(value V) bool {
	return s.local.Contains(value)
}

// Add 加入元素，已存在时返回 false 且不发送
func (s *RdSet[V]) Add(value V) bool {
	if !s.local.Add(value) {
		return false
	}
	s.sendOp(opAdd, value)
	return true
}

// Remove 移除元素，不存在时返回 false 且不发送
func (s *RdSet[V]) Remove(value V) bool {
	if !s.local.Remove(value) {
		return false
	}
	s.sendOp(opRemove, value)
	return true
}

// Advise 订阅事件：既有元素先按插入顺序回放为 Add
func (s *RdSet[V]) Advise(lt *lifetime.Lifetime, handler func(reactive.SetEvent[V])) {
	s.local.Advise(lt, handler)
}

// View 为每个元素派生子生存期
func (s *RdSet[V]) View(lt *lifetime.Lifetime, handler func(entryLt *lifetime.Lifetime, value V)) {
	s.local.View(lt, handler)
}

func (s *RdSet[V]) sendOp(op byte, value V) {
	s.send(func(ctx SerializationCtx, buf *buffer.Buffer) error {
		buf.WriteUint8(op)
		return s.codec.Write(ctx, buf, value)
	})
}

// OnWireReceived 应用对端差量
func (s *RdSet[V]) OnWireReceived(buf *buffer.Buffer) {
	p := s.Proto()
	if p == nil {
		return
	}
	err := p.ReadMessage(buf, func(ctx SerializationCtx, buf *buffer.Buffer) error {
		op, err := buf.ReadUint8()
		if err != nil {
			return err
		}
		value, err := s.codec.Read(ctx, buf)
		if err != nil {
			return err
		}
		switch op {
		case opAdd:
			s.local.Add(value)
		case opRemove:
			s.local.Remove(value)
		default:
			return fmt.Errorf("protocol: unknown set op %d", op)
		}
		return nil
	})
	if err != nil {
		logger.Error("集合消息解码失败", "rdid", s.RdID(), "err", err)
	}
}
