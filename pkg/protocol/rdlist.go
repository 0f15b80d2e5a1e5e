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
// RdList 实现
// ============================================================================

// RdList 可绑定的可观察列表
//
// 差量按位置编码：Add 携带插入位置与值（位置等于长度即追加），
// Update 携带位置与新值，Remove 只携带位置。
type RdList[V any] struct {
	EntityBase
	codec Codec[V]
	local *reactive.ViewableList[V]
}

// 确保实现 WireReceiver 接口
var _ interfaces.WireReceiver = (*RdList[int])(nil)

// NewRdList 创建未绑定列表
func NewRdList[V any](codec Codec[V]) *RdList[V] {
	return &RdList[V]{codec: codec, local: reactive.NewViewableList[V]()}
}

// Bind 在协议根下绑定
func (l *RdList[V]) Bind(lt *lifetime.Lifetime, p *Protocol, name string) error {
	return l.BindUnder(lt, p, p.RootID(), name)
}

// BindUnder 在指定父 id 下绑定
func (l *RdList[V]) BindUnder(lt *lifetime.Lifetime, p *Protocol, parentID types.RdID, name string) error {
	return l.BindReceiver(lt, p, parentID, name, l)
}

// Len 返回元素个数
func (l *RdList[V]) Len() int {
	return l.local.Len()
}

// Get 按位置读取
func (l *RdList[V]) Get(index int) (V, bool) {
	return l.local.Get(index)
}

// Add 追加元素
func (l *RdList[V]) Add(value V) {
	index := l.local.Len()
	l.local.Add(value)
	l.sendAt(opAdd, index, &value)
}

// Insert 在位置 index 处插入
//
// 位置越界返回 false，无事件、无发送。
func (l *RdList[V]) Insert(index int, value V) bool {
	if !l.local.Insert(index, value) {
		return false
	}
	l.sendAt(opAdd, index, &value)
	return true
}

// Set 替换位置 index 处的元素，返回旧值
func (l *RdList[V]) Set(index int, value V) (V, bool) {
	old, ok := l.local.Set(index, value)
	if !ok {
		return old, false
	}
	l.sendAt(opUpdate, index, &value)
	return old, true
}

// RemoveAt 删除位置 index 处的元素，返回旧值
func (l *RdList[V]) RemoveAt(index int) (V, bool) {
	old, ok := l.local.RemoveAt(index)
	if !ok {
		return old, false
	}
	l.sendAt(opRemove, index, nil)
	return old, true
}

// Advise 订阅事件：既有元素先按位置回放为 Add
func (l *RdList[V]) Advise(lt *lifetime.Lifetime, handler func(reactive.ListEvent[V])) {
	l.local.Advise(lt, handler)
}

// sendAt 编码一条位置差量；value 为 nil 表示不携带值
func (l *RdList[V]) sendAt(op byte, index int, value *V) {
	l.send(func(ctx SerializationCtx, buf *buffer.Buffer) error {
		buf.WriteUint8(op)
		buf.WriteInt32(int32(index))
		if value != nil {
			return l.codec.Write(ctx, buf, *value)
		}
		return nil
	})
}

// OnWireReceived 应用对端差量
func (l *RdList[V]) OnWireReceived(buf *buffer.Buffer) {
	p := l.Proto()
	if p == nil {
		return
	}
	err := p.ReadMessage(buf, func(ctx SerializationCtx, buf *buffer.Buffer) error {
		op, err := buf.ReadUint8()
		if err != nil {
			return err
		}
		idx32, err := buf.ReadInt32()
		if err != nil {
			return err
		}
		index := int(idx32)
		switch op {
		case opAdd:
			value, err := l.codec.Read(ctx, buf)
			if err != nil {
				return err
			}
			if index == l.local.Len() {
				l.local.Add(value)
			} else if !l.local.Insert(index, value) {
				return fmt.Errorf("protocol: list add at invalid index %d", index)
			}
		case opUpdate:
			value, err := l.codec.Read(ctx, buf)
			if err != nil {
				return err
			}
			if _, ok := l.local.Set(index, value); !ok {
				return fmt.Errorf("protocol: list update at invalid index %d", index)
			}
		case opRemove:
			if _, ok := l.local.RemoveAt(index); !ok {
				return fmt.Errorf("protocol: list remove at invalid index %d", index)
			}
		default:
			return fmt.Errorf("protocol: unknown list op %d", op)
		}
		return nil
	})
	if err != nil {
		logger.Error("列表消息解码失败", "rdid", l.RdID(), "err", err)
	}
}
