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
// 差量操作码
// ============================================================================

// 容器实体的线上差量操作码
//
// 两端必须一致，是协议契约的一部分。
const (
	opAdd    byte = 1
	opUpdate byte = 2
	opRemove byte = 3
)

// ============================================================================
// RdMap 实现
// ============================================================================

// RdMap 可绑定的可观察映射
//
// 本地变更以最小差量（操作码 + 键 [+ 新值]）发往对端；旧值不上线，
// 接收端应用差量时由自身状态补全，事件形状两端一致。
type RdMap[K comparable, V any] struct {
	EntityBase
	keyCodec Codec[K]
	valCodec Codec[V]
	local    *reactive.ViewableMap[K, V]
}

// 确保实现 WireReceiver 接口
var _ interfaces.WireReceiver = (*RdMap[int, int])(nil)

// NewRdMap 创建未绑定映射
func NewRdMap[K comparable, V any](keyCodec Codec[K], valCodec Codec[V]) *RdMap[K, V] {
	return &RdMap[K, V]{
		keyCodec: keyCodec,
		valCodec: valCodec,
		local:    reactive.NewViewableMap[K, V](),
	}
}

// Bind 在协议根下绑定
func (m *RdMap[K, V]) Bind(lt *lifetime.Lifetime, p *Protocol, name string) error {
	return m.BindUnder(lt, p, p.RootID(), name)
}

// BindUnder 在指定父 id 下绑定
func (m *RdMap[K, V]) BindUnder(lt *lifetime.Lifetime, p *Protocol, parentID types.RdID, name string) error {
	return m.BindReceiver(lt, p, parentID, name, m)
}

// Get 读取键对应的值
func (m *RdMap[K, V]) Get(key K) (V, bool) {
	return m.local.Get(key)
}

// Len 返回条目数
func (m *RdMap[K, V]) Len() int {
	return m.local.Len()
}

// Keys 返回按插入顺序排列的键
func (m *RdMap[K, V]) Keys() []K {
	return m.local.Keys()
}

// Set 写入键值
//
// 新键产生 Add 事件，既有键产生携带旧值的 Update 事件；
// 已绑定时差量同时发往对端。
func (m *RdMap[K, V]) Set(key K, value V) {
	_, existed := m.local.Set(key, value)
	op := opAdd
	if existed {
		op = opUpdate
	}
	m.send(func(ctx SerializationCtx, buf *buffer.Buffer) error {
		buf.WriteUint8(op)
		if err := m.keyCodec.Write(ctx, buf, key); err != nil {
			return err
		}
		return m.valCodec.Write(ctx, buf, value)
	})
}

// Remove 删除键
//
// 事件总是携带旧值。键不存在时无事件、无发送。
func (m *RdMap[K, V]) Remove(key K) (V, bool) {
	old, existed := m.local.Remove(key)
	if !existed {
		return old, false
	}
	m.send(func(ctx SerializationCtx, buf *buffer.Buffer) error {
		buf.WriteUint8(opRemove)
		return m.keyCodec.Write(ctx, buf, key)
	})
	return old, true
}

// Clear 逐键清空（按插入顺序产生 Remove 事件）
func (m *RdMap[K, V]) Clear() {
	for _, key := range m.local.Keys() {
		m.Remove(key)
	}
}

// Advise 订阅事件：既有条目先按插入顺序回放为 Add
func (m *RdMap[K, V]) Advise(lt *lifetime.Lifetime, handler func(reactive.MapEvent[K, V])) {
	m.local.Advise(lt, handler)
}

// AdviseAddRemove 以增/删视角订阅（Update 折叠为 Remove+Add）
func (m *RdMap[K, V]) AdviseAddRemove(lt *lifetime.Lifetime, handler func(kind reactive.AddRemove, key K, value V)) {
	m.local.AdviseAddRemove(lt, handler)
}

// View 为每个条目派生子生存期
func (m *RdMap[K, V]) View(lt *lifetime.Lifetime, handler func(entryLt *lifetime.Lifetime, key K, value V)) {
	m.local.View(lt, handler)
}

// OnWireReceived 应用对端差量
func (m *RdMap[K, V]) OnWireReceived(buf *buffer.Buffer) {
	p := m.Proto()
	if p == nil {
		return
	}
	err := p.ReadMessage(buf, func(ctx SerializationCtx, buf *buffer.Buffer) error {
		op, err := buf.ReadUint8()
		if err != nil {
			return err
		}
		key, err := m.keyCodec.Read(ctx, buf)
		if err != nil {
			return err
		}
		switch op {
		case opAdd, opUpdate:
			value, err := m.valCodec.Read(ctx, buf)
			if err != nil {
				return err
			}
			m.local.Set(key, value)
		case opRemove:
			m.local.Remove(key)
		default:
			return fmt.Errorf("protocol: unknown map op %d", op)
		}
		return nil
	})
	if err != nil {
		logger.Error("映射消息解码失败", "rdid", m.RdID(), "err", err)
	}
}
