package reactive

import (
	"fmt"
	"sync"

	"github.com/dep2p/go-rd/pkg/lifetime"
)

// ════════════════════════════════════════════════════════════════════════════
//                              ViewableMap
// ════════════════════════════════════════════════════════════════════════════

// ViewableMap 可观察映射
//
// 键唯一；通知顺序与变更顺序一致，回放按插入顺序。
// Advise 提供原始事件流；View 在其上派生每键作用域：Add 创建、
// Remove 终止、Update 视为 Remove 紧跟 Add，使每条目资源随条目
// 消失被精确释放——条目可能在任意时刻被远端移除，这正是 View
// 存在的理由。
type ViewableMap[K comparable, V any] struct {
	mu     sync.Mutex
	order  []K
	items  map[K]V
	change *Signal[MapEvent[K, V]]
}

// NewViewableMap 创建映射
func NewViewableMap[K comparable, V any]() *ViewableMap[K, V] {
	return &ViewableMap[K, V]{
		items:  make(map[K]V),
		change: NewSignal[MapEvent[K, V]](),
	}
}

// Get 读取键对应的值
func (m *ViewableMap[K, V]) Get(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok
}

// Len 返回条目数
func (m *ViewableMap[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Set 写入键值，返回被替换的旧值
func (m *ViewableMap[K, V]) Set(key K, value V) (prev V, existed bool) {
	m.mu.Lock()
	prev, existed = m.items[key]
	m.items[key] = value
	if !existed {
		m.order = append(m.order, key)
	}
	m.mu.Unlock()

	if existed {
		m.change.Fire(NewMapUpdate(key, prev, value))
	} else {
		m.change.Fire(NewMapAdd(key, value))
	}
	return prev, existed
}

// Remove 移除键，返回被移除的值
func (m *ViewableMap[K, V]) Remove(key K) (V, bool) {
	m.mu.Lock()
	old, ok := m.items[key]
	if ok {
		delete(m.items, key)
		m.removeFromOrder(key)
	}
	m.mu.Unlock()

	if ok {
		m.change.Fire(NewMapRemove(key, old))
	}
	return old, ok
}

// Clear 清空映射，逐条发出 Remove 事件
func (m *ViewableMap[K, V]) Clear() {
	m.mu.Lock()
	keys := m.order
	items := m.items
	m.order = nil
	m.items = make(map[K]V)
	m.mu.Unlock()

	for _, k := range keys {
		m.change.Fire(NewMapRemove(k, items[k]))
	}
}

// Keys 按插入顺序返回键快照
func (m *ViewableMap[K, V]) Keys() []K {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]K, len(m.order))
	copy(out, m.order)
	return out
}

// Advise 订阅事件流
//
// 先按插入顺序把既有条目作为 Add 回放，再接收后续事件直至 lt
// 终止。回放处理函数内不得同步改写本映射。
func (m *ViewableMap[K, V]) Advise(lt *lifetime.Lifetime, handler func(MapEvent[K, V])) {
	if !lt.IsAlive() {
		return
	}
	m.mu.Lock()
	keys := make([]K, len(m.order))
	copy(keys, m.order)
	replay := make([]MapEvent[K, V], 0, len(keys))
	for _, k := range keys {
		replay = append(replay, NewMapAdd(k, m.items[k]))
	}
	m.mu.Unlock()

	for _, e := range replay {
		handler(e)
	}
	m.change.Advise(lt, handler)
}

// AdviseAddRemove 以两态视角订阅
//
// Update 被拆分为 Remove(old) 紧跟 Add(new)。
func (m *ViewableMap[K, V]) AdviseAddRemove(lt *lifetime.Lifetime, handler func(kind AddRemove, key K, value V)) {
	m.Advise(lt, func(e MapEvent[K, V]) {
		switch e.Kind() {
		case EventAdd:
			v, _ := e.NewValue()
			handler(AddEntry, e.Key(), v)
		case EventUpdate:
			old, _ := e.OldValue()
			handler(RemoveEntry, e.Key(), old)
			v, _ := e.NewValue()
			handler(AddEntry, e.Key(), v)
		case EventRemove:
			old, _ := e.OldValue()
			handler(RemoveEntry, e.Key(), old)
		}
	})
}

// View 以每键作用域订阅
//
// 订阅时已存在或之后加入的每个键恰好触发一次 handler，传入的
// entryLt 随该键从映射消失而同步终止、恰好一次。
//
// 失败策略：对未跟踪键收到 Remove、或对已跟踪键收到 Add，说明
// 事件应用已失去同步——这是协议不变式被破坏，直接 panic 终止
// 受影响的绑定，绝不静默吞掉。
func (m *ViewableMap[K, V]) View(lt *lifetime.Lifetime, handler func(entryLt *lifetime.Lifetime, key K, value V)) {
	// 每键作用域表仅被订阅事件流（即分发线程）串行访问
	entries := make(map[K]*lifetime.Definition)
	m.AdviseAddRemove(lt, func(kind AddRemove, key K, value V) {
		switch kind {
		case AddEntry:
			if _, ok := entries[key]; ok {
				panic(fmt.Sprintf("viewable map: lifetime definition already exists for key %v", key))
			}
			def := lifetime.NewDefinition(lt)
			entries[key] = def
			handler(def.Lifetime(), key, value)
		case RemoveEntry:
			def, ok := entries[key]
			if !ok {
				panic(fmt.Sprintf("viewable map: removing non-tracked lifetime for key %v", key))
			}
			delete(entries, key)
			_ = def.Terminate()
		}
	})
}

// removeFromOrder 调用方需持有 m.mu
func (m *ViewableMap[K, V]) removeFromOrder(key K) {
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}
