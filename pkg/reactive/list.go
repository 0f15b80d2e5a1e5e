package reactive

import (
	"sync"

	"github.com/dep2p/go-rd/pkg/lifetime"
)

// ════════════════════════════════════════════════════════════════════════════
//                              ViewableList
// ════════════════════════════════════════════════════════════════════════════

// ViewableList 可观察列表
//
// 事件携带位置下标；回放按当前内容从 0 起依次发出 Add。
type ViewableList[V any] struct {
	mu     sync.Mutex
	items  []V
	change *Signal[ListEvent[V]]
}

// NewViewableList 创建列表
func NewViewableList[V any]() *ViewableList[V] {
	return &ViewableList[V]{change: NewSignal[ListEvent[V]]()}
}

// Len 返回长度
func (l *ViewableList[V]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Get 读取下标处的值
func (l *ViewableList[V]) Get(index int) (V, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var zero V
	if index < 0 || index >= len(l.items) {
		return zero, false
	}
	return l.items[index], true
}

// Add 追加元素
func (l *ViewableList[V]) Add(value V) {
	l.mu.Lock()
	l.items = append(l.items, value)
	index := len(l.items) - 1
	l.mu.Unlock()

	l.change.Fire(NewListAdd(index, value))
}

// Insert 在下标处插入元素
func (l *ViewableList[V]) Insert(index int, value V) bool {
	l.mu.Lock()
	if index < 0 || index > len(l.items) {
		l.mu.Unlock()
		return false
	}
	l.items = append(l.items, value)
	copy(l.items[index+1:], l.items[index:])
	l.items[index] = value
	l.mu.Unlock()

	l.change.Fire(NewListAdd(index, value))
	return true
}

// Set 替换下标处的值，返回旧值
func (l *ViewableList[V]) Set(index int, value V) (V, bool) {
	l.mu.Lock()
	var zero V
	if index < 0 || index >= len(l.items) {
		l.mu.Unlock()
		return zero, false
	}
	old := l.items[index]
	l.items[index] = value
	l.mu.Unlock()

	l.change.Fire(NewListUpdate(index, old, value))
	return old, true
}

// RemoveAt 移除下标处的元素，返回旧值
func (l *ViewableList[V]) RemoveAt(index int) (V, bool) {
	l.mu.Lock()
	var zero V
	if index < 0 || index >= len(l.items) {
		l.mu.Unlock()
		return zero, false
	}
	old := l.items[index]
	l.items = append(l.items[:index], l.items[index+1:]...)
	l.mu.Unlock()

	l.change.Fire(NewListRemove(index, old))
	return old, true
}

// Advise 订阅：先回放当前内容，再接收后续事件
func (l *ViewableList[V]) Advise(lt *lifetime.Lifetime, handler func(ListEvent[V])) {
	if !lt.IsAlive() {
		return
	}
	l.mu.Lock()
	replay := make([]ListEvent[V], 0, len(l.items))
	for i, v := range l.items {
		replay = append(replay, NewListAdd(i, v))
	}
	l.mu.Unlock()

	for _, e := range replay {
		handler(e)
	}
	l.change.Advise(lt, handler)
}
