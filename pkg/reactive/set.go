package reactive

import (
	"fmt"
	"sync"

	"github.com/dep2p/go-rd/pkg/lifetime"
)

// ════════════════════════════════════════════════════════════════════════════
//                              ViewableSet
// ════════════════════════════════════════════════════════════════════════════

// ViewableSet 可观察集合
//
// 元素唯一，事件只有 Add/Remove 两种；回放按插入顺序。
type ViewableSet[V comparable] struct {
	mu      sync.Mutex
	order   []V
	present map[V]struct{}
	change  *Signal[SetEvent[V]]
}

// NewViewableSet 创建集合
func NewViewableSet[V comparable]() *ViewableSet[V] {
	return &ViewableSet[V]{
		present: make(map[V]struct{}),
		change:  NewSignal[SetEvent[V]](),
	}
}

// Len 返回元素数
func (s *ViewableSet[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.present)
}

// Contains 判断元素是否存在
func (s *ViewableSet[V]) Contains(value V) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.present[value]
	return ok
}

// Add 加入元素，已存在时返回 false
func (s *ViewableSet[V]) Add(value V) bool {
	s.mu.Lock()
	if _, ok := s.present[value]; ok {
		s.mu.Unlock()
		return false
	}
	s.present[value] = struct{}{}
	s.order = append(s.order, value)
	s.mu.Unlock()

	s.change.Fire(NewSetAdd(value))
	return true
}

// Remove 移除元素，不存在时返回 false
func (s *ViewableSet[V]) Remove(value V) bool {
	s.mu.Lock()
	if _, ok := s.present[value]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.present, value)
	for i, v := range s.order {
		if v == value {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.change.Fire(NewSetRemove(value))
	return true
}

// Advise 订阅：先按插入顺序回放既有元素，再接收后续事件
func (s *ViewableSet[V]) Advise(lt *lifetime.Lifetime, handler func(SetEvent[V])) {
	if !lt.IsAlive() {
		return
	}
	s.mu.Lock()
	replay := make([]SetEvent[V], 0, len(s.order))
	for _, v := range s.order {
		replay = append(replay, NewSetAdd(v))
	}
	s.mu.Unlock()

	for _, e := range replay {
		handler(e)
	}
	s.change.Advise(lt, handler)
}

// View 以每元素作用域订阅
//
// 传入的 entryLt 随元素被移除而终止；不匹配的 Add/Remove 视为
// 协议不变式被破坏，直接 panic。
func (s *ViewableSet[V]) View(lt *lifetime.Lifetime, handler func(entryLt *lifetime.Lifetime, value V)) {
	entries := make(map[V]*lifetime.Definition)
	s.Advise(lt, func(e SetEvent[V]) {
		switch e.Kind() {
		case AddEntry:
			if _, ok := entries[e.Value()]; ok {
				panic(fmt.Sprintf("viewable set: lifetime definition already exists for value %v", e.Value()))
			}
			def := lifetime.NewDefinition(lt)
			entries[e.Value()] = def
			handler(def.Lifetime(), e.Value())
		case RemoveEntry:
			def, ok := entries[e.Value()]
			if !ok {
				panic(fmt.Sprintf("viewable set: removing non-tracked lifetime for value %v", e.Value()))
			}
			delete(entries, e.Value())
			_ = def.Terminate()
		}
	})
}
