package reactive

import (
	"sync"

	"github.com/dep2p/go-rd/pkg/lifetime"
)

// ════════════════════════════════════════════════════════════════════════════
//                              Signal
// ════════════════════════════════════════════════════════════════════════════

// Signal 无状态事件流
//
// Fire 同步地按注册顺序调用全部存活订阅者；订阅随 Lifetime 终止
// 自动移除。订阅者在处理函数内再注册/退订不影响本次分发
// （分发基于注册表快照）。
type Signal[T any] struct {
	mu     sync.Mutex
	subs   []*signalSub[T]
	nextID int64
}

type signalSub[T any] struct {
	id      int64
	handler func(T)
}

// NewSignal 创建信号
func NewSignal[T any]() *Signal[T] {
	return &Signal[T]{}
}

// Advise 注册订阅者，lt 终止时移除
func (s *Signal[T]) Advise(lt *lifetime.Lifetime, handler func(T)) {
	if !lt.IsAlive() {
		return
	}
	s.mu.Lock()
	s.nextID++
	sub := &signalSub[T]{id: s.nextID, handler: handler}
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	// lt 在上方检查后、注册前终止：OnTermination 内联执行移除，订阅不泄漏
	_, _ = lt.OnTermination(func() { s.remove(sub.id) })
}

// Fire 向全部订阅者分发一个值
func (s *Signal[T]) Fire(value T) {
	s.mu.Lock()
	snapshot := make([]*signalSub[T], len(s.subs))
	copy(snapshot, s.subs)
	s.mu.Unlock()

	for _, sub := range snapshot {
		sub.handler(value)
	}
}

// HasSubscribers 判断是否有存活订阅者
func (s *Signal[T]) HasSubscribers() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs) > 0
}

func (s *Signal[T]) remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}
