package reactive

import (
	"sync"

	"github.com/dep2p/go-rd/pkg/lifetime"
)

// ════════════════════════════════════════════════════════════════════════════
//                              Property
// ════════════════════════════════════════════════════════════════════════════

// Property 有状态的可观察单值
//
// Advise 先以当前值回放一次，再订阅后续变更；这保证订阅者无论
// 何时接入都能看到完整的值序列尾部。
type Property[T any] struct {
	mu     sync.Mutex
	value  T
	change *Signal[T]
}

// NewProperty 以初始值创建属性
func NewProperty[T any](initial T) *Property[T] {
	return &Property[T]{value: initial, change: NewSignal[T]()}
}

// Value 返回当前值
func (p *Property[T]) Value() T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// Set 写入新值并通知订阅者
func (p *Property[T]) Set(value T) {
	p.mu.Lock()
	p.value = value
	p.mu.Unlock()
	p.change.Fire(value)
}

// Advise 订阅：先回放当前值，再接收后续变更
func (p *Property[T]) Advise(lt *lifetime.Lifetime, handler func(T)) {
	if !lt.IsAlive() {
		return
	}
	p.mu.Lock()
	current := p.value
	p.mu.Unlock()

	handler(current)
	p.change.Advise(lt, handler)
}

// Change 返回变更信号（不回放当前值）
func (p *Property[T]) Change() *Signal[T] {
	return p.change
}

// View 为每个值提供一个作用域
//
// 传给 handler 的 Lifetime 在下一个值到来或订阅结束时终止，
// 订阅者可在其上挂接随值存续的资源。
func (p *Property[T]) View(lt *lifetime.Lifetime, handler func(valueLt *lifetime.Lifetime, value T)) {
	seq := lifetime.NewSequentialLifetimes(lt)
	p.Advise(lt, func(v T) {
		handler(seq.Next(), v)
	})
}
