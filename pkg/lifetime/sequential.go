package lifetime

import "sync"

// SequentialLifetimes 串行作用域序列
//
// 同一时刻至多一个子作用域存活；Next 终止上一个并开启下一个。
// 用于"重连"类场景：每个连接化身拿到自己的作用域，新连接建立时
// 旧连接的全部资源自动释放。
type SequentialLifetimes struct {
	mu      sync.Mutex
	parent  *Lifetime
	current *Definition
}

// NewSequentialLifetimes 创建序列
func NewSequentialLifetimes(parent *Lifetime) *SequentialLifetimes {
	return &SequentialLifetimes{parent: parent}
}

// Next 终止当前作用域并开启新作用域
func (s *SequentialLifetimes) Next() *Lifetime {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		_ = s.current.Terminate()
	}
	s.current = NewDefinition(s.parent)
	return s.current.Lifetime()
}

// TerminateCurrent 终止当前作用域（若有）
func (s *SequentialLifetimes) TerminateCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		_ = s.current.Terminate()
		s.current = nil
	}
}

// IsCurrentAlive 判断当前作用域是否存活
func (s *SequentialLifetimes) IsCurrentAlive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && s.current.IsAlive()
}
