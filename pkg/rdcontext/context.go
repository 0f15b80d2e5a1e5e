// Package rdcontext 提供随消息传播的环境值
//
// 每个 Context 是进程内按名字命名的环境槽位：名字相同即视为同一
// 槽位，两个进程里同名的 Context 在线上互相对应。值的作用域通过
// 显式的 Push/Pop 栈表达（严格配对），而不是 goroutine 局部状态，
// 因此在任何并发模型下行为一致。
//
// 发送时把全部已注册槽位的当前值快照为 Bundle 随消息携带；接收端
// 在调用处理函数前恢复快照、调用后弹出，使处理函数观察到发送方
// 当时的环境值。
//
// 轻量（light）槽位按值传输；重量（heavy）槽位在协议的驻留根中
// 驻留去重，首次出现后只传输索引。
package rdcontext

import (
	"fmt"
	"sync"
)

// ════════════════════════════════════════════════════════════════════════════
//                              Context
// ════════════════════════════════════════════════════════════════════════════

// Context 命名环境槽位
//
// 相等性以 Key 判定，而非实例身份。
type Context[T comparable] struct {
	key   string
	heavy bool

	mu    sync.Mutex
	stack []T
}

// NewLight 创建轻量槽位（值按值传输）
func NewLight[T comparable](key string) *Context[T] {
	return &Context[T]{key: key}
}

// NewHeavy 创建重量槽位（值驻留去重，按索引传输）
func NewHeavy[T comparable](key string) *Context[T] {
	return &Context[T]{key: key, heavy: true}
}

// Key 返回槽位名
func (c *Context[T]) Key() string { return c.key }

// IsHeavy 判断是否为重量槽位
func (c *Context[T]) IsHeavy() bool { return c.heavy }

// Push 压入新的当前值
//
// 必须与 Pop 严格配对，包裹"序列化并发送"或"分发接收"的代码区间。
func (c *Context[T]) Push(value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stack = append(c.stack, value)
}

// Pop 弹出当前值，恢复上一个值
//
// 空栈弹出违反配对纪律，panic。
func (c *Context[T]) Pop() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.stack) == 0 {
		panic(fmt.Sprintf("rdcontext: unbalanced pop on context %q", c.key))
	}
	top := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	return top
}

// Value 读取当前值
//
// 返回 false 表示当前没有值生效。
func (c *Context[T]) Value() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	if len(c.stack) == 0 {
		return zero, false
	}
	return c.stack[len(c.stack)-1], true
}

// Depth 返回当前栈深（测试与诊断用）
func (c *Context[T]) Depth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.stack)
}

// ════════════════════════════════════════════════════════════════════════════
//                              Handle（类型擦除视图）
// ════════════════════════════════════════════════════════════════════════════

// Handle 槽位的类型擦除视图
//
// 协议侧的上下文处理器以 Handle 管理异构槽位集合。
type Handle interface {
	// Key 返回槽位名
	Key() string

	// IsHeavy 判断是否为重量槽位
	IsHeavy() bool

	// SnapshotAny 读取当前值（类型擦除）
	SnapshotAny() (value any, present bool)

	// PushAny 压入值（类型擦除）；与 PopAny 配对
	PushAny(value any)

	// PopAny 弹出值
	PopAny()
}

// SnapshotAny 实现 Handle
func (c *Context[T]) SnapshotAny() (any, bool) {
	v, ok := c.Value()
	if !ok {
		return nil, false
	}
	return v, true
}

// PushAny 实现 Handle
func (c *Context[T]) PushAny(value any) {
	c.Push(value.(T))
}

// PopAny 实现 Handle
func (c *Context[T]) PopAny() {
	c.Pop()
}

var _ Handle = (*Context[int])(nil)
