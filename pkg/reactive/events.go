// Package reactive 提供可观察的反应式原语
//
// Signal、Property、ViewableList、ViewableSet、ViewableMap 是协议树
// 中可绑定实体的本地核心：每个原语维护自身状态并在变更时同步地、
// 按变更顺序通知订阅者。订阅随 Lifetime 终止自动移除。
//
// 集合事件建模为带判别标签的和类型：Add 只携带新值，Remove 只携带
// 旧值，Update 必然同时携带新旧值——缺失一侧是构造期错误而不是
// 运行期的静默缺省。
package reactive

import "fmt"

// ════════════════════════════════════════════════════════════════════════════
//                              事件类型
// ════════════════════════════════════════════════════════════════════════════

// EventKind 集合事件判别标签
type EventKind int

const (
	// EventAdd 新增条目
	EventAdd EventKind = iota
	// EventUpdate 更新条目（同键旧值换新值）
	EventUpdate
	// EventRemove 移除条目
	EventRemove
)

// String 返回标签名
func (k EventKind) String() string {
	switch k {
	case EventAdd:
		return "Add"
	case EventUpdate:
		return "Update"
	case EventRemove:
		return "Remove"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// AddRemove 展平后的两态事件
//
// Update 在该视角下表现为 Remove(old) 紧跟 Add(new)。
type AddRemove int

const (
	// AddEntry 条目出现
	AddEntry AddRemove = iota
	// RemoveEntry 条目消失
	RemoveEntry
)

// ════════════════════════════════════════════════════════════════════════════
//                              MapEvent
// ════════════════════════════════════════════════════════════════════════════

// MapEvent 映射变更事件
//
// 不变式：Update 必有 old 与 new；Add 无 old；Remove 必有 old、无 new。
// 只能通过构造函数创建，保证不变式在构造期成立。
type MapEvent[K comparable, V any] struct {
	kind     EventKind
	key      K
	oldValue V
	newValue V
	hasOld   bool
	hasNew   bool
}

// NewMapAdd 构造 Add 事件
func NewMapAdd[K comparable, V any](key K, newValue V) MapEvent[K, V] {
	return MapEvent[K, V]{kind: EventAdd, key: key, newValue: newValue, hasNew: true}
}

// NewMapUpdate 构造 Update 事件
func NewMapUpdate[K comparable, V any](key K, oldValue, newValue V) MapEvent[K, V] {
	return MapEvent[K, V]{kind: EventUpdate, key: key, oldValue: oldValue, newValue: newValue, hasOld: true, hasNew: true}
}

// NewMapRemove 构造 Remove 事件
//
// Remove 总是携带被移除的旧值。
func NewMapRemove[K comparable, V any](key K, oldValue V) MapEvent[K, V] {
	return MapEvent[K, V]{kind: EventRemove, key: key, oldValue: oldValue, hasOld: true}
}

// Kind 返回判别标签
func (e MapEvent[K, V]) Kind() EventKind { return e.kind }

// Key 返回事件键
func (e MapEvent[K, V]) Key() K { return e.key }

// OldValue 返回旧值；Add 事件无旧值
func (e MapEvent[K, V]) OldValue() (V, bool) { return e.oldValue, e.hasOld }

// NewValue 返回新值；Remove 事件无新值
func (e MapEvent[K, V]) NewValue() (V, bool) { return e.newValue, e.hasNew }

// String 返回事件描述
func (e MapEvent[K, V]) String() string {
	switch e.kind {
	case EventAdd:
		return fmt.Sprintf("Add %v:%v", e.key, e.newValue)
	case EventUpdate:
		return fmt.Sprintf("Update %v:%v->%v", e.key, e.oldValue, e.newValue)
	default:
		return fmt.Sprintf("Remove %v:%v", e.key, e.oldValue)
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              ListEvent / SetEvent
// ════════════════════════════════════════════════════════════════════════════

// ListEvent 列表变更事件，键为位置下标
type ListEvent[V any] struct {
	kind     EventKind
	index    int
	oldValue V
	newValue V
	hasOld   bool
	hasNew   bool
}

// NewListAdd 构造 Add 事件
func NewListAdd[V any](index int, newValue V) ListEvent[V] {
	return ListEvent[V]{kind: EventAdd, index: index, newValue: newValue, hasNew: true}
}

// NewListUpdate 构造 Update 事件
func NewListUpdate[V any](index int, oldValue, newValue V) ListEvent[V] {
	return ListEvent[V]{kind: EventUpdate, index: index, oldValue: oldValue, newValue: newValue, hasOld: true, hasNew: true}
}

// NewListRemove 构造 Remove 事件
func NewListRemove[V any](index int, oldValue V) ListEvent[V] {
	return ListEvent[V]{kind: EventRemove, index: index, oldValue: oldValue, hasOld: true}
}

// Kind 返回判别标签
func (e ListEvent[V]) Kind() EventKind { return e.kind }

// Index 返回事件下标
func (e ListEvent[V]) Index() int { return e.index }

// OldValue 返回旧值；Add 事件无旧值
func (e ListEvent[V]) OldValue() (V, bool) { return e.oldValue, e.hasOld }

// NewValue 返回新值；Remove 事件无新值
func (e ListEvent[V]) NewValue() (V, bool) { return e.newValue, e.hasNew }

// SetEvent 集合变更事件（集合无 Update）
type SetEvent[V comparable] struct {
	kind  AddRemove
	value V
}

// NewSetAdd 构造加入事件
func NewSetAdd[V comparable](value V) SetEvent[V] {
	return SetEvent[V]{kind: AddEntry, value: value}
}

// NewSetRemove 构造移除事件
func NewSetRemove[V comparable](value V) SetEvent[V] {
	return SetEvent[V]{kind: RemoveEntry, value: value}
}

// Kind 返回标签
func (e SetEvent[V]) Kind() AddRemove { return e.kind }

// Value 返回事件值
func (e SetEvent[V]) Value() V { return e.value }
