package rdcontext

// ════════════════════════════════════════════════════════════════════════════
//                              Bundle
// ════════════════════════════════════════════════════════════════════════════

// Entry Bundle 中一个槽位的快照
type Entry struct {
	// Key 槽位名
	Key string
	// Value 快照值；Present=false 时无意义
	Value any
	// Present 快照时该槽位是否有值生效
	Present bool
}

// Bundle 一组槽位在某一时刻的值快照
//
// 随每条出站消息捕获、随对应的入站分发恢复。显式传递的 Bundle
// 取代线程局部栈，使发送/接收配对在任何调度模型下语义一致。
type Bundle struct {
	entries []Entry
}

// Snapshot 捕获一组槽位的当前值
//
// 条目顺序与 handles 顺序一致（即注册顺序），线上编码依赖该顺序。
func Snapshot(handles []Handle) Bundle {
	entries := make([]Entry, 0, len(handles))
	for _, h := range handles {
		v, ok := h.SnapshotAny()
		entries = append(entries, Entry{Key: h.Key(), Value: v, Present: ok})
	}
	return Bundle{entries: entries}
}

// NewBundle 由既有条目构造 Bundle（接收端解码用）
func NewBundle(entries []Entry) Bundle {
	return Bundle{entries: entries}
}

// Entries 返回条目
func (b Bundle) Entries() []Entry {
	return b.entries
}

// Restore 把快照值压入对应槽位
//
// 返回的 release 按逆序弹出，必须在处理函数返回后调用，
// 与 Push/Pop 的配对纪律一致。byKey 中缺失的槽位被跳过
// （对端注册了本端未知的上下文时，值无处恢复，只能忽略）。
func (b Bundle) Restore(byKey map[string]Handle) (release func()) {
	pushed := make([]Handle, 0, len(b.entries))
	for _, e := range b.entries {
		if !e.Present {
			continue
		}
		h, ok := byKey[e.Key]
		if !ok {
			continue
		}
		h.PushAny(e.Value)
		pushed = append(pushed, h)
	}
	return func() {
		for i := len(pushed) - 1; i >= 0; i-- {
			pushed[i].PopAny()
		}
	}
}
