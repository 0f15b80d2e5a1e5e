package lifetime

import "sync"

// ════════════════════════════════════════════════════════════════════════════
//                              Definition
// ════════════════════════════════════════════════════════════════════════════

// Definition 持有终止权的 Lifetime 定义
//
// Lifetime 与 Definition 分离：下游只拿到 Lifetime，无法替持有者
// 提前终止作用域。
type Definition struct {
	lt        *Lifetime
	parentReg *Registration
}

// NewDefinition 创建父作用域下的子定义
//
// 父终止会级联终止子；子先终止时自动从父上退订，
// 不在父上残留已失效的注册。parent 传 nil 等价于 Eternal。
func NewDefinition(parent *Lifetime) *Definition {
	if parent == nil {
		parent = Eternal()
	}
	d := &Definition{lt: newAlive()}
	reg, err := parent.OnTermination(func() {
		_ = d.lt.terminate()
	})
	if err != nil {
		// 父已终止，子生来即死
		return d
	}
	d.parentReg = reg
	return d
}

// Lifetime 返回定义的作用域
func (d *Definition) Lifetime() *Lifetime {
	return d.lt
}

// Terminate 终止作用域
//
// 幂等；返回清理动作聚合后的错误。
func (d *Definition) Terminate() error {
	if d.parentReg != nil {
		d.parentReg.Cancel()
		d.parentReg = nil
	}
	return d.lt.terminate()
}

// IsAlive 判断作用域是否存活
func (d *Definition) IsAlive() bool {
	return d.lt.IsAlive()
}

// ════════════════════════════════════════════════════════════════════════════
//                              作用域工具
// ════════════════════════════════════════════════════════════════════════════

// Using 在临时子作用域内执行 block
//
// block 返回后子作用域随即终止。
func Using(parent *Lifetime, block func(lt *Lifetime)) {
	d := NewDefinition(parent)
	defer func() { _ = d.Terminate() }()
	block(d.lt)
}

// Bracket 获取资源并保证恰好一次释放
//
// acquire 立即执行；release 在作用域终止时执行，或通过返回句柄的
// Close 提前执行。两条路径互斥，release 恰好执行一次。
// 典型用途：为传输挂起一个"暂停原因"，作用域结束自动解除。
func Bracket(lt *Lifetime, acquire func(), release func()) *BracketHandle {
	acquire()
	h := &BracketHandle{release: release}
	reg, err := lt.OnTermination(h.fire)
	if err != nil {
		// 作用域已终止，fire 已被内联执行
		return h
	}
	h.reg = reg
	return h
}

// BracketHandle Bracket 的提前释放句柄
type BracketHandle struct {
	mu      sync.Mutex
	done    bool
	reg     *Registration
	release func()
}

// fire 终止路径的释放入口
func (h *BracketHandle) fire() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return
	}
	h.done = true
	h.release()
}

// Close 提前释放（终止前的主动退出路径）
func (h *BracketHandle) Close() {
	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		return
	}
	h.done = true
	reg := h.reg
	h.mu.Unlock()

	if reg != nil {
		reg.Cancel()
	}
	h.release()
}
