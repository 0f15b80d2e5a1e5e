package protocol

import "sync"

// ============================================================================
// 驻留根
// ============================================================================

// InternRoot 协议级值驻留表
//
// 发送方首次传输某个值时携带完整编码并分配索引，之后只传索引；
// 接收方按索引回查。发送表与接收表相互独立：索引由各自的发送方
// 分配，两端表内容无需一致。表随协议存活，不做逐出。
type InternRoot struct {
	mu       sync.Mutex
	sent     map[any]int32
	received map[int32]any
}

// NewInternRoot 创建空驻留表
func NewInternRoot() *InternRoot {
	return &InternRoot{
		sent:     make(map[any]int32),
		received: make(map[int32]any),
	}
}

// InternForSend 为待发送的值取驻留索引
//
// first 为 true 表示该值首次发送，需随消息携带完整编码。
// 值必须可比较（驻留键控于值相等）。
func (r *InternRoot) InternForSend(v any) (idx int32, first bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx, ok := r.sent[v]; ok {
		return idx, false
	}
	idx = int32(len(r.sent))
	r.sent[v] = idx
	return idx, true
}

// RecordReceived 登记对端首次发来的值
//
// 索引由对端分配，原样记录。
func (r *InternRoot) RecordReceived(idx int32, v any) {
	r.mu.Lock()
	r.received[idx] = v
	r.mu.Unlock()
}

// ResolveReceived 按索引回查对端的值
func (r *InternRoot) ResolveReceived(idx int32) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.received[idx]
	return v, ok
}

// SentCount 返回发送表大小（测试用）
func (r *InternRoot) SentCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}
