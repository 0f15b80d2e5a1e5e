package protocol

import (
	"sync/atomic"

	"github.com/dep2p/go-rd/pkg/types"
)

// ============================================================================
// 动态 id 分配
// ============================================================================

// IdentityKind 协议端别
//
// 动态 id（任务、动态子实体）由两端各自分配：客户端取奇数、
// 服务端取偶数，保证无需握手即不冲突。
type IdentityKind int

const (
	// ClientSide 客户端（分配奇数 id）
	ClientSide IdentityKind = iota
	// ServerSide 服务端（分配偶数 id）
	ServerSide
)

// String 返回端别名称
func (k IdentityKind) String() string {
	if k == ClientSide {
		return "client"
	}
	return "server"
}

// Identities 动态 id 分配器
//
// 并发安全；分配出的 id 严格递增且不复用。
type Identities struct {
	kind    IdentityKind
	counter atomic.Int64
}

// NewIdentities 创建分配器
func NewIdentities(kind IdentityKind) *Identities {
	return &Identities{kind: kind}
}

// Kind 返回端别
func (i *Identities) Kind() IdentityKind {
	return i.kind
}

// NextDynamicID 分配下一个动态 id
func (i *Identities) NextDynamicID() types.RdID {
	n := i.counter.Add(1)
	if i.kind == ClientSide {
		return types.RdID(2*n + 1)
	}
	return types.RdID(2 * n)
}
