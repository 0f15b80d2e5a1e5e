// Package interfaces 定义 go-rd 公共接口
//
// 本文件定义 Wire 接口，对应 internal/core/wire/ 实现。
package interfaces

import (
	"github.com/dep2p/go-rd/pkg/lib/buffer"
	"github.com/dep2p/go-rd/pkg/lifetime"
	"github.com/dep2p/go-rd/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
// Wire 接口
// ════════════════════════════════════════════════════════════════════════════

// WireReceiver 定义可从线上接收消息的实体
//
// 已绑定的反应式实体实现本接口；消息按 RdID 路由。
type WireReceiver interface {
	// RdID 返回实体在协议树内的 id
	RdID() types.RdID

	// OnWireReceived 处理一条到达的消息负载
	//
	// 总是在协议 Scheduler 上被调用，同一协议内不会并发。
	OnWireReceived(buf *buffer.Buffer)
}

// Wire 定义对等端之间的成帧消息通道
//
// 出站：Send 把 writer 产生的负载封装为
// [RdID int64][len int32][payload] 帧并入队发送；
// 入站：Advise 注册的接收者在消息到达时于 Scheduler 上被调用。
//
// 架构位置：Transport Layer
// 实现位置：internal/core/wire/
type Wire interface {
	// Send 发送一条寻址消息
	//
	// writer 负责写入负载；帧头由 Wire 负责。
	// id 不得为 Nil。
	Send(id types.RdID, writer func(buf *buffer.Buffer))

	// Advise 注册消息接收者，订阅随 lt 终止自动移除
	Advise(lt *lifetime.Lifetime, receiver WireReceiver)
}
