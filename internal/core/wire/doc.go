// Package wire 实现对等端之间的成帧消息通道
//
// 职责分三层：
//   - 帧编解码：[RdID int64][len int32][payload]，定长小端序帧头；
//   - Broker：按 RdID 路由入站消息到已注册实体，统一经协议调度器
//     分发；无人认领的消息进入有界积压（LRU），按失同步策略处理；
//   - SocketWire：TCP 物理通道。出站字节经缓冲异步处理器投递，
//     断线期间投递挂起、数据保留；入站循环解析帧交给 Broker。
//
// 物理流本身的认证是外部职责，本包不做安全处理。
package wire
