// Package rd 实现跨进程的反应式状态同步与调用运行时
//
// 两个进程各持一个 Peer，以同一协议名互为对端。协议树由可绑定
// 实体组成：信号、属性、列表、集合、映射与调用句柄。实体先以
// 未绑定状态本地使用，绑定后获得由名字路径确定的 RdID 并开始
// 线上同步：本地变更序列化为差量发往对端，入站差量在协议调度器
// 上按到达顺序应用。
//
// 作用域由 Lifetime 表达：订阅、绑定、在途调用都在某个 Lifetime
// 内注册，随其终止按逆序清理。物理通道是带缓冲的异步处理器：
// 断线期间出站数据保留、投递挂起，重连后续投。
//
// 基本用法：
//
//	server, _ := rd.NewServer("demo", "127.0.0.1:0")
//	defer server.Close()
//
//	client, _ := rd.NewClient("demo", server.Addr())
//	defer client.Close()
//
//	prop := protocol.NewRdProperty(int64(0), protocol.CodecInt64())
//	_ = prop.Bind(client.Lifetime(), client.Protocol(), "counter")
package rd
