// Package transport 实现带背压的缓冲异步字节处理器
//
// 处理器把任意多个生产者 goroutine 与唯一的专职发送 goroutine 解耦：
// 生产者通过 Put 把出站字节追加进一个由定长块组成的单向循环链环，
// 发送 goroutine 逐块取出并交给物理传输的处理回调，在正常负载下
// 抹平突发而不阻塞生产者。
//
// 链环始终至少含一个块。写游标块写满后向后插入新块（受 MaxChunks
// 约束）；达到上限时生产者阻塞（背压），直到发送方释放容量。突发
// 过后链环处于空闲增长状态超过 ShrinkInterval 时，写游标之后的空块
// 被回收，约束常驻内存。
//
// 状态机：Initialized → AsyncProcessing → {Stopping|Terminating} →
// Terminated。Stop 优雅排空后退出，Terminate 立即退出；二者都在
// 超时内等待发送 goroutine 结束，超时也只做尽力中断，最终总是
// 进入 Terminated。
package transport
