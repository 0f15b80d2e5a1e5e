// Package interfaces 定义 go-rd 公共接口
//
// 本文件定义 Scheduler 接口，对应 internal/core/scheduler/ 实现。
package interfaces

// ════════════════════════════════════════════════════════════════════════════
// Scheduler 接口
// ════════════════════════════════════════════════════════════════════════════

// Scheduler 定义协议分发队列接口
//
// 一个协议实例的全部线上可见变更应用与入站事件分发都经由同一个
// 逻辑队列执行：来自同一来源的动作保持 FIFO，不跨实体并行、不重排。
// 业务逻辑可以在任意调用方 goroutine 上运行，只有进入 Queue 的
// 动作获得上述顺序保证。
//
// 架构位置：Concurrency Layer
// 实现位置：internal/core/scheduler/
type Scheduler interface {
	// Queue 入队一个动作，稍后按 FIFO 顺序执行
	Queue(action func())

	// IsActive 返回调度器当前是否正在分发动作
	//
	// 用于断言"此代码应当运行在协议分发流程内"。
	IsActive() bool
}

// FlushableScheduler 可等待清空的调度器
//
// 测试与优雅关闭场景使用：阻塞直到此前入队的全部动作执行完毕。
type FlushableScheduler interface {
	Scheduler

	// Flush 阻塞直到队列清空
	Flush()
}
