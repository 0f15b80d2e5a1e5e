// Package scheduler 实现协议分发队列
package scheduler

import (
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-rd/pkg/interfaces"
	"github.com/dep2p/go-rd/pkg/lib/log"
	"github.com/dep2p/go-rd/pkg/lifetime"
)

var logger = log.Logger("core/scheduler")

// ============================================================================
// SingleThread 实现
// ============================================================================

// SingleThread 单泵协议调度器
//
// 一个专职 goroutine 按 FIFO 顺序执行全部入队动作：同一协议的
// 线上可见变更应用与入站分发都经由它，互不并行、永不重排。
type SingleThread struct {
	name string

	mu        sync.Mutex
	cond      *sync.Cond
	queue     []func()
	stopped   bool
	executing int

	active atomic.Bool
}

// 确保实现 Scheduler 接口
var _ interfaces.FlushableScheduler = (*SingleThread)(nil)

// NewSingleThread 创建并启动调度器
//
// lt 终止时停止：已入队动作全部执行完毕后泵退出（优雅排空）。
func NewSingleThread(lt *lifetime.Lifetime, name string) *SingleThread {
	s := &SingleThread{name: name}
	s.cond = sync.NewCond(&s.mu)
	go s.pump()
	if _, err := lt.OnTermination(s.stop); err != nil {
		// 作用域已终止，stop 已内联执行
		return s
	}
	return s
}

// Queue 入队动作
//
// 调度器停止后的入队被丢弃并记录警告：停止意味着协议会话已结束，
// 迟到的分发没有接收方。
func (s *SingleThread) Queue(action func()) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		logger.Warn("调度器已停止，动作被丢弃", "scheduler", s.name)
		return
	}
	s.queue = append(s.queue, action)
	s.cond.Broadcast()
	s.mu.Unlock()
}

// IsActive 返回是否正在分发动作
func (s *SingleThread) IsActive() bool {
	return s.active.Load()
}

// Flush 阻塞直到队列清空且无动作在执行
func (s *SingleThread) Flush() {
	s.mu.Lock()
	for len(s.queue) > 0 || s.executing > 0 {
		s.cond.Wait()
	}
	s.mu.Unlock()
}

// stop 请求停止；剩余动作执行完毕后泵退出
func (s *SingleThread) stop() {
	s.mu.Lock()
	s.stopped = true
	s.cond.Broadcast()
	s.mu.Unlock()
}

func (s *SingleThread) pump() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.stopped {
			s.cond.Wait()
		}
		if len(s.queue) == 0 && s.stopped {
			s.mu.Unlock()
			return
		}
		action := s.queue[0]
		s.queue = s.queue[1:]
		s.executing++
		s.mu.Unlock()

		s.run(action)

		s.mu.Lock()
		s.executing--
		if len(s.queue) == 0 && s.executing == 0 {
			s.cond.Broadcast()
		}
		s.mu.Unlock()
	}
}

// run 执行单个动作；panic 被捕获记录，泵继续
func (s *SingleThread) run(action func()) {
	s.active.Store(true)
	defer func() {
		s.active.Store(false)
		if r := recover(); r != nil {
			logger.Error("分发动作 panic", "scheduler", s.name, "panic", r)
		}
	}()
	action()
}
