package task

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-rd/pkg/interfaces"
	"github.com/dep2p/go-rd/pkg/lifetime"
)

// ============================================================================
// RdTask 实现
// ============================================================================

// RdTask 一次在途调用的客户端侧句柄
//
// 结果是终态：首个写入者胜出，之后的写入被忽略。订阅者在协议
// 调度器上收到通知，与实体事件的线程模型一致。
type RdTask[T any] struct {
	scheduler interfaces.Scheduler

	mu       sync.Mutex
	done     chan struct{}
	result   Result[T]
	advisers []func(Result[T])
}

func newTask[T any](scheduler interfaces.Scheduler) *RdTask[T] {
	return &RdTask[T]{
		scheduler: scheduler,
		done:      make(chan struct{}),
	}
}

// TryResult 非阻塞读取结果
func (t *RdTask[T]) TryResult() (Result[T], bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	select {
	case <-t.done:
		return t.result, true
	default:
		var zero Result[T]
		return zero, false
	}
}

// OnResult 订阅结果，通知经协议调度器送达
//
// 已完成的任务立即排队通知。lt 终止后不再通知。
func (t *RdTask[T]) OnResult(lt *lifetime.Lifetime, handler func(Result[T])) {
	wrapped := func(r Result[T]) {
		t.scheduler.Queue(func() {
			if lt.IsAlive() {
				handler(r)
			}
		})
	}

	t.mu.Lock()
	select {
	case <-t.done:
		r := t.result
		t.mu.Unlock()
		wrapped(r)
		return
	default:
	}
	t.advisers = append(t.advisers, wrapped)
	t.mu.Unlock()
}

// Wait 阻塞等待结果
//
// 超出 timeout 返回 ErrTimeout；任务本身保持在途，结果稍后
// 到达仍会触发 OnResult 订阅者。
func (t *RdTask[T]) Wait(clk clock.Clock, timeout time.Duration) (Result[T], error) {
	timer := clk.Timer(timeout)
	defer timer.Stop()
	select {
	case <-t.done:
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.result, nil
	case <-timer.C:
		var zero Result[T]
		return zero, ErrTimeout
	}
}

// setResult 写入终态，首个写入者胜出
func (t *RdTask[T]) setResult(r Result[T]) bool {
	t.mu.Lock()
	select {
	case <-t.done:
		t.mu.Unlock()
		return false
	default:
	}
	t.result = r
	advisers := t.advisers
	t.advisers = nil
	close(t.done)
	t.mu.Unlock()

	for _, adv := range advisers {
		adv(r)
	}
	return true
}
