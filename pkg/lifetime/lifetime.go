// Package lifetime 提供统一的取消作用域
//
// Lifetime 是整个运行时唯一的取消信号：反应式订阅、每键子作用域、
// 传输暂停原因等资源都向其注册清理动作。终止时清理动作按注册的
// 逆序各执行恰好一次。
//
// 状态推进：Alive → Terminating → Terminated，不可逆。
// 一旦离开 Alive，新的注册立即内联执行（并返回 ErrAlreadyTerminated），
// 保证"注册过的动作必然被执行"这一不变式在任何时序下成立。
package lifetime

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/dep2p/go-rd/pkg/lib/log"
)

var logger = log.Logger("lifetime")

var (
	// ErrAlreadyTerminated 向已终止的 Lifetime 注册动作
	//
	// 动作已被内联执行，调用方通常只需忽略该错误。
	ErrAlreadyTerminated = errors.New("lifetime: already terminated")
)

// ════════════════════════════════════════════════════════════════════════════
//                              状态
// ════════════════════════════════════════════════════════════════════════════

// Status Lifetime 状态
type Status int32

const (
	// StatusAlive 存活，可注册清理动作
	StatusAlive Status = iota
	// StatusTerminating 正在执行清理动作
	StatusTerminating
	// StatusTerminated 清理完毕
	StatusTerminated
)

// String 返回状态名
func (s Status) String() string {
	switch s {
	case StatusAlive:
		return "Alive"
	case StatusTerminating:
		return "Terminating"
	case StatusTerminated:
		return "Terminated"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              Lifetime
// ════════════════════════════════════════════════════════════════════════════

// Lifetime 取消作用域
//
// 通过 Definition 创建并终止；Lifetime 本身只暴露注册与查询。
type Lifetime struct {
	mu      sync.Mutex
	status  atomic.Int32
	actions []*Registration
	nextID  int64
}

// Registration 一次清理动作的注册凭据
//
// 在终止发生前可通过 Cancel 退订。
type Registration struct {
	lt     *Lifetime
	id     int64
	action func()
}

// Cancel 在终止前退订
//
// 返回 true 表示动作已移除、将不会被执行；
// 返回 false 表示动作已执行或正在执行。
func (r *Registration) Cancel() bool {
	if r == nil || r.lt == nil {
		return false
	}
	r.lt.mu.Lock()
	defer r.lt.mu.Unlock()
	if Status(r.lt.status.Load()) != StatusAlive {
		return false
	}
	for i, a := range r.lt.actions {
		if a.id == r.id {
			r.lt.actions = append(r.lt.actions[:i], r.lt.actions[i+1:]...)
			return true
		}
	}
	return false
}

func newAlive() *Lifetime {
	return &Lifetime{}
}

// Status 返回当前状态
func (lt *Lifetime) Status() Status {
	return Status(lt.status.Load())
}

// IsAlive 判断是否存活
func (lt *Lifetime) IsAlive() bool {
	return lt.Status() == StatusAlive
}

// OnTermination 注册终止时执行的清理动作
//
// Lifetime 已离开 Alive 时，动作被内联执行并返回
// ErrAlreadyTerminated；返回的 Registration 为 nil。
func (lt *Lifetime) OnTermination(action func()) (*Registration, error) {
	lt.mu.Lock()
	if Status(lt.status.Load()) != StatusAlive {
		lt.mu.Unlock()
		action()
		return nil, ErrAlreadyTerminated
	}
	lt.nextID++
	reg := &Registration{lt: lt, id: lt.nextID, action: action}
	lt.actions = append(lt.actions, reg)
	lt.mu.Unlock()
	return reg, nil
}

// terminate 执行全部清理动作（逆序、恰好一次）
func (lt *Lifetime) terminate() error {
	lt.mu.Lock()
	if Status(lt.status.Load()) != StatusAlive {
		lt.mu.Unlock()
		return nil
	}
	lt.status.Store(int32(StatusTerminating))
	actions := lt.actions
	lt.actions = nil
	lt.mu.Unlock()

	var err error
	for i := len(actions) - 1; i >= 0; i-- {
		err = multierr.Append(err, runAction(actions[i].action))
	}

	lt.status.Store(int32(StatusTerminated))
	if err != nil {
		logger.Error("清理动作执行出错", "err", err)
	}
	return err
}

// runAction 执行单个清理动作，panic 转换为 error
//
// 单个动作出错不能阻止其余动作执行。
func runAction(action func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lifetime: termination action panicked: %v", r)
		}
	}()
	action()
	return nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              单例
// ════════════════════════════════════════════════════════════════════════════

var (
	eternal        = newAlive()
	terminatedOnce sync.Once
	terminatedLt   *Lifetime
)

// Eternal 永不终止的 Lifetime
//
// 仅用于确实与进程同寿命的资源；测试中优先使用显式 Definition。
func Eternal() *Lifetime {
	return eternal
}

// Terminated 预先终止的 Lifetime
func Terminated() *Lifetime {
	terminatedOnce.Do(func() {
		terminatedLt = newAlive()
		terminatedLt.status.Store(int32(StatusTerminated))
	})
	return terminatedLt
}
