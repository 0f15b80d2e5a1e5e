package transport

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-rd/pkg/lib/log"
	"github.com/dep2p/go-rd/pkg/lifetime"
)

var logger = log.Logger("core/transport")

// ============================================================================
// 状态机
// ============================================================================

// State 处理器状态
type State int32

const (
	// StateInitialized 已创建，发送 goroutine 未启动
	StateInitialized State = iota
	// StateAsyncProcessing 发送 goroutine 运行中
	StateAsyncProcessing
	// StateStopping 优雅停止：排空剩余数据后退出
	StateStopping
	// StateTerminating 立即停止：丢弃剩余数据
	StateTerminating
	// StateTerminated 已终止
	StateTerminated
)

// String 返回状态名
func (s State) String() string {
	switch s {
	case StateInitialized:
		return "Initialized"
	case StateAsyncProcessing:
		return "AsyncProcessing"
	case StateStopping:
		return "Stopping"
	case StateTerminating:
		return "Terminating"
	case StateTerminated:
		return "Terminated"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ============================================================================
// AsyncProcessor 实现
// ============================================================================

// AsyncProcessor 缓冲异步字节处理器
//
// 多生产者 Put、单发送 goroutine 逐块回调。块环与两个游标的全部
// 变更都在同一把互斥锁下进行，背压与关闭信号通过条件变量传递。
type AsyncProcessor struct {
	name    string
	process func(payload []byte) error

	chunkSize      int
	maxChunks      int
	shrinkInterval time.Duration
	clk            clock.Clock

	mu   sync.Mutex
	cond *sync.Cond

	state      State
	fill       *chunk // 写游标
	head       *chunk // 读游标（最旧未消费块）
	chunkCount int

	// longPut 有生产者正阻塞等待容量；其余生产者必须整体等待，
	// 不得把各自负载的片段交错写入同一块
	longPut bool

	pauses     map[string]*lifetime.BracketHandle
	pauseCount int

	shrinkDue   bool
	shrinkTimer *clock.Timer

	done     chan struct{}
	doneOnce sync.Once
}

// NewAsyncProcessor 创建处理器
//
// process 为逐块处理回调，由唯一的发送 goroutine 调用；
// 回调返回错误或 panic 只影响当前块，发送 goroutine 继续处理后续块。
func NewAsyncProcessor(name string, process func(payload []byte) error, opts ...Option) (*AsyncProcessor, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.chunkSize <= 0 || cfg.maxChunks < 2 {
		return nil, fmt.Errorf("%w: chunkSize=%d maxChunks=%d", ErrInvalidConfig, cfg.chunkSize, cfg.maxChunks)
	}
	p := &AsyncProcessor{
		name:           name,
		process:        process,
		chunkSize:      cfg.chunkSize,
		maxChunks:      cfg.maxChunks,
		shrinkInterval: cfg.shrinkInterval,
		clk:            cfg.clk,
		pauses:         make(map[string]*lifetime.BracketHandle),
		done:           make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	p.fill = newRing(p.chunkSize)
	p.head = p.fill
	p.chunkCount = 1
	return p, nil
}

// State 返回当前状态
func (p *AsyncProcessor) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// ChunkCount 返回当前块数（测试与诊断用）
func (p *AsyncProcessor) ChunkCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chunkCount
}

// ============================================================================
// 生产者侧
// ============================================================================

// Put 追加出站字节
//
// 正常情况下只做内存拷贝即返回；块环达到 MaxChunks 且发送方尚未
// 释放容量时阻塞（背压）。被阻塞的生产者持有"长写"标志，其他
// 生产者等待其完成，不会交错写入。
func (p *AsyncProcessor) Put(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.longPut && p.accepting() {
		p.cond.Wait()
	}
	if !p.accepting() {
		return ErrNotAccepting
	}

	for len(data) > 0 {
		if p.fill.sealed || p.fill.filled == p.chunkSize {
			if err := p.advanceFillLocked(); err != nil {
				return err
			}
			continue
		}
		n := min(p.chunkSize-p.fill.filled, len(data))
		copy(p.fill.data[p.fill.filled:], data[:n])
		p.fill.filled += n
		data = data[n:]
		p.cond.Broadcast()
	}
	return nil
}

// accepting 调用方需持有 p.mu
func (p *AsyncProcessor) accepting() bool {
	return p.state == StateInitialized || p.state == StateAsyncProcessing
}

// advanceFillLocked 把写游标推进到一个空闲块
//
// 无空闲块时先尝试增长（受 MaxChunks 约束），到顶后阻塞等待
// 发送方释放。调用方需持有 p.mu。
func (p *AsyncProcessor) advanceFillLocked() error {
	if p.fill.next.isFree() {
		p.fill = p.fill.next
		return nil
	}
	if p.chunkCount < p.maxChunks {
		p.fill = p.fill.insertAfter(p.chunkSize)
		p.chunkCount++
		return nil
	}

	// 背压：标记长写，等待容量
	p.longPut = true
	for !p.fill.next.isFree() && p.accepting() {
		p.cond.Wait()
	}
	p.longPut = false
	p.cond.Broadcast()
	if !p.accepting() {
		return ErrNotAccepting
	}
	p.fill = p.fill.next
	return nil
}

// ============================================================================
// 暂停/恢复
// ============================================================================

// Pause 挂起投递（不影响接收）
//
// 只要仍有至少一个原因生效，发送方就不再调用处理回调；已缓冲的
// 数据保留。原因随 lt 终止自动解除，也可用 Resume 显式解除。
func (p *AsyncProcessor) Pause(lt *lifetime.Lifetime, reason string) error {
	p.mu.Lock()
	if _, ok := p.pauses[reason]; ok {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicatePauseReason, reason)
	}
	p.pauses[reason] = nil
	p.mu.Unlock()

	h := lifetime.Bracket(lt,
		func() {
			p.mu.Lock()
			p.pauseCount++
			p.mu.Unlock()
		},
		func() {
			p.mu.Lock()
			p.pauseCount--
			delete(p.pauses, reason)
			p.cond.Broadcast()
			p.mu.Unlock()
		},
	)

	p.mu.Lock()
	if _, ok := p.pauses[reason]; ok {
		p.pauses[reason] = h
	}
	p.mu.Unlock()
	return nil
}

// Resume 显式解除暂停原因
func (p *AsyncProcessor) Resume(reason string) {
	p.mu.Lock()
	h := p.pauses[reason]
	p.mu.Unlock()
	if h != nil {
		h.Close()
	}
}

// IsPaused 判断投递是否处于挂起状态
func (p *AsyncProcessor) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pauseCount > 0
}

// ============================================================================
// 生命周期
// ============================================================================

// Start 启动发送 goroutine
//
// 仅在 Initialized 状态生效，其余状态为空操作。
func (p *AsyncProcessor) Start() {
	p.mu.Lock()
	if p.state != StateInitialized {
		p.mu.Unlock()
		return
	}
	p.state = StateAsyncProcessing
	p.mu.Unlock()

	logger.Debug("处理器启动", "name", p.name)
	go p.senderLoop()
}

// Stop 优雅停止：排空已缓冲数据后退出
//
// 阻塞至多 timeout 等待发送 goroutine 结束；无论是否超时，
// 返回时处理器都处于 Terminated。
func (p *AsyncProcessor) Stop(timeout time.Duration) error {
	return p.shutdown(StateStopping, timeout)
}

// Terminate 立即停止：丢弃未投递数据
func (p *AsyncProcessor) Terminate(timeout time.Duration) error {
	return p.shutdown(StateTerminating, timeout)
}

func (p *AsyncProcessor) shutdown(target State, timeout time.Duration) error {
	p.mu.Lock()
	switch p.state {
	case StateTerminated:
		p.mu.Unlock()
		return nil
	case StateInitialized:
		// 发送 goroutine 从未启动，直接终止
		p.state = StateTerminated
		p.cond.Broadcast()
		p.mu.Unlock()
		p.signalDone()
		return nil
	case StateAsyncProcessing:
		p.state = target
	default:
		// 已在停止途中，只参与等待
	}
	p.cond.Broadcast()
	p.mu.Unlock()

	timer := p.clk.Timer(timeout)
	defer timer.Stop()

	var err error
	select {
	case <-p.done:
	case <-timer.C:
		err = fmt.Errorf("%w: %s after %v", ErrJoinTimeout, p.name, timeout)
		logger.Warn("发送 goroutine 未在期限内退出", "name", p.name, "timeout", timeout)
	}

	p.mu.Lock()
	p.state = StateTerminated
	p.cond.Broadcast()
	p.mu.Unlock()
	return err
}

func (p *AsyncProcessor) signalDone() {
	p.doneOnce.Do(func() { close(p.done) })
}

// ============================================================================
// 发送侧
// ============================================================================

func (p *AsyncProcessor) senderLoop() {
	defer p.signalDone()
	for {
		p.mu.Lock()
		if !p.waitForWorkLocked() {
			p.mu.Unlock()
			return
		}

		// 封存读游标所在块；写游标若停在同一块，由 Put 的
		// advanceFillLocked 绕开封存块
		c := p.head
		c.sealed = true
		payload := make([]byte, c.filled)
		copy(payload, c.data[:c.filled])
		p.mu.Unlock()

		p.runProcess(payload)

		p.mu.Lock()
		c.filled = 0
		c.sealed = false
		p.head = c.next
		p.cond.Broadcast()
		p.mu.Unlock()
	}
}

// waitForWorkLocked 等待下一个可处理块
//
// 返回 false 表示发送 goroutine 应当退出。调用方需持有 p.mu。
func (p *AsyncProcessor) waitForWorkLocked() bool {
	for {
		if p.state == StateTerminating || p.state == StateTerminated {
			return false
		}

		// 读游标跳过空块，最多追到写游标
		for p.head.filled == 0 && p.head != p.fill {
			p.head = p.head.next
		}
		hasData := p.head.filled > 0

		if p.state == StateStopping {
			// 排空模式：暂停不再生效
			if !hasData {
				return false
			}
			return true
		}
		if hasData && p.pauseCount == 0 {
			return true
		}

		if p.shrinkDue {
			p.shrinkLocked()
		}
		p.armShrinkLocked()
		p.cond.Wait()
	}
}

// runProcess 调用处理回调，隔离单块故障
func (p *AsyncProcessor) runProcess(payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("处理回调 panic，跳过当前块", "name", p.name, "panic", r)
		}
	}()
	if err := p.process(payload); err != nil {
		logger.Error("处理回调出错，跳过当前块", "name", p.name, "err", err, "bytes", len(payload))
	}
}

// ============================================================================
// 收缩
// ============================================================================

// armShrinkLocked 在链环增长且空闲时布置收缩定时器
func (p *AsyncProcessor) armShrinkLocked() {
	if p.chunkCount <= 1 || p.shrinkTimer != nil || !p.allFreeLocked() {
		return
	}
	p.shrinkTimer = p.clk.AfterFunc(p.shrinkInterval, func() {
		p.mu.Lock()
		p.shrinkDue = true
		p.cond.Broadcast()
		p.mu.Unlock()
	})
}

// shrinkLocked 回收写游标之后的空闲块
//
// 链环仍持续空闲才真正收缩；期间来了新数据则只复位定时器。
func (p *AsyncProcessor) shrinkLocked() {
	p.shrinkDue = false
	p.shrinkTimer = nil
	if !p.allFreeLocked() {
		return
	}
	for p.chunkCount > 1 && p.fill.next != p.fill {
		p.fill.next = p.fill.next.next
		p.chunkCount--
	}
	p.head = p.fill
	logger.Debug("块环收缩完成", "name", p.name, "chunks", p.chunkCount)
}

// allFreeLocked 判断链环是否完全空闲
func (p *AsyncProcessor) allFreeLocked() bool {
	c := p.fill
	for {
		if !c.isFree() {
			return false
		}
		c = c.next
		if c == p.fill {
			return true
		}
	}
}
