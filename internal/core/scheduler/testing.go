package scheduler

import (
	"sync"

	"github.com/dep2p/go-rd/pkg/interfaces"
)

// ============================================================================
// 测试用调度器
// ============================================================================

// Pump 手动泵调度器
//
// 测试专用：入队不执行，由测试代码调用 PumpAll 显式推进，
// 使分发时序完全可控。
type Pump struct {
	mu     sync.Mutex
	queue  []func()
	active bool
}

// 确保实现 Scheduler 接口
var _ interfaces.Scheduler = (*Pump)(nil)

// NewPump 创建手动泵调度器
func NewPump() *Pump {
	return &Pump{}
}

// Queue 入队动作
func (p *Pump) Queue(action func()) {
	p.mu.Lock()
	p.queue = append(p.queue, action)
	p.mu.Unlock()
}

// IsActive 返回是否正在分发
func (p *Pump) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// PumpAll 执行当前全部已入队动作（含执行期间新入队的）
//
// 返回执行的动作数。
func (p *Pump) PumpAll() int {
	n := 0
	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return n
		}
		action := p.queue[0]
		p.queue = p.queue[1:]
		p.active = true
		p.mu.Unlock()

		action()

		p.mu.Lock()
		p.active = false
		p.mu.Unlock()
		n++
	}
}

// Pending 返回待执行动作数
func (p *Pump) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}
