package wire

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dep2p/go-rd/pkg/interfaces"
	"github.com/dep2p/go-rd/pkg/lib/buffer"
	"github.com/dep2p/go-rd/pkg/lib/log"
	"github.com/dep2p/go-rd/pkg/lifetime"
	"github.com/dep2p/go-rd/pkg/types"
)

var logger = log.Logger("core/wire")

// DefaultBacklogSize 积压缓存的默认容量（按 RdID 计）
const DefaultBacklogSize = 256

// ============================================================================
// Broker 实现
// ============================================================================

// Broker 入站消息路由表
//
// 订阅注册可发生在任意 goroutine；分发总是经由协议调度器串行执行，
// 保证同一协议的消息按到达顺序应用。
//
// 无人认领的消息说明实体尚未绑定或已失同步：负载进入按 RdID 键控
// 的有界 LRU 积压，若实体随后绑定则按原顺序补投；被 LRU 逐出或
// 始终无人认领的 id 通过 onOutOfSync 上报协议。
type Broker struct {
	scheduler interfaces.Scheduler
	policy    types.OutOfSyncPolicy

	mu          sync.Mutex
	onOutOfSync func(id types.RdID)
	subs        map[types.RdID]interfaces.WireReceiver
	backlog     *lru.Cache[types.RdID, [][]byte]
}

// NewBroker 创建路由表
//
// onOutOfSync 可为 nil。
func NewBroker(scheduler interfaces.Scheduler, policy types.OutOfSyncPolicy, backlogSize int, onOutOfSync func(id types.RdID)) *Broker {
	if backlogSize <= 0 {
		backlogSize = DefaultBacklogSize
	}
	backlog, _ := lru.New[types.RdID, [][]byte](backlogSize)
	return &Broker{
		scheduler:   scheduler,
		policy:      policy,
		onOutOfSync: onOutOfSync,
		subs:        make(map[types.RdID]interfaces.WireReceiver),
		backlog:     backlog,
	}
}

// Advise 注册接收者，订阅随 lt 终止移除
//
// 同一 id 重复注册是致命的绑定错误（协议不变式），panic。
// 注册时已有积压消息的，按原顺序经调度器补投。
func (b *Broker) Advise(lt *lifetime.Lifetime, receiver interfaces.WireReceiver) {
	if !lt.IsAlive() {
		return
	}
	id := receiver.RdID()

	b.mu.Lock()
	if _, ok := b.subs[id]; ok {
		b.mu.Unlock()
		panic(fmt.Sprintf("wire: duplicate advise for rdid %v", id))
	}
	b.subs[id] = receiver
	pending, hadBacklog := b.backlog.Get(id)
	if hadBacklog {
		b.backlog.Remove(id)
	}
	b.mu.Unlock()

	_, _ = lt.OnTermination(func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	})

	for _, payload := range pending {
		p := payload
		b.scheduler.Queue(func() { b.deliver(id, p) })
	}
	if hadBacklog {
		logger.Debug("补投积压消息", "rdid", id, "count", len(pending))
	}
}

// Dispatch 路由一条入站消息
//
// 在调度器上执行查表与投递，与订阅变更天然串行。
func (b *Broker) Dispatch(id types.RdID, payload []byte) {
	b.scheduler.Queue(func() { b.deliver(id, payload) })
}

// deliver 在调度器上执行
func (b *Broker) deliver(id types.RdID, payload []byte) {
	b.mu.Lock()
	receiver, ok := b.subs[id]
	b.mu.Unlock()

	if ok {
		receiver.OnWireReceived(buffer.Wrap(payload))
		return
	}

	// 无人认领：积压并上报
	b.mu.Lock()
	pending, _ := b.backlog.Get(id)
	b.backlog.Add(id, append(pending, payload))
	b.mu.Unlock()

	b.mu.Lock()
	onOutOfSync := b.onOutOfSync
	b.mu.Unlock()
	if onOutOfSync != nil {
		onOutOfSync(id)
	}
	if b.policy == types.PolicyFail {
		panic(fmt.Sprintf("wire: message for unknown rdid %v", id))
	}
	logger.Warn("收到无人认领的消息，已积压", "rdid", id, "bytes", len(payload))
}

// SetOutOfSyncHandler 设置失同步上报回调
//
// Protocol 在构造时注入，把失同步的 id 记入其可观察集合。
func (b *Broker) SetOutOfSyncHandler(fn func(id types.RdID)) {
	b.mu.Lock()
	b.onOutOfSync = fn
	b.mu.Unlock()
}

// Subscribed 判断 id 当前是否有接收者（测试用）
func (b *Broker) Subscribed(id types.RdID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.subs[id]
	return ok
}
