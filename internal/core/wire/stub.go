package wire

import (
	"github.com/dep2p/go-rd/pkg/interfaces"
	"github.com/dep2p/go-rd/pkg/lib/buffer"
	"github.com/dep2p/go-rd/pkg/lifetime"
	"github.com/dep2p/go-rd/pkg/types"
)

// ============================================================================
// StubWire 实现
// ============================================================================

// StubWire 进程内直连通道
//
// 两端的 Broker 直接耦合，不经物理流。测试与同进程宿主使用。
type StubWire struct {
	broker *Broker
	peer   *StubWire
}

// 确保实现 Wire 接口
var _ interfaces.Wire = (*StubWire)(nil)

// NewStub 创建未连接的进程内通道
//
// 发送前必须先 ConnectTo 对端。
func NewStub(b *Broker) *StubWire {
	return &StubWire{broker: b}
}

// ConnectTo 双向耦合两个进程内通道
func (w *StubWire) ConnectTo(peer *StubWire) {
	w.peer = peer
	peer.peer = w
}

// NewStubPair 创建一对互联的进程内通道
func NewStubPair(a, b *Broker) (*StubWire, *StubWire) {
	wa, wb := NewStub(a), NewStub(b)
	wa.ConnectTo(wb)
	return wa, wb
}

// Send 发送消息：直接分发到对端 Broker
func (w *StubWire) Send(id types.RdID, writer func(buf *buffer.Buffer)) {
	if id.IsNil() {
		panic(ErrNilID)
	}
	if w.peer == nil {
		panic("wire: stub not connected")
	}
	buf := buffer.New()
	writer(buf)
	w.peer.broker.Dispatch(id, buf.Bytes())
}

// Advise 注册接收者
func (w *StubWire) Advise(lt *lifetime.Lifetime, receiver interfaces.WireReceiver) {
	w.broker.Advise(lt, receiver)
}
