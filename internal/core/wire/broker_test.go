package wire

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-rd/internal/core/scheduler"
	"github.com/dep2p/go-rd/pkg/lib/buffer"
	"github.com/dep2p/go-rd/pkg/lifetime"
	"github.com/dep2p/go-rd/pkg/types"
)

// recordingReceiver 记录收到负载的测试接收者
type recordingReceiver struct {
	id types.RdID

	mu       sync.Mutex
	payloads []string
}

func (r *recordingReceiver) RdID() types.RdID { return r.id }

func (r *recordingReceiver) OnWireReceived(buf *buffer.Buffer) {
	s, _ := buf.ReadString()
	r.mu.Lock()
	r.payloads = append(r.payloads, s)
	r.mu.Unlock()
}

func (r *recordingReceiver) received() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.payloads...)
}

// stringPayload 编码一条字符串负载
func stringPayload(s string) []byte {
	buf := buffer.New()
	buf.WriteString(s)
	return buf.Bytes()
}

// ============================================================================
// 路由与积压
// ============================================================================

// TestBroker_DispatchToSubscriber 验证已订阅 id 的消息直达接收者
func TestBroker_DispatchToSubscriber(t *testing.T) {
	pump := scheduler.NewPump()
	b := NewBroker(pump, types.PolicyTolerate, 0, nil)

	r := &recordingReceiver{id: types.RdID(10)}
	b.Advise(lifetime.Eternal(), r)
	require.True(t, b.Subscribed(r.id))

	b.Dispatch(r.id, stringPayload("hello"))
	pump.PumpAll()

	assert.Equal(t, []string{"hello"}, r.received())

	t.Log("✅ 消息直达已订阅的接收者")
}

// TestBroker_BacklogRedeliveredInOrder 验证订阅前的消息按原顺序补投
func TestBroker_BacklogRedeliveredInOrder(t *testing.T) {
	pump := scheduler.NewPump()
	b := NewBroker(pump, types.PolicyTolerate, 0, nil)

	id := types.RdID(20)
	b.Dispatch(id, stringPayload("first"))
	b.Dispatch(id, stringPayload("second"))
	b.Dispatch(id, stringPayload("third"))
	pump.PumpAll() // 无人认领，进入积压

	r := &recordingReceiver{id: id}
	b.Advise(lifetime.Eternal(), r)
	pump.PumpAll()

	assert.Equal(t, []string{"first", "second", "third"}, r.received(),
		"积压消息必须按到达顺序补投")

	t.Log("✅ 积压消息按原顺序补投")
}

// TestBroker_DuplicateAdvisePanics 验证同一 id 重复订阅是致命错误
func TestBroker_DuplicateAdvisePanics(t *testing.T) {
	pump := scheduler.NewPump()
	b := NewBroker(pump, types.PolicyTolerate, 0, nil)

	r1 := &recordingReceiver{id: types.RdID(30)}
	r2 := &recordingReceiver{id: types.RdID(30)}
	b.Advise(lifetime.Eternal(), r1)

	assert.Panics(t, func() { b.Advise(lifetime.Eternal(), r2) })

	t.Log("✅ 重复订阅触发 panic")
}

// TestBroker_SubscriptionEndsWithLifetime 验证订阅随作用域移除
func TestBroker_SubscriptionEndsWithLifetime(t *testing.T) {
	pump := scheduler.NewPump()
	b := NewBroker(pump, types.PolicyTolerate, 0, nil)

	d := lifetime.NewDefinition(lifetime.Eternal())
	r := &recordingReceiver{id: types.RdID(40)}
	b.Advise(d.Lifetime(), r)
	require.True(t, b.Subscribed(r.id))

	require.NoError(t, d.Terminate())
	assert.False(t, b.Subscribed(r.id))

	b.Dispatch(r.id, stringPayload("late"))
	pump.PumpAll()
	assert.Empty(t, r.received(), "退订后的消息不应送达")

	t.Log("✅ 订阅随 Lifetime 终止移除")
}

// ============================================================================
// 失同步
// ============================================================================

// TestBroker_OutOfSyncHandler 验证无人认领的 id 被上报
func TestBroker_OutOfSyncHandler(t *testing.T) {
	pump := scheduler.NewPump()

	var reported []types.RdID
	b := NewBroker(pump, types.PolicyTolerate, 0, func(id types.RdID) {
		reported = append(reported, id)
	})

	b.Dispatch(types.RdID(50), stringPayload("orphan"))
	pump.PumpAll()

	assert.Equal(t, []types.RdID{types.RdID(50)}, reported)

	t.Log("✅ 无人认领的消息上报失同步")
}

// TestBroker_PolicyFailPanics 验证严格策略下无人认领即 panic
func TestBroker_PolicyFailPanics(t *testing.T) {
	pump := scheduler.NewPump()
	b := NewBroker(pump, types.PolicyFail, 0, nil)

	b.Dispatch(types.RdID(60), stringPayload("orphan"))
	assert.Panics(t, func() { pump.PumpAll() })

	t.Log("✅ PolicyFail 下无人认领的消息触发 panic")
}

// ============================================================================
// 进程内通道
// ============================================================================

// TestStubPair_BidirectionalDelivery 验证互联通道双向投递
func TestStubPair_BidirectionalDelivery(t *testing.T) {
	pumpA, pumpB := scheduler.NewPump(), scheduler.NewPump()
	brokerA := NewBroker(pumpA, types.PolicyTolerate, 0, nil)
	brokerB := NewBroker(pumpB, types.PolicyTolerate, 0, nil)
	wireA, wireB := NewStubPair(brokerA, brokerB)

	ra := &recordingReceiver{id: types.RdID(70)}
	rb := &recordingReceiver{id: types.RdID(71)}
	wireA.Advise(lifetime.Eternal(), ra)
	wireB.Advise(lifetime.Eternal(), rb)

	wireA.Send(rb.id, func(buf *buffer.Buffer) { buf.WriteString("a→b") })
	wireB.Send(ra.id, func(buf *buffer.Buffer) { buf.WriteString("b→a") })
	pumpA.PumpAll()
	pumpB.PumpAll()

	assert.Equal(t, []string{"a→b"}, rb.received())
	assert.Equal(t, []string{"b→a"}, ra.received())

	t.Log("✅ 进程内通道双向投递")
}

// TestStub_SendRequiresConnection 验证未连接发送与 Nil id 被拒绝
func TestStub_SendRequiresConnection(t *testing.T) {
	pump := scheduler.NewPump()
	w := NewStub(NewBroker(pump, types.PolicyTolerate, 0, nil))

	assert.Panics(t, func() {
		w.Send(types.RdID(1), func(buf *buffer.Buffer) {})
	}, "未连接的通道不可发送")
	assert.Panics(t, func() {
		w.Send(types.Nil, func(buf *buffer.Buffer) {})
	}, "Nil id 不可寻址")

	t.Log("✅ 非法发送被拒绝")
}
