package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-rd/internal/core/scheduler"
	corewire "github.com/dep2p/go-rd/internal/core/wire"
	"github.com/dep2p/go-rd/pkg/lifetime"
	"github.com/dep2p/go-rd/pkg/rdcontext"
	"github.com/dep2p/go-rd/pkg/reactive"
	"github.com/dep2p/go-rd/pkg/types"
)

// protocolPair 互为对端的两个协议端点，调度器由测试显式推进
type protocolPair struct {
	client, server         *Protocol
	clientPump, serverPump *scheduler.Pump
}

// pumpBoth 推进两端调度器直至静止
func (pp *protocolPair) pumpBoth() {
	for pp.clientPump.Pending() > 0 || pp.serverPump.Pending() > 0 {
		pp.clientPump.PumpAll()
		pp.serverPump.PumpAll()
	}
}

// newProtocolPair 在进程内通道上搭起一对协议端点
func newProtocolPair(t *testing.T) *protocolPair {
	t.Helper()
	clientPump, serverPump := scheduler.NewPump(), scheduler.NewPump()
	clientBroker := corewire.NewBroker(clientPump, types.PolicyTolerate, 0, nil)
	serverBroker := corewire.NewBroker(serverPump, types.PolicyTolerate, 0, nil)
	clientWire, serverWire := corewire.NewStubPair(clientBroker, serverBroker)

	return &protocolPair{
		client:     NewProtocol(lifetime.Eternal(), "app", ClientSide, clientPump, clientWire),
		server:     NewProtocol(lifetime.Eternal(), "app", ServerSide, serverPump, serverWire),
		clientPump: clientPump,
		serverPump: serverPump,
	}
}

// ============================================================================
// 属性同步
// ============================================================================

// TestRdProperty_SyncAcrossPair 验证属性变更跨端同步
func TestRdProperty_SyncAcrossPair(t *testing.T) {
	pp := newProtocolPair(t)

	onClient := NewRdProperty(int64(0), CodecInt64())
	onServer := NewRdProperty(int64(0), CodecInt64())
	require.NoError(t, onClient.Bind(lifetime.Eternal(), pp.client, "value"))
	require.NoError(t, onServer.Bind(lifetime.Eternal(), pp.server, "value"))

	var serverSeen []int64
	onServer.Advise(lifetime.Eternal(), func(v int64) { serverSeen = append(serverSeen, v) })

	onClient.Set(7)
	assert.Equal(t, int64(7), onClient.Value(), "本端立即可见")
	pp.pumpBoth()

	assert.Equal(t, int64(7), onServer.Value())
	assert.Equal(t, []int64{0, 7}, serverSeen, "对端订阅者按调度顺序收到")

	// 反方向
	onServer.Set(9)
	pp.pumpBoth()
	assert.Equal(t, int64(9), onClient.Value())

	t.Log("✅ 属性双向同步")
}

// TestRdProperty_MasterSendsInitial 验证主控端绑定即发当前值
func TestRdProperty_MasterSendsInitial(t *testing.T) {
	pp := newProtocolPair(t)

	onServer := NewRdProperty("", CodecString())
	require.NoError(t, onServer.Bind(lifetime.Eternal(), pp.server, "config"))

	master := NewMasterProperty("initial-state", CodecString())
	require.NoError(t, master.Bind(lifetime.Eternal(), pp.client, "config"))
	pp.pumpBoth()

	assert.Equal(t, "initial-state", onServer.Value(), "后连入端收敛到主控端状态")

	t.Log("✅ 主控端绑定时广播当前值")
}

// TestRdProperty_UnboundStaysLocal 验证未绑定实体是纯本地原语
func TestRdProperty_UnboundStaysLocal(t *testing.T) {
	p := NewRdProperty(int64(1), CodecInt64())

	p.Set(2)
	assert.Equal(t, int64(2), p.Value())
	assert.False(t, p.IsBound())
	assert.Equal(t, types.Nil, p.RdID())

	t.Log("✅ 未绑定属性照常工作、不触网")
}

// ============================================================================
// 信号与上下文传播
// ============================================================================

// TestRdSignal_SyncAcrossPair 验证信号跨端触发
func TestRdSignal_SyncAcrossPair(t *testing.T) {
	pp := newProtocolPair(t)

	onClient := NewRdSignal(CodecString())
	onServer := NewRdSignal(CodecString())
	require.NoError(t, onClient.Bind(lifetime.Eternal(), pp.client, "events"))
	require.NoError(t, onServer.Bind(lifetime.Eternal(), pp.server, "events"))

	var local, remote []string
	onClient.Advise(lifetime.Eternal(), func(v string) { local = append(local, v) })
	onServer.Advise(lifetime.Eternal(), func(v string) { remote = append(remote, v) })

	onClient.Fire("one")
	onClient.Fire("two")
	assert.Equal(t, []string{"one", "two"}, local, "本端同步触发")
	pp.pumpBoth()
	assert.Equal(t, []string{"one", "two"}, remote, "对端按序触发")

	t.Log("✅ 信号跨端按序触发")
}

// TestRdSignal_ContextTravelsWithMessage 验证上下文值随消息传播
func TestRdSignal_ContextTravelsWithMessage(t *testing.T) {
	pp := newProtocolPair(t)

	clientSession := rdcontext.NewLight[string]("session")
	serverSession := rdcontext.NewLight[string]("session")
	require.NoError(t, RegisterContext(pp.client.Contexts(), clientSession, CodecString()))
	require.NoError(t, RegisterContext(pp.server.Contexts(), serverSession, CodecString()))

	onClient := NewRdSignal(CodecString())
	onServer := NewRdSignal(CodecString())
	require.NoError(t, onClient.Bind(lifetime.Eternal(), pp.client, "events"))
	require.NoError(t, onServer.Bind(lifetime.Eternal(), pp.server, "events"))

	var observed []string
	onServer.Advise(lifetime.Eternal(), func(string) {
		if v, ok := serverSession.Value(); ok {
			observed = append(observed, v)
		} else {
			observed = append(observed, "<absent>")
		}
	})

	clientSession.Push("s-1")
	onClient.Fire("with-context")
	clientSession.Pop()
	onClient.Fire("without-context")
	pp.pumpBoth()

	assert.Equal(t, []string{"s-1", "<absent>"}, observed,
		"接收端处理器观察到发送时刻的上下文")
	_, ok := serverSession.Value()
	assert.False(t, ok, "处理结束后恢复的上下文应弹出")

	t.Log("✅ 上下文随消息传播且只在处理期间生效")
}

// ============================================================================
// 容器同步
// ============================================================================

// TestRdMap_SyncWithEventShapes 验证映射差量与事件形状
func TestRdMap_SyncWithEventShapes(t *testing.T) {
	pp := newProtocolPair(t)

	onClient := NewRdMap(CodecString(), CodecInt64())
	onServer := NewRdMap(CodecString(), CodecInt64())
	require.NoError(t, onClient.Bind(lifetime.Eternal(), pp.client, "table"))
	require.NoError(t, onServer.Bind(lifetime.Eternal(), pp.server, "table"))

	var events []reactive.MapEvent[string, int64]
	onServer.Advise(lifetime.Eternal(), func(e reactive.MapEvent[string, int64]) {
		events = append(events, e)
	})

	onClient.Set("k", 1)
	onClient.Set("k", 2)
	onClient.Remove("k")
	pp.pumpBoth()

	require.Len(t, events, 3)
	assert.Equal(t, reactive.EventAdd, events[0].Kind())

	assert.Equal(t, reactive.EventUpdate, events[1].Kind())
	old, ok := events[1].OldValue()
	require.True(t, ok)
	assert.Equal(t, int64(1), old, "旧值由接收端状态补全")

	assert.Equal(t, reactive.EventRemove, events[2].Kind())
	old, ok = events[2].OldValue()
	require.True(t, ok)
	assert.Equal(t, int64(2), old, "移除事件总是携带旧值")

	assert.Equal(t, 0, onServer.Len())

	t.Log("✅ 映射差量跨端应用，事件形状两端一致")
}

// TestRdMap_ClearReplicates 验证清空逐键复制
func TestRdMap_ClearReplicates(t *testing.T) {
	pp := newProtocolPair(t)

	onClient := NewRdMap(CodecString(), CodecInt64())
	onServer := NewRdMap(CodecString(), CodecInt64())
	require.NoError(t, onClient.Bind(lifetime.Eternal(), pp.client, "table"))
	require.NoError(t, onServer.Bind(lifetime.Eternal(), pp.server, "table"))

	onClient.Set("a", 1)
	onClient.Set("b", 2)
	pp.pumpBoth()
	require.Equal(t, 2, onServer.Len())

	onClient.Clear()
	pp.pumpBoth()
	assert.Equal(t, 0, onServer.Len())

	t.Log("✅ 清空以逐键移除复制到对端")
}

// TestRdList_SyncPositional 验证列表位置化差量
func TestRdList_SyncPositional(t *testing.T) {
	pp := newProtocolPair(t)

	onClient := NewRdList(CodecString())
	onServer := NewRdList(CodecString())
	require.NoError(t, onClient.Bind(lifetime.Eternal(), pp.client, "items"))
	require.NoError(t, onServer.Bind(lifetime.Eternal(), pp.server, "items"))

	onClient.Add("a")
	onClient.Add("b")
	onClient.Insert(1, "x")
	onClient.Set(0, "a2")
	onClient.RemoveAt(2)
	pp.pumpBoth()

	require.Equal(t, 2, onServer.Len())
	v, _ := onServer.Get(0)
	assert.Equal(t, "a2", v)
	v, _ = onServer.Get(1)
	assert.Equal(t, "x", v)

	t.Log("✅ 列表位置化差量跨端收敛")
}

// TestRdSet_SyncIdempotent 验证集合差量同步
func TestRdSet_SyncIdempotent(t *testing.T) {
	pp := newProtocolPair(t)

	onClient := NewRdSet(CodecInt64())
	onServer := NewRdSet(CodecInt64())
	require.NoError(t, onClient.Bind(lifetime.Eternal(), pp.client, "members"))
	require.NoError(t, onServer.Bind(lifetime.Eternal(), pp.server, "members"))

	require.True(t, onClient.Add(1))
	require.False(t, onClient.Add(1), "重复加入是空操作、不触网")
	require.True(t, onClient.Add(2))
	require.True(t, onClient.Remove(1))
	pp.pumpBoth()

	assert.False(t, onServer.Contains(1))
	assert.True(t, onServer.Contains(2))
	assert.Equal(t, 1, onServer.Len())

	t.Log("✅ 集合差量幂等且跨端收敛")
}
