package task

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-rd/internal/core/scheduler"
	corewire "github.com/dep2p/go-rd/internal/core/wire"
	"github.com/dep2p/go-rd/pkg/lifetime"
	"github.com/dep2p/go-rd/pkg/protocol"
	"github.com/dep2p/go-rd/pkg/types"
)

// taskPair 互为对端的两个协议端点，调度器为真实单线程泵
type taskPair struct {
	client, server *protocol.Protocol
}

// newTaskPair 在进程内通道上搭起一对协议端点
//
// 任务的阻塞等待需要调度器在独立线程上推进，这里不用手动泵。
func newTaskPair(t *testing.T) *taskPair {
	t.Helper()

	clientDef := lifetime.NewDefinition(lifetime.Eternal())
	serverDef := lifetime.NewDefinition(lifetime.Eternal())
	t.Cleanup(func() {
		_ = clientDef.Terminate()
		_ = serverDef.Terminate()
	})

	clientSched := scheduler.NewSingleThread(clientDef.Lifetime(), "client")
	serverSched := scheduler.NewSingleThread(serverDef.Lifetime(), "server")
	clientBroker := corewire.NewBroker(clientSched, types.PolicyTolerate, 0, nil)
	serverBroker := corewire.NewBroker(serverSched, types.PolicyTolerate, 0, nil)
	clientWire, serverWire := corewire.NewStubPair(clientBroker, serverBroker)

	return &taskPair{
		client: protocol.NewProtocol(clientDef.Lifetime(), "app", protocol.ClientSide, clientSched, clientWire),
		server: protocol.NewProtocol(serverDef.Lifetime(), "app", protocol.ServerSide, serverSched, serverWire),
	}
}

// bindDoubler 绑定一个把请求翻倍的服务端点
func bindDoubler(t *testing.T, p *protocol.Protocol, name string) {
	t.Helper()
	ep := NewRdEndpoint(protocol.CodecInt64(), protocol.CodecInt64(),
		func(_ *lifetime.Lifetime, req int64) (int64, error) {
			return req * 2, nil
		})
	require.NoError(t, ep.Bind(p.Lifetime(), p, name))
}

// ============================================================================
// 结果类型
// ============================================================================

// TestResult_Unwrap 验证三种终态的展开
func TestResult_Unwrap(t *testing.T) {
	v, err := Succeeded(int64(5)).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	_, err = Faulted[int64]("boom").Unwrap()
	var fe *FaultError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "boom", fe.Message)

	_, err = Cancelled[int64]().Unwrap()
	assert.ErrorIs(t, err, ErrCancelled)

	t.Log("✅ 终态展开正确")
}

// ============================================================================
// 异步调用
// ============================================================================

// TestRdCall_AsyncWithOnResult 验证异步调用与订阅通知
func TestRdCall_AsyncWithOnResult(t *testing.T) {
	pp := newTaskPair(t)
	bindDoubler(t, pp.server, "double")

	call := NewRdCall(protocol.CodecInt64(), protocol.CodecInt64())
	require.NoError(t, call.Bind(pp.client.Lifetime(), pp.client, "double"))

	task, err := call.Start(lifetime.Eternal(), 21)
	require.NoError(t, err)

	var notified atomic.Int64
	task.OnResult(lifetime.Eternal(), func(r Result[int64]) {
		if v, err := r.Unwrap(); err == nil {
			notified.Store(v)
		}
	})

	require.Eventually(t, func() bool {
		r, ok := task.TryResult()
		return ok && r.IsSucceeded()
	}, 5*time.Second, time.Millisecond)

	r, _ := task.TryResult()
	v, err := r.Unwrap()
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	require.Eventually(t, func() bool { return notified.Load() == 42 },
		5*time.Second, time.Millisecond, "订阅者经调度器收到结果")

	t.Log("✅ 异步调用完成并通知订阅者")
}

// TestRdCall_OnResultAfterCompletion 验证迟到订阅立即收到终态
func TestRdCall_OnResultAfterCompletion(t *testing.T) {
	pp := newTaskPair(t)
	bindDoubler(t, pp.server, "double")

	call := NewRdCall(protocol.CodecInt64(), protocol.CodecInt64())
	require.NoError(t, call.Bind(pp.client.Lifetime(), pp.client, "double"))

	task, err := call.Start(lifetime.Eternal(), 1)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, ok := task.TryResult()
		return ok
	}, 5*time.Second, time.Millisecond)

	var got atomic.Int64
	task.OnResult(lifetime.Eternal(), func(r Result[int64]) {
		v, _ := r.Unwrap()
		got.Store(v)
	})

	require.Eventually(t, func() bool { return got.Load() == 2 },
		5*time.Second, time.Millisecond)

	t.Log("✅ 已完成任务的订阅立即排队通知")
}

// ============================================================================
// 同步调用
// ============================================================================

// TestRdCall_SyncSuccess 验证同步调用返回值
func TestRdCall_SyncSuccess(t *testing.T) {
	pp := newTaskPair(t)
	bindDoubler(t, pp.server, "double")

	call := NewRdCall(protocol.CodecInt64(), protocol.CodecInt64())
	require.NoError(t, call.Bind(pp.client.Lifetime(), pp.client, "double"))

	v, err := call.Sync(8, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(16), v)

	t.Log("✅ 同步调用取得返回值")
}

// TestRdCall_SyncFault 验证对端错误跨进程还原为 FaultError
func TestRdCall_SyncFault(t *testing.T) {
	pp := newTaskPair(t)

	ep := NewRdEndpoint(protocol.CodecInt64(), protocol.CodecInt64(),
		func(_ *lifetime.Lifetime, _ int64) (int64, error) {
			return 0, errors.New("denominator is zero")
		})
	require.NoError(t, ep.Bind(pp.server.Lifetime(), pp.server, "div"))

	call := NewRdCall(protocol.CodecInt64(), protocol.CodecInt64())
	require.NoError(t, call.Bind(pp.client.Lifetime(), pp.client, "div"))

	_, err := call.Sync(1, 5*time.Second)
	var fe *FaultError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "denominator is zero", fe.Message)

	t.Log("✅ 对端错误以文本形式还原")
}

// TestRdCall_SyncTimeoutCancelsRequest 验证超时取消在途请求
func TestRdCall_SyncTimeoutCancelsRequest(t *testing.T) {
	pp := newTaskPair(t)

	var sawCancel atomic.Bool
	ep := NewRdEndpoint(protocol.CodecInt64(), protocol.CodecInt64(),
		func(lt *lifetime.Lifetime, _ int64) (int64, error) {
			// 挂起直至请求生存期终止
			for lt.IsAlive() {
				time.Sleep(5 * time.Millisecond)
			}
			sawCancel.Store(true)
			return 0, errors.New("aborted")
		})
	require.NoError(t, ep.Bind(pp.server.Lifetime(), pp.server, "slow"))

	call := NewRdCall(protocol.CodecInt64(), protocol.CodecInt64())
	require.NoError(t, call.Bind(pp.client.Lifetime(), pp.client, "slow"))

	start := time.Now()
	_, err := call.Sync(1, 100*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 3*time.Second)

	require.Eventually(t, func() bool { return sawCancel.Load() },
		5*time.Second, 5*time.Millisecond, "服务端处理函数应观察到请求生存期终止")

	t.Log("✅ 同步超时取消在途请求并通知对端")
}

// TestRdCall_StartOnDeadLifetime 验证死作用域上的调用生来即取消
func TestRdCall_StartOnDeadLifetime(t *testing.T) {
	pp := newTaskPair(t)
	bindDoubler(t, pp.server, "double")

	call := NewRdCall(protocol.CodecInt64(), protocol.CodecInt64())
	require.NoError(t, call.Bind(pp.client.Lifetime(), pp.client, "double"))

	d := lifetime.NewDefinition(lifetime.Eternal())
	require.NoError(t, d.Terminate())

	task, err := call.Start(d.Lifetime(), 1)
	require.NoError(t, err)
	r, ok := task.TryResult()
	require.True(t, ok)
	assert.Equal(t, KindCancelled, r.Kind())

	t.Log("✅ 死作用域上的调用立即取消")
}

// TestRdCall_Unbound 验证未绑定句柄拒绝调用
func TestRdCall_Unbound(t *testing.T) {
	call := NewRdCall(protocol.CodecInt64(), protocol.CodecInt64())

	_, err := call.Start(lifetime.Eternal(), 1)
	assert.ErrorIs(t, err, protocol.ErrNotBound)
	_, err = call.Sync(1, time.Second)
	assert.ErrorIs(t, err, protocol.ErrNotBound)

	t.Log("✅ 未绑定句柄返回 ErrNotBound")
}
