package wire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-rd/internal/core/scheduler"
	"github.com/dep2p/go-rd/pkg/lib/buffer"
	"github.com/dep2p/go-rd/pkg/lifetime"
	"github.com/dep2p/go-rd/pkg/types"
)

// TestSocketWire_EndToEnd 验证 TCP 通道握手、双向收发与关闭
func TestSocketWire_EndToEnd(t *testing.T) {
	serverDef := lifetime.NewDefinition(lifetime.Eternal())
	clientDef := lifetime.NewDefinition(lifetime.Eternal())
	defer func() { _ = clientDef.Terminate() }()
	defer func() { _ = serverDef.Terminate() }()

	serverSched := scheduler.NewSingleThread(serverDef.Lifetime(), "server")
	clientSched := scheduler.NewSingleThread(clientDef.Lifetime(), "client")

	serverBroker := NewBroker(serverSched, types.PolicyTolerate, 0, nil)
	clientBroker := NewBroker(clientSched, types.PolicyTolerate, 0, nil)

	server, err := NewSocketServer(serverDef.Lifetime(), serverBroker, "127.0.0.1:0")
	require.NoError(t, err)
	require.NotEmpty(t, server.Addr(), "监听 :0 应取得实际地址")

	client, err := NewSocketClient(clientDef.Lifetime(), clientBroker, server.Addr())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return server.Connected().Value() && client.Connected().Value()
	}, 5*time.Second, 10*time.Millisecond, "握手应在两端完成")
	assert.NotEqual(t, server.Token(), client.Token())

	// 双向各注册一个接收者
	onServer := &recordingReceiver{id: types.RdID(100)}
	onClient := &recordingReceiver{id: types.RdID(200)}
	server.Advise(serverDef.Lifetime(), onServer)
	client.Advise(clientDef.Lifetime(), onClient)

	client.Send(onServer.id, func(buf *buffer.Buffer) { buf.WriteString("ping") })
	server.Send(onClient.id, func(buf *buffer.Buffer) { buf.WriteString("pong") })

	require.Eventually(t, func() bool {
		return len(onServer.received()) == 1 && len(onClient.received()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"ping"}, onServer.received())
	assert.Equal(t, []string{"pong"}, onClient.received())

	t.Log("✅ TCP 通道端到端收发")
}

// TestSocketWire_BuffersWhileDisconnected 验证断连期间发送的数据在连接后送达
func TestSocketWire_BuffersWhileDisconnected(t *testing.T) {
	serverDef := lifetime.NewDefinition(lifetime.Eternal())
	clientDef := lifetime.NewDefinition(lifetime.Eternal())
	defer func() { _ = clientDef.Terminate() }()
	defer func() { _ = serverDef.Terminate() }()

	serverSched := scheduler.NewSingleThread(serverDef.Lifetime(), "server")
	clientSched := scheduler.NewSingleThread(clientDef.Lifetime(), "client")

	serverBroker := NewBroker(serverSched, types.PolicyTolerate, 0, nil)
	clientBroker := NewBroker(clientSched, types.PolicyTolerate, 0, nil)

	server, err := NewSocketServer(serverDef.Lifetime(), serverBroker, "127.0.0.1:0")
	require.NoError(t, err)

	onServer := &recordingReceiver{id: types.RdID(300)}
	server.Advise(serverDef.Lifetime(), onServer)

	// 客户端尚未连接即发送：数据应滞留在缓冲处理器中
	client, err := NewSocketClient(clientDef.Lifetime(), clientBroker, server.Addr())
	require.NoError(t, err)
	client.Send(onServer.id, func(buf *buffer.Buffer) { buf.WriteString("early") })

	require.Eventually(t, func() bool {
		return len(onServer.received()) == 1
	}, 5*time.Second, 10*time.Millisecond, "连接建立后滞留数据应送达")
	assert.Equal(t, []string{"early"}, onServer.received())

	t.Log("✅ 断连期间的数据在连接后送达")
}
