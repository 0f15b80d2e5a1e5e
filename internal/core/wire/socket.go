package wire

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-rd/internal/core/transport"
	"github.com/dep2p/go-rd/pkg/interfaces"
	"github.com/dep2p/go-rd/pkg/lib/buffer"
	"github.com/dep2p/go-rd/pkg/lifetime"
	"github.com/dep2p/go-rd/pkg/reactive"
	"github.com/dep2p/go-rd/pkg/types"
)

// ============================================================================
// SocketWire 实现
// ============================================================================

// pauseReasonDisconnected 断线期间挂起出站投递的原因标识
const pauseReasonDisconnected = "disconnected"

// 重拨与关闭参数
const (
	redialDelay         = 500 * time.Millisecond
	shutdownJoinTimeout = 5 * time.Second
)

// SocketWire TCP 物理通道
//
// 单对端；出站帧经缓冲异步处理器投递到当前连接，断线期间投递
// 挂起、数据保留，重连后续投。每个连接化身在握手时交换 uuid 令牌，
// 便于两端日志对账。
type SocketWire struct {
	name   string
	lt     *lifetime.Lifetime
	broker *Broker

	processor *transport.AsyncProcessor
	connected *reactive.Property[bool]
	token     uuid.UUID

	// incarnations 连接化身的串行作用域：新连接开启即终止旧连接的资源
	incarnations *lifetime.SequentialLifetimes

	mu         sync.Mutex
	conn       net.Conn
	listenAddr string
}

// 确保实现 Wire 接口
var _ interfaces.Wire = (*SocketWire)(nil)

func newSocketWire(lt *lifetime.Lifetime, broker *Broker, name string, opts ...transport.Option) (*SocketWire, error) {
	w := &SocketWire{
		name:         name,
		lt:           lt,
		broker:       broker,
		connected:    reactive.NewProperty(false),
		token:        uuid.New(),
		incarnations: lifetime.NewSequentialLifetimes(lt),
	}
	proc, err := transport.NewAsyncProcessor(name, w.writeToConn, opts...)
	if err != nil {
		return nil, err
	}
	w.processor = proc

	// 尚无连接，先挂起投递；握手成功后恢复
	_ = proc.Pause(lt, pauseReasonDisconnected)
	proc.Start()

	_, _ = lt.OnTermination(func() {
		if err := proc.Stop(shutdownJoinTimeout); err != nil {
			logger.Warn("处理器停止超时", "wire", name, "err", err)
		}
		w.closeConn()
	})
	return w, nil
}

// NewSocketServer 创建监听端通道
//
// 在 addr 上监听并接受连接，同一时刻服务一个对端；连接断开后
// 回到接受循环等待重连。lt 终止时关闭监听与连接。
func NewSocketServer(lt *lifetime.Lifetime, broker *Broker, addr string, opts ...transport.Option) (*SocketWire, error) {
	w, err := newSocketWire(lt, broker, "socket-server", opts...)
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	_, _ = lt.OnTermination(func() { _ = ln.Close() })
	w.mu.Lock()
	w.listenAddr = ln.Addr().String()
	w.mu.Unlock()
	logger.Info("开始监听", "wire", w.name, "addr", ln.Addr())

	go w.acceptLoop(ln)
	return w, nil
}

// NewSocketClient 创建拨号端通道
//
// 持续向 addr 拨号，断线后间隔 redialDelay 重拨，直到 lt 终止。
func NewSocketClient(lt *lifetime.Lifetime, broker *Broker, addr string, opts ...transport.Option) (*SocketWire, error) {
	w, err := newSocketWire(lt, broker, "socket-client", opts...)
	if err != nil {
		return nil, err
	}
	go w.dialLoop(addr)
	return w, nil
}

// Addr 返回监听端实际地址（拨号端返回空）
//
// 监听 ":0" 时由此取得实际分配的端口。
func (w *SocketWire) Addr() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.listenAddr
}

// Connected 返回连接状态属性
func (w *SocketWire) Connected() *reactive.Property[bool] {
	return w.connected
}

// Token 返回本端连接令牌
func (w *SocketWire) Token() uuid.UUID {
	return w.token
}

// ════════════════════════════════════════════════════════════════════════════
//                              Wire 接口实现
// ════════════════════════════════════════════════════════════════════════════

// Send 发送一条寻址消息
//
// 帧立即进入缓冲处理器：调用方不等待物理写入，断线时数据保留。
func (w *SocketWire) Send(id types.RdID, writer func(buf *buffer.Buffer)) {
	if id.IsNil() {
		panic(ErrNilID)
	}
	buf := buffer.New()
	writer(buf)
	if err := w.processor.Put(encodeFrame(id, buf.Bytes())); err != nil {
		logger.Error("出站帧被丢弃", "wire", w.name, "rdid", id, "err", err)
	}
}

// Advise 注册接收者
func (w *SocketWire) Advise(lt *lifetime.Lifetime, receiver interfaces.WireReceiver) {
	w.broker.Advise(lt, receiver)
}

// ════════════════════════════════════════════════════════════════════════════
//                              连接管理
// ════════════════════════════════════════════════════════════════════════════

func (w *SocketWire) acceptLoop(ln net.Listener) {
	for w.lt.IsAlive() {
		conn, err := ln.Accept()
		if err != nil {
			if !w.lt.IsAlive() {
				return
			}
			logger.Warn("接受连接失败", "wire", w.name, "err", err)
			continue
		}
		w.serveConn(conn)
	}
}

func (w *SocketWire) dialLoop(addr string) {
	for w.lt.IsAlive() {
		conn, err := net.DialTimeout("tcp", addr, redialDelay*4)
		if err != nil {
			time.Sleep(redialDelay)
			continue
		}
		w.serveConn(conn)
		time.Sleep(redialDelay)
	}
}

// serveConn 服务一个连接化身直至断开
func (w *SocketWire) serveConn(conn net.Conn) {
	peer, err := w.handshake(conn)
	if err != nil {
		logger.Warn("握手失败", "wire", w.name, "err", err)
		_ = conn.Close()
		return
	}
	logger.Info("连接建立", "wire", w.name, "token", w.token, "peer", peer)

	// 本次化身的作用域：开启即终止上一个化身的资源
	connLt := w.incarnations.Next()

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()
	w.processor.Resume(pauseReasonDisconnected)
	w.connected.Set(true)

	// 化身作用域终止（lt 级联或新连接到来）时关闭连接使读循环退出
	_, _ = connLt.OnTermination(func() { _ = conn.Close() })
	err = w.readLoop(conn)

	w.mu.Lock()
	w.conn = nil
	w.mu.Unlock()
	_ = w.processor.Pause(w.lt, pauseReasonDisconnected)
	w.connected.Set(false)
	w.incarnations.TerminateCurrent()
	logger.Info("连接断开", "wire", w.name, "peer", peer, "err", err)
}

// handshake 交换连接令牌
//
// 双向并发收发，避免两端同时阻塞在写满的缓冲上。
func (w *SocketWire) handshake(conn net.Conn) (uuid.UUID, error) {
	var peer uuid.UUID
	g := new(errgroup.Group)
	g.Go(func() error {
		_, err := conn.Write(w.token[:])
		return err
	})
	g.Go(func() error {
		var b [16]byte
		if _, err := io.ReadFull(conn, b[:]); err != nil {
			return err
		}
		peer = uuid.UUID(b)
		return nil
	})
	if err := g.Wait(); err != nil {
		return uuid.Nil, err
	}
	return peer, nil
}

// readLoop 解析入站帧并交给 Broker，连接出错即返回
func (w *SocketWire) readLoop(conn net.Conn) error {
	for {
		id, payload, err := readFrame(conn)
		if err != nil {
			return err
		}
		w.broker.Dispatch(id, payload)
	}
}

// writeToConn 处理器回调：把一块出站字节写入当前连接
func (w *SocketWire) writeToConn(payload []byte) error {
	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()
	if conn == nil {
		return net.ErrClosed
	}
	_, err := conn.Write(payload)
	return err
}

func (w *SocketWire) closeConn() {
	w.mu.Lock()
	conn := w.conn
	w.conn = nil
	w.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}
