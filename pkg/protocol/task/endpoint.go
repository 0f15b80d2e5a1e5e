package task

import (
	"github.com/dep2p/go-rd/pkg/interfaces"
	"github.com/dep2p/go-rd/pkg/lib/buffer"
	"github.com/dep2p/go-rd/pkg/lifetime"
	"github.com/dep2p/go-rd/pkg/protocol"
	"github.com/dep2p/go-rd/pkg/types"
)

// ============================================================================
// RdEndpoint 实现
// ============================================================================

// Handler 服务端处理函数
//
// lt 是请求生存期：调用方取消或端点解绑时终止。长时间运行的
// 处理函数应当观察 lt 并尽早退出。
type Handler[TReq, TRes any] func(lt *lifetime.Lifetime, req TReq) (TRes, error)

// RdEndpoint 服务端句柄
//
// 在自身 id 上接收请求，为每个请求派生请求生存期，处理函数在
// 独立 goroutine 中执行；请求生存期内在 taskID 上监听取消请求。
// 发送方的上下文值在请求解码期间生效（实体事件的处理函数在恢复
// 区间内同步执行，而这里的处理函数是异步的，栈式配对纪律不允许
// 跨 goroutine 保持恢复状态）。
type RdEndpoint[TReq, TRes any] struct {
	protocol.EntityBase
	reqCodec protocol.Codec[TReq]
	resCodec protocol.Codec[TRes]
	handler  Handler[TReq, TRes]
}

// 确保实现 WireReceiver 接口
var _ interfaces.WireReceiver = (*RdEndpoint[int, int])(nil)

// NewRdEndpoint 创建未绑定端点
func NewRdEndpoint[TReq, TRes any](reqCodec protocol.Codec[TReq], resCodec protocol.Codec[TRes], handler Handler[TReq, TRes]) *RdEndpoint[TReq, TRes] {
	return &RdEndpoint[TReq, TRes]{reqCodec: reqCodec, resCodec: resCodec, handler: handler}
}

// Bind 在协议根下绑定
//
// 与对端调用句柄使用同一名字。
func (e *RdEndpoint[TReq, TRes]) Bind(lt *lifetime.Lifetime, p *protocol.Protocol, name string) error {
	return e.BindUnder(lt, p, p.RootID(), name)
}

// BindUnder 在指定父 id 下绑定
func (e *RdEndpoint[TReq, TRes]) BindUnder(lt *lifetime.Lifetime, p *protocol.Protocol, parentID types.RdID, name string) error {
	return e.BindReceiver(lt, p, parentID, name, e)
}

// OnWireReceived 接收一个请求
func (e *RdEndpoint[TReq, TRes]) OnWireReceived(buf *buffer.Buffer) {
	p := e.Proto()
	if p == nil {
		return
	}

	var taskID types.RdID
	var req TReq
	err := p.ReadMessage(buf, func(ctx protocol.SerializationCtx, buf *buffer.Buffer) error {
		var err error
		if taskID, err = types.ReadRdID(buf); err != nil {
			return err
		}
		req, err = e.reqCodec.Read(ctx, buf)
		return err
	})
	if err != nil {
		logger.Error("请求解码失败", "endpoint", e.RdID(), "err", err)
		return
	}

	// 请求生存期：取消请求或端点解绑都会终止它
	def := lifetime.NewDefinition(e.BindLifetime())
	p.Wire().Advise(def.Lifetime(), &cancelReceiver{id: taskID, proto: p, def: def})

	logger.Debug("请求受理", "endpoint", e.RdID(), "task", taskID)
	go e.run(p, def, taskID, req)
}

// run 执行处理函数并回送终态
func (e *RdEndpoint[TReq, TRes]) run(p *protocol.Protocol, def *lifetime.Definition, taskID types.RdID, req TReq) {
	res, err := e.handler(def.Lifetime(), req)

	if !def.IsAlive() {
		// 已取消：调用方不再等待，不回送
		return
	}
	p.Send(taskID, func(ctx protocol.SerializationCtx, buf *buffer.Buffer) error {
		if err != nil {
			buf.WriteUint8(byte(KindFault))
			buf.WriteString(err.Error())
			return nil
		}
		buf.WriteUint8(byte(KindSuccess))
		return e.resCodec.Write(ctx, buf, res)
	})
	_ = def.Terminate()
}

// ============================================================================
// 取消接收者
// ============================================================================

// cancelReceiver 在 taskID 上监听调用方的取消请求
type cancelReceiver struct {
	id    types.RdID
	proto *protocol.Protocol
	def   *lifetime.Definition
}

// RdID 实现 WireReceiver
func (r *cancelReceiver) RdID() types.RdID {
	return r.id
}

// OnWireReceived 终止请求生存期
func (r *cancelReceiver) OnWireReceived(buf *buffer.Buffer) {
	err := r.proto.ReadMessage(buf, func(_ protocol.SerializationCtx, buf *buffer.Buffer) error {
		kind, err := buf.ReadUint8()
		if err != nil {
			return err
		}
		if Kind(kind) != KindCancelled {
			logger.Warn("任务通道上的意外消息", "task", r.id, "kind", kind)
			return nil
		}
		logger.Debug("请求取消", "task", r.id)
		return r.def.Terminate()
	})
	if err != nil {
		logger.Error("取消消息解码失败", "task", r.id, "err", err)
	}
}
