package task

import (
	"time"

	"github.com/dep2p/go-rd/pkg/interfaces"
	"github.com/dep2p/go-rd/pkg/lib/buffer"
	"github.com/dep2p/go-rd/pkg/lib/log"
	"github.com/dep2p/go-rd/pkg/lifetime"
	"github.com/dep2p/go-rd/pkg/protocol"
	"github.com/dep2p/go-rd/pkg/types"
)

var logger = log.Logger("protocol/task")

// ============================================================================
// RdCall 实现
// ============================================================================

// RdCall 调用端句柄
//
// 每次 Start 分配一个动态 taskID 并在其上订阅响应；请求发往
// 调用实体自身的 id。调用方生存期终止时在途任务取消并通知对端。
type RdCall[TReq, TRes any] struct {
	protocol.EntityBase
	reqCodec protocol.Codec[TReq]
	resCodec protocol.Codec[TRes]
}

// 确保实现 WireReceiver 接口
var _ interfaces.WireReceiver = (*RdCall[int, int])(nil)

// NewRdCall 创建未绑定调用句柄
func NewRdCall[TReq, TRes any](reqCodec protocol.Codec[TReq], resCodec protocol.Codec[TRes]) *RdCall[TReq, TRes] {
	return &RdCall[TReq, TRes]{reqCodec: reqCodec, resCodec: resCodec}
}

// Bind 在协议根下绑定
func (c *RdCall[TReq, TRes]) Bind(lt *lifetime.Lifetime, p *protocol.Protocol, name string) error {
	return c.BindUnder(lt, p, p.RootID(), name)
}

// BindUnder 在指定父 id 下绑定
func (c *RdCall[TReq, TRes]) BindUnder(lt *lifetime.Lifetime, p *protocol.Protocol, parentID types.RdID, name string) error {
	return c.BindReceiver(lt, p, parentID, name, c)
}

// Start 发起一次异步调用
//
// 返回的任务在 lt 与绑定生存期交汇的作用域内有效：任一终止都
// 取消在途任务并向对端发送取消请求。
func (c *RdCall[TReq, TRes]) Start(lt *lifetime.Lifetime, req TReq) (*RdTask[TRes], error) {
	p := c.Proto()
	if p == nil {
		return nil, protocol.ErrNotBound
	}

	taskID := p.Identities().NextDynamicID()
	t := newTask[TRes](p.Scheduler())

	def := lifetime.NewDefinition(lt)
	recv := &responseReceiver[TRes]{id: taskID, proto: p, codec: c.resCodec, task: t, def: def}
	p.Wire().Advise(def.Lifetime(), recv)

	// 调用方作用域终止：本地取消并通知对端
	_, err := lt.OnTermination(func() {
		if t.setResult(Cancelled[TRes]()) {
			sendCancel(p, taskID)
		}
	})
	if err != nil {
		// 作用域已终止，任务生来即取消
		t.setResult(Cancelled[TRes]())
		return t, nil
	}

	p.Send(c.RdID(), func(ctx protocol.SerializationCtx, buf *buffer.Buffer) error {
		taskID.Write(buf)
		return c.reqCodec.Write(ctx, buf, req)
	})
	logger.Debug("调用发起", "call", c.RdID(), "task", taskID)
	return t, nil
}

// Sync 发起调用并阻塞等待结果
//
// 超时返回 ErrTimeout 并取消在途任务；对端出错返回 *FaultError。
func (c *RdCall[TReq, TRes]) Sync(req TReq, timeout time.Duration) (TRes, error) {
	var zero TRes
	p := c.Proto()
	if p == nil {
		return zero, protocol.ErrNotBound
	}

	def := lifetime.NewDefinition(c.BindLifetime())
	defer func() { _ = def.Terminate() }()

	t, err := c.Start(def.Lifetime(), req)
	if err != nil {
		return zero, err
	}
	r, err := t.Wait(p.Clock(), timeout)
	if err != nil {
		return zero, err
	}
	return r.Unwrap()
}

// OnWireReceived 调用端不在自身 id 上接收消息
func (c *RdCall[TReq, TRes]) OnWireReceived(_ *buffer.Buffer) {
	logger.Warn("调用端收到意外消息", "rdid", c.RdID())
}

// sendCancel 向对端发送取消请求
func sendCancel(p *protocol.Protocol, taskID types.RdID) {
	p.Send(taskID, func(_ protocol.SerializationCtx, buf *buffer.Buffer) error {
		buf.WriteUint8(byte(KindCancelled))
		return nil
	})
}

// ============================================================================
// 响应接收者
// ============================================================================

// responseReceiver 在 taskID 上等待终态响应
type responseReceiver[T any] struct {
	id    types.RdID
	proto *protocol.Protocol
	codec protocol.Codec[T]
	task  *RdTask[T]
	def   *lifetime.Definition
}

// RdID 实现 WireReceiver
func (r *responseReceiver[T]) RdID() types.RdID {
	return r.id
}

// OnWireReceived 解出终态并写入任务
func (r *responseReceiver[T]) OnWireReceived(buf *buffer.Buffer) {
	err := r.proto.ReadMessage(buf, func(ctx protocol.SerializationCtx, buf *buffer.Buffer) error {
		kind, err := buf.ReadUint8()
		if err != nil {
			return err
		}
		switch Kind(kind) {
		case KindSuccess:
			v, err := r.codec.Read(ctx, buf)
			if err != nil {
				return err
			}
			r.task.setResult(Succeeded(v))
		case KindFault:
			msg, err := buf.ReadString()
			if err != nil {
				return err
			}
			r.task.setResult(Faulted[T](msg))
		case KindCancelled:
			r.task.setResult(Cancelled[T]())
		default:
			r.task.setResult(Faulted[T]("unknown result kind"))
		}
		return nil
	})
	if err != nil {
		logger.Error("响应解码失败", "task", r.id, "err", err)
		r.task.setResult(Faulted[T](err.Error()))
	}
	// 终态已定，撤销 taskID 订阅
	_ = r.def.Terminate()
}
