package protocol

import (
	"fmt"
	"sync"

	"github.com/dep2p/go-rd/pkg/lib/buffer"
	"github.com/dep2p/go-rd/pkg/rdcontext"
)

// ============================================================================
// 上下文处理器
// ============================================================================

// registeredContext 一个已注册槽位：类型擦除视图加线上读写函数
//
// 重量槽位的读写函数内嵌驻留逻辑。
type registeredContext struct {
	handle rdcontext.Handle
	write  func(ctx SerializationCtx, buf *buffer.Buffer, v any) error
	read   func(ctx SerializationCtx, buf *buffer.Buffer) (any, error)
}

// ContextHandler 协议的上下文集合
//
// 持有协议上全部已注册槽位，负责把它们的快照编入每条出站消息、
// 从每条入站消息恢复。未注册键的入站条目被跳过并告警：值采用
// 长度前缀编码，跳过不需要知道其类型。
type ContextHandler struct {
	mu    sync.Mutex
	order []*registeredContext
	byKey map[string]*registeredContext
}

// NewContextHandler 创建空集合
func NewContextHandler() *ContextHandler {
	return &ContextHandler{byKey: make(map[string]*registeredContext)}
}

// RegisterContext 注册槽位
//
// 同一键重复注册返回 ErrDuplicateContext。重量槽位的值经协议
// 驻留根去重：首次传输携带完整编码与索引，之后只传索引。
func RegisterContext[T comparable](h *ContextHandler, c *rdcontext.Context[T], codec Codec[T]) error {
	reg := &registeredContext{handle: c}
	if c.IsHeavy() {
		reg.write = func(ctx SerializationCtx, buf *buffer.Buffer, v any) error {
			idx, first := ctx.Interns.InternForSend(v)
			buf.WriteBool(first)
			buf.WriteInt32(idx)
			if first {
				return codec.Write(ctx, buf, v.(T))
			}
			return nil
		}
		reg.read = func(ctx SerializationCtx, buf *buffer.Buffer) (any, error) {
			first, err := buf.ReadBool()
			if err != nil {
				return nil, err
			}
			idx, err := buf.ReadInt32()
			if err != nil {
				return nil, err
			}
			if first {
				v, err := codec.Read(ctx, buf)
				if err != nil {
					return nil, err
				}
				ctx.Interns.RecordReceived(idx, v)
				return v, nil
			}
			v, ok := ctx.Interns.ResolveReceived(idx)
			if !ok {
				return nil, fmt.Errorf("%w: %d", ErrInternIndex, idx)
			}
			return v, nil
		}
	} else {
		reg.write = func(ctx SerializationCtx, buf *buffer.Buffer, v any) error {
			return codec.Write(ctx, buf, v.(T))
		}
		reg.read = func(ctx SerializationCtx, buf *buffer.Buffer) (any, error) {
			return codec.Read(ctx, buf)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.byKey[c.Key()]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateContext, c.Key())
	}
	h.order = append(h.order, reg)
	h.byKey[c.Key()] = reg
	return nil
}

// snapshot 取当前注册表的一致视图
func (h *ContextHandler) snapshot() []*registeredContext {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*registeredContext, len(h.order))
	copy(out, h.order)
	return out
}

// WriteBundle 把全部槽位的当前值快照编入缓冲区
//
// 编码：有值槽位数（int16），每个槽位写键名与长度前缀的值字节。
// 长度前缀让接收端可以跳过不认识的键。
func (h *ContextHandler) WriteBundle(ctx SerializationCtx, buf *buffer.Buffer) error {
	regs := h.snapshot()

	type captured struct {
		reg   *registeredContext
		value any
	}
	var present []captured
	for _, reg := range regs {
		if v, ok := reg.handle.SnapshotAny(); ok {
			present = append(present, captured{reg: reg, value: v})
		}
	}

	buf.WriteInt16(int16(len(present)))
	for _, c := range present {
		buf.WriteString(c.reg.handle.Key())
		valueBuf := buffer.New()
		if err := c.reg.write(ctx, valueBuf, c.value); err != nil {
			return err
		}
		buf.WriteByteSlice(valueBuf.Bytes())
	}
	return nil
}

// ReadAndRestore 读出快照并压入本端槽位
//
// 返回的 release 按逆序弹出，必须在处理函数返回后调用。
func (h *ContextHandler) ReadAndRestore(ctx SerializationCtx, buf *buffer.Buffer) (release func(), err error) {
	count, err := buf.ReadInt16()
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]rdcontext.Handle)
	var entries []rdcontext.Entry
	for i := int16(0); i < count; i++ {
		key, err := buf.ReadString()
		if err != nil {
			return nil, err
		}
		valueBytes, err := buf.ReadByteSlice()
		if err != nil {
			return nil, err
		}

		h.mu.Lock()
		reg, known := h.byKey[key]
		h.mu.Unlock()
		if !known {
			logger.Warn("跳过未注册的上下文键", "key", key)
			continue
		}
		v, err := reg.read(ctx, buffer.Wrap(valueBytes))
		if err != nil {
			return nil, fmt.Errorf("decode context %q: %w", key, err)
		}
		byKey[key] = reg.handle
		entries = append(entries, rdcontext.Entry{Key: key, Value: v, Present: true})
	}

	return rdcontext.NewBundle(entries).Restore(byKey), nil
}

// Registered 返回已注册的槽位键（按注册顺序）
func (h *ContextHandler) Registered() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	keys := make([]string, 0, len(h.order))
	for _, reg := range h.order {
		keys = append(keys, reg.handle.Key())
	}
	return keys
}
