package protocol

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/dep2p/go-rd/pkg/lib/buffer"
	"github.com/dep2p/go-rd/pkg/types"
)

// ============================================================================
// 序列化上下文与编解码器
// ============================================================================

// SerializationCtx 一次序列化/反序列化的环境
//
// 携带注册表与驻留根，重类型上下文值的驻留编码依赖后者。
type SerializationCtx struct {
	Serializers *Serializers
	Interns     *InternRoot
}

// Codec 类型 T 的对称编解码器
type Codec[T any] struct {
	Write func(ctx SerializationCtx, buf *buffer.Buffer, v T) error
	Read  func(ctx SerializationCtx, buf *buffer.Buffer) (T, error)
}

// ════════════════════════════════════════════════════════════════════════════
//                              内置编解码器
// ════════════════════════════════════════════════════════════════════════════

// CodecInt64 int64 编解码器
func CodecInt64() Codec[int64] {
	return Codec[int64]{
		Write: func(_ SerializationCtx, buf *buffer.Buffer, v int64) error {
			buf.WriteInt64(v)
			return nil
		},
		Read: func(_ SerializationCtx, buf *buffer.Buffer) (int64, error) {
			return buf.ReadInt64()
		},
	}
}

// CodecInt32 int32 编解码器
func CodecInt32() Codec[int32] {
	return Codec[int32]{
		Write: func(_ SerializationCtx, buf *buffer.Buffer, v int32) error {
			buf.WriteInt32(v)
			return nil
		},
		Read: func(_ SerializationCtx, buf *buffer.Buffer) (int32, error) {
			return buf.ReadInt32()
		},
	}
}

// CodecString string 编解码器
func CodecString() Codec[string] {
	return Codec[string]{
		Write: func(_ SerializationCtx, buf *buffer.Buffer, v string) error {
			buf.WriteString(v)
			return nil
		},
		Read: func(_ SerializationCtx, buf *buffer.Buffer) (string, error) {
			return buf.ReadString()
		},
	}
}

// CodecBool bool 编解码器
func CodecBool() Codec[bool] {
	return Codec[bool]{
		Write: func(_ SerializationCtx, buf *buffer.Buffer, v bool) error {
			buf.WriteBool(v)
			return nil
		},
		Read: func(_ SerializationCtx, buf *buffer.Buffer) (bool, error) {
			return buf.ReadBool()
		},
	}
}

// CodecFloat64 float64 编解码器
func CodecFloat64() Codec[float64] {
	return Codec[float64]{
		Write: func(_ SerializationCtx, buf *buffer.Buffer, v float64) error {
			buf.WriteFloat64(v)
			return nil
		},
		Read: func(_ SerializationCtx, buf *buffer.Buffer) (float64, error) {
			return buf.ReadFloat64()
		},
	}
}

// CodecBytes 字节切片编解码器
func CodecBytes() Codec[[]byte] {
	return Codec[[]byte]{
		Write: func(_ SerializationCtx, buf *buffer.Buffer, v []byte) error {
			buf.WriteByteSlice(v)
			return nil
		},
		Read: func(_ SerializationCtx, buf *buffer.Buffer) ([]byte, error) {
			return buf.ReadByteSlice()
		},
	}
}

// CodecUnit 空负载编解码器
//
// 零参调用与零返回值的请求/响应使用 Unit，线上不占字节。
func CodecUnit() Codec[types.Unit] {
	return Codec[types.Unit]{
		Write: func(_ SerializationCtx, _ *buffer.Buffer, _ types.Unit) error {
			return nil
		},
		Read: func(_ SerializationCtx, _ *buffer.Buffer) (types.Unit, error) {
			return types.UnitValue, nil
		},
	}
}

// WriteNullable 写入可空值：先写存在标志，再写值本身
func WriteNullable[T any](ctx SerializationCtx, buf *buffer.Buffer, v *T, c Codec[T]) error {
	buf.WriteBool(v != nil)
	if v == nil {
		return nil
	}
	return c.Write(ctx, buf, *v)
}

// ReadNullable 读出可空值
func ReadNullable[T any](ctx SerializationCtx, buf *buffer.Buffer, c Codec[T]) (*T, error) {
	present, err := buf.ReadBool()
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	v, err := c.Read(ctx, buf)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ============================================================================
// 注册表
// ============================================================================

// registration 一条已注册的类型：名字散列 id 加擦除后的读写函数
type registration struct {
	id    types.RdID
	name  string
	write func(ctx SerializationCtx, buf *buffer.Buffer, v any) error
	read  func(ctx SerializationCtx, buf *buffer.Buffer) (any, error)
}

// Serializers 按类型身份键控的编解码注册表
//
// 同一类型与同一名字都只允许注册一次；名字在两端必须一致，
// 多态编码以名字的散列作为线上类型标签。
type Serializers struct {
	mu     sync.Mutex
	byType map[reflect.Type]*registration
	byID   map[types.RdID]*registration
}

// NewSerializers 创建空注册表
func NewSerializers() *Serializers {
	return &Serializers{
		byType: make(map[reflect.Type]*registration),
		byID:   make(map[types.RdID]*registration),
	}
}

// RegisterSerializer 注册类型 T 的编解码器
//
// 名字或类型重复注册返回 ErrDuplicateSerializer。
func RegisterSerializer[T any](s *Serializers, name string, c Codec[T]) error {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	id := types.Nil.Mix(name)

	reg := &registration{
		id:   id,
		name: name,
		write: func(ctx SerializationCtx, buf *buffer.Buffer, v any) error {
			return c.Write(ctx, buf, v.(T))
		},
		read: func(ctx SerializationCtx, buf *buffer.Buffer) (any, error) {
			return c.Read(ctx, buf)
		},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byType[rt]; ok {
		return fmt.Errorf("%w: type %v", ErrDuplicateSerializer, rt)
	}
	if _, ok := s.byID[id]; ok {
		return fmt.Errorf("%w: name %q", ErrDuplicateSerializer, name)
	}
	s.byType[rt] = reg
	s.byID[id] = reg
	return nil
}

// WritePolymorphic 多态写入：先写类型标签再写值
//
// 值的动态类型必须已注册，否则返回 ErrUnknownType。
func (s *Serializers) WritePolymorphic(ctx SerializationCtx, buf *buffer.Buffer, v any) error {
	rt := reflect.TypeOf(v)
	s.mu.Lock()
	reg, ok := s.byType[rt]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownType, rt)
	}
	reg.id.Write(buf)
	return reg.write(ctx, buf, v)
}

// ReadPolymorphic 多态读出：按类型标签找回编解码器
func (s *Serializers) ReadPolymorphic(ctx SerializationCtx, buf *buffer.Buffer) (any, error) {
	id, err := types.ReadRdID(buf)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	reg, ok := s.byID[id]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: tag %v", ErrUnknownType, id)
	}
	return reg.read(ctx, buf)
}
