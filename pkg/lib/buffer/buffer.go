// Package buffer 提供帧负载的小端序编解码缓冲区
//
// 协议帧内的所有定长整数均采用小端序编码，字符串与字节串采用
// int32 长度前缀。读写共用同一游标模型：写入在尾部追加，读取
// 从头部推进，越界读取返回 ErrOutOfBounds 而不是 panic。
//
// 用户自定义类型的序列化器属于外部协作方，本包只提供它们共同
// 依赖的原语。
package buffer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrOutOfBounds 读取越过缓冲区末尾
	ErrOutOfBounds = errors.New("buffer: read out of bounds")

	// ErrNegativeLength 读到负的长度前缀
	ErrNegativeLength = errors.New("buffer: negative length prefix")
)

// Buffer 小端序编解码缓冲区
//
// 零值不可直接使用，请通过 New 或 Wrap 创建。
type Buffer struct {
	data []byte
	pos  int
}

// New 创建空缓冲区（用于写入）
func New() *Buffer {
	return &Buffer{data: make([]byte, 0, 64)}
}

// Wrap 包装既有字节串（用于读取）
//
// 不复制数据，调用方在读取期间不得修改 data。
func Wrap(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Bytes 返回已写入的全部字节
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len 返回缓冲区总长度
func (b *Buffer) Len() int {
	return len(b.data)
}

// Remaining 返回尚未读取的字节数
func (b *Buffer) Remaining() int {
	return len(b.data) - b.pos
}

// ============================================================================
//                              写入
// ============================================================================

// WriteBool 写入布尔值（1 字节）
func (b *Buffer) WriteBool(v bool) {
	if v {
		b.data = append(b.data, 1)
	} else {
		b.data = append(b.data, 0)
	}
}

// WriteUint8 写入单个字节
func (b *Buffer) WriteUint8(v byte) {
	b.data = append(b.data, v)
}

// WriteInt16 写入 int16
func (b *Buffer) WriteInt16(v int16) {
	b.data = binary.LittleEndian.AppendUint16(b.data, uint16(v))
}

// WriteInt32 写入 int32
func (b *Buffer) WriteInt32(v int32) {
	b.data = binary.LittleEndian.AppendUint32(b.data, uint32(v))
}

// WriteInt64 写入 int64
func (b *Buffer) WriteInt64(v int64) {
	b.data = binary.LittleEndian.AppendUint64(b.data, uint64(v))
}

// WriteFloat64 写入 float64（IEEE 754 位模式）
func (b *Buffer) WriteFloat64(v float64) {
	b.data = binary.LittleEndian.AppendUint64(b.data, math.Float64bits(v))
}

// WriteString 写入字符串（int32 长度前缀 + UTF-8 字节）
func (b *Buffer) WriteString(v string) {
	b.WriteInt32(int32(len(v)))
	b.data = append(b.data, v...)
}

// WriteByteSlice 写入字节串（int32 长度前缀）
func (b *Buffer) WriteByteSlice(v []byte) {
	b.WriteInt32(int32(len(v)))
	b.data = append(b.data, v...)
}

// WriteRaw 追加原始字节（无长度前缀）
func (b *Buffer) WriteRaw(v []byte) {
	b.data = append(b.data, v...)
}

// WriteNullFlag 写入可空标记
//
// present=false 表示后续不携带值。
func (b *Buffer) WriteNullFlag(present bool) {
	b.WriteBool(present)
}

// ============================================================================
//                              读取
// ============================================================================

func (b *Buffer) take(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeLength
	}
	if b.pos+n > len(b.data) {
		return nil, fmt.Errorf("%w: need %d, remaining %d", ErrOutOfBounds, n, b.Remaining())
	}
	out := b.data[b.pos : b.pos+n]
	b.pos += n
	return out, nil
}

// ReadBool 读取布尔值
func (b *Buffer) ReadBool() (bool, error) {
	p, err := b.take(1)
	if err != nil {
		return false, err
	}
	return p[0] != 0, nil
}

// ReadUint8 读取单个字节
func (b *Buffer) ReadUint8() (byte, error) {
	p, err := b.take(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

// ReadInt16 读取 int16
func (b *Buffer) ReadInt16() (int16, error) {
	p, err := b.take(2)
	if err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(p)), nil
}

// ReadInt32 读取 int32
func (b *Buffer) ReadInt32() (int32, error) {
	p, err := b.take(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(p)), nil
}

// ReadInt64 读取 int64
func (b *Buffer) ReadInt64() (int64, error) {
	p, err := b.take(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(p)), nil
}

// ReadFloat64 读取 float64
func (b *Buffer) ReadFloat64() (float64, error) {
	p, err := b.take(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(p)), nil
}

// ReadString 读取字符串
func (b *Buffer) ReadString() (string, error) {
	n, err := b.ReadInt32()
	if err != nil {
		return "", err
	}
	p, err := b.take(int(n))
	if err != nil {
		return "", err
	}
	return string(p), nil
}

// ReadByteSlice 读取字节串
//
// 返回的切片是内部存储的拷贝。
func (b *Buffer) ReadByteSlice() ([]byte, error) {
	n, err := b.ReadInt32()
	if err != nil {
		return nil, err
	}
	p, err := b.take(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(p))
	copy(out, p)
	return out, nil
}

// ReadNullFlag 读取可空标记
func (b *Buffer) ReadNullFlag() (bool, error) {
	return b.ReadBool()
}
