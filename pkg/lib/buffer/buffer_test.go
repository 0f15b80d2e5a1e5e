package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// 编解码往返
// ============================================================================

// TestBuffer_MixedRoundtrip 验证混合类型顺序读写
func TestBuffer_MixedRoundtrip(t *testing.T) {
	b := New()
	b.WriteBool(true)
	b.WriteUint8(0x7f)
	b.WriteInt16(-2)
	b.WriteInt32(1 << 20)
	b.WriteInt64(-1 << 40)
	b.WriteFloat64(3.25)
	b.WriteString("你好, wire")
	b.WriteByteSlice([]byte{1, 2, 3})

	r := Wrap(b.Bytes())

	v1, err := r.ReadBool()
	require.NoError(t, err)
	assert.True(t, v1)

	v2, err := r.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, byte(0x7f), v2)

	v3, err := r.ReadInt16()
	require.NoError(t, err)
	assert.Equal(t, int16(-2), v3)

	v4, err := r.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(1<<20), v4)

	v5, err := r.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(-1<<40), v5)

	v6, err := r.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, 3.25, v6)

	v7, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "你好, wire", v7)

	v8, err := r.ReadByteSlice()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, v8)

	assert.Equal(t, 0, r.Remaining())

	t.Log("✅ 混合类型按写入顺序完整往返")
}

// TestBuffer_NullFlag 验证可空标记
func TestBuffer_NullFlag(t *testing.T) {
	b := New()
	b.WriteNullFlag(false)
	b.WriteNullFlag(true)
	b.WriteInt32(7)

	r := Wrap(b.Bytes())
	present, err := r.ReadNullFlag()
	require.NoError(t, err)
	assert.False(t, present)

	present, err = r.ReadNullFlag()
	require.NoError(t, err)
	assert.True(t, present)

	v, err := r.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(7), v)

	t.Log("✅ 可空标记往返一致")
}

// ============================================================================
// 越界与损坏输入
// ============================================================================

// TestBuffer_OutOfBounds 验证越界读取返回错误而不 panic
func TestBuffer_OutOfBounds(t *testing.T) {
	r := Wrap([]byte{1, 2})

	_, err := r.ReadInt64()
	assert.ErrorIs(t, err, ErrOutOfBounds)

	t.Log("✅ 越界读取返回 ErrOutOfBounds")
}

// TestBuffer_NegativeLength 验证负长度前缀被拒绝
func TestBuffer_NegativeLength(t *testing.T) {
	b := New()
	b.WriteInt32(-5)

	_, err := Wrap(b.Bytes()).ReadByteSlice()
	assert.ErrorIs(t, err, ErrNegativeLength)

	t.Log("✅ 负长度前缀返回 ErrNegativeLength")
}

// TestBuffer_TruncatedString 验证长度前缀超出剩余字节时报错
func TestBuffer_TruncatedString(t *testing.T) {
	b := New()
	b.WriteInt32(100)
	b.WriteRaw([]byte("short"))

	_, err := Wrap(b.Bytes()).ReadString()
	assert.ErrorIs(t, err, ErrOutOfBounds)

	t.Log("✅ 截断的字符串返回 ErrOutOfBounds")
}
