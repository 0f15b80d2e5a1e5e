package wire

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-rd/pkg/types"
)

// TestFrame_Roundtrip 验证帧编解码往返
func TestFrame_Roundtrip(t *testing.T) {
	id := types.RdID(42).Mix("entity")
	payload := []byte("你好, frame")

	encoded := encodeFrame(id, payload)
	require.Len(t, encoded, frameHeaderSize+len(payload))

	gotID, gotPayload, err := readFrame(bytes.NewReader(encoded))
	require.NoError(t, err)
	assert.Equal(t, id, gotID)
	assert.Equal(t, payload, gotPayload)

	t.Log("✅ 帧编解码往返一致")
}

// TestFrame_EmptyPayload 验证空负载帧
func TestFrame_EmptyPayload(t *testing.T) {
	encoded := encodeFrame(types.RdID(7), nil)

	gotID, gotPayload, err := readFrame(bytes.NewReader(encoded))
	require.NoError(t, err)
	assert.Equal(t, types.RdID(7), gotID)
	assert.Empty(t, gotPayload)

	t.Log("✅ 空负载帧可往返")
}

// TestFrame_RejectsOversizedLength 验证超限长度字段被拒绝
func TestFrame_RejectsOversizedLength(t *testing.T) {
	var header [frameHeaderSize]byte
	binary.LittleEndian.PutUint64(header[0:8], 1)
	binary.LittleEndian.PutUint32(header[8:12], maxFramePayload+1)

	_, _, err := readFrame(bytes.NewReader(header[:]))
	assert.ErrorIs(t, err, ErrFrameTooLarge, "来自对端的长度字段必须设界")

	t.Log("✅ 超限帧被判为流损坏")
}

// TestFrame_TruncatedStream 验证不完整流报错
func TestFrame_TruncatedStream(t *testing.T) {
	encoded := encodeFrame(types.RdID(1), []byte("abcdef"))

	_, _, err := readFrame(bytes.NewReader(encoded[:frameHeaderSize+2]))
	assert.Error(t, err, "负载不完整应报错")

	t.Log("✅ 截断的流被检出")
}
