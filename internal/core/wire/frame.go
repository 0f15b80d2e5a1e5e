package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/dep2p/go-rd/pkg/types"
)

// ============================================================================
// 帧编解码
// ============================================================================

// 帧头：RdID(8 字节) + 负载长度(4 字节)，小端序
const frameHeaderSize = 12

// maxFramePayload 单帧负载上限
//
// 超限视为流损坏：长度字段来自不可信对端，必须设界。
const maxFramePayload = 1 << 26 // 64 MiB

var (
	// ErrFrameTooLarge 帧负载超过上限
	ErrFrameTooLarge = errors.New("wire: frame payload too large")

	// ErrNilID 以 Nil id 发送消息
	ErrNilID = errors.New("wire: send with nil rdid")
)

// encodeFrame 编码一帧
func encodeFrame(id types.RdID, payload []byte) []byte {
	out := make([]byte, frameHeaderSize+len(payload))
	binary.LittleEndian.PutUint64(out[0:8], uint64(id))
	binary.LittleEndian.PutUint32(out[8:12], uint32(len(payload)))
	copy(out[frameHeaderSize:], payload)
	return out
}

// readFrame 从流中读出一帧
func readFrame(r io.Reader) (types.RdID, []byte, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return types.Nil, nil, err
	}
	id := types.RdID(binary.LittleEndian.Uint64(header[0:8]))
	n := binary.LittleEndian.Uint32(header[8:12])
	if n > maxFramePayload {
		return types.Nil, nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return types.Nil, nil, err
	}
	return id, payload, nil
}
