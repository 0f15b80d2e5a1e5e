package transport

// ============================================================================
// 块环
// ============================================================================

// chunk 定长字节块，串成单向循环链环
//
// sealed 表示发送方正在处理该块，写入方不得触碰；
// filled==0 且未封存即为空闲块，可被写游标复用。
// 块在有界运行期内只被回收复用，不单独释放。
type chunk struct {
	data   []byte
	filled int
	sealed bool
	next   *chunk
}

// newRing 创建单块自环
func newRing(chunkSize int) *chunk {
	c := &chunk{data: make([]byte, chunkSize)}
	c.next = c
	return c
}

// isFree 判断块是否可写
func (c *chunk) isFree() bool {
	return c.filled == 0 && !c.sealed
}

// insertAfter 在 c 之后插入新块，保持循环
func (c *chunk) insertAfter(chunkSize int) *chunk {
	n := &chunk{data: make([]byte, chunkSize), next: c.next}
	c.next = n
	return n
}
