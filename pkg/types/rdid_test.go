package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-rd/pkg/lib/buffer"
)

// ============================================================================
// RdID 派生
// ============================================================================

// TestRdID_MixDeterministic 验证同一路径在任何调用序列下得到同一 id
func TestRdID_MixDeterministic(t *testing.T) {
	a := Nil.Mix("protocol").Mix("service").Mix("method")
	b := Nil.Mix("protocol").Mix("service").Mix("method")
	assert.Equal(t, a, b, "同一名字路径必须得到同一 id")
	assert.False(t, a.IsNil())

	t.Log("✅ Mix 跨调用确定")
}

// TestRdID_MixDistinguishes 验证不同名字与不同父产生不同 id
func TestRdID_MixDistinguishes(t *testing.T) {
	root := Nil.Mix("protocol")
	assert.NotEqual(t, root.Mix("a"), root.Mix("b"), "不同名字应得到不同 id")
	assert.NotEqual(t, Nil.Mix("p1").Mix("x"), Nil.Mix("p2").Mix("x"), "不同父应得到不同 id")
	assert.NotEqual(t, root.MixInt(1), root.MixInt(2))

	t.Log("✅ Mix 区分名字与父路径")
}

// TestRdID_Roundtrip 验证线上编码往返
func TestRdID_Roundtrip(t *testing.T) {
	id := Nil.Mix("roundtrip")

	buf := buffer.New()
	id.Write(buf)

	got, err := ReadRdID(buffer.Wrap(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, id, got)

	t.Log("✅ RdID 编码往返一致")
}
