package lifetime

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// 终止顺序与恰好一次
// ============================================================================

// TestLifetime_ReverseOrder 验证清理动作按注册逆序执行
func TestLifetime_ReverseOrder(t *testing.T) {
	d := NewDefinition(Eternal())
	lt := d.Lifetime()

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		_, err := lt.OnTermination(func() { order = append(order, i) })
		require.NoError(t, err)
	}

	require.NoError(t, d.Terminate())
	assert.Equal(t, []int{3, 2, 1}, order, "清理应按注册逆序执行")
	assert.Equal(t, StatusTerminated, lt.Status())

	t.Log("✅ 清理动作按注册逆序执行")
}

// TestLifetime_TerminateIdempotent 验证重复终止只清理一次
func TestLifetime_TerminateIdempotent(t *testing.T) {
	d := NewDefinition(Eternal())

	count := 0
	_, err := d.Lifetime().OnTermination(func() { count++ })
	require.NoError(t, err)

	require.NoError(t, d.Terminate())
	require.NoError(t, d.Terminate())
	assert.Equal(t, 1, count, "清理动作恰好执行一次")

	t.Log("✅ 终止幂等，清理恰好一次")
}

// TestLifetime_LateRegistration 验证晚到注册内联执行并报告错误
func TestLifetime_LateRegistration(t *testing.T) {
	d := NewDefinition(Eternal())
	require.NoError(t, d.Terminate())

	ran := false
	reg, err := d.Lifetime().OnTermination(func() { ran = true })

	assert.True(t, ran, "已终止作用域上的注册应内联执行")
	assert.Nil(t, reg)
	assert.ErrorIs(t, err, ErrAlreadyTerminated)

	t.Log("✅ 晚到注册内联执行并返回 ErrAlreadyTerminated")
}

// TestLifetime_CancelRegistration 验证撤销后的动作不再执行
func TestLifetime_CancelRegistration(t *testing.T) {
	d := NewDefinition(Eternal())

	ran := false
	reg, err := d.Lifetime().OnTermination(func() { ran = true })
	require.NoError(t, err)
	assert.True(t, reg.Cancel())

	require.NoError(t, d.Terminate())
	assert.False(t, ran, "撤销后的清理动作不应执行")

	t.Log("✅ 撤销注册后动作不执行")
}

// TestLifetime_PanicAggregated 验证清理中的 panic 被聚合且不中断后续清理
func TestLifetime_PanicAggregated(t *testing.T) {
	d := NewDefinition(Eternal())
	lt := d.Lifetime()

	var order []string
	_, _ = lt.OnTermination(func() { order = append(order, "first") })
	_, _ = lt.OnTermination(func() { panic("boom") })
	_, _ = lt.OnTermination(func() { order = append(order, "last") })

	err := d.Terminate()
	require.Error(t, err, "panic 应折算为错误")
	assert.Equal(t, []string{"last", "first"}, order, "panic 不应阻断其余清理")

	t.Log("✅ 清理 panic 被聚合，其余动作照常执行")
}

// TestLifetime_Singletons 验证永恒与已终止单例
func TestLifetime_Singletons(t *testing.T) {
	assert.True(t, Eternal().IsAlive())
	assert.False(t, Terminated().IsAlive())

	ran := false
	_, err := Terminated().OnTermination(func() { ran = true })
	assert.True(t, ran)
	assert.True(t, errors.Is(err, ErrAlreadyTerminated))

	t.Log("✅ Eternal 恒存活，Terminated 恒终止")
}
