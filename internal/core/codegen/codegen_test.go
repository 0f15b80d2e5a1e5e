package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// calculatorModel 测试用服务模型
const calculatorModel = `
package: calcrpc
services:
  - name: calculator
    methods:
      - name: add
        params:
          - { name: left, type: int64 }
          - { name: right, type: int64 }
        result: int64
      - name: describe
        params:
          - { name: verbose, type: bool }
        result: string
      - name: reset
`

// ============================================================================
// 模型解析
// ============================================================================

// TestParseModel 验证 YAML 模型解析
func TestParseModel(t *testing.T) {
	m, err := ParseModel([]byte(calculatorModel))
	require.NoError(t, err)

	assert.Equal(t, "calcrpc", m.Package)
	require.Len(t, m.Services, 1)
	svc := m.Services[0]
	assert.Equal(t, "calculator", svc.Name)
	require.Len(t, svc.Methods, 3)
	assert.Equal(t, "add", svc.Methods[0].Name)
	require.Len(t, svc.Methods[0].Params, 2)
	assert.Equal(t, "left", svc.Methods[0].Params[0].Name)
	assert.Equal(t, "int64", svc.Methods[0].Params[0].Type)
	assert.Empty(t, svc.Methods[2].Params, "零参方法")
	assert.Empty(t, svc.Methods[2].Result, "无返回值方法")

	t.Log("✅ YAML 模型解析完整")
}

// ============================================================================
// 模型校验
// ============================================================================

// TestValidate_Violations 验证各类违例被检出
func TestValidate_Violations(t *testing.T) {
	base := func() *Model {
		m, err := ParseModel([]byte(calculatorModel))
		require.NoError(t, err)
		return m
	}

	t.Run("合法模型", func(t *testing.T) {
		require.NoError(t, Validate(base()))
	})

	t.Run("空模型", func(t *testing.T) {
		m := base()
		m.Services = nil
		assert.ErrorIs(t, Validate(m), ErrEmptyModel)
	})

	t.Run("缺少包名", func(t *testing.T) {
		m := base()
		m.Package = ""
		assert.ErrorIs(t, Validate(m), ErrBadIdentifier)
	})

	t.Run("空服务", func(t *testing.T) {
		m := base()
		m.Services[0].Methods = nil
		assert.ErrorIs(t, Validate(m), ErrEmptyService)
	})

	t.Run("方法重名", func(t *testing.T) {
		m := base()
		m.Services[0].Methods = append(m.Services[0].Methods, Method{Name: "add"})
		assert.ErrorIs(t, Validate(m), ErrDuplicateMethod)
	})

	t.Run("参数超限", func(t *testing.T) {
		m := base()
		var params []Param
		for i := 0; i < maxParams+1; i++ {
			params = append(params, Param{Name: string(rune('a' + i)), Type: "int64"})
		}
		m.Services[0].Methods[0].Params = params
		assert.ErrorIs(t, Validate(m), ErrTooManyParams)
	})

	t.Run("泛型类型", func(t *testing.T) {
		m := base()
		m.Services[0].Methods[0].Params[0].Type = "List[int64]"
		assert.ErrorIs(t, Validate(m), ErrUnsupportedType)
	})

	t.Run("指针类型", func(t *testing.T) {
		m := base()
		m.Services[0].Methods[0].Result = "*int64"
		assert.ErrorIs(t, Validate(m), ErrUnsupportedType)
	})

	t.Run("未知类型", func(t *testing.T) {
		m := base()
		m.Services[0].Methods[0].Params[0].Type = "uuid"
		assert.ErrorIs(t, Validate(m), ErrUnsupportedType)
	})

	t.Run("非法标识符", func(t *testing.T) {
		m := base()
		m.Services[0].Methods[0].Name = "add-two"
		assert.ErrorIs(t, Validate(m), ErrBadIdentifier)
	})

	t.Log("✅ 模型违例逐项检出")
}

// ============================================================================
// 代码生成
// ============================================================================

// TestEmit_Deterministic 验证同一模型两次生成字节一致
func TestEmit_Deterministic(t *testing.T) {
	m, err := ParseModel([]byte(calculatorModel))
	require.NoError(t, err)

	first, err := Emit(m)
	require.NoError(t, err)
	second, err := Emit(m)
	require.NoError(t, err)

	assert.Equal(t, first, second, "生成结果必须确定")

	t.Log("✅ 生成结果确定")
}

// TestEmit_GeneratedSurface 验证生成源码包含约定的声明
func TestEmit_GeneratedSurface(t *testing.T) {
	m, err := ParseModel([]byte(calculatorModel))
	require.NoError(t, err)

	out, err := Emit(m)
	require.NoError(t, err)
	src := string(out)

	assert.True(t, strings.HasPrefix(src, "// Code generated by rdgen. DO NOT EDIT."),
		"生成文件头标记")
	assert.Contains(t, src, "package calcrpc")

	// 服务接口
	assert.Contains(t, src, "type Calculator interface {")
	assert.Contains(t, src, "Add(lt *lifetime.Lifetime, left int64, right int64) (int64, error)")
	assert.Contains(t, src, "Reset(lt *lifetime.Lifetime) (types.Unit, error)")

	// 位置化请求
	assert.Contains(t, src, "type CalculatorAddRequest struct {")
	assert.Contains(t, src, "func calculatorAddRequestCodec() protocol.Codec[CalculatorAddRequest]")
	assert.NotContains(t, src, "CalculatorResetRequest", "零参方法复用 types.Unit")

	// 客户端代理与服务端绑定器
	assert.Contains(t, src, "type CalculatorClient struct {")
	assert.Contains(t, src, "func NewCalculatorClient(timeout time.Duration) *CalculatorClient")
	assert.Contains(t, src, "func BindCalculatorServer(lt *lifetime.Lifetime, p *protocol.Protocol, impl Calculator) error")
	assert.Contains(t, src, `p.RootID().Mix("calculator")`)

	t.Log("✅ 生成源码覆盖接口、请求、代理与绑定器")
}

// TestEmit_RejectsInvalidModel 验证生成前强制校验
func TestEmit_RejectsInvalidModel(t *testing.T) {
	_, err := Emit(&Model{Package: "x"})
	assert.ErrorIs(t, err, ErrEmptyModel)

	t.Log("✅ 非法模型不会产出代码")
}
