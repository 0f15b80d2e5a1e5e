package codegen

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ============================================================================
// 模型校验
// ============================================================================

// maxParams 单方法参数个数上限
//
// 位置化请求结构体按参数顺序编码，参数过多说明模型需要拆分。
const maxParams = 8

var (
	// ErrEmptyModel 模型没有任何服务
	ErrEmptyModel = errors.New("codegen: model has no services")

	// ErrEmptyService 服务没有任何方法
	ErrEmptyService = errors.New("codegen: service has no methods")

	// ErrDuplicateMethod 方法重名（不支持重载）
	ErrDuplicateMethod = errors.New("codegen: duplicate method name")

	// ErrTooManyParams 参数个数超限
	ErrTooManyParams = errors.New("codegen: too many parameters")

	// ErrUnsupportedType 类型不在受支持的集合内
	ErrUnsupportedType = errors.New("codegen: unsupported type")

	// ErrBadIdentifier 名字不是合法的导出友好标识符
	ErrBadIdentifier = errors.New("codegen: invalid identifier")
)

// wireTypes 受支持的线上类型 → Go 类型与内置编解码器
var wireTypes = map[string]struct {
	goType string
	codec  string
}{
	"int32":   {"int32", "protocol.CodecInt32()"},
	"int64":   {"int64", "protocol.CodecInt64()"},
	"string":  {"string", "protocol.CodecString()"},
	"bool":    {"bool", "protocol.CodecBool()"},
	"float64": {"float64", "protocol.CodecFloat64()"},
	"bytes":   {"[]byte", "protocol.CodecBytes()"},
}

// Validate 校验模型，返回首个违例
//
// 泛型与指针/引用类型一律拒绝：线上表示必须是自包含的值。
func Validate(m *Model) error {
	if m.Package == "" {
		return fmt.Errorf("%w: missing package", ErrBadIdentifier)
	}
	if len(m.Services) == 0 {
		return ErrEmptyModel
	}
	seenServices := make(map[string]bool)
	for _, svc := range m.Services {
		if err := checkIdentifier(svc.Name); err != nil {
			return fmt.Errorf("service %q: %w", svc.Name, err)
		}
		if seenServices[svc.Name] {
			return fmt.Errorf("%w: service %q", ErrDuplicateMethod, svc.Name)
		}
		seenServices[svc.Name] = true
		if err := validateService(svc); err != nil {
			return fmt.Errorf("service %q: %w", svc.Name, err)
		}
	}
	return nil
}

func validateService(svc Service) error {
	if len(svc.Methods) == 0 {
		return ErrEmptyService
	}
	seen := make(map[string]bool)
	for _, m := range svc.Methods {
		if err := checkIdentifier(m.Name); err != nil {
			return fmt.Errorf("method %q: %w", m.Name, err)
		}
		if seen[m.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicateMethod, m.Name)
		}
		seen[m.Name] = true
		if err := validateMethod(m); err != nil {
			return fmt.Errorf("method %q: %w", m.Name, err)
		}
	}
	return nil
}

func validateMethod(m Method) error {
	if len(m.Params) > maxParams {
		return fmt.Errorf("%w: %d > %d", ErrTooManyParams, len(m.Params), maxParams)
	}
	seen := make(map[string]bool)
	for _, p := range m.Params {
		if err := checkIdentifier(p.Name); err != nil {
			return fmt.Errorf("param %q: %w", p.Name, err)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: param %q", ErrDuplicateMethod, p.Name)
		}
		seen[p.Name] = true
		if err := checkType(p.Type); err != nil {
			return fmt.Errorf("param %q: %w", p.Name, err)
		}
	}
	if m.Result != "" {
		if err := checkType(m.Result); err != nil {
			return fmt.Errorf("result: %w", err)
		}
	}
	return nil
}

func checkType(t string) error {
	if strings.ContainsAny(t, "[]<>*&") && t != "bytes" {
		return fmt.Errorf("%w: %q (generic and by-ref types are rejected)", ErrUnsupportedType, t)
	}
	if _, ok := wireTypes[t]; !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, t)
	}
	return nil
}

func checkIdentifier(name string) error {
	if name == "" {
		return ErrBadIdentifier
	}
	for i, r := range name {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return fmt.Errorf("%w: %q", ErrBadIdentifier, name)
	}
	return nil
}
