// Package codegen 实现调用代理的预先生成
//
// 输入是 YAML 服务模型（服务名、方法、参数与返回类型），输出是
// 确定性的 Go 源码：每个方法一个调用句柄、位置化请求结构体、
// 客户端代理与服务端绑定器。生成结果不依赖运行时反射。
package codegen

import (
	"gopkg.in/yaml.v3"

	"github.com/dep2p/go-rd/pkg/lib/log"
)

var logger = log.Logger("core/codegen")

// ============================================================================
// 服务模型
// ============================================================================

// Model 一个模型文件的内容
type Model struct {
	// Package 生成代码的包名
	Package string `yaml:"package"`
	// Services 服务定义
	Services []Service `yaml:"services"`
}

// Service 一个远程服务
type Service struct {
	// Name 服务名，同时是协议树中的父节点名
	Name string `yaml:"name"`
	// Methods 方法定义
	Methods []Method `yaml:"methods"`
}

// Method 服务的一个方法
type Method struct {
	// Name 方法名，同时是调用实体的绑定名
	Name string `yaml:"name"`
	// Params 参数表（有序）
	Params []Param `yaml:"params"`
	// Result 返回类型；空串表示无返回值（Unit）
	Result string `yaml:"result"`
}

// Param 一个参数
type Param struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// ParseModel 解析 YAML 模型
func ParseModel(data []byte) (*Model, error) {
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
