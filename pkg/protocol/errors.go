package protocol

import "errors"

var (
	// ErrDuplicateSerializer 类型或名字重复注册
	ErrDuplicateSerializer = errors.New("protocol: duplicate serializer")

	// ErrUnknownType 多态读写遇到未注册的类型
	ErrUnknownType = errors.New("protocol: unknown polymorphic type")

	// ErrAlreadyBound 实体重复绑定
	ErrAlreadyBound = errors.New("protocol: entity already bound")

	// ErrNotBound 操作要求实体处于已绑定状态
	ErrNotBound = errors.New("protocol: entity not bound")

	// ErrDuplicateBind 同一 id 在协议树内被第二个实体占用
	ErrDuplicateBind = errors.New("protocol: duplicate rdid in protocol tree")

	// ErrDuplicateContext 同一键的上下文重复注册
	ErrDuplicateContext = errors.New("protocol: duplicate context key")

	// ErrInternIndex 驻留索引在接收表中无对应值
	ErrInternIndex = errors.New("protocol: unknown intern index")
)
