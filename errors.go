package rd

import "errors"

var (
	// ErrInvalidConfig 配置非法
	ErrInvalidConfig = errors.New("rd: invalid config")
)
