package transport

import (
	"time"

	"github.com/benbjohnson/clock"
)

// ============================================================================
// 选项
// ============================================================================

// 默认参数
const (
	// DefaultChunkSize 默认块大小
	DefaultChunkSize = 16384
	// DefaultMaxChunks 默认块数上限
	DefaultMaxChunks = 8
	// DefaultShrinkInterval 默认收缩判定间隔
	DefaultShrinkInterval = 30 * time.Second
)

type options struct {
	chunkSize      int
	maxChunks      int
	shrinkInterval time.Duration
	clk            clock.Clock
}

func defaultOptions() options {
	return options{
		chunkSize:      DefaultChunkSize,
		maxChunks:      DefaultMaxChunks,
		shrinkInterval: DefaultShrinkInterval,
		clk:            clock.New(),
	}
}

// Option 处理器配置选项
type Option func(*options)

// WithChunkSize 设置块大小
func WithChunkSize(size int) Option {
	return func(o *options) { o.chunkSize = size }
}

// WithMaxChunks 设置块数上限（含初始块，最小为 2）
func WithMaxChunks(n int) Option {
	return func(o *options) { o.maxChunks = n }
}

// WithShrinkInterval 设置收缩判定间隔
func WithShrinkInterval(d time.Duration) Option {
	return func(o *options) { o.shrinkInterval = d }
}

// WithClock 注入时钟（测试使用 mock 时钟）
func WithClock(clk clock.Clock) Option {
	return func(o *options) { o.clk = clk }
}
