package rd

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-rd/internal/core/transport"
	"github.com/dep2p/go-rd/pkg/types"
)

// ============================================================================
// 配置
// ============================================================================

// DefaultSyncTimeout 同步调用的默认等待上限
const DefaultSyncTimeout = 30 * time.Second

// Config 端点配置
//
// 零值不可直接使用，请从 DefaultConfig 出发，用 Option 覆盖。
type Config struct {
	// ChunkSize 出站缓冲单块容量（字节）
	ChunkSize int

	// MaxChunks 出站缓冲块数上限，写满后 Put 阻塞（背压）
	MaxChunks int

	// ShrinkInterval 出站缓冲空闲回缩的检查间隔
	ShrinkInterval time.Duration

	// SyncTimeout 同步调用的默认等待上限
	SyncTimeout time.Duration

	// BacklogSize 无人认领消息积压的容量（按 RdID 计）
	BacklogSize int

	// OutOfSyncPolicy 失同步处理策略
	OutOfSyncPolicy types.OutOfSyncPolicy

	// Clock 时钟源，测试注入 mock
	Clock clock.Clock
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		ChunkSize:       transport.DefaultChunkSize,
		MaxChunks:       transport.DefaultMaxChunks,
		ShrinkInterval:  transport.DefaultShrinkInterval,
		SyncTimeout:     DefaultSyncTimeout,
		BacklogSize:     0, // 0 表示使用 wire.DefaultBacklogSize
		OutOfSyncPolicy: types.PolicyTolerate,
		Clock:           clock.New(),
	}
}

// Validate 校验配置
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size %d", ErrInvalidConfig, c.ChunkSize)
	}
	if c.MaxChunks < 2 {
		return fmt.Errorf("%w: max chunks %d (need >= 2)", ErrInvalidConfig, c.MaxChunks)
	}
	if c.SyncTimeout <= 0 {
		return fmt.Errorf("%w: sync timeout %v", ErrInvalidConfig, c.SyncTimeout)
	}
	if c.Clock == nil {
		return fmt.Errorf("%w: nil clock", ErrInvalidConfig)
	}
	return nil
}

// transportOptions 折算为传输层选项
func (c Config) transportOptions() []transport.Option {
	return []transport.Option{
		transport.WithChunkSize(c.ChunkSize),
		transport.WithMaxChunks(c.MaxChunks),
		transport.WithShrinkInterval(c.ShrinkInterval),
		transport.WithClock(c.Clock),
	}
}

// ============================================================================
// 配置选项
// ============================================================================

// Option 配置覆盖函数
type Option func(*Config)

// WithChunkSize 设置出站缓冲单块容量
func WithChunkSize(size int) Option {
	return func(c *Config) { c.ChunkSize = size }
}

// WithMaxChunks 设置出站缓冲块数上限
func WithMaxChunks(n int) Option {
	return func(c *Config) { c.MaxChunks = n }
}

// WithShrinkInterval 设置出站缓冲回缩间隔
func WithShrinkInterval(d time.Duration) Option {
	return func(c *Config) { c.ShrinkInterval = d }
}

// WithSyncTimeout 设置同步调用默认等待上限
func WithSyncTimeout(d time.Duration) Option {
	return func(c *Config) { c.SyncTimeout = d }
}

// WithBacklogSize 设置积压容量
func WithBacklogSize(n int) Option {
	return func(c *Config) { c.BacklogSize = n }
}

// WithOutOfSyncPolicy 设置失同步处理策略
func WithOutOfSyncPolicy(p types.OutOfSyncPolicy) Option {
	return func(c *Config) { c.OutOfSyncPolicy = p }
}

// WithClock 注入时钟（测试用）
func WithClock(clk clock.Clock) Option {
	return func(c *Config) { c.Clock = clk }
}
