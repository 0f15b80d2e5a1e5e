package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-rd/pkg/interfaces"
	"github.com/dep2p/go-rd/pkg/lifetime"
)

// TestModule_ProvidesScheduler 验证 Fx 模块装配
func TestModule_ProvidesScheduler(t *testing.T) {
	d := lifetime.NewDefinition(lifetime.Eternal())
	defer func() { _ = d.Terminate() }()

	var s interfaces.Scheduler
	app := fxtest.New(t,
		fx.Supply(d.Lifetime()),
		Module(),
		fx.Populate(&s),
		fx.NopLogger,
	)
	app.RequireStart()
	defer app.RequireStop()

	require.NotNil(t, s)

	done := make(chan struct{})
	s.Queue(func() { close(done) })
	<-done
	assert.False(t, s.IsActive())

	t.Log("✅ Fx 模块提供可用的调度器")
}
