package test_utils

import (
	"context"
	"testing"

	"ballot-node/lib/utils"
	a "ballot-node/modules/aggregate"

	"github.com/chebyrash/promise"
	"github.com/stretchr/testify/assert"
)

// RunPlugin drives a plugin through Init and Start for a test, registering
// Stop as cleanup. Pass blockUntilComplete when the test must wait for the
// Start promise.
func RunPlugin(t *testing.T, plugin a.Plugin, blockUntilComplete ...bool) {
	err := plugin.Init()
	assert.NoError(t, err)

	p := plugin.Start()
	if len(blockUntilComplete) > 0 && blockUntilComplete[0] {
		_, err = p.Await(context.Background())
		assert.NoError(t, err)
	}

	t.Cleanup(func() {
		assert.NoError(t, plugin.Stop())
	})
}

// NopPlugin satisfies the plugin lifecycle with no-ops; mocks embed it.
type NopPlugin struct{}

func (NopPlugin) Init() error { return nil }

func (NopPlugin) Start() *promise.Promise[any] { return utils.PromiseResolve[any](nil) }

func (NopPlugin) Stop() error { return nil }
