package registry

import (
	"testing"

	"rlhf_platform/run_bazaar/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	assert.NoError(t, Resolve(Pipeline, "PPOPipeline"))
	assert.NoError(t, Resolve(Orchestrator, "PPOSoftpromptOrchestrator"))
	assert.NoError(t, Resolve(Method, "ppoconfig"))

	err := Resolve(Pipeline, "PPOPipelin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown pipeline 'PPOPipelin'")
	assert.Contains(t, err.Error(), "PPOPipeline")
}

func TestValidate(t *testing.T) {
	cfg, err := config.LoadFile("../../configs/ppo_softprompt.yml")
	require.NoError(t, err)

	assert.NoError(t, Validate(cfg))

	bad := cfg
	bad.Train.Orchestrator = "GRPOOrchestrator"
	assert.Error(t, Validate(bad))

	bad = cfg
	bad.Model.ModelType = "AccelerateDPOModel"
	assert.Error(t, Validate(bad))
}
