package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeEmptyOverrides(t *testing.T) {
	base := validConfig(t)

	merged, err := Merge(base, nil)
	require.NoError(t, err)
	assert.Equal(t, base, merged)

	merged, err = Merge(base, map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, base, merged)
}

func TestMergeAppliesOverrides(t *testing.T) {
	base := validConfig(t)

	merged, err := Merge(base, map[string]interface{}{
		"model.device":            "cpu",
		"train.batch_size":        256,
		"train.accelerate":        false,
		"method.gen_kwargs.top_p": 0.9,
		"method.gamma":            0.99,
		"method.num_rollouts":     512,
	})
	require.NoError(t, err)

	assert.Equal(t, "cpu", merged.Model.Device)
	assert.Equal(t, 256, merged.Train.BatchSize)
	assert.False(t, merged.Train.Accelerate)
	assert.Equal(t, 0.9, merged.Method.GenKwargs.TopP)
	assert.Equal(t, 0.99, merged.Method.Gamma)
	assert.Equal(t, 512, merged.Method.NumRollouts)

	// Base must be untouched.
	assert.Equal(t, "cuda", base.Model.Device)
	assert.Equal(t, 128, base.Train.BatchSize)
}

func TestMergeCoercesStringValues(t *testing.T) {
	base := validConfig(t)

	merged, err := Merge(base, map[string]interface{}{
		"train.batch_size": "256",
		"method.gamma":     "0.99",
		"train.accelerate": "false",
	})
	require.NoError(t, err)

	assert.Equal(t, 256, merged.Train.BatchSize)
	assert.Equal(t, 0.99, merged.Method.Gamma)
	assert.False(t, merged.Train.Accelerate)
}

func TestMergeCoercesJsonNumbers(t *testing.T) {
	base := validConfig(t)

	merged, err := Merge(base, map[string]interface{}{"train.batch_size": float64(256)})
	require.NoError(t, err)
	assert.Equal(t, 256, merged.Train.BatchSize)

	_, err = Merge(base, map[string]interface{}{"train.batch_size": 256.5})
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "train.batch_size", parseErr.Field)
}

func TestMergeRejectsUnknownPaths(t *testing.T) {
	base := validConfig(t)

	for _, path := range []string{"train.bogus", "bogus", "train.batch_size.nested", "method.gen_kwargs.temperature"} {
		_, err := Merge(base, map[string]interface{}{path: 1})
		var keyErr *KeyError
		require.ErrorAs(t, err, &keyErr, "path: %v", path)
		assert.Equal(t, path, keyErr.Field)
		assert.True(t, keyErr.Unknown)
	}
}

func TestMergeRejectsSectionOverride(t *testing.T) {
	base := validConfig(t)

	_, err := Merge(base, map[string]interface{}{
		"method.gen_kwargs": map[string]interface{}{"max_length": 64},
	})
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "method.gen_kwargs", parseErr.Field)
}

func TestMergeIsAtomicOnValidationFailure(t *testing.T) {
	base := validConfig(t)

	merged, err := Merge(base, map[string]interface{}{
		"method.gen_kwargs.min_length": 100,
	})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "method.gen_kwargs.min_length", validationErr.Field)
	assert.Equal(t, RunConfig{}, merged)

	// A failed merge leaves the base untouched even when other overrides in
	// the same set were applicable.
	merged, err = Merge(base, map[string]interface{}{
		"method.chunk_size":   512,
		"method.num_rollouts": 256,
	})
	require.Error(t, err)
	assert.Equal(t, RunConfig{}, merged)
	assert.Equal(t, 128, base.Method.ChunkSize)
}
