package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) RunConfig {
	cfg, err := LoadFile(exampleConfigPath)
	require.NoError(t, err)
	return cfg
}

func TestValidateConstraints(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RunConfig)
		field  string
	}{
		{
			name:   "num_layers_unfrozen below -1",
			mutate: func(c *RunConfig) { c.Model.NumLayersUnfrozen = -2 },
			field:  "model.num_layers_unfrozen",
		},
		{
			name:   "zero batch_size",
			mutate: func(c *RunConfig) { c.Train.BatchSize = 0 },
			field:  "train.batch_size",
		},
		{
			name:   "negative eval_interval",
			mutate: func(c *RunConfig) { c.Train.EvalInterval = -3 },
			field:  "train.eval_interval",
		},
		{
			name:   "empty pipeline",
			mutate: func(c *RunConfig) { c.Train.Pipeline = "" },
			field:  "train.pipeline",
		},
		{
			name:   "empty orchestrator",
			mutate: func(c *RunConfig) { c.Train.Orchestrator = "" },
			field:  "train.orchestrator",
		},
		{
			name:   "empty method name",
			mutate: func(c *RunConfig) { c.Method.Name = "" },
			field:  "method.name",
		},
		{
			name:   "negative n_soft_tokens",
			mutate: func(c *RunConfig) { c.Method.NSoftTokens = -1 },
			field:  "method.n_soft_tokens",
		},
		{
			name:   "zero ppo_epochs",
			mutate: func(c *RunConfig) { c.Method.PpoEpochs = 0 },
			field:  "method.ppo_epochs",
		},
		{
			name:   "chunk_size above num_rollouts",
			mutate: func(c *RunConfig) { c.Method.ChunkSize = c.Method.NumRollouts + 1 },
			field:  "method.chunk_size",
		},
		{
			name:   "gamma above 1",
			mutate: func(c *RunConfig) { c.Method.Gamma = 1.5 },
			field:  "method.gamma",
		},
		{
			name:   "negative gamma",
			mutate: func(c *RunConfig) { c.Method.Gamma = -0.1 },
			field:  "method.gamma",
		},
		{
			name:   "lam above 1",
			mutate: func(c *RunConfig) { c.Method.Lam = 2 },
			field:  "method.lam",
		},
		{
			name:   "zero cliprange",
			mutate: func(c *RunConfig) { c.Method.Cliprange = 0 },
			field:  "method.cliprange",
		},
		{
			name:   "cliprange above 1",
			mutate: func(c *RunConfig) { c.Method.Cliprange = 1.2 },
			field:  "method.cliprange",
		},
		{
			name:   "zero cliprange_value",
			mutate: func(c *RunConfig) { c.Method.CliprangeValue = 0 },
			field:  "method.cliprange_value",
		},
		{
			name:   "zero max_length",
			mutate: func(c *RunConfig) { c.Method.GenKwargs.MaxLength = 0 },
			field:  "method.gen_kwargs.max_length",
		},
		{
			name:   "min_length above max_length",
			mutate: func(c *RunConfig) { c.Method.GenKwargs.MinLength = c.Method.GenKwargs.MaxLength + 1 },
			field:  "method.gen_kwargs.min_length",
		},
		{
			name:   "negative top_k",
			mutate: func(c *RunConfig) { c.Method.GenKwargs.TopK = -1 },
			field:  "method.gen_kwargs.top_k",
		},
		{
			name:   "zero top_p",
			mutate: func(c *RunConfig) { c.Method.GenKwargs.TopP = 0 },
			field:  "method.gen_kwargs.top_p",
		},
		{
			name:   "top_p above 1",
			mutate: func(c *RunConfig) { c.Method.GenKwargs.TopP = 1.1 },
			field:  "method.gen_kwargs.top_p",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := validConfig(t)
			test.mutate(&cfg)

			err := cfg.Validate()
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, test.field, validationErr.Field)
			assert.NotEmpty(t, validationErr.Constraint)
		})
	}
}

func TestValidateBoundaryValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RunConfig)
	}{
		{"all layers frozen", func(c *RunConfig) { c.Model.NumLayersUnfrozen = 0 }},
		{"gamma zero", func(c *RunConfig) { c.Method.Gamma = 0 }},
		{"gamma one", func(c *RunConfig) { c.Method.Gamma = 1 }},
		{"cliprange one", func(c *RunConfig) { c.Method.Cliprange = 1 }},
		{"chunk_size equals num_rollouts", func(c *RunConfig) { c.Method.ChunkSize = c.Method.NumRollouts }},
		{"min_length equals max_length", func(c *RunConfig) { c.Method.GenKwargs.MinLength = c.Method.GenKwargs.MaxLength }},
		{"zero n_soft_tokens", func(c *RunConfig) { c.Method.NSoftTokens = 0 }},
		{"top_p one", func(c *RunConfig) { c.Method.GenKwargs.TopP = 1 }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := validConfig(t)
			test.mutate(&cfg)
			assert.NoError(t, cfg.Validate())
		})
	}
}
