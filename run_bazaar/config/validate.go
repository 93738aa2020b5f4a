package config

import (
	"fmt"
	"log/slog"
)

// Validate checks every cross-field constraint and returns a ValidationError
// naming the first violated field. It is run by Load and Merge, callers that
// construct a RunConfig directly should run it themselves.
func (c *RunConfig) Validate() error {
	if err := c.Model.validate(); err != nil {
		return err
	}
	if err := c.Train.validate(); err != nil {
		return err
	}
	return c.Method.validate()
}

func (c *ModelConfig) validate() error {
	if c.NumLayersUnfrozen < -1 {
		return &ValidationError{
			Field:      "model.num_layers_unfrozen",
			Constraint: "must be -1 (all layers trainable) or a non-negative layer count",
		}
	}
	return nil
}

func (c *TrainConfig) validate() error {
	positive := []struct {
		field string
		value int
	}{
		{"train.n_ctx", c.NCtx},
		{"train.epochs", c.Epochs},
		{"train.total_steps", c.TotalSteps},
		{"train.batch_size", c.BatchSize},
		{"train.lr_ramp_steps", c.LrRampSteps},
		{"train.lr_decay_steps", c.LrDecaySteps},
		{"train.log_interval", c.LogInterval},
		{"train.checkpoint_interval", c.CheckpointInterval},
		{"train.eval_interval", c.EvalInterval},
		{"train.input_size", c.InputSize},
		{"train.gen_size", c.GenSize},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return &ValidationError{Field: p.field, Constraint: "must be > 0"}
		}
	}

	if c.Pipeline == "" {
		return &ValidationError{Field: "train.pipeline", Constraint: "must be a non-empty component name"}
	}
	if c.Orchestrator == "" {
		return &ValidationError{Field: "train.orchestrator", Constraint: "must be a non-empty component name"}
	}

	return nil
}

func (c *MethodConfig) validate() error {
	if c.Name == "" {
		return &ValidationError{Field: "method.name", Constraint: "must be a non-empty method name"}
	}

	if c.NSoftTokens < 0 {
		return &ValidationError{Field: "method.n_soft_tokens", Constraint: "must be >= 0"}
	}

	positive := []struct {
		field string
		value int
	}{
		{"method.num_rollouts", c.NumRollouts},
		{"method.chunk_size", c.ChunkSize},
		{"method.ppo_epochs", c.PpoEpochs},
		{"method.horizon", c.Horizon},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return &ValidationError{Field: p.field, Constraint: "must be > 0"}
		}
	}

	if c.ChunkSize > c.NumRollouts {
		return &ValidationError{
			Field:      "method.chunk_size",
			Constraint: fmt.Sprintf("chunk_size must be <= num_rollouts (%d)", c.NumRollouts),
		}
	}

	if c.Gamma < 0 || c.Gamma > 1 {
		return &ValidationError{Field: "method.gamma", Constraint: "must be in [0, 1]"}
	}
	if c.Lam < 0 || c.Lam > 1 {
		return &ValidationError{Field: "method.lam", Constraint: "must be in [0, 1]"}
	}
	if c.Cliprange <= 0 || c.Cliprange > 1 {
		return &ValidationError{Field: "method.cliprange", Constraint: "must be in (0, 1]"}
	}
	if c.CliprangeValue <= 0 || c.CliprangeValue > 1 {
		return &ValidationError{Field: "method.cliprange_value", Constraint: "must be in (0, 1]"}
	}

	return c.GenKwargs.validate()
}

func (c *GenerationConfig) validate() error {
	if c.MaxLength <= 0 {
		return &ValidationError{Field: "method.gen_kwargs.max_length", Constraint: "must be > 0"}
	}
	if c.MinLength <= 0 {
		return &ValidationError{Field: "method.gen_kwargs.min_length", Constraint: "must be > 0"}
	}
	if c.MinLength > c.MaxLength {
		return &ValidationError{
			Field:      "method.gen_kwargs.min_length",
			Constraint: fmt.Sprintf("min_length must be <= max_length (%d)", c.MaxLength),
		}
	}
	if c.TopK < 0 {
		return &ValidationError{Field: "method.gen_kwargs.top_k", Constraint: "must be >= 0"}
	}
	if c.TopP <= 0 || c.TopP > 1 {
		return &ValidationError{Field: "method.gen_kwargs.top_p", Constraint: "must be in (0, 1]"}
	}
	return nil
}

// The lr schedule is allowed to extend past the step budget, the trainer just
// truncates it. Worth flagging since it usually indicates a config typo.
func (c *RunConfig) warnScheduleBounds() {
	if c.Train.LrRampSteps > c.Train.TotalSteps || c.Train.LrDecaySteps > c.Train.TotalSteps {
		slog.Warn(
			"learning rate schedule extends past the total step budget",
			"lr_ramp_steps", c.Train.LrRampSteps,
			"lr_decay_steps", c.Train.LrDecaySteps,
			"total_steps", c.Train.TotalSteps,
		)
	}
}
