package config

// RunConfig is the full hyperparameter manifest for a single training run.
// It is constructed once by Load (or Merge) and never mutated afterwards, so
// it can be shared by reference across goroutines.
type RunConfig struct {
	Model  ModelConfig  `yaml:"model" json:"model"`
	Train  TrainConfig  `yaml:"train" json:"train"`
	Method MethodConfig `yaml:"method" json:"method"`
}

// ModelConfig identifies the pretrained model and tokenizer artifacts and how
// much of the model is left trainable.
type ModelConfig struct {
	ModelPath     string `yaml:"model_path" json:"model_path"`
	TokenizerPath string `yaml:"tokenizer_path" json:"tokenizer_path"`
	ModelType     string `yaml:"model_type" json:"model_type"`
	Device        string `yaml:"device" json:"device"`

	// -1 leaves every layer trainable, 0 freezes the whole model, n > 0
	// freezes all but the top n layers.
	NumLayersUnfrozen int `yaml:"num_layers_unfrozen" json:"num_layers_unfrozen"`
}

// TrainConfig holds the optimizer schedule and run budget. Epochs and
// TotalSteps are independent caps, the run stops at whichever is hit first.
type TrainConfig struct {
	NCtx       int `yaml:"n_ctx" json:"n_ctx"`
	Epochs     int `yaml:"epochs" json:"epochs"`
	TotalSteps int `yaml:"total_steps" json:"total_steps"`
	BatchSize  int `yaml:"batch_size" json:"batch_size"`

	GradClip           float64 `yaml:"grad_clip" json:"grad_clip"`
	WeightDecay        float64 `yaml:"weight_decay" json:"weight_decay"`
	LearningRateInit   float64 `yaml:"learning_rate_init" json:"learning_rate_init"`
	LearningRateTarget float64 `yaml:"learning_rate_target" json:"learning_rate_target"`
	LrRampSteps        int     `yaml:"lr_ramp_steps" json:"lr_ramp_steps"`
	LrDecaySteps       int     `yaml:"lr_decay_steps" json:"lr_decay_steps"`

	LogInterval        int `yaml:"log_interval" json:"log_interval"`
	CheckpointInterval int `yaml:"checkpoint_interval" json:"checkpoint_interval"`
	EvalInterval       int `yaml:"eval_interval" json:"eval_interval"`

	InputSize int `yaml:"input_size" json:"input_size"`
	GenSize   int `yaml:"gen_size" json:"gen_size"`

	// Names resolved against the trainer's component registry at run
	// submission, not here.
	Pipeline     string `yaml:"pipeline" json:"pipeline"`
	Orchestrator string `yaml:"orchestrator" json:"orchestrator"`

	Accelerate           bool   `yaml:"accelerate" json:"accelerate"`
	AccelerateConfigPath string `yaml:"accelerate_config_path" json:"accelerate_config_path"`
}

// MethodConfig holds the PPO method parameters, including the soft prompt
// settings and the nested generation parameters.
type MethodConfig struct {
	Name string `yaml:"name" json:"name"`

	NSoftTokens         int  `yaml:"n_soft_tokens" json:"n_soft_tokens"`
	InitializeFromVocab bool `yaml:"initialize_from_vocab" json:"initialize_from_vocab"`

	NumRollouts int `yaml:"num_rollouts" json:"num_rollouts"`
	ChunkSize   int `yaml:"chunk_size" json:"chunk_size"`
	PpoEpochs   int `yaml:"ppo_epochs" json:"ppo_epochs"`
	Horizon     int `yaml:"horizon" json:"horizon"`

	InitKlCoef     float64 `yaml:"init_kl_coef" json:"init_kl_coef"`
	Target         float64 `yaml:"target" json:"target"`
	Gamma          float64 `yaml:"gamma" json:"gamma"`
	Lam            float64 `yaml:"lam" json:"lam"`
	Cliprange      float64 `yaml:"cliprange" json:"cliprange"`
	CliprangeValue float64 `yaml:"cliprange_value" json:"cliprange_value"`
	VfCoef         float64 `yaml:"vf_coef" json:"vf_coef"`

	GenKwargs GenerationConfig `yaml:"gen_kwargs" json:"gen_kwargs"`
}

// GenerationConfig bounds the sampling used when collecting rollouts.
type GenerationConfig struct {
	MaxLength int     `yaml:"max_length" json:"max_length"`
	MinLength int     `yaml:"min_length" json:"min_length"`
	TopK      float64 `yaml:"top_k" json:"top_k"`
	TopP      float64 `yaml:"top_p" json:"top_p"`
	DoSample  bool    `yaml:"do_sample" json:"do_sample"`
}
