package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const exampleConfigPath = "../../configs/ppo_softprompt.yml"

func exampleDoc(t *testing.T) map[string]interface{} {
	data, err := os.ReadFile(exampleConfigPath)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &doc))

	return doc
}

func loadDoc(t *testing.T, doc map[string]interface{}) (RunConfig, error) {
	data, err := yaml.Marshal(doc)
	require.NoError(t, err)

	return Load(data)
}

func TestLoadExampleDocument(t *testing.T) {
	cfg, err := LoadFile(exampleConfigPath)
	require.NoError(t, err)

	assert.Equal(t, "lvwerra/gpt2-imdb", cfg.Model.ModelPath)
	assert.Equal(t, "AcceleratePPOSoftpromptModel", cfg.Model.ModelType)
	assert.Equal(t, -1, cfg.Model.NumLayersUnfrozen)

	assert.Equal(t, 128, cfg.Train.BatchSize)
	assert.Equal(t, 80000, cfg.Train.TotalSteps)
	assert.Equal(t, 1.412e-4, cfg.Train.LearningRateInit)
	assert.Equal(t, "PPOPipeline", cfg.Train.Pipeline)
	assert.Equal(t, "PPOSoftpromptOrchestrator", cfg.Train.Orchestrator)
	assert.True(t, cfg.Train.Accelerate)

	assert.Equal(t, "ppoconfig", cfg.Method.Name)
	assert.Equal(t, 1, cfg.Method.NSoftTokens)
	assert.Equal(t, 0.95, cfg.Method.Lam)
	assert.Equal(t, 48, cfg.Method.GenKwargs.MaxLength)
	assert.Equal(t, 1.0, cfg.Method.GenKwargs.TopP)
	assert.True(t, cfg.Method.GenKwargs.DoSample)
}

func TestLoadRejectsMissingKeys(t *testing.T) {
	doc := exampleDoc(t)

	checkMissing := func(field string) {
		_, err := loadDoc(t, doc)
		var keyErr *KeyError
		require.ErrorAs(t, err, &keyErr, "expected missing key error for %v", field)
		assert.Equal(t, field, keyErr.Field)
		assert.False(t, keyErr.Unknown)
	}

	for section, sectionAny := range doc {
		fields := sectionAny.(map[string]interface{})

		for key, value := range fields {
			if nested, ok := value.(map[string]interface{}); ok {
				for nestedKey, nestedValue := range nested {
					delete(nested, nestedKey)
					checkMissing(section + "." + key + "." + nestedKey)
					nested[nestedKey] = nestedValue
				}
			}

			delete(fields, key)
			checkMissing(section + "." + key)
			fields[key] = value
		}

		delete(doc, section)
		checkMissing(section)
		doc[section] = sectionAny
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Run("top level", func(t *testing.T) {
		doc := exampleDoc(t)
		doc["optimizer"] = map[string]interface{}{"name": "adamw"}

		_, err := loadDoc(t, doc)
		var keyErr *KeyError
		require.ErrorAs(t, err, &keyErr)
		assert.Equal(t, "optimizer", keyErr.Field)
		assert.True(t, keyErr.Unknown)
	})

	t.Run("section", func(t *testing.T) {
		doc := exampleDoc(t)
		doc["train"].(map[string]interface{})["learning_rate"] = 0.1

		_, err := loadDoc(t, doc)
		var keyErr *KeyError
		require.ErrorAs(t, err, &keyErr)
		assert.Equal(t, "train.learning_rate", keyErr.Field)
		assert.True(t, keyErr.Unknown)
	})

	t.Run("nested section", func(t *testing.T) {
		doc := exampleDoc(t)
		genKwargs := doc["method"].(map[string]interface{})["gen_kwargs"].(map[string]interface{})
		genKwargs["temperature"] = 0.7

		_, err := loadDoc(t, doc)
		var keyErr *KeyError
		require.ErrorAs(t, err, &keyErr)
		assert.Equal(t, "method.gen_kwargs.temperature", keyErr.Field)
		assert.True(t, keyErr.Unknown)
	})
}

func TestLoadRejectsTypeMismatch(t *testing.T) {
	t.Run("string for int", func(t *testing.T) {
		doc := exampleDoc(t)
		doc["train"].(map[string]interface{})["batch_size"] = "lots"

		_, err := loadDoc(t, doc)
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, "train.batch_size", parseErr.Field)
	})

	t.Run("float for int", func(t *testing.T) {
		doc := exampleDoc(t)
		doc["model"].(map[string]interface{})["num_layers_unfrozen"] = 1.5

		_, err := loadDoc(t, doc)
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, "model.num_layers_unfrozen", parseErr.Field)
	})

	t.Run("float for nested int", func(t *testing.T) {
		doc := exampleDoc(t)
		genKwargs := doc["method"].(map[string]interface{})["gen_kwargs"].(map[string]interface{})
		genKwargs["max_length"] = 47.5

		_, err := loadDoc(t, doc)
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, "method.gen_kwargs.max_length", parseErr.Field)
	})

	t.Run("scalar for section", func(t *testing.T) {
		doc := exampleDoc(t)
		doc["method"].(map[string]interface{})["gen_kwargs"] = 5

		_, err := loadDoc(t, doc)
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, "method.gen_kwargs", parseErr.Field)
	})
}

func TestLoadRejectsMalformedDocuments(t *testing.T) {
	for _, doc := range []string{"", "{{nope", "- 1\n- 2\n", "just a string"} {
		_, err := Load([]byte(doc))
		var parseErr *ParseError
		assert.ErrorAs(t, err, &parseErr, "document: %q", doc)
	}
}

func TestLoadRejectsInvalidConstraints(t *testing.T) {
	t.Run("min_length above max_length", func(t *testing.T) {
		doc := exampleDoc(t)
		genKwargs := doc["method"].(map[string]interface{})["gen_kwargs"].(map[string]interface{})
		genKwargs["min_length"] = 100

		_, err := loadDoc(t, doc)
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "method.gen_kwargs.min_length", validationErr.Field)
	})

	t.Run("chunk_size above num_rollouts", func(t *testing.T) {
		doc := exampleDoc(t)
		doc["method"].(map[string]interface{})["chunk_size"] = 256

		_, err := loadDoc(t, doc)
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "method.chunk_size", validationErr.Field)
	})
}
