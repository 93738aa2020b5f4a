package registry

import (
	"fmt"
	"sort"
	"strings"

	"rlhf_platform/run_bazaar/config"
)

// The component names the trainer images ship. The config loader treats these
// fields as opaque strings, resolution happens here at run submission so that
// a typo is caught before a job is dispatched.

type Kind string

const (
	ModelType    Kind = "model_type"
	Pipeline     Kind = "pipeline"
	Orchestrator Kind = "orchestrator"
	Method       Kind = "method"
)

var components = map[Kind]map[string]bool{
	ModelType: {
		"AcceleratePPOModel":           true,
		"AcceleratePPOSoftpromptModel": true,
		"AccelerateILQLModel":          true,
	},
	Pipeline: {
		"PPOPipeline":     true,
		"OfflinePipeline": true,
	},
	Orchestrator: {
		"PPOOrchestrator":           true,
		"PPOSoftpromptOrchestrator": true,
		"OfflineOrchestrator":       true,
	},
	Method: {
		"ppoconfig":  true,
		"ilqlconfig": true,
	},
}

func List(kind Kind) []string {
	names := make([]string, 0, len(components[kind]))
	for name := range components[kind] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Resolve(kind Kind, name string) error {
	if !components[kind][name] {
		return fmt.Errorf("unknown %v '%v', available: %v", kind, name, strings.Join(List(kind), ", "))
	}
	return nil
}

// Validate resolves every registry-bound name in the config.
func Validate(cfg config.RunConfig) error {
	checks := []struct {
		kind Kind
		name string
	}{
		{ModelType, cfg.Model.ModelType},
		{Pipeline, cfg.Train.Pipeline},
		{Orchestrator, cfg.Train.Orchestrator},
		{Method, cfg.Method.Name},
	}
	for _, check := range checks {
		if err := Resolve(check.kind, check.name); err != nil {
			return err
		}
	}
	return nil
}
