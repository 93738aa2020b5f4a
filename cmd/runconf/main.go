package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"rlhf_platform/run_bazaar/config"
	"rlhf_platform/run_bazaar/registry"
)

// runconf loads a run config, applies overrides, and prints the canonical
// json form the trainer consumes. Exits non-zero if the config is invalid,
// which makes it usable as a pre-submission check in scripts.

type overrideFlags map[string]interface{}

func (o overrideFlags) String() string {
	parts := make([]string, 0, len(o))
	for k, v := range o {
		parts = append(parts, fmt.Sprintf("%v=%v", k, v))
	}
	return strings.Join(parts, ",")
}

func (o overrideFlags) Set(value string) error {
	path, val, found := strings.Cut(value, "=")
	if !found {
		return fmt.Errorf("override must have the form path=value, got '%v'", value)
	}
	o[path] = val
	return nil
}

func main() {
	configPath := flag.String("config", "", "Path to the yaml run config to check.")
	checkComponents := flag.Bool("components", false, "Also check that named components are registered.")

	overrides := overrideFlags{}
	flag.Var(overrides, "set", "Override a config field, e.g. -set train.batch_size=256. May be repeated.")

	flag.Parse()

	if *configPath == "" {
		log.Fatal("Missing --config arg")
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		log.Fatalf("invalid config %v: %v", *configPath, err)
	}

	if len(overrides) > 0 {
		cfg, err = config.Merge(cfg, overrides)
		if err != nil {
			log.Fatalf("invalid overrides: %v", err)
		}
	}

	if *checkComponents {
		if err := registry.Validate(cfg); err != nil {
			log.Fatalf("invalid config %v: %v", *configPath, err)
		}
	}

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "    ")
	if err := out.Encode(cfg); err != nil {
		log.Fatalf("error encoding config: %v", err)
	}
}
