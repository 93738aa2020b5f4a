package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load parses a yaml run config document and validates it. Unknown keys and
// missing keys are rejected with a KeyError, values of the wrong type with a
// ParseError, and cross-field constraint violations with a ValidationError.
// On any error no config is returned.
func Load(data []byte) (RunConfig, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return RunConfig{}, &ParseError{Err: err}
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return RunConfig{}, &ParseError{Err: errors.New("document is empty")}
	}

	var cfg RunConfig
	if err := decodeStrict(doc.Content[0], reflect.ValueOf(&cfg).Elem(), ""); err != nil {
		return RunConfig{}, err
	}

	if err := cfg.Validate(); err != nil {
		return RunConfig{}, err
	}

	cfg.warnScheduleBounds()

	return cfg, nil
}

// LoadFile reads a yaml run config from disk. See Load.
func LoadFile(path string) (RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunConfig{}, fmt.Errorf("error reading config file %v: %w", path, err)
	}
	return Load(data)
}

type fieldSpec struct {
	tag   string
	index int
}

func yamlFields(t reflect.Type) []fieldSpec {
	specs := make([]fieldSpec, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag, _, _ := strings.Cut(t.Field(i).Tag.Get("yaml"), ",")
		if tag == "" || tag == "-" {
			continue
		}
		specs = append(specs, fieldSpec{tag: tag, index: i})
	}
	return specs
}

// decodeStrict fills dst from the given mapping node field by field so that
// every error can name the full dotted path of the offending key. This is
// stricter than yaml's KnownFields mode since absent keys are errors too.
func decodeStrict(node *yaml.Node, dst reflect.Value, prefix string) error {
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	if node.Kind != yaml.MappingNode {
		return &ParseError{
			Field: strings.TrimSuffix(prefix, "."),
			Err:   errors.New("expected a mapping of fields"),
		}
	}

	fields := yamlFields(dst.Type())

	indexOf := make(map[string]int, len(fields))
	for _, f := range fields {
		indexOf[f.tag] = f.index
	}

	seen := make(map[string]bool, len(fields))
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i].Value, node.Content[i+1]

		idx, ok := indexOf[key]
		if !ok {
			return &KeyError{Field: prefix + key, Unknown: true}
		}
		seen[key] = true

		field := dst.Field(idx)
		if field.Kind() == reflect.Struct {
			if err := decodeStrict(value, field, prefix+key+"."); err != nil {
				return err
			}
			continue
		}

		scalar := value
		if scalar.Kind == yaml.AliasNode {
			scalar = scalar.Alias
		}
		// yaml coerces float scalars into int fields by truncating, reject
		// the value instead.
		if field.Kind() == reflect.Int && scalar.Tag == "!!float" {
			return &ParseError{
				Field: prefix + key,
				Err:   fmt.Errorf("cannot use float value %v for integer field", scalar.Value),
			}
		}

		if err := value.Decode(field.Addr().Interface()); err != nil {
			return &ParseError{Field: prefix + key, Err: err}
		}
	}

	for _, f := range fields {
		if !seen[f.tag] {
			return &KeyError{Field: prefix + f.tag}
		}
	}

	return nil
}
