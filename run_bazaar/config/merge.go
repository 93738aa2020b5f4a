package config

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Merge applies sparse dotted-path overrides (e.g. "train.batch_size") to a
// copy of base and re-validates the result. The merge is atomic, on any error
// no config is returned and base is untouched. Merge(base, nil) returns base
// unchanged.
func Merge(base RunConfig, overrides map[string]interface{}) (RunConfig, error) {
	merged := base

	// Applied in sorted order so that a config with multiple bad overrides
	// always reports the same error.
	paths := make([]string, 0, len(overrides))
	for path := range overrides {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := setField(&merged, path, overrides[path]); err != nil {
			return RunConfig{}, err
		}
	}

	if err := merged.Validate(); err != nil {
		return RunConfig{}, err
	}

	merged.warnScheduleBounds()

	return merged, nil
}

func setField(cfg *RunConfig, path string, value interface{}) error {
	dst := reflect.ValueOf(cfg).Elem()

	for _, part := range strings.Split(path, ".") {
		if dst.Kind() != reflect.Struct {
			return &KeyError{Field: path, Unknown: true}
		}

		next := reflect.Value{}
		for _, f := range yamlFields(dst.Type()) {
			if f.tag == part {
				next = dst.Field(f.index)
				break
			}
		}
		if !next.IsValid() {
			return &KeyError{Field: path, Unknown: true}
		}
		dst = next
	}

	if dst.Kind() == reflect.Struct {
		return &ParseError{Field: path, Err: fmt.Errorf("cannot override an entire section")}
	}

	return assign(dst, path, value)
}

// assign coerces an override value onto a scalar field. String values are
// parsed into the field's type so that overrides can come straight from CLI
// flags, and json-decoded numbers (always float64) land in int fields.
func assign(dst reflect.Value, path string, value interface{}) error {
	switch dst.Kind() {
	case reflect.String:
		s, ok := value.(string)
		if !ok {
			return typeMismatch(path, "string", value)
		}
		dst.SetString(s)

	case reflect.Bool:
		switch v := value.(type) {
		case bool:
			dst.SetBool(v)
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return typeMismatch(path, "bool", value)
			}
			dst.SetBool(b)
		default:
			return typeMismatch(path, "bool", value)
		}

	case reflect.Int:
		switch v := value.(type) {
		case int:
			dst.SetInt(int64(v))
		case int64:
			dst.SetInt(v)
		case float64:
			if v != math.Trunc(v) {
				return typeMismatch(path, "int", value)
			}
			dst.SetInt(int64(v))
		case string:
			n, err := strconv.Atoi(v)
			if err != nil {
				return typeMismatch(path, "int", value)
			}
			dst.SetInt(int64(n))
		default:
			return typeMismatch(path, "int", value)
		}

	case reflect.Float64:
		switch v := value.(type) {
		case float64:
			dst.SetFloat(v)
		case int:
			dst.SetFloat(float64(v))
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return typeMismatch(path, "float", value)
			}
			dst.SetFloat(f)
		default:
			return typeMismatch(path, "float", value)
		}

	default:
		return &ParseError{Field: path, Err: fmt.Errorf("unsupported field type %v", dst.Kind())}
	}

	return nil
}

func typeMismatch(path, expected string, value interface{}) error {
	return &ParseError{Field: path, Err: fmt.Errorf("cannot use value '%v' as %v", value, expected)}
}
