package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vk/refinery/record"
	"github.com/vk/refinery/refinery"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// Encode writes v to w. Ordered maps keep their key order in every format.
// cty values anywhere in v are converted to plain Go values first.
func Encode(w io.Writer, v any, format Format) error {
	v, err := normalize(v)
	if err != nil {
		return err
	}

	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil

	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()

	case Msgpack:
		if err := msgpack.NewEncoder(w).Encode(v); err != nil {
			return fmt.Errorf("encoding msgpack: %w", err)
		}
		return nil
	}
	return fmt.Errorf("%w: '%s'", ErrUnknownFormat, format)
}

// normalize rebuilds v with every cty.Value replaced by its native form.
func normalize(v any) (any, error) {
	switch t := v.(type) {
	case cty.Value:
		return record.Native(t)
	case record.Cty:
		return record.Native(t.Value())
	case *refinery.Map:
		if t == nil {
			return nil, nil
		}
		out := refinery.NewMap()
		var err error
		t.Range(func(key string, value any) bool {
			var nv any
			nv, err = normalize(value)
			if err != nil {
				err = fmt.Errorf("in key '%s': %w", key, err)
				return false
			}
			out.Set(key, nv)
			return true
		})
		return out, err
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, value := range t {
			nv, err := normalize(value)
			if err != nil {
				return nil, fmt.Errorf("in key '%s': %w", k, err)
			}
			out[k] = nv
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, value := range t {
			nv, err := normalize(value)
			if err != nil {
				return nil, fmt.Errorf("in element %d: %w", i, err)
			}
			out[i] = nv
		}
		return out, nil
	}
	return v, nil
}
