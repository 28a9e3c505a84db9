package codec

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"gopkg.in/yaml.v3"
)

// Decode reads one document from r.
//
// JSON is decoded straight into a cty.Value with its implied type, so
// numbers keep their full precision. YAML and MessagePack decode into plain
// Go maps and slices. An empty document decodes to nil.
func Decode(r io.Reader, format Format) (any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s input: %w", format, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	switch format {
	case JSON:
		ty, err := ctyjson.ImpliedType(data)
		if err != nil {
			return nil, fmt.Errorf("decoding json: %w", err)
		}
		v, err := ctyjson.Unmarshal(data, ty)
		if err != nil {
			return nil, fmt.Errorf("decoding json: %w", err)
		}
		if v.IsNull() {
			return nil, nil
		}
		return v, nil

	case YAML:
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decoding yaml: %w", err)
		}
		return v, nil

	case Msgpack:
		var v any
		if err := msgpack.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decoding msgpack: %w", err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("%w: '%s'", ErrUnknownFormat, format)
}
