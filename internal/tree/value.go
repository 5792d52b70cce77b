package tree

import (
	"encoding/json"
	"fmt"
)

// normalize converts a write value into the store's generic representation:
// map[string]any, []any, string, float64, bool, or nil. ServerTimestamp
// sentinels become nowMillis. Struct values round-trip through JSON so the
// stored shape matches what goes over the wire.
func normalize(value any, nowMillis int64) any {
	switch v := value.(type) {
	case nil:
		return nil
	case serverTimestamp:
		return float64(nowMillis)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			if n := normalize(e, nowMillis); n != nil {
				out[k] = n
			}
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = normalize(e, nowMillis)
		}
		return out
	case []string:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out
	case string, bool, float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			panic(fmt.Sprintf("tree: unencodable value %T: %v", value, err))
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			panic(fmt.Sprintf("tree: undecodable value %T: %v", value, err))
		}
		return generic
	}
}

func deepCopy(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = deepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = deepCopy(e)
		}
		return out
	default:
		return v
	}
}

// Decode unmarshals a generic store value into a typed document. A nil
// value is left as the zero document, matching the "not ready" reading of
// an absent path.
func Decode(value any, out any) error {
	if value == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("tree: encode snapshot: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("tree: decode snapshot: %w", err)
	}
	return nil
}

// Encode converts a typed document into the store's generic representation
// for use inside Transact, where the committed value must be a plain tree.
func Encode(value any) any {
	return normalize(value, 0)
}
