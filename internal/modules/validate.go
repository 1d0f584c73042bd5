package modules

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// CheckTypes verifies that every supplied param matches its declared
// property type. Required-ness is not enforced here: tools check their
// required arguments themselves, after the credential check, so that the
// order of failures is stable.
//
//   - Extra params not in the schema are passed through (lenient)
//   - nil values are treated as absent
//   - JSON numbers arrive as json.Number (float64 from callers that decode
//     without UseNumber); "integer" additionally requires an integral value
//
// The returned error is a *ToolError of kind invalid_argument.
func CheckTypes(schema InputSchema, params map[string]any) error {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	// deterministic error for multiple bad params
	sort.Strings(keys)

	for _, key := range keys {
		prop, declared := schema.Properties[key]
		if !declared {
			continue
		}
		val := params[key]
		if val == nil {
			continue
		}
		if err := checkType(key, val, prop); err != nil {
			return &ToolError{Kind: KindInvalidArgument, Message: err.Error()}
		}
	}
	return nil
}

func numberValue(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// jsonType names the JSON type of a decoded value for error messages.
func jsonType(val any) string {
	switch val.(type) {
	case string:
		return "string"
	case float64, json.Number:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", val)
	}
}

// checkType verifies that val matches the expected JSON Schema type.
func checkType(key string, val any, prop Property) error {
	switch prop.Type {
	case "string":
		if _, ok := val.(string); !ok {
			return fmt.Errorf("parameter %q: expected string, got %s", key, jsonType(val))
		}
	case "number":
		if _, ok := numberValue(val); !ok {
			return fmt.Errorf("parameter %q: expected number, got %s", key, jsonType(val))
		}
	case "integer":
		f, ok := numberValue(val)
		if !ok {
			return fmt.Errorf("parameter %q: expected integer, got %s", key, jsonType(val))
		}
		if n, isNum := val.(json.Number); isNum {
			if _, err := n.Int64(); err == nil {
				return nil
			}
		}
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return fmt.Errorf("parameter %q: expected integer, got %v", key, val)
		}
	case "boolean":
		if _, ok := val.(bool); !ok {
			return fmt.Errorf("parameter %q: expected boolean, got %s", key, jsonType(val))
		}
	case "array":
		items, ok := val.([]any)
		if !ok {
			return fmt.Errorf("parameter %q: expected array, got %s", key, jsonType(val))
		}
		if prop.Items != nil {
			for i, item := range items {
				if err := checkType(fmt.Sprintf("%s[%d]", key, i), item, *prop.Items); err != nil {
					return err
				}
			}
		}
	case "object":
		if _, ok := val.(map[string]any); !ok {
			return fmt.Errorf("parameter %q: expected object, got %s", key, jsonType(val))
		}
	// "" or unknown types: skip check (lenient)
	}
	return nil
}
