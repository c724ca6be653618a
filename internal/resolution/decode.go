package resolution

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"circle-resolver/internal/ledger"
)

// configTypeSubstring identifies the CircleConfig dynamic field by its
// value object's type tag.
const configTypeSubstring = "CircleConfig"

// configFieldKey identifies the CircleConfig dynamic field by name.
const configFieldKey = "circle_config"

// FindConfigField locates the circle's CircleConfig-typed dynamic
// field in a listing, by type-name substring or by named key.
// Returns nil when no field matches.
func FindConfigField(fields []ledger.DynamicFieldInfo) *ledger.DynamicFieldInfo {
	for i := range fields {
		f := &fields[i]
		if strings.Contains(f.ObjectType, configTypeSubstring) {
			return f
		}
		if name, ok := f.Name.Value.(string); ok && name == configFieldKey {
			return f
		}
	}
	return nil
}

// configObjectFields extracts the usable field bag from a dynamic
// field object. Two wrapper shapes occur in the wild: the config
// fields directly on the object, or nested one level under a
// value.fields wrapper. Any other shape is treated as absent rather
// than probed further.
func configObjectFields(obj *ledger.Object) map[string]interface{} {
	if obj == nil || obj.Fields == nil {
		return nil
	}

	if v, wrapped := obj.Fields["value"]; wrapped {
		vm, ok := v.(map[string]interface{})
		if !ok {
			return nil
		}
		fm, ok := vm["fields"].(map[string]interface{})
		if !ok {
			return nil
		}
		return fm
	}

	return obj.Fields
}

// parseNumber extracts a float from the loosely typed values ledger
// responses carry: JSON numbers, u64-as-string, json.Number. Anything
// unparseable (including NaN) reports absent, never zero.
func parseNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// parseString extracts a non-empty string value.
func parseString(v interface{}) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// parseBool extracts a boolean, accepting the string forms some nodes
// return for Move bool fields.
func parseBool(v interface{}) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch b {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}
