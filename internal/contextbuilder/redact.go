package contextbuilder

import (
	"reflect"
	"regexp"
)

var sensitiveKeyPattern = regexp.MustCompile(`(?i)(api[-_ ]?key|secret|password|token|auth|credential)`)

const redactedValue = "[REDACTED]"
const circularValue = "[CIRCULAR_REFERENCE]"

// sanitizeMetadata returns a copy of meta with sensitive keys redacted
// and cycles (via pointer identity on the map/slice chain) replaced with
// a marker instead of recursing forever.
func sanitizeMetadata(meta map[string]interface{}) map[string]interface{} {
	if meta == nil {
		return nil
	}
	seen := make(map[interface{}]bool)
	out, _ := sanitizeValue(meta, seen).(map[string]interface{})
	return out
}

func sanitizeValue(v interface{}, seen map[interface{}]bool) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		if seen[identityOf(val)] {
			return circularValue
		}
		seen[identityOf(val)] = true
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			if sensitiveKeyPattern.MatchString(k) {
				out[k] = redactedValue
				continue
			}
			out[k] = sanitizeValue(item, seen)
		}
		delete(seen, identityOf(val))
		return out
	case []interface{}:
		if seen[identityOf(val)] {
			return circularValue
		}
		seen[identityOf(val)] = true
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = sanitizeValue(item, seen)
		}
		delete(seen, identityOf(val))
		return out
	default:
		return val
	}
}

// identityOf returns a comparable key identifying the underlying map or
// slice's backing storage, so the same composite value revisited along
// a cycle is recognized regardless of the path taken to reach it.
func identityOf(v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		return rv.Pointer()
	default:
		return v
	}
}
