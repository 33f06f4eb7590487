package trace

import (
	"fmt"
	"reflect"
	"strconv"
)

// DeduplicateTags drops tags whose key and value both match an earlier tag.
// It returns the kept tags in order plus one warning per distinct duplicated
// pair, in order of first duplication.
func DeduplicateTags(tags []KeyValue) ([]KeyValue, []string) {
	kept := make([]KeyValue, 0, len(tags))
	seen := make(map[string][]any, len(tags))
	var warnings []string
	warned := make(map[string]bool)

	for _, tag := range tags {
		if !containsValue(seen[tag.Key], tag.Value) {
			seen[tag.Key] = append(seen[tag.Key], tag.Value)
			kept = append(kept, tag)
			continue
		}
		pair := tag.Key + ":" + formatValue(tag.Value)
		if !warned[pair] {
			warned[pair] = true
			warnings = append(warnings, fmt.Sprintf(`Duplicate tag "%s"`, pair))
		}
	}
	return kept, warnings
}

func containsValue(values []any, v any) bool {
	for _, existing := range values {
		if reflect.DeepEqual(existing, v) {
			return true
		}
	}
	return false
}

// formatValue renders a tag value as written in the source. JSON numbers
// decode as float64, which fmt prints in exponent form once they reach 1e6.
func formatValue(v any) string {
	switch v := v.(type) {
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return fmt.Sprint(v)
}
