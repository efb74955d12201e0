package ui

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Field is one flattened response value, e.g. {"result.slots[0].status", "ready"}
type Field struct {
	Key   string
	Value string
}

// Flatten turns a decoded JSON value into dotted key/value pairs in a
// stable order. A scalar at the top level yields a single field keyed "value".
func Flatten(value any) []Field {
	var fields []Field
	flatten("", value, &fields)
	if len(fields) == 1 && fields[0].Key == "" {
		fields[0].Key = "value"
	}
	return fields
}

func flatten(prefix string, value any, out *[]Field) {
	switch v := value.(type) {
	case map[string]any:
		if len(v) == 0 {
			*out = append(*out, Field{Key: prefix, Value: "{}"})
			return
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flatten(key, v[k], out)
		}

	case []any:
		if len(v) == 0 {
			*out = append(*out, Field{Key: prefix, Value: "[]"})
			return
		}
		if scalars(v) {
			parts := make([]string, len(v))
			for i, item := range v {
				parts[i] = FormatScalar(item)
			}
			*out = append(*out, Field{Key: prefix, Value: "[" + strings.Join(parts, ", ") + "]"})
			return
		}
		for i, item := range v {
			flatten(fmt.Sprintf("%s[%d]", prefix, i), item, out)
		}

	default:
		*out = append(*out, Field{Key: prefix, Value: FormatScalar(v)})
	}
}

func scalars(items []any) bool {
	for _, item := range items {
		switch item.(type) {
		case map[string]any, []any:
			return false
		}
	}
	return true
}

// FormatScalar renders a JSON scalar; whole numbers print without a fraction
func FormatScalar(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// IndentJSON renders value as two-space indented JSON without HTML escaping
func IndentJSON(value any) (string, error) {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return "", err
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}
