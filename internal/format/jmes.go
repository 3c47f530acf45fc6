package format

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/jmespath/go-jmespath"
)

// decodeMessage returns the JSON value of raw, or {"message": raw} when raw
// is not JSON, so plain text lines can still be queried.
func decodeMessage(raw string) any {
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err == nil {
		return decoded
	}
	return map[string]any{"message": raw}
}

// project evaluates the compiled expression against a log message and
// returns the string form of the result. Strings are returned as-is, other
// values are marshaled to JSON. ok is false when the result is empty.
func project(expr *jmespath.JMESPath, raw string) (string, bool, error) {
	res, err := expr.Search(decodeMessage(raw))
	if err != nil {
		return "", false, fmt.Errorf("jmespath search failed: %w", err)
	}
	if isEmpty(res) {
		return "", false, nil
	}
	switch v := res.(type) {
	case string:
		return v, true, nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", false, fmt.Errorf("marshal query result failed: %w", err)
		}
		return string(b), true, nil
	}
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	}
	return false
}
