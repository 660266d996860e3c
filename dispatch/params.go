package dispatch

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"
)

// Params are REST call parameters. Values are scalars or slices of scalars;
// slices of any element type are sent as repeated key[]=value pairs.
type Params map[string]any

// queryString encodes p followed by extra. Array values come first, then
// scalars, each group in key order, then extra in its given order.
func (p Params) queryString(extra [][2]string) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		if values, ok := arrayValues(p[k]); ok {
			for _, v := range values {
				parts = append(parts, url.QueryEscape(k)+"[]="+url.QueryEscape(v))
			}
		}
	}
	for _, k := range keys {
		if _, ok := arrayValues(p[k]); ok {
			continue
		}
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(scalar(p[k])))
	}
	for _, kv := range extra {
		parts = append(parts, url.QueryEscape(kv[0])+"="+url.QueryEscape(kv[1]))
	}
	return strings.Join(parts, "&")
}

// arrayValues flattens slice and array values into their scalar encodings.
func arrayValues(v any) ([]string, bool) {
	if values, ok := v.([]string); ok {
		return values, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	values := make([]string, rv.Len())
	for i := range values {
		values[i] = scalar(rv.Index(i).Interface())
	}
	return values, true
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(t)
	}
}
