package moodle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
)

// EncodeForm flattens params into the bracket notation parsed by the LMS:
// list elements become key[0], key[1]… and record members become key[sub].
// Nil values are omitted.
func EncodeForm(params Params) url.Values {
	form := url.Values{}
	for key, value := range params {
		appendFormValue(form, key, value)
	}
	return form
}

func appendFormValue(form url.Values, key string, value any) {
	if value == nil {
		return
	}

	switch v := value.(type) {
	case string:
		form.Add(key, v)
		return
	case json.Number:
		form.Add(key, v.String())
		return
	case bool:
		form.Add(key, strconv.FormatBool(v))
		return
	case fmt.Stringer:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return
		}
		form.Add(key, v.String())
		return
	}

	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.String:
		form.Add(key, rv.String())
	case reflect.Bool:
		form.Add(key, strconv.FormatBool(rv.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		form.Add(key, strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		form.Add(key, strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32:
		form.Add(key, strconv.FormatFloat(rv.Float(), 'f', -1, 32))
	case reflect.Float64:
		form.Add(key, strconv.FormatFloat(rv.Float(), 'f', -1, 64))
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return
		}
		for i := 0; i < rv.Len(); i++ {
			appendFormValue(form, fmt.Sprintf("%s[%d]", key, i), rv.Index(i).Interface())
		}
	case reflect.Map:
		if rv.IsNil() {
			return
		}
		keys := make([]string, 0, rv.Len())
		values := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			sub := fmt.Sprint(iter.Key().Interface())
			keys = append(keys, sub)
			values[sub] = iter.Value().Interface()
		}
		sort.Strings(keys)
		for _, sub := range keys {
			appendFormValue(form, key+"["+sub+"]", values[sub])
		}
	case reflect.Struct:
		// Structs are encoded through their JSON field names.
		raw, err := json.Marshal(rv.Interface())
		if err != nil {
			return
		}
		var record map[string]any
		decoder := json.NewDecoder(bytes.NewReader(raw))
		decoder.UseNumber()
		if err := decoder.Decode(&record); err != nil {
			return
		}
		appendFormValue(form, key, record)
	default:
		form.Add(key, fmt.Sprint(rv.Interface()))
	}
}
