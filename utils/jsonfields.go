package utils

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

// UnmarshalFields decodes a json object into the tagged fields of the struct v
// points to, one field at a time. A field that fails to decode keeps its
// previous value and its error is collected in fieldErrs. err is set only when
// data is not an object.
func UnmarshalFields(data []byte, v interface{}) (fieldErrs []error, err error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return nil, errors.Errorf("UnmarshalFields needs a struct pointer, got %T", v)
	}
	rv = rv.Elem()

	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, errors.Errorf("Expected an object, got %.32q", data)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, errors.Wrapf(err, "Invalid object")
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		raw, ok := lookupField(obj, name)
		if !ok {
			continue
		}

		fv := reflect.New(f.Type)
		switch f.Type.Kind() {
		case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Interface:
			// decoding would write through to the shared value
		default:
			fv.Elem().Set(rv.Field(i))
		}
		if err := json.Unmarshal(raw, fv.Interface()); err != nil {
			fieldErrs = append(fieldErrs, errors.Wrapf(err, "Invalid field %q", name))
			continue
		}
		rv.Field(i).Set(fv.Elem())
	}
	return fieldErrs, nil
}

// lookupField matches keys the way encoding/json does, exact first then case insensitive.
func lookupField(obj map[string]json.RawMessage, name string) (json.RawMessage, bool) {
	if raw, ok := obj[name]; ok {
		return raw, true
	}
	for k, raw := range obj {
		if strings.EqualFold(k, name) {
			return raw, true
		}
	}
	return nil, false
}
