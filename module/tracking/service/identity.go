package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const objectIDKey = "$oid"

// NormalizeDeviceID extracts the canonical device id from the shapes ids
// arrive in: plain strings, extended-JSON {"$oid": ...} wrappers (decoded
// or raw), MongoDB ObjectIDs, fmt.Stringers and scalars. It never panics;
// ok is false when no usable id could be found and the caller should skip
// whatever it was about to do.
func NormalizeDeviceID(raw any) (id string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			id, ok = "", false
		}
	}()

	if isFalsy(raw) {
		return "", false
	}

	switch v := raw.(type) {
	case string:
		return nonEmpty(v)
	case primitive.ObjectID:
		if v.IsZero() {
			return "", false
		}
		return v.Hex(), true
	case *primitive.ObjectID:
		return NormalizeDeviceID(*v)
	case json.Number:
		if f, err := v.Float64(); err == nil && f == 0 {
			return "", false
		}
		return nonEmpty(v.String())
	case json.RawMessage:
		return normalizeJSON(v)
	case []byte:
		return normalizeJSON(v)
	}

	if oid, found := objectIDField(raw); found {
		return NormalizeDeviceID(oid)
	}
	if v, isStringer := raw.(fmt.Stringer); isStringer {
		return nonEmpty(v.String())
	}
	return nonEmpty(fmt.Sprint(raw))
}

// objectIDField looks up the "$oid" entry of a bson document, of any map
// keyed by strings, or of a struct field tagged json:"$oid".
func objectIDField(raw any) (any, bool) {
	if doc, isDoc := raw.(primitive.D); isDoc {
		for _, e := range doc {
			if e.Key == objectIDKey {
				return e.Value, true
			}
		}
		return nil, false
	}

	v := reflect.Indirect(reflect.ValueOf(raw))
	switch v.Kind() {
	case reflect.Map:
		keyType := v.Type().Key()
		if keyType.Kind() != reflect.String {
			return nil, false
		}
		val := v.MapIndex(reflect.ValueOf(objectIDKey).Convert(keyType))
		if !val.IsValid() {
			return nil, false
		}
		return val.Interface(), true
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name == objectIDKey {
				return v.Field(i).Interface(), true
			}
		}
	}
	return nil, false
}

func normalizeJSON(raw []byte) (string, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nonEmpty(string(raw))
	}
	return NormalizeDeviceID(decoded)
}

func nonEmpty(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

// isFalsy mirrors the loose truthiness ids were historically checked with:
// nil, empty strings, false and numeric zero carry no identity.
func isFalsy(raw any) bool {
	if raw == nil {
		return true
	}
	v := reflect.ValueOf(raw)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	case reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0 || v.Float() != v.Float()
	}
	return false
}
