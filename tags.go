package neoframe

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"
)

// structMetadata holds the parsed `frame` tag information for a struct type.
type structMetadata struct {
	// Columns are the column names in field order.
	Columns []string
	// Fields are the struct field indexes backing each column.
	Fields []int
}

// metaCache stores parsed structMetadata to avoid reflection on every call.
var metaCache sync.Map

// parseTagsFromType inspects a struct type and extracts its column mapping
// from `frame` struct tags. Untagged exported fields map to their field name,
// fields tagged `frame:"-"` are skipped, unexported fields are ignored.
func parseTagsFromType(typ reflect.Type) (*structMetadata, error) {
	if typ == nil {
		return nil, fmt.Errorf("cannot map a nil type to columns")
	}
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("type %s is not a struct", typ)
	}

	if cached, ok := metaCache.Load(typ); ok {
		return cached.(*structMetadata), nil
	}

	meta := &structMetadata{}
	seen := make(map[string]string)
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}

		name := field.Name
		tag := field.Tag.Get("frame")
		if tag == "-" {
			continue
		}
		if tag != "" {
			name = strings.TrimSpace(strings.Split(tag, ",")[0])
		}
		if name == "" {
			return nil, fmt.Errorf("field %s has an empty 'frame' column name", field.Name)
		}
		if prev, dup := seen[name]; dup {
			return nil, fmt.Errorf("fields %s and %s both map to column %q", prev, field.Name, name)
		}
		seen[name] = field.Name

		meta.Columns = append(meta.Columns, name)
		meta.Fields = append(meta.Fields, i)
	}

	if len(meta.Columns) == 0 {
		return nil, fmt.Errorf("struct %s has no exported fields", typ.Name())
	}

	metaCache.Store(typ, meta)
	return meta, nil
}

// FrameFrom builds a Frame with one row per element of rows. Columns come
// from the struct fields of T (see the `frame` tag). Nil pointer fields
// become null.
func FrameFrom[T any](rows []T) (*Frame, error) {
	meta, err := parseTagsFromType(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}

	cols := make([][]Value, len(meta.Columns))
	for i := range cols {
		cols[i] = make([]Value, len(rows))
	}
	for r := range rows {
		val := reflect.ValueOf(&rows[r]).Elem()
		if val.Kind() == reflect.Ptr {
			if val.IsNil() {
				return nil, fmt.Errorf("row %d is a nil pointer", r)
			}
			val = val.Elem()
		}
		for c, fi := range meta.Fields {
			cols[c][r] = fieldValue(val.Field(fi))
		}
	}
	return NewFrameFromColumns(meta.Columns, cols)
}

// fieldValue dereferences pointer fields before conversion.
func fieldValue(f reflect.Value) Value {
	for f.Kind() == reflect.Ptr || f.Kind() == reflect.Interface {
		if f.IsNil() {
			return Null()
		}
		f = f.Elem()
	}
	switch f.Kind() {
	case reflect.String:
		return String(f.String())
	case reflect.Bool:
		return Bool(f.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(f.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if u := f.Uint(); u <= math.MaxInt64 {
			return Int(int64(u))
		}
		return Float(float64(f.Uint()))
	case reflect.Float32, reflect.Float64:
		return Float(f.Float())
	default:
		return ValueOf(f.Interface())
	}
}
