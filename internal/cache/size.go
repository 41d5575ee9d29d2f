package cache

import "reflect"

// DefaultSize estimates the byte footprint of a value by summing the binary
// buffer lengths it holds, recursing through pointers, structs, slices, and
// maps. Numeric slices dominate cached computation results, so fixed struct
// overhead is counted at the top level only via the value's own size.
func DefaultSize(v any) int64 {
	if v == nil {
		return 0
	}
	return sizeOfValue(reflect.ValueOf(v))
}

func sizeOfValue(v reflect.Value) int64 {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return 0
		}
		return sizeOfValue(v.Elem())
	case reflect.Struct:
		var total int64
		for i := 0; i < v.NumField(); i++ {
			total += sizeOfValue(v.Field(i))
		}
		return total
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return 0
		}
		elem := v.Type().Elem()
		// Flat numeric buffers: length × element width, no per-element walk.
		switch elem.Kind() {
		case reflect.Bool,
			reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			return int64(v.Len()) * int64(elem.Size())
		}
		var total int64
		for i := 0; i < v.Len(); i++ {
			total += sizeOfValue(v.Index(i))
		}
		return total
	case reflect.Map:
		var total int64
		for iter := v.MapRange(); iter.Next(); {
			total += sizeOfValue(iter.Key())
			total += sizeOfValue(iter.Value())
		}
		return total
	case reflect.String:
		return int64(v.Len())
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return int64(v.Type().Size())
	default:
		return 0
	}
}
