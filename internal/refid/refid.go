// Package refid gives a stable, comparable identity key for Go's
// reference-kind values (pointers, maps, channels, slices, functions),
// shared by the equality and canon packages so both can key their own
// identity-tracking maps (cycle guards, visited sets) on arbitrary runtime
// values that are not themselves comparable enough to be a Go map key.
package refid

import "reflect"

// ID is a comparable identity for a reference-kind value.
type ID struct {
	ptr uintptr
	typ reflect.Type
}

// Of returns a stable identity for v and true, if v has a reference kind
// (pointer, map, channel, slice, function, or unsafe pointer). It returns
// ok=false for primitive-like values (numbers, strings, bools, structs,
// arrays), which have no stable address-based identity and must instead be
// compared or keyed by value.
func Of(v any) (id ID, ok bool) {
	if v == nil {
		return ID{}, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Slice, reflect.Func, reflect.UnsafePointer:
		return ID{ptr: rv.Pointer(), typ: rv.Type()}, true
	}
	return ID{}, false
}
