package recovery

import (
	"math"
	"reflect"
	"time"
	"unsafe"
)

// Dependencies describes the inputs a snapshot was produced from, such as
// version identifiers or configuration. A persisted snapshot is only reused
// when its Dependencies are Equal to the Runner's.
type Dependencies map[string]interface{}

// maxEqualDepth bounds recursion; deeper values compare as not equal.
const maxEqualDepth = 256

// Equal reports whether a and b are structurally equal.
//
// Rules:
//   - Maps compare by key set and per-key value, ignoring order.
//   - Slices and arrays compare element by element, in order.
//   - Numbers compare by value across kinds, so int64(3), uint8(3) and
//     float64(3) are equal. NaN is never equal to anything.
//   - At the top level, a nil value or nil map equals an empty map, so
//     absent Dependencies match empty ones. Anywhere nested, nil equals
//     only nil: {"tags": nil} and {"tags": []} differ.
//   - Pointers and interfaces compare by the values they point to.
//   - time.Time values compare with time.Time.Equal.
//   - Functions and channels are equal only when both are nil.
//
// Cycles through maps and slices are detected: a pair of references already
// under comparison is assumed equal. Any other nesting deeper than an
// internal bound compares as not equal, so an unexpected value always
// rejects rather than accepts.
func Equal(a, b interface{}) bool {
	va, vb := indirect(reflect.ValueOf(a)), indirect(reflect.ValueOf(b))
	if isAbsentMap(va) && isAbsentMap(vb) {
		return true
	}
	e := equaler{visited: make(map[visit]bool)}
	return e.equal(va, vb, 0)
}

// isAbsentMap reports whether v is nil or a map with no entries.
func isAbsentMap(v reflect.Value) bool {
	return !v.IsValid() || (v.Kind() == reflect.Map && v.Len() == 0)
}

type visit struct {
	a, b unsafe.Pointer
	typ  reflect.Type
}

type equaler struct {
	visited map[visit]bool
}

var timeType = reflect.TypeOf(time.Time{})

func (e *equaler) equal(a, b reflect.Value, depth int) bool {
	if depth > maxEqualDepth {
		return false
	}

	a, b = indirect(a), indirect(b)

	if isNil(a) || isNil(b) {
		return isNil(a) && isNil(b)
	}

	if isNumber(a.Kind()) && isNumber(b.Kind()) {
		return numbersEqual(a, b)
	}

	if a.Type() == timeType && b.Type() == timeType && a.CanInterface() && b.CanInterface() {
		return a.Interface().(time.Time).Equal(b.Interface().(time.Time))
	}

	if (a.Kind() == reflect.Map || a.Kind() == reflect.Slice) && a.Len() == 0 &&
		(b.Kind() == reflect.Map || b.Kind() == reflect.Slice) && b.Len() == 0 {
		return a.Kind() == b.Kind()
	}

	if a.Kind() != b.Kind() {
		return false
	}

	switch a.Kind() {
	case reflect.Bool:
		return a.Bool() == b.Bool()
	case reflect.String:
		return a.String() == b.String()
	case reflect.Map:
		if a.Len() != b.Len() {
			return false
		}
		if e.seen(a, b) {
			return true
		}
		return e.mapsEqual(a, b, depth)
	case reflect.Slice, reflect.Array:
		if a.Len() != b.Len() {
			return false
		}
		if a.Kind() == reflect.Slice && e.seen(a, b) {
			return true
		}
		for i := 0; i < a.Len(); i++ {
			if !e.equal(a.Index(i), b.Index(i), depth+1) {
				return false
			}
		}
		return true
	case reflect.Struct:
		if a.Type() != b.Type() {
			return false
		}
		for i := 0; i < a.NumField(); i++ {
			if !e.equal(a.Field(i), b.Field(i), depth+1) {
				return false
			}
		}
		return true
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return a.IsNil() && b.IsNil()
	default:
		return false
	}
}

// indirect follows interfaces and pointers. Pointer cycles end at the
// first repeat because pointers are followed a bounded number of times.
func indirect(v reflect.Value) reflect.Value {
	for i := 0; i < maxEqualDepth && v.IsValid(); i++ {
		switch v.Kind() {
		case reflect.Interface, reflect.Pointer:
			if v.IsNil() {
				return reflect.Value{}
			}
			v = v.Elem()
		default:
			return v
		}
	}
	return v
}

// isNil reports whether v is absent or a nil map or slice. Functions and
// channels are handled by equal.
func isNil(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Map, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}

// seen records the (a, b) reference pair and reports whether it was
// already being compared.
func (e *equaler) seen(a, b reflect.Value) bool {
	if a.Type() != b.Type() {
		return false
	}
	pa, pb := a.UnsafePointer(), b.UnsafePointer()
	if pa == pb {
		return true
	}
	k := visit{a: pa, b: pb, typ: a.Type()}
	if e.visited[k] {
		return true
	}
	e.visited[k] = true
	return false
}

func (e *equaler) mapsEqual(a, b reflect.Value, depth int) bool {
	bKey := b.Type().Key()
	iter := a.MapRange()
	for iter.Next() {
		k := iter.Key()

		var bv reflect.Value
		switch {
		case k.Type().AssignableTo(bKey):
			bv = b.MapIndex(k)
		case k.Type().ConvertibleTo(bKey) && k.Kind() == bKey.Kind():
			bv = b.MapIndex(k.Convert(bKey))
		default:
			bv = e.findKey(b, k, depth)
		}
		if !bv.IsValid() {
			return false
		}
		if !e.equal(iter.Value(), bv, depth+1) {
			return false
		}
	}
	return true
}

// findKey looks up a key of a different type by structural comparison.
func (e *equaler) findKey(m reflect.Value, key reflect.Value, depth int) reflect.Value {
	iter := m.MapRange()
	for iter.Next() {
		if e.equal(key, iter.Key(), depth+1) {
			return iter.Value()
		}
	}
	return reflect.Value{}
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	default:
		return false
	}
}

func numbersEqual(a, b reflect.Value) bool {
	ak, bk := a.Kind(), b.Kind()

	if isFloat(ak) || isFloat(bk) {
		af, bf := toFloat(a), toFloat(b)
		if math.IsNaN(af) || math.IsNaN(bf) {
			return false
		}
		if af != bf {
			return false
		}
		// Large integers lose precision as float64; confirm exactly.
		if !isFloat(ak) {
			return floatEqualsInt(bf, a)
		}
		if !isFloat(bk) {
			return floatEqualsInt(af, b)
		}
		return true
	}

	switch {
	case isUnsigned(ak) && isUnsigned(bk):
		return a.Uint() == b.Uint()
	case !isUnsigned(ak) && !isUnsigned(bk):
		return a.Int() == b.Int()
	case isUnsigned(ak):
		return b.Int() >= 0 && uint64(b.Int()) == a.Uint()
	default:
		return a.Int() >= 0 && uint64(a.Int()) == b.Uint()
	}
}

func toFloat(v reflect.Value) float64 {
	switch {
	case isFloat(v.Kind()):
		return v.Float()
	case isUnsigned(v.Kind()):
		return float64(v.Uint())
	default:
		return float64(v.Int())
	}
}

func floatEqualsInt(f float64, i reflect.Value) bool {
	if f != math.Trunc(f) {
		return false
	}
	if isUnsigned(i.Kind()) {
		if f < 0 || f >= math.MaxUint64 {
			return false
		}
		return uint64(f) == i.Uint()
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return false
	}
	return int64(f) == i.Int()
}
