package wire

import "strings"

// converter holds the marshal and unmarshal halves for one catalog tag.
// Exactly one half may be nil: decode-only tags have no marshal, and TagAny
// style catch-alls exist only on the decode side.
type converter struct {
	marshal   func(v any) (Value, bool)
	unmarshal func(wv Value, out any) bool
}

// converters is the fixed dispatch table, keyed by tag. It is populated once
// at package init and never mutated afterwards, so concurrent readers need no
// locking.
var converters = map[string]converter{
	TagString: {
		marshal:   func(v any) (Value, bool) { s, ok := v.(string); return String(s), ok },
		unmarshal: func(wv Value, out any) bool { return assign[string](wv, TagString, out) },
	},
	TagInt32: {
		marshal:   func(v any) (Value, bool) { i, ok := v.(int32); return Int32(i), ok },
		unmarshal: func(wv Value, out any) bool { return assign[int32](wv, TagInt32, out) },
	},
	TagUint32: {
		marshal:   func(v any) (Value, bool) { u, ok := v.(uint32); return Uint32(u), ok },
		unmarshal: func(wv Value, out any) bool { return assign[uint32](wv, TagUint32, out) },
	},
	TagByte: {
		marshal:   func(v any) (Value, bool) { b, ok := v.(byte); return Byte(b), ok },
		unmarshal: func(wv Value, out any) bool { return assign[byte](wv, TagByte, out) },
	},
	TagInt16: {
		marshal:   func(v any) (Value, bool) { n, ok := v.(int16); return Int16(n), ok },
		unmarshal: func(wv Value, out any) bool { return assign[int16](wv, TagInt16, out) },
	},
	TagUint64: {
		marshal:   func(v any) (Value, bool) { t, ok := v.(uint64); return Uint64(t), ok },
		unmarshal: func(wv Value, out any) bool { return assign[uint64](wv, TagUint64, out) },
	},
	TagBool: {
		marshal:   func(v any) (Value, bool) { b, ok := v.(bool); return Bool(b), ok },
		unmarshal: func(wv Value, out any) bool { return assign[bool](wv, TagBool, out) },
	},
	TagDouble: {
		marshal:   func(v any) (Value, bool) { d, ok := v.(float64); return Double(d), ok },
		unmarshal: func(wv Value, out any) bool { return assign[float64](wv, TagDouble, out) },
	},
	TagObjectPath: {
		marshal:   marshalPath,
		unmarshal: func(wv Value, out any) bool { return assign[ObjectPath](wv, TagObjectPath, out) },
	},
	TagVariant: {
		// Strings sent as variants wrap the string in a variant box.
		marshal: func(v any) (Value, bool) {
			s, ok := v.(string)
			return Variant(String(s)), ok
		},
		unmarshal: unmarshalVariant,
	},
	TagStringArray: {
		marshal:   func(v any) (Value, bool) { ss, ok := v.([]string); return Strings(ss), ok },
		unmarshal: unmarshalStrings,
	},
	TagPathArray: {
		marshal:   marshalPaths,
		unmarshal: unmarshalPaths,
	},
	TagDict: {
		marshal:   func(v any) (Value, bool) { m, ok := v.(map[string]string); return Dict(m), ok },
		unmarshal: unmarshalDict,
	},
	TagVarDict: {
		unmarshal: unmarshalVarDict,
	},
	TagTupleArray: {
		unmarshal: unmarshalTuples,
	},
	TagAny: {
		unmarshal: unmarshalAny,
	},
}

// Marshal boxes v as the wire value for tag. It reports failure when the tag
// is unknown or decode-only, when v is not the tag's holder type, or when an
// object path fails validation. A failed marshal produces no value.
func Marshal(tag string, v any) (Value, bool) {
	c, ok := converters[tag]
	if !ok || c.marshal == nil {
		return Value{}, false
	}
	return c.marshal(v)
}

// Unmarshal decodes wv into out (a pointer to the tag's holder type). It
// reports false, leaving *out zeroed, when the wire value's runtime type does
// not match the expected tag.
func Unmarshal(tag string, wv Value, out any) bool {
	c, ok := converters[tag]
	if !ok || c.unmarshal == nil || wv.IsZero() {
		return false
	}
	return c.unmarshal(wv, out)
}

// Encodable reports whether the tag may be used for an input parameter.
func Encodable(tag string) bool {
	c, ok := converters[tag]
	return ok && c.marshal != nil
}

// assign moves a basic wire value into *out when both the signature and the
// boxed runtime type agree.
func assign[T any](wv Value, tag string, out any) bool {
	dst, ok := out.(*T)
	if !ok || wv.sig != tag {
		return false
	}
	v, ok := wv.v.(T)
	if !ok {
		return false
	}
	*dst = v
	return true
}

func marshalPath(v any) (Value, bool) {
	p, ok := v.(ObjectPath)
	if !ok || !p.Valid() {
		return Value{}, false
	}
	return Path(p), true
}

func marshalPaths(v any) (Value, bool) {
	ps, ok := v.([]ObjectPath)
	if !ok {
		return Value{}, false
	}
	for _, p := range ps {
		if !p.Valid() {
			return Value{}, false
		}
	}
	return Paths(ps), true
}

func unmarshalVariant(wv Value, out any) bool {
	dst, ok := out.(*string)
	if !ok || wv.sig != TagVariant {
		return false
	}
	inner, ok := wv.v.(Value)
	if !ok {
		return false
	}
	*dst = Print(inner)
	return true
}

func unmarshalStrings(wv Value, out any) bool {
	dst, ok := out.(*[]string)
	if !ok || wv.sig != TagStringArray {
		return false
	}
	ss, ok := wv.v.([]string)
	if !ok {
		return false
	}
	cp := make([]string, len(ss))
	copy(cp, ss)
	*dst = cp
	return true
}

func unmarshalPaths(wv Value, out any) bool {
	dst, ok := out.(*[]ObjectPath)
	if !ok || wv.sig != TagPathArray {
		return false
	}
	ps, ok := wv.v.([]ObjectPath)
	if !ok {
		return false
	}
	cp := make([]ObjectPath, len(ps))
	copy(cp, ps)
	*dst = cp
	return true
}

func unmarshalDict(wv Value, out any) bool {
	dst, ok := out.(*map[string]string)
	if !ok || wv.sig != TagDict {
		return false
	}
	m, ok := wv.v.(map[string]string)
	if !ok {
		return false
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	*dst = cp
	return true
}

// unmarshalVarDict decodes a string-to-variant map into string form: each
// variant value is rendered to its printed representation.
func unmarshalVarDict(wv Value, out any) bool {
	dst, ok := out.(*map[string]string)
	if !ok || wv.sig != TagVarDict {
		return false
	}
	m, ok := wv.v.(map[string]Value)
	if !ok {
		return false
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = Print(v)
	}
	*dst = cp
	return true
}

// unmarshalTuples accepts any array-of-tuples signature ("a(*)" or a concrete
// one such as "a(si)") and hands out the raw variant rows.
func unmarshalTuples(wv Value, out any) bool {
	dst, ok := out.(*[][]Value)
	if !ok || !strings.HasPrefix(wv.sig, "a(") {
		return false
	}
	rows, ok := wv.v.([][]Value)
	if !ok {
		return false
	}
	cp := make([][]Value, len(rows))
	for i, row := range rows {
		cp[i] = append([]Value(nil), row...)
	}
	*dst = cp
	return true
}

func unmarshalAny(wv Value, out any) bool {
	dst, ok := out.(*string)
	if !ok {
		return false
	}
	*dst = Print(wv)
	return true
}
