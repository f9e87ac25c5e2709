// Package wire defines the fixed catalog of bus wire types and the boxed
// values exchanged with the transport. The catalog is closed: every type a
// call parameter may use is listed here, together with its signature tag.
package wire

// Tag identifies a wire type. Tags follow the bus signature notation.
const (
	TagString      = "s"     // UTF-8 string
	TagInt32       = "i"     // 32-bit signed integer
	TagUint32      = "u"     // 32-bit unsigned integer
	TagByte        = "y"     // 8-bit unsigned integer
	TagInt16       = "n"     // 16-bit signed integer
	TagUint64      = "t"     // 64-bit unsigned integer
	TagBool        = "b"     // boolean
	TagDouble      = "d"     // IEEE 754 double
	TagObjectPath  = "o"     // object path string
	TagVariant     = "v"     // variant; decoded to its printed form
	TagStringArray = "as"    // array of strings
	TagPathArray   = "ao"    // array of object paths
	TagDict        = "a{ss}" // string-to-string map
	TagVarDict     = "a{sv}" // string-to-variant map; decode only
	TagTupleArray  = "a(*)"  // array of heterogeneous tuples; decode only
	TagAny         = "*"     // catch-all; decodes anything to a debug string
)

// ObjectPath is an object path string, e.g. "/org/example/Svc".
type ObjectPath string

// Valid reports whether the path satisfies the bus path grammar: rooted at
// '/', elements of [A-Za-z0-9_]+, no empty elements, no trailing slash
// (the root path "/" itself is valid).
func (p ObjectPath) Valid() bool {
	if len(p) == 0 || p[0] != '/' {
		return false
	}
	if len(p) == 1 {
		return true
	}
	if p[len(p)-1] == '/' {
		return false
	}
	start := 1
	for i := 1; i <= len(p); i++ {
		if i == len(p) || p[i] == '/' {
			if i == start {
				return false // empty element
			}
			start = i + 1
			continue
		}
		if !pathElemByte(p[i]) {
			return false
		}
	}
	return true
}

func pathElemByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' || c == '_'
}

// Value is a boxed wire value: a signature plus the decoded Go value.
// The zero Value means "no value" and fails every unmarshal.
type Value struct {
	sig string
	v   any
}

// Sig returns the value's signature. Decoded replies may carry signatures
// outside the fixed catalog (e.g. "a(si)"); those are still boxed and can be
// consumed by the decode-only tags.
func (v Value) Sig() string { return v.sig }

// IsZero reports whether the value is the empty "no value" Value.
func (v Value) IsZero() bool { return v.sig == "" && v.v == nil }

// Constructors, one per encodable catalog entry.

func String(s string) Value        { return Value{TagString, s} }
func Int32(i int32) Value          { return Value{TagInt32, i} }
func Uint32(u uint32) Value        { return Value{TagUint32, u} }
func Byte(b byte) Value            { return Value{TagByte, b} }
func Int16(n int16) Value          { return Value{TagInt16, n} }
func Uint64(t uint64) Value        { return Value{TagUint64, t} }
func Bool(b bool) Value            { return Value{TagBool, b} }
func Double(d float64) Value       { return Value{TagDouble, d} }
func Path(p ObjectPath) Value      { return Value{TagObjectPath, p} }
func Variant(inner Value) Value    { return Value{TagVariant, inner} }
func Strings(ss []string) Value    { return Value{TagStringArray, ss} }
func Paths(ps []ObjectPath) Value  { return Value{TagPathArray, ps} }
func Dict(m map[string]string) Value { return Value{TagDict, m} }

// VarDict boxes a string-to-variant map. Only produced by decoding; exposed
// for transport stubs and tests.
func VarDict(m map[string]Value) Value { return Value{TagVarDict, m} }

// TupleArray boxes an array of heterogeneous tuples. Only produced by
// decoding; exposed for transport stubs and tests.
func TupleArray(rows [][]Value) Value { return Value{TagTupleArray, rows} }
