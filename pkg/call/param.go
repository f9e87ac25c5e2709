package call

import (
	"github.com/morezero/comms-client/pkg/wire"
)

// param is the registry-side representation of one call field. Exactly one
// of marshal/unmarshal is set, chosen by direction; reset zeroes the slot of
// an OUT param on any failure path and is a no-op for IN params.
type param struct {
	name      string
	tag       string
	marshal   func() (wire.Value, bool)
	unmarshal func(wire.Value) bool
	reset     func()
}

// Param is the caller's typed handle to one declared field. IN params are
// written with Set before invoking; OUT params are read with Value after a
// successful invocation. After a failed invocation every OUT param reads as
// its zero value, never as stale data.
type Param[T any] struct {
	slot *T
}

// Set stores v as the field's current value.
func (p *Param[T]) Set(v T) { *p.slot = v }

// Value returns the field's current value.
func (p *Param[T]) Value() T { return *p.slot }

func newIn[T any](c *Call, tag, name string) *Param[T] {
	slot := new(T)
	c.client.registry.appendParam(c, &param{
		name:    name,
		tag:     tag,
		marshal: func() (wire.Value, bool) { return wire.Marshal(tag, *slot) },
		reset:   func() {},
	})
	return &Param[T]{slot: slot}
}

func newOut[T any](c *Call, tag, name string) *Param[T] {
	slot := new(T)
	c.client.registry.appendParam(c, &param{
		name:      name,
		tag:       tag,
		unmarshal: func(wv wire.Value) bool { return wire.Unmarshal(tag, wv, slot) },
		reset:     func() { var zero T; *slot = zero },
	})
	return &Param[T]{slot: slot}
}

// Typed field constructors, one per (wire type, direction) combination the
// catalog supports. Decode-only types exist in the OUT direction only.

func InString(c *Call, name string) *Param[string]  { return newIn[string](c, wire.TagString, name) }
func OutString(c *Call, name string) *Param[string] { return newOut[string](c, wire.TagString, name) }

func InInt32(c *Call, name string) *Param[int32]  { return newIn[int32](c, wire.TagInt32, name) }
func OutInt32(c *Call, name string) *Param[int32] { return newOut[int32](c, wire.TagInt32, name) }

func InUint32(c *Call, name string) *Param[uint32]  { return newIn[uint32](c, wire.TagUint32, name) }
func OutUint32(c *Call, name string) *Param[uint32] { return newOut[uint32](c, wire.TagUint32, name) }

func InByte(c *Call, name string) *Param[byte]  { return newIn[byte](c, wire.TagByte, name) }
func OutByte(c *Call, name string) *Param[byte] { return newOut[byte](c, wire.TagByte, name) }

func InInt16(c *Call, name string) *Param[int16]  { return newIn[int16](c, wire.TagInt16, name) }
func OutInt16(c *Call, name string) *Param[int16] { return newOut[int16](c, wire.TagInt16, name) }

func InUint64(c *Call, name string) *Param[uint64]  { return newIn[uint64](c, wire.TagUint64, name) }
func OutUint64(c *Call, name string) *Param[uint64] { return newOut[uint64](c, wire.TagUint64, name) }

func InBool(c *Call, name string) *Param[bool]  { return newIn[bool](c, wire.TagBool, name) }
func OutBool(c *Call, name string) *Param[bool] { return newOut[bool](c, wire.TagBool, name) }

func InDouble(c *Call, name string) *Param[float64]  { return newIn[float64](c, wire.TagDouble, name) }
func OutDouble(c *Call, name string) *Param[float64] { return newOut[float64](c, wire.TagDouble, name) }

// Object-path fields validate their value at marshal time: an invalid path
// fails that field, and with it the invocation, before any transport attempt.
func InPath(c *Call, name string) *Param[wire.ObjectPath] {
	return newIn[wire.ObjectPath](c, wire.TagObjectPath, name)
}
func OutPath(c *Call, name string) *Param[wire.ObjectPath] {
	return newOut[wire.ObjectPath](c, wire.TagObjectPath, name)
}

// Variant fields hold strings: on input the string is sent boxed in a
// variant; on output the received variant is decoded to its printed form.
func InVariant(c *Call, name string) *Param[string]  { return newIn[string](c, wire.TagVariant, name) }
func OutVariant(c *Call, name string) *Param[string] { return newOut[string](c, wire.TagVariant, name) }

func InStrings(c *Call, name string) *Param[[]string] {
	return newIn[[]string](c, wire.TagStringArray, name)
}
func OutStrings(c *Call, name string) *Param[[]string] {
	return newOut[[]string](c, wire.TagStringArray, name)
}

func InPaths(c *Call, name string) *Param[[]wire.ObjectPath] {
	return newIn[[]wire.ObjectPath](c, wire.TagPathArray, name)
}
func OutPaths(c *Call, name string) *Param[[]wire.ObjectPath] {
	return newOut[[]wire.ObjectPath](c, wire.TagPathArray, name)
}

func InDict(c *Call, name string) *Param[map[string]string] {
	return newIn[map[string]string](c, wire.TagDict, name)
}
func OutDict(c *Call, name string) *Param[map[string]string] {
	return newOut[map[string]string](c, wire.TagDict, name)
}

// OutVarDict decodes a string-to-variant map; each variant is rendered to
// its printed form. Decode only.
func OutVarDict(c *Call, name string) *Param[map[string]string] {
	return newOut[map[string]string](c, wire.TagVarDict, name)
}

// OutTuples decodes an array of heterogeneous tuples into rows of raw wire
// values. Decode only; "a(*)" is not a real bus type and cannot be sent.
func OutTuples(c *Call, name string) *Param[[][]wire.Value] {
	return newOut[[][]wire.Value](c, wire.TagTupleArray, name)
}

// OutAny decodes any reply element to its printed debug form. Decode only.
func OutAny(c *Call, name string) *Param[string] {
	return newOut[string](c, wire.TagAny, name)
}
