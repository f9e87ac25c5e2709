package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Values travel over the bus as JSON envelopes of the form
// {"sig": "i", "val": 2}. Decoding is signature-directed and uses
// json.Number throughout so 64-bit integers survive the trip.

type valueEnvelope struct {
	Sig string          `json:"sig"`
	Val json.RawMessage `json:"val"`
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsZero() {
		return nil, fmt.Errorf("wire: cannot encode an empty value")
	}
	val, err := json.Marshal(v.v)
	if err != nil {
		return nil, fmt.Errorf("wire: encoding %q value: %w", v.sig, err)
	}
	return json.Marshal(valueEnvelope{Sig: v.sig, Val: val})
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var env valueEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("wire: decoding value envelope: %w", err)
	}
	if env.Sig == "" {
		return fmt.Errorf("wire: value envelope has no signature")
	}
	decoded, err := decodeVal(env.Sig, env.Val)
	if err != nil {
		return err
	}
	v.sig = env.Sig
	v.v = decoded
	return nil
}

func decodeVal(sig string, raw json.RawMessage) (any, error) {
	switch sig {
	case TagString:
		var s string
		if err := decodeInto(sig, raw, &s); err != nil {
			return nil, err
		}
		return s, nil
	case TagObjectPath:
		var p ObjectPath
		if err := decodeInto(sig, raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TagVariant:
		var inner Value
		if err := decodeInto(sig, raw, &inner); err != nil {
			return nil, err
		}
		return inner, nil
	case TagInt32:
		i, err := decodeInt(sig, raw, 32)
		return int32(i), err
	case TagInt16:
		i, err := decodeInt(sig, raw, 16)
		return int16(i), err
	case TagUint32:
		u, err := decodeUint(sig, raw, 32)
		return uint32(u), err
	case TagByte:
		u, err := decodeUint(sig, raw, 8)
		return byte(u), err
	case TagUint64:
		return decodeUint(sig, raw, 64)
	case TagBool:
		var b bool
		if err := decodeInto(sig, raw, &b); err != nil {
			return nil, err
		}
		return b, nil
	case TagDouble:
		n, err := decodeNumber(sig, raw)
		if err != nil {
			return nil, err
		}
		d, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("wire: decoding %q value: %w", sig, err)
		}
		return d, nil
	case TagStringArray:
		ss := []string{}
		if err := decodeInto(sig, raw, &ss); err != nil {
			return nil, err
		}
		return ss, nil
	case TagPathArray:
		ps := []ObjectPath{}
		if err := decodeInto(sig, raw, &ps); err != nil {
			return nil, err
		}
		return ps, nil
	case TagDict:
		m := map[string]string{}
		if err := decodeInto(sig, raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TagVarDict:
		m := map[string]Value{}
		if err := decodeInto(sig, raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		if strings.HasPrefix(sig, "a(") {
			rows := [][]Value{}
			if err := decodeInto(sig, raw, &rows); err != nil {
				return nil, err
			}
			return rows, nil
		}
		// Unknown signature: keep a generic form so the catch-all decode
		// type can still render it.
		return decodeGeneric(raw)
	}
}

func decodeInto(sig string, raw json.RawMessage, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("wire: decoding %q value: %w", sig, err)
	}
	return nil
}

func decodeNumber(sig string, raw json.RawMessage) (json.Number, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("wire: decoding %q value: %w", sig, err)
	}
	return n, nil
}

func decodeInt(sig string, raw json.RawMessage, bits int) (int64, error) {
	n, err := decodeNumber(sig, raw)
	if err != nil {
		return 0, err
	}
	i, err := strconv.ParseInt(n.String(), 10, bits)
	if err != nil {
		return 0, fmt.Errorf("wire: %q value out of range: %w", sig, err)
	}
	return i, nil
}

func decodeUint(sig string, raw json.RawMessage, bits int) (uint64, error) {
	n, err := decodeNumber(sig, raw)
	if err != nil {
		return 0, err
	}
	u, err := strconv.ParseUint(n.String(), 10, bits)
	if err != nil {
		return 0, fmt.Errorf("wire: %q value out of range: %w", sig, err)
	}
	return u, nil
}

func decodeGeneric(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("wire: decoding value: %w", err)
	}
	return v, nil
}
