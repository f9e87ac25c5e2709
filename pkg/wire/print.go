package wire

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Print renders a wire value to a stable human-readable form, used for
// variant decoding, the catch-all decode type and diagnostics. Strings are
// single-quoted, containers bracketed, variants angle-bracketed; dict entries
// are sorted by key so the output is deterministic.
func Print(v Value) string {
	if v.IsZero() {
		return "<empty>"
	}
	var b strings.Builder
	printValue(&b, v.v)
	return b.String()
}

// PrintTuple renders an ordered wire tuple, e.g. "(2, 3, 'abc')".
func PrintTuple(vs []Value) string {
	var b strings.Builder
	b.WriteByte('(')
	for i, v := range vs {
		if i > 0 {
			b.WriteString(", ")
		}
		printValue(&b, v.v)
	}
	b.WriteByte(')')
	return b.String()
}

func printValue(b *strings.Builder, v any) {
	switch x := v.(type) {
	case string:
		printQuoted(b, x)
	case ObjectPath:
		printQuoted(b, string(x))
	case int32:
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case int16:
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case uint32:
		b.WriteString(strconv.FormatUint(uint64(x), 10))
	case byte:
		b.WriteString(strconv.FormatUint(uint64(x), 10))
	case uint64:
		b.WriteString(strconv.FormatUint(x, 10))
	case bool:
		b.WriteString(strconv.FormatBool(x))
	case float64:
		b.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	case json.Number:
		b.WriteString(x.String())
	case Value:
		b.WriteByte('<')
		printValue(b, x.v)
		b.WriteByte('>')
	case []string:
		b.WriteByte('[')
		for i, s := range x {
			if i > 0 {
				b.WriteString(", ")
			}
			printQuoted(b, s)
		}
		b.WriteByte(']')
	case []ObjectPath:
		b.WriteByte('[')
		for i, p := range x {
			if i > 0 {
				b.WriteString(", ")
			}
			printQuoted(b, string(p))
		}
		b.WriteByte(']')
	case map[string]string:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			printQuoted(b, k)
			b.WriteString(": ")
			printQuoted(b, x[k])
		}
		b.WriteByte('}')
	case map[string]Value:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			printQuoted(b, k)
			b.WriteString(": <")
			printValue(b, x[k].v)
			b.WriteByte('>')
		}
		b.WriteByte('}')
	case [][]Value:
		b.WriteByte('[')
		for i, row := range x {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('(')
			for j, f := range row {
				if j > 0 {
					b.WriteString(", ")
				}
				printValue(b, f.v)
			}
			b.WriteByte(')')
		}
		b.WriteByte(']')
	case []any:
		b.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				b.WriteString(", ")
			}
			printValue(b, e)
		}
		b.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			printQuoted(b, k)
			b.WriteString(": ")
			printValue(b, x[k])
		}
		b.WriteByte('}')
	case nil:
		b.WriteString("<null>")
	default:
		fmt.Fprintf(b, "%v", x)
	}
}

func printQuoted(b *strings.Builder, s string) {
	b.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'', '\\':
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('\'')
}
