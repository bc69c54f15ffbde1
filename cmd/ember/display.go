package main

import (
	"fmt"
	"strings"

	"github.com/wudi/ember/rhash"
	"github.com/wudi/ember/value"
)

// formatValue renders v for the CLI the way the teacher's REPL prints a
// leftover expression result (cmd/hey/main.go's executeREPLCode calling
// topValue.String()): host-side only, since cmd/ember has no access to
// vm's unexported display helper and builds its own instead, the way any
// embedding host would have to.
func formatValue(v value.Value) string {
	switch v.Kind() {
	case value.KindEmpty:
		return "()"
	case value.KindBool:
		b, _ := v.AsBool()
		return fmt.Sprintf("%t", b)
	case value.KindByte:
		b, _ := v.AsByte()
		return fmt.Sprintf("%d", b)
	case value.KindChar:
		c, _ := v.AsChar()
		return string(c)
	case value.KindInteger:
		i, _ := v.AsInteger()
		return fmt.Sprintf("%d", i)
	case value.KindFloat:
		f, _ := v.AsFloat()
		return fmt.Sprintf("%g", f)
	}

	if s, err := value.ToString(v); err == nil {
		return fmt.Sprintf("%q", s)
	}
	if items, err := value.ToVec(v); err == nil {
		return formatSeq("[", "]", items)
	}
	if items, err := value.ToTuple(v); err == nil {
		return formatSeq("(", ")", items)
	}
	if obj, err := value.ToObject(v); err == nil {
		parts := make([]string, len(obj.Keys))
		for i, k := range obj.Keys {
			parts[i] = fmt.Sprintf("%s: %s", k, formatValue(obj.Vals[i]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	if sd, err := value.FromAny[*value.StructData](v); err == nil {
		return formatStruct(sd)
	}
	return fmt.Sprintf("<%s %s>", v.Kind(), typeHashLabel(v.TypeHash()))
}

func formatSeq(open, close string, items []value.Value) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = formatValue(it)
	}
	return open + strings.Join(parts, ", ") + close
}

func formatStruct(sd *value.StructData) string {
	if sd.Type == rhash.TypeHash("Option") {
		if sd.Variant == 0 {
			return "Some" + formatSeq("(", ")", sd.Tuple)
		}
		return "None"
	}
	name := typeHashLabel(sd.Type)
	switch {
	case sd.Tuple != nil:
		return name + formatSeq("(", ")", sd.Tuple)
	case sd.Fields != nil:
		return name + formatSeq("{", "}", sd.Fields.Vals)
	default:
		return name
	}
}

// typeHashLabel prints a human name for a struct's type hash; this exercise
// never registers a reverse hash->path table (§4.2 only specifies the
// forward hash, not a debug-name registry), so anything other than the
// Option convention above falls back to the raw hash.
func typeHashLabel(h rhash.Hash) string {
	return h.String()
}
