package nbt

import (
	"io"
	"strconv"
	"strings"
)

const indentUnit = "  "

// Format writes v to w. A value that fits in width columns at its indentation
// is written on one line; larger compounds and lists get one entry per line.
func Format(w io.Writer, v Value, width int) error {
	var sb strings.Builder
	format(&sb, v, 0, 0, width)
	sb.WriteByte('\n')
	_, err := io.WriteString(w, sb.String())
	return err
}

// Compact renders v on a single line.
func Compact(v Value) string {
	var sb strings.Builder
	compact(&sb, v)
	return sb.String()
}

// format writes v starting at column col of a line indented by depth units.
func format(sb *strings.Builder, v Value, depth, col, width int) {
	flat := Compact(v)
	if col+len(flat) <= width {
		sb.WriteString(flat)
		return
	}

	inner := strings.Repeat(indentUnit, depth+1)
	switch v := v.(type) {
	case Compound:
		sb.WriteString("{\n")
		for i, f := range v {
			key := formatKey(f.Key) + ": "
			sb.WriteString(inner)
			sb.WriteString(key)
			format(sb, f.Value, depth+1, len(inner)+len(key), width)
			if i < len(v)-1 {
				sb.WriteByte(',')
			}
			sb.WriteByte('\n')
		}
		sb.WriteString(strings.Repeat(indentUnit, depth))
		sb.WriteByte('}')
	case List:
		sb.WriteByte('[')
		if v.ArrayType != "" {
			sb.WriteString(v.ArrayType)
			sb.WriteByte(';')
		}
		sb.WriteByte('\n')
		for i, item := range v.Items {
			sb.WriteString(inner)
			format(sb, item, depth+1, len(inner), width)
			if i < len(v.Items)-1 {
				sb.WriteByte(',')
			}
			sb.WriteByte('\n')
		}
		sb.WriteString(strings.Repeat(indentUnit, depth))
		sb.WriteByte(']')
	default:
		sb.WriteString(flat)
	}
}

func compact(sb *strings.Builder, v Value) {
	switch v := v.(type) {
	case Compound:
		sb.WriteByte('{')
		for i, f := range v {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(formatKey(f.Key))
			sb.WriteString(": ")
			compact(sb, f.Value)
		}
		sb.WriteByte('}')
	case List:
		sb.WriteByte('[')
		if v.ArrayType != "" {
			sb.WriteString(v.ArrayType)
			sb.WriteString("; ")
		}
		for i, item := range v.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			compact(sb, item)
		}
		sb.WriteByte(']')
	case Number:
		sb.WriteString(string(v))
	case String:
		sb.WriteString(strconv.Quote(string(v)))
	}
}

func formatKey(key string) string {
	if key == "" {
		return `""`
	}
	for i := 0; i < len(key); i++ {
		if !isBareChar(key[i]) {
			return strconv.Quote(key)
		}
	}
	return key
}

// isBareChar reports whether c may appear in an unquoted key; it matches the
// lexer's Word class.
func isBareChar(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' ||
		c == '_' || c == '.' || c == '+' || c == '-'
}
