package config

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Serialize renders doc as TOML: top-level keys first, then one [section]
// block per non-empty section in output order.
func Serialize(doc *Document) []byte {
	var buf bytes.Buffer
	// bytes.Buffer writes do not fail.
	_, _ = doc.WriteTo(&buf)
	return buf.Bytes()
}

// WriteTo writes the TOML form of d to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	writeKeys := func(s *section) {
		for _, leaf := range s.keys {
			v := s.values[leaf]
			if v.IsAbsent() {
				continue
			}
			b.WriteString(quoteKey(leaf))
			b.WriteString(" = ")
			b.WriteString(formatValue(v))
			b.WriteByte('\n')
		}
	}

	writeKeys(d.top)
	for _, s := range d.orderedSections() {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("[")
		b.WriteString(formatTableName(s.name))
		b.WriteString("]\n")
		writeKeys(s)
	}

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

func formatTableName(name string) string {
	segments := sectionSegments(name)
	for i, seg := range segments {
		segments[i] = quoteKey(seg)
	}
	return strings.Join(segments, ".")
}

func quoteKey(k string) string {
	if bareKeyRegex.MatchString(k) {
		return k
	}
	return quoteBasic(k)
}

func formatValue(v Value) string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindString:
		return quoteString(v.s)
	case KindList:
		items := make([]string, len(v.list))
		for i, item := range v.list {
			items[i] = quoteString(item)
		}
		return "[" + strings.Join(items, ", ") + "]"
	default:
		// Callers skip absent values; TOML has no encoding for them.
		return ""
	}
}

// quoteString prefers a single-quoted literal string and falls back to an
// escaped basic string when s contains a quote or control character.
func quoteString(s string) string {
	if canBeLiteral(s) {
		return "'" + s + "'"
	}
	return quoteBasic(s)
}

func canBeLiteral(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if r == '\'' || (r < 0x20 && r != '\t') || r == 0x7f {
			return false
		}
	}
	return true
}

func quoteBasic(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\t':
			b.WriteString(`\t`)
		case '\n':
			b.WriteString(`\n`)
		case '\f':
			b.WriteString(`\f`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04X`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
