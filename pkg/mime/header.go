package mime

import (
	"strings"

	"github.com/emersion/go-message"
)

// HeaderHolder is implemented by messages and entities that carry a header
// block.
type HeaderHolder interface {
	Header() *message.Header
}

// GetHeader returns the value of the first header named name.
func GetHeader(h HeaderHolder, name string) (string, bool) {
	header := h.Header()
	if header == nil || !header.Has(name) {
		return "", false
	}
	return header.Get(name), true
}

// SetHeader replaces every header named name with a single one carrying
// value. A nil value removes all of them. It only affects holders whose
// Header returns the live header block, such as a received message: parsed
// entities are immutable and hand out copies, so setting a header on an
// entity has no effect.
func SetHeader(h HeaderHolder, name string, value *string) {
	header := h.Header()
	if header == nil {
		return
	}
	if value == nil {
		header.Del(name)
		return
	}
	header.Set(name, *value)
}

// GetParameter looks up the parameter paramName in the structured value of
// the first header named headerName. Parameter names match
// case-insensitively across every comma-separated element of the value.
func GetParameter(h HeaderHolder, headerName, paramName string) (string, bool) {
	value, ok := GetHeader(h, headerName)
	if !ok {
		return "", false
	}
	return lookupParameter(value, paramName)
}

func lookupParameter(value, paramName string) (string, bool) {
	for _, element := range splitUnquoted(value, ',') {
		fields := splitUnquoted(element, ';')
		// The first field is the element value, not a parameter.
		for _, field := range fields[1:] {
			name, val, found := strings.Cut(field, "=")
			if !strings.EqualFold(strings.TrimSpace(name), paramName) {
				continue
			}
			if !found {
				return "", true
			}
			return unquote(strings.TrimSpace(val)), true
		}
	}
	return "", false
}

// splitUnquoted splits s on sep, ignoring separators inside double quotes.
func splitUnquoted(s string, sep byte) []string {
	var parts []string
	inQuotes := false
	escaped := false
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inQuotes:
			escaped = true
		case c == '"':
			inQuotes = !inQuotes
		case c == sep && !inQuotes:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func unquote(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	s = s[1 : len(s)-1]
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	escaped := false
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteByte(s[i])
	}
	return b.String()
}
