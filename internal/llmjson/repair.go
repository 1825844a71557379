package llmjson

import "strings"

// Repair drops trailing commas before a closing bracket and quotes bare
// object keys. String contents are left untouched.
func Repair(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	var stack []byte
	expectKey := false
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		ch := s[i]

		if inString {
			b.WriteByte(ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch {
		case ch == '"':
			inString = true
			expectKey = false
			b.WriteByte(ch)
		case ch == '{' || ch == '[':
			stack = append(stack, ch)
			expectKey = ch == '{'
			b.WriteByte(ch)
		case ch == '}' || ch == ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			expectKey = false
			b.WriteByte(ch)
		case ch == ',':
			if next := nextSignificant(s, i+1); next == '}' || next == ']' {
				continue
			}
			expectKey = len(stack) > 0 && stack[len(stack)-1] == '{'
			b.WriteByte(ch)
		case expectKey && isIdentStart(ch):
			j := i
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			if nextSignificant(s, j) == ':' {
				b.WriteByte('"')
				b.WriteString(s[i:j])
				b.WriteByte('"')
			} else {
				b.WriteString(s[i:j])
			}
			expectKey = false
			i = j - 1
		default:
			if !isSpace(ch) {
				expectKey = false
			}
			b.WriteByte(ch)
		}
	}
	return b.String()
}

func nextSignificant(s string, from int) byte {
	for i := from; i < len(s); i++ {
		if !isSpace(s[i]) {
			return s[i]
		}
	}
	return 0
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || ch == '$' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}
