package models

import (
	"fmt"
	"strconv"
	"strings"
)

func specString(specs map[string]interface{}, key string) string {
	v, ok := specs[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// specNumber coerces a spec value to a number. Strings are read up to the
// first non-numeric character ("850W" -> 850); anything unreadable is 0.
func specNumber(specs map[string]interface{}, key string) float64 {
	v, ok := specs[key]
	if !ok {
		return 0
	}
	return CoerceNumber(v)
}

// CoerceNumber converts loosely typed numeric input to float64, returning 0
// for values that carry no leading number.
func CoerceNumber(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case string:
		return leadingNumber(n)
	default:
		return 0
	}
}

func leadingNumber(s string) float64 {
	s = strings.TrimSpace(s)
	var b strings.Builder
	seenDot := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == '.' && !seenDot:
			seenDot = true
			b.WriteByte(c)
		case (c == '-' || c == '+') && i == 0:
			b.WriteByte(c)
		case c == ',' && !seenDot && thousandsGroup(s, i):
			// "1,299.99" reads as 1299.99
		default:
			return parsePrefix(trimPartial(b.String()))
		}
	}
	return parsePrefix(trimPartial(b.String()))
}

// thousandsGroup reports whether the comma at i follows a digit and is
// followed by exactly three digits.
func thousandsGroup(s string, i int) bool {
	if i == 0 || s[i-1] < '0' || s[i-1] > '9' || i+3 >= len(s) {
		return false
	}
	for j := i + 1; j <= i+3; j++ {
		if s[j] < '0' || s[j] > '9' {
			return false
		}
	}
	return i+4 == len(s) || s[i+4] < '0' || s[i+4] > '9'
}

// trimPartial drops a trailing dot or a lone sign left by the scan.
func trimPartial(s string) string {
	s = strings.TrimSuffix(s, ".")
	if s == "-" || s == "+" {
		return ""
	}
	return s
}

func parsePrefix(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
