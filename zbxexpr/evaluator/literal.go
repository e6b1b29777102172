package evaluator

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Multipliers of the unit suffixes. Time suffixes normalise to seconds,
// size suffixes to bytes.
var suffixMultiplier = map[byte]float64{
	's': 1,
	'm': 60,
	'h': 3600,
	'd': 86400,
	'w': 7 * 86400,
	'K': 1 << 10,
	'M': 1 << 20,
	'G': 1 << 30,
	'T': 1 << 40,
}

// Literal is a value taking part in a comparison: a number, already
// normalised by its unit suffix, or an arbitrary string.
type Literal struct {
	numeric bool
	num     float64
	str     string
	// Text the literal was parsed from, kept for messages.
	raw string
}

// Number returns a numeric literal.
func Number(v float64) Literal {
	return Literal{numeric: true, num: v, raw: strconv.FormatFloat(v, 'f', -1, 64)}
}

// String returns a non-numeric literal.
func String(s string) Literal {
	return Literal{str: s, raw: s}
}

// ParseLiteral never fails: text that is not a number with an optional unit
// suffix becomes a string literal.
func ParseLiteral(s string) Literal {
	t := strings.TrimSpace(s)
	if end, v, ok := scanNumber(t, 0); ok && end == len(t) {
		return Literal{numeric: true, num: v, raw: t}
	}
	return Literal{str: s, raw: s}
}

func (l Literal) IsNumeric() bool { return l.numeric }

// Float returns the normalised value of a numeric literal.
func (l Literal) Float() (float64, bool) { return l.num, l.numeric }

func (l Literal) String() string { return l.raw }

// MarshalJSON writes numbers as JSON numbers and everything else as strings.
func (l Literal) MarshalJSON() ([]byte, error) {
	if l.numeric {
		return json.Marshal(l.num)
	}
	return json.Marshal(l.str)
}

// UnmarshalJSON accepts a JSON number or a string such as "10m".
func (l *Literal) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case float64:
		*l = Number(x)
	case string:
		*l = ParseLiteral(x)
	default:
		return fmt.Errorf("literal must be a number or a string, got %s", string(b))
	}
	return nil
}

// scanNumber reads [-]digits[.digits][suffix] at i. A suffix must not be
// followed by another letter.
func scanNumber(s string, i int) (int, float64, bool) {
	start := i
	if i < len(s) && s[i] == '-' {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return start, 0, false
	}
	v, err := strconv.ParseFloat(s[start:i], 64)
	if err != nil {
		return start, 0, false
	}
	if i < len(s) {
		if mul, ok := suffixMultiplier[s[i]]; ok {
			if i+1 < len(s) && isLetter(s[i+1]) {
				return start, 0, false
			}
			return i + 1, v * mul, true
		}
		if isLetter(s[i]) {
			return start, 0, false
		}
	}
	return i, v, true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' }
