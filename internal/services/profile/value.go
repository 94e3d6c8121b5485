package profile

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the dynamic type of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a profile value: null, string, number or bool. The zero Value is null.
type Value struct {
	kind Kind
	text string
	num  float64
	b    bool
}

// Null returns the null value.
func Null() Value { return Value{} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: KindString, text: s} }

// BoolValue wraps a bool.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// NumberValue wraps a float.
func NumberValue(f float64) Value {
	return Value{kind: KindNumber, num: f, text: strconv.FormatFloat(f, 'f', -1, 64)}
}

// IntValue wraps an integer count.
func IntValue(n int) Value {
	return Value{kind: KindNumber, num: float64(n), text: strconv.Itoa(n)}
}

// ValueOf converts a decoded JSON value. Objects and arrays are kept as their
// JSON text so rules can still match them as strings.
func ValueOf(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case string:
		return StringValue(t)
	case bool:
		return BoolValue(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return StringValue(t.String())
		}
		return Value{kind: KindNumber, num: f, text: t.String()}
	case float64:
		return NumberValue(t)
	case float32:
		return NumberValue(float64(t))
	case int:
		return IntValue(t)
	case int64:
		return NumberValue(float64(t))
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return StringValue(fmt.Sprint(t))
		}
		return StringValue(string(raw))
	}
}

// Kind returns the dynamic type.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Number returns the numeric interpretation of v. Strings holding a number
// count as numeric; bools and null do not.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		return ParseNumber(v.text)
	default:
		return 0, false
	}
}

// String renders v as text. Null renders as the empty string and numbers keep
// the text they were ingested with.
func (v Value) String() string {
	switch v.kind {
	case KindString, KindNumber:
		return v.text
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindString:
		return v.text == o.text
	default:
		return true
	}
}

// ParseNumber parses a trimmed decimal number, rejecting NaN and infinities.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
