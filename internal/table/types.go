package table

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Type is the declared type of a column.
type Type string

const (
	TypeInt   Type = "int"
	TypeFloat Type = "float"
	TypeStr   Type = "str"
	TypeBool  Type = "bool"
)

// Types lists the supported column types in menu order.
var Types = []Type{TypeInt, TypeFloat, TypeStr, TypeBool}

// Valid reports whether t is one of the supported types.
func (t Type) Valid() bool {
	switch t {
	case TypeInt, TypeFloat, TypeStr, TypeBool:
		return true
	}
	return false
}

func (t Type) String() string {
	return string(t)
}

// ParseType resolves a type name ("int", "float", "str", "bool").
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, s)
	}
	return t, nil
}

var (
	intPattern   = regexp.MustCompile(`^-?\d+$`)
	floatPattern = regexp.MustCompile(`^-?\d+\.\d+$`)

	// decimalPattern is what float columns accept: no hex, underscores,
	// inf or nan.
	decimalPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
)

// Infer classifies a raw value. Rules are checked in order: boolean literal,
// integer, strict decimal, string.
func Infer(value string) Type {
	v := strings.TrimSpace(value)
	switch {
	case strings.EqualFold(v, "true") || strings.EqualFold(v, "false"):
		return TypeBool
	case intPattern.MatchString(v):
		return TypeInt
	case floatPattern.MatchString(v):
		return TypeFloat
	default:
		return TypeStr
	}
}

// Coerce validates raw input against t and returns the typed value.
func Coerce(t Type, raw string) (any, error) {
	switch t {
	case TypeInt:
		if !isDigits(raw) {
			return nil, errInvalid
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, errInvalid
		}
		return n, nil
	case TypeFloat:
		v := strings.TrimSpace(raw)
		if !decimalPattern.MatchString(v) {
			return nil, errInvalid
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, errInvalid
		}
		return f, nil
	case TypeBool:
		switch strings.ToLower(raw) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, errInvalid
	case TypeStr:
		return raw, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, string(t))
}

// convertInferred converts a cell that matches the pattern inference used.
func convertInferred(t Type, raw string) (any, bool) {
	v := strings.TrimSpace(raw)
	if Infer(v) != t {
		return nil, false
	}
	switch t {
	case TypeInt:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	case TypeFloat:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	case TypeBool:
		return strings.EqualFold(v, "true"), true
	}
	return raw, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FormatValue renders a cell value the way text formats and the grid show it.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(x)
	}
}

// IsEmpty reports whether v is the empty placeholder.
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
