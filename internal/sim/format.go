package sim

import (
	"fmt"
	"strconv"
	"strings"
)

// formatValue renders a stored value according to a placeholder format
// spec. Supported specs follow the template convention used by the
// description files:
//
//	""       default formatting by value type
//	"d"      decimal integer
//	"s"      string
//	".2f"    fixed-point with precision
//	"+.6E"   scientific notation with explicit sign and mantissa digits
//	"e"      lower-case scientific notation
//
// Numeric formatting must match the declared template exactly, so getter
// responses reproduce the precision and exponent style the device
// declares.
func formatValue(spec string, v any) (string, error) {
	if spec == "" {
		return formatDefault(v), nil
	}

	rest := spec
	plus := false
	if strings.HasPrefix(rest, "+") {
		plus = true
		rest = rest[1:]
	}

	precision := -1
	if strings.HasPrefix(rest, ".") {
		end := 1
		for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
			end++
		}
		if end == 1 {
			return "", fmt.Errorf("%w: bad precision in format %q", ErrPatternSyntax, spec)
		}
		p, err := strconv.Atoi(rest[1:end])
		if err != nil {
			return "", fmt.Errorf("%w: bad precision in format %q", ErrPatternSyntax, spec)
		}
		precision = p
		rest = rest[end:]
	}

	if len(rest) != 1 {
		return "", fmt.Errorf("%w: bad format spec %q", ErrPatternSyntax, spec)
	}
	verb := rest[0]

	switch verb {
	case 'd':
		n, err := toInt(v)
		if err != nil {
			return "", err
		}
		s := strconv.FormatInt(n, 10)
		if plus && n >= 0 {
			s = "+" + s
		}
		return s, nil

	case 'f', 'e', 'E':
		f, err := toFloat(v)
		if err != nil {
			return "", err
		}
		if precision < 0 {
			precision = 6
		}
		s := strconv.FormatFloat(f, verb, precision, 64)
		if verb != 'f' {
			s = padExponent(s)
		}
		if plus && f >= 0 {
			s = "+" + s
		}
		return s, nil

	case 's':
		return formatDefault(v), nil

	default:
		return "", fmt.Errorf("%w: unknown format verb %q", ErrPatternSyntax, string(verb))
	}
}

// formatDefault renders a value without an explicit format spec.
func formatDefault(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'G', -1, 64)
	case bool:
		if val {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// padExponent widens single-digit exponents to two digits ("1.5E+7" →
// "1.5E+07") to match instrument response conventions.
func padExponent(s string) string {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == 'e' || s[i] == 'E' {
			exp := s[i+1:]
			sign := ""
			if strings.HasPrefix(exp, "+") || strings.HasPrefix(exp, "-") {
				sign = exp[:1]
				exp = exp[1:]
			}
			if len(exp) < 2 {
				exp = strings.Repeat("0", 2-len(exp)) + exp
			}
			return s[:i+1] + sign + exp
		}
	}
	return s
}

// parseTypedValue converts a raw captured string into the property's
// declared type. An empty type defaults to "str".
func parseTypedValue(typ, raw string) (any, error) {
	switch typ {
	case "int":
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %q as int: %w", raw, err)
		}
		return n, nil
	case "float":
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %q as float: %w", raw, err)
		}
		return f, nil
	case "", "str":
		return raw, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidDescription, typ)
	}
}

// coerceDefault normalises a YAML default value to the declared type.
// YAML integers arrive as int, floats as float64; both are accepted for
// numeric properties.
func coerceDefault(typ string, v any) (any, error) {
	if v == nil {
		switch typ {
		case "int":
			return int64(0), nil
		case "float":
			return float64(0), nil
		default:
			return "", nil
		}
	}

	switch typ {
	case "int":
		n, err := toInt(v)
		if err != nil {
			return nil, err
		}
		return n, nil
	case "float":
		f, err := toFloat(v)
		if err != nil {
			return nil, err
		}
		return f, nil
	case "", "str":
		return formatDefault(v), nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidDescription, typ)
	}
}

func toInt(v any) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case int:
		return int64(val), nil
	case float64:
		return int64(val), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(val), 10, 64)
	default:
		return 0, fmt.Errorf("cannot use %T as int", v)
	}
}

func toFloat(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case int64:
		return float64(val), nil
	case int:
		return float64(val), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(val), 64)
	default:
		return 0, fmt.Errorf("cannot use %T as float", v)
	}
}
