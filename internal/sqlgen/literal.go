package sqlgen

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bitnick10/pbsqlite/internal/ddl"
	"github.com/bitnick10/pbsqlite/internal/descriptor"
)

// ErrUnsafeLiteral is returned when a value cannot be embedded as a literal
// without escaping: strings containing a single quote, and non-finite floats.
var ErrUnsafeLiteral = errors.New("value cannot be embedded as a SQL literal")

// Literal renders v, the value of a field of kind k, as SQL text.
//
//   - string: wrapped in single quotes. The content is not escaped; a string
//     that contains a single quote is refused with ErrUnsafeLiteral rather
//     than producing a broken or injectable statement. Bind values with
//     Placeholders/Args to store arbitrary text.
//   - integers: decimal. uint64 is rendered as its int64 bit pattern because
//     INTEGER columns are signed 64-bit; Decode reverses this.
//   - float, double: the shortest decimal that parses back to the same
//     float32/float64 (strconv 'g', precision -1). NaN and ±Inf are refused.
func Literal(k descriptor.Kind, v any) (string, error) {
	if _, err := ddl.MapType(k); err != nil {
		return "", err
	}
	if err := descriptor.CheckValue(k, v); err != nil {
		return "", err
	}
	switch x := v.(type) {
	case string:
		if strings.ContainsRune(x, '\'') {
			return "", fmt.Errorf("%w: string contains a single quote", ErrUnsafeLiteral)
		}
		return "'" + x + "'", nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatInt(int64(x), 10), nil
	case float32:
		return formatFloat(float64(x), 32)
	case float64:
		return formatFloat(x, 64)
	}
	return "", fmt.Errorf("%w: %T", ddl.ErrUnsupportedType, v)
}

func formatFloat(f float64, bitSize int) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: %v", ErrUnsafeLiteral, f)
	}
	return strconv.FormatFloat(f, 'g', -1, bitSize), nil
}

// Arg converts v, the value of a field of kind k, to the value bound for it:
// string, int64 or float64. uint64 is passed as its int64 bit pattern.
func Arg(k descriptor.Kind, v any) (any, error) {
	if _, err := ddl.MapType(k); err != nil {
		return nil, err
	}
	if err := descriptor.CheckValue(k, v); err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint32:
		return int64(x), nil
	case uint64:
		return int64(x), nil
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	}
	return nil, fmt.Errorf("%w: %T", ddl.ErrUnsupportedType, v)
}
