package transform

import (
	"math"
	"strconv"
	"strings"

	"heartetl/internal/schema"
)

// Boolean vocabularies accepted during coercion, lowercased. "m"/"male" map
// to true and "f"/"female" to false because several UCI exports encode sex
// that way; numeric strings fall back to non-zero = true.
var (
	truthy = map[string]struct{}{
		"1": {}, "t": {}, "true": {}, "yes": {}, "y": {}, "m": {}, "male": {},
	}
	falsy = map[string]struct{}{
		"0": {}, "f": {}, "false": {}, "no": {}, "n": {}, "female": {},
	}
)

// coercer converts raw extracted values into the declared column types.
// Values that cannot be coerced become missing, never errors.
type coercer struct {
	naTokens map[string]struct{}
}

func newCoercer(spec schema.TableSpec) *coercer {
	na := make(map[string]struct{}, len(spec.NATokens))
	for _, t := range spec.NATokens {
		na[strings.ToLower(t)] = struct{}{}
	}
	return &coercer{naTokens: na}
}

// coerce returns the typed value and whether it is missing. ok is false when
// the raw value was present but could not be coerced (callers count these
// separately from values that were missing to begin with).
func (c *coercer) coerce(col schema.ColumnSpec, raw any) (val any, missing, ok bool) {
	if raw == nil {
		return nil, true, true
	}

	// Already-typed values pass through when they fit the declared kind.
	switch t := raw.(type) {
	case int64:
		return c.coerceNumeric(col, float64(t))
	case int:
		return c.coerceNumeric(col, float64(t))
	case float64:
		return c.coerceNumeric(col, t)
	case bool:
		if col.Kind == schema.KindBool {
			return t, false, true
		}
		return nil, true, false
	case string:
		s := strings.TrimSpace(t)
		if _, na := c.naTokens[strings.ToLower(s)]; na {
			return nil, true, true
		}
		return c.coerceString(col, s)
	default:
		return nil, true, false
	}
}

func (c *coercer) coerceString(col schema.ColumnSpec, s string) (any, bool, bool) {
	switch col.Kind {
	case schema.KindInteger, schema.KindCategorical:
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			return v, false, true
		}
		// Numeric exports often write integers as "54.0".
		if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) {
			return int64(f), false, true
		}
		return nil, true, false

	case schema.KindReal:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, false, true
		}
		return nil, true, false

	case schema.KindBool:
		lower := strings.ToLower(s)
		if _, yes := truthy[lower]; yes {
			return true, false, true
		}
		if _, no := falsy[lower]; no {
			return false, false, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f != 0, false, true
		}
		return nil, true, false

	case schema.KindDate, schema.KindText:
		// Dates stay as strings here; step 5 parses and canonicalizes them.
		return s, false, true

	default:
		return s, false, true
	}
}

func (c *coercer) coerceNumeric(col schema.ColumnSpec, f float64) (any, bool, bool) {
	switch col.Kind {
	case schema.KindInteger, schema.KindCategorical:
		if f == math.Trunc(f) {
			return int64(f), false, true
		}
		return nil, true, false
	case schema.KindReal:
		return f, false, true
	case schema.KindBool:
		return f != 0, false, true
	default:
		return nil, true, false
	}
}
