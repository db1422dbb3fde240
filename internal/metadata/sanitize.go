package metadata

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/clearstone/finportal/internal/schema"
)

// Sanitize coerces raw extracted fields into values the object store will
// accept for the template, dropping anything unusable. It is pure and
// idempotent: running it over its own output changes nothing.
//
// Per-field rules:
//   - nil, empty-string, and undeclared keys are dropped
//   - dates must be YYYY-MM-DD (or already normalized) and come out as
//     midnight-UTC RFC 3339
//   - enum values outside the declared options are replaced by the field's
//     default when it declares one; other enums pass through as strings,
//     enforcement there is advisory
//   - numbers are parsed from strings best-effort; an unparseable value is
//     kept as the original string
//   - everything else is stringified
func Sanitize(fields map[string]any, def *schema.Definition) map[string]any {
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		if value == nil {
			continue
		}
		if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		fd, declared := def.Field(key)
		if !declared {
			continue
		}
		switch fd.Type {
		case schema.TypeDate:
			if normalized, ok := sanitizeDate(value); ok {
				out[key] = normalized
			}
		case schema.TypeEnum:
			s := fmt.Sprint(value)
			if !fd.HasOption(s) && fd.DefaultOnMismatch {
				s = fd.DefaultOption
			}
			out[key] = s
		case schema.TypeNumber:
			out[key] = sanitizeNumber(value)
		default:
			if s, ok := value.(string); ok {
				out[key] = s
			} else {
				out[key] = fmt.Sprint(value)
			}
		}
	}
	return out
}

// sanitizeDate accepts the strict extraction form (YYYY-MM-DD) and its own
// normalized output, so a second pass is a no-op.
func sanitizeDate(value any) (string, bool) {
	s, ok := value.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "T00:00:00Z") {
		day := strings.TrimSuffix(s, "T00:00:00Z")
		if _, err := time.Parse("2006-01-02", day); err == nil {
			return s, true
		}
		return "", false
	}
	if len(s) != 10 {
		return "", false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return "", false
	}
	return t.Format("2006-01-02") + "T00:00:00Z", true
}

func sanitizeNumber(value any) any {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		cleaned := strings.TrimSpace(strings.ReplaceAll(strings.TrimPrefix(v, "$"), ",", ""))
		if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
			return f
		}
		// unparseable: the raw string is still better than nothing
		return v
	default:
		return fmt.Sprint(v)
	}
}
