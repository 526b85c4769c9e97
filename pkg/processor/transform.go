package processor

import (
	"fmt"
	"strconv"

	"github.com/jsperson/chathero/pkg/record"
)

// Date transforms applicable to grouping keys.
const (
	TransformExtractYear      = "extract_year"
	TransformExtractMonth     = "extract_month"
	TransformExtractDayOfWeek = "extract_day_of_week"
	TransformExtractQuarter   = "extract_quarter"
)

// TransformValue applies a date transform to a value. An empty transform
// name returns the value's string form. Unparsable dates yield "".
func TransformValue(transform string, v any) string {
	if transform == "" {
		return record.String(v)
	}
	t, ok := record.Time(v)
	if !ok {
		return ""
	}
	switch transform {
	case TransformExtractYear:
		return strconv.Itoa(t.Year())
	case TransformExtractMonth:
		return t.Month().String()
	case TransformExtractDayOfWeek:
		return t.Weekday().String()
	case TransformExtractQuarter:
		// 0-based month index divided by 3, 1-based quarter.
		return fmt.Sprintf("Q%d", (int(t.Month())-1)/3+1)
	default:
		return record.String(v)
	}
}
