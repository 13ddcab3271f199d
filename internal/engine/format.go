package engine

import "strconv"

// formatMagnitude renders a numeric field value to one decimal place, scaled
// with a "bn"/"mm" suffix when the rounded value is strictly greater than
// 1e9/1e6. The comparison runs on the already-rounded value (format,
// re-parse, compare), and the cuts are strict: exactly 1e9 fails the bn
// comparison and falls through to "1000.0 mm".
func formatMagnitude(v float64) string {
	rendered := strconv.FormatFloat(v, 'f', 1, 64)
	rounded, err := strconv.ParseFloat(rendered, 64)
	if err != nil {
		return rendered
	}

	switch {
	case rounded > 1e9:
		return strconv.FormatFloat(rounded/1e9, 'f', 1, 64) + " bn"
	case rounded > 1e6:
		return strconv.FormatFloat(rounded/1e6, 'f', 1, 64) + " mm"
	default:
		return rendered
	}
}
