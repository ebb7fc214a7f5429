package exchange

import "strconv"

// parseFloat parses the exchange's string-encoded numeric fields.
func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseFloat(s, 64)
}
