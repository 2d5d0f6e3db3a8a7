package handler

import (
	"errors"
	"strconv"
)

// parsePositiveInt parses a query parameter as a positive integer,
// clamping the result to max.
func parsePositiveInt(raw string, max int) (int, error) {
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if value <= 0 {
		return 0, errors.New("value must be positive")
	}
	if value > max {
		return max, nil
	}
	return value, nil
}
